// Package pad exposes a virtual Xbox-style gamepad through uinput. The
// motion-chair application reads it as a regular controller.
package pad

import (
	"encoding/json"
	"fmt"

	"github.com/bendahl/uinput"
	"github.com/hapticbridge/hapticbridge/internal/sinkio"
	"go.uber.org/zap"
)

type Config struct {
	// Name the virtual device announces itself with.
	Name string `json:"name"`
	// Vendor/Product default to a generic Xbox controller identity so the
	// chair application picks the device up without extra configuration.
	Vendor  uint16 `json:"vendor,omitempty"`
	Product uint16 `json:"product,omitempty"`
}

type Pad struct {
	log     *zap.Logger
	gamepad uinput.Gamepad
}

func New(log *zap.Logger, cfg Config) (*Pad, error) {
	if cfg.Name == "" {
		cfg.Name = "hapticbridge pad"
	}
	if cfg.Vendor == 0 {
		cfg.Vendor = 0x045e
	}
	if cfg.Product == 0 {
		cfg.Product = 0x028e
	}
	gamepad, err := uinput.CreateGamepad("/dev/uinput", []byte(cfg.Name), cfg.Vendor, cfg.Product)
	if err != nil {
		return nil, fmt.Errorf("failed to create virtual gamepad: %w", err)
	}
	return &Pad{log: log, gamepad: gamepad}, nil
}

// NewFromConfig is the sink registry creator.
func NewFromConfig(config json.RawMessage, log *zap.Logger) (sinkio.PadSink, error) {
	var cfg Config
	if err := json.Unmarshal(config, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse pad sink config: %w", err)
	}
	return New(log.Named("pad"), cfg)
}

var buttonCodes = map[string]int{
	sinkio.ButtonSouth:       uinput.ButtonSouth,
	sinkio.ButtonEast:        uinput.ButtonEast,
	sinkio.ButtonWest:        uinput.ButtonWest,
	sinkio.ButtonNorth:       uinput.ButtonNorth,
	sinkio.ButtonBumperLeft:  uinput.ButtonBumperLeft,
	sinkio.ButtonBumperRight: uinput.ButtonBumperRight,
	sinkio.ButtonSelect:      uinput.ButtonSelect,
	sinkio.ButtonStart:       uinput.ButtonStart,
	sinkio.ButtonThumbLeft:   uinput.ButtonThumbLeft,
	sinkio.ButtonThumbRight:  uinput.ButtonThumbRight,
	sinkio.ButtonDpadUp:      uinput.ButtonDpadUp,
	sinkio.ButtonDpadDown:    uinput.ButtonDpadDown,
	sinkio.ButtonDpadLeft:    uinput.ButtonDpadLeft,
	sinkio.ButtonDpadRight:   uinput.ButtonDpadRight,
	sinkio.ButtonMode:        uinput.ButtonMode,
}

func (p *Pad) SendButton(button string, pressed bool) error {
	code, ok := buttonCodes[button]
	if !ok {
		return fmt.Errorf("unknown gamepad button %q", button)
	}
	var err error
	if pressed {
		err = p.gamepad.ButtonDown(code)
	} else {
		err = p.gamepad.ButtonUp(code)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", sinkio.ErrDeviceUnreachable, err)
	}
	return nil
}

func (p *Pad) SendAxis(axis string, value float64) error {
	var err error
	switch axis {
	case sinkio.AxisLeftX:
		err = p.gamepad.LeftStickMoveX(float32(value))
	case sinkio.AxisLeftY:
		err = p.gamepad.LeftStickMoveY(float32(value))
	case sinkio.AxisRightX:
		err = p.gamepad.RightStickMoveX(float32(value))
	case sinkio.AxisRightY:
		err = p.gamepad.RightStickMoveY(float32(value))
	default:
		return fmt.Errorf("unknown output axis %q", axis)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", sinkio.ErrDeviceUnreachable, err)
	}
	return nil
}

func (p *Pad) Close() error {
	return p.gamepad.Close()
}
