// Package linux reads raw input events from evdev devices and normalizes
// them for the input service.
package linux

import (
	"context"
	"fmt"
	"sync"

	evdev "github.com/gvalkov/golang-evdev"
	"github.com/hapticbridge/hapticbridge/internal/inputsvc"
	"github.com/hapticbridge/hapticbridge/internal/mapstore"
	"go.uber.org/zap"
)

const (
	KindKeyboard = "keyboard"
	KindMouse    = "mouse"
	KindJoystick = "joystick"
)

// defaultAxisRange matches the signed 16-bit range most joysticks report.
const defaultAxisRange = 32767

type DeviceConfig struct {
	Path string `json:"path"`
	// Kind is sniffed from device capabilities when empty.
	Kind string `json:"kind,omitempty"`
	// JoyIndex distinguishes joysticks in multi-stick setups.
	JoyIndex int `json:"joyIndex,omitempty"`
	// AxisRange is the raw value that maps to a full deflection of 1.0.
	AxisRange int `json:"axisRange,omitempty"`
	// Grab requests exclusive access so events do not reach other readers.
	Grab bool `json:"grab,omitempty"`
}

type Config struct {
	// Devices to open. When empty, all readable input devices are
	// autodetected and classified by capability.
	Devices []DeviceConfig `json:"devices,omitempty"`
}

type Backend struct {
	log   *zap.Logger
	cfg   Config
	ready chan struct{}
}

func NewBackend(log *zap.Logger, cfg Config) *Backend {
	return &Backend{
		log:   log,
		cfg:   cfg,
		ready: make(chan struct{}),
	}
}

func (b *Backend) Ready() <-chan struct{} {
	return b.ready
}

type openDevice struct {
	dev       *evdev.InputDevice
	kind      string
	joyIndex  int
	axisRange int
	grabbed   bool
}

// Start opens the configured devices (fatal on failure, these were asked
// for explicitly) or autodetects (failures skipped), then reads each
// device on its own goroutine until the context is cancelled.
func (b *Backend) Start(ctx context.Context, publish inputsvc.PublishFunc) error {
	var devices []openDevice
	if len(b.cfg.Devices) > 0 {
		for _, dc := range b.cfg.Devices {
			od, err := b.open(dc)
			if err != nil {
				closeDevices(devices)
				return err
			}
			devices = append(devices, od)
		}
	} else {
		detected, err := b.autodetect()
		if err != nil {
			return err
		}
		devices = detected
	}
	if len(devices) == 0 {
		b.log.Warn("No input devices found")
	}

	var wg sync.WaitGroup
	for _, od := range devices {
		od := od
		b.log.Info("Reading input device",
			zap.String("path", od.dev.Fn),
			zap.String("name", od.dev.Name),
			zap.String("kind", od.kind),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.readLoop(ctx, od, publish)
		}()
	}
	close(b.ready)
	<-ctx.Done()
	// Closing the device files unblocks readers stuck in ReadOne, so the
	// wait below cannot hang on idle devices.
	closeDevices(devices)
	wg.Wait()
	return nil
}

func closeDevices(devices []openDevice) {
	for _, od := range devices {
		if od.grabbed {
			od.dev.Release()
		}
		od.dev.File.Close()
	}
}

func (b *Backend) open(dc DeviceConfig) (openDevice, error) {
	dev, err := evdev.Open(dc.Path)
	if err != nil {
		return openDevice{}, fmt.Errorf("failed to open input device %s: %w", dc.Path, err)
	}
	kind := dc.Kind
	if kind == "" {
		kind = classify(dev)
	}
	if kind == "" {
		return openDevice{}, fmt.Errorf("cannot classify input device %s (%s)", dc.Path, dev.Name)
	}
	if dc.Grab {
		if err := dev.Grab(); err != nil {
			return openDevice{}, fmt.Errorf("failed to grab input device %s: %w", dc.Path, err)
		}
	}
	axisRange := dc.AxisRange
	if axisRange == 0 {
		axisRange = defaultAxisRange
	}
	return openDevice{
		dev:       dev,
		kind:      kind,
		joyIndex:  dc.JoyIndex,
		axisRange: axisRange,
		grabbed:   dc.Grab,
	}, nil
}

func (b *Backend) autodetect() ([]openDevice, error) {
	devs, err := evdev.ListInputDevices()
	if err != nil {
		return nil, fmt.Errorf("failed to list input devices: %w", err)
	}
	var out []openDevice
	joyIndex := 0
	for _, dev := range devs {
		kind := classify(dev)
		if kind == "" {
			dev.File.Close()
			continue
		}
		od := openDevice{
			dev:       dev,
			kind:      kind,
			axisRange: defaultAxisRange,
		}
		if kind == KindJoystick {
			od.joyIndex = joyIndex
			joyIndex++
		}
		out = append(out, od)
	}
	return out, nil
}

// classify sniffs the device family from its capabilities. Joystick wins
// over mouse/keyboard: gamepads often expose a few keyboard keys too.
func classify(dev *evdev.InputDevice) string {
	switch {
	case hasCode(dev, evdev.EV_KEY, evdev.BTN_GAMEPAD) || hasCode(dev, evdev.EV_KEY, evdev.BTN_JOYSTICK):
		return KindJoystick
	case hasCode(dev, evdev.EV_KEY, evdev.BTN_LEFT):
		return KindMouse
	case hasCode(dev, evdev.EV_KEY, evdev.KEY_A):
		return KindKeyboard
	default:
		return ""
	}
}

func hasCode(dev *evdev.InputDevice, evType int, code int) bool {
	for capType, codes := range dev.Capabilities {
		if capType.Type != evType {
			continue
		}
		for _, c := range codes {
			if c.Code == code {
				return true
			}
		}
	}
	return false
}

func (b *Backend) readLoop(ctx context.Context, od openDevice, publish inputsvc.PublishFunc) {
	for {
		if ctx.Err() != nil {
			return
		}
		ev, err := od.dev.ReadOne()
		if err != nil {
			if ctx.Err() != nil {
				// Shutdown closed the device file under us.
				return
			}
			// Unplugged or read error. The device stays gone until the
			// agent restarts; hotplug is not supported.
			b.log.Warn("Input device read failed",
				zap.String("path", od.dev.Fn),
				zap.Error(err),
			)
			return
		}
		event, ok := translate(od, ev)
		if !ok {
			continue
		}
		publish(ctx, event)
	}
}

func translate(od openDevice, ev *evdev.InputEvent) (inputsvc.Event, bool) {
	switch ev.Type {
	case evdev.EV_KEY:
		input, ok := buttonInput(od, int(ev.Code))
		if !ok {
			return inputsvc.Event{}, false
		}
		switch ev.Value {
		case 0:
			return inputsvc.Event{Input: input, Kind: inputsvc.Release}, true
		case 1:
			return inputsvc.Event{Input: input, Kind: inputsvc.Press}, true
		default:
			// Key repeats are not edges.
			return inputsvc.Event{}, false
		}
	case evdev.EV_ABS:
		if od.kind != KindJoystick {
			return inputsvc.Event{}, false
		}
		value := float64(ev.Value) / float64(od.axisRange)
		if value > 1 {
			value = 1
		}
		if value < -1 {
			value = -1
		}
		return inputsvc.Event{
			Input: mapstore.LogicalInput{
				Kind:   mapstore.KindJoyAxis,
				Code:   uint16(ev.Code),
				Device: od.joyIndex,
			},
			Kind:  inputsvc.AxisChange,
			Value: value,
		}, true
	default:
		return inputsvc.Event{}, false
	}
}

func buttonInput(od openDevice, code int) (mapstore.LogicalInput, bool) {
	switch od.kind {
	case KindKeyboard:
		if code >= evdev.BTN_MISC {
			return mapstore.LogicalInput{}, false
		}
		return mapstore.LogicalInput{Kind: mapstore.KindKey, Code: uint16(code)}, true
	case KindMouse:
		if code < evdev.BTN_MOUSE || code > evdev.BTN_TASK {
			return mapstore.LogicalInput{}, false
		}
		return mapstore.LogicalInput{Kind: mapstore.KindMouseButton, Code: uint16(code)}, true
	case KindJoystick:
		// Gamepad buttons are numbered from BTN_GAMEPAD, legacy joystick
		// buttons from BTN_JOYSTICK, so ids start at 0 either way.
		switch {
		case code >= evdev.BTN_GAMEPAD:
			return mapstore.LogicalInput{
				Kind:   mapstore.KindJoyButton,
				Code:   uint16(code - evdev.BTN_GAMEPAD),
				Device: od.joyIndex,
			}, true
		case code >= evdev.BTN_JOYSTICK:
			return mapstore.LogicalInput{
				Kind:   mapstore.KindJoyButton,
				Code:   uint16(code - evdev.BTN_JOYSTICK),
				Device: od.joyIndex,
			}, true
		default:
			return mapstore.LogicalInput{}, false
		}
	default:
		return mapstore.LogicalInput{}, false
	}
}

// DeviceInfo describes a detected input device for the list-devices CLI.
type DeviceInfo struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// ListDevices enumerates readable evdev devices and their detected kinds.
func ListDevices() ([]DeviceInfo, error) {
	devs, err := evdev.ListInputDevices()
	if err != nil {
		return nil, fmt.Errorf("failed to list input devices: %w", err)
	}
	infos := make([]DeviceInfo, 0, len(devs))
	for _, dev := range devs {
		kind := classify(dev)
		if kind == "" {
			kind = "unsupported"
		}
		infos = append(infos, DeviceInfo{
			Path: dev.Fn,
			Name: dev.Name,
			Kind: kind,
		})
		dev.File.Close()
	}
	return infos, nil
}
