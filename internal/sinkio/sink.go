// Package sinkio defines the adapter boundary to the vendor-controlled
// output devices. Sinks are fire-and-forget: they report success or
// failure of the send attempt and assume no acknowledgement protocol.
package sinkio

import (
	"errors"
	"io"
)

// ErrDeviceUnreachable wraps delivery failures (vest runtime not running,
// virtual pad gone). The engine logs it once per target per session and
// drops the cue.
var ErrDeviceUnreachable = errors.New("device unreachable")

// VestSink delivers a single node stimulus. Intensity is in [0,1];
// durationMs 0 with intensity 0 acts as a stop command for the node.
type VestSink interface {
	SendStimulus(node int, intensity float64, durationMs int) error
}

// PadSink drives the virtual gamepad consumed by the motion-chair
// application: continuous axis values in [-1,1] and button edges.
// Re-sending the same axis value or button state is permitted and cheap.
type PadSink interface {
	SendAxis(axis string, value float64) error
	SendButton(button string, pressed bool) error
}

// Output axis names understood by the pad sink.
const (
	AxisLeftX  = "left_x"
	AxisLeftY  = "left_y"
	AxisRightX = "right_x"
	AxisRightY = "right_y"
)

// Gamepad button names understood by the pad sink.
const (
	ButtonSouth       = "south"
	ButtonEast        = "east"
	ButtonWest        = "west"
	ButtonNorth       = "north"
	ButtonBumperLeft  = "bumper_left"
	ButtonBumperRight = "bumper_right"
	ButtonSelect      = "select"
	ButtonStart       = "start"
	ButtonThumbLeft   = "thumb_left"
	ButtonThumbRight  = "thumb_right"
	ButtonDpadUp      = "dpad_up"
	ButtonDpadDown    = "dpad_down"
	ButtonDpadLeft    = "dpad_left"
	ButtonDpadRight   = "dpad_right"
	ButtonMode        = "mode"
)

// Close shuts a sink down if it holds a device connection.
func Close(sink any) error {
	if c, ok := sink.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
