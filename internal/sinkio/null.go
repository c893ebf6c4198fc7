package sinkio

import (
	"encoding/json"

	"go.uber.org/zap"
)

// NullVest and NullPad log sends instead of touching hardware. Used for
// dry runs and on machines without the vendor runtimes.
type NullVest struct {
	Log *zap.Logger
}

func (n NullVest) SendStimulus(node int, intensity float64, durationMs int) error {
	n.Log.Debug("stimulus",
		zap.Int("node", node),
		zap.Float64("intensity", intensity),
		zap.Int("durationMs", durationMs),
	)
	return nil
}

type NullPad struct {
	Log *zap.Logger
}

func (n NullPad) SendAxis(axis string, value float64) error {
	n.Log.Debug("axis", zap.String("axis", axis), zap.Float64("value", value))
	return nil
}

func (n NullPad) SendButton(button string, pressed bool) error {
	n.Log.Debug("button", zap.String("button", button), zap.Bool("pressed", pressed))
	return nil
}

// Registry creators.

func NewNullVest(_ json.RawMessage, log *zap.Logger) (VestSink, error) {
	return NullVest{Log: log.Named("vest")}, nil
}

func NewNullPad(_ json.RawMessage, log *zap.Logger) (PadSink, error) {
	return NullPad{Log: log.Named("pad")}, nil
}
