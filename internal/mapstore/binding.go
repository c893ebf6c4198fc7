package mapstore

import "fmt"

// Mode determines which input edges trigger a binding.
type Mode string

const (
	ModeOnPress        Mode = "onPress"
	ModeOnRelease      Mode = "onRelease"
	ModeWhileHeld      Mode = "whileHeld"
	ModeContinuousAxis Mode = "axis"
)

// Binding couples one LogicalInput to one preset. At most one binding
// exists per input; upserting replaces the previous one.
type Binding struct {
	// Name is optional and only required when the binding participates in
	// group toggling (Disables/Enables) or starts disabled.
	Name   string       `json:"name,omitempty"`
	Input  LogicalInput `json:"input"`
	Preset string       `json:"preset"`
	Mode   Mode         `json:"mode"`

	// HoldMs delays the fire until the input has been held this long.
	// Releasing earlier aborts the fire. Press-triggered modes only.
	HoldMs int `json:"holdMs,omitempty"`
	// TurboMs re-fires the preset at this interval while the input is
	// held. Press-triggered modes only.
	TurboMs int `json:"turboMs,omitempty"`

	// StartDisabled registers the binding in the disabled set on import.
	StartDisabled bool `json:"startDisabled,omitempty"`
	// Disables and Enables name bindings to toggle when this one fires.
	Disables []string `json:"disables,omitempty"`
	Enables  []string `json:"enables,omitempty"`
}

func (b Binding) validate() error {
	switch b.Mode {
	case ModeOnPress, ModeOnRelease, ModeWhileHeld:
		if b.Input.IsAxis() {
			return fmt.Errorf("%w: %s binding on axis input %s", ErrInvalidBinding, b.Mode, b.Input)
		}
	case ModeContinuousAxis:
		if !b.Input.IsAxis() {
			return fmt.Errorf("%w: axis binding on non-axis input %s", ErrInvalidBinding, b.Input)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidBinding, b.Mode)
	}
	if b.Preset == "" {
		return fmt.Errorf("%w: binding for %s has no preset", ErrInvalidBinding, b.Input)
	}
	if (b.HoldMs != 0 || b.TurboMs != 0) && (b.Mode == ModeContinuousAxis || b.Mode == ModeOnRelease) {
		// Hold and turbo only make sense while the input stays pressed.
		return fmt.Errorf("%w: hold/turbo options on %s binding %s", ErrInvalidBinding, b.Mode, b.Input)
	}
	if b.HoldMs < 0 || b.TurboMs < 0 {
		return fmt.Errorf("%w: negative hold/turbo interval on %s", ErrInvalidBinding, b.Input)
	}
	return nil
}
