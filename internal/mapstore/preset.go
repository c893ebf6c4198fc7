package mapstore

import (
	"fmt"
	"math"
)

// Preset is a named stimulus pattern. Exactly one variant is set: Vest for
// discrete fire-and-forget timelines, Axis for continuous axis mappings,
// Pad for virtual gamepad button presses.
type Preset struct {
	Name string       `json:"name"`
	Vest *VestPattern `json:"vest,omitempty"`
	Axis *AxisMap     `json:"axis,omitempty"`
	Pad  *PadButton   `json:"pad,omitempty"`
}

// PadButton presses a virtual gamepad button when the preset fires. A
// while-held binding holds the button for as long as the input; every
// other fire is a tap of TapMs.
type PadButton struct {
	Button string `json:"button"`
	TapMs  int    `json:"tapMs,omitempty"`
}

// VestStep drives a single vest node at an intensity for a duration,
// starting at an offset from the pattern trigger.
type VestStep struct {
	Node          int     `json:"node"`
	Intensity     float64 `json:"intensity"`
	StartOffsetMs int     `json:"startOffsetMs"`
	DurationMs    int     `json:"durationMs"`
}

type VestPattern struct {
	Steps []VestStep `json:"steps"`
}

// EndOffsetMs is the offset at which the pattern is fully played out.
func (p *VestPattern) EndOffsetMs() int {
	end := 0
	for _, step := range p.Steps {
		if e := step.StartOffsetMs + step.DurationMs; e > end {
			end = e
		}
	}
	return end
}

// Axis direction filters which side of the input axis drives the output.
const (
	DirectionBoth     = "both"
	DirectionPositive = "positive"
	DirectionNegative = "negative"
)

// Curve names accepted by AxisMap.
const (
	CurveLinear  = "linear"
	CurveSquared = "squared"
	CurveExpo    = "expo"
)

// AxisMap is a pure function from a normalized input axis value in [-1,1]
// to an output axis value. Zero-valued fields take their defaults on
// Validate (saturation 1, maxOutput 1, direction both, curve linear).
type AxisMap struct {
	Output     string  `json:"output"`
	Deadzone   float64 `json:"deadzone,omitempty"`
	Saturation float64 `json:"saturation,omitempty"`
	MaxOutput  float64 `json:"maxOutput,omitempty"`
	Invert     bool    `json:"invert,omitempty"`
	Direction  string  `json:"direction,omitempty"`
	Curve      string  `json:"curve,omitempty"`
}

// Apply maps a normalized input value to the output value. The mapping is
// total over [-1,1]: deadzone zeroes small values, everything else passes
// through saturation scaling, the shaping curve and the output cap.
func (a *AxisMap) Apply(v float64) float64 {
	if a.Invert {
		v = -v
	}
	switch a.Direction {
	case DirectionPositive:
		if v < 0 {
			v = 0
		}
	case DirectionNegative:
		// The negative side drives positive output.
		v = -v
		if v < 0 {
			v = 0
		}
	}
	if math.Abs(v) < a.Deadzone {
		return 0
	}
	sat := a.Saturation
	if sat <= 0 {
		sat = 1
	}
	v /= sat
	v = clamp(v, -1, 1)

	sign := 1.0
	if v < 0 {
		sign = -1
	}
	m := math.Abs(v)
	switch a.Curve {
	case CurveSquared:
		m = m * m
	case CurveExpo:
		m = (math.Exp(m) - 1) / (math.E - 1)
	}

	max := a.MaxOutput
	if max == 0 {
		max = 1
	}
	return sign * m * max
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Validate checks the preset against the catalog constraints and returns
// ErrInvalidPreset wrapped with the violated constraint.
func (p Preset) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: preset has no name", ErrInvalidPreset)
	}
	variants := 0
	for _, set := range []bool{p.Vest != nil, p.Axis != nil, p.Pad != nil} {
		if set {
			variants++
		}
	}
	switch {
	case variants == 0:
		return fmt.Errorf("%w %s: no pattern variant set", ErrInvalidPreset, p.Name)
	case variants > 1:
		return fmt.Errorf("%w %s: multiple pattern variants set", ErrInvalidPreset, p.Name)
	case p.Vest != nil:
		return p.validateVest()
	case p.Axis != nil:
		return p.validateAxis()
	default:
		return p.validatePad()
	}
}

func (p Preset) validatePad() error {
	if p.Pad.Button == "" {
		return fmt.Errorf("%w %s: pad press has no button", ErrInvalidPreset, p.Name)
	}
	if p.Pad.TapMs < 0 {
		return fmt.Errorf("%w %s: negative tap duration", ErrInvalidPreset, p.Name)
	}
	return nil
}

func (p Preset) validateVest() error {
	if len(p.Vest.Steps) == 0 {
		return fmt.Errorf("%w %s: vest pattern has no steps", ErrInvalidPreset, p.Name)
	}
	prevOffset := 0
	for i, step := range p.Vest.Steps {
		if step.Intensity < 0 || step.Intensity > 1 {
			return fmt.Errorf("%w %s: step %d intensity %v out of [0,1]", ErrInvalidPreset, p.Name, i, step.Intensity)
		}
		if step.StartOffsetMs < 0 {
			return fmt.Errorf("%w %s: step %d has negative start offset", ErrInvalidPreset, p.Name, i)
		}
		if step.DurationMs < 0 {
			return fmt.Errorf("%w %s: step %d has negative duration", ErrInvalidPreset, p.Name, i)
		}
		if step.StartOffsetMs < prevOffset {
			return fmt.Errorf("%w %s: step %d start offset decreases", ErrInvalidPreset, p.Name, i)
		}
		prevOffset = step.StartOffsetMs
	}
	return nil
}

func (p Preset) validateAxis() error {
	a := p.Axis
	if a.Output == "" {
		return fmt.Errorf("%w %s: axis mapping has no output axis", ErrInvalidPreset, p.Name)
	}
	if a.Deadzone < 0 || a.Deadzone >= 1 {
		return fmt.Errorf("%w %s: deadzone %v out of [0,1)", ErrInvalidPreset, p.Name, a.Deadzone)
	}
	if a.Saturation < 0 {
		return fmt.Errorf("%w %s: negative saturation", ErrInvalidPreset, p.Name)
	}
	if a.MaxOutput < 0 || a.MaxOutput > 1 {
		return fmt.Errorf("%w %s: maxOutput %v out of [0,1]", ErrInvalidPreset, p.Name, a.MaxOutput)
	}
	switch a.Direction {
	case "", DirectionBoth, DirectionPositive, DirectionNegative:
	default:
		return fmt.Errorf("%w %s: unknown direction %q", ErrInvalidPreset, p.Name, a.Direction)
	}
	switch a.Curve {
	case "", CurveLinear, CurveSquared, CurveExpo:
	default:
		return fmt.Errorf("%w %s: unknown curve %q", ErrInvalidPreset, p.Name, a.Curve)
	}
	return nil
}
