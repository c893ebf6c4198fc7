package mapstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetValidate(t *testing.T) {
	valid := []Preset{
		{
			Name: "reload",
			Vest: &VestPattern{Steps: []VestStep{
				{Node: 2, Intensity: 0.6, StartOffsetMs: 0, DurationMs: 150},
			}},
		},
		{
			Name: "double_tap",
			Vest: &VestPattern{Steps: []VestStep{
				{Node: 1, Intensity: 1, DurationMs: 80},
				{Node: 1, Intensity: 1, StartOffsetMs: 200, DurationMs: 80},
			}},
		},
		{
			Name: "lean_x",
			Axis: &AxisMap{Output: "left_x", Deadzone: 0.1, Saturation: 0.9, Curve: CurveSquared},
		},
		{
			Name: "jump",
			Pad:  &PadButton{Button: "south", TapMs: 80},
		},
	}
	for _, preset := range valid {
		t.Run(preset.Name, func(t *testing.T) {
			require.NoError(t, preset.Validate())
		})
	}

	vestStep := func(steps ...VestStep) *VestPattern {
		return &VestPattern{Steps: steps}
	}
	invalid := map[string]Preset{
		"no name":          {Vest: vestStep(VestStep{Intensity: 0.5, DurationMs: 10})},
		"no variant":       {Name: "p"},
		"both variants":    {Name: "p", Vest: vestStep(VestStep{}), Axis: &AxisMap{Output: "left_x"}},
		"no steps":         {Name: "p", Vest: &VestPattern{}},
		"intensity high":   {Name: "p", Vest: vestStep(VestStep{Intensity: 1.5, DurationMs: 10})},
		"intensity low":    {Name: "p", Vest: vestStep(VestStep{Intensity: -0.1, DurationMs: 10})},
		"negative offset":  {Name: "p", Vest: vestStep(VestStep{Intensity: 0.5, StartOffsetMs: -5})},
		"negative dur":     {Name: "p", Vest: vestStep(VestStep{Intensity: 0.5, DurationMs: -5})},
		"offset decreases": {Name: "p", Vest: vestStep(VestStep{Intensity: 0.5, StartOffsetMs: 100}, VestStep{Intensity: 0.5, StartOffsetMs: 50})},
		"no output":        {Name: "p", Axis: &AxisMap{}},
		"deadzone 1":       {Name: "p", Axis: &AxisMap{Output: "left_x", Deadzone: 1}},
		"max output high":  {Name: "p", Axis: &AxisMap{Output: "left_x", MaxOutput: 1.2}},
		"bad direction":    {Name: "p", Axis: &AxisMap{Output: "left_x", Direction: "sideways"}},
		"bad curve":        {Name: "p", Axis: &AxisMap{Output: "left_x", Curve: "cubic"}},
		"vest and pad":     {Name: "p", Vest: vestStep(VestStep{Intensity: 0.5, DurationMs: 10}), Pad: &PadButton{Button: "south"}},
		"no button":        {Name: "p", Pad: &PadButton{}},
		"negative tap":     {Name: "p", Pad: &PadButton{Button: "south", TapMs: -10}},
	}
	for name, preset := range invalid {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, preset.Validate(), ErrInvalidPreset)
		})
	}
}

func TestVestPatternEndOffset(t *testing.T) {
	pattern := &VestPattern{Steps: []VestStep{
		{Node: 1, Intensity: 1, StartOffsetMs: 0, DurationMs: 300},
		{Node: 2, Intensity: 1, StartOffsetMs: 200, DurationMs: 50},
	}}
	assert.Equal(t, 300, pattern.EndOffsetMs())
}

func TestAxisMapApply(t *testing.T) {
	type testCase struct {
		name     string
		axis     AxisMap
		input    float64
		expected float64
	}

	testCases := []testCase{
		{"identity", AxisMap{Output: "left_x"}, 0.5, 0.5},
		{"identity negative", AxisMap{Output: "left_x"}, -1, -1},
		{"deadzone inside", AxisMap{Output: "left_x", Deadzone: 0.2}, 0.1, 0},
		{"deadzone outside", AxisMap{Output: "left_x", Deadzone: 0.2}, 0.3, 0.3},
		{"saturation scales", AxisMap{Output: "left_x", Saturation: 0.5}, 0.25, 0.5},
		{"saturation clamps", AxisMap{Output: "left_x", Saturation: 0.5}, 0.8, 1},
		{"max output caps", AxisMap{Output: "left_x", MaxOutput: 0.5}, 1, 0.5},
		{"invert", AxisMap{Output: "left_x", Invert: true}, 0.5, -0.5},
		{"positive passes", AxisMap{Output: "left_x", Direction: DirectionPositive}, 0.5, 0.5},
		{"positive blocks", AxisMap{Output: "left_x", Direction: DirectionPositive}, -0.5, 0},
		{"negative remaps", AxisMap{Output: "left_x", Direction: DirectionNegative}, -0.5, 0.5},
		{"negative blocks", AxisMap{Output: "left_x", Direction: DirectionNegative}, 0.5, 0},
		{"squared", AxisMap{Output: "left_x", Curve: CurveSquared}, 0.5, 0.25},
		{"squared keeps sign", AxisMap{Output: "left_x", Curve: CurveSquared}, -0.5, -0.25},
		{"expo full deflection", AxisMap{Output: "left_x", Curve: CurveExpo}, 1, 1},
		{"combined", AxisMap{Output: "left_x", Deadzone: 0.1, Saturation: 0.8, MaxOutput: 0.5, Curve: CurveSquared}, 0.4, 0.125},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, tc.axis.Apply(tc.input), 1e-9)
		})
	}
}
