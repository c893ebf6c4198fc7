package mapstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInput(t *testing.T) {
	type testCase struct {
		input    string
		expected LogicalInput
	}

	testCases := []testCase{
		{"key.R", LogicalInput{Kind: KindKey, Code: 19}},
		{"key.r", LogicalInput{Kind: KindKey, Code: 19}},
		{"key.LeftShift", LogicalInput{Kind: KindKey, Code: 42}},
		{"key.left_shift", LogicalInput{Kind: KindKey, Code: 42}},
		{"key.leftshift", LogicalInput{Kind: KindKey, Code: 42}},
		{"key.F5", LogicalInput{Kind: KindKey, Code: 63}},
		{"mouse.left", LogicalInput{Kind: KindMouseButton, Code: 0x110}},
		{"mouse.Extra", LogicalInput{Kind: KindMouseButton, Code: 0x114}},
		{"joy0.btn3", LogicalInput{Kind: KindJoyButton, Code: 3}},
		{"joy1.btn0", LogicalInput{Kind: KindJoyButton, Code: 0, Device: 1}},
		{"joy0.axis2", LogicalInput{Kind: KindJoyAxis, Code: 2}},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			input, err := ParseInput(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, input)
		})
	}
}

func TestParseInputErrors(t *testing.T) {
	inputs := []string{
		"",
		"key",
		"key.nosuchkey",
		"mouse.wheel",
		"joy.btn0",
		"joy-1.btn0",
		"joy0.trigger",
		"joy0.btnX",
		"pedal.left",
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := ParseInput(input)
			require.Error(t, err)
		})
	}
}

func TestInputStringRoundTrip(t *testing.T) {
	inputs := []string{
		"key.r",
		"key.leftshift",
		"mouse.left",
		"joy0.btn3",
		"joy1.axis2",
	}
	for _, s := range inputs {
		t.Run(s, func(t *testing.T) {
			input, err := ParseInput(s)
			require.NoError(t, err)
			assert.Equal(t, s, input.String())
		})
	}
}
