package mapdsl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func TestStatements(t *testing.T) {
	type testCase struct {
		input    string
		expected Statement
	}

	testCases := []testCase{
		{
			input: `axis(lean_x)`,
			expected: Statement{
				Mode:   "axis",
				Preset: "lean_x",
			},
		},
		{
			input: `onPress(reload, hold=200ms, turbo=100ms)`,
			expected: Statement{
				Mode:   "onPress",
				Preset: "reload",
				Options: []Option{
					{Name: "hold", Value: Value{Duration: ptr(Duration(200 * time.Millisecond))}},
					{Name: "turbo", Value: Value{Duration: ptr(Duration(100 * time.Millisecond))}},
				},
			},
		},
		{
			input: `whileHeld(sprint, name="sprint", disabled=true)`,
			expected: Statement{
				Mode:   "whileHeld",
				Preset: "sprint",
				Options: []Option{
					{Name: "name", Value: Value{String: ptr("sprint")}},
					{Name: "disabled", Value: Value{Boolean: ptr(Boolean(true))}},
				},
			},
		},
		{
			input: `onRelease(flashlight, disables="sprint walk")`,
			expected: Statement{
				Mode:   "onRelease",
				Preset: "flashlight",
				Options: []Option{
					{Name: "disables", Value: Value{String: ptr("sprint walk")}},
				},
			},
		},
		{
			input: `onPress(hit, weight=0.5)`,
			expected: Statement{
				Mode:   "onPress",
				Preset: "hit",
				Options: []Option{
					{Name: "weight", Value: Value{Number: ptr(0.5)}},
				},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			stmt, err := Parse(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, stmt)
		})
	}
}

func TestStatementErrors(t *testing.T) {
	inputs := []string{
		``,
		`onPress`,
		`onPress()`,
		`onPress(reload`,
		`onPress(reload, hold)`,
		`onPress(reload, hold=)`,
		`(reload)`,
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			require.Error(t, err)
		})
	}
}
