package mapstore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"
)

// InputKind classifies the physical control a LogicalInput refers to.
type InputKind string

const (
	KindKey         InputKind = "key"
	KindMouseButton InputKind = "mouseButton"
	KindJoyButton   InputKind = "joyButton"
	KindJoyAxis     InputKind = "joyAxis"
)

// LogicalInput identifies a physical control independently of the raw
// driver event format. It is a comparable value type and is used as a map
// key throughout the engine.
type LogicalInput struct {
	Kind   InputKind `json:"kind"`
	Code   uint16    `json:"code"`
	Device int       `json:"device,omitempty"`
}

// ParseInput parses the textual form used in mapping files:
//
//	key.R  key.LeftShift  mouse.left  joy0.btn3  joy0.axis2
//
// Key and mouse names are case-insensitive ("LeftShift", "left_shift" and
// "leftshift" are equivalent).
func ParseInput(s string) (LogicalInput, error) {
	prefix, name, ok := strings.Cut(s, ".")
	if !ok {
		return LogicalInput{}, fmt.Errorf("invalid input %q: expected <device>.<control>", s)
	}
	switch {
	case prefix == "key":
		code, ok := keyCodes[normalizeName(name)]
		if !ok {
			return LogicalInput{}, fmt.Errorf("invalid input %q: unknown key name %q", s, name)
		}
		return LogicalInput{Kind: KindKey, Code: code}, nil
	case prefix == "mouse":
		code, ok := mouseButtonCodes[normalizeName(name)]
		if !ok {
			return LogicalInput{}, fmt.Errorf("invalid input %q: unknown mouse button %q", s, name)
		}
		return LogicalInput{Kind: KindMouseButton, Code: code}, nil
	case strings.HasPrefix(prefix, "joy"):
		dev, err := strconv.Atoi(strings.TrimPrefix(prefix, "joy"))
		if err != nil || dev < 0 {
			return LogicalInput{}, fmt.Errorf("invalid input %q: bad joystick index", s)
		}
		switch {
		case strings.HasPrefix(name, "btn"):
			code, err := strconv.ParseUint(strings.TrimPrefix(name, "btn"), 10, 16)
			if err != nil {
				return LogicalInput{}, fmt.Errorf("invalid input %q: bad button id", s)
			}
			return LogicalInput{Kind: KindJoyButton, Code: uint16(code), Device: dev}, nil
		case strings.HasPrefix(name, "axis"):
			code, err := strconv.ParseUint(strings.TrimPrefix(name, "axis"), 10, 16)
			if err != nil {
				return LogicalInput{}, fmt.Errorf("invalid input %q: bad axis id", s)
			}
			return LogicalInput{Kind: KindJoyAxis, Code: uint16(code), Device: dev}, nil
		default:
			return LogicalInput{}, fmt.Errorf("invalid input %q: expected btn<N> or axis<N>", s)
		}
	default:
		return LogicalInput{}, fmt.Errorf("invalid input %q: unknown device %q", s, prefix)
	}
}

func normalizeName(name string) string {
	return strings.ReplaceAll(strcase.ToSnake(name), "_", "")
}

func (l LogicalInput) String() string {
	switch l.Kind {
	case KindKey:
		if name, ok := keyNames[l.Code]; ok {
			return "key." + name
		}
		return fmt.Sprintf("key.%d", l.Code)
	case KindMouseButton:
		if name, ok := mouseButtonNames[l.Code]; ok {
			return "mouse." + name
		}
		return fmt.Sprintf("mouse.%d", l.Code)
	case KindJoyButton:
		return fmt.Sprintf("joy%d.btn%d", l.Device, l.Code)
	case KindJoyAxis:
		return fmt.Sprintf("joy%d.axis%d", l.Device, l.Code)
	default:
		return fmt.Sprintf("%s.%d@%d", l.Kind, l.Code, l.Device)
	}
}

// IsAxis reports whether the input produces axis-change events rather than
// press/release edges.
func (l LogicalInput) IsAxis() bool {
	return l.Kind == KindJoyAxis
}
