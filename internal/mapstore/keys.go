package mapstore

// Key and mouse button codes follow the Linux input-event code space, which
// is also what the evdev input backend reports. Names are stored in
// normalized form (lower case, no separators).

var keyCodes = map[string]uint16{
	"esc": 1, "1": 2, "2": 3, "3": 4, "4": 5, "5": 6, "6": 7, "7": 8,
	"8": 9, "9": 10, "0": 11, "minus": 12, "equal": 13, "backspace": 14,
	"tab": 15,
	"q":   16, "w": 17, "e": 18, "r": 19, "t": 20, "y": 21, "u": 22,
	"i": 23, "o": 24, "p": 25,
	"enter":    28,
	"leftctrl": 29,
	"a":        30, "s": 31, "d": 32, "f": 33, "g": 34, "h": 35, "j": 36,
	"k": 37, "l": 38,
	"leftshift": 42,
	"z":         44, "x": 45, "c": 46, "v": 47, "b": 48, "n": 49, "m": 50,
	"rightshift": 54,
	"leftalt":    56,
	"space":      57,
	"capslock":   58,
	"f1":         59, "f2": 60, "f3": 61, "f4": 62, "f5": 63, "f6": 64,
	"f7": 65, "f8": 66, "f9": 67, "f10": 68, "f11": 87, "f12": 88,
	"rightctrl": 97,
	"rightalt":  100,
	"home":      102, "up": 103, "pageup": 104, "left": 105, "right": 106,
	"end": 107, "down": 108, "pagedown": 109, "insert": 110, "delete": 111,
}

var mouseButtonCodes = map[string]uint16{
	"left":   0x110,
	"right":  0x111,
	"middle": 0x112,
	"side":   0x113,
	"extra":  0x114,
}

var (
	keyNames         = invert(keyCodes)
	mouseButtonNames = invert(mouseButtonCodes)
)

func invert(m map[string]uint16) map[uint16]string {
	out := make(map[uint16]string, len(m))
	for name, code := range m {
		out[code] = name
	}
	return out
}
