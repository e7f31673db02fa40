package broadcast

// Control frame direction tags, sent by privileged viewers.
const (
	ControlPress   byte = 0x06
	ControlRelease byte = 0x07
)

// NumKeys is the number of addressable keypad bits.
const NumKeys = 10

type Control struct {
	Press bool
	Key   uint8 // keypad bit index
}

// ParseControl decodes a control frame. Frames shorter than two bytes,
// unknown direction tags and key indexes outside the keypad are rejected.
// Trailing bytes are ignored.
func ParseControl(b []byte) (Control, bool) {
	if len(b) < 2 || b[1] >= NumKeys {
		return Control{}, false
	}
	switch b[0] {
	case ControlPress:
		return Control{Press: true, Key: b[1]}, true
	case ControlRelease:
		return Control{Press: false, Key: b[1]}, true
	}
	return Control{}, false
}

func (c Control) Encode() []byte {
	tag := ControlRelease
	if c.Press {
		tag = ControlPress
	}
	return []byte{tag, c.Key}
}
