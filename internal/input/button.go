package input

import "fmt"

// Button is one of the ten physical handheld inputs.
type Button uint8

const (
	A Button = iota
	B
	Up
	Down
	Left
	Right
	Start
	Select
	L
	R
)

// NumButtons is the size of the Button enumeration.
const NumButtons = 10

var buttonNames = [NumButtons]string{
	A:      "a",
	B:      "b",
	Up:     "up",
	Down:   "down",
	Left:   "left",
	Right:  "right",
	Start:  "start",
	Select: "select",
	L:      "l",
	R:      "r",
}

// String returns the short wire/log identifier ("a", "up", "select", ...).
func (b Button) String() string {
	if int(b) < len(buttonNames) {
		return buttonNames[b]
	}
	return fmt.Sprintf("button(%d)", uint8(b))
}

// Valid reports whether b is a member of the enumeration.
func (b Button) Valid() bool { return b < NumButtons }

// ButtonByName resolves a lowercase identifier.
func ButtonByName(name string) (Button, bool) {
	for i, n := range buttonNames {
		if n == name {
			return Button(i), true
		}
	}
	return 0, false
}

// Buttons lists the enumeration in declaration order.
func Buttons() []Button {
	out := make([]Button, NumButtons)
	for i := range out {
		out[i] = Button(i)
	}
	return out
}

func (b Button) MarshalText() ([]byte, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("invalid button %d", uint8(b))
	}
	return []byte(b.String()), nil
}

func (b *Button) UnmarshalText(text []byte) error {
	v, ok := ButtonByName(string(text))
	if !ok {
		return fmt.Errorf("unknown button %q", text)
	}
	*b = v
	return nil
}
