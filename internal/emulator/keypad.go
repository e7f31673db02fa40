package emulator

import (
	"sync/atomic"

	"streamplays.tv/internal/input"
)

// AllReleased is KEYINPUT with no key held; a cleared bit means pressed.
const AllReleased uint16 = 0x03FF

// Hardware KEYINPUT bit positions.
var keyBits = [input.NumButtons]uint8{
	input.A:      0,
	input.B:      1,
	input.Select: 2,
	input.Start:  3,
	input.Right:  4,
	input.Left:   5,
	input.Up:     6,
	input.Down:   7,
	input.R:      8,
	input.L:      9,
}

func KeyBit(b input.Button) uint8 { return keyBits[b] }

// Keypad is the overlay of keys held by privileged viewers. Writers are
// network goroutines; the tick driver reads it once per frame.
type Keypad struct {
	held atomic.Uint32
}

func (k *Keypad) Press(bit uint8)   { k.update(func(v uint32) uint32 { return v | 1<<bit }) }
func (k *Keypad) Release(bit uint8) { k.update(func(v uint32) uint32 { return v &^ (1 << bit) }) }

// ReleaseMask releases every key in mask.
func (k *Keypad) ReleaseMask(mask uint16) {
	k.update(func(v uint32) uint32 { return v &^ uint32(mask) })
}

func (k *Keypad) update(f func(uint32) uint32) {
	for {
		old := k.held.Load()
		if k.held.CompareAndSwap(old, f(old)&uint32(AllReleased)) {
			return
		}
	}
}

// Held returns the held-key bitmask (set bit = held).
func (k *Keypad) Held() uint16 { return uint16(k.held.Load()) }

// KeyInput returns the overlay in KEYINPUT form.
func (k *Keypad) KeyInput() uint16 { return AllReleased &^ k.Held() }
