package emulator

import (
	"sync"
	"testing"

	"streamplays.tv/internal/input"
)

func TestKeypad_PressRelease(t *testing.T) {
	var k Keypad
	if k.KeyInput() != AllReleased {
		t.Fatalf("zero keypad = %#x", k.KeyInput())
	}
	k.Press(KeyBit(input.A))
	k.Press(KeyBit(input.Up))
	if k.KeyInput() != AllReleased&^(1<<0|1<<6) {
		t.Fatalf("keyinput = %#x", k.KeyInput())
	}
	k.Release(KeyBit(input.A))
	if k.Held() != 1<<6 {
		t.Fatalf("held = %#x", k.Held())
	}
	k.Press(12) // outside the keypad
	if k.Held() != 1<<6 {
		t.Fatalf("out of range press changed state: %#x", k.Held())
	}
	k.ReleaseMask(1 << 6)
	if k.Held() != 0 {
		t.Fatalf("held after ReleaseMask = %#x", k.Held())
	}
}

func TestKeyBit_HardwareOrder(t *testing.T) {
	want := map[input.Button]uint8{
		input.A: 0, input.B: 1, input.Select: 2, input.Start: 3, input.Right: 4,
		input.Left: 5, input.Up: 6, input.Down: 7, input.R: 8, input.L: 9,
	}
	for b, bit := range want {
		if KeyBit(b) != bit {
			t.Fatalf("KeyBit(%s) = %d want %d", b, KeyBit(b), bit)
		}
	}
}

func TestKeypad_ConcurrentWriters(t *testing.T) {
	var k Keypad
	var wg sync.WaitGroup
	for bit := uint8(0); bit < 10; bit++ {
		wg.Add(1)
		go func(bit uint8) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				k.Press(bit)
				k.Release(bit)
			}
			k.Press(bit)
		}(bit)
	}
	wg.Wait()
	if k.Held() != AllReleased {
		t.Fatalf("held = %#x want all", k.Held())
	}
}
