package gen3

import "testing"

func TestDecodeString_StopsAtTerminator(t *testing.T) {
	got := DecodeString([]byte{0xDC, 0xDD, 0xFF, 0xBB, 0xBC})
	if got != "hi" {
		t.Fatalf("got %q want %q", got, "hi")
	}
}

func TestDecodeString_SkipsUnmapped(t *testing.T) {
	// 0x09 and 0x51 have no mapping.
	got := DecodeString([]byte{0xC2, 0x09, 0xDD, 0x51, 0xAB})
	if got != "Hi!" {
		t.Fatalf("got %q", got)
	}
}

func TestDecodeString_EndOfWindow(t *testing.T) {
	b := []byte{0xCA, 0xC3, 0xC5, 0xBB, 0xBD, 0xC2, 0xCF, 0xA1, 0xA2, 0xA3}
	if got := DecodeString(b); got != "PIKACHU012" {
		t.Fatalf("got %q", got)
	}
	if got := DecodeString(nil); got != "" {
		t.Fatalf("got %q for empty input", got)
	}
}

func TestDecodeChar(t *testing.T) {
	cases := map[byte]rune{
		0xBB: 'A', 0xD4: 'Z', 0xD5: 'a', 0xEE: 'z', 0xA1: '0', 0xAA: '9',
		0xB5: '♂', 0xB6: '♀', 0xF0: ':', 0x00: 'À', 0x50: ')',
	}
	for b, want := range cases {
		if got, ok := DecodeChar(b); !ok || got != want {
			t.Fatalf("DecodeChar(%#x) = %q,%v want %q", b, got, ok, want)
		}
	}
	if _, ok := DecodeChar(Terminator); ok {
		t.Fatalf("terminator decoded to a character")
	}
}
