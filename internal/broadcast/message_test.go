package broadcast

import (
	"bytes"
	"testing"
)

func TestMessage_Encode(t *testing.T) {
	got := Message{Kind: KindVideo, Payload: []byte{0xAA, 0xBB}}.Encode()
	if !bytes.Equal(got, []byte{0x01, 0xAA, 0xBB}) {
		t.Fatalf("video frame = % x", got)
	}
	got = Message{Kind: KindAudio}.Encode()
	if !bytes.Equal(got, []byte{0x02}) {
		t.Fatalf("empty audio frame = % x", got)
	}
	tags := map[Kind]byte{KindVideo: 1, KindAudio: 2, KindState: 3, KindParty: 4, KindLocation: 5}
	for k, tag := range tags {
		if f := (Message{Kind: k, Payload: []byte("x")}).Encode(); f[0] != tag {
			t.Fatalf("%s tag = %#x want %#x", k, f[0], tag)
		}
	}
}

func TestMessage_EncodeCopiesPayload(t *testing.T) {
	p := []byte{1, 2, 3}
	f := Message{Kind: KindState, Payload: p}.Encode()
	p[0] = 9
	if f[1] != 1 {
		t.Fatalf("frame aliases payload")
	}
	m, ok := Decode(f)
	if !ok || m.Kind != KindState || !bytes.Equal(m.Payload, []byte{1, 2, 3}) {
		t.Fatalf("Decode = %+v ok=%v", m, ok)
	}
	if _, ok := Decode(nil); ok {
		t.Fatalf("empty frame decoded")
	}
}

func TestParseControl(t *testing.T) {
	c, ok := ParseControl([]byte{0x06, 3})
	if !ok || !c.Press || c.Key != 3 {
		t.Fatalf("press = %+v ok=%v", c, ok)
	}
	c, ok = ParseControl([]byte{0x07, 9, 0xFF})
	if !ok || c.Press || c.Key != 9 {
		t.Fatalf("release = %+v ok=%v", c, ok)
	}
	for _, b := range [][]byte{nil, {}, {0x06}, {0x06, 10}, {0x07, 0xFF}, {0x08, 1}, {0x01, 0}} {
		if c, ok := ParseControl(b); ok {
			t.Fatalf("ParseControl(% x) = %+v, want rejection", b, c)
		}
	}
	if got := (Control{Press: true, Key: 4}).Encode(); !bytes.Equal(got, []byte{0x06, 4}) {
		t.Fatalf("Encode = % x", got)
	}
}
