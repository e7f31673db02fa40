package emulator

import (
	"bytes"
	"context"
	"image/jpeg"
	"sync"
	"testing"
	"time"

	"streamplays.tv/internal/broadcast"
)

type capturePub struct {
	mu   sync.Mutex
	msgs []broadcast.Message
}

func (c *capturePub) Publish(m broadcast.Message) {
	c.mu.Lock()
	c.msgs = append(c.msgs, m)
	c.mu.Unlock()
}

func (c *capturePub) byKind(k broadcast.Kind) []broadcast.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []broadcast.Message
	for _, m := range c.msgs {
		if m.Kind == k {
			out = append(out, m)
		}
	}
	return out
}

func TestToRGBA_PixelOrder(t *testing.T) {
	px := make([]uint32, ScreenWidth*ScreenHeight)
	px[0] = 0x00FF0000
	px[5*ScreenWidth+10] = 0x000000FF
	img := ToRGBA(px, ScreenWidth, ScreenHeight)
	if r, g, b, _ := img.At(0, 0).RGBA(); r>>8 != 0xFF || g != 0 || b != 0 {
		t.Fatalf("pixel 0 = %d,%d,%d", r>>8, g>>8, b>>8)
	}
	if r, g, b, _ := img.At(10, 5).RGBA(); r != 0 || g != 0 || b>>8 != 0xFF {
		t.Fatalf("pixel (10,5) = %d,%d,%d", r>>8, g>>8, b>>8)
	}
}

func TestEncodeJPEG_Decodes(t *testing.T) {
	px := make([]uint32, ScreenWidth*ScreenHeight)
	for i := range px {
		px[i] = 0x00808080
	}
	b, err := EncodeJPEG(px, ScreenWidth, ScreenHeight, 85)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(b) < 100 || b[0] != 0xFF || b[1] != 0xD8 {
		t.Fatalf("not a jpeg: len=%d head=% x", len(b), b[:2])
	}
	img, err := jpeg.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sz := img.Bounds().Size(); sz.X != ScreenWidth || sz.Y != ScreenHeight {
		t.Fatalf("size = %v", sz)
	}
}

func TestFrameEncoder_DropsWhileBusy(t *testing.T) {
	pub := &capturePub{}
	enc := NewFrameEncoder(80, pub, nil)
	px := make([]uint32, ScreenWidth*ScreenHeight)
	if !enc.Offer(px) {
		t.Fatalf("first offer rejected")
	}
	if enc.Offer(px) {
		t.Fatalf("second offer accepted while slot full")
	}
	if enc.Dropped() != 1 {
		t.Fatalf("dropped=%d", enc.Dropped())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go enc.Run(ctx)
	deadline := time.Now().Add(5 * time.Second)
	for enc.Encoded() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("frame never encoded")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := pub.byKind(broadcast.KindVideo); len(got) != 1 {
		t.Fatalf("video messages = %d", len(got))
	}
}
