package emulator

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"log"
	"sync/atomic"

	"streamplays.tv/internal/broadcast"
)

// Publisher accepts outbound messages without blocking.
type Publisher interface {
	Publish(m broadcast.Message)
}

// FrameEncoder compresses frames to JPEG off the tick goroutine. It holds at
// most one pending frame; frames offered while it is busy are dropped.
type FrameEncoder struct {
	quality int
	pub     Publisher
	log     *log.Logger

	in chan []uint32

	encoded atomic.Uint64
	dropped atomic.Uint64
}

func NewFrameEncoder(quality int, pub Publisher, logger *log.Logger) *FrameEncoder {
	if quality < 1 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	if logger == nil {
		logger = log.Default()
	}
	return &FrameEncoder{
		quality: quality,
		pub:     pub,
		log:     logger,
		in:      make(chan []uint32, 1),
	}
}

// Offer hands px to the encoder. px must not be reused by the caller.
func (e *FrameEncoder) Offer(px []uint32) bool {
	select {
	case e.in <- px:
		return true
	default:
		e.dropped.Add(1)
		return false
	}
}

func (e *FrameEncoder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case px := <-e.in:
			b, err := EncodeJPEG(px, ScreenWidth, ScreenHeight, e.quality)
			if err != nil {
				e.log.Printf("jpeg encode: %v", err)
				continue
			}
			e.encoded.Add(1)
			e.pub.Publish(broadcast.Message{Kind: broadcast.KindVideo, Payload: b})
		}
	}
}

func (e *FrameEncoder) Encoded() uint64 { return e.encoded.Load() }
func (e *FrameEncoder) Dropped() uint64 { return e.dropped.Load() }

// ToRGBA converts 0x00RRGGBB pixels into an opaque image.
func ToRGBA(px []uint32, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	n := w * h
	if len(px) < n {
		n = len(px)
	}
	for i := 0; i < n; i++ {
		p := px[i]
		o := i * 4
		img.Pix[o] = uint8(p >> 16)
		img.Pix[o+1] = uint8(p >> 8)
		img.Pix[o+2] = uint8(p)
		img.Pix[o+3] = 0xFF
	}
	return img
}

func EncodeJPEG(px []uint32, w, h, quality int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(16 * 1024)
	if err := jpeg.Encode(&buf, ToRGBA(px, w, h), &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
