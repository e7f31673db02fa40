package emulator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"streamplays.tv/internal/broadcast"
)

// WAVRecorder writes broadcast audio chunks to a 16-bit stereo WAV file.
type WAVRecorder struct {
	f   *os.File
	enc *wav.Encoder
	buf *audio.IntBuffer

	samples uint64
}

func NewWAVRecorder(path string) (*WAVRecorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("wav: %w", err)
	}
	return &WAVRecorder{
		f:   f,
		enc: wav.NewEncoder(f, AudioSampleRate, 16, 2, 1),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 2, SampleRate: AudioSampleRate},
			SourceBitDepth: 16,
		},
	}, nil
}

func (r *WAVRecorder) WriteSamples(s []int16) error {
	r.buf.Data = r.buf.Data[:0]
	for _, v := range s {
		r.buf.Data = append(r.buf.Data, int(v))
	}
	if err := r.enc.Write(r.buf); err != nil {
		return fmt.Errorf("wav: %w", err)
	}
	r.samples += uint64(len(s))
	return nil
}

// Samples reports how many individual samples (both channels) were written.
func (r *WAVRecorder) Samples() uint64 { return r.samples }

// Close finalises the header and closes the file.
func (r *WAVRecorder) Close() error {
	err := r.enc.Close()
	if cerr := r.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// Record consumes audio messages from sub until ctx ends or the hub closes.
// Lag is logged and recording continues with a gap.
func (r *WAVRecorder) Record(ctx context.Context, sub *broadcast.Subscriber, logger *log.Logger) error {
	defer sub.Close()
	for {
		m, err := sub.Recv(ctx)
		var lag *broadcast.LagError
		switch {
		case errors.As(err, &lag):
			logger.Printf("wav recorder lagged: %d messages dropped", lag.Missed)
			continue
		case errors.Is(err, broadcast.ErrClosed), errors.Is(err, context.Canceled):
			return nil
		case err != nil:
			return err
		}
		if m.Kind != broadcast.KindAudio {
			continue
		}
		if err := r.WriteSamples(DecodeSamples(m.Payload)); err != nil {
			return err
		}
	}
}
