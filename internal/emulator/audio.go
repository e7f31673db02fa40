package emulator

import "encoding/binary"

// ChunkFrames is the number of stereo sample frames per audio message,
// about 20ms at AudioSampleRate.
const ChunkFrames = 1310

// AudioChunker regroups the core's irregular sample output into fixed-size
// little-endian chunks.
type AudioChunker struct {
	pending []int16
	emit    func([]byte)
}

func NewAudioChunker(emit func([]byte)) *AudioChunker {
	return &AudioChunker{
		pending: make([]int16, 0, ChunkFrames*2*4),
		emit:    emit,
	}
}

// Push buffers interleaved stereo samples and emits every complete chunk.
func (c *AudioChunker) Push(samples []int16) {
	c.pending = append(c.pending, samples...)
	const n = ChunkFrames * 2
	off := 0
	for len(c.pending)-off >= n {
		c.emit(EncodeSamples(c.pending[off : off+n]))
		off += n
	}
	if off > 0 {
		c.pending = append(c.pending[:0], c.pending[off:]...)
	}
}

// Pending reports buffered samples not yet emitted.
func (c *AudioChunker) Pending() int { return len(c.pending) }

func EncodeSamples(s []int16) []byte {
	out := make([]byte, len(s)*2)
	for i, v := range s {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// DecodeSamples is the inverse of EncodeSamples; a trailing odd byte is
// ignored.
func DecodeSamples(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return out
}
