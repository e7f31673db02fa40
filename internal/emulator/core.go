// Package emulator drives an external console core at a fixed frame rate and
// turns its output into broadcast messages.
package emulator

import (
	"fmt"
	"sort"
	"sync"
)

const (
	ScreenWidth  = 240
	ScreenHeight = 160

	// AudioSampleRate is the native output rate in Hz, stereo.
	AudioSampleRate = 32768
)

// Core is the console engine. It is only ever called from the tick driver's
// goroutine.
type Core interface {
	// GameCode is the 4-character ROM header code.
	GameCode() string
	// SetKeys loads the hardware KEYINPUT register (active low).
	SetKeys(keyinput uint16)
	RunFrame()
	Read8(addr uint32) uint8
	// FrameBuffer returns ScreenWidth*ScreenHeight pixels as 0x00RRGGBB. The
	// slice may be reused by the next RunFrame.
	FrameBuffer() []uint32
	// DrainAudio appends interleaved stereo samples produced since the last
	// call to dst.
	DrainAudio(dst []int16) []int16
	SaveState() ([]byte, error)
	RestoreState(b []byte) error
}

type CoreConfig struct {
	BIOSPath string
	ROMPath  string
}

type Factory func(cfg CoreConfig) (Core, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{}
)

// Register makes a core available by name. It panics on duplicates, like
// database/sql driver registration.
func Register(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if f == nil {
		panic("emulator: Register factory is nil")
	}
	if _, dup := factories[name]; dup {
		panic("emulator: Register called twice for core " + name)
	}
	factories[name] = f
}

func Open(name string, cfg CoreConfig) (Core, error) {
	factoriesMu.RLock()
	f, ok := factories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("emulator: unknown core %q (registered: %v)", name, Cores())
	}
	c, err := f(cfg)
	if err != nil {
		return nil, fmt.Errorf("emulator: open %s: %w", name, err)
	}
	return c, nil
}

func Cores() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	out := make([]string, 0, len(factories))
	for n := range factories {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
