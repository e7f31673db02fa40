package emulator

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"

	"streamplays.tv/internal/telemetry/gen3"
)

// TestPatternName is the built-in core used when no console engine is linked.
const TestPatternName = "testpattern"

func init() {
	Register(TestPatternName, func(CoreConfig) (Core, error) { return NewTestPattern(), nil })
}

const (
	tpSaveBlock = 0x02025A00
	tpStepEvery = 8
	tpToneHz    = 440.0
)

// TestPattern is a deterministic stand-in core. It lays out an Emerald-style
// party and save block in memory, walks the player with the d-pad and emits a
// tone while any key is held.
type TestPattern struct {
	mem   gen3.SparseMemory
	keys  uint16
	px    []uint32
	state testPatternState
	audio float64 // fractional sample frames carried between frames
	phase float64
}

type testPatternState struct {
	Frame uint64
	X, Y  uint16
}

func NewTestPattern() *TestPattern {
	tp := &TestPattern{
		mem:   gen3.SparseMemory{},
		keys:  AllReleased,
		px:    make([]uint32, ScreenWidth*ScreenHeight),
		state: testPatternState{X: 10, Y: 10},
	}
	countAddr, arrayAddr, _ := gen3.Emerald.PartyAddrs()
	party := []gen3.PartyMember{
		{Species: 258, Nickname: "Mudkip", Level: 5, CurrentHP: 20, MaxHP: 20, Moves: [4]uint16{33, 45}},
		{Species: 263, Nickname: "Zigzagoon", Level: 3, CurrentHP: 12, MaxHP: 14, Moves: [4]uint16{33}},
	}
	tp.mem.Write32(countAddr, uint32(len(party)))
	for i, m := range party {
		gen3.WriteEntry(tp.mem, arrayAddr+uint32(i)*gen3.EntrySize, uint32(0x3C1A0000+i*13), 0x0000D00D, m)
	}
	tp.writeLocation()
	return tp
}

func (tp *TestPattern) GameCode() string        { return "BPEE" }
func (tp *TestPattern) SetKeys(keyinput uint16) { tp.keys = keyinput }
func (tp *TestPattern) Read8(addr uint32) uint8 { return tp.mem.Read8(addr) }
func (tp *TestPattern) FrameBuffer() []uint32   { return tp.px }
func (tp *TestPattern) pressed(bit uint8) bool  { return tp.keys&(1<<bit) == 0 }
func (tp *TestPattern) anyPressed() bool        { return tp.keys&AllReleased != AllReleased }

func (tp *TestPattern) RunFrame() {
	tp.state.Frame++
	if tp.state.Frame%tpStepEvery == 0 {
		switch {
		case tp.pressed(6):
			tp.state.Y--
		case tp.pressed(7):
			tp.state.Y++
		case tp.pressed(5):
			tp.state.X--
		case tp.pressed(4):
			tp.state.X++
		}
		tp.writeLocation()
	}
	tp.render()
}

func (tp *TestPattern) writeLocation() {
	gen3.WriteLocation(tp.mem, tpSaveBlock, gen3.Location{MapBank: 0, MapNum: 9, X: tp.state.X, Y: tp.state.Y})
}

func (tp *TestPattern) render() {
	shift := uint32(tp.state.Frame)
	for y := 0; y < ScreenHeight; y++ {
		for x := 0; x < ScreenWidth; x++ {
			r := uint32(x) + shift
			g := uint32(y) + shift/2
			tp.px[y*ScreenWidth+x] = (r&0xFF)<<16 | (g&0xFF)<<8 | 0x40
		}
	}
	cx := int(tp.state.X) % ScreenWidth
	cy := int(tp.state.Y) % ScreenHeight
	for dy := 0; dy < 4 && cy+dy < ScreenHeight; dy++ {
		for dx := 0; dx < 4 && cx+dx < ScreenWidth; dx++ {
			tp.px[(cy+dy)*ScreenWidth+cx+dx] = 0x00FFFFFF
		}
	}
}

func (tp *TestPattern) DrainAudio(dst []int16) []int16 {
	tp.audio += float64(AudioSampleRate) / 60
	n := int(tp.audio)
	tp.audio -= float64(n)
	tone := tp.anyPressed()
	for i := 0; i < n; i++ {
		var v int16
		if tone {
			v = int16(8000 * math.Sin(tp.phase))
		}
		tp.phase += 2 * math.Pi * tpToneHz / AudioSampleRate
		if tp.phase > 2*math.Pi {
			tp.phase -= 2 * math.Pi
		}
		dst = append(dst, v, v)
	}
	return dst
}

func (tp *TestPattern) SaveState() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(tp.state); err != nil {
		return nil, fmt.Errorf("testpattern: encode state: %w", err)
	}
	return buf.Bytes(), nil
}

func (tp *TestPattern) RestoreState(b []byte) error {
	var st testPatternState
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&st); err != nil {
		return fmt.Errorf("testpattern: decode state: %w", err)
	}
	tp.state = st
	tp.writeLocation()
	return nil
}
