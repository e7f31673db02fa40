package emulator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"streamplays.tv/internal/arbitration"
	"streamplays.tv/internal/broadcast"
	"streamplays.tv/internal/input"
	"streamplays.tv/internal/telemetry/gen3"
)

type fakeCore struct {
	code     string
	mem      gen3.SparseMemory
	keys     []uint16
	frames   int
	px       []uint32
	state    []byte
	restored []byte
	samples  int
}

func newFakeCore(code string) *fakeCore {
	return &fakeCore{code: code, mem: gen3.SparseMemory{}, px: make([]uint32, ScreenWidth*ScreenHeight)}
}

func (c *fakeCore) GameCode() string           { return c.code }
func (c *fakeCore) SetKeys(k uint16)           { c.keys = append(c.keys, k) }
func (c *fakeCore) RunFrame()                  { c.frames++ }
func (c *fakeCore) Read8(addr uint32) uint8    { return c.mem.Read8(addr) }
func (c *fakeCore) FrameBuffer() []uint32      { return c.px }
func (c *fakeCore) SaveState() ([]byte, error) { return c.state, nil }
func (c *fakeCore) RestoreState(b []byte) error {
	c.restored = b
	return nil
}
func (c *fakeCore) DrainAudio(dst []int16) []int16 {
	for i := 0; i < c.samples; i++ {
		dst = append(dst, int16(i))
	}
	return dst
}

type fakeInputs struct{ q []arbitration.Entry }

func (f *fakeInputs) PopNextInput() (arbitration.Entry, bool) {
	if len(f.q) == 0 {
		return arbitration.Entry{}, false
	}
	e := f.q[0]
	f.q = f.q[1:]
	return e, true
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func TestDriver_AppliesInputAndOverlay(t *testing.T) {
	core := newFakeCore("XXXX")
	in := &fakeInputs{q: []arbitration.Entry{{Button: input.Right, User: "alice"}}}
	var keys Keypad
	keys.Press(KeyBit(input.B))
	events := make(chan InputEvent, 4)
	d := NewDriver(core, in, &keys, &capturePub{}, nil, DriverConfig{InputEvents: events}, quietLogger())

	d.Tick()
	d.Tick()
	if len(core.keys) != 2 {
		t.Fatalf("SetKeys calls = %d", len(core.keys))
	}
	want0 := AllReleased &^ (1<<KeyBit(input.B) | 1<<KeyBit(input.Right))
	if core.keys[0] != want0 {
		t.Fatalf("frame 1 keys = %#x want %#x", core.keys[0], want0)
	}
	if core.keys[1] != AllReleased&^(1<<KeyBit(input.B)) {
		t.Fatalf("frame 2 keys = %#x", core.keys[1])
	}
	select {
	case ev := <-events:
		if ev.User != "alice" || ev.Button != "right" || ev.Frame != 1 {
			t.Fatalf("event = %+v", ev)
		}
	default:
		t.Fatalf("no input event")
	}
	if d.Frames() != 2 {
		t.Fatalf("frames = %d", d.Frames())
	}
}

func TestDriver_TelemetryCadence(t *testing.T) {
	core := newFakeCore("BPEE")
	countAddr, arrayAddr, _ := gen3.Emerald.PartyAddrs()
	core.mem.Write32(countAddr, 1)
	gen3.WriteEntry(core.mem, arrayAddr, 99, 1, gen3.PartyMember{Species: 280, Nickname: "Ralts", Level: 4})
	gen3.WriteLocation(core.mem, 0x02025A00, gen3.Location{MapBank: 0, MapNum: 10, X: 4, Y: 5})

	pub := &capturePub{}
	enc := NewFrameEncoder(50, pub, quietLogger())
	d := NewDriver(core, &fakeInputs{}, nil, pub, enc, DriverConfig{TargetFPS: 30}, quietLogger())
	if g, ok := d.Game(); !ok || g != gen3.Emerald {
		t.Fatalf("game = %v,%v", g, ok)
	}
	for i := 0; i < 120; i++ {
		d.Tick()
	}
	if n := len(pub.byKind(broadcast.KindParty)); n != 2 {
		t.Fatalf("party messages = %d want 2", n)
	}
	locs := pub.byKind(broadcast.KindLocation)
	if len(locs) != 12 {
		t.Fatalf("location messages = %d want 12", len(locs))
	}
	var loc gen3.Location
	if err := json.Unmarshal(locs[0].Payload, &loc); err != nil || loc.X != 4 || loc.MapNum != 10 {
		t.Fatalf("location payload %s: %v", locs[0].Payload, err)
	}
	var party []gen3.PartyMember
	if err := json.Unmarshal(pub.byKind(broadcast.KindParty)[0].Payload, &party); err != nil || len(party) != 1 || party[0].Nickname != "Ralts" {
		t.Fatalf("party payload: %+v %v", party, err)
	}
	// 30 fps target on a 60 Hz core: every second frame is offered, and
	// nothing drains the encoder, so all but the first are dropped.
	if enc.Dropped() != 59 {
		t.Fatalf("encoder dropped = %d want 59", enc.Dropped())
	}
}

func TestDriver_UnknownGameSkipsTelemetry(t *testing.T) {
	pub := &capturePub{}
	d := NewDriver(newFakeCore("ZZZZ"), &fakeInputs{}, nil, pub, nil, DriverConfig{}, quietLogger())
	for i := 0; i < 60; i++ {
		d.Tick()
	}
	if len(pub.byKind(broadcast.KindParty))+len(pub.byKind(broadcast.KindLocation)) != 0 {
		t.Fatalf("telemetry published for unknown game")
	}
}

func TestDriver_AudioChunks(t *testing.T) {
	core := newFakeCore("ZZZZ")
	core.samples = 1092 // 546 stereo frames per video frame
	pub := &capturePub{}
	d := NewDriver(core, &fakeInputs{}, nil, pub, nil, DriverConfig{}, quietLogger())
	for i := 0; i < 10; i++ {
		d.Tick()
	}
	// 10 * 546 = 5460 stereo frames -> 4 full chunks of 1310.
	if n := len(pub.byKind(broadcast.KindAudio)); n != 4 {
		t.Fatalf("audio chunks = %d want 4", n)
	}
}

func TestDriver_Commands(t *testing.T) {
	core := newFakeCore("ZZZZ")
	core.state = []byte("snapshot")
	saves := make(chan SaveBlob, 1)
	d := NewDriver(core, &fakeInputs{}, nil, &capturePub{}, nil, DriverConfig{
		Saves: saves,
		ReadState: func(path string) ([]byte, error) {
			if path == "missing" {
				return nil, errors.New("no such file")
			}
			return []byte("from:" + path), nil
		},
	}, quietLogger())

	d.Send(Command{Kind: CmdPause})
	d.Tick()
	if core.frames != 0 || !d.Paused() {
		t.Fatalf("paused driver advanced: frames=%d paused=%v", core.frames, d.Paused())
	}
	d.Send(Command{Kind: CmdResume})
	d.Send(Command{Kind: CmdSaveState})
	d.Send(Command{Kind: CmdSaveState}) // sink full: dropped
	d.Send(Command{Kind: CmdLoadState, Path: "missing"})
	d.Send(Command{Kind: CmdLoadState, Path: "a.state"})
	d.Tick()
	if core.frames != 1 {
		t.Fatalf("frames = %d after resume", core.frames)
	}
	blob := <-saves
	if string(blob.Data) != "snapshot" {
		t.Fatalf("save blob = %q", blob.Data)
	}
	if d.SaveDrops() != 1 {
		t.Fatalf("save drops = %d", d.SaveDrops())
	}
	if string(core.restored) != "from:a.state" {
		t.Fatalf("restored = %q", core.restored)
	}

	d.Send(Command{Kind: CmdShutdown})
	if d.Tick() {
		t.Fatalf("tick continued after shutdown")
	}
}

func TestDriver_SendFullQueue(t *testing.T) {
	d := NewDriver(newFakeCore("ZZZZ"), &fakeInputs{}, nil, &capturePub{}, nil, DriverConfig{}, quietLogger())
	for i := 0; i < commandBuffer; i++ {
		if !d.Send(Command{Kind: CmdPause}) {
			t.Fatalf("send %d rejected", i)
		}
	}
	if d.Send(Command{Kind: CmdPause}) {
		t.Fatalf("send accepted on full queue")
	}
}

func TestDriver_RunStopsOnContext(t *testing.T) {
	core := newFakeCore("ZZZZ")
	d := NewDriver(core, &fakeInputs{}, nil, &capturePub{}, nil, DriverConfig{FrameDuration: time.Millisecond}, quietLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return")
	}
	if d.Frames() == 0 {
		t.Fatalf("no frames ran")
	}
}
