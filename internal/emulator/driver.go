package emulator

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"sync/atomic"
	"time"

	"streamplays.tv/internal/arbitration"
	"streamplays.tv/internal/broadcast"
	"streamplays.tv/internal/telemetry/gen3"
)

// FrameDuration is one frame at the console's native 60 Hz.
const FrameDuration = time.Second / 60

const (
	DefaultPartyEvery    = 60
	DefaultLocationEvery = 10
	commandBuffer        = 8
)

type CommandKind int

const (
	CmdSaveState CommandKind = iota + 1
	CmdLoadState
	CmdPause
	CmdResume
	CmdShutdown
)

func (k CommandKind) String() string {
	switch k {
	case CmdSaveState:
		return "save"
	case CmdLoadState:
		return "load"
	case CmdPause:
		return "pause"
	case CmdResume:
		return "resume"
	case CmdShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

type Command struct {
	Kind CommandKind
	Path string // CmdLoadState
}

// SaveBlob is a serialized core state waiting to be persisted.
type SaveBlob struct {
	Data  []byte
	Frame uint64
	At    time.Time
}

// InputEvent is one arbitration input applied to a frame.
type InputEvent struct {
	Frame  uint64 `json:"frame"`
	TS     int64  `json:"ts"`
	User   string `json:"user"`
	Button string `json:"button"`
}

// Inputs yields at most one queued input per call without blocking.
type Inputs interface {
	PopNextInput() (arbitration.Entry, bool)
}

type DriverConfig struct {
	TargetFPS     int
	PartyEvery    uint64
	LocationEvery uint64
	FrameDuration time.Duration

	// Saves receives SaveState output. Sends never block; a full channel
	// drops the save.
	Saves chan<- SaveBlob
	// InputEvents, if set, receives applied inputs on a best-effort basis.
	InputEvents chan<- InputEvent
	// ReadState loads a save for CmdLoadState. Defaults to os.ReadFile.
	ReadState func(path string) ([]byte, error)
}

// Driver owns the core. Run is the only goroutine that touches it.
type Driver struct {
	core   Core
	inputs Inputs
	keys   *Keypad
	pub    Publisher
	enc    *FrameEncoder
	audio  *AudioChunker
	log    *log.Logger
	cfg    DriverConfig

	game    gen3.Game
	hasGame bool

	cmds      chan Command
	frameSkip uint64
	frame     uint64
	paused    bool
	audioBuf  []int16

	fpsX10    atomic.Uint32
	frames    atomic.Uint64
	isPaused  atomic.Bool
	saveDrops atomic.Uint64

	fpsWindowStart time.Time
	fpsWindowCount uint32
}

func NewDriver(core Core, inputs Inputs, keys *Keypad, pub Publisher, enc *FrameEncoder, cfg DriverConfig, logger *log.Logger) *Driver {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.TargetFPS <= 0 {
		cfg.TargetFPS = 60
	}
	if cfg.PartyEvery == 0 {
		cfg.PartyEvery = DefaultPartyEvery
	}
	if cfg.LocationEvery == 0 {
		cfg.LocationEvery = DefaultLocationEvery
	}
	if cfg.FrameDuration <= 0 {
		cfg.FrameDuration = FrameDuration
	}
	if cfg.ReadState == nil {
		cfg.ReadState = os.ReadFile
	}
	skip := 60 / cfg.TargetFPS
	if skip < 1 {
		skip = 1
	}
	d := &Driver{
		core:      core,
		inputs:    inputs,
		keys:      keys,
		pub:       pub,
		enc:       enc,
		log:       logger,
		cfg:       cfg,
		cmds:      make(chan Command, commandBuffer),
		frameSkip: uint64(skip),
	}
	d.audio = NewAudioChunker(func(b []byte) {
		pub.Publish(broadcast.Message{Kind: broadcast.KindAudio, Payload: b})
	})
	d.game, d.hasGame = gen3.DetectGame(core.GameCode())
	if d.hasGame {
		d.log.Printf("detected game %s (code %s)", d.game, core.GameCode())
	} else {
		d.log.Printf("game code %q not recognized; party and location telemetry disabled", core.GameCode())
	}
	return d
}

// Send queues a command without blocking; false means the queue is full.
func (d *Driver) Send(c Command) bool {
	select {
	case d.cmds <- c:
		return true
	default:
		return false
	}
}

// Run ticks at the configured frame duration until ctx ends or a shutdown
// command arrives.
func (d *Driver) Run(ctx context.Context) {
	t := time.NewTicker(d.cfg.FrameDuration)
	defer t.Stop()
	d.fpsWindowStart = time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if !d.Tick() {
				return
			}
		}
	}
}

// Tick applies pending commands and, unless paused, advances one frame. It
// returns false after a shutdown command.
func (d *Driver) Tick() bool {
	for drained := false; !drained; {
		select {
		case c := <-d.cmds:
			if !d.apply(c) {
				return false
			}
		default:
			drained = true
		}
	}
	if d.paused {
		return true
	}
	d.step()
	return true
}

func (d *Driver) apply(c Command) bool {
	switch c.Kind {
	case CmdPause:
		d.paused = true
		d.isPaused.Store(true)
	case CmdResume:
		d.paused = false
		d.isPaused.Store(false)
	case CmdShutdown:
		return false
	case CmdSaveState:
		d.save()
	case CmdLoadState:
		b, err := d.cfg.ReadState(c.Path)
		if err != nil {
			d.log.Printf("load state read failed: %v", err)
			return true
		}
		if err := d.core.RestoreState(b); err != nil {
			d.log.Printf("restore state failed: %v", err)
			return true
		}
		d.log.Printf("restored state from %s", c.Path)
	}
	return true
}

func (d *Driver) save() {
	b, err := d.core.SaveState()
	if err != nil {
		d.log.Printf("save state failed: %v", err)
		return
	}
	if d.cfg.Saves == nil {
		return
	}
	select {
	case d.cfg.Saves <- SaveBlob{Data: b, Frame: d.frame, At: time.Now()}:
	default:
		d.saveDrops.Add(1)
		d.log.Printf("save state dropped: writer busy")
	}
}

func (d *Driver) step() {
	keys := AllReleased
	if d.keys != nil {
		keys = d.keys.KeyInput()
	}
	if ent, ok := d.inputs.PopNextInput(); ok {
		keys &^= 1 << KeyBit(ent.Button)
		if d.cfg.InputEvents != nil {
			select {
			case d.cfg.InputEvents <- InputEvent{Frame: d.frame + 1, TS: time.Now().UnixMilli(), User: ent.User, Button: ent.Button.String()}:
			default:
			}
		}
	}
	d.core.SetKeys(keys)
	d.core.RunFrame()
	d.frame++
	d.frames.Store(d.frame)
	d.measureFPS()

	if d.frame%d.frameSkip == 0 && d.enc != nil {
		src := d.core.FrameBuffer()
		px := make([]uint32, len(src))
		copy(px, src)
		d.enc.Offer(px)
	}
	if d.hasGame && d.frame%d.cfg.PartyEvery == 0 {
		d.publishJSON(broadcast.KindParty, gen3.ReadParty(d.core, d.game))
	}
	if d.hasGame && d.frame%d.cfg.LocationEvery == 0 {
		if loc, ok := gen3.ReadLocation(d.core); ok {
			d.publishJSON(broadcast.KindLocation, loc)
		}
	}

	d.audioBuf = d.core.DrainAudio(d.audioBuf[:0])
	d.audio.Push(d.audioBuf)
}

func (d *Driver) publishJSON(kind broadcast.Kind, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		d.log.Printf("%s telemetry: %v", kind, err)
		return
	}
	d.pub.Publish(broadcast.Message{Kind: kind, Payload: b})
}

func (d *Driver) measureFPS() {
	d.fpsWindowCount++
	if d.fpsWindowStart.IsZero() {
		d.fpsWindowStart = time.Now()
		return
	}
	elapsed := time.Since(d.fpsWindowStart)
	if elapsed < time.Second {
		return
	}
	fps := float64(d.fpsWindowCount) / elapsed.Seconds()
	d.fpsX10.Store(uint32(fps*10 + 0.5))
	d.fpsWindowCount = 0
	d.fpsWindowStart = time.Now()
}

// FPS is the measured frame rate over the last full second.
func (d *Driver) FPS() float64 { return float64(d.fpsX10.Load()) / 10 }

func (d *Driver) Frames() uint64 { return d.frames.Load() }

func (d *Driver) Paused() bool { return d.isPaused.Load() }

func (d *Driver) SaveDrops() uint64 { return d.saveDrops.Load() }

func (d *Driver) Game() (gen3.Game, bool) { return d.game, d.hasGame }
