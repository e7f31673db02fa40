package arbitration

import (
	"sync"
	"time"

	"streamplays.tv/internal/input"
	"streamplays.tv/internal/protocol"
)

const (
	DefaultRecentMax     = 20
	DefaultStartThrottle = 5 * time.Second
)

type Config struct {
	Queue     QueueConfig
	RecentMax int
	MaxRepeat int
	Mode      protocol.Mode

	// Now defaults to time.Now.
	Now func() time.Time
}

// Engine parses chat, feeds the queue, and hands out one input per frame.
// Submit may be called from any number of goroutines; PopNextInput is meant
// for the single tick driver.
type Engine struct {
	parser input.Parser
	queue  *Queue
	now    func() time.Time

	mu         sync.Mutex
	mode       protocol.Mode
	total      uint64
	recent     []protocol.InputRecord
	recentHead int // index of the newest record
	recentLen  int
	modeVotes  map[protocol.Mode]uint64
}

func NewEngine(cfg Config) *Engine {
	if cfg.RecentMax <= 0 {
		cfg.RecentMax = DefaultRecentMax
	}
	if cfg.Mode == "" {
		cfg.Mode = protocol.ModeAnarchy
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		parser:    input.Parser{MaxRepeat: cfg.MaxRepeat},
		queue:     NewQueue(cfg.Queue),
		now:       cfg.Now,
		mode:      cfg.Mode,
		recent:    make([]protocol.InputRecord, cfg.RecentMax),
		modeVotes: map[protocol.Mode]uint64{},
	}
}

// Submit reports whether msg queued at least one press. Unparseable text,
// waits, votes and rejected submissions all return false.
func (e *Engine) Submit(msg input.ChatMessage) bool {
	cmd, ok := e.parser.Parse(msg.Text)
	if !ok {
		return false
	}
	switch cmd.Kind {
	case input.KindVoteAnarchy:
		e.vote(protocol.ModeAnarchy)
		return false
	case input.KindVoteDemocracy:
		e.vote(protocol.ModeDemocracy)
		return false
	}
	buttons := cmd.Expand()
	if len(buttons) == 0 {
		return false
	}
	return e.queue.Submit(msg.User, buttons, e.now())
}

func (e *Engine) vote(m protocol.Mode) {
	e.mu.Lock()
	e.modeVotes[m]++
	e.mu.Unlock()
}

// PopNextInput never blocks on I/O.
func (e *Engine) PopNextInput() (Entry, bool) {
	ent, ok := e.queue.Pop()
	if !ok {
		return Entry{}, false
	}
	rec := protocol.InputRecord{
		User:  ent.User,
		Input: ent.Button.String(),
		TS:    e.now().UnixMilli(),
	}

	e.mu.Lock()
	e.total++
	e.recentHead = (e.recentHead + len(e.recent) - 1) % len(e.recent)
	e.recent[e.recentHead] = rec
	if e.recentLen < len(e.recent) {
		e.recentLen++
	}
	e.mu.Unlock()
	return ent, true
}

func (e *Engine) QueueDepth() int { return e.queue.Len() }

func (e *Engine) Queue() *Queue { return e.queue }

// RecentInputs returns the most recent applied inputs, newest first.
func (e *Engine) RecentInputs() []protocol.InputRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]protocol.InputRecord, e.recentLen)
	for i := range out {
		out[i] = e.recent[(e.recentHead+i)%len(e.recent)]
	}
	return out
}

func (e *Engine) TotalInputs() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.total
}

func (e *Engine) Mode() protocol.Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// SetMode switches the arbitration policy and clears the vote tally.
func (e *Engine) SetMode(m protocol.Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = m
	e.modeVotes = map[protocol.Mode]uint64{}
}

func (e *Engine) ModeVotes() map[string]uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]uint64, len(e.modeVotes))
	for m, n := range e.modeVotes {
		out[string(m)] = n
	}
	return out
}
