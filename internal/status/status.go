// Package status projects arbitration and driver state into the GameState
// snapshot that viewers and the admin API see.
package status

import (
	"context"
	"log"
	"time"

	"streamplays.tv/internal/arbitration"
	"streamplays.tv/internal/broadcast"
	"streamplays.tv/internal/protocol"
)

// DefaultInterval publishes at 4 Hz.
const DefaultInterval = 250 * time.Millisecond

// FPSSource reports the measured emulation rate.
type FPSSource interface {
	FPS() float64
}

type Publisher interface {
	Publish(m broadcast.Message)
}

type Reporter struct {
	engine  *arbitration.Engine
	fps     FPSSource
	started time.Time
	now     func() time.Time
	log     *log.Logger
}

func NewReporter(engine *arbitration.Engine, fps FPSSource, started time.Time, logger *log.Logger) *Reporter {
	return &Reporter{
		engine:  engine,
		fps:     fps,
		started: started,
		now:     time.Now,
		log:     logger,
	}
}

// Snapshot builds the current GameState. Votes hold pending button counts
// while in democracy mode.
func (r *Reporter) Snapshot() protocol.GameState {
	mode := r.engine.Mode()
	s := protocol.GameState{
		Mode:         mode,
		QueueDepth:   r.engine.QueueDepth(),
		RecentInputs: r.engine.RecentInputs(),
		Votes:        map[string]uint64{},
		ModeVotes:    r.engine.ModeVotes(),
		TotalInputs:  r.engine.TotalInputs(),
	}
	if mode == protocol.ModeDemocracy {
		for _, ent := range r.engine.Queue().Snapshot() {
			s.Votes[ent.Button.String()]++
		}
	}
	if up := r.now().Sub(r.started); up > 0 {
		s.UptimeSeconds = uint64(up / time.Second)
	}
	if r.fps != nil {
		s.EmulatorFPS = r.fps.FPS()
	}
	return s
}

// Run publishes a state frame every interval until ctx is done.
func (r *Reporter) Run(ctx context.Context, pub Publisher, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Publish(pub)
		}
	}
}

func (r *Reporter) Publish(pub Publisher) {
	b, err := protocol.EncodeGameState(r.Snapshot())
	if err != nil {
		r.log.Printf("state encode: %v", err)
		return
	}
	pub.Publish(broadcast.Message{Kind: broadcast.KindState, Payload: b})
}
