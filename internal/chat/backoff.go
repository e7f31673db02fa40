package chat

import (
	"sync"
	"time"
)

const (
	MinBackoff = time.Second
	MaxBackoff = 30 * time.Second
)

// Backoff doubles from Min up to Max between reconnect attempts.
type Backoff struct {
	Min time.Duration
	Max time.Duration

	mu  sync.Mutex
	cur time.Duration
}

func (b *Backoff) bounds() (time.Duration, time.Duration) {
	lo, hi := b.Min, b.Max
	if lo <= 0 {
		lo = MinBackoff
	}
	if hi < lo {
		hi = MaxBackoff
		if hi < lo {
			hi = lo
		}
	}
	return lo, hi
}

// Current is the wait before the next attempt.
func (b *Backoff) Current() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	lo, _ := b.bounds()
	if b.cur < lo {
		return lo
	}
	return b.cur
}

// Next returns the current wait and doubles it for the following call.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	lo, hi := b.bounds()
	if b.cur < lo {
		b.cur = lo
	}
	d := b.cur
	b.cur *= 2
	if b.cur > hi {
		b.cur = hi
	}
	return d
}

func (b *Backoff) Reset() {
	b.mu.Lock()
	b.cur = 0
	b.mu.Unlock()
}
