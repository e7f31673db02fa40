package arbitration

import (
	"sync"
	"time"

	"streamplays.tv/internal/input"
)

const DefaultQueueCapacity = 64

// Entry is one queued press and the user it is credited to.
type Entry struct {
	Button input.Button
	User   string
}

// QueueConfig bounds admission. Zero durations disable the respective check.
type QueueConfig struct {
	Capacity      int
	RateLimit     time.Duration // per user
	StartThrottle time.Duration // global, applies to any submission containing Start
}

// QueueStats counts submissions that did not make it into the queue whole.
type QueueStats struct {
	Accepted    uint64
	RateLimited uint64
	Throttled   uint64
	Evicted     uint64
}

// Queue is a drop-oldest ring of entries. It is safe for concurrent
// producers and a single consumer; every method holds the lock for a bounded
// amount of work.
type Queue struct {
	cfg QueueConfig

	mu        sync.Mutex
	data      []Entry
	head      int
	count     int
	lastUser  map[string]time.Time
	lastStart time.Time
	hasStart  bool
	stats     QueueStats
}

func NewQueue(cfg QueueConfig) *Queue {
	if cfg.Capacity < 1 {
		cfg.Capacity = DefaultQueueCapacity
	}
	return &Queue{
		cfg:      cfg,
		data:     make([]Entry, cfg.Capacity),
		lastUser: map[string]time.Time{},
	}
}

// Submit admits buttons for user as a unit or not at all. It returns false
// when the submission is empty, rate limited, or throttled.
func (q *Queue) Submit(user string, buttons []input.Button, now time.Time) bool {
	if len(buttons) == 0 {
		return false
	}
	hasStart := false
	for _, b := range buttons {
		if b == input.Start {
			hasStart = true
			break
		}
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if last, ok := q.lastUser[user]; ok && now.Sub(last) < q.cfg.RateLimit {
		q.stats.RateLimited++
		return false
	}
	if hasStart {
		if q.hasStart && now.Sub(q.lastStart) < q.cfg.StartThrottle {
			q.stats.Throttled++
			return false
		}
		q.lastStart = now
		q.hasStart = true
	}
	q.lastUser[user] = now

	for _, b := range buttons {
		q.pushLocked(Entry{Button: b, User: user})
	}
	q.stats.Accepted++
	return true
}

func (q *Queue) pushLocked(e Entry) {
	if q.count == len(q.data) {
		q.data[q.head] = Entry{}
		q.head = (q.head + 1) % len(q.data)
		q.count--
		q.stats.Evicted++
	}
	q.data[(q.head+q.count)%len(q.data)] = e
	q.count++
}

// Pop removes the oldest entry.
func (q *Queue) Pop() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return Entry{}, false
	}
	e := q.data[q.head]
	q.data[q.head] = Entry{}
	q.head = (q.head + 1) % len(q.data)
	q.count--
	return e, true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

func (q *Queue) Capacity() int { return len(q.data) }

// Users reports how many distinct users have a rate-limit timestamp. The map
// is never pruned; it lives as long as the process.
func (q *Queue) Users() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lastUser)
}

func (q *Queue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}

// Snapshot returns the queued entries oldest first.
func (q *Queue) Snapshot() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Entry, q.count)
	for i := range out {
		out[i] = q.data[(q.head+i)%len(q.data)]
	}
	return out
}
