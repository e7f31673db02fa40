package arbitration

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"streamplays.tv/internal/input"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestQueue_DropOldestKeepsMostRecent(t *testing.T) {
	q := NewQueue(QueueConfig{Capacity: 4})
	seq := []input.Button{input.A, input.B, input.Up, input.Down, input.Left, input.Right, input.L}
	if !q.Submit("alice", seq, t0) {
		t.Fatalf("submit rejected")
	}
	if q.Len() != 4 {
		t.Fatalf("len=%d want 4", q.Len())
	}
	want := seq[len(seq)-4:]
	for i, b := range want {
		e, ok := q.Pop()
		if !ok || e.Button != b || e.User != "alice" {
			t.Fatalf("pop %d = %+v ok=%v want %v", i, e, ok, b)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Fatalf("expected empty queue")
	}
	if st := q.Stats(); st.Evicted != 3 {
		t.Fatalf("evicted=%d want 3", st.Evicted)
	}
}

func TestQueue_EvictionAcrossSubmissions(t *testing.T) {
	q := NewQueue(QueueConfig{Capacity: 3})
	for i := 0; i < 5; i++ {
		q.Submit(fmt.Sprintf("u%d", i), []input.Button{input.A}, t0)
	}
	got := q.Snapshot()
	if len(got) != 3 || got[0].User != "u2" || got[2].User != "u4" {
		t.Fatalf("snapshot=%+v", got)
	}
}

func TestQueue_PerUserRateLimit(t *testing.T) {
	q := NewQueue(QueueConfig{Capacity: 16, RateLimit: time.Second})

	if !q.Submit("alice", []input.Button{input.A}, t0) {
		t.Fatalf("first submission rejected")
	}
	if q.Submit("alice", []input.Button{input.B}, t0.Add(500*time.Millisecond)) {
		t.Fatalf("second submission within window admitted")
	}
	if !q.Submit("bob", []input.Button{input.B}, t0.Add(500*time.Millisecond)) {
		t.Fatalf("other user within window rejected")
	}
	if !q.Submit("alice", []input.Button{input.Up}, t0.Add(time.Second)) {
		t.Fatalf("submission after window rejected")
	}
	if q.Len() != 3 {
		t.Fatalf("len=%d want 3", q.Len())
	}
	if st := q.Stats(); st.RateLimited != 1 || st.Accepted != 3 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestQueue_RateLimitIsPerSubmission(t *testing.T) {
	q := NewQueue(QueueConfig{Capacity: 16, RateLimit: time.Second})
	if !q.Submit("alice", []input.Button{input.Right, input.Right, input.Right}, t0) {
		t.Fatalf("compound rejected")
	}
	if q.Len() != 3 {
		t.Fatalf("len=%d want 3", q.Len())
	}
	if q.Submit("alice", []input.Button{input.A, input.A}, t0.Add(10*time.Millisecond)) {
		t.Fatalf("rate limit did not apply to the whole submission")
	}
	if q.Len() != 3 {
		t.Fatalf("partial admission: len=%d", q.Len())
	}
}

func TestQueue_StartThrottle(t *testing.T) {
	q := NewQueue(QueueConfig{Capacity: 16, StartThrottle: 5 * time.Second})

	if !q.Submit("alice", []input.Button{input.Start}, t0) {
		t.Fatalf("first start rejected")
	}
	if q.Submit("bob", []input.Button{input.Start}, t0.Add(2*time.Second)) {
		t.Fatalf("second start within throttle admitted")
	}
	// The rejected attempt must not have moved the throttle clock.
	if !q.Submit("carol", []input.Button{input.Start}, t0.Add(5*time.Second)) {
		t.Fatalf("start after throttle window rejected")
	}
	if q.Submit("dave", []input.Button{input.A, input.Start}, t0.Add(6*time.Second)) {
		t.Fatalf("mixed submission containing start admitted inside window")
	}
	if !q.Submit("dave", []input.Button{input.A}, t0.Add(6*time.Second)) {
		t.Fatalf("non-start submission rejected")
	}
	if st := q.Stats(); st.Throttled != 2 {
		t.Fatalf("throttled=%d want 2", st.Throttled)
	}
}

func TestQueue_ThrottledStartDoesNotConsumeUserWindow(t *testing.T) {
	q := NewQueue(QueueConfig{Capacity: 16, RateLimit: time.Second, StartThrottle: 10 * time.Second})
	q.Submit("alice", []input.Button{input.Start}, t0)
	if q.Submit("bob", []input.Button{input.Start}, t0.Add(100*time.Millisecond)) {
		t.Fatalf("throttled start admitted")
	}
	if !q.Submit("bob", []input.Button{input.B}, t0.Add(200*time.Millisecond)) {
		t.Fatalf("bob was rate limited by a rejected submission")
	}
}

func TestQueue_EmptySubmission(t *testing.T) {
	q := NewQueue(QueueConfig{Capacity: 4, RateLimit: time.Hour})
	if q.Submit("alice", nil, t0) {
		t.Fatalf("empty submission admitted")
	}
	if q.Users() != 0 {
		t.Fatalf("empty submission recorded a user timestamp")
	}
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	q := NewQueue(QueueConfig{Capacity: 64})
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Submit(fmt.Sprintf("u%d", i), []input.Button{input.A}, t0)
			}
		}(i)
	}
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				q.Pop()
			}
		}
	}()
	wg.Wait()
	close(done)
	if n := q.Len(); n > q.Capacity() {
		t.Fatalf("len=%d exceeds capacity %d", n, q.Capacity())
	}
}
