// Package chat ingests viewer chat from a Streamplace websocket feed.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"streamplays.tv/internal/input"
)

// MessageViewType is the only record type turned into chat messages.
const MessageViewType = "place.stream.chat.defs#messageView"

// DefaultBackfill is how long after connecting messages are treated as
// history and dropped.
const DefaultBackfill = time.Second

// DefaultStableAfter is how long a connection must stay up before the
// reconnect backoff starts over from MinBackoff.
const DefaultStableAfter = MaxBackoff

// Submitter receives parsed chat. The arbitration engine implements it.
type Submitter interface {
	Submit(msg input.ChatMessage) bool
}

type messageView struct {
	Type   string `json:"$type"`
	Author struct {
		Handle string `json:"handle"`
	} `json:"author"`
	Record struct {
		Text string `json:"text"`
	} `json:"record"`
}

// ParseMessageView extracts a chat message from one feed frame. ok is false
// for other record types and malformed frames.
func ParseMessageView(b []byte, now time.Time) (input.ChatMessage, bool) {
	var v messageView
	if err := json.Unmarshal(b, &v); err != nil {
		return input.ChatMessage{}, false
	}
	if v.Type != MessageViewType {
		return input.ChatMessage{}, false
	}
	return input.ChatMessage{
		User:      v.Author.Handle,
		Text:      v.Record.Text,
		Timestamp: now.UnixMilli(),
	}, true
}

type Client struct {
	URL      string
	Token    string
	Backfill time.Duration
	Dialer   *websocket.Dialer

	// StableAfter is the uptime after which a dropped connection no
	// longer counts toward the backoff. A feed that accepts and then
	// closes keeps doubling the wait.
	StableAfter time.Duration

	backoff Backoff
	log     *log.Logger
	sink    Submitter

	received  atomic.Uint64
	submitted atomic.Uint64
	connects  atomic.Uint64
}

func NewClient(url, token string, sink Submitter, logger *log.Logger) *Client {
	return &Client{
		URL:         url,
		Token:       token,
		Backfill:    DefaultBackfill,
		Dialer:      websocket.DefaultDialer,
		StableAfter: DefaultStableAfter,
		backoff:     Backoff{Min: MinBackoff, Max: MaxBackoff},
		log:         logger,
		sink:        sink,
	}
}

// Backoff is the wait before the next reconnect.
func (c *Client) Backoff() time.Duration { return c.backoff.Current() }

type Stats struct {
	Received  uint64
	Submitted uint64
	Connects  uint64
}

func (c *Client) Stats() Stats {
	return Stats{
		Received:  c.received.Load(),
		Submitted: c.submitted.Load(),
		Connects:  c.connects.Load(),
	}
}

// Run connects and reconnects until ctx is done. It never gives up.
func (c *Client) Run(ctx context.Context) {
	for ctx.Err() == nil {
		err := c.runOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		wait := c.backoff.Next()
		if err != nil {
			c.log.Printf("chat ws error: %v; reconnecting in %s", err, wait)
		} else {
			c.log.Printf("chat ws closed; reconnecting in %s", wait)
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

func (c *Client) runOnce(ctx context.Context) error {
	hdr := http.Header{}
	if c.Token != "" {
		hdr.Set("Authorization", "Bearer "+c.Token)
	}
	dialer := c.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, c.URL, hdr)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	c.connects.Add(1)
	connectedAt := time.Now()
	defer func() {
		if time.Since(connectedAt) >= c.StableAfter {
			c.backoff.Reset()
		}
	}()
	c.log.Printf("chat ws connected: %s", c.URL)

	// Unblock ReadMessage on shutdown.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || ctx.Err() != nil {
				return nil
			}
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				return fmt.Errorf("closed: %d %s", ce.Code, ce.Text)
			}
			return err
		}
		if mt != websocket.TextMessage {
			continue
		}
		now := time.Now()
		if now.Sub(connectedAt) < c.Backfill {
			continue
		}
		m, ok := ParseMessageView(msg, now)
		if !ok {
			continue
		}
		c.received.Add(1)
		if c.sink.Submit(m) {
			c.submitted.Add(1)
		}
	}
}
