// Package ws serves the viewer stream: binary telemetry frames out, keypad
// control frames in from privileged viewers.
package ws

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"streamplays.tv/internal/broadcast"
	"streamplays.tv/internal/emulator"
)

const (
	DefaultReadTimeout  = 60 * time.Second
	DefaultPingInterval = 30 * time.Second
	writeTimeout        = 5 * time.Second
)

type Config struct {
	AdminToken             string
	AllowAnonymousKeyboard bool

	// ReadTimeout bounds the silence between pongs or frames from a viewer.
	// PingInterval must be shorter so passive viewers stay connected.
	ReadTimeout  time.Duration
	PingInterval time.Duration
}

type Server struct {
	hub  *broadcast.Hub
	keys *emulator.Keypad
	cfg  Config
	log  *log.Logger

	upgrader websocket.Upgrader

	// The keypad overlay is shared by all privileged viewers; a key stays
	// down while any of them holds it.
	holdMu  sync.Mutex
	holders [broadcast.NumKeys]int

	viewers  atomic.Int64
	sent     atomic.Uint64
	lagged   atomic.Uint64
	controls atomic.Uint64
}

func NewServer(hub *broadcast.Hub, keys *emulator.Keypad, cfg Config, logger *log.Logger) *Server {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultPingInterval
	}
	if cfg.PingInterval >= cfg.ReadTimeout {
		cfg.PingInterval = cfg.ReadTimeout / 2
	}
	return &Server{
		hub:  hub,
		keys: keys,
		cfg:  cfg,
		log:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

type Stats struct {
	Viewers  int64
	Sent     uint64
	Lagged   uint64
	Controls uint64
}

func (s *Server) Stats() Stats {
	return Stats{
		Viewers:  s.viewers.Load(),
		Sent:     s.sent.Load(),
		Lagged:   s.lagged.Load(),
		Controls: s.controls.Load(),
	}
}

// Privileged reports whether r may drive the keypad.
func (s *Server) Privileged(r *http.Request) bool {
	if s.cfg.AllowAnonymousKeyboard {
		return true
	}
	if s.cfg.AdminToken == "" {
		return false
	}
	tok := r.URL.Query().Get("token")
	if tok == "" {
		tok = BearerToken(r)
	}
	return tok != "" && subtle.ConstantTimeCompare([]byte(tok), []byte(s.cfg.AdminToken)) == 1
}

// BearerToken returns the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

func (s *Server) hold(key uint8) {
	s.holdMu.Lock()
	defer s.holdMu.Unlock()
	s.holders[key]++
	if s.holders[key] == 1 {
		s.keys.Press(key)
	}
}

func (s *Server) unhold(key uint8) {
	s.holdMu.Lock()
	defer s.holdMu.Unlock()
	if s.holders[key] == 0 {
		return
	}
	s.holders[key]--
	if s.holders[key] == 0 {
		s.keys.Release(key)
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		privileged := s.Privileged(r)
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sub := s.hub.Subscribe()
		defer sub.Close()

		s.viewers.Add(1)
		defer s.viewers.Add(-1)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine. Closing conn on exit unblocks the reader.
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			defer conn.Close()
			defer cancel()
			ping := time.NewTicker(s.cfg.PingInterval)
			defer ping.Stop()
			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case <-ping.C:
						if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
							cancel()
							return
						}
					}
				}
			}()
			for {
				m, err := sub.Recv(ctx)
				if err != nil {
					var lag *broadcast.LagError
					if errors.As(err, &lag) {
						s.lagged.Add(lag.Missed)
						s.log.Printf("viewer %s lagged: skipped %d frames", r.RemoteAddr, lag.Missed)
						continue
					}
					if errors.Is(err, broadcast.ErrClosed) {
						_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(time.Second))
					}
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.BinaryMessage, m.Encode()); err != nil {
					return
				}
				s.sent.Add(1)
			}
		}()

		// Reader loop. Any frame or pong extends the deadline. Keys this
		// viewer holds are released when it leaves.
		extend := func() { _ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)) }
		conn.SetPongHandler(func(string) error {
			extend()
			return nil
		})
		var held uint16
		for {
			extend()
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if !privileged || mt != websocket.BinaryMessage {
				continue
			}
			c, ok := broadcast.ParseControl(msg)
			if !ok {
				continue
			}
			s.controls.Add(1)
			bit := uint16(1) << c.Key
			switch {
			case c.Press && held&bit == 0:
				held |= bit
				s.hold(c.Key)
			case !c.Press && held&bit != 0:
				held &^= bit
				s.unhold(c.Key)
			}
		}
		cancel()
		for k := uint8(0); k < broadcast.NumKeys; k++ {
			if held&(1<<k) != 0 {
				s.unhold(k)
			}
		}
		<-writerDone
	}
}
