// Package admin serves the bearer-token protected operator API.
package admin

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"streamplays.tv/internal/emulator"
	"streamplays.tv/internal/protocol"
	"streamplays.tv/internal/transport/ws"
)

type StateSource interface {
	Snapshot() protocol.GameState
}

type ModeSetter interface {
	SetMode(m protocol.Mode)
}

// Commander accepts driver commands without blocking.
type Commander interface {
	Send(c emulator.Command) bool
}

type Server struct {
	token string
	state StateSource
	modes ModeSetter
	cmds  Commander
	log   *log.Logger
}

func NewServer(token string, state StateSource, modes ModeSetter, cmds Commander, logger *log.Logger) *Server {
	return &Server{token: token, state: state, modes: modes, cmds: cmds, log: logger}
}

// Register mounts the admin routes on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.Handle("/admin/status", s.auth(http.HandlerFunc(s.handleStatus)))
	mux.Handle("/admin/mode", s.auth(http.HandlerFunc(s.handleMode)))
	mux.Handle("/admin/save", s.auth(s.command(emulator.CmdSaveState)))
	mux.Handle("/admin/pause", s.auth(s.command(emulator.CmdPause)))
	mux.Handle("/admin/resume", s.auth(s.command(emulator.CmdResume)))
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		tok := ws.BearerToken(r)
		if s.token == "" || tok == "" || subtle.ConstantTimeCompare([]byte(tok), []byte(s.token)) != 1 {
			writeError(rw, http.StatusUnauthorized, protocol.ErrUnauthorized, "missing or invalid bearer token")
			return
		}
		next.ServeHTTP(rw, r)
	})
}

func (s *Server) handleStatus(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(rw, http.StatusMethodNotAllowed, protocol.ErrMethod, "GET only")
		return
	}
	writeJSON(rw, http.StatusOK, protocol.StatusResponse{State: s.state.Snapshot()})
}

func (s *Server) handleMode(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(rw, http.StatusMethodNotAllowed, protocol.ErrMethod, "POST only")
		return
	}
	var req protocol.ModeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, "invalid json body")
		return
	}
	m, err := protocol.ParseMode(req.Mode)
	if err != nil {
		writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, err.Error())
		return
	}
	s.modes.SetMode(m)
	s.log.Printf("admin: mode set to %s", m)
	writeJSON(rw, http.StatusOK, protocol.AcceptedResponse{OK: true, Command: "mode"})
}

func (s *Server) command(kind emulator.CommandKind) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(rw, http.StatusMethodNotAllowed, protocol.ErrMethod, "POST only")
			return
		}
		if !s.cmds.Send(emulator.Command{Kind: kind}) {
			writeError(rw, http.StatusServiceUnavailable, protocol.ErrBusy, "command queue full")
			return
		}
		s.log.Printf("admin: queued %s", kind)
		writeJSON(rw, http.StatusAccepted, protocol.AcceptedResponse{OK: true, Command: kind.String()})
	})
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func writeError(rw http.ResponseWriter, status int, code, msg string) {
	writeJSON(rw, status, protocol.ErrorResponse{Code: code, Message: msg})
}
