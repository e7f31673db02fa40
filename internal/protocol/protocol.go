package protocol

import (
	"encoding/json"
	"fmt"
)

const Version = "1.0"

// Mode is the arbitration policy.
type Mode string

const (
	ModeAnarchy   Mode = "anarchy"
	ModeDemocracy Mode = "democracy"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAnarchy, ModeDemocracy:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// InputRecord is one applied input as shown in status projections.
type InputRecord struct {
	User  string `json:"user"`
	Input string `json:"input"`
	TS    int64  `json:"ts"` // unix ms
}

// GameState is the 4 Hz state snapshot payload and the admin status body.
type GameState struct {
	Mode                Mode              `json:"mode"`
	QueueDepth          int               `json:"queue_depth"`
	RecentInputs        []InputRecord     `json:"recent_inputs"`
	Votes               map[string]uint64 `json:"votes"`
	VoteTimeRemainingMS uint64            `json:"vote_time_remaining_ms"`
	ModeVotes           map[string]uint64 `json:"mode_votes"`
	UptimeSeconds       uint64            `json:"uptime_seconds"`
	TotalInputs         uint64            `json:"total_inputs"`
	EmulatorFPS         float64           `json:"emulator_fps"`
}

func EncodeGameState(s GameState) ([]byte, error) {
	if s.RecentInputs == nil {
		s.RecentInputs = []InputRecord{}
	}
	if s.Votes == nil {
		s.Votes = map[string]uint64{}
	}
	if s.ModeVotes == nil {
		s.ModeVotes = map[string]uint64{}
	}
	return json.Marshal(s)
}

// Admin API bodies.
type StatusResponse struct {
	State GameState `json:"state"`
}

type ModeRequest struct {
	Mode string `json:"mode"`
}

type AcceptedResponse struct {
	OK      bool   `json:"ok"`
	Command string `json:"command"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
