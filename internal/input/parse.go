package input

import (
	"strconv"
	"strings"
)

// Compound repeat bounds. "a1" is rejected because a single press has its own
// literal form; anything above MaxCompoundRepeat is rejected outright.
const (
	MinCompoundRepeat = 2
	MaxCompoundRepeat = 9
)

type Kind uint8

const (
	KindPress Kind = iota + 1
	KindCompound
	KindWait
	KindVoteAnarchy
	KindVoteDemocracy
)

func (k Kind) String() string {
	switch k {
	case KindPress:
		return "press"
	case KindCompound:
		return "compound"
	case KindWait:
		return "wait"
	case KindVoteAnarchy:
		return "anarchy"
	case KindVoteDemocracy:
		return "democracy"
	default:
		return "unknown"
	}
}

// Command is the result of parsing one chat line. Button is meaningful for
// KindPress and KindCompound; Repeat only for KindCompound.
type Command struct {
	Kind   Kind
	Button Button
	Repeat int
}

// Expand returns the ordered button presses the command stands for.
func (c Command) Expand() []Button {
	switch c.Kind {
	case KindPress:
		return []Button{c.Button}
	case KindCompound:
		out := make([]Button, c.Repeat)
		for i := range out {
			out[i] = c.Button
		}
		return out
	default:
		return nil
	}
}

// ChatMessage is one line received from the chat transport.
type ChatMessage struct {
	User      string `json:"user"`
	Text      string `json:"text"`
	Timestamp int64  `json:"ts"` // unix ms
}

// Parser turns chat text into commands. The zero value uses MaxCompoundRepeat.
type Parser struct {
	MaxRepeat int
}

// Parse uses the default repeat bound.
func Parse(text string) (Command, bool) {
	return Parser{}.Parse(text)
}

func (p Parser) maxRepeat() int {
	if p.MaxRepeat >= MinCompoundRepeat {
		return p.MaxRepeat
	}
	return MaxCompoundRepeat
}

// Parse is case-insensitive and ignores surrounding whitespace. Unrecognised
// text yields ok=false.
func (p Parser) Parse(text string) (Command, bool) {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return Command{}, false
	}
	switch s {
	case "wait":
		return Command{Kind: KindWait}, true
	case "anarchy":
		return Command{Kind: KindVoteAnarchy}, true
	case "democracy":
		return Command{Kind: KindVoteDemocracy}, true
	}
	if b, ok := ButtonByName(s); ok {
		return Command{Kind: KindPress, Button: b}, true
	}

	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	if i == len(s) || i == 0 {
		return Command{}, false
	}
	b, ok := ButtonByName(s[:i])
	if !ok {
		return Command{}, false
	}
	n, err := strconv.Atoi(s[i:])
	if err != nil || n < MinCompoundRepeat || n > p.maxRepeat() {
		return Command{}, false
	}
	return Command{Kind: KindCompound, Button: b, Repeat: n}, true
}
