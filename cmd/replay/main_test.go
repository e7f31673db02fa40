package main

import (
	"bytes"
	"strings"
	"testing"

	"streamplays.tv/internal/emulator"
)

func TestTally_CountsAndFilters(t *testing.T) {
	evs := []emulator.InputEvent{
		{Frame: 1, TS: 100, User: "alice", Button: "a"},
		{Frame: 2, TS: 101, User: "bob", Button: "up"},
		{Frame: 3, TS: 102, User: "alice", Button: "a"},
		{Frame: 4, TS: 103, User: "carol", Button: "start"},
	}

	all := newTally("")
	for _, ev := range evs {
		all.add(ev)
	}
	if all.total != 4 || all.byButton["a"] != 2 || all.byUser["alice"] != 2 {
		t.Fatalf("tally = %+v", all)
	}
	if all.first != 100 || all.last != 103 {
		t.Fatalf("range = %d..%d", all.first, all.last)
	}

	only := newTally("bob")
	for _, ev := range evs {
		only.add(ev)
	}
	if only.total != 1 || only.byButton["up"] != 1 || len(only.byUser) != 1 {
		t.Fatalf("filtered tally = %+v", only)
	}

	var out bytes.Buffer
	all.print(&out, 1, 1)
	s := out.String()
	if !strings.Contains(s, "inputs=4 users=3") || !strings.Contains(s, "alice") || !strings.Contains(s, "... 2 more") {
		t.Fatalf("output:\n%s", s)
	}
	if strings.Index(s, "  a ") > strings.Index(s, "  up ") {
		t.Fatalf("buttons not sorted by count:\n%s", s)
	}
}
