package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"streamplays.tv/internal/emulator"
	persistlog "streamplays.tv/internal/persistence/log"
)

func main() {
	var (
		dir  = flag.String("dir", "./data/inputs", "input log dir containing inputs-*.jsonl.zst")
		user = flag.String("user", "", "only count inputs from this user (optional)")
		top  = flag.Int("top", 20, "users to list (0 = all)")
	)
	flag.Parse()

	files, err := persistlog.ListFiles(*dir, "inputs")
	if err != nil {
		fmt.Fprintln(os.Stderr, "list inputs:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no input log files found in", *dir)
		os.Exit(1)
	}

	t := newTally(*user)
	for _, path := range files {
		if err := persistlog.ScanFile(path, func(line []byte) error {
			var ev emulator.InputEvent
			if err := json.Unmarshal(line, &ev); err != nil {
				return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
			}
			t.add(ev)
			return nil
		}); err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			os.Exit(1)
		}
	}
	t.print(os.Stdout, len(files), *top)
}

type tally struct {
	user     string
	total    uint64
	first    int64
	last     int64
	byButton map[string]uint64
	byUser   map[string]uint64
}

func newTally(user string) *tally {
	return &tally{user: user, byButton: map[string]uint64{}, byUser: map[string]uint64{}}
}

func (t *tally) add(ev emulator.InputEvent) {
	if t.user != "" && ev.User != t.user {
		return
	}
	if t.total == 0 || ev.TS < t.first {
		t.first = ev.TS
	}
	if ev.TS > t.last {
		t.last = ev.TS
	}
	t.total++
	t.byButton[ev.Button]++
	t.byUser[ev.User]++
}

type count struct {
	key string
	n   uint64
}

// sorted orders by count, then key, so output is stable across runs.
func sorted(m map[string]uint64) []count {
	out := make([]count, 0, len(m))
	for k, n := range m {
		out = append(out, count{key: k, n: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].n != out[j].n {
			return out[i].n > out[j].n
		}
		return out[i].key < out[j].key
	})
	return out
}

func (t *tally) print(w io.Writer, files, top int) {
	fmt.Fprintf(w, "files=%d inputs=%d users=%d first_ts=%d last_ts=%d\n", files, t.total, len(t.byUser), t.first, t.last)
	fmt.Fprintln(w, "buttons:")
	for _, c := range sorted(t.byButton) {
		fmt.Fprintf(w, "  %-8s %d\n", c.key, c.n)
	}
	fmt.Fprintln(w, "users:")
	for i, c := range sorted(t.byUser) {
		if top > 0 && i >= top {
			fmt.Fprintf(w, "  ... %d more\n", len(t.byUser)-top)
			break
		}
		fmt.Fprintf(w, "  %-24s %d\n", c.key, c.n)
	}
}
