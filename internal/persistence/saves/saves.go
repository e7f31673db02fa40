// Package saves stores serialized core states on disk and tracks whether the
// previous process exited cleanly.
package saves

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

const (
	DefaultMaxSaves = 48
	Version         = 1

	filePrefix = "save_"
	fileSuffix = ".state.zst"
	timeLayout = "20060102_150405"
	markerName = ".clean_shutdown"
)

// Header is written as a JSON line ahead of the state bytes.
type Header struct {
	Version  int       `json:"version"`
	GameCode string    `json:"game_code,omitempty"`
	Frame    uint64    `json:"frame"`
	SavedAt  time.Time `json:"saved_at"`
	Size     int       `json:"size"`
}

type Store struct {
	dir string
	max int
}

func Open(dir string, maxSaves int) (*Store, error) {
	if maxSaves < 1 {
		maxSaves = DefaultMaxSaves
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("save dir: %w", err)
	}
	return &Store{dir: dir, max: maxSaves}, nil
}

func (s *Store) Dir() string { return s.dir }

// FileName is the save file name for a state taken at t.
func FileName(t time.Time) string {
	return filePrefix + t.Format(timeLayout) + fileSuffix
}

// maxSameSecond bounds the numbered names tried for one timestamp. Two
// digits keep them in chronological order.
const maxSameSecond = 99

// freePath returns the first unused name for t: FileName(t), then
// save_<time>_01.state.zst and so on.
func (s *Store) freePath(t time.Time) (string, error) {
	name := FileName(t)
	for i := 1; ; i++ {
		path := filepath.Join(s.dir, name)
		_, err := os.Lstat(path)
		if errors.Is(err, os.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", err
		}
		if i > maxSameSecond {
			return "", fmt.Errorf("too many saves at %s", t.Format(timeLayout))
		}
		name = fmt.Sprintf("%s%s_%02d%s", filePrefix, t.Format(timeLayout), i, fileSuffix)
	}
}

// Write rotates old saves, then stores data under a name derived from
// h.SavedAt. Saves taken within the same second get numbered names instead
// of replacing each other. The file appears atomically.
func (s *Store) Write(h Header, data []byte) (string, error) {
	if h.SavedAt.IsZero() {
		h.SavedAt = time.Now()
	}
	h.Version = Version
	h.Size = len(data)

	path, err := s.freePath(h.SavedAt)
	if err != nil {
		return "", err
	}
	if err := s.Rotate(); err != nil {
		return "", err
	}

	tmp := path + ".tmp"
	if err := writeFile(tmp, h, data); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return path, nil
}

func writeFile(path string, h Header, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(h)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if _, err := bw.Write(data); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Sync()
}

// Read returns the header and state bytes of a save file.
func Read(path string) (Header, []byte, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, nil, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return h, nil, fmt.Errorf("%s: header: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, nil, fmt.Errorf("%s: header: %w", filepath.Base(path), err)
	}
	data, err := io.ReadAll(br)
	if err != nil {
		return h, nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if len(data) != h.Size {
		return h, nil, fmt.Errorf("%s: truncated state: got %d bytes want %d", filepath.Base(path), len(data), h.Size)
	}
	return h, data, nil
}

// ReadState is Read without the header.
func ReadState(path string) ([]byte, error) {
	_, b, err := Read(path)
	return b, err
}

// List returns save paths oldest first. Names sort chronologically.
func (s *Store) List() ([]string, error) {
	ents, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		if strings.HasPrefix(n, filePrefix) && strings.HasSuffix(n, fileSuffix) {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = filepath.Join(s.dir, n)
	}
	return out, nil
}

// Latest returns the newest save, or "" when there is none.
func (s *Store) Latest() (string, error) {
	all, err := s.List()
	if err != nil || len(all) == 0 {
		return "", err
	}
	return all[len(all)-1], nil
}

// Rotate deletes the oldest saves until there is room for one more.
func (s *Store) Rotate() error {
	all, err := s.List()
	if err != nil {
		return err
	}
	for len(all) >= s.max {
		if err := os.Remove(all[0]); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("rotate: %w", err)
		}
		all = all[1:]
	}
	return nil
}

func (s *Store) markerPath() string { return filepath.Join(s.dir, markerName) }

// CleanShutdown reports whether the previous run left the marker behind.
func (s *Store) CleanShutdown() bool {
	_, err := os.Stat(s.markerPath())
	return err == nil
}

func (s *Store) WriteMarker() error {
	return os.WriteFile(s.markerPath(), nil, 0o644)
}

// RemoveMarker succeeds when the marker is already absent.
func (s *Store) RemoveMarker() error {
	err := os.Remove(s.markerPath())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
