package saves

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var base = time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)

func TestWriteRead_RoundTrip(t *testing.T) {
	s, err := Open(t.TempDir(), 4)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data := bytes.Repeat([]byte{0xAB, 0x00, '\n'}, 1000)
	path, err := s.Write(Header{GameCode: "BPEE", Frame: 42, SavedAt: base}, data)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if filepath.Base(path) != "save_20240102_030405.state.zst" {
		t.Fatalf("name = %s", filepath.Base(path))
	}
	h, got, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("data mismatch: %d bytes", len(got))
	}
	if h.Frame != 42 || h.GameCode != "BPEE" || h.Version != Version || h.Size != len(data) {
		t.Fatalf("header = %+v", h)
	}
}

func TestLatestAndRotation(t *testing.T) {
	s, _ := Open(t.TempDir(), 3)
	if p, err := s.Latest(); err != nil || p != "" {
		t.Fatalf("latest on empty dir = %q, %v", p, err)
	}
	for i := 0; i < 5; i++ {
		if _, err := s.Write(Header{SavedAt: base.Add(time.Duration(i) * time.Hour)}, []byte{byte(i)}); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	all, _ := s.List()
	if len(all) != 3 {
		t.Fatalf("kept %d saves want 3", len(all))
	}
	latest, _ := s.Latest()
	_, b, err := Read(latest)
	if err != nil || b[0] != 4 {
		t.Fatalf("latest holds %v, %v", b, err)
	}
	if filepath.Base(all[0]) != FileName(base.Add(2*time.Hour)) {
		t.Fatalf("oldest kept = %s", filepath.Base(all[0]))
	}
}

func TestList_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	s, _ := Open(dir, 0)
	_ = os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "save_20240101_000000.state"), []byte("raw"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, markerName), nil, 0o644)
	if all, _ := s.List(); len(all) != 0 {
		t.Fatalf("list = %v", all)
	}
}

func TestRead_Truncated(t *testing.T) {
	s, _ := Open(t.TempDir(), 0)
	path, _ := s.Write(Header{SavedAt: base}, []byte("hello"))
	if _, _, err := Read(path + ".missing"); err == nil {
		t.Fatalf("expected error for missing file")
	}
	_ = os.WriteFile(path, []byte("not zstd"), 0o644)
	if _, _, err := Read(path); err == nil {
		t.Fatalf("expected error for corrupt file")
	}
}

func TestCleanShutdownMarker(t *testing.T) {
	s, _ := Open(t.TempDir(), 0)
	if s.CleanShutdown() {
		t.Fatalf("marker present in fresh dir")
	}
	if err := s.RemoveMarker(); err != nil {
		t.Fatalf("remove absent marker: %v", err)
	}
	if err := s.WriteMarker(); err != nil {
		t.Fatalf("write marker: %v", err)
	}
	if !s.CleanShutdown() {
		t.Fatalf("marker not detected")
	}
	if err := s.RemoveMarker(); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.RemoveMarker(); err != nil {
		t.Fatalf("second remove: %v", err)
	}
	if s.CleanShutdown() {
		t.Fatalf("marker still present")
	}
}

func TestWrite_SameSecondKeepsBoth(t *testing.T) {
	s, _ := Open(t.TempDir(), 3)
	at := base.Add(500 * time.Millisecond)
	var paths []string
	for i := 0; i < 3; i++ {
		p, err := s.Write(Header{Frame: uint64(i), SavedAt: at}, []byte{byte(i)})
		if err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
		paths = append(paths, p)
	}
	want := []string{
		"save_20240102_030405.state.zst",
		"save_20240102_030405_01.state.zst",
		"save_20240102_030405_02.state.zst",
	}
	all, _ := s.List()
	if len(all) != len(want) {
		t.Fatalf("kept %d saves want %d: %v", len(all), len(want), all)
	}
	for i, p := range all {
		if filepath.Base(p) != want[i] || p != paths[i] {
			t.Fatalf("save %d = %s want %s", i, filepath.Base(p), want[i])
		}
		h, b, err := Read(p)
		if err != nil || h.Frame != uint64(i) || b[0] != byte(i) {
			t.Fatalf("save %d: frame=%d data=%v err=%v", i, h.Frame, b, err)
		}
	}
	latest, _ := s.Latest()
	if latest != paths[2] {
		t.Fatalf("latest = %s", latest)
	}

	// The next second still sorts after the numbered names, and rotation
	// removes exactly one old save.
	p, err := s.Write(Header{Frame: 9, SavedAt: base.Add(time.Second)}, []byte{9})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	all, _ = s.List()
	if len(all) != 3 || all[0] != paths[1] || all[2] != p {
		t.Fatalf("after rotation = %v", all)
	}
}
