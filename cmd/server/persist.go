package main

import (
	"context"
	"log"
	"path/filepath"
	"sync/atomic"
	"time"

	"streamplays.tv/internal/emulator"
	"streamplays.tv/internal/persistence/indexdb"
	persistlog "streamplays.tv/internal/persistence/log"
	"streamplays.tv/internal/persistence/saves"
)

// restoreOnStartup consumes the clean-shutdown marker and, when asked to or
// when the last run crashed, loads the newest save into core.
func restoreOnStartup(store *saves.Store, core emulator.Core, autoRestore bool, logger *log.Logger) (cleanPrev bool, restored string) {
	cleanPrev = store.CleanShutdown()
	if !cleanPrev {
		logger.Printf("no clean shutdown marker in %s: possible crash", store.Dir())
	}
	if err := store.RemoveMarker(); err != nil {
		logger.Printf("remove shutdown marker: %v", err)
	}
	if !autoRestore && cleanPrev {
		return cleanPrev, ""
	}
	latest, err := store.Latest()
	if err != nil {
		logger.Printf("list saves: %v", err)
		return cleanPrev, ""
	}
	if latest == "" {
		return cleanPrev, ""
	}
	h, data, err := saves.Read(latest)
	if err != nil {
		logger.Printf("read save %s: %v", filepath.Base(latest), err)
		return cleanPrev, ""
	}
	if h.GameCode != "" && h.GameCode != core.GameCode() {
		logger.Printf("save %s is for %s, core runs %s: not restoring", filepath.Base(latest), h.GameCode, core.GameCode())
		return cleanPrev, ""
	}
	if err := core.RestoreState(data); err != nil {
		logger.Printf("restore %s: %v", filepath.Base(latest), err)
		return cleanPrev, ""
	}
	logger.Printf("restored %s (frame %d)", filepath.Base(latest), h.Frame)
	return cleanPrev, latest
}

type saveWriter struct {
	store    *saves.Store
	idx      runtimeIndex
	mirror   func(path string)
	gameCode string
	log      *log.Logger

	written atomic.Uint64
	failed  atomic.Uint64
}

func (w *saveWriter) write(b emulator.SaveBlob) {
	path, err := w.store.Write(saves.Header{GameCode: w.gameCode, Frame: b.Frame, SavedAt: b.At}, b.Data)
	if err != nil {
		w.failed.Add(1)
		w.log.Printf("save write: %v", err)
		return
	}
	w.written.Add(1)
	w.log.Printf("saved %s (%d bytes, frame %d)", filepath.Base(path), len(b.Data), b.Frame)
	if w.idx != nil {
		w.idx.RecordSave(indexdb.SaveRow{Path: path, GameCode: w.gameCode, Frame: b.Frame, Bytes: len(b.Data), TS: b.At.UnixMilli()})
	}
	if w.mirror != nil {
		w.mirror(path)
	}
}

// run writes saves until ctx ends, then flushes whatever is still queued.
func (w *saveWriter) run(ctx context.Context, ch <-chan emulator.SaveBlob) {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case b := <-ch:
					w.write(b)
				default:
					return
				}
			}
		case b := <-ch:
			w.write(b)
		}
	}
}

// autoSave asks the driver for a save every interval.
func autoSave(ctx context.Context, interval time.Duration, send func(emulator.Command) bool, logger *log.Logger) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if !send(emulator.Command{Kind: emulator.CmdSaveState}) {
				logger.Printf("auto-save skipped: command queue full")
			}
		}
	}
}

// recordInputs fans applied inputs out to the JSONL log and the index.
func recordInputs(ctx context.Context, ch <-chan emulator.InputEvent, inputLog *persistlog.InputLogger, idx runtimeIndex, logger *log.Logger) {
	handle := func(ev emulator.InputEvent) {
		if inputLog != nil {
			if err := inputLog.WriteInput(ev); err != nil {
				logger.Printf("input log: %v", err)
			}
		}
		if idx != nil {
			idx.RecordInput(indexdb.InputRow{Frame: ev.Frame, TS: ev.TS, User: ev.User, Button: ev.Button})
		}
	}
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case ev := <-ch:
					handle(ev)
				default:
					return
				}
			}
		case ev := <-ch:
			handle(ev)
		}
	}
}
