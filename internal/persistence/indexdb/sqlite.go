package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteIndex is a queryable secondary index of inputs, saves, and sessions.
// Writes are queued and applied by a single goroutine; the JSONL input log and
// the save files stay the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropInput   atomic.Uint64
	dropSave    atomic.Uint64
	dropSession atomic.Uint64
}

type reqKind int

const (
	reqInput reqKind = iota + 1
	reqSave
	reqSession
)

type req struct {
	kind reqKind

	input   InputRow
	save    SaveRow
	session SessionRow
}

type InputRow struct {
	Frame  uint64 `json:"frame"`
	TS     int64  `json:"ts"`
	User   string `json:"user"`
	Button string `json:"button"`
}

type SaveRow struct {
	Path     string `json:"path"`
	GameCode string `json:"game_code"`
	Frame    uint64 `json:"frame"`
	Bytes    int    `json:"bytes"`
	TS       int64  `json:"ts"`
}

type SessionRow struct {
	StartedAt int64  `json:"started_at"`
	CleanPrev bool   `json:"clean_prev"`
	Core      string `json:"core"`
	GameCode  string `json:"game_code"`
}

type Stats struct {
	QueueDepth    int
	QueueCapacity int

	DropInputTotal   uint64
	DropSaveTotal    uint64
	DropSessionTotal uint64
}

const defaultQueueSize = 65536

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// Chat bursts can outpace the writer for a few seconds.
		ch: make(chan req, defaultQueueSize),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

// OpenDB opens an index file with the pragmas the writer expects. Readers
// such as the admin CLI use it directly.
func OpenDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at INTEGER NOT NULL,
			clean_prev INTEGER NOT NULL,
			core TEXT NOT NULL,
			game_code TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS inputs (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			frame INTEGER NOT NULL,
			ts INTEGER NOT NULL,
			user TEXT NOT NULL,
			button TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_inputs_user_ts ON inputs(user, ts);`,
		`CREATE TABLE IF NOT EXISTS saves (
			path TEXT PRIMARY KEY,
			game_code TEXT NOT NULL,
			frame INTEGER NOT NULL,
			bytes INTEGER NOT NULL,
			ts INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_saves_ts ON saves(ts);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) RecordInput(r InputRow) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqInput, input: r}:
	default:
		s.dropInput.Add(1)
	}
}

func (s *SQLiteIndex) RecordSave(r SaveRow) {
	if s == nil || s.closed.Load() || r.Path == "" {
		return
	}
	select {
	case s.ch <- req{kind: reqSave, save: r}:
	default:
		s.dropSave.Add(1)
	}
}

func (s *SQLiteIndex) RecordSession(r SessionRow) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqSession, session: r}:
	default:
		s.dropSession.Add(1)
	}
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:       len(s.ch),
		QueueCapacity:    cap(s.ch),
		DropInputTotal:   s.dropInput.Load(),
		DropSaveTotal:    s.dropSave.Load(),
		DropSessionTotal: s.dropSession.Load(),
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertInput, _ := s.db.Prepare(`INSERT INTO inputs(frame,ts,user,button) VALUES(?,?,?,?)`)
	insertSave, _ := s.db.Prepare(`INSERT OR REPLACE INTO saves(path,game_code,frame,bytes,ts) VALUES(?,?,?,?,?)`)
	insertSession, _ := s.db.Prepare(`INSERT INTO sessions(started_at,clean_prev,core,game_code) VALUES(?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertInput, insertSave, insertSession} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) {
		if st == nil || tx == nil {
			return
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return
		}
		opCount++
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqInput:
			in := r.input
			exec(insertInput, int64(in.Frame), in.TS, in.User, in.Button)
		case reqSave:
			sv := r.save
			exec(insertSave, sv.Path, sv.GameCode, int64(sv.Frame), sv.Bytes, sv.TS)
		case reqSession:
			se := r.session
			clean := 0
			if se.CleanPrev {
				clean = 1
			}
			exec(insertSession, se.StartedAt, clean, se.Core, se.GameCode)
			// Sessions are rare; make them visible right away.
			commit()
			continue
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}
