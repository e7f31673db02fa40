package offsite

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Putter is the part of Client the uploader needs.
type Putter interface {
	PutFile(ctx context.Context, key, localPath string) error
}

type UploaderConfig struct {
	// DataDir is the root object keys are made relative to.
	DataDir       string
	Prefix        string
	Workers       int
	QueueCapacity int
	EnqueueWait   time.Duration
	MaxAttempts   int
	RetryBase     time.Duration
}

type Stats struct {
	QueueDepth    int
	QueueCapacity int
	Enqueued      uint64
	Dropped       uint64
	Uploaded      uint64
	Failed        uint64
	LastSuccess   int64
	LastError     int64
}

// Uploader copies files in the background. Enqueue never blocks longer
// than EnqueueWait; files that do not fit are dropped and counted.
type Uploader struct {
	put  Putter
	cfg  UploaderConfig
	log  *log.Logger
	jobs chan string
	wg   sync.WaitGroup
	once sync.Once

	enqueued    atomic.Uint64
	dropped     atomic.Uint64
	uploaded    atomic.Uint64
	failed      atomic.Uint64
	lastSuccess atomic.Int64
	lastError   atomic.Int64
}

func NewUploader(put Putter, cfg UploaderConfig, logger *log.Logger) *Uploader {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 256
	}
	if cfg.EnqueueWait <= 0 {
		cfg.EnqueueWait = 25 * time.Millisecond
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 4
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 200 * time.Millisecond
	}
	cfg.Prefix = strings.Trim(strings.ReplaceAll(cfg.Prefix, "\\", "/"), "/")

	u := &Uploader{
		put:  put,
		cfg:  cfg,
		log:  logger,
		jobs: make(chan string, cfg.QueueCapacity),
	}
	for i := 0; i < cfg.Workers; i++ {
		u.wg.Add(1)
		go func() {
			defer u.wg.Done()
			for p := range u.jobs {
				u.upload(p)
			}
		}()
	}
	return u
}

func (u *Uploader) Enqueue(localPath string) {
	if u == nil {
		return
	}
	u.enqueued.Add(1)
	select {
	case u.jobs <- localPath:
		return
	default:
	}
	t := time.NewTimer(u.cfg.EnqueueWait)
	defer t.Stop()
	select {
	case u.jobs <- localPath:
	case <-t.C:
		n := u.dropped.Add(1)
		u.log.Printf("offsite drop %s: queue full (dropped_total=%d)", localPath, n)
	}
}

// Close waits for queued uploads to finish.
func (u *Uploader) Close() {
	if u == nil {
		return
	}
	u.once.Do(func() {
		close(u.jobs)
		u.wg.Wait()
	})
}

func (u *Uploader) Stats() Stats {
	if u == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:    len(u.jobs),
		QueueCapacity: cap(u.jobs),
		Enqueued:      u.enqueued.Load(),
		Dropped:       u.dropped.Load(),
		Uploaded:      u.uploaded.Load(),
		Failed:        u.failed.Load(),
		LastSuccess:   u.lastSuccess.Load(),
		LastError:     u.lastError.Load(),
	}
}

func (u *Uploader) upload(localPath string) {
	key, err := u.ObjectKey(localPath)
	if err != nil {
		u.log.Printf("offsite skip %s: %v", localPath, err)
		return
	}
	var lastErr error
	for attempt := 1; attempt <= u.cfg.MaxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		lastErr = u.put.PutFile(ctx, key, localPath)
		cancel()
		if lastErr == nil {
			break
		}
		if attempt < u.cfg.MaxAttempts {
			time.Sleep(time.Duration(attempt*attempt) * u.cfg.RetryBase)
		}
	}
	if lastErr != nil {
		u.failed.Add(1)
		u.lastError.Store(time.Now().Unix())
		u.log.Printf("offsite upload %s failed: %v", key, lastErr)
		return
	}
	u.uploaded.Add(1)
	u.lastSuccess.Store(time.Now().Unix())
	u.log.Printf("offsite uploaded %s", key)
}

// ObjectKey maps a file under DataDir to its bucket key.
func (u *Uploader) ObjectKey(localPath string) (string, error) {
	if localPath == "" {
		return "", fmt.Errorf("empty local path")
	}
	if _, err := os.Stat(localPath); err != nil {
		return "", err
	}
	base, err := filepath.Abs(u.cfg.DataDir)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside %s", abs, base)
	}
	if u.cfg.Prefix != "" {
		rel = path.Join(u.cfg.Prefix, rel)
	}
	return rel, nil
}
