// Package worldstore implements the PersistentWorldStore (PWS): a
// single-threaded worker owning the sparse world tile map and the
// attention-scheduler pool snapshots, exposed to callers as an
// asynchronous request/response interface over bbolt.
//
// The actor owns all mutable state; every public method builds a
// request, sends it on reqCh, and blocks on a per-request response
// channel. Because one goroutine drains reqCh in arrival order, all
// operations are linearized and served in FIFO order.
package worldstore

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"tilestream/internal/config"
)

// FlushRecorder receives a notification for every committed flush, so
// a telemetry sink can log byte counts and category sets without the
// store importing the telemetry package.
type FlushRecorder interface {
	RecordFlush(categories []string, bytesWritten int)
}

type Store struct {
	cfg    config.Config
	logger *log.Logger

	db *bbolt.DB

	reqCh  chan *request
	stopCh chan struct{}
	readyCh chan struct{}
	readyErr error

	recorder FlushRecorder

	closeOnce sync.Once
	done      sync.WaitGroup
}

// Open creates (or resumes) a store backed by the bbolt file at path
// and starts its worker goroutine. The caller must call WaitReady
// before relying on any read returning persisted data, and Close when
// done.
func Open(path string, cfg config.Config, logger *log.Logger, recorder FlushRecorder) (*Store, error) {
	if logger == nil {
		logger = log.New(log.Writer(), "[worldstore] ", log.LstdFlags)
	}
	s := &Store{
		cfg:      cfg,
		logger:   logger,
		reqCh:    make(chan *request, 256),
		stopCh:   make(chan struct{}),
		readyCh:  make(chan struct{}),
		recorder: recorder,
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		s.readyErr = fmt.Errorf("worldstore: open %s: %w", path, err)
		close(s.readyCh)
		return s, s.readyErr
	}
	s.db = db

	if err := runMigrations(db); err != nil {
		s.readyErr = err
		close(s.readyCh)
		_ = db.Close()
		return s, err
	}

	st, err := loadState(db)
	if err != nil {
		s.readyErr = fmt.Errorf("worldstore: load state: %w", err)
		close(s.readyCh)
		_ = db.Close()
		return s, s.readyErr
	}

	s.done.Add(1)
	go func() {
		defer s.done.Done()
		s.run(st)
	}()
	close(s.readyCh)
	return s, nil
}

// WaitReady resolves once the store has loaded its persisted state
// (or failed to). A non-nil error here, including a schema-upgrade
// failure, is fatal to the caller's startup.
func (s *Store) WaitReady(ctx context.Context) error {
	select {
	case <-s.readyCh:
		return s.readyErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the worker after letting any in-flight flush finish,
// without forcing an extra save (callers that want a final save
// should call Flush first). Safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(func() { close(s.stopCh) })
	s.done.Wait()
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

var errClosed = fmt.Errorf("worldstore: closed")
