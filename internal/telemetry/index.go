package telemetry

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	_ "modernc.org/sqlite"
)

// Index is a secondary, queryable read-model for PWS flush history: a
// single-writer goroutine owning one *sql.DB, fed through a buffered
// channel so RecordFlush never blocks on disk I/O from the worldstore
// actor's own goroutine.
type Index struct {
	db     *sql.DB
	logger *log.Logger

	ch     chan flushRow
	wg     sync.WaitGroup
	once   sync.Once
	closed atomic.Bool
}

type flushRow struct {
	ts           time.Time
	categories   string
	bytesWritten int
}

func OpenIndex(path string, logger *log.Logger) (*Index, error) {
	if logger == nil {
		logger = log.New(log.Writer(), "[telemetry] ", log.LstdFlags)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
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
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	idx := &Index{
		db:     db,
		logger: logger,
		ch:     make(chan flushRow, 4096),
	}
	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()
		idx.loop()
	}()
	return idx, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS flushes (
		ts INTEGER NOT NULL,
		categories TEXT NOT NULL,
		bytes_written INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_flushes_ts ON flushes(ts);`)
	return err
}

func (idx *Index) loop() {
	for row := range idx.ch {
		if _, err := idx.db.Exec(
			`INSERT INTO flushes (ts, categories, bytes_written) VALUES (?, ?, ?)`,
			row.ts.UnixMilli(), row.categories, row.bytesWritten,
		); err != nil {
			idx.logger.Printf("telemetry: insert flush row: %v", err)
			continue
		}
		idx.logger.Printf("telemetry: flushed %s (%s)", row.categories, humanize.Bytes(uint64(row.bytesWritten)))
	}
}

// RecordFlush implements worldstore.FlushRecorder, letting PWS report
// its flushes without importing this package.
func (idx *Index) RecordFlush(categories []string, bytesWritten int) {
	if idx.closed.Load() {
		return
	}
	row := flushRow{ts: time.Now(), categories: strings.Join(categories, ","), bytesWritten: bytesWritten}
	select {
	case idx.ch <- row:
	default:
		idx.logger.Printf("telemetry: dropped flush record, channel full")
	}
}

// TotalBytesWritten sums bytes_written across every recorded flush.
func (idx *Index) TotalBytesWritten() (uint64, error) {
	var total sql.NullInt64
	if err := idx.db.QueryRow(`SELECT SUM(bytes_written) FROM flushes`).Scan(&total); err != nil {
		return 0, fmt.Errorf("telemetry: sum bytes written: %w", err)
	}
	if !total.Valid {
		return 0, nil
	}
	return uint64(total.Int64), nil
}

func (idx *Index) Close() error {
	idx.once.Do(func() {
		idx.closed.Store(true)
		close(idx.ch)
	})
	idx.wg.Wait()
	return idx.db.Close()
}
