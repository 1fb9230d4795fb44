// Package telemetry observes worldstore flushes and tile edits for
// offline inspection: a compressed JSONL audit trail for cmd/replay,
// and a SQLite read-model index for ad-hoc queries. Nothing here sits
// on the hot path of TSE, AS or PWS; it only ever receives what those
// subsystems already decided to do.
package telemetry

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// jsonlZstdWriter appends one JSON object per line to an hourly
// zstd-compressed file, rotating when the wall-clock hour changes.
type jsonlZstdWriter struct {
	baseDir string
	prefix  string

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func newJSONLZstdWriter(baseDir, prefix string) *jsonlZstdWriter {
	return &jsonlZstdWriter{baseDir: baseDir, prefix: prefix}
}

func (w *jsonlZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := time.Now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *jsonlZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *jsonlZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	dir := filepath.Dir(w.pathForHour(hour))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	return nil
}

func (w *jsonlZstdWriter) closeLocked() error {
	var err error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	return err
}

func (w *jsonlZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// FlushEntry is one PWS flush event, as replayed by cmd/replay.
type FlushEntry struct {
	Timestamp    time.Time `json:"ts"`
	Categories   []string  `json:"categories"`
	BytesWritten int       `json:"bytes_written"`
}

// AuditEntry is one tile-level mutation, logged independently of
// which flush cycle eventually persisted it.
type AuditEntry struct {
	Timestamp time.Time `json:"ts"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	Index     int       `json:"index"`
}

// FlushLogger writes one compressed JSONL entry per PWS flush.
type FlushLogger struct{ w *jsonlZstdWriter }

func NewFlushLogger(dataDir string) *FlushLogger {
	return &FlushLogger{w: newJSONLZstdWriter(filepath.Join(dataDir, "flushes"), "flushes")}
}

func (l *FlushLogger) WriteFlush(e FlushEntry) error { return l.w.Write(e) }
func (l *FlushLogger) Close() error                  { return l.w.Close() }

// AuditLogger writes one compressed JSONL entry per tile edit.
type AuditLogger struct{ w *jsonlZstdWriter }

func NewAuditLogger(dataDir string) *AuditLogger {
	return &AuditLogger{w: newJSONLZstdWriter(filepath.Join(dataDir, "audit"), "audit")}
}

func (l *AuditLogger) WriteAudit(e AuditEntry) error { return l.w.Write(e) }
func (l *AuditLogger) Close() error                  { return l.w.Close() }
