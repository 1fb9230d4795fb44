package telemetry

import (
	"path/filepath"
	"testing"
	"time"
)

func TestIndexRecordsFlushesAndSumsBytes(t *testing.T) {
	dir := t.TempDir()
	idx, err := OpenIndex(filepath.Join(dir, "telemetry.db"), nil)
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })

	idx.RecordFlush([]string{"tiles"}, 128)
	idx.RecordFlush([]string{"tasks", "tiles"}, 256)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		total, err := idx.TotalBytesWritten()
		if err != nil {
			t.Fatalf("total bytes: %v", err)
		}
		if total == 384 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("flush rows never converged to expected byte total")
}

func TestIndexIgnoresRecordsAfterClose(t *testing.T) {
	dir := t.TempDir()
	idx, err := OpenIndex(filepath.Join(dir, "telemetry.db"), nil)
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	idx.RecordFlush([]string{"tiles"}, 64) // must not panic on a closed channel
}
