package worldstore

import (
	"path/filepath"
	"testing"
	"time"

	"go.etcd.io/bbolt"
)

func TestRunMigrationsIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "world.db")

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if err := runMigrations(db); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := runMigrations(db); err != nil {
		t.Fatalf("second run: %v", err)
	}

	version, err := readSchemaVersion(db)
	if err != nil {
		t.Fatalf("read version: %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Fatalf("version = %d, want %d", version, CurrentSchemaVersion)
	}
}

func TestRunMigrationsRejectsNewerSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "world.db")

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if err := db.Update(func(tx *bbolt.Tx) error {
		return writeSchemaVersionTx(tx, CurrentSchemaVersion+1)
	}); err != nil {
		t.Fatalf("seed future version: %v", err)
	}

	if err := runMigrations(db); err == nil {
		t.Fatalf("expected rejection of a newer-than-supported schema version")
	}
}
