package worldstore

import (
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"
)

// CurrentSchemaVersion is the on-disk schema version this build
// understands. It only ever increases.
const CurrentSchemaVersion = 1

var schemaVersionKey = []byte("version")

// migration creates missing object collections and/or drops obsolete
// ones for one schema step. Migrations never touch unrelated dirty
// buckets: each step only opens the buckets it cares about.
type migration struct {
	to    uint32
	apply func(tx *bbolt.Tx) error
}

var migrations = []migration{
	{
		to: 1,
		apply: func(tx *bbolt.Tx) error {
			for _, name := range [][]byte{bucketMeta, bucketAttention, bucketTasks, bucketLevels} {
				if _, err := tx.CreateBucketIfNotExists(name); err != nil {
					return fmt.Errorf("create bucket %s: %w", name, err)
				}
			}
			return nil
		},
	},
}

// runMigrations brings the database from whatever version it is at
// up to CurrentSchemaVersion, one bbolt transaction per step so a
// failure partway through never leaves unrelated dirty data lost.
// A version newer than this build understands is a fatal open error,
// signaled to the caller of Open (and onward through WaitReady).
func runMigrations(db *bbolt.DB) error {
	current, err := readSchemaVersion(db)
	if err != nil {
		return err
	}
	if current > CurrentSchemaVersion {
		return fmt.Errorf("worldstore: on-disk schema version %d is newer than this build (%d)", current, CurrentSchemaVersion)
	}
	for _, m := range migrations {
		if m.to <= current {
			continue
		}
		if err := db.Update(func(tx *bbolt.Tx) error {
			if err := m.apply(tx); err != nil {
				return err
			}
			return writeSchemaVersionTx(tx, m.to)
		}); err != nil {
			return fmt.Errorf("worldstore: migration to v%d: %w", m.to, err)
		}
	}
	return nil
}

func readSchemaVersion(db *bbolt.DB) (uint32, error) {
	var version uint32
	err := db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSchema)
		if b == nil {
			version = 0
			return nil
		}
		v := b.Get(schemaVersionKey)
		if len(v) != 4 {
			version = 0
			return nil
		}
		version = binary.BigEndian.Uint32(v)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return version, nil
}

func writeSchemaVersionTx(tx *bbolt.Tx, version uint32) error {
	b, err := tx.CreateBucketIfNotExists(bucketSchema)
	if err != nil {
		return err
	}
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, version)
	return b.Put(schemaVersionKey, buf)
}
