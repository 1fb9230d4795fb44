package worldstore

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"go.etcd.io/bbolt"
)

// flushDirty commits every currently-dirty category inside exactly
// one bbolt transaction: fully persisted or fully rolled back, never
// a partial commit across collections. It clears the dirty flags it
// consumed and returns the category names written for telemetry and
// the approximate byte count, or an error leaving the dirty flags
// untouched so the next autosave retries.
func flushDirty(db *bbolt.DB, st *worldState) ([]string, int, error) {
	if !st.isDirty() {
		return nil, 0, nil
	}

	var categories []string
	bytesWritten := 0

	err := db.Update(func(tx *bbolt.Tx) error {
		if st.dirtyMeta {
			b, err := tx.CreateBucketIfNotExists(bucketMeta)
			if err != nil {
				return err
			}
			v, err := json.Marshal(st.meta)
			if err != nil {
				return err
			}
			if err := b.Put([]byte("state"), v); err != nil {
				return err
			}
			bytesWritten += len(v)
			categories = append(categories, "meta")
		}

		if st.dirtyAttention {
			b, err := tx.CreateBucketIfNotExists(bucketAttention)
			if err != nil {
				return err
			}
			v, err := json.Marshal(st.attention)
			if err != nil {
				return err
			}
			if err := b.Put([]byte("attention"), v); err != nil {
				return err
			}
			bytesWritten += len(v)
			categories = append(categories, "attention")
		}

		for idx := range st.dirtyLevels {
			n, err := flushLevelTx(tx, idx, st.level(idx))
			if err != nil {
				return fmt.Errorf("flush level %d: %w", idx, err)
			}
			bytesWritten += n
			categories = append(categories, fmt.Sprintf("levels[%d]", idx))
		}

		for pool := range st.dirtyPools {
			n, err := flushPoolTx(tx, pool, st.poolList(pool))
			if err != nil {
				return fmt.Errorf("flush pool %s: %w", pool, err)
			}
			bytesWritten += n
			categories = append(categories, string(pool))
		}

		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	st.dirtyMeta = false
	st.dirtyAttention = false
	st.dirtyLevels = map[int]bool{}
	st.dirtyPools = map[PoolKind]bool{}

	return categories, bytesWritten, nil
}

// flushLevelTx writes (or, if empty, deletes) one level's tile bucket.
// Empty collections are deleted rather than written as empty objects.
func flushLevelTx(tx *bbolt.Tx, idx int, cells map[WorldCoord]TileIndex) (int, error) {
	levelsRoot, err := tx.CreateBucketIfNotExists(bucketLevels)
	if err != nil {
		return 0, err
	}
	name := []byte(strconv.Itoa(idx))
	if len(cells) == 0 {
		if err := levelsRoot.DeleteBucket(name); err != nil && err != bbolt.ErrBucketNotFound {
			return 0, err
		}
		return 0, nil
	}
	// Rebuild the sub-bucket from scratch: simplest way to guarantee it
	// exactly mirrors in-memory state (deleted cells don't linger).
	_ = levelsRoot.DeleteBucket(name)
	sub, err := levelsRoot.CreateBucket(name)
	if err != nil {
		return 0, err
	}
	n := 0
	for coord, tile := range cells {
		if !packable(coord) {
			continue
		}
		v := make([]byte, 4)
		binary.BigEndian.PutUint32(v, uint32(int32(tile)))
		if err := sub.Put(packKeyBytes(coord), v); err != nil {
			return 0, err
		}
		n += 8
	}
	return n, nil
}

// flushPoolTx writes (or, if empty, deletes) one task pool's list.
func flushPoolTx(tx *bbolt.Tx, pool PoolKind, tasks []Task) (int, error) {
	b, err := tx.CreateBucketIfNotExists(bucketTasks)
	if err != nil {
		return 0, err
	}
	key := poolKey(pool)
	if len(tasks) == 0 {
		return 0, b.Delete(key)
	}
	v, err := json.Marshal(tasks)
	if err != nil {
		return 0, err
	}
	if err := b.Put(key, v); err != nil {
		return 0, err
	}
	return len(v), nil
}

// poolList returns a snapshot list view of one pool, in persisted
// order: Resumed/Pending keep their FIFO order, Active/Paused are
// sorted by TaskID so repeated flushes of an unchanged set are
// byte-identical (P10: idempotence after quiescence).
func (st *worldState) poolList(pool PoolKind) []Task {
	switch pool {
	case PoolActive:
		return sortedTasks(st.active)
	case PoolPaused:
		return sortedTasks(st.paused)
	case PoolResumed:
		return append([]Task(nil), st.resumed...)
	case PoolPending:
		return append([]Task(nil), st.pending...)
	default:
		return nil
	}
}

func sortedTasks(m map[TaskID]Task) []Task {
	out := make([]Task, 0, len(m))
	for _, t := range m {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
