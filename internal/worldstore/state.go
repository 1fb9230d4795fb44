package worldstore

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"

	"go.etcd.io/bbolt"
)

// worldState is the actor's private mutable state. It is only ever
// touched from inside run(); no reference to it escapes the package.
type worldState struct {
	levels map[int]map[WorldCoord]TileIndex

	meta      MetaState
	attention AttentionState

	active  map[TaskID]Task
	resumed []Task
	pending []Task
	paused  map[TaskID]Task

	dirtyLevels    map[int]bool
	dirtyMeta      bool
	dirtyAttention bool
	dirtyPools     map[PoolKind]bool
}

func newWorldState() *worldState {
	return &worldState{
		levels:      map[int]map[WorldCoord]TileIndex{},
		active:      map[TaskID]Task{},
		paused:      map[TaskID]Task{},
		dirtyLevels: map[int]bool{},
		dirtyPools:  map[PoolKind]bool{},
	}
}

func (st *worldState) level(idx int) map[WorldCoord]TileIndex {
	m, ok := st.levels[idx]
	if !ok {
		m = map[WorldCoord]TileIndex{}
		st.levels[idx] = m
	}
	return m
}

func (st *worldState) markLevelDirty(idx int)      { st.dirtyLevels[idx] = true }
func (st *worldState) markMetaDirty()              { st.dirtyMeta = true }
func (st *worldState) markAttentionDirty()         { st.dirtyAttention = true }
func (st *worldState) markPoolDirty(p PoolKind)    { st.dirtyPools[p] = true }

func (st *worldState) isDirty() bool {
	if st.dirtyMeta || st.dirtyAttention {
		return true
	}
	if len(st.dirtyLevels) > 0 || len(st.dirtyPools) > 0 {
		return true
	}
	return false
}

// loadState reads every persisted collection back into memory. It is
// called once at Open, inside the migration transaction's aftermath,
// so schema buckets are guaranteed to exist.
func loadState(db *bbolt.DB) (*worldState, error) {
	st := newWorldState()
	err := db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(bucketMeta); b != nil {
			if v := b.Get([]byte("state")); v != nil {
				var m MetaState
				if err := json.Unmarshal(v, &m); err != nil {
					return fmt.Errorf("decode meta: %w", err)
				}
				st.meta = m
			}
		}
		if b := tx.Bucket(bucketAttention); b != nil {
			if v := b.Get([]byte("attention")); v != nil {
				var a AttentionState
				if err := json.Unmarshal(v, &a); err != nil {
					return fmt.Errorf("decode attention: %w", err)
				}
				st.attention = a
			}
		}
		if b := tx.Bucket(bucketLevels); b != nil {
			if err := forEachSubBucket(b, func(name []byte) error {
				idx, err := strconv.Atoi(string(name))
				if err != nil {
					return nil
				}
				sub := b.Bucket(name)
				cells := st.level(idx)
				return sub.ForEach(func(k, v []byte) error {
					if len(k) != 4 || len(v) != 4 {
						return nil
					}
					coord := unpackKeyBytes(k)
					cells[coord] = TileIndex(int32(binary.BigEndian.Uint32(v)))
					return nil
				})
			}); err != nil {
				return err
			}
		}
		if b := tx.Bucket(bucketTasks); b != nil {
			loadPool := func(key []byte) ([]Task, error) {
				v := b.Get(key)
				if v == nil {
					return nil, nil
				}
				var tasks []Task
				if err := json.Unmarshal(v, &tasks); err != nil {
					return nil, err
				}
				return tasks, nil
			}
			activeList, err := loadPool(poolKey(PoolActive))
			if err != nil {
				return fmt.Errorf("decode active tasks: %w", err)
			}
			for _, t := range activeList {
				st.active[t.ID] = t
			}
			resumed, err := loadPool(poolKey(PoolResumed))
			if err != nil {
				return fmt.Errorf("decode resumed tasks: %w", err)
			}
			st.resumed = resumed
			pending, err := loadPool(poolKey(PoolPending))
			if err != nil {
				return fmt.Errorf("decode pending tasks: %w", err)
			}
			st.pending = pending
			pausedList, err := loadPool(poolKey(PoolPaused))
			if err != nil {
				return fmt.Errorf("decode paused tasks: %w", err)
			}
			for _, t := range pausedList {
				st.paused[t.ID] = t
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// bbolt's Bucket has no ForEachBucket helper; implement it locally on
// top of ForEach, skipping non-bucket (leaf) entries.
func forEachSubBucket(b *bbolt.Bucket, fn func(name []byte) error) error {
	return b.ForEach(func(k, v []byte) error {
		if v != nil {
			return nil // leaf key, not a nested bucket
		}
		return fn(k)
	})
}
