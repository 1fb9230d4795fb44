package worldstore

import "encoding/json"

// TileIndex identifies a renderable tile variant. Absent marks an
// unset cell; callers substitute their own default.
type TileIndex int32

const Absent TileIndex = -1

// WorldCoord names a world tile cell. The world is unbounded: callers
// may pass any signed int pair. Storage packs coordinates into a
// per-level 16-bit-biased key (see coords.go); SetTile/SetTiles/GetTile
// never reject an out-of-packing-range coordinate, but a flush silently
// skips it, so it is not persisted past a reasonable working radius, matching an editor's
// "infinite but currently-touched" footprint.
type WorldCoord struct {
	X, Y int
}

// TileEdit is a single cell write, used by SetTiles for batching.
type TileEdit struct {
	Coord WorldCoord
	Index TileIndex
}

// MetaState mirrors the persisted meta["state"] object.
type MetaState struct {
	CurrentLevelIndex int
}

// AttentionState mirrors the persisted dungeonState["attention"] object.
type AttentionState struct {
	AttentionCoefficient int
}

// PoolKind tags which of the four attention lifecycle pools a
// persisted task belongs to.
type PoolKind string

const (
	PoolActive  PoolKind = "active"
	PoolResumed PoolKind = "resumed"
	PoolPending PoolKind = "pending"
	PoolPaused  PoolKind = "paused"
)

// TaskID is an opaque unique task identifier.
type TaskID string

// Task is the persisted shape of an attention-scheduler task. The
// store never interprets Kind or Payload; it only ever copies them.
type Task struct {
	ID         TaskID          `json:"id"`
	Kind       string          `json:"kind"`
	Cost       int             `json:"cost"`
	DurationMs int             `json:"duration_ms"`
	ElapsedMs  int             `json:"elapsed_ms"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// ActiveProgress is one elapsed-time update for a task known to be
// in the Active pool.
type ActiveProgress struct {
	ID        TaskID
	ElapsedMs int
}

// PoolSnapshot holds the four persisted pool lists together, as they
// are read back atomically by a reload.
type PoolSnapshot struct {
	Active  []Task
	Resumed []Task
	Pending []Task
	Paused  []Task
}
