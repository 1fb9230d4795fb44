package worldstore

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"tilestream/internal/config"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "world.db")
	s, err := Open(path, config.Defaults(), nil, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.WaitReady(context.Background()); err != nil {
		t.Fatalf("wait ready: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestSetTileFlushReopenRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, path := openTestStore(t)

	if err := s.SetTile(ctx, nil, 3, 4, TileIndex(7)); err != nil {
		t.Fatalf("set tile: %v", err)
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := Open(path, config.Defaults(), nil, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := s2.WaitReady(ctx); err != nil {
		t.Fatalf("wait ready: %v", err)
	}
	defer s2.Close()

	tile, found, err := s2.GetTile(ctx, nil, 3, 4)
	if err != nil {
		t.Fatalf("get tile: %v", err)
	}
	if !found || tile != 7 {
		t.Fatalf("got tile=%v found=%v, want 7/true", tile, found)
	}
}

func TestAddTaskFlushReopenRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, path := openTestStore(t)

	payload, _ := json.Marshal(map[string]string{"note": "dig here"})
	task := Task{ID: "T1", Kind: "excavate", Cost: 2, DurationMs: 500, Payload: payload}
	if _, err := s.PushTasks(ctx, PoolPending, []Task{task}); err != nil {
		t.Fatalf("push: %v", err)
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	_ = s.Close()

	s2, err := Open(path, config.Defaults(), nil, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := s2.WaitReady(ctx); err != nil {
		t.Fatalf("wait ready: %v", err)
	}
	defer s2.Close()

	all, err := s2.GetAllTasks(ctx)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all.Pending) != 1 || all.Pending[0].ID != "T1" {
		t.Fatalf("pending = %+v, want [T1]", all.Pending)
	}
	if string(all.Pending[0].Payload) != string(payload) {
		t.Fatalf("payload mismatch: got %s want %s", all.Pending[0].Payload, payload)
	}
}

func TestGetTileLayerDataMatchesPointReads(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	edits := []TileEdit{
		{Coord: WorldCoord{X: 0, Y: 0}, Index: 1},
		{Coord: WorldCoord{X: 2, Y: 1}, Index: 2},
		{Coord: WorldCoord{X: -1, Y: -1}, Index: 3},
	}
	if err := s.SetTiles(ctx, nil, edits); err != nil {
		t.Fatalf("set tiles: %v", err)
	}

	grid, err := s.GetTileLayerData(ctx, nil, 4, 3, -1, -1)
	if err != nil {
		t.Fatalf("get window: %v", err)
	}
	for _, e := range edits {
		row := e.Coord.Y - (-1)
		col := e.Coord.X - (-1)
		if grid[row][col] != e.Index {
			t.Fatalf("grid[%d][%d] = %v, want %v", row, col, grid[row][col], e.Index)
		}
	}
	tile, found, err := s.GetTile(ctx, nil, 2, 1)
	if err != nil || !found || tile != 2 {
		t.Fatalf("point read mismatch: tile=%v found=%v err=%v", tile, found, err)
	}
}

func TestFlushIsIdempotentAfterQuiescence(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	if err := s.SetTile(ctx, nil, 1, 1, TileIndex(5)); err != nil {
		t.Fatalf("set tile: %v", err)
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("flush 1: %v", err)
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("flush 2: %v", err)
	}
}

func TestSetAttentionLimitRejectsNegative(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	if err := s.SetAttentionLimit(ctx, -1); err == nil {
		t.Fatalf("expected rejection of negative coefficient")
	}
	if err := s.SetAttentionLimit(ctx, 8); err != nil {
		t.Fatalf("set: %v", err)
	}
	limit, err := s.GetAttentionLimit(ctx)
	if err != nil || limit != 8 {
		t.Fatalf("limit=%v err=%v, want 8/nil", limit, err)
	}
}

func TestMoveTaskPreservesFIFOOrder(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	tasks := []Task{{ID: "A", Cost: 1, DurationMs: 1}, {ID: "B", Cost: 1, DurationMs: 1}, {ID: "C", Cost: 1, DurationMs: 1}}
	if _, err := s.PushTasks(ctx, PoolPending, tasks); err != nil {
		t.Fatalf("push: %v", err)
	}
	if err := s.MoveTask(ctx, "B", PoolPending, PoolActive); err != nil {
		t.Fatalf("move: %v", err)
	}
	all, err := s.GetAllTasks(ctx)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all.Pending) != 2 || all.Pending[0].ID != "A" || all.Pending[1].ID != "C" {
		t.Fatalf("pending order = %+v, want [A C]", all.Pending)
	}
}
