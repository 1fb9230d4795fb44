package tilemap

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tilestream/internal/config"
	"tilestream/internal/worldstore"
)

type fakeCamera struct {
	mu   sync.Mutex
	x, y float64
	w, h float64
	zoom float64
}

func newFakeCamera(x, y, w, h float64) *fakeCamera {
	return &fakeCamera{x: x, y: y, w: w, h: h, zoom: 1}
}

func (c *fakeCamera) Sample() CameraSample {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CameraSample{
		CenterX: c.x,
		CenterY: c.y,
		WorldView: WorldView{
			Left: c.x - c.w/2, Right: c.x + c.w/2,
			Top: c.y - c.h/2, Bottom: c.y + c.h/2,
		},
		Width:  c.w,
		Height: c.h,
		Zoom:   c.zoom,
	}
}

func (c *fakeCamera) moveTo(x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.x, c.y = x, y
}

func openTestStore(t *testing.T) *worldstore.Store {
	t.Helper()
	dir := t.TempDir()
	store, err := worldstore.Open(filepath.Join(dir, "world.db"), config.Defaults(), nil, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.WaitReady(context.Background()); err != nil {
		t.Fatalf("wait ready: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// newTestEngine builds an engine whose buffer comes out to exactly
// 16x16 tiles at the default 32px tile size: Width/MinZoom = 256,
// and sizeBuffer's 2*viewW/tileSize = 2*256/32 = 16.
func newTestEngine(t *testing.T, cam Camera, cfg config.Config, store *worldstore.Store) *Engine {
	t.Helper()
	spec := CameraSpec{Camera: cam, Width: 256, Height: 256, MinZoom: 1}
	e := New(spec, cfg, store, nil)
	if err := e.WaitReady(context.Background()); err != nil {
		t.Fatalf("wait ready: %v", err)
	}
	t.Cleanup(func() { _ = e.Destroy() })
	return e
}

func fastTestConfig() config.Config {
	cfg := config.Defaults()
	cfg.TickFastMs = 5
	cfg.TickMediumMs = 10
	cfg.TickSlowMs = 15
	cfg.CenterDebounceDelayMs = 40
	return cfg
}

// awaitTileFoundAt polls TileAtWorldPixel until the pixel both falls
// inside the active buffer and carries the expected tile, proving the
// buffer has been (re)anchored to cover it.
func awaitTileFoundAt(t *testing.T, e *Engine, x, y float64, want TileIndex) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		tile, found, err := e.TileAtWorldPixel(context.Background(), x, y)
		if err != nil {
			t.Fatalf("tile at pixel: %v", err)
		}
		if found && tile == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("pixel (%v,%v) never showed tile %v", x, y, want)
}

// updateTileUntilStable repeatedly applies UpdateTile and reads the
// pixel back, since the engine's own initial centering generation can
// still be in flight right after WaitReady and would otherwise
// clobber a write made before it lands. Once a write is observed to
// stick, the buffer has settled.
func updateTileUntilStable(t *testing.T, e *Engine, x, y int, idx TileIndex, px, py float64) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if err := e.UpdateTile(context.Background(), x, y, idx); err != nil {
			t.Fatalf("update tile: %v", err)
		}
		tile, found, err := e.TileAtWorldPixel(context.Background(), px, py)
		if err != nil {
			t.Fatalf("tile at pixel: %v", err)
		}
		if found && tile == idx {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("update to (%d,%d) never stuck", x, y)
}

// TestColdStartAnchorsBufferOnOrigin verifies the cold-start math: a
// camera centered on (0,0) with a 16x16 buffer of 32px tiles anchors
// the active layer at world tile (-8,-8), so a tile planted there is
// visible at the corresponding pixel as soon as the initial
// generation completes.
func TestColdStartAnchorsBufferOnOrigin(t *testing.T) {
	store := openTestStore(t)
	if err := store.SetTile(context.Background(), nil, -8, -8, TileIndex(42)); err != nil {
		t.Fatalf("set tile: %v", err)
	}

	cam := newFakeCamera(0, 0, 256, 256)
	e := newTestEngine(t, cam, fastTestConfig(), store)

	awaitTileFoundAt(t, e, -8*32+1, -8*32+1, 42)
}

// TestIsCameraInSafeZoneAtRest checks that a camera sitting at the
// buffer's center is reported inside the SafeZone.
func TestIsCameraInSafeZoneAtRest(t *testing.T) {
	store := openTestStore(t)
	cam := newFakeCamera(0, 0, 256, 256)
	e := newTestEngine(t, cam, fastTestConfig(), store)

	inSafe, err := e.IsCameraInSafeZone(context.Background())
	if err != nil {
		t.Fatalf("in safe zone: %v", err)
	}
	if !inSafe {
		t.Fatalf("camera at buffer center should be inside the safe zone")
	}
}

// TestUpdateTileOverwritesActiveBuffer exercises UpdateTile against
// the currently displayed cell and reads it back through
// TileAtWorldPixel.
func TestUpdateTileOverwritesActiveBuffer(t *testing.T) {
	store := openTestStore(t)
	cam := newFakeCamera(0, 0, 256, 256)
	e := newTestEngine(t, cam, fastTestConfig(), store)

	updateTileUntilStable(t, e, 0, 0, TileIndex(9), 1, 1)
}

// TestIsTileConnectedChecksNeighbors exercises the 4-neighbor
// connectivity check used by gap-filling callers.
func TestIsTileConnectedChecksNeighbors(t *testing.T) {
	store := openTestStore(t)
	cam := newFakeCamera(0, 0, 256, 256)
	e := newTestEngine(t, cam, fastTestConfig(), store)

	updateTileUntilStable(t, e, 2, 2, TileIndex(1), 2*32+1, 2*32+1)

	connected, err := e.IsTileConnected(context.Background(), 2, 3)
	if err != nil {
		t.Fatalf("is connected: %v", err)
	}
	if !connected {
		t.Fatalf("cell adjacent to a present tile should be connected")
	}

	connected, err = e.IsTileConnected(context.Background(), 2, 10)
	if err != nil {
		t.Fatalf("is connected: %v", err)
	}
	if connected {
		t.Fatalf("cell far from any present tile should not be connected")
	}
}

// TestSteadyDriftTriggersMovementGeneration drives the camera toward
// one edge of the buffer at a steady velocity and waits for a tile
// planted well east of the starting anchor to come into view, proving
// the predictive movement path re-anchors the buffer.
func TestSteadyDriftTriggersMovementGeneration(t *testing.T) {
	store := openTestStore(t)
	if err := store.SetTile(context.Background(), nil, 40, 0, TileIndex(7)); err != nil {
		t.Fatalf("set tile: %v", err)
	}

	cam := newFakeCamera(0, 0, 256, 256)
	e := newTestEngine(t, cam, fastTestConfig(), store)

	go func() {
		for i := 0; i < 80; i++ {
			cam.moveTo(float64(i)*25, 0)
			time.Sleep(5 * time.Millisecond)
		}
	}()

	awaitTileFoundAt(t, e, 40*32+1, 1, 7)
}

// TestCenterDebounceFiresAfterStop moves the camera then holds it
// still; once it settles below the stop threshold for the debounce
// delay, the buffer re-centers on the camera's resting position and a
// tile planted in the cell under that resting position becomes visible.
func TestCenterDebounceFiresAfterStop(t *testing.T) {
	store := openTestStore(t)
	if err := store.SetTile(context.Background(), nil, 15, 15, TileIndex(3)); err != nil {
		t.Fatalf("set tile: %v", err)
	}

	cam := newFakeCamera(0, 0, 256, 256)
	cfg := fastTestConfig()
	cfg.CenterDebounceDelayMs = 30
	e := newTestEngine(t, cam, cfg, store)

	cam.moveTo(500, 500)
	time.Sleep(60 * time.Millisecond)
	cam.moveTo(500, 500) // hold still so velocity decays below the stop threshold

	awaitTileFoundAt(t, e, 500, 500, 3)
}

func TestDestroyStopsActorGoroutine(t *testing.T) {
	store := openTestStore(t)
	cam := newFakeCamera(0, 0, 256, 256)
	e := newTestEngine(t, cam, fastTestConfig(), store)
	if err := e.Destroy(); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if err := e.Destroy(); err != nil {
		t.Fatalf("second destroy: %v", err)
	}
}
