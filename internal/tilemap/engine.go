package tilemap

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"

	"tilestream/internal/config"
	"tilestream/internal/worldstore"
)

var errClosed = fmt.Errorf("tilemap: closed")

// Engine is the Tilemap Streaming Engine actor: a single goroutine
// owning the double buffer, velocity filter, SafeZone and job slot,
// mirroring attention.Scheduler's and worldstore.Store's
// request/response actor shape. Each subsystem runs as a single
// process-wide singleton.
type Engine struct {
	cfg        config.Config
	store      *worldstore.Store
	camera     Camera
	levelIndex *int
	logger     *log.Logger

	bufW, bufH int

	buffers   [2]*TileLayer
	activeIdx int

	vel      VelocityState
	safeZone SafeZone
	job      job

	genSeq uint64

	reqCh   chan *request
	stopCh  chan struct{}
	readyCh chan struct{}

	destroyOnce sync.Once
	done        sync.WaitGroup
}

// Option customizes New beyond its (camera_spec, persistence_handle)
// contract, e.g. an explicit buffer size or a pinned non-default
// level.
type Option func(*Engine)

// WithBufferSize overrides the derived buffer sizing with an explicit
// tile-grid extent, for callers (and tests) that want exact control
// rather than deriving it from camera dims and minZoom.
func WithBufferSize(w, h int) Option {
	return func(e *Engine) { e.bufW, e.bufH = w, h }
}

// WithLevelIndex pins the engine to one PWS level instead of
// following the store's "current" level.
func WithLevelIndex(idx int) Option {
	return func(e *Engine) { i := idx; e.levelIndex = &i }
}

// New initializes the two buffers, computes their common size from
// the camera spec and minZoom (Invariant A1), and schedules an
// initial generation centered on the camera.
func New(spec CameraSpec, cfg config.Config, store *worldstore.Store, logger *log.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = log.New(log.Writer(), "[tilemap] ", log.LstdFlags)
	}
	e := &Engine{
		cfg:     cfg,
		store:   store,
		camera:  spec.Camera,
		logger:  logger,
		reqCh:   make(chan *request, 256),
		stopCh:  make(chan struct{}),
		readyCh: make(chan struct{}),
	}
	e.bufW, e.bufH = sizeBuffer(spec, cfg.TileSize)
	for _, opt := range opts {
		opt(e)
	}
	if e.bufW < 1 {
		e.bufW = 1
	}
	if e.bufH < 1 {
		e.bufH = 1
	}

	e.buffers[0] = newTileLayer(e.bufW, e.bufH, cfg.TileSize)
	e.buffers[1] = newTileLayer(e.bufW, e.bufH, cfg.TileSize)

	sample := spec.Camera.Sample()
	initialAnchor := e.centerTarget(sample.CenterX, sample.CenterY)
	e.activeLayer().SetPosition(float64(initialAnchor.X*cfg.TileSize), float64(initialAnchor.Y*cfg.TileSize))
	e.activeLayer().SetVisible(true)
	e.recomputeSafeZone()

	e.done.Add(1)
	go func() {
		defer e.done.Done()
		close(e.readyCh)
		e.run()
	}()

	return e
}

// sizeBuffer implements Invariant A1: the buffer covers at least two
// visible viewports at maximum zoom-out (the smallest zoom value, at
// which the most world is visible per screen pixel).
func sizeBuffer(spec CameraSpec, tileSize int) (int, int) {
	minZoom := spec.MinZoom
	if minZoom <= 0 {
		minZoom = 1
	}
	viewW := spec.Width / minZoom
	viewH := spec.Height / minZoom
	w := int(math.Ceil(2 * viewW / float64(tileSize)))
	h := int(math.Ceil(2 * viewH / float64(tileSize)))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

func (e *Engine) WaitReady(ctx context.Context) error {
	select {
	case <-e.readyCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) activeLayer() *TileLayer  { return e.buffers[e.activeIdx] }
func (e *Engine) scratchLayer() *TileLayer { return e.buffers[e.activeIdx^1] }

// recomputeSafeZone is Invariant A3: the SafeZone is a fixed fraction
// of the active buffer's pixel extent, centered on it.
func (e *Engine) recomputeSafeZone() {
	b := e.activeLayer().Bounds()
	e.safeZone = SafeZone{
		CenterX: b.CenterX(),
		CenterY: b.CenterY(),
		W:       b.W * e.cfg.BaseSafeZoneRatio,
		H:       b.H * e.cfg.BaseSafeZoneRatio,
	}
}
