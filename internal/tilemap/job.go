package tilemap

import "context"

// jobState is the per-job-slot state machine: Idle or
// Generating(target, dir), with a pending side-variable.
type jobState int

const (
	stateIdle jobState = iota
	stateGenerating
)

// job is the engine's single in-flight generation slot plus its
// pending-next request.
type job struct {
	state jobState

	target        WorldCoord
	dir           Direction
	enqueueAnchor WorldCoord

	pending *Direction

	genID uint64
}

// submitMovement and submitCenter enforce target priority: a movement
// request always supersedes a queued center request; a center request
// never displaces a queued movement.
func (e *Engine) submitMovement(dir Direction) {
	switch e.job.state {
	case stateIdle:
		e.startGeneration(dir)
	case stateGenerating:
		d := dir
		e.job.pending = &d
	}
}

func (e *Engine) submitCenter() {
	switch e.job.state {
	case stateIdle:
		e.startGeneration(Direction{})
	case stateGenerating:
		if e.job.pending == nil {
			d := Direction{}
			e.job.pending = &d
		}
	}
}

// startGeneration computes the target anchor for dir, transitions
// Idle→Generating, and kicks off the async PWS read. The result
// arrives later as an opGenerationDone request carrying genID, so a
// Destroy or a superseding job can be told apart from a stale result.
func (e *Engine) startGeneration(dir Direction) {
	sample := e.camera.Sample()
	enqueueAnchor := e.activeLayer().Anchor()
	target := e.targetFor(dir, enqueueAnchor, sample)

	e.genSeq++
	genID := e.genSeq
	e.job = job{state: stateGenerating, target: target, dir: dir, enqueueAnchor: enqueueAnchor, genID: genID}

	go e.runGeneration(genID, target)
}

// runGeneration performs the (possibly slow) PWS window read off the
// actor goroutine, then posts the result back through reqCh so the
// actual state mutation still happens single-threaded.
func (e *Engine) runGeneration(genID uint64, target WorldCoord) {
	grid, err := e.store.GetTileLayerData(context.Background(), e.levelIndex, e.bufW, e.bufH, target.X, target.Y)
	req := newRequest(opGenerationDone)
	req.genID = genID
	req.target = target
	req.grid = grid
	req.err = err
	select {
	case e.reqCh <- req:
	case <-e.stopCh:
	}
}

// completeGeneration implements the completion rule: if pending
// differs from the dir that just completed, re-enter with pending as
// the new request (discarding this now-stale result); otherwise
// apply, swap, and go Idle. A result from a job slot no longer
// matching this genID (superseded, or the engine already destroyed)
// is silently discarded.
func (e *Engine) completeGeneration(req *request) {
	if e.job.state != stateGenerating || e.job.genID != req.genID {
		return
	}
	if req.err != nil {
		e.logger.Printf("tilemap: generation failed: %v", req.err)
		e.job = job{state: stateIdle}
		return
	}

	if e.job.pending != nil && *e.job.pending != e.job.dir {
		next := *e.job.pending
		e.job = job{state: stateIdle}
		if next.IsCenter() {
			e.submitCenter()
		} else {
			e.submitMovement(next)
		}
		return
	}

	e.applySwap(req.target, req.grid)
	e.job = job{state: stateIdle}
}

// applySwap is the uninterruptible double-buffer swap protocol: hide
// scratch, reposition it, blit, reveal it, swap roles, hide the new
// scratch, recompute SafeZone. Because it runs entirely inside the
// single actor turn that received the generation result, no observer
// ever sees an intermediate state.
func (e *Engine) applySwap(target WorldCoord, grid [][]TileIndex) {
	scratch := e.scratchLayer()
	scratch.SetVisible(false)
	scratch.SetPosition(float64(target.X*e.cfg.TileSize), float64(target.Y*e.cfg.TileSize))
	scratch.PutTilesAt(grid, 0, 0)
	scratch.SetVisible(true)

	e.activeIdx ^= 1

	e.scratchLayer().SetVisible(false)
	e.recomputeSafeZone()
}
