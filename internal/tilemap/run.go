package tilemap

import "time"

// run is the actor's body: one goroutine, one select loop. Every
// mutation of the engine's fields happens here, matching
// attention.Scheduler.run and worldstore.Store.run. The adaptive tick
// re-arms itself with whatever interval the just-updated velocity
// implies; the center-on-stop debounce and each async generation post
// themselves back onto reqCh the same way.
func (e *Engine) run() {
	var tickTimer, centerTimer *time.Timer

	defer func() {
		for _, t := range []*time.Timer{tickTimer, centerTimer} {
			if t != nil {
				t.Stop()
			}
		}
	}()

	post := func(kind opKind) {
		select {
		case e.reqCh <- newRequest(kind):
		case <-e.stopCh:
		}
	}

	armTick := func(d time.Duration) {
		if tickTimer != nil {
			tickTimer.Stop()
		}
		tickTimer = time.AfterFunc(d, func() { post(opTick) })
	}

	scheduleCenterDebounce := func() {
		if centerTimer != nil {
			return // already counting down; only the first detection arms it
		}
		centerTimer = time.AfterFunc(e.cfg.CenterDebounceDelay(), func() { post(opCenterDebounceFire) })
	}
	cancelCenterDebounce := func() {
		if centerTimer != nil {
			centerTimer.Stop()
			centerTimer = nil
		}
	}

	// The initial generation centered on the camera runs here, not in
	// New, so the job slot is only ever touched from this goroutine.
	e.submitCenter()
	armTick(e.cfg.TickSlow())

	for {
		select {
		case <-e.stopCh:
			return
		case req := <-e.reqCh:
			resp := e.handle(req, scheduleCenterDebounce, cancelCenterDebounce)
			if req.resp != nil {
				req.resp <- resp
			}
			if req.kind == opTick {
				armTick(e.tickInterval())
			}
			if req.kind == opCenterDebounceFire {
				centerTimer = nil
			}
		}
	}
}

// handle dispatches one request against the engine's state.
func (e *Engine) handle(req *request, scheduleCenterDebounce, cancelCenterDebounce func()) response {
	switch req.kind {
	case opTick:
		e.runTick(scheduleCenterDebounce, cancelCenterDebounce)
		return response{}
	case opCenterDebounceFire:
		if magnitude(e.vel.V) < e.cfg.StopThresholdPxMs {
			e.submitCenter()
		}
		return response{}
	case opGenerationDone:
		e.completeGeneration(req)
		return response{}
	case opIsCameraInSafeZone:
		sample := e.camera.Sample()
		return response{inSafeZone: e.safeZone.Contains(sample.CenterX, sample.CenterY)}
	case opTileAtWorldPixel:
		return e.handleTileAtWorldPixel(req)
	case opIsTileConnected:
		return e.handleIsTileConnected(req)
	case opUpdateTile:
		e.handleUpdateTile(req)
		return response{}
	default:
		return response{}
	}
}

// runTick implements the per-tick body: sample the camera, update the
// velocity filter (teleport handling included), then evaluate
// predictive need — unless a teleport already forced a center
// request, or the camera's whole-tick position already sits inside
// the SafeZone, in which case no generation job starts and no
// direction request is emitted (no-thrash).
func (e *Engine) runTick(scheduleCenterDebounce, cancelCenterDebounce func()) {
	sample := e.camera.Sample()
	now := time.Now()
	pos := Vec2{X: sample.CenterX, Y: sample.CenterY}

	teleported := e.updateVelocity(now, pos)
	if teleported {
		cancelCenterDebounce()
		e.submitCenter()
		return
	}
	if e.safeZone.Contains(sample.CenterX, sample.CenterY) {
		return
	}
	e.evaluatePredictiveNeed(sample, scheduleCenterDebounce, cancelCenterDebounce)
}

// tickInterval implements adaptive ticking: faster polling while the
// camera moves quickly, slower at rest.
func (e *Engine) tickInterval() time.Duration {
	speed := magnitude(e.vel.V)
	switch {
	case speed > 2.0:
		return e.cfg.TickFast()
	case speed > e.cfg.StopThresholdPxMs:
		return e.cfg.TickMedium()
	default:
		return e.cfg.TickSlow()
	}
}

func (e *Engine) handleTileAtWorldPixel(req *request) response {
	active := e.activeLayer()
	cell, ok := active.WorldToTileXY(float64(req.x), float64(req.y))
	if !ok {
		return response{tile: Absent, found: false}
	}
	tile := active.GetTileAt(cell.I, cell.J)
	return response{tile: tile, found: tile != Absent}
}

func (e *Engine) handleIsTileConnected(req *request) response {
	active := e.activeLayer()
	coord := WorldCoord{X: req.x, Y: req.y}
	if e.cellPresent(active, coord) {
		return response{connected: true}
	}
	neighbors := []WorldCoord{
		{X: coord.X + 1, Y: coord.Y},
		{X: coord.X - 1, Y: coord.Y},
		{X: coord.X, Y: coord.Y + 1},
		{X: coord.X, Y: coord.Y - 1},
	}
	for _, n := range neighbors {
		if e.cellPresent(active, n) {
			return response{connected: true}
		}
	}
	return response{connected: false}
}

func (e *Engine) cellPresent(active *TileLayer, coord WorldCoord) bool {
	cell, ok := active.cellForWorldCoord(coord)
	if !ok {
		return false
	}
	return active.GetTileAt(cell.I, cell.J) != Absent
}

func (e *Engine) handleUpdateTile(req *request) {
	active := e.activeLayer()
	coord := WorldCoord{X: req.x, Y: req.y}
	cell, ok := active.cellForWorldCoord(coord)
	if !ok {
		return
	}
	active.PutTileAt(req.idx, cell.I, cell.J)
}
