package tilemap

import "math"

// evaluatePredictiveNeed decides whether a movement request is needed:
// below the stop threshold it arms the center-on-stop debounce;
// otherwise it predicts a future pixel position and decides whether a
// movement request should fire.
func (e *Engine) evaluatePredictiveNeed(sample CameraSample, scheduleCenterDebounce, cancelCenterDebounce func()) {
	speed := magnitude(e.vel.V)
	if speed < e.cfg.StopThresholdPxMs {
		scheduleCenterDebounce()
		return
	}
	cancelCenterDebounce()

	T := float64(e.cfg.PredictionTimeMs)
	predX := sample.CenterX + e.vel.V.X*T + 0.5*e.vel.A.X*T*T
	predY := sample.CenterY + e.vel.V.Y*T + 0.5*e.vel.A.Y*T*T

	active := e.activeLayer()
	cell, inBounds := active.WorldToTileXY(predX, predY)

	var dir Direction
	if !inBounds {
		dir = outOfBoundsDirection(active.Bounds(), predX, predY)
	} else {
		dir = e.dominantDirection(cell, active)
	}

	if dir.X != 0 || dir.Y != 0 {
		e.submitMovement(dir)
	}
}

// outOfBoundsDirection points toward whichever side(s) of the buffer
// the predicted pixel falls outside of.
func outOfBoundsDirection(bounds Rectangle, px, py float64) Direction {
	var d Direction
	switch {
	case px < bounds.X:
		d.X = -1
	case px >= bounds.X+bounds.W:
		d.X = 1
	}
	switch {
	case py < bounds.Y:
		d.Y = -1
	case py >= bounds.Y+bounds.H:
		d.Y = 1
	}
	return d
}

// axisThresholds applies the axis-dominance test: the axis whose
// normalized-direction component exceeds the dominance ratio times
// the other's gets the aggressive threshold; the other (or both, if
// neither dominates) gets the base threshold.
func (e *Engine) axisThresholds(d Vec2) (rx, ry float64) {
	rx, ry = e.cfg.BaseThreshold, e.cfg.BaseThreshold
	ratio := e.cfg.DirectionDominance
	switch {
	case math.Abs(d.X) > ratio*math.Abs(d.Y):
		rx = e.cfg.AggressiveThreshold
	case math.Abs(d.Y) > ratio*math.Abs(d.X):
		ry = e.cfg.AggressiveThreshold
	}
	return
}

// dominantDirection is the in-bounds branch of predictive need: for
// each axis whose normalized motion exceeds 0.1, emit ±1 if the
// predicted cell lies within ratio·extent tiles of the edge the
// camera is moving toward.
func (e *Engine) dominantDirection(cell CellCoord, active *TileLayer) Direction {
	speed := magnitude(e.vel.V)
	if speed == 0 {
		return Direction{}
	}
	d := normalize(e.vel.V)
	rx, ry := e.axisThresholds(d)
	w, h := active.Tiles()

	var dir Direction
	if math.Abs(d.X) > 0.1 {
		if d.X > 0 {
			if edgeFraction(w-1-cell.I, w) <= rx {
				dir.X = 1
			}
		} else {
			if edgeFraction(cell.I, w) <= rx {
				dir.X = -1
			}
		}
	}
	if math.Abs(d.Y) > 0.1 {
		if d.Y > 0 {
			if edgeFraction(h-1-cell.J, h) <= ry {
				dir.Y = 1
			}
		} else {
			if edgeFraction(cell.J, h) <= ry {
				dir.Y = -1
			}
		}
	}
	return dir
}

func edgeFraction(distanceTiles, extent int) float64 {
	if extent == 0 {
		return 0
	}
	return float64(distanceTiles) / float64(extent)
}
