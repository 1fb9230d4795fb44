package tilemap

import (
	"math"

	"tilestream/internal/mathx"
)

// centerTarget centers the buffer on the given camera pixel. Verified
// against the cold-start scenario: camera (0,0), 16×16 tiles at 32px
// → anchor (-8,-8).
func (e *Engine) centerTarget(centerX, centerY float64) WorldCoord {
	halfW := float64(e.bufW*e.cfg.TileSize) / 2
	halfH := float64(e.bufH*e.cfg.TileSize) / 2
	return WorldCoord{
		X: mathx.FloorDiv(int(centerX-halfW), e.cfg.TileSize),
		Y: mathx.FloorDiv(int(centerY-halfH), e.cfg.TileSize),
	}
}

// movementTarget computes the edge-aligned anchor for a movement
// request: the incoming edge sits at least two tiles beyond the
// camera's world view on the axis (axes) that moved, and the
// perpendicular axis keeps the anchor that was in effect when the job
// was enqueued.
func (e *Engine) movementTarget(dir Direction, enqueueAnchor WorldCoord, view WorldView) WorldCoord {
	const marginTiles = 2
	target := enqueueAnchor
	ts := e.cfg.TileSize

	switch dir.X {
	case 1:
		edge := view.Right + float64(marginTiles*ts)
		target.X = mathx.FloorDiv(int(math.Ceil(edge))+ts-1, ts) - e.bufW
	case -1:
		edge := view.Left - float64(marginTiles*ts)
		target.X = mathx.FloorDiv(int(edge), ts)
	}

	switch dir.Y {
	case 1:
		edge := view.Bottom + float64(marginTiles*ts)
		target.Y = mathx.FloorDiv(int(math.Ceil(edge))+ts-1, ts) - e.bufH
	case -1:
		edge := view.Top - float64(marginTiles*ts)
		target.Y = mathx.FloorDiv(int(edge), ts)
	}

	return target
}

// targetFor dispatches on the request kind: a zero Direction is the
// Center sentinel.
func (e *Engine) targetFor(dir Direction, enqueueAnchor WorldCoord, sample CameraSample) WorldCoord {
	if dir.IsCenter() {
		return e.centerTarget(sample.CenterX, sample.CenterY)
	}
	return e.movementTarget(dir, enqueueAnchor, sample.WorldView)
}
