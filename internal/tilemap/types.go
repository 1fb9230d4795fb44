// Package tilemap implements the Tilemap Streaming Engine (TSE): a
// predictive double-buffered viewport manager that keeps a finite
// rectangular tile buffer centered on a moving camera while the
// persistent world map is served asynchronously by worldstore.
package tilemap

import "tilestream/internal/worldstore"

// Vec2 is a plain pixel-space 2-vector, used for position, velocity
// (px/ms) and acceleration (px/ms²) alike.
type Vec2 struct {
	X, Y float64
}

// Direction is a per-axis component in {-1,0,1}: the engine's way of
// naming "which edge of the buffer needs more world ahead of it."
// The zero value is the Center sentinel.
type Direction struct {
	X, Y int
}

func (d Direction) IsCenter() bool { return d.X == 0 && d.Y == 0 }

// Rectangle is an axis-aligned pixel rectangle, used for both buffer
// bounds and the SafeZone.
type Rectangle struct {
	X, Y, W, H float64
}

func (r Rectangle) Contains(x, y float64) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

func (r Rectangle) CenterX() float64 { return r.X + r.W/2 }
func (r Rectangle) CenterY() float64 { return r.Y + r.H/2 }

// CellCoord is a buffer-local cell index (i = column, j = row).
type CellCoord struct {
	I, J int
}

// WorldView is the camera's visible world-pixel extent.
type WorldView struct {
	Left, Right, Top, Bottom float64
}

// CameraSample is what the external camera reader exposes
// synchronously.
type CameraSample struct {
	CenterX, CenterY float64
	WorldView        WorldView
	Width, Height    float64
	Zoom             float64
}

// Camera is the external collaborator TSE polls on every tick.
type Camera interface {
	Sample() CameraSample
}

// CameraSpec is the sizing input to New: the camera to poll plus the
// static dimensions used once, at construction, to size the buffers —
// they never change afterward.
type CameraSpec struct {
	Camera  Camera
	Width   float64
	Height  float64
	MinZoom float64
}

// SafeZone is the rest-state short-circuit rectangle.
type SafeZone struct {
	CenterX, CenterY float64
	W, H             float64
}

func (z SafeZone) Contains(x, y float64) bool {
	return x >= z.CenterX-z.W/2 && x <= z.CenterX+z.W/2 &&
		y >= z.CenterY-z.H/2 && y <= z.CenterY+z.H/2
}

// WorldCoord is re-exported from worldstore so callers never need to
// import both packages just to talk about a tile coordinate.
type WorldCoord = worldstore.WorldCoord

// TileIndex is re-exported from worldstore for the same reason.
type TileIndex = worldstore.TileIndex

const Absent = worldstore.Absent
