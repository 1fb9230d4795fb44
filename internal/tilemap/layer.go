package tilemap

import "tilestream/internal/mathx"

// TileLayer holds the data half of one of the two rendering-toolkit
// layer primitives: a fixed W×H grid of tile indices positioned at a
// pixel origin. The GPU-side draw call is the external rendering
// toolkit's job, out of scope here; this struct is the buffer the
// engine hands it, and it implements the same primitive contract
// (set_visible, set_position, put_tiles_at, ...) so the swap protocol
// reads the same regardless of which side is driving it.
type TileLayer struct {
	w, h, tileSize int
	visible        bool
	px, py         float64
	cells          []TileIndex // row-major, length w*h
}

func newTileLayer(w, h, tileSize int) *TileLayer {
	cells := make([]TileIndex, w*h)
	for i := range cells {
		cells[i] = Absent
	}
	return &TileLayer{w: w, h: h, tileSize: tileSize, cells: cells}
}

func (l *TileLayer) Tiles() (w, h int) { return l.w, l.h }

func (l *TileLayer) SetVisible(v bool) { l.visible = v }
func (l *TileLayer) Visible() bool     { return l.visible }

func (l *TileLayer) SetPosition(px, py float64) { l.px, l.py = px, py }

// Bounds is the layer's current pixel rectangle, matching the
// get_bounds primitive.
func (l *TileLayer) Bounds() Rectangle {
	return Rectangle{X: l.px, Y: l.py, W: float64(l.w * l.tileSize), H: float64(l.h * l.tileSize)}
}

// Anchor is the world tile coordinate of cell (0,0), derived from the
// pixel position: no pixel coordinate is ever stored as
// source-of-truth.
func (l *TileLayer) Anchor() WorldCoord {
	return WorldCoord{X: mathx.FloorDiv(int(l.px), l.tileSize), Y: mathx.FloorDiv(int(l.py), l.tileSize)}
}

func (l *TileLayer) idx(i, j int) (int, bool) {
	if i < 0 || i >= l.w || j < 0 || j >= l.h {
		return 0, false
	}
	return j*l.w + i, true
}

// GetTileAt matches the get_tile_at primitive; out-of-range cells
// read as Absent.
func (l *TileLayer) GetTileAt(i, j int) TileIndex {
	k, ok := l.idx(i, j)
	if !ok {
		return Absent
	}
	return l.cells[k]
}

// PutTileAt matches put_tile_at; out-of-range writes are no-ops.
func (l *TileLayer) PutTileAt(idx TileIndex, i, j int) {
	k, ok := l.idx(i, j)
	if !ok {
		return
	}
	l.cells[k] = idx
}

// PutTilesAt matches put_tiles_at(grid, i0, j0): blit a row-major grid
// (row[y][x], matching worldstore.GetTileLayerData's shape) with its
// top-left corner at buffer cell (i0, j0).
func (l *TileLayer) PutTilesAt(grid [][]TileIndex, i0, j0 int) {
	for row, line := range grid {
		for col, v := range line {
			l.PutTileAt(v, i0+col, j0+row)
		}
	}
}

// WorldToTileXY matches world_to_tile_xy: absent iff the pixel lies
// outside the buffer's pixel extent.
func (l *TileLayer) WorldToTileXY(px, py float64) (CellCoord, bool) {
	b := l.Bounds()
	if !b.Contains(px, py) {
		return CellCoord{}, false
	}
	i := mathx.FloorDiv(int(px)-int(l.px), l.tileSize)
	j := mathx.FloorDiv(int(py)-int(l.py), l.tileSize)
	return CellCoord{I: i, J: j}, true
}

// cellForWorldCoord converts a world tile coordinate into this
// layer's local cell indices, relative to its current anchor.
func (l *TileLayer) cellForWorldCoord(c WorldCoord) (CellCoord, bool) {
	anchor := l.Anchor()
	i, j := c.X-anchor.X, c.Y-anchor.Y
	if i < 0 || i >= l.w || j < 0 || j >= l.h {
		return CellCoord{}, false
	}
	return CellCoord{I: i, J: j}, true
}
