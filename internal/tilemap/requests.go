package tilemap

import "context"

type opKind int

const (
	opTick opKind = iota
	opCenterDebounceFire
	opGenerationDone
	opIsCameraInSafeZone
	opTileAtWorldPixel
	opIsTileConnected
	opUpdateTile
)

type request struct {
	kind opKind

	// generation result fields (opGenerationDone)
	genID  uint64
	target WorldCoord
	grid   [][]TileIndex
	err    error

	// query fields
	x, y int
	idx  TileIndex

	resp chan response
}

type response struct {
	inSafeZone bool
	tile       TileIndex
	found      bool
	connected  bool
}

func newRequest(kind opKind) *request {
	return &request{kind: kind, resp: make(chan response, 1)}
}

func (e *Engine) do(ctx context.Context, req *request) (response, error) {
	select {
	case e.reqCh <- req:
	case <-e.stopCh:
		return response{}, errClosed
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
	select {
	case resp := <-req.resp:
		return resp, nil
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
}

// IsCameraInSafeZone reports true when the camera's current center
// lies inside the SafeZone, in which case callers may skip
// surrounding work.
func (e *Engine) IsCameraInSafeZone(ctx context.Context) (bool, error) {
	resp, err := e.do(ctx, newRequest(opIsCameraInSafeZone))
	if err != nil {
		return false, err
	}
	return resp.inSafeZone, nil
}

// TileAtWorldPixel looks up the currently displayed tile; absent if
// the pixel lies outside the active buffer.
func (e *Engine) TileAtWorldPixel(ctx context.Context, x, y float64) (TileIndex, bool, error) {
	req := newRequest(opTileAtWorldPixel)
	req.x, req.y = int(x), int(y)
	resp, err := e.do(ctx, req)
	if err != nil {
		return Absent, false, err
	}
	return resp.tile, resp.found, nil
}

// IsTileConnected reports whether a world cell is present in the
// active buffer, or at least one 4-neighbor is.
func (e *Engine) IsTileConnected(ctx context.Context, x, y int) (bool, error) {
	req := newRequest(opIsTileConnected)
	req.x, req.y = x, y
	resp, err := e.do(ctx, req)
	if err != nil {
		return false, err
	}
	return resp.connected, nil
}

// UpdateTile overwrites the visible buffer cell for a world coord, if
// it falls within the active buffer; otherwise it is a no-op.
func (e *Engine) UpdateTile(ctx context.Context, x, y int, idx TileIndex) error {
	req := newRequest(opUpdateTile)
	req.x, req.y, req.idx = x, y, idx
	_, err := e.do(ctx, req)
	return err
}

// Destroy stops the actor goroutine and cancels its timers; safe to
// call more than once. A generation already in flight is allowed to
// finish on its own goroutine, but its result is simply dropped: by
// the time it would arrive, nothing is left reading reqCh.
func (e *Engine) Destroy() error {
	e.destroyOnce.Do(func() { close(e.stopCh) })
	e.done.Wait()
	return nil
}
