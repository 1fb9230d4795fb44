package worldstore

import "context"

type opKind int

const (
	opGetTileLayerData opKind = iota
	opGetTile
	opSetTile
	opSetTiles
	opGetCurrentLevelIndex
	opSetCurrentLevelIndex
	opGetTilesCountInLevel
	opGetAllTasks
	opMoveTask
	opPushTasks
	opRemoveTask
	opUpdateActiveProgress
	opGetAttentionLimit
	opSetAttentionLimit
	opFlush
)

type request struct {
	kind opKind

	levelIndex int
	hasLevel   bool

	w, h, offsetX, offsetY int
	x, y                   int
	idx                    TileIndex
	edits                  []TileEdit

	taskID   TaskID
	fromPool PoolKind
	toPool   PoolKind
	tasks    []Task
	progress []ActiveProgress
	limit    int

	resp chan response
}

type response struct {
	grid      [][]TileIndex
	tile      TileIndex
	found     bool
	levelIndex int
	count     int
	tasks     PoolSnapshot
	ids       []TaskID
	limit     int
	err       error
}

func newRequest(kind opKind) *request {
	return &request{kind: kind, resp: make(chan response, 1)}
}

// resolveLevel returns the request's level index if explicit, else
// the store's current level.
func (st *worldState) resolveLevel(req *request) int {
	if req.hasLevel {
		return req.levelIndex
	}
	return st.meta.CurrentLevelIndex
}

// GetTileLayerData reads a rectangular window by world coords,
// row-major (row[y][x]), substituting Absent for unset cells.
func (s *Store) GetTileLayerData(ctx context.Context, levelIndex *int, w, h, offsetX, offsetY int) ([][]TileIndex, error) {
	req := newRequest(opGetTileLayerData)
	if levelIndex != nil {
		req.hasLevel, req.levelIndex = true, *levelIndex
	}
	req.w, req.h, req.offsetX, req.offsetY = w, h, offsetX, offsetY
	resp, err := s.do(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.grid, resp.err
}

func (s *Store) GetTile(ctx context.Context, levelIndex *int, x, y int) (TileIndex, bool, error) {
	req := newRequest(opGetTile)
	if levelIndex != nil {
		req.hasLevel, req.levelIndex = true, *levelIndex
	}
	req.x, req.y = x, y
	resp, err := s.do(ctx, req)
	if err != nil {
		return Absent, false, err
	}
	return resp.tile, resp.found, resp.err
}

func (s *Store) SetTile(ctx context.Context, levelIndex *int, x, y int, idx TileIndex) error {
	req := newRequest(opSetTile)
	if levelIndex != nil {
		req.hasLevel, req.levelIndex = true, *levelIndex
	}
	req.x, req.y, req.idx = x, y, idx
	resp, err := s.do(ctx, req)
	if err != nil {
		return err
	}
	return resp.err
}

func (s *Store) SetTiles(ctx context.Context, levelIndex *int, edits []TileEdit) error {
	req := newRequest(opSetTiles)
	if levelIndex != nil {
		req.hasLevel, req.levelIndex = true, *levelIndex
	}
	req.edits = edits
	resp, err := s.do(ctx, req)
	if err != nil {
		return err
	}
	return resp.err
}

func (s *Store) GetCurrentLevelIndex(ctx context.Context) (int, error) {
	resp, err := s.do(ctx, newRequest(opGetCurrentLevelIndex))
	if err != nil {
		return 0, err
	}
	return resp.levelIndex, resp.err
}

func (s *Store) SetCurrentLevelIndex(ctx context.Context, idx int) error {
	req := newRequest(opSetCurrentLevelIndex)
	req.levelIndex = idx
	resp, err := s.do(ctx, req)
	if err != nil {
		return err
	}
	return resp.err
}

func (s *Store) GetTilesCountInLevel(ctx context.Context, levelIndex *int) (int, error) {
	req := newRequest(opGetTilesCountInLevel)
	if levelIndex != nil {
		req.hasLevel, req.levelIndex = true, *levelIndex
	}
	resp, err := s.do(ctx, req)
	if err != nil {
		return 0, err
	}
	return resp.count, resp.err
}

func (s *Store) GetAllTasks(ctx context.Context) (PoolSnapshot, error) {
	resp, err := s.do(ctx, newRequest(opGetAllTasks))
	if err != nil {
		return PoolSnapshot{}, err
	}
	return resp.tasks, resp.err
}

func (s *Store) MoveTask(ctx context.Context, id TaskID, from, to PoolKind) error {
	req := newRequest(opMoveTask)
	req.taskID, req.fromPool, req.toPool = id, from, to
	resp, err := s.do(ctx, req)
	if err != nil {
		return err
	}
	return resp.err
}

func (s *Store) PushTasks(ctx context.Context, pool PoolKind, tasks []Task) ([]TaskID, error) {
	req := newRequest(opPushTasks)
	req.toPool, req.tasks = pool, tasks
	resp, err := s.do(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.ids, resp.err
}

func (s *Store) RemoveTask(ctx context.Context, id TaskID, from PoolKind) error {
	req := newRequest(opRemoveTask)
	req.taskID, req.fromPool = id, from
	resp, err := s.do(ctx, req)
	if err != nil {
		return err
	}
	return resp.err
}

func (s *Store) UpdateActiveProgress(ctx context.Context, progress []ActiveProgress) error {
	req := newRequest(opUpdateActiveProgress)
	req.progress = progress
	resp, err := s.do(ctx, req)
	if err != nil {
		return err
	}
	return resp.err
}

func (s *Store) GetAttentionLimit(ctx context.Context) (int, error) {
	resp, err := s.do(ctx, newRequest(opGetAttentionLimit))
	if err != nil {
		return 0, err
	}
	return resp.limit, resp.err
}

func (s *Store) SetAttentionLimit(ctx context.Context, limit int) error {
	req := newRequest(opSetAttentionLimit)
	req.limit = limit
	resp, err := s.do(ctx, req)
	if err != nil {
		return err
	}
	return resp.err
}

// Flush cancels the autosave coalescer and persists synchronously,
// surfacing any transaction failure to the caller.
func (s *Store) Flush(ctx context.Context) error {
	resp, err := s.do(ctx, newRequest(opFlush))
	if err != nil {
		return err
	}
	return resp.err
}

func (s *Store) do(ctx context.Context, req *request) (response, error) {
	select {
	case s.reqCh <- req:
	case <-s.stopCh:
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
