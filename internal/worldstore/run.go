package worldstore

import "time"

// run is the actor's body: one goroutine, one select loop, the same
// single-writer worker pattern used elsewhere in this codebase. All
// worldState mutation happens here and nowhere else.
func (s *Store) run(st *worldState) {
	var autosave *time.Timer
	defer func() {
		if autosave != nil {
			autosave.Stop()
		}
	}()

	armAutosave := func() {
		if autosave != nil {
			return // trailing-only: a timer is already counting down this window
		}
		autosave = time.AfterFunc(s.cfg.AutosaveInterval(), func() {
			// AfterFunc runs on its own goroutine; hop back onto the
			// actor via reqCh so the flush still linearizes with
			// concurrent requests.
			select {
			case s.reqCh <- newRequest(opFlush):
			case <-s.stopCh:
			}
		})
	}

	for {
		select {
		case <-s.stopCh:
			return
		case req := <-s.reqCh:
			dirtyBefore := st.isDirty()
			resp := s.handle(st, req)
			if req.resp != nil {
				req.resp <- resp
			}
			if !dirtyBefore && st.isDirty() {
				armAutosave()
			}
			if req.kind == opFlush && autosave != nil {
				autosave.Stop()
				autosave = nil
			}
		}
	}
}

func (s *Store) handle(st *worldState, req *request) response {
	switch req.kind {
	case opGetTileLayerData:
		return s.handleGetTileLayerData(st, req)
	case opGetTile:
		return s.handleGetTile(st, req)
	case opSetTile:
		return s.handleSetTile(st, req)
	case opSetTiles:
		return s.handleSetTiles(st, req)
	case opGetCurrentLevelIndex:
		return response{levelIndex: st.meta.CurrentLevelIndex}
	case opSetCurrentLevelIndex:
		st.meta.CurrentLevelIndex = req.levelIndex
		st.markMetaDirty()
		return response{}
	case opGetTilesCountInLevel:
		return s.handleGetTilesCountInLevel(st, req)
	case opGetAllTasks:
		return response{tasks: PoolSnapshot{
			Active:  st.poolList(PoolActive),
			Resumed: st.poolList(PoolResumed),
			Pending: st.poolList(PoolPending),
			Paused:  st.poolList(PoolPaused),
		}}
	case opMoveTask:
		return s.handleMoveTask(st, req)
	case opPushTasks:
		return s.handlePushTasks(st, req)
	case opRemoveTask:
		return s.handleRemoveTask(st, req)
	case opUpdateActiveProgress:
		return s.handleUpdateActiveProgress(st, req)
	case opGetAttentionLimit:
		return response{limit: st.attention.AttentionCoefficient}
	case opSetAttentionLimit:
		if req.limit < 0 {
			return response{err: errNegativeCoefficient}
		}
		st.attention.AttentionCoefficient = req.limit
		st.markAttentionDirty()
		return response{}
	case opFlush:
		categories, bytesWritten, err := flushDirty(s.db, st)
		if err == nil && s.recorder != nil && len(categories) > 0 {
			s.recorder.RecordFlush(categories, bytesWritten)
		}
		return response{err: err}
	default:
		return response{}
	}
}
