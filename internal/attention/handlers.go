package attention

import (
	"context"
	"fmt"

	"tilestream/internal/worldstore"
)

var (
	errNegativeCoefficient = fmt.Errorf("attention: coefficient must be >= 0")
	errInvalidTask         = fmt.Errorf("attention: cost must be >= 1 and duration_ms must be > 0")
)

// handle dispatches one request against pools, mutating p and issuing
// whatever PWS writes the transition implies. It runs entirely on the
// actor goroutine (run.go's select loop), so no locking is needed.
func (s *Scheduler) handle(p *pools, req *request, greedyEnabled *bool, scheduleAdmission, scheduleGreedyIfNeeded func()) response {
	ctx := context.Background()
	switch req.kind {
	case opAddTask:
		return s.handleAddTask(ctx, p, req, scheduleAdmission)
	case opPause:
		return s.handlePause(ctx, p, req, scheduleAdmission)
	case opResume:
		return s.handleResume(ctx, p, req, scheduleAdmission)
	case opCancel:
		return s.handleCancel(ctx, p, req, scheduleAdmission)
	case opComplete:
		return s.handleComplete(ctx, p, req, scheduleAdmission)
	case opPauseResumed:
		return s.handlePauseResumed(ctx, p, req)
	case opGet:
		t, _, ok := p.find(req.id)
		return response{task: t, found: ok}
	case opSetCoefficient:
		return s.handleSetCoefficient(ctx, p, req, scheduleAdmission)
	case opSetGreedyEnabled:
		*greedyEnabled = req.greedy
		if *greedyEnabled {
			scheduleGreedyIfNeeded()
		}
		return response{}
	case opInternalAdmit:
		s.persistAdmission(ctx, p.admitSequential())
		return response{}
	case opInternalGreedy:
		s.persistAdmission(ctx, p.admitGreedy())
		return response{}
	case opInternalTick:
		s.progressActive(ctx, p, req.elapsedSinceMs, scheduleAdmission)
		return response{}
	default:
		return response{}
	}
}

// handleAddTask rejects malformed parameters: cost<1 or duration_ms≤0
// are input-validation failures, never admitted. Otherwise it appends
// to Pending and triggers admission.
func (s *Scheduler) handleAddTask(ctx context.Context, p *pools, req *request, scheduleAdmission func()) response {
	params := req.params
	if params.Cost < 1 || params.DurationMs <= 0 {
		s.logger.Printf("add_task rejected: cost=%d duration_ms=%d", params.Cost, params.DurationMs)
		return response{err: errInvalidTask}
	}
	t := Task{
		ID:         newTaskID(),
		Kind:       params.Kind,
		Cost:       params.Cost,
		DurationMs: params.DurationMs,
		Payload:    params.Payload,
	}
	p.pending = append(p.pending, t)
	if _, err := s.store.PushTasks(ctx, worldstore.PoolPending, []worldstore.Task{toStoreTask(t)}); err != nil {
		s.logger.Printf("persist add_task %s: %v", t.ID, err)
	}
	scheduleAdmission()
	return response{id: t.ID}
}

// handlePause moves an Active task to Paused, freeing its capacity and
// scheduling admission. No-op if id is not in Active.
func (s *Scheduler) handlePause(ctx context.Context, p *pools, req *request, scheduleAdmission func()) response {
	t, ok := p.active[req.id]
	if !ok {
		return response{}
	}
	delete(p.active, req.id)
	p.paused[req.id] = t
	if err := s.store.MoveTask(ctx, worldstore.TaskID(req.id), worldstore.PoolActive, worldstore.PoolPaused); err != nil {
		s.logger.Printf("persist pause %s: %v", req.id, err)
	}
	scheduleAdmission()
	return response{}
}

// handleResume moves a Paused task to the back of Resumed. No-op if id
// is not in Paused.
func (s *Scheduler) handleResume(ctx context.Context, p *pools, req *request, scheduleAdmission func()) response {
	t, ok := p.paused[req.id]
	if !ok {
		return response{}
	}
	delete(p.paused, req.id)
	p.resumed = append(p.resumed, t)
	if err := s.store.MoveTask(ctx, worldstore.TaskID(req.id), worldstore.PoolPaused, worldstore.PoolResumed); err != nil {
		s.logger.Printf("persist resume %s: %v", req.id, err)
	}
	scheduleAdmission()
	return response{}
}

// handleCancel removes id from whichever pool holds it. Cancelling a
// non-existent id is a no-op. Only cancelling out of Active frees
// capacity, so only that case schedules admission.
func (s *Scheduler) handleCancel(ctx context.Context, p *pools, req *request, scheduleAdmission func()) response {
	_, pool, ok := p.find(req.id)
	if !ok {
		return response{}
	}
	p.removeFrom(pool, req.id)
	if err := s.store.RemoveTask(ctx, worldstore.TaskID(req.id), toStorePool(pool)); err != nil {
		s.logger.Printf("persist cancel %s: %v", req.id, err)
	}
	if pool == PoolActive {
		scheduleAdmission()
	}
	return response{}
}

// handleComplete removes an Active task outright. It is the caller's
// job (external to the scheduler, interpreting kind+payload) to decide
// a task is done; the scheduler's own tick drives the elapsed_ms≥
// duration_ms case itself via progressActive.
func (s *Scheduler) handleComplete(ctx context.Context, p *pools, req *request, scheduleAdmission func()) response {
	if _, ok := p.active[req.id]; !ok {
		return response{}
	}
	delete(p.active, req.id)
	if err := s.store.RemoveTask(ctx, worldstore.TaskID(req.id), worldstore.PoolActive); err != nil {
		s.logger.Printf("persist complete %s: %v", req.id, err)
	}
	scheduleAdmission()
	return response{}
}

// handlePauseResumed moves a Resumed task straight to Paused without
// triggering admission, since it never held Active capacity and so
// didn't free any.
func (s *Scheduler) handlePauseResumed(ctx context.Context, p *pools, req *request) response {
	out, t, ok := removeByID(p.resumed, req.id)
	if !ok {
		return response{}
	}
	p.resumed = out
	p.paused[req.id] = t
	if err := s.store.MoveTask(ctx, worldstore.TaskID(req.id), worldstore.PoolResumed, worldstore.PoolPaused); err != nil {
		s.logger.Printf("persist pause_resumed %s: %v", req.id, err)
	}
	return response{}
}

// handleSetCoefficient rejects negative values and triggers admission
// only when capacity strictly increased — a decrease cannot admit
// anything, since admission is non-preemptive.
func (s *Scheduler) handleSetCoefficient(ctx context.Context, p *pools, req *request, scheduleAdmission func()) response {
	if req.coefficient < 0 {
		return response{err: errNegativeCoefficient}
	}
	increased := req.coefficient > p.coefficient
	p.coefficient = req.coefficient
	if err := s.store.SetAttentionLimit(ctx, req.coefficient); err != nil {
		s.logger.Printf("persist set_coefficient: %v", err)
	}
	if increased {
		scheduleAdmission()
	}
	return response{}
}

// progressActive advances every Active task's elapsed_ms by elapsedMs
// (the wall-clock delta since the previous tick), clamped to
// duration_ms (S1), and completes any task that reached it.
func (s *Scheduler) progressActive(ctx context.Context, p *pools, elapsedMs int, scheduleAdmission func()) {
	if elapsedMs <= 0 || len(p.active) == 0 {
		return
	}
	var progress []worldstore.ActiveProgress
	var completed []TaskID
	for id, t := range p.active {
		t.ElapsedMs += elapsedMs
		if t.ElapsedMs > t.DurationMs {
			t.ElapsedMs = t.DurationMs
		}
		p.active[id] = t
		progress = append(progress, worldstore.ActiveProgress{ID: worldstore.TaskID(id), ElapsedMs: t.ElapsedMs})
		if t.Done() {
			completed = append(completed, id)
		}
	}
	if len(progress) > 0 {
		if err := s.store.UpdateActiveProgress(ctx, progress); err != nil {
			s.logger.Printf("persist tick progress: %v", err)
		}
	}
	if len(completed) == 0 {
		return
	}
	for _, id := range completed {
		delete(p.active, id)
		if err := s.store.RemoveTask(ctx, worldstore.TaskID(id), worldstore.PoolActive); err != nil {
			s.logger.Printf("persist complete %s: %v", id, err)
		}
	}
	scheduleAdmission()
}
