package attention

import "context"

type opKind int

const (
	opAddTask opKind = iota
	opPause
	opResume
	opCancel
	opComplete
	opPauseResumed
	opGet
	opSetCoefficient
	opSetGreedyEnabled
	opInternalAdmit
	opInternalGreedy
	opInternalTick
)

type request struct {
	kind opKind

	id     TaskID
	params AddTaskParams

	coefficient int
	greedy      bool

	elapsedSinceMs int

	resp chan response
}

type response struct {
	id    TaskID
	task  Task
	found bool
	err   error
}

func newRequest(kind opKind) *request {
	return &request{kind: kind, resp: make(chan response, 1)}
}

// AddTask appends a new task to Pending and returns its minted ID.
func (s *Scheduler) AddTask(ctx context.Context, params AddTaskParams) (TaskID, error) {
	req := newRequest(opAddTask)
	req.params = params
	resp, err := s.do(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.id, resp.err
}

func (s *Scheduler) Pause(ctx context.Context, id TaskID) error {
	return s.simpleOp(ctx, opPause, id)
}

func (s *Scheduler) Resume(ctx context.Context, id TaskID) error {
	return s.simpleOp(ctx, opResume, id)
}

func (s *Scheduler) Cancel(ctx context.Context, id TaskID) error {
	return s.simpleOp(ctx, opCancel, id)
}

func (s *Scheduler) Complete(ctx context.Context, id TaskID) error {
	return s.simpleOp(ctx, opComplete, id)
}

func (s *Scheduler) PauseResumed(ctx context.Context, id TaskID) error {
	return s.simpleOp(ctx, opPauseResumed, id)
}

func (s *Scheduler) simpleOp(ctx context.Context, kind opKind, id TaskID) error {
	req := newRequest(kind)
	req.id = id
	resp, err := s.do(ctx, req)
	if err != nil {
		return err
	}
	return resp.err
}

// Get searches all four pools for id.
func (s *Scheduler) Get(ctx context.Context, id TaskID) (Task, bool, error) {
	req := newRequest(opGet)
	req.id = id
	resp, err := s.do(ctx, req)
	if err != nil {
		return Task{}, false, err
	}
	return resp.task, resp.found, resp.err
}

func (s *Scheduler) SetAttentionCoefficient(ctx context.Context, c int) error {
	req := newRequest(opSetCoefficient)
	req.coefficient = c
	resp, err := s.do(ctx, req)
	if err != nil {
		return err
	}
	return resp.err
}

func (s *Scheduler) SetGreedyEnabled(ctx context.Context, enabled bool) error {
	req := newRequest(opSetGreedyEnabled)
	req.greedy = enabled
	resp, err := s.do(ctx, req)
	if err != nil {
		return err
	}
	return resp.err
}

func (s *Scheduler) do(ctx context.Context, req *request) (response, error) {
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
