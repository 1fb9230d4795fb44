package attention

// pools holds the four lifecycle containers plus the attention
// coefficient. It carries no goroutines or timers of its own; the
// scheduler actor is the only thing that mutates it, which keeps the
// admission math trivial to test in isolation.
type pools struct {
	active  map[TaskID]Task
	resumed []Task
	pending []Task
	paused  map[TaskID]Task

	coefficient int
}

func newPools(coefficient int) *pools {
	return &pools{
		active:      map[TaskID]Task{},
		paused:      map[TaskID]Task{},
		coefficient: coefficient,
	}
}

// usedAttention returns Σcost_i over Active divided by C, or 0 if C
// is 0 (an empty budget admits nothing, but must not divide by zero).
func (p *pools) usedAttention() float64 {
	if p.coefficient <= 0 {
		return 0
	}
	sum := 0
	for _, t := range p.active {
		sum += t.Cost
	}
	return float64(sum) / float64(p.coefficient)
}

func (p *pools) freeAttention() float64 {
	return 1 - p.usedAttention()
}

// canFit is the admissibility predicate: C>0 and the free fraction
// covers the task's share of capacity.
func (p *pools) canFit(t Task) bool {
	if p.coefficient <= 0 {
		return false
	}
	return p.freeAttention() >= float64(t.Cost)/float64(p.coefficient)
}

func (p *pools) find(id TaskID) (Task, PoolKind, bool) {
	if t, ok := p.active[id]; ok {
		return t, PoolActive, true
	}
	if t, ok := p.paused[id]; ok {
		return t, PoolPaused, true
	}
	for _, t := range p.resumed {
		if t.ID == id {
			return t, PoolResumed, true
		}
	}
	for _, t := range p.pending {
		if t.ID == id {
			return t, PoolPending, true
		}
	}
	return Task{}, "", false
}

func removeByID(s []Task, id TaskID) ([]Task, Task, bool) {
	for i, t := range s {
		if t.ID == id {
			out := append(append([]Task(nil), s[:i]...), s[i+1:]...)
			return out, t, true
		}
	}
	return s, Task{}, false
}

// removeFrom deletes id from whichever of the four pools pool names.
func (p *pools) removeFrom(pool PoolKind, id TaskID) {
	switch pool {
	case PoolActive:
		delete(p.active, id)
	case PoolPaused:
		delete(p.paused, id)
	case PoolResumed:
		p.resumed, _, _ = removeByID(p.resumed, id)
	case PoolPending:
		p.pending, _, _ = removeByID(p.pending, id)
	}
}

// admittedTask pairs an admitted task with the pool it was admitted
// from, so the caller can tell PWS which bucket to move it out of.
type admittedTask struct {
	task Task
	from PoolKind
}

// admitSequential runs the sequential admission pass: drain Resumed
// while its head fits, then drain Pending while its head fits. A
// blocked Resumed head stops further Resumed admission but does not
// block Pending — only a fitting Resumed head outranks Pending.
// Returns the tasks admitted, in admission order.
func (p *pools) admitSequential() []admittedTask {
	var admitted []admittedTask
	if p.coefficient <= 0 {
		return admitted
	}
	for len(p.resumed) > 0 && p.canFit(p.resumed[0]) {
		t := p.resumed[0]
		p.resumed = p.resumed[1:]
		p.active[t.ID] = t
		admitted = append(admitted, admittedTask{task: t, from: PoolResumed})
	}
	for len(p.pending) > 0 && p.canFit(p.pending[0]) {
		t := p.pending[0]
		p.pending = p.pending[1:]
		p.active[t.ID] = t
		admitted = append(admitted, admittedTask{task: t, from: PoolPending})
	}
	return admitted
}

// admitGreedy scans Resumed then Pending in order, admitting any task
// that fits now rather than stopping at the first that doesn't.
func (p *pools) admitGreedy() []admittedTask {
	var admitted []admittedTask
	if p.coefficient <= 0 {
		return admitted
	}
	var kept []Task
	for _, t := range p.resumed {
		if p.canFit(t) {
			p.active[t.ID] = t
			admitted = append(admitted, admittedTask{task: t, from: PoolResumed})
		} else {
			kept = append(kept, t)
		}
	}
	p.resumed = kept

	kept = nil
	for _, t := range p.pending {
		if p.canFit(t) {
			p.active[t.ID] = t
			admitted = append(admitted, admittedTask{task: t, from: PoolPending})
		} else {
			kept = append(kept, t)
		}
	}
	p.pending = kept
	return admitted
}

// headBlocked reports whether the combined queue's effective head (the
// same task admitSequential would try next) fails to fit, which is the
// trigger condition for scheduling a greedy pass.
func (p *pools) headBlocked() bool {
	if p.coefficient <= 0 {
		return len(p.resumed) > 0 || len(p.pending) > 0
	}
	if len(p.resumed) > 0 {
		return !p.canFit(p.resumed[0])
	}
	if len(p.pending) > 0 {
		return !p.canFit(p.pending[0])
	}
	return false
}
