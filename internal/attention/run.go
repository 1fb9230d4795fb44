package attention

import "time"

// run is the actor's body. One goroutine, one select loop, exactly
// mirroring worldstore.Store's single-writer pattern: every mutation
// to pools happens here, and every timer that wants to mutate state
// posts a synthetic request back onto reqCh instead of touching pools
// from its own goroutine.
func (s *Scheduler) run(p *pools) {
	var admissionTimer, greedyTimer, tickTimer *time.Timer
	var lastTick time.Time
	greedyEnabled := false

	defer func() {
		for _, t := range []*time.Timer{admissionTimer, greedyTimer, tickTimer} {
			if t != nil {
				t.Stop()
			}
		}
	}()

	post := func(kind opKind) {
		select {
		case s.reqCh <- newRequest(kind):
		case <-s.stopCh:
		}
	}

	// scheduleAdmission implements the ~100ms coalescing debounce: each
	// call resets the timer, so a burst of triggers produces one pass.
	scheduleAdmission := func() {
		if admissionTimer != nil {
			admissionTimer.Stop()
		}
		admissionTimer = time.AfterFunc(s.cfg.AdmissionDebounce(), func() { post(opInternalAdmit) })
	}

	// scheduleGreedyIfNeeded arms the one-shot greedy delay only if none
	// is already pending; it is never reset.
	scheduleGreedyIfNeeded := func() {
		if !greedyEnabled || greedyTimer != nil {
			return
		}
		if !p.headBlocked() {
			return
		}
		greedyTimer = time.AfterFunc(s.cfg.GreedyDelay(), func() { post(opInternalGreedy) })
	}

	ensureTickRunning := func() {
		if tickTimer != nil || len(p.active) == 0 {
			return
		}
		lastTick = time.Now()
		tickTimer = time.AfterFunc(s.cfg.TickInterval(), func() { post(opInternalTick) })
	}

	for {
		select {
		case <-s.stopCh:
			return
		case req := <-s.reqCh:
			if req.kind == opInternalTick {
				now := time.Now()
				req.elapsedSinceMs = int(now.Sub(lastTick) / time.Millisecond)
				lastTick = now
			}
			resp := s.handle(p, req, &greedyEnabled, scheduleAdmission, scheduleGreedyIfNeeded)
			if req.resp != nil {
				req.resp <- resp
			}

			switch req.kind {
			case opInternalAdmit:
				admissionTimer = nil
				scheduleGreedyIfNeeded()
			case opInternalGreedy:
				greedyTimer = nil
			case opInternalTick:
				tickTimer = nil
				ensureTickRunning()
			}
			ensureTickRunning()
		}
	}
}
