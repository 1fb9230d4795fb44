package tilemap

import (
	"math"
	"time"

	"tilestream/internal/mathx"
)

// VelocityState is the EMA-smoothed camera velocity. It is pure
// derived state living for the engine's whole lifetime, reset only on
// teleport.
type VelocityState struct {
	V, A    Vec2
	lastPos Vec2
	lastT   time.Time
	hasLast bool
}

func validFloat(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func validVec(v Vec2) bool { return validFloat(v.X) && validFloat(v.Y) }

func magnitude(v Vec2) float64 { return math.Hypot(v.X, v.Y) }

func normalize(v Vec2) Vec2 {
	m := magnitude(v)
	if m == 0 {
		return Vec2{}
	}
	return Vec2{v.X / m, v.Y / m}
}

// updateVelocity advances the filter from one camera sample. Invalid
// samples or deltas resync without advancing; teleports zero the
// filter and request a center; otherwise the EMA and acceleration
// update. Returns true if a teleport was detected (caller still owes
// a center request and a debounce cancel).
func (e *Engine) updateVelocity(now time.Time, pos Vec2) (teleported bool) {
	if !validVec(pos) {
		e.resyncVelocity(now, pos)
		return false
	}
	if !e.vel.hasLast {
		e.resyncVelocity(now, pos)
		return false
	}

	dtMs := now.Sub(e.vel.lastT).Milliseconds()
	if dtMs < 1 || dtMs > 1000 {
		e.resyncVelocity(now, pos)
		return false
	}
	dt := float64(dtMs)

	inst := Vec2{(pos.X - e.vel.lastPos.X) / dt, (pos.Y - e.vel.lastPos.Y) / dt}
	if !validVec(inst) {
		e.resyncVelocity(now, pos)
		return false
	}

	if magnitude(inst) > e.cfg.TeleportThresholdPxMs {
		e.teleportVelocity(now, pos)
		return true
	}

	alpha := e.cfg.VelocitySmoothing
	newV := Vec2{
		X: alpha*e.vel.V.X + (1-alpha)*inst.X,
		Y: alpha*e.vel.V.Y + (1-alpha)*inst.Y,
	}
	newV.X = mathx.ClampFloat(newV.X, -e.cfg.MaxSpeedPxMs, e.cfg.MaxSpeedPxMs)
	newV.Y = mathx.ClampFloat(newV.Y, -e.cfg.MaxSpeedPxMs, e.cfg.MaxSpeedPxMs)

	e.vel.A = Vec2{(newV.X - e.vel.V.X) / dt, (newV.Y - e.vel.V.Y) / dt}
	e.vel.V = newV
	e.vel.lastPos = pos
	e.vel.lastT = now
	return false
}

// resyncVelocity updates the last-sample bookkeeping without touching
// V or A: the state is resynced but not advanced.
func (e *Engine) resyncVelocity(now time.Time, pos Vec2) {
	e.vel.lastPos = pos
	e.vel.lastT = now
	e.vel.hasLast = true
}

// teleportVelocity zeroes the filter entirely on the teleport edge
// case: V and A reset to zero, and only the last-sample bookkeeping
// carries forward so the next tick's delta is sane.
func (e *Engine) teleportVelocity(now time.Time, pos Vec2) {
	e.vel = VelocityState{lastPos: pos, lastT: now, hasLast: true}
}
