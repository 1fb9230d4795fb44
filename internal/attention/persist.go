package attention

import (
	"context"
	"fmt"

	"tilestream/internal/worldstore"
)

func toStoreTask(t Task) worldstore.Task {
	return worldstore.Task{
		ID:         worldstore.TaskID(t.ID),
		Kind:       t.Kind,
		Cost:       t.Cost,
		DurationMs: t.DurationMs,
		ElapsedMs:  t.ElapsedMs,
		Payload:    t.Payload,
	}
}

func fromStoreTask(t worldstore.Task) Task {
	return Task{
		ID:         TaskID(t.ID),
		Kind:       t.Kind,
		Cost:       t.Cost,
		DurationMs: t.DurationMs,
		ElapsedMs:  t.ElapsedMs,
		Payload:    t.Payload,
	}
}

func toStorePool(p PoolKind) worldstore.PoolKind {
	return worldstore.PoolKind(p)
}

// loadFromStore populates pools from the store's persisted snapshot at
// startup. The scheduler is not itself the authority on the attention
// coefficient; the store is.
func loadFromStore(ctx context.Context, store *worldstore.Store) (*pools, error) {
	limit, err := store.GetAttentionLimit(ctx)
	if err != nil {
		return nil, fmt.Errorf("attention: load coefficient: %w", err)
	}
	snapshot, err := store.GetAllTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("attention: load tasks: %w", err)
	}
	p := newPools(limit)
	for _, t := range snapshot.Active {
		p.active[TaskID(t.ID)] = fromStoreTask(t)
	}
	for _, t := range snapshot.Paused {
		p.paused[TaskID(t.ID)] = fromStoreTask(t)
	}
	for _, t := range snapshot.Resumed {
		p.resumed = append(p.resumed, fromStoreTask(t))
	}
	for _, t := range snapshot.Pending {
		p.pending = append(p.pending, fromStoreTask(t))
	}
	return p, nil
}

// persistAdmission mirrors the effect of an admission pass into the
// store: every admitted task moves pool there too. Failures are logged
// and otherwise swallowed — the in-memory pools are already
// authoritative for this process, and the next autosave or explicit
// Flush will catch the store up.
func (s *Scheduler) persistAdmission(ctx context.Context, admitted []admittedTask) {
	for _, a := range admitted {
		if err := s.store.MoveTask(ctx, worldstore.TaskID(a.task.ID), toStorePool(a.from), worldstore.PoolActive); err != nil {
			s.logger.Printf("persist admit %s: %v", a.task.ID, err)
		}
	}
}
