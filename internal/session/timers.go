package session

import (
	"context"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// Autosave runs on its own goroutine; every other timer is a one-shot
// Clock.AfterFunc. All of them are torn down on every terminal transition —
// a timer outliving its session is a correctness bug, not a leak to shrug at.

func (e *Engine) startAutosaveLocked() {
	if e.autosaveStop != nil {
		return
	}
	stop := make(chan struct{})
	e.autosaveStop = stop

	go func() {
		ticker := time.NewTicker(e.autosaveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.autosaveTick()
			case <-stop:
				return
			}
		}
	}()
}

func (e *Engine) autosaveTick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil || e.active.Status != models.StatusInProgress {
		return
	}
	e.saveSnapshotLocked(context.Background())
}

func (e *Engine) stopTimersLocked() {
	if e.autosaveStop != nil {
		close(e.autosaveStop)
		e.autosaveStop = nil
	}
	e.cancelRestLocked()
}

func (e *Engine) startRestLocked(exerciseIndex int, d time.Duration) {
	now := e.clock.Now()
	e.restGen++
	gen := e.restGen

	e.active.Exercises[exerciseIndex].RestStartedAt = &now
	e.rest = &restCountdown{
		exerciseIndex: exerciseIndex,
		startedAt:     now,
		endsAt:        now.Add(d),
		gen:           gen,
		timer: e.clock.AfterFunc(d, func() {
			e.restExpired(gen)
		}),
	}
}

// restExpired fires when a rest countdown runs out. The generation check
// drops callbacks from timers that were superseded or cancelled after the
// callback was already in flight.
func (e *Engine) restExpired(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rest == nil || e.rest.gen != gen {
		return
	}
	idx := e.rest.exerciseIndex
	if e.active != nil && idx < len(e.active.Exercises) {
		e.active.Exercises[idx].RestStartedAt = nil
	}
	e.rest = nil
	e.log.Info("rest finished", "exercise_index", idx)
}

func (e *Engine) cancelRestLocked() {
	if e.rest == nil {
		return
	}
	e.rest.timer.Stop()
	idx := e.rest.exerciseIndex
	if e.active != nil && idx < len(e.active.Exercises) {
		e.active.Exercises[idx].RestStartedAt = nil
	}
	e.rest = nil
}

// resumeRestLocked restarts a rest countdown found in a recovered snapshot.
// Deadlines already in the past are dropped.
func (e *Engine) resumeRestLocked() {
	now := e.clock.Now()
	for i := range e.active.Exercises {
		se := &e.active.Exercises[i]
		if se.RestStartedAt == nil {
			continue
		}
		if se.RestSeconds > 0 {
			endsAt := se.RestStartedAt.Add(time.Duration(se.RestSeconds) * time.Second)
			if endsAt.After(now) && e.rest == nil {
				e.restGen++
				gen := e.restGen
				e.rest = &restCountdown{
					exerciseIndex: i,
					startedAt:     *se.RestStartedAt,
					endsAt:        endsAt,
					gen:           gen,
					timer: e.clock.AfterFunc(endsAt.Sub(now), func() {
						e.restExpired(gen)
					}),
				}
				continue
			}
		}
		se.RestStartedAt = nil
	}
}

// saveSnapshotLocked writes the session to the snapshot slot. Failures are
// logged and swallowed: a broken autosave must not interrupt the workout.
func (e *Engine) saveSnapshotLocked(ctx context.Context) {
	now := e.clock.Now()
	e.active.LastSavedAt = now

	data, err := models.EncodeSnapshot(e.active, now)
	if err != nil {
		e.log.Warn("snapshot encode failed", "error", err)
		return
	}

	cctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()
	if err := e.snapshots.Put(cctx, data); err != nil {
		e.log.Warn("snapshot save failed", "error", err)
	}
}

// clearSnapshotLocked removes the snapshot after a terminal transition. It
// retries, and if deletion still fails it overwrites the slot with the
// terminal-status session so recovery discards it instead of resurrecting a
// finished workout.
func (e *Engine) clearSnapshotLocked(ctx context.Context) {
	var lastErr error
	for attempt := 0; attempt < snapshotClearAttempts; attempt++ {
		cctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
		lastErr = e.snapshots.Delete(cctx)
		cancel()
		if lastErr == nil {
			return
		}
	}
	e.log.Error("snapshot delete failed, writing terminal marker", "error", lastErr)

	data, err := models.EncodeSnapshot(e.active, e.clock.Now())
	if err != nil {
		e.log.Error("terminal snapshot encode failed", "error", err)
		return
	}
	cctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()
	if err := e.snapshots.Put(cctx, data); err != nil {
		e.log.Error("terminal snapshot write failed", "error", err)
	}
}

// discardSnapshotLocked is the best-effort cleanup used during recovery.
func (e *Engine) discardSnapshotLocked(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()
	if err := e.snapshots.Delete(cctx); err != nil {
		e.log.Warn("snapshot discard failed", "error", err)
	}
}
