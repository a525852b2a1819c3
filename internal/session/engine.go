// Package session implements the active workout session engine: the state
// machine that tracks an in-progress workout, snapshots it for crash
// recovery, and finalizes it into the record store.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
	"github.com/claude/liftlog/internal/suggest"
	"github.com/google/uuid"
)

const (
	defaultAutosaveInterval = 30 * time.Second
	defaultStoreTimeout     = 5 * time.Second
	defaultSuggestionLimit  = 5
	snapshotClearAttempts   = 3
)

// Options tune an Engine. Zero values fall back to defaults.
type Options struct {
	AutosaveInterval time.Duration
	StoreTimeout     time.Duration
	Clock            Clock
}

// Engine owns at most one active workout session. All state lives behind one
// mutex; timer callbacks take the same mutex, so mutations never interleave.
type Engine struct {
	records   storage.RecordStore
	catalog   storage.CatalogStore
	snapshots storage.SnapshotStore
	clock     Clock
	log       *slog.Logger

	autosaveInterval time.Duration
	storeTimeout     time.Duration

	mu           sync.Mutex
	active       *models.WorkoutSession
	rest         *restCountdown
	restGen      uint64
	autosaveStop chan struct{}
}

// restCountdown is the single active rest. gen guards against a stale timer
// callback firing after the rest was superseded or cancelled.
type restCountdown struct {
	exerciseIndex int
	startedAt     time.Time
	endsAt        time.Time
	timer         Timer
	gen           uint64
}

// New creates an engine bound to its stores. Call Recover once before
// serving to adopt any interrupted session.
func New(records storage.RecordStore, catalog storage.CatalogStore, snapshots storage.SnapshotStore, log *slog.Logger, opts Options) *Engine {
	if opts.AutosaveInterval <= 0 {
		opts.AutosaveInterval = defaultAutosaveInterval
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultStoreTimeout
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	return &Engine{
		records:          records,
		catalog:          catalog,
		snapshots:        snapshots,
		clock:            opts.Clock,
		log:              log,
		autosaveInterval: opts.AutosaveInterval,
		storeTimeout:     opts.StoreTimeout,
	}
}

// Targets are the optional per-exercise goals supplied when adding an
// exercise to the session.
type Targets struct {
	TargetSets   *int
	TargetReps   *int
	TargetWeight *float64
	RestSeconds  int
}

// SetInput is the data for one completed set.
type SetInput struct {
	Reps        *int
	WeightKg    *float64
	DurationSec *int
	DistanceM   *float64
	RIR         *int
	RPE         *float64
}

// Start begins a new session. Exactly one session may be in_progress or
// paused at a time; a second Start fails with a conflict before touching the
// record store, so it can never double-create a record.
func (e *Engine) Start(ctx context.Context, name string) (*View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active != nil {
		return nil, errConflict("start", "a session is already active")
	}

	now := e.clock.Now()
	if name == "" {
		name = "Workout " + now.Format("2006-01-02")
	}

	cctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()
	id, err := e.records.CreateWorkout(cctx, models.WorkoutRecord{
		Name:      name,
		Status:    models.StatusInProgress,
		StartTime: now,
	})
	if err != nil {
		return nil, errPersistence("start", "creating workout record", err)
	}

	e.active = &models.WorkoutSession{
		RecordID:  id,
		Name:      name,
		Status:    models.StatusInProgress,
		StartTime: now,
		Exercises: []models.SessionExercise{},
	}
	e.saveSnapshotLocked(ctx)
	e.startAutosaveLocked()

	e.log.Info("session started", "record_id", id, "name", name)
	return e.viewLocked(), nil
}

// Pause freezes duration accrual.
func (e *Engine) Pause(ctx context.Context) (*View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == nil {
		return nil, errNotFound("pause", "no active session")
	}
	if e.active.Status != models.StatusInProgress {
		return nil, errInvalidState("pause", "session is "+string(e.active.Status))
	}

	now := e.clock.Now()
	e.active.PausedAt = &now
	e.active.Status = models.StatusPaused
	e.saveSnapshotLocked(ctx)
	return e.viewLocked(), nil
}

// Resume unfreezes duration accrual, folding the paused interval into
// PausedSeconds so elapsed time excludes it.
func (e *Engine) Resume(ctx context.Context) (*View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == nil {
		return nil, errNotFound("resume", "no active session")
	}
	if e.active.Status != models.StatusPaused {
		return nil, errInvalidState("resume", "session is "+string(e.active.Status))
	}

	e.foldPausedTimeLocked()
	e.active.Status = models.StatusInProgress
	e.saveSnapshotLocked(ctx)
	return e.viewLocked(), nil
}

// AddExercise appends a catalog exercise to the session. The session keeps a
// copy of the exercise taken now, so later catalog edits do not rewrite it.
func (e *Engine) AddExercise(ctx context.Context, exerciseID uuid.UUID, t Targets) (*View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireInProgressLocked("add_exercise"); err != nil {
		return nil, err
	}
	if t.TargetSets != nil && *t.TargetSets < 1 {
		return nil, errValidation("add_exercise", "target_sets must be at least 1")
	}
	if t.TargetReps != nil && *t.TargetReps < 1 {
		return nil, errValidation("add_exercise", "target_reps must be at least 1")
	}
	if t.TargetWeight != nil && *t.TargetWeight < 0 {
		return nil, errValidation("add_exercise", "target_weight_kg must not be negative")
	}
	if t.RestSeconds < 0 {
		return nil, errValidation("add_exercise", "rest_seconds must not be negative")
	}

	cctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()
	ex, err := e.catalog.GetExercise(cctx, exerciseID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, errNotFound("add_exercise", "exercise not in catalog")
	}
	if err != nil {
		return nil, errPersistence("add_exercise", "reading catalog", err)
	}

	e.active.Exercises = append(e.active.Exercises, models.SessionExercise{
		Exercise:     *ex,
		OrderIndex:   len(e.active.Exercises),
		TargetSets:   t.TargetSets,
		TargetReps:   t.TargetReps,
		TargetWeight: t.TargetWeight,
		RestSeconds:  t.RestSeconds,
		Sets:         []models.SetEntry{},
	})
	e.saveSnapshotLocked(ctx)
	return e.viewLocked(), nil
}

// CompleteSet appends a completed set to the exercise at exerciseIndex. Set
// numbers are priorCount+1 and never reused. Completing a set cancels any
// running rest; if the exercise defines a positive rest duration, a new rest
// starts automatically.
func (e *Engine) CompleteSet(ctx context.Context, exerciseIndex int, in SetInput) (*View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireInProgressLocked("complete_set"); err != nil {
		return nil, err
	}
	if exerciseIndex < 0 || exerciseIndex >= len(e.active.Exercises) {
		return nil, errValidation("complete_set", "exercise index out of range")
	}
	if in.Reps != nil && *in.Reps < 0 {
		return nil, errValidation("complete_set", "reps must not be negative")
	}
	if in.WeightKg != nil && *in.WeightKg < 0 {
		return nil, errValidation("complete_set", "weight_kg must not be negative")
	}
	if in.DurationSec != nil && *in.DurationSec < 0 {
		return nil, errValidation("complete_set", "duration_sec must not be negative")
	}
	if in.DistanceM != nil && *in.DistanceM < 0 {
		return nil, errValidation("complete_set", "distance_m must not be negative")
	}
	if in.RIR != nil && (*in.RIR < 0 || *in.RIR > 10) {
		return nil, errValidation("complete_set", "rir must be between 0 and 10")
	}
	if in.RPE != nil && (*in.RPE < 1 || *in.RPE > 10) {
		return nil, errValidation("complete_set", "rpe must be between 1 and 10")
	}

	se := &e.active.Exercises[exerciseIndex]
	setNumber := 1
	if n := len(se.Sets); n > 0 {
		setNumber = se.Sets[n-1].SetNumber + 1
	}

	now := e.clock.Now()
	se.Sets = append(se.Sets, models.SetEntry{
		SetNumber:   setNumber,
		Reps:        in.Reps,
		WeightKg:    in.WeightKg,
		DurationSec: in.DurationSec,
		DistanceM:   in.DistanceM,
		RIR:         in.RIR,
		RPE:         in.RPE,
		Completed:   true,
		CompletedAt: now,
	})

	e.cancelRestLocked()
	if se.RestSeconds > 0 {
		e.startRestLocked(exerciseIndex, time.Duration(se.RestSeconds)*time.Second)
	}

	e.saveSnapshotLocked(ctx)
	return e.viewLocked(), nil
}

// UndoSet voids a completed set. The set number stays taken: stats and the
// finished record skip voided entries, but numbering never rewinds.
func (e *Engine) UndoSet(ctx context.Context, exerciseIndex, setNumber int) (*View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireInProgressLocked("undo_set"); err != nil {
		return nil, err
	}
	if exerciseIndex < 0 || exerciseIndex >= len(e.active.Exercises) {
		return nil, errValidation("undo_set", "exercise index out of range")
	}

	se := &e.active.Exercises[exerciseIndex]
	for i := range se.Sets {
		if se.Sets[i].SetNumber == setNumber {
			se.Sets[i].Voided = true
			e.saveSnapshotLocked(ctx)
			return e.viewLocked(), nil
		}
	}
	return nil, errNotFound("undo_set", fmt.Sprintf("set %d not found", setNumber))
}

// StartRest starts the rest countdown for the exercise at exerciseIndex.
// Only one rest runs system-wide; the newest supersedes any prior.
func (e *Engine) StartRest(ctx context.Context, exerciseIndex int) (*View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireInProgressLocked("start_rest"); err != nil {
		return nil, err
	}
	if exerciseIndex < 0 || exerciseIndex >= len(e.active.Exercises) {
		return nil, errValidation("start_rest", "exercise index out of range")
	}
	rest := e.active.Exercises[exerciseIndex].RestSeconds
	if rest <= 0 {
		return nil, errValidation("start_rest", "exercise has no rest duration configured")
	}

	e.cancelRestLocked()
	e.startRestLocked(exerciseIndex, time.Duration(rest)*time.Second)
	e.saveSnapshotLocked(ctx)
	return e.viewLocked(), nil
}

// SkipRest cancels the active rest countdown. Skipping with no active rest
// is a no-op, not an error.
func (e *Engine) SkipRest(ctx context.Context) (*View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == nil {
		return nil, errNotFound("skip_rest", "no active session")
	}
	if e.rest != nil {
		e.cancelRestLocked()
		e.saveSnapshotLocked(ctx)
	}
	return e.viewLocked(), nil
}

// Complete finalizes the session into the record store, clears the snapshot,
// and stops all timers. A failed record write blocks the transition so the
// caller can retry; the session stays active.
func (e *Engine) Complete(ctx context.Context, notes string) (*View, error) {
	return e.finish(ctx, "complete", models.StatusCompleted, notes)
}

// Cancel marks the session cancelled. Like Complete, the durable write must
// succeed before the state transition happens.
func (e *Engine) Cancel(ctx context.Context) (*View, error) {
	return e.finish(ctx, "cancel", models.StatusCancelled, "")
}

func (e *Engine) finish(ctx context.Context, op string, terminal models.Status, notes string) (*View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == nil {
		return nil, errNotFound(op, "no active session")
	}
	if e.active.Status.Terminal() {
		return nil, errInvalidState(op, "session is "+string(e.active.Status))
	}

	e.foldPausedTimeLocked()
	now := e.clock.Now()
	stats := e.statsLocked(now)

	rec := models.WorkoutRecord{
		ID:          e.active.RecordID,
		Name:        e.active.Name,
		Status:      terminal,
		StartTime:   e.active.StartTime,
		EndTime:     &now,
		DurationSec: stats.ElapsedSec,
		TotalSets:   stats.CompletedSets,
		TotalReps:   stats.TotalReps,
		TotalVolume: stats.TotalVolumeKg,
		Notes:       notes,
	}

	cctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()
	if err := e.records.FinalizeWorkout(cctx, rec); err != nil {
		return nil, errPersistence(op, "finalizing workout record", err)
	}

	if terminal == models.StatusCompleted {
		if _, err := e.records.InsertWorkoutSets(cctx, e.setRowsLocked()); err != nil {
			e.log.Warn("writing workout set rows failed", "error", err)
		}
	}

	e.active.Status = terminal
	e.active.Notes = notes
	e.stopTimersLocked()
	e.clearSnapshotLocked(ctx)

	view := e.viewLocked()
	e.active = nil
	e.log.Info("session finished", "record_id", rec.ID, "status", terminal,
		"sets", stats.CompletedSets, "duration_sec", stats.ElapsedSec)
	return view, nil
}

// View returns the read-only session view, or a not_found error when no
// session is active.
func (e *Engine) View() (*View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == nil {
		return nil, errNotFound("view", "no active session")
	}
	return e.viewLocked(), nil
}

// Stats returns the aggregate numbers for the active session.
func (e *Engine) Stats() (*Stats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == nil {
		return nil, errNotFound("stats", "no active session")
	}
	s := e.statsLocked(e.clock.Now())
	return &s, nil
}

// Suggest ranks catalog exercises against the current session composition.
// It works with no active session too, ranking against an empty one.
func (e *Engine) Suggest(ctx context.Context, k int) ([]suggest.Candidate, error) {
	if k <= 0 {
		k = defaultSuggestionLimit
	}

	cctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()
	catalog, err := e.catalog.ListExercises(cctx)
	if err != nil {
		return nil, errPersistence("suggest", "listing catalog", err)
	}

	e.mu.Lock()
	var current []models.SessionExercise
	if e.active != nil {
		current = copyExercises(e.active.Exercises)
	}
	e.mu.Unlock()

	return suggest.Rank(catalog, current, k), nil
}

// Recover adopts an interrupted session from the snapshot store. Terminal or
// malformed snapshots are discarded. Returns (nil, nil) when there is nothing
// to resume.
func (e *Engine) Recover(ctx context.Context) (*View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active != nil {
		return nil, errConflict("recover", "a session is already active")
	}

	cctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()
	data, err := e.snapshots.Get(cctx)
	if err != nil {
		return nil, errPersistence("recover", "reading snapshot", err)
	}
	if data == nil {
		return nil, nil
	}

	sess, err := models.DecodeSnapshot(data)
	if err != nil {
		e.log.Warn("discarding unrecoverable snapshot", "error", err)
		e.discardSnapshotLocked(ctx)
		return nil, nil
	}
	if sess.Status.Terminal() {
		e.log.Warn("discarding snapshot of finished session", "status", sess.Status)
		e.discardSnapshotLocked(ctx)
		return nil, nil
	}

	e.active = sess
	e.resumeRestLocked()
	e.startAutosaveLocked()
	e.log.Info("session recovered", "record_id", sess.RecordID,
		"status", sess.Status, "exercises", len(sess.Exercises))
	return e.viewLocked(), nil
}

// Close stops all timers without touching session state. The snapshot keeps
// the session recoverable on next startup.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTimersLocked()
}

// --- internals (mutex held) ---

func (e *Engine) requireInProgressLocked(op string) error {
	if e.active == nil {
		return errNotFound(op, "no active session")
	}
	if e.active.Status != models.StatusInProgress {
		return errInvalidState(op, "session is "+string(e.active.Status))
	}
	return nil
}

func (e *Engine) foldPausedTimeLocked() {
	if e.active.PausedAt == nil {
		return
	}
	now := e.clock.Now()
	e.active.PausedSeconds += int(now.Sub(*e.active.PausedAt).Seconds())
	e.active.PausedAt = nil
}

func (e *Engine) statsLocked(now time.Time) Stats {
	s := Stats{
		Status:        e.active.Status,
		ExerciseCount: len(e.active.Exercises),
	}
	for _, se := range e.active.Exercises {
		for _, set := range se.Sets {
			if !set.Completed || set.Voided {
				continue
			}
			s.CompletedSets++
			if set.Reps != nil {
				s.TotalReps += *set.Reps
				if set.WeightKg != nil {
					s.TotalVolumeKg += *set.WeightKg * float64(*set.Reps)
				}
			}
		}
	}

	ref := now
	if e.active.PausedAt != nil {
		ref = *e.active.PausedAt
	}
	elapsed := int(ref.Sub(e.active.StartTime).Seconds()) - e.active.PausedSeconds
	if elapsed < 0 {
		elapsed = 0
	}
	s.ElapsedSec = elapsed
	return s
}

func (e *Engine) setRowsLocked() []models.WorkoutSetRow {
	var rows []models.WorkoutSetRow
	for _, se := range e.active.Exercises {
		for _, set := range se.Sets {
			if !set.Completed || set.Voided {
				continue
			}
			rows = append(rows, models.WorkoutSetRow{
				WorkoutID:    e.active.RecordID,
				ExerciseName: se.Exercise.Name,
				ExerciseNum:  se.OrderIndex,
				SetNumber:    set.SetNumber,
				Reps:         set.Reps,
				WeightKg:     set.WeightKg,
				RIR:          set.RIR,
				RPE:          set.RPE,
				CompletedAt:  set.CompletedAt,
			})
		}
	}
	return rows
}

func (e *Engine) viewLocked() *View {
	now := e.clock.Now()
	v := &View{
		RecordID:    e.active.RecordID,
		Name:        e.active.Name,
		Status:      e.active.Status,
		StartTime:   e.active.StartTime,
		Exercises:   copyExercises(e.active.Exercises),
		Notes:       e.active.Notes,
		LastSavedAt: e.active.LastSavedAt,
		Stats:       e.statsLocked(now),
	}
	if e.rest != nil {
		remaining := int(e.rest.endsAt.Sub(now).Seconds())
		if remaining < 0 {
			remaining = 0
		}
		v.Rest = &RestState{
			ExerciseIndex: e.rest.exerciseIndex,
			StartedAt:     e.rest.startedAt,
			EndsAt:        e.rest.endsAt,
			RemainingSec:  remaining,
		}
	}
	return v
}
