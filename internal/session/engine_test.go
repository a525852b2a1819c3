package session

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/google/uuid"
)

func TestStartCreatesRecordAndSnapshot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	view, err := env.engine.Start(ctx, "Push Day")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if view.Status != models.StatusInProgress {
		t.Errorf("status = %q, want %q", view.Status, models.StatusInProgress)
	}
	if view.Name != "Push Day" {
		t.Errorf("name = %q, want %q", view.Name, "Push Day")
	}
	if len(env.records.created) != 1 {
		t.Fatalf("created records = %d, want 1", len(env.records.created))
	}
	if env.snapshots.data == nil {
		t.Error("expected snapshot written after start")
	}
}

func TestStartDefaultName(t *testing.T) {
	env := newTestEnv(t)

	view, err := env.engine.Start(context.Background(), "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	want := "Workout " + env.clock.Now().Format("2006-01-02")
	if view.Name != want {
		t.Errorf("name = %q, want %q", view.Name, want)
	}
}

func TestStartConflictDoesNotCreateSecondRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.engine.Start(ctx, "first"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	_, err := env.engine.Start(ctx, "second")
	if !IsCode(err, CodeConflict) {
		t.Fatalf("second Start: got %v, want conflict", err)
	}
	if len(env.records.created) != 1 {
		t.Errorf("created records = %d, want 1", len(env.records.created))
	}
}

func TestStartStoreFailureLeavesNoSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.records.failCreate = true

	_, err := env.engine.Start(ctx, "doomed")
	if !IsCode(err, CodePersistence) {
		t.Fatalf("Start: got %v, want persistence error", err)
	}
	if _, err := env.engine.View(); !IsCode(err, CodeNotFound) {
		t.Errorf("View after failed start: got %v, want not_found", err)
	}

	env.records.failCreate = false
	if _, err := env.engine.Start(ctx, "retry"); err != nil {
		t.Fatalf("Start after store recovery: %v", err)
	}
}

func TestAddExerciseOrderIsContiguous(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	squat := env.addCatalog(t, "Barbell Back Squat", "quadriceps", "glutes")
	bench := env.addCatalog(t, "Barbell Bench Press", "chest", "triceps")

	if _, err := env.engine.Start(ctx, ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := env.engine.AddExercise(ctx, squat, Targets{TargetSets: intPtr(3)}); err != nil {
		t.Fatalf("AddExercise squat: %v", err)
	}
	view, err := env.engine.AddExercise(ctx, bench, Targets{})
	if err != nil {
		t.Fatalf("AddExercise bench: %v", err)
	}

	if len(view.Exercises) != 2 {
		t.Fatalf("exercises = %d, want 2", len(view.Exercises))
	}
	for i, se := range view.Exercises {
		if se.OrderIndex != i {
			t.Errorf("exercise %d order index = %d", i, se.OrderIndex)
		}
	}
	if view.Exercises[0].Exercise.Name != "Barbell Back Squat" {
		t.Errorf("exercise 0 = %q, want squat first", view.Exercises[0].Exercise.Name)
	}
}

func TestAddExerciseUnknownID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.addCatalog(t, "Deadlift", "hamstrings", "lower back")

	if _, err := env.engine.Start(ctx, ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := env.engine.AddExercise(ctx, id, Targets{}); err != nil {
		t.Fatalf("AddExercise known: %v", err)
	}

	_, err := env.engine.AddExercise(ctx, uuid.New(), Targets{})
	if !IsCode(err, CodeNotFound) {
		t.Errorf("AddExercise unknown: got %v, want not_found", err)
	}
}

func TestAddExerciseRequiresInProgress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.addCatalog(t, "Plank", "abs")

	if _, err := env.engine.AddExercise(ctx, id, Targets{}); !IsCode(err, CodeNotFound) {
		t.Errorf("AddExercise without session: got %v, want not_found", err)
	}

	if _, err := env.engine.Start(ctx, ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := env.engine.Pause(ctx); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if _, err := env.engine.AddExercise(ctx, id, Targets{}); !IsCode(err, CodeInvalidState) {
		t.Errorf("AddExercise while paused: got %v, want invalid_state", err)
	}
}

func TestCompleteSetNumbersNeverRewind(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.addCatalog(t, "Barbell Bench Press", "chest", "triceps")

	if _, err := env.engine.Start(ctx, ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := env.engine.AddExercise(ctx, id, Targets{}); err != nil {
		t.Fatalf("AddExercise: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := env.engine.CompleteSet(ctx, 0, SetInput{Reps: intPtr(8)}); err != nil {
			t.Fatalf("CompleteSet %d: %v", i+1, err)
		}
	}
	if _, err := env.engine.UndoSet(ctx, 0, 2); err != nil {
		t.Fatalf("UndoSet: %v", err)
	}
	view, err := env.engine.CompleteSet(ctx, 0, SetInput{Reps: intPtr(8)})
	if err != nil {
		t.Fatalf("CompleteSet after undo: %v", err)
	}

	sets := view.Exercises[0].Sets
	if len(sets) != 3 {
		t.Fatalf("sets = %d, want 3", len(sets))
	}
	wantNumbers := []int{1, 2, 3}
	for i, set := range sets {
		if set.SetNumber != wantNumbers[i] {
			t.Errorf("set %d number = %d, want %d", i, set.SetNumber, wantNumbers[i])
		}
	}
	if !sets[1].Voided {
		t.Error("set 2 should be voided")
	}
	if view.Stats.CompletedSets != 2 {
		t.Errorf("completed sets = %d, want 2 (voided excluded)", view.Stats.CompletedSets)
	}
}

func TestUndoUnknownSet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.addCatalog(t, "Pull-Up", "lats", "biceps")

	if _, err := env.engine.Start(ctx, ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := env.engine.AddExercise(ctx, id, Targets{}); err != nil {
		t.Fatalf("AddExercise: %v", err)
	}
	if _, err := env.engine.UndoSet(ctx, 0, 7); !IsCode(err, CodeNotFound) {
		t.Errorf("UndoSet missing: got %v, want not_found", err)
	}
}

func TestCompleteSetValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.addCatalog(t, "Barbell Row", "back", "biceps")

	if _, err := env.engine.Start(ctx, ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := env.engine.AddExercise(ctx, id, Targets{}); err != nil {
		t.Fatalf("AddExercise: %v", err)
	}

	cases := []struct {
		name  string
		index int
		in    SetInput
	}{
		{"index out of range", 5, SetInput{Reps: intPtr(5)}},
		{"negative reps", 0, SetInput{Reps: intPtr(-1)}},
		{"negative weight", 0, SetInput{WeightKg: floatPtr(-10)}},
		{"negative duration", 0, SetInput{DurationSec: intPtr(-1)}},
		{"rir above range", 0, SetInput{RIR: intPtr(11)}},
		{"rpe below range", 0, SetInput{RPE: floatPtr(0.5)}},
		{"rpe above range", 0, SetInput{RPE: floatPtr(10.5)}},
	}
	for _, tc := range cases {
		if _, err := env.engine.CompleteSet(ctx, tc.index, tc.in); !IsCode(err, CodeValidation) {
			t.Errorf("%s: got %v, want validation error", tc.name, err)
		}
	}
}

func TestPauseResumeExcludesPausedTime(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.engine.Start(ctx, ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	env.clock.Advance(60 * time.Second)

	if _, err := env.engine.Pause(ctx); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	env.clock.Advance(30 * time.Second)

	// Elapsed freezes while paused.
	stats, err := env.engine.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ElapsedSec != 60 {
		t.Errorf("elapsed while paused = %d, want 60", stats.ElapsedSec)
	}

	if _, err := env.engine.Resume(ctx); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	env.clock.Advance(10 * time.Second)

	stats, err = env.engine.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ElapsedSec != 70 {
		t.Errorf("elapsed after resume = %d, want 70", stats.ElapsedSec)
	}
}

func TestPauseResumeStateChecks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.engine.Pause(ctx); !IsCode(err, CodeNotFound) {
		t.Errorf("Pause without session: got %v, want not_found", err)
	}
	if _, err := env.engine.Start(ctx, ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := env.engine.Resume(ctx); !IsCode(err, CodeInvalidState) {
		t.Errorf("Resume while running: got %v, want invalid_state", err)
	}
	if _, err := env.engine.Pause(ctx); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if _, err := env.engine.Pause(ctx); !IsCode(err, CodeInvalidState) {
		t.Errorf("double Pause: got %v, want invalid_state", err)
	}
}

func TestStatsScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.addCatalog(t, "Barbell Bench Press", "chest", "triceps")

	if _, err := env.engine.Start(ctx, "Chest Day"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := env.engine.AddExercise(ctx, id, Targets{TargetSets: intPtr(3)}); err != nil {
		t.Fatalf("AddExercise: %v", err)
	}
	view, err := env.engine.CompleteSet(ctx, 0, SetInput{Reps: intPtr(10), WeightKg: floatPtr(50)})
	if err != nil {
		t.Fatalf("CompleteSet: %v", err)
	}

	if view.Stats.CompletedSets != 1 {
		t.Errorf("completed sets = %d, want 1", view.Stats.CompletedSets)
	}
	if view.Stats.TotalReps != 10 {
		t.Errorf("total reps = %d, want 10", view.Stats.TotalReps)
	}
	if view.Stats.TotalVolumeKg != 500 {
		t.Errorf("total volume = %v, want 500", view.Stats.TotalVolumeKg)
	}
}

func TestCompleteFinalizesAndClearsSnapshot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.addCatalog(t, "Deadlift", "hamstrings", "lower back")

	if _, err := env.engine.Start(ctx, ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := env.engine.AddExercise(ctx, id, Targets{}); err != nil {
		t.Fatalf("AddExercise: %v", err)
	}
	if _, err := env.engine.CompleteSet(ctx, 0, SetInput{Reps: intPtr(5), WeightKg: floatPtr(100)}); err != nil {
		t.Fatalf("CompleteSet: %v", err)
	}
	if _, err := env.engine.CompleteSet(ctx, 0, SetInput{Reps: intPtr(5), WeightKg: floatPtr(100)}); err != nil {
		t.Fatalf("CompleteSet: %v", err)
	}
	if _, err := env.engine.UndoSet(ctx, 0, 2); err != nil {
		t.Fatalf("UndoSet: %v", err)
	}
	env.clock.Advance(45 * time.Minute)

	view, err := env.engine.Complete(ctx, "felt strong")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if view.Status != models.StatusCompleted {
		t.Errorf("status = %q, want completed", view.Status)
	}
	if view.Notes != "felt strong" {
		t.Errorf("notes = %q", view.Notes)
	}

	recordID := view.RecordID
	rec, ok := env.records.finalized[recordID]
	if !ok {
		t.Fatal("workout record was not finalized")
	}
	if rec.Status != models.StatusCompleted {
		t.Errorf("record status = %q, want completed", rec.Status)
	}
	if rec.TotalSets != 1 || rec.TotalReps != 5 || rec.TotalVolume != 500 {
		t.Errorf("record totals = sets %d reps %d volume %v, want 1/5/500",
			rec.TotalSets, rec.TotalReps, rec.TotalVolume)
	}
	if rec.DurationSec != 45*60 {
		t.Errorf("record duration = %d, want %d", rec.DurationSec, 45*60)
	}

	// Voided set row is not exported.
	if len(env.records.setRows) != 1 {
		t.Errorf("exported set rows = %d, want 1", len(env.records.setRows))
	}

	if env.snapshots.data != nil {
		t.Error("snapshot should be cleared after complete")
	}
	if _, err := env.engine.View(); !IsCode(err, CodeNotFound) {
		t.Errorf("View after complete: got %v, want not_found", err)
	}
}

func TestCancelKeepsRecordSkipsSetExport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.addCatalog(t, "Leg Press", "quadriceps", "glutes")

	if _, err := env.engine.Start(ctx, ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := env.engine.AddExercise(ctx, id, Targets{}); err != nil {
		t.Fatalf("AddExercise: %v", err)
	}
	if _, err := env.engine.CompleteSet(ctx, 0, SetInput{Reps: intPtr(12)}); err != nil {
		t.Fatalf("CompleteSet: %v", err)
	}

	view, err := env.engine.Cancel(ctx)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	rec, ok := env.records.finalized[view.RecordID]
	if !ok {
		t.Fatal("cancelled record was not finalized")
	}
	if rec.Status != models.StatusCancelled {
		t.Errorf("record status = %q, want cancelled", rec.Status)
	}
	if len(env.records.setRows) != 0 {
		t.Errorf("exported set rows = %d, want 0 for cancelled session", len(env.records.setRows))
	}
	if env.snapshots.data != nil {
		t.Error("snapshot should be cleared after cancel")
	}
}

func TestCompleteStoreFailureKeepsSessionActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.engine.Start(ctx, ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	env.records.failFinal = true

	_, err := env.engine.Complete(ctx, "")
	if !IsCode(err, CodePersistence) {
		t.Fatalf("Complete with store down: got %v, want persistence", err)
	}
	view, err := env.engine.View()
	if err != nil {
		t.Fatalf("View after failed complete: %v", err)
	}
	if view.Status != models.StatusInProgress {
		t.Errorf("status = %q, session should stay in progress", view.Status)
	}

	env.records.failFinal = false
	if _, err := env.engine.Complete(ctx, ""); err != nil {
		t.Fatalf("Complete retry: %v", err)
	}
}

func TestCompleteWhilePaused(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.engine.Start(ctx, ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	env.clock.Advance(20 * time.Second)
	if _, err := env.engine.Pause(ctx); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	env.clock.Advance(40 * time.Second)

	view, err := env.engine.Complete(ctx, "")
	if err != nil {
		t.Fatalf("Complete while paused: %v", err)
	}
	rec := env.records.finalized[view.RecordID]
	if rec.DurationSec != 20 {
		t.Errorf("duration = %d, want 20 (paused interval excluded)", rec.DurationSec)
	}
}

func TestSnapshotDeleteFallbackWritesTerminalMarker(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.engine.Start(ctx, ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	env.snapshots.failDelete = true

	if _, err := env.engine.Complete(ctx, ""); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if env.snapshots.data == nil {
		t.Fatal("expected terminal marker snapshot when delete keeps failing")
	}
	sess, err := models.DecodeSnapshot(env.snapshots.data)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	if !sess.Status.Terminal() {
		t.Errorf("marker status = %q, want terminal", sess.Status)
	}

	// Recovery discards the marker instead of resurrecting the session.
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine2 := New(env.records, env.catalog, env.snapshots, log, Options{Clock: env.clock})
	defer engine2.Close()
	view, err := engine2.Recover(ctx)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if view != nil {
		t.Errorf("recovered terminal session: %+v", view)
	}
}

func TestAutosaveFailureDoesNotInterruptWorkout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.addCatalog(t, "Overhead Press", "shoulders", "triceps")

	if _, err := env.engine.Start(ctx, ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	env.snapshots.failPut = true

	if _, err := env.engine.AddExercise(ctx, id, Targets{}); err != nil {
		t.Fatalf("AddExercise with snapshot store down: %v", err)
	}
	view, err := env.engine.CompleteSet(ctx, 0, SetInput{Reps: intPtr(8)})
	if err != nil {
		t.Fatalf("CompleteSet with snapshot store down: %v", err)
	}
	if view.Stats.CompletedSets != 1 {
		t.Errorf("completed sets = %d, want 1", view.Stats.CompletedSets)
	}
}
