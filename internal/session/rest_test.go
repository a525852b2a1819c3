package session

import (
	"context"
	"testing"
	"time"
)

func TestRestStartsAutomaticallyAfterSet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.addCatalog(t, "Barbell Back Squat", "quadriceps", "glutes")

	if _, err := env.engine.Start(ctx, ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := env.engine.AddExercise(ctx, id, Targets{RestSeconds: 90}); err != nil {
		t.Fatalf("AddExercise: %v", err)
	}

	view, err := env.engine.CompleteSet(ctx, 0, SetInput{Reps: intPtr(5)})
	if err != nil {
		t.Fatalf("CompleteSet: %v", err)
	}
	if view.Rest == nil {
		t.Fatal("expected rest countdown after completing a set")
	}
	if view.Rest.ExerciseIndex != 0 {
		t.Errorf("rest exercise index = %d, want 0", view.Rest.ExerciseIndex)
	}
	if view.Rest.RemainingSec != 90 {
		t.Errorf("remaining = %d, want 90", view.Rest.RemainingSec)
	}

	env.clock.Advance(30 * time.Second)
	view, err = env.engine.View()
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if view.Rest == nil || view.Rest.RemainingSec != 60 {
		t.Fatalf("rest after 30s = %+v, want 60s remaining", view.Rest)
	}

	env.clock.Advance(60 * time.Second)
	view, err = env.engine.View()
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if view.Rest != nil {
		t.Errorf("rest should be cleared after expiry, got %+v", view.Rest)
	}
}

func TestRestNotStartedWithoutConfiguredDuration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.addCatalog(t, "Plank", "abs")

	if _, err := env.engine.Start(ctx, ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := env.engine.AddExercise(ctx, id, Targets{}); err != nil {
		t.Fatalf("AddExercise: %v", err)
	}

	view, err := env.engine.CompleteSet(ctx, 0, SetInput{DurationSec: intPtr(60)})
	if err != nil {
		t.Fatalf("CompleteSet: %v", err)
	}
	if view.Rest != nil {
		t.Errorf("no rest configured, got countdown %+v", view.Rest)
	}

	if _, err := env.engine.StartRest(ctx, 0); !IsCode(err, CodeValidation) {
		t.Errorf("StartRest without duration: got %v, want validation error", err)
	}
}

func TestNewRestSupersedesOld(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	squat := env.addCatalog(t, "Barbell Back Squat", "quadriceps", "glutes")
	bench := env.addCatalog(t, "Barbell Bench Press", "chest", "triceps")

	if _, err := env.engine.Start(ctx, ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := env.engine.AddExercise(ctx, squat, Targets{RestSeconds: 120}); err != nil {
		t.Fatalf("AddExercise: %v", err)
	}
	if _, err := env.engine.AddExercise(ctx, bench, Targets{RestSeconds: 90}); err != nil {
		t.Fatalf("AddExercise: %v", err)
	}

	if _, err := env.engine.CompleteSet(ctx, 0, SetInput{Reps: intPtr(5)}); err != nil {
		t.Fatalf("CompleteSet squat: %v", err)
	}
	env.clock.Advance(30 * time.Second)
	view, err := env.engine.CompleteSet(ctx, 1, SetInput{Reps: intPtr(8)})
	if err != nil {
		t.Fatalf("CompleteSet bench: %v", err)
	}
	if view.Rest == nil || view.Rest.ExerciseIndex != 1 {
		t.Fatalf("rest = %+v, want countdown for exercise 1", view.Rest)
	}

	// Past the first countdown's original deadline; only the new one counts.
	env.clock.Advance(95 * time.Second)
	view, err = env.engine.View()
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if view.Rest != nil {
		t.Errorf("second rest (90s) should have expired, got %+v", view.Rest)
	}

	// The superseded exercise no longer carries a rest marker.
	if view.Exercises[0].RestStartedAt != nil {
		t.Error("superseded rest marker still set on exercise 0")
	}
}

func TestSkipRest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.addCatalog(t, "Deadlift", "hamstrings", "lower back")

	if _, err := env.engine.Start(ctx, ""); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Skipping with no countdown is a no-op, not an error.
	view, err := env.engine.SkipRest(ctx)
	if err != nil {
		t.Fatalf("SkipRest with no rest: %v", err)
	}
	if view.Rest != nil {
		t.Errorf("rest = %+v, want nil", view.Rest)
	}

	if _, err := env.engine.AddExercise(ctx, id, Targets{RestSeconds: 180}); err != nil {
		t.Fatalf("AddExercise: %v", err)
	}
	if _, err := env.engine.CompleteSet(ctx, 0, SetInput{Reps: intPtr(3)}); err != nil {
		t.Fatalf("CompleteSet: %v", err)
	}
	view, err = env.engine.SkipRest(ctx)
	if err != nil {
		t.Fatalf("SkipRest: %v", err)
	}
	if view.Rest != nil {
		t.Errorf("rest after skip = %+v, want nil", view.Rest)
	}

	// The cancelled timer must not clear a later countdown when its original
	// deadline passes.
	if _, err := env.engine.StartRest(ctx, 0); err != nil {
		t.Fatalf("StartRest: %v", err)
	}
	env.clock.Advance(1 * time.Second)
	view, err = env.engine.View()
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if view.Rest == nil {
		t.Fatal("restarted countdown disappeared")
	}
}
