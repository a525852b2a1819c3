package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/google/uuid"
)

type seedExercise struct {
	name      string
	groups    []string
	equipment string
}

// Starter catalog for a fresh install. Users extend it through the API.
var seedExercises = []seedExercise{
	{"Barbell Back Squat", []string{"quadriceps", "glutes", "hamstrings"}, "barbell"},
	{"Barbell Bench Press", []string{"chest", "triceps", "shoulders"}, "barbell"},
	{"Deadlift", []string{"hamstrings", "glutes", "lower back"}, "barbell"},
	{"Overhead Press", []string{"shoulders", "triceps"}, "barbell"},
	{"Barbell Row", []string{"back", "biceps"}, "barbell"},
	{"Pull-Up", []string{"back", "lats", "biceps"}, "bodyweight"},
	{"Dumbbell Lunge", []string{"quadriceps", "glutes"}, "dumbbell"},
	{"Romanian Deadlift", []string{"hamstrings", "glutes"}, "barbell"},
	{"Dumbbell Curl", []string{"biceps"}, "dumbbell"},
	{"Triceps Pushdown", []string{"triceps"}, "cable"},
	{"Lateral Raise", []string{"shoulders"}, "dumbbell"},
	{"Leg Press", []string{"quadriceps", "glutes"}, "machine"},
	{"Lat Pulldown", []string{"lats", "biceps"}, "cable"},
	{"Leg Curl", []string{"hamstrings"}, "machine"},
	{"Plank", []string{"abs"}, "bodyweight"},
	{"Cable Crunch", []string{"abs"}, "cable"},
	{"Hip Thrust", []string{"glutes", "hamstrings"}, "barbell"},
	{"Incline Dumbbell Press", []string{"chest", "shoulders", "triceps"}, "dumbbell"},
	{"Face Pull", []string{"shoulders", "back"}, "cable"},
	{"Calf Raise", []string{"calves"}, "machine"},
}

// SeedCatalog inserts the starter exercises into an empty catalog. It is a
// no-op when the catalog already has entries, so it is safe on every startup.
func SeedCatalog(ctx context.Context, catalog CatalogStore, log *slog.Logger) error {
	existing, err := catalog.ListExercises(ctx)
	if err != nil {
		return fmt.Errorf("checking catalog: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	now := time.Now().UTC()
	for _, s := range seedExercises {
		ex := models.Exercise{
			ID:           uuid.New(),
			Name:         s.name,
			MuscleGroups: s.groups,
			Equipment:    s.equipment,
			CreatedAt:    now,
		}
		if err := catalog.CreateExercise(ctx, ex); err != nil {
			return fmt.Errorf("seeding %q: %w", s.name, err)
		}
	}
	log.Info("catalog seeded", "exercises", len(seedExercises))
	return nil
}
