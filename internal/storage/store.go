package storage

import (
	"context"
	"errors"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// RecordStore is the durable store for finished and in-flight workout records.
// The engine writes here exactly twice per session: at start and at the
// terminal transition.
type RecordStore interface {
	CreateWorkout(ctx context.Context, rec models.WorkoutRecord) (uuid.UUID, error)
	FinalizeWorkout(ctx context.Context, rec models.WorkoutRecord) error
	InsertWorkoutSets(ctx context.Context, rows []models.WorkoutSetRow) (int64, error)
	QueryWorkouts(ctx context.Context, start, end time.Time) ([]models.WorkoutRecord, error)
	GetWorkout(ctx context.Context, id uuid.UUID) (*models.WorkoutRecord, error)
}

// CatalogStore holds reusable exercise definitions.
type CatalogStore interface {
	CreateExercise(ctx context.Context, ex models.Exercise) error
	GetExercise(ctx context.Context, id uuid.UUID) (*models.Exercise, error)
	ListExercises(ctx context.Context) ([]models.Exercise, error)
	UpdateExercise(ctx context.Context, ex models.Exercise) error
	DeleteExercise(ctx context.Context, id uuid.UUID) error
}

// SnapshotStore is a single-slot byte store for the active session snapshot.
// Get returns (nil, nil) when the slot is empty.
type SnapshotStore interface {
	Get(ctx context.Context) ([]byte, error)
	Put(ctx context.Context, data []byte) error
	Delete(ctx context.Context) error
}
