package models

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a workout session.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusPaused     Status = "paused"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusInProgress, StatusPaused, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Exercise is a catalog exercise definition.
type Exercise struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	MuscleGroups []string  `json:"muscle_groups"`
	Equipment    string    `json:"equipment,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// SetEntry is one logged set within a session exercise. Set numbers are
// 1-based and strictly increasing; an undone set is voided, never renumbered.
type SetEntry struct {
	SetNumber   int       `json:"set_number"`
	Reps        *int      `json:"reps,omitempty"`
	WeightKg    *float64  `json:"weight_kg,omitempty"`
	DurationSec *int      `json:"duration_sec,omitempty"`
	DistanceM   *float64  `json:"distance_m,omitempty"`
	RIR         *int      `json:"rir,omitempty"`
	RPE         *float64  `json:"rpe,omitempty"`
	Completed   bool      `json:"completed"`
	Voided      bool      `json:"voided,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// SessionExercise is one exercise instance inside a session. It holds a copy
// of the catalog exercise taken at add-time, so later catalog edits do not
// rewrite history.
type SessionExercise struct {
	Exercise      Exercise   `json:"exercise"`
	OrderIndex    int        `json:"order_index"`
	TargetSets    *int       `json:"target_sets,omitempty"`
	TargetReps    *int       `json:"target_reps,omitempty"`
	TargetWeight  *float64   `json:"target_weight_kg,omitempty"`
	RestSeconds   int        `json:"rest_seconds,omitempty"`
	Sets          []SetEntry `json:"sets"`
	RestStartedAt *time.Time `json:"rest_started_at,omitempty"`
}

// WorkoutSession is the aggregate root of an in-progress workout.
// RecordID is uuid.Nil until the record store has persisted the session.
type WorkoutSession struct {
	RecordID      uuid.UUID         `json:"record_id"`
	Name          string            `json:"name"`
	Status        Status            `json:"status"`
	StartTime     time.Time         `json:"start_time"`
	PausedAt      *time.Time        `json:"paused_at,omitempty"`
	PausedSeconds int               `json:"paused_seconds"`
	Exercises     []SessionExercise `json:"exercises"`
	Notes         string            `json:"notes,omitempty"`
	LastSavedAt   time.Time         `json:"last_saved_at"`
}

// WorkoutRecord is the durable record-store row for a workout, written at
// session start and finalized on completion or cancellation.
type WorkoutRecord struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Status      Status     `json:"status"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	DurationSec int        `json:"duration_sec"`
	TotalSets   int        `json:"total_sets"`
	TotalReps   int        `json:"total_reps"`
	TotalVolume float64    `json:"total_volume_kg"`
	Notes       string     `json:"notes,omitempty"`
}

// WorkoutSetRow is one finished set as stored alongside its workout record.
type WorkoutSetRow struct {
	WorkoutID    uuid.UUID `json:"workout_id"`
	ExerciseName string    `json:"exercise_name"`
	ExerciseNum  int       `json:"exercise_number"`
	SetNumber    int       `json:"set_number"`
	Reps         *int      `json:"reps,omitempty"`
	WeightKg     *float64  `json:"weight_kg,omitempty"`
	RIR          *int      `json:"rir,omitempty"`
	RPE          *float64  `json:"rpe,omitempty"`
	CompletedAt  time.Time `json:"completed_at"`
}
