package session

import (
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/google/uuid"
)

// RestState describes the single system-wide rest countdown.
type RestState struct {
	ExerciseIndex int       `json:"exercise_index"`
	StartedAt     time.Time `json:"started_at"`
	EndsAt        time.Time `json:"ends_at"`
	RemainingSec  int       `json:"remaining_sec"`
}

// Stats are the aggregate numbers for the active session. Voided sets do not
// count. Elapsed time derives from absolute timestamps, so reading it twice
// never drifts.
type Stats struct {
	Status        models.Status `json:"status"`
	ExerciseCount int           `json:"exercise_count"`
	CompletedSets int           `json:"completed_sets"`
	TotalReps     int           `json:"total_reps"`
	TotalVolumeKg float64       `json:"total_volume_kg"`
	ElapsedSec    int           `json:"elapsed_sec"`
}

// View is the read-only session surface handed to presentation layers.
// Every field is a copy; mutating a View never touches engine state.
type View struct {
	RecordID    uuid.UUID                `json:"record_id"`
	Name        string                   `json:"name"`
	Status      models.Status            `json:"status"`
	StartTime   time.Time                `json:"start_time"`
	Exercises   []models.SessionExercise `json:"exercises"`
	Notes       string                   `json:"notes,omitempty"`
	LastSavedAt time.Time                `json:"last_saved_at"`
	Rest        *RestState               `json:"rest,omitempty"`
	Stats       Stats                    `json:"stats"`
}

func copyExercises(src []models.SessionExercise) []models.SessionExercise {
	out := make([]models.SessionExercise, len(src))
	for i, se := range src {
		cp := se
		cp.Exercise.MuscleGroups = append([]string(nil), se.Exercise.MuscleGroups...)
		cp.Sets = append([]models.SetEntry(nil), se.Sets...)
		if se.RestStartedAt != nil {
			t := *se.RestStartedAt
			cp.RestStartedAt = &t
		}
		cp.TargetSets = copyInt(se.TargetSets)
		cp.TargetReps = copyInt(se.TargetReps)
		cp.TargetWeight = copyFloat(se.TargetWeight)
		out[i] = cp
	}
	return out
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
