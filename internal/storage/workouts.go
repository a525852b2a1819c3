package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/google/uuid"
)

// CreateWorkout inserts a new workout record and returns its ID. The record
// starts in_progress; FinalizeWorkout settles it.
func (d *DB) CreateWorkout(ctx context.Context, rec models.WorkoutRecord) (uuid.UUID, error) {
	id := rec.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO workouts (id, name, status, start_time, duration_sec, total_sets, total_reps, total_volume_kg, notes)
		 VALUES (?, ?, ?, ?, 0, 0, 0, 0, '')`,
		id.String(), rec.Name, string(rec.Status), rec.StartTime)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting workout: %w", err)
	}
	return id, nil
}

// FinalizeWorkout writes the terminal state and aggregate totals of a workout.
func (d *DB) FinalizeWorkout(ctx context.Context, rec models.WorkoutRecord) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE workouts SET status = ?, end_time = ?, duration_sec = ?,
		 total_sets = ?, total_reps = ?, total_volume_kg = ?, notes = ?
		 WHERE id = ?`,
		string(rec.Status), rec.EndTime, rec.DurationSec,
		rec.TotalSets, rec.TotalReps, rec.TotalVolume, rec.Notes, rec.ID.String())
	if err != nil {
		return fmt.Errorf("finalizing workout: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertWorkoutSets batch-inserts finished set rows. Returns count inserted.
func (d *DB) InsertWorkoutSets(ctx context.Context, rows []models.WorkoutSetRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `INSERT INTO workout_sets (workout_id, exercise_name, exercise_number, set_number,
		reps, weight_kg, rir, rpe, completed_at) VALUES `
	args := make([]any, 0, len(rows)*9)
	valueStrings := make([]string, 0, len(rows))

	for _, r := range rows {
		valueStrings = append(valueStrings, "(?,?,?,?,?,?,?,?,?)")
		args = append(args, r.WorkoutID.String(), r.ExerciseName, r.ExerciseNum, r.SetNumber,
			r.Reps, r.WeightKg, r.RIR, r.RPE, r.CompletedAt)
	}

	query += strings.Join(valueStrings, ",")

	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting workout sets: %w", err)
	}
	return res.RowsAffected()
}

// QueryWorkouts retrieves workout records in a time range, newest first.
func (d *DB) QueryWorkouts(ctx context.Context, start, end time.Time) ([]models.WorkoutRecord, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, name, status, start_time, end_time, duration_sec,
		 total_sets, total_reps, total_volume_kg, notes
		 FROM workouts
		 WHERE start_time >= ? AND start_time < ?
		 ORDER BY start_time DESC`,
		start, end)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	var result []models.WorkoutRecord
	for rows.Next() {
		rec, err := scanWorkout(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		result = append(result, *rec)
	}
	return result, rows.Err()
}

// GetWorkout retrieves a single workout record by ID.
func (d *DB) GetWorkout(ctx context.Context, id uuid.UUID) (*models.WorkoutRecord, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, name, status, start_time, end_time, duration_sec,
		 total_sets, total_reps, total_volume_kg, notes
		 FROM workouts WHERE id = ?`, id.String())

	rec, err := scanWorkout(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying workout: %w", err)
	}
	return rec, nil
}

func scanWorkout(row interface{ Scan(dest ...any) error }) (*models.WorkoutRecord, error) {
	var rec models.WorkoutRecord
	var idStr, status string
	var endTime sql.NullTime
	if err := row.Scan(&idStr, &rec.Name, &status, &rec.StartTime, &endTime,
		&rec.DurationSec, &rec.TotalSets, &rec.TotalReps, &rec.TotalVolume, &rec.Notes); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parsing workout id: %w", err)
	}
	rec.ID = id
	rec.Status = models.Status(status)
	if endTime.Valid {
		t := endTime.Time
		rec.EndTime = &t
	}
	return &rec, nil
}
