package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres implements RecordStore and CatalogStore on a shared Postgres, for
// setups where several devices log into one household server. The snapshot
// slot stays in the local SQLite file either way: crash recovery is a
// per-device concern and must not depend on the network.
type Postgres struct {
	Pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store with a connection pool.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &Postgres{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	p.Pool.Close()
}

// CreateWorkout inserts a new workout record and returns its ID.
func (p *Postgres) CreateWorkout(ctx context.Context, rec models.WorkoutRecord) (uuid.UUID, error) {
	id := rec.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err := p.Pool.Exec(ctx,
		`INSERT INTO workouts (id, name, status, start_time, duration_sec, total_sets, total_reps, total_volume_kg, notes)
		 VALUES ($1, $2, $3, $4, 0, 0, 0, 0, '')`,
		id, rec.Name, string(rec.Status), rec.StartTime)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting workout: %w", err)
	}
	return id, nil
}

// FinalizeWorkout writes the terminal state and aggregate totals of a workout.
func (p *Postgres) FinalizeWorkout(ctx context.Context, rec models.WorkoutRecord) error {
	tag, err := p.Pool.Exec(ctx,
		`UPDATE workouts SET status = $1, end_time = $2, duration_sec = $3,
		 total_sets = $4, total_reps = $5, total_volume_kg = $6, notes = $7
		 WHERE id = $8`,
		string(rec.Status), rec.EndTime, rec.DurationSec,
		rec.TotalSets, rec.TotalReps, rec.TotalVolume, rec.Notes, rec.ID)
	if err != nil {
		return fmt.Errorf("finalizing workout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertWorkoutSets batch-inserts finished set rows. Returns count inserted.
func (p *Postgres) InsertWorkoutSets(ctx context.Context, rows []models.WorkoutSetRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `INSERT INTO workout_sets (workout_id, exercise_name, exercise_number, set_number,
		reps, weight_kg, rir, rpe, completed_at) VALUES `
	args := make([]any, 0, len(rows)*9)
	valueStrings := make([]string, 0, len(rows))

	for i, r := range rows {
		base := i * 9
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9,
		))
		args = append(args, r.WorkoutID, r.ExerciseName, r.ExerciseNum, r.SetNumber,
			r.Reps, r.WeightKg, r.RIR, r.RPE, r.CompletedAt)
	}

	query += strings.Join(valueStrings, ",") + " ON CONFLICT DO NOTHING"

	tag, err := p.Pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting workout sets: %w", err)
	}
	return tag.RowsAffected(), nil
}

// QueryWorkouts retrieves workout records in a time range, newest first.
func (p *Postgres) QueryWorkouts(ctx context.Context, start, end time.Time) ([]models.WorkoutRecord, error) {
	rows, err := p.Pool.Query(ctx,
		`SELECT id, name, status, start_time, end_time, duration_sec,
		 total_sets, total_reps, total_volume_kg, notes
		 FROM workouts
		 WHERE start_time >= $1 AND start_time < $2
		 ORDER BY start_time DESC`,
		start, end)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	var result []models.WorkoutRecord
	for rows.Next() {
		var rec models.WorkoutRecord
		var status string
		if err := rows.Scan(&rec.ID, &rec.Name, &status, &rec.StartTime, &rec.EndTime,
			&rec.DurationSec, &rec.TotalSets, &rec.TotalReps, &rec.TotalVolume, &rec.Notes); err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		rec.Status = models.Status(status)
		result = append(result, rec)
	}
	return result, rows.Err()
}

// GetWorkout retrieves a single workout record by ID.
func (p *Postgres) GetWorkout(ctx context.Context, id uuid.UUID) (*models.WorkoutRecord, error) {
	row := p.Pool.QueryRow(ctx,
		`SELECT id, name, status, start_time, end_time, duration_sec,
		 total_sets, total_reps, total_volume_kg, notes
		 FROM workouts WHERE id = $1`, id)

	var rec models.WorkoutRecord
	var status string
	err := row.Scan(&rec.ID, &rec.Name, &status, &rec.StartTime, &rec.EndTime,
		&rec.DurationSec, &rec.TotalSets, &rec.TotalReps, &rec.TotalVolume, &rec.Notes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying workout: %w", err)
	}
	rec.Status = models.Status(status)
	return &rec, nil
}

// CreateExercise inserts a catalog exercise.
func (p *Postgres) CreateExercise(ctx context.Context, ex models.Exercise) error {
	groups, err := json.Marshal(ex.MuscleGroups)
	if err != nil {
		return fmt.Errorf("encoding muscle groups: %w", err)
	}
	_, err = p.Pool.Exec(ctx,
		`INSERT INTO exercises (id, name, muscle_groups, equipment, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		ex.ID, ex.Name, string(groups), ex.Equipment, ex.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting exercise: %w", err)
	}
	return nil
}

// GetExercise retrieves a catalog exercise by ID.
func (p *Postgres) GetExercise(ctx context.Context, id uuid.UUID) (*models.Exercise, error) {
	row := p.Pool.QueryRow(ctx,
		`SELECT id, name, muscle_groups, equipment, created_at
		 FROM exercises WHERE id = $1`, id)

	var ex models.Exercise
	var groupsJSON string
	err := row.Scan(&ex.ID, &ex.Name, &groupsJSON, &ex.Equipment, &ex.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying exercise: %w", err)
	}
	if err := json.Unmarshal([]byte(groupsJSON), &ex.MuscleGroups); err != nil {
		return nil, fmt.Errorf("decoding muscle groups: %w", err)
	}
	return &ex, nil
}

// ListExercises retrieves all catalog exercises in insertion order.
func (p *Postgres) ListExercises(ctx context.Context) ([]models.Exercise, error) {
	rows, err := p.Pool.Query(ctx,
		`SELECT id, name, muscle_groups, equipment, created_at
		 FROM exercises ORDER BY created_at ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer rows.Close()

	var result []models.Exercise
	for rows.Next() {
		var ex models.Exercise
		var groupsJSON string
		if err := rows.Scan(&ex.ID, &ex.Name, &groupsJSON, &ex.Equipment, &ex.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning exercise: %w", err)
		}
		if err := json.Unmarshal([]byte(groupsJSON), &ex.MuscleGroups); err != nil {
			return nil, fmt.Errorf("decoding muscle groups: %w", err)
		}
		result = append(result, ex)
	}
	return result, rows.Err()
}

// UpdateExercise rewrites a catalog exercise.
func (p *Postgres) UpdateExercise(ctx context.Context, ex models.Exercise) error {
	groups, err := json.Marshal(ex.MuscleGroups)
	if err != nil {
		return fmt.Errorf("encoding muscle groups: %w", err)
	}
	tag, err := p.Pool.Exec(ctx,
		`UPDATE exercises SET name = $1, muscle_groups = $2, equipment = $3 WHERE id = $4`,
		ex.Name, string(groups), ex.Equipment, ex.ID)
	if err != nil {
		return fmt.Errorf("updating exercise: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExercise removes a catalog exercise.
func (p *Postgres) DeleteExercise(ctx context.Context, id uuid.UUID) error {
	tag, err := p.Pool.Exec(ctx, `DELETE FROM exercises WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting exercise: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
