package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/claude/liftlog/internal/models"
	"github.com/google/uuid"
)

// CreateExercise inserts a catalog exercise.
func (d *DB) CreateExercise(ctx context.Context, ex models.Exercise) error {
	groups, err := json.Marshal(ex.MuscleGroups)
	if err != nil {
		return fmt.Errorf("encoding muscle groups: %w", err)
	}
	_, err = d.db.ExecContext(ctx,
		`INSERT INTO exercises (id, name, muscle_groups, equipment, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		ex.ID.String(), ex.Name, string(groups), ex.Equipment, ex.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting exercise: %w", err)
	}
	return nil
}

// GetExercise retrieves a catalog exercise by ID.
func (d *DB) GetExercise(ctx context.Context, id uuid.UUID) (*models.Exercise, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, name, muscle_groups, equipment, created_at
		 FROM exercises WHERE id = ?`, id.String())

	ex, err := scanExercise(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying exercise: %w", err)
	}
	return ex, nil
}

// ListExercises retrieves all catalog exercises in insertion order. The order
// is stable, which the suggestion ranker relies on for tie-breaking.
func (d *DB) ListExercises(ctx context.Context) ([]models.Exercise, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, name, muscle_groups, equipment, created_at
		 FROM exercises ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer rows.Close()

	var result []models.Exercise
	for rows.Next() {
		ex, err := scanExercise(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning exercise: %w", err)
		}
		result = append(result, *ex)
	}
	return result, rows.Err()
}

// UpdateExercise rewrites a catalog exercise.
func (d *DB) UpdateExercise(ctx context.Context, ex models.Exercise) error {
	groups, err := json.Marshal(ex.MuscleGroups)
	if err != nil {
		return fmt.Errorf("encoding muscle groups: %w", err)
	}
	res, err := d.db.ExecContext(ctx,
		`UPDATE exercises SET name = ?, muscle_groups = ?, equipment = ? WHERE id = ?`,
		ex.Name, string(groups), ex.Equipment, ex.ID.String())
	if err != nil {
		return fmt.Errorf("updating exercise: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExercise removes a catalog exercise.
func (d *DB) DeleteExercise(ctx context.Context, id uuid.UUID) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM exercises WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("deleting exercise: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanExercise(row interface{ Scan(dest ...any) error }) (*models.Exercise, error) {
	var ex models.Exercise
	var idStr, groupsJSON string
	if err := row.Scan(&idStr, &ex.Name, &groupsJSON, &ex.Equipment, &ex.CreatedAt); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parsing exercise id: %w", err)
	}
	ex.ID = id
	if err := json.Unmarshal([]byte(groupsJSON), &ex.MuscleGroups); err != nil {
		return nil, fmt.Errorf("decoding muscle groups: %w", err)
	}
	return &ex, nil
}
