package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// The active session occupies a single fixed slot. Writing it is idempotent:
// each save replaces whatever was there before.
const snapshotKey = "active_session"

// Get returns the active-session snapshot, or (nil, nil) if the slot is empty.
func (d *DB) Get(ctx context.Context) ([]byte, error) {
	var data []byte
	err := d.db.QueryRowContext(ctx,
		`SELECT data FROM snapshots WHERE key = ?`, snapshotKey).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	return data, nil
}

// Put overwrites the active-session snapshot slot.
func (d *DB) Put(ctx context.Context, data []byte) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO snapshots (key, data, saved_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, saved_at = excluded.saved_at`,
		snapshotKey, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// Delete clears the active-session snapshot slot. Deleting an empty slot is
// not an error.
func (d *DB) Delete(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM snapshots WHERE key = ?`, snapshotKey)
	if err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	return nil
}
