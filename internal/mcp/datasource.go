package mcp

import (
	"context"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/suggest"
)

// DataSource abstracts the daemon's API for MCP tools. ActiveSession and
// SessionStats return (nil, nil) when no session is active.
type DataSource interface {
	ActiveSession(ctx context.Context) (*session.View, error)
	SessionStats(ctx context.Context) (*session.Stats, error)
	Suggestions(ctx context.Context, limit int) ([]suggest.Candidate, error)
	ListExercises(ctx context.Context) ([]models.Exercise, error)
	QueryWorkouts(ctx context.Context, start, end time.Time) ([]models.WorkoutRecord, error)
}
