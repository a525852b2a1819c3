package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// defaultTimeRange returns start/end defaulting to the last 30 days.
func defaultTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -30)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// --- Tool definitions ---

var toolGetActiveSession = mcp.NewTool("get_active_session",
	mcp.WithDescription("Get the current in-progress workout session: status, exercises, logged sets, rest countdown state, and live stats. Returns a note when no session is active."),
)

var toolGetSessionStats = mcp.NewTool("get_session_stats",
	mcp.WithDescription("Get aggregate stats for the active session: completed sets, total reps, total volume (kg), and elapsed seconds excluding paused time."),
)

var toolSuggestExercises = mcp.NewTool("suggest_exercises",
	mcp.WithDescription("Rank catalog exercises by fit with the current session composition. Suggestions favor compound movements for an empty session and complementary muscle groups afterwards."),
	mcp.WithNumber("limit", mcp.Description("Maximum number of suggestions. Defaults to 5.")),
)

var toolListExercises = mcp.NewTool("list_exercises",
	mcp.WithDescription("List the exercise catalog with muscle groups and equipment."),
)

var toolGetWorkoutHistory = mcp.NewTool("get_workout_history",
	mcp.WithDescription("Query finished workout records with duration, set/rep totals, and volume."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 30 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
)

// --- Tool handlers ---

func (h *handlers) getActiveSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	view, err := h.ds.ActiveSession(ctx)
	if err != nil {
		h.log.Error("mcp get_active_session", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if view == nil {
		return mcp.NewToolResultText("no active workout session"), nil
	}

	result, err := mcp.NewToolResultJSON(view)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSessionStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := h.ds.SessionStats(ctx)
	if err != nil {
		h.log.Error("mcp get_session_stats", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if stats == nil {
		return mcp.NewToolResultText("no active workout session"), nil
	}

	result, err := mcp.NewToolResultJSON(stats)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) suggestExercises(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 5)

	candidates, err := h.ds.Suggestions(ctx, limit)
	if err != nil {
		h.log.Error("mcp suggest_exercises", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(candidates)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listExercises(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercises, err := h.ds.ListExercises(ctx)
	if err != nil {
		h.log.Error("mcp list_exercises", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(exercises)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWorkoutHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	workouts, err := h.ds.QueryWorkouts(ctx, start, end)
	if err != nil {
		h.log.Error("mcp get_workout_history", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(workouts)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

// --- Resources ---

var resActiveSession = mcp.NewResource(
	"liftlog://active_session",
	"Active Session",
	mcp.WithResourceDescription("The in-progress workout session with exercises, sets, and live stats"),
	mcp.WithMIMEType("application/json"),
)

func (h *handlers) activeSession(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	view, err := h.ds.ActiveSession(ctx)
	if err != nil {
		return nil, err
	}

	var data []byte
	if view == nil {
		data = []byte(`{"active":false}`)
	} else {
		data, err = json.Marshal(view)
		if err != nil {
			return nil, err
		}
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
