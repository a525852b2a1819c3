// Package mcp exposes the liftlog daemon to MCP clients: an assistant can
// read the active session, pull stats mid-workout, and ask for exercise
// suggestions without touching the REST API directly.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("liftlog", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("liftlog workout tracker. Query the active workout session, its live stats, next-exercise suggestions, the exercise catalog, and past workouts."),
	)

	h := &handlers{ds: ds, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolGetActiveSession, Handler: h.getActiveSession},
		server.ServerTool{Tool: toolGetSessionStats, Handler: h.getSessionStats},
		server.ServerTool{Tool: toolSuggestExercises, Handler: h.suggestExercises},
		server.ServerTool{Tool: toolListExercises, Handler: h.listExercises},
		server.ServerTool{Tool: toolGetWorkoutHistory, Handler: h.getWorkoutHistory},
	)

	s.AddResources(
		server.ServerResource{Resource: resActiveSession, Handler: h.activeSession},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}
