package server

import (
	"log/slog"
	"net/http"

	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/storage"
	"github.com/go-chi/chi/v5"
)

// Server holds dependencies for HTTP handlers. It is the presentation-facing
// surface of the engine: every session action maps to one route, and every
// response is either the updated view or a typed failure.
type Server struct {
	engine  *session.Engine
	catalog storage.CatalogStore
	records storage.RecordStore
	log     *slog.Logger
	apiKey  string
	router  chi.Router
}

// New creates a new Server with all routes configured.
func New(engine *session.Engine, catalog storage.CatalogStore, records storage.RecordStore, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		engine:  engine,
		catalog: catalog,
		records: records,
		log:     log,
		apiKey:  apiKey,
		router:  chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	// Reads are open; anything that mutates needs the API key.
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/session", s.handleGetSession)
		r.Get("/session/stats", s.handleSessionStats)
		r.Get("/session/suggestions", s.handleSuggestions)
		r.Get("/exercises", s.handleListExercises)
		r.Get("/exercises/{id}", s.handleGetExercise)
		r.Get("/workouts", s.handleQueryWorkouts)
		r.Get("/workouts/{id}", s.handleGetWorkout)

		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))

			r.Post("/session/start", s.handleStartSession)
			r.Post("/session/pause", s.handlePauseSession)
			r.Post("/session/resume", s.handleResumeSession)
			r.Post("/session/complete", s.handleCompleteSession)
			r.Post("/session/cancel", s.handleCancelSession)
			r.Post("/session/exercises", s.handleAddExercise)
			r.Post("/session/exercises/{index}/sets", s.handleCompleteSet)
			r.Delete("/session/exercises/{index}/sets/{setNumber}", s.handleUndoSet)
			r.Post("/session/exercises/{index}/rest", s.handleStartRest)
			r.Post("/session/rest/skip", s.handleSkipRest)

			r.Post("/exercises", s.handleCreateExercise)
			r.Put("/exercises/{id}", s.handleUpdateExercise)
			r.Delete("/exercises/{id}", s.handleDeleteExercise)
		})
	})
}
