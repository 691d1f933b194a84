package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/duskward/affinity/internal/affinity"
	"github.com/duskward/affinity/internal/store"
)

// Server is the affinityd HTTP API: event ingestion, affordance evaluation,
// and the admin query surface.
type Server struct {
	db      *store.DB
	eng     *affinity.Engine
	admin   *affinity.AdminSurface
	router  chi.Router
	version string
	started time.Time
}

// New creates a Server wired to the given engine and store.
func New(db *store.DB, eng *affinity.Engine, version string) *Server {
	s := &Server{
		db:      db,
		eng:     eng,
		admin:   affinity.NewAdminSurface(eng),
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/events", s.handleLogEvent)
		r.Post("/affordances/evaluate", s.handleEvaluate)
		r.Post("/artifacts/carry", s.handleCarryArtifact)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/inspect", s.handleInspect)
			r.Get("/why", s.handleWhy)
			r.Get("/history", s.handleHistory)
			r.Get("/replay", s.handleReplay)
			r.Get("/reeval", s.handleReeval)
			r.Post("/toggle", s.handleToggle)
			r.Post("/test", s.handleTest)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := s.db.Ping() == nil

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
	})
}

func writeJSONError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
