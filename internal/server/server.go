package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/durablenotes/durablenotes/internal/actor"
	"github.com/durablenotes/durablenotes/internal/config"
	"github.com/durablenotes/durablenotes/internal/space"
	"github.com/durablenotes/durablenotes/internal/store"
)

// Server is the durablenotes HTTP API server.
type Server struct {
	db      *store.DB
	dir     *actor.Directory
	spaces  *space.Registry
	cfg     config.Config
	router  chi.Router
	version string
	started time.Time
}

// New creates a new Server routing note operations through the given
// actor directory.
func New(db *store.DB, dir *actor.Directory, cfg config.Config, version string) *Server {
	s := &Server{
		db:      db,
		dir:     dir,
		spaces:  space.NewRegistry(),
		cfg:     cfg,
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

		// Public branding config, read before login.
		r.Get("/settings", s.handleGetSettings)

		// Everything below runs scoped to a resolved identity.
		r.Group(func(r chi.Router) {
			r.Use(s.withIdentity)

			r.Get("/notes", s.handleListNotes)
			r.Post("/notes", s.handleCreateNote)
			r.Patch("/notes/{noteID}", s.handleUpdateNote)
			r.Patch("/notes/{noteID}/archive", s.handleArchiveNote)

			r.Get("/spaces", s.handleListSpaces)
			r.Post("/spaces", s.handleAddSpace)

			r.Route("/admin", func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Get("/stats", s.handleAdminStats)
				r.Get("/users", s.handleAdminUsers)
				r.Post("/settings", s.handleAdminSettings)
			})
		})
	})

	// Non-API paths fall through to the embedded SPA.
	r.NotFound(spaHandler())

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
		"actors":  s.dir.ActiveActors(),
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.db.AllSettings()
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(settings)
}
