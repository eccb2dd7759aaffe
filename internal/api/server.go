// Package api exposes the learning service over HTTP as JSON.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/amagraneronline/curso-python/internal/activity"
	"github.com/amagraneronline/curso-python/internal/auth"
	"github.com/amagraneronline/curso-python/internal/dashboard"
	"github.com/amagraneronline/curso-python/internal/progress"
)

const (
	maxBodyBytes = 1 << 20
	checkTimeout = 2 * time.Second
)

// HealthChecker is implemented by the database and cache clients.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Config wires the HTTP server to the services.
type Config struct {
	Auth      *auth.Service
	Progress  *progress.Service
	Dashboard *dashboard.Dashboard
	Hub       *activity.Hub            // optional; without it /api/instructor/live is 404
	Checks    map[string]HealthChecker // readiness dependencies
}

// Server holds the HTTP handlers.
type Server struct {
	auth      *auth.Service
	progress  *progress.Service
	dashboard *dashboard.Dashboard
	hub       *activity.Hub
	checks    map[string]HealthChecker
}

// NewServer creates a Server.
func NewServer(cfg Config) *Server {
	return &Server{
		auth:      cfg.Auth,
		progress:  cfg.Progress,
		dashboard: cfg.Dashboard,
		hub:       cfg.Hub,
		checks:    cfg.Checks,
	}
}

// Handler returns the routed handler wrapped in the standard middleware.
func (s *Server) Handler() http.Handler {
	return RequestID(Logger(Recovery(s.routes())))
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.requireAuth(s.handleLogout))
	mux.HandleFunc("GET /api/me", s.requireAuth(s.handleMe))

	mux.HandleFunc("GET /api/progress", s.requireAuth(s.handleProgress))
	mux.HandleFunc("GET /api/modules/{id}", s.requireAuth(s.handleModule))
	mux.HandleFunc("POST /api/modules/{id}/quiz", s.requireAuth(s.handleQuiz))
	mux.HandleFunc("POST /api/modules/{id}/challenge", s.requireAuth(s.handleChallenge))
	mux.HandleFunc("POST /api/unlock", s.requireAuth(s.handleUnlock))

	mux.HandleFunc("GET /api/instructor/learners", s.requireInstructor(s.handleClassroom))
	mux.HandleFunc("GET /api/instructor/learners/{id}", s.requireInstructor(s.handleLearnerReport))
	mux.HandleFunc("GET /api/instructor/activity", s.requireInstructor(s.handleActivity))
	mux.HandleFunc("GET /api/instructor/export.csv", s.requireInstructor(s.handleExportCSV))
	mux.HandleFunc("GET /api/instructor/export.xlsx", s.requireInstructor(s.handleExportXLSX))
	if s.hub != nil {
		mux.HandleFunc("GET /api/instructor/live", s.requireLiveInstructor(s.handleLive))
	}

	return mux
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	failed := make(map[string]string)
	for name, c := range s.checks {
		if err := c.HealthCheck(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "checks": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
