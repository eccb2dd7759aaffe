package api

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amagraneronline/curso-python/internal/auth"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	accountKey   contextKey = "account"
)

// RequestID tags each request with an id, reusing X-Request-ID when sent.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// RequestIDFrom returns the request id stored by RequestID.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Logger writes one structured log line per request.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", RequestIDFrom(r.Context()),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Hijack is needed by the websocket upgrade.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(w.ResponseWriter).Hijack()
}

// Recovery turns a panic into a 500 response.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("panic recovered",
					"error", rec,
					"stack", string(debug.Stack()),
					"request_id", RequestIDFrom(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
				)
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: &APIError{
					Code:    CodeInternal,
					Message: "an unexpected error occurred",
				}})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// tokenFrom reads the session token from "Authorization: Bearer <token>".
func tokenFrom(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

// websocketTokenFrom also accepts the token query parameter, since browsers
// cannot set headers on websocket handshakes. Only the live feed uses it.
func websocketTokenFrom(r *http.Request) string {
	if token := tokenFrom(r); token != "" {
		return token
	}
	return r.URL.Query().Get("token")
}

// requireAuth resolves the session and stores the account in the context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return s.authenticate(tokenFrom, next)
}

func (s *Server) authenticate(token func(*http.Request) string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, err := s.auth.Authenticate(r.Context(), token(r))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), accountKey, account)))
	}
}

// requireInstructor is requireAuth plus a role check.
func (s *Server) requireInstructor(next http.HandlerFunc) http.HandlerFunc {
	return s.requireAuth(instructorOnly(next))
}

// requireLiveInstructor is requireInstructor for the websocket feed.
func (s *Server) requireLiveInstructor(next http.HandlerFunc) http.HandlerFunc {
	return s.authenticate(websocketTokenFrom, instructorOnly(next))
}

func instructorOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !accountFrom(r.Context()).IsInstructor() {
			writeError(w, r, http.StatusForbidden, &APIError{Code: CodeForbidden, Message: "instructor role required"})
			return
		}
		next(w, r)
	}
}

func accountFrom(ctx context.Context) *auth.Account {
	a, _ := ctx.Value(accountKey).(*auth.Account)
	return a
}
