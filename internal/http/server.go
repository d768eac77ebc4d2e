// Package http serves health, readiness, metrics and the OAuth callback.
package http

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"dynamite/internal/core"
)

const shutdownTimeout = 10 * time.Second

// AuthService is what the callback and readiness routes need from the
// credential manager.
type AuthService interface {
	HasValidCredential(team string) bool
	CompleteAuthorization(ctx context.Context, state, code string) (string, core.Credential, error)
}

type Server struct {
	config     *core.ServerConfig
	logger     *zap.Logger
	server     *http.Server
	metrics    *Metrics
	auth       AuthService
	team       string
	authorized func(ctx context.Context, team string)
}

func NewServer(config *core.ServerConfig, auth AuthService, team string, logger *zap.Logger) *Server {
	s := &Server{
		config:  config,
		logger:  logger,
		metrics: NewMetrics(),
		auth:    auth,
		team:    team,
	}
	s.server = createHTTPServer(config, s.routes())
	return s
}

// SetAuthService attaches the credential manager. Call it before Start.
func (s *Server) SetAuthService(auth AuthService) {
	s.auth = auth
}

// OnAuthorized registers a hook run after the callback stored a credential.
func (s *Server) OnAuthorized(hook func(ctx context.Context, team string)) {
	s.authorized = hook
}

func createHTTPServer(config *core.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writePage(w, http.StatusOK, "Playlist controller is running.")
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"status":"ok","service":"dynamite"}`)
	})
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	r.Get("/callback", s.handleCallback)

	return r
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.auth == nil || !s.auth.HasValidCredential(s.team) {
		writeJSON(w, http.StatusServiceUnavailable, `{"status":"unauthorized","service":"dynamite"}`)
		return
	}
	writeJSON(w, http.StatusOK, `{"status":"ready","service":"dynamite"}`)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if reason := q.Get("error"); reason != "" {
		s.logger.Warn("Authorization declined", zap.String("reason", reason))
		writePage(w, http.StatusBadRequest, "Authorization declined: "+reason)
		return
	}

	state, code := q.Get("state"), q.Get("code")
	if state == "" || code == "" {
		writePage(w, http.StatusBadRequest, "Missing code or state.")
		return
	}
	if s.auth == nil {
		writePage(w, http.StatusServiceUnavailable, "Authorization is not available.")
		return
	}

	team, _, err := s.auth.CompleteAuthorization(r.Context(), state, code)
	switch {
	case errors.Is(err, core.ErrInvalidAuthCode):
		s.logger.Warn("Authorization code rejected", zap.Error(err))
		writePage(w, http.StatusBadRequest, "The authorization code was rejected, please try again.")
		return
	case err != nil:
		s.logger.Error("Authorization callback failed", zap.Error(err))
		writePage(w, http.StatusInternalServerError, "Authorization failed.")
		return
	}

	s.logger.Info("Authorization completed through callback", zap.String("team", team))
	if s.authorized != nil {
		s.authorized(context.WithoutCancel(r.Context()), team)
	}
	writePage(w, http.StatusOK, "Spotify is connected. You can close this window.")
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Metrics returns the collectors the rest of the process records into.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func writePage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>mr-dynamite</title></head>
<body style="font-family: Arial, sans-serif; margin: 40px;">
<h1>📻 mr-dynamite</h1>
<p>%s</p>
</body>
</html>`, html.EscapeString(message))
}
