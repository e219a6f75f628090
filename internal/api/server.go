// Package api exposes research runs over a REST API.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/events"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/service/research"
)

// Engine is the subset of the research engine served over HTTP.
type Engine interface {
	StartRun(ctx context.Context, topic string, maxAnalysts int, opts ...research.RunOption) (string, error)
	ResumeAsync(ctx context.Context, runID string, d core.Decision) (<-chan error, error)
	Cancel(ctx context.Context, runID string) error
	GetState(ctx context.Context, runID string) (*core.Checkpoint, error)
	GetFinalReport(ctx context.Context, runID string) (string, error)
	PatchAnalysts(ctx context.Context, runID string, analysts []core.Analyst) (*core.Checkpoint, error)
	List(ctx context.Context) ([]core.CheckpointSummary, error)
	Delete(ctx context.Context, runID string) error
}

// Server provides HTTP endpoints for research runs.
type Server struct {
	router         chi.Router
	engine         Engine
	eventBus       *events.EventBus
	logger         *slog.Logger
	allowedOrigins []string
	requestTimeout time.Duration
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithAllowedOrigins restricts CORS origins. Defaults to any origin.
func WithAllowedOrigins(origins ...string) ServerOption {
	return func(s *Server) {
		if len(origins) > 0 {
			s.allowedOrigins = origins
		}
	}
}

// WithRequestTimeout bounds non-streaming requests.
func WithRequestTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// NewServer creates a new API server. eventBus may be nil, which disables
// the event stream.
func NewServer(engine Engine, eventBus *events.EventBus, opts ...ServerOption) *Server {
	s := &Server{
		engine:         engine,
		eventBus:       eventBus,
		logger:         slog.Default(),
		allowedOrigins: []string{"*"},
		requestTimeout: 2 * time.Minute,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.router = s.setupRouter()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	r.Use(corsHandler.Handler)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/runs", func(r chi.Router) {
		timeout := middleware.Timeout(s.requestTimeout)

		r.With(timeout).Get("/", s.handleListRuns)
		r.With(timeout).Post("/", s.handleStartRun)

		r.Route("/{runID}", func(r chi.Router) {
			// Streams outlive the request timeout.
			r.Get("/events", s.handleRunEvents)

			r.Group(func(r chi.Router) {
				r.Use(timeout)
				r.Get("/", s.handleGetRun)
				r.Delete("/", s.handleDeleteRun)
				r.Post("/resume", s.handleResumeRun)
				r.Post("/cancel", s.handleCancelRun)
				r.Put("/analysts", s.handlePatchAnalysts)
				r.Get("/report", s.handleGetReport)
			})
		})
	})

	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"bytes", ww.BytesWritten(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

// respondError sends a JSON error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// ListenAndServe starts the HTTP server and shuts it down when ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("starting API server", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
