// Package server exposes the estimation pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mkurata/appraisal/internal/appraisal"
	"github.com/mkurata/appraisal/internal/auth"
	"github.com/mkurata/appraisal/internal/catalog"
	"github.com/mkurata/appraisal/internal/pricing"
	"github.com/mkurata/appraisal/internal/trend"
)

// HTTPServer wraps the chi router and the underlying http.Server
type HTTPServer struct {
	server *http.Server
	router *chi.Mux
	logger *slog.Logger

	estimator *appraisal.Service
	trends    trend.Provider
}

// HTTPServerConfig holds configuration for the HTTP server
type HTTPServerConfig struct {
	Port           int
	APIKey         string
	Logger         *slog.Logger
	AllowedOrigins []string // CORS allowed origins
}

// NewHTTPServer creates the HTTP server with all routes registered.
func NewHTTPServer(cfg HTTPServerConfig, estimator *appraisal.Service, trends trend.Provider) *HTTPServer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &HTTPServer{
		logger:    logger,
		estimator: estimator,
		trends:    trends,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLoggingMiddleware(logger))
	router.Use(middleware.Recoverer)
	router.Use(corsMiddleware(cfg.AllowedOrigins))
	router.Use(auth.NewAPIKeyMiddleware(cfg.APIKey).Handler)

	router.Get("/healthz", healthCheckHandler())
	router.Get("/readyz", readinessCheckHandler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/estimate", s.handleEstimate)
		r.Get("/trends/{designer}/{model}", s.handleTrend)
	})

	s.router = router
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", "address", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying chi router, used by tests.
func (s *HTTPServer) Router() *chi.Mux {
	return s.router
}

// handleEstimate runs the estimation pipeline for a JSON target item.
// Invalid input maps to 400; too few comparables or degenerate weights map
// to 422 with the failure details in the body.
func (s *HTTPServer) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var target catalog.TargetItem
	if err := json.NewDecoder(r.Body).Decode(&target); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	est, err := s.estimator.Estimate(r.Context(), &target)
	if err != nil {
		s.writeEstimateError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, est)
}

func (s *HTTPServer) writeEstimateError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *pricing.InvalidInputError
	if errors.As(err, &invalid) {
		writeError(w, http.StatusBadRequest, invalid.Error())
		return
	}

	var insufficient *pricing.InsufficientComparablesError
	if errors.As(err, &insufficient) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":          insufficient.Error(),
			"confidence":     pricing.ConfidenceNone,
			"found":          insufficient.Found,
			"required":       insufficient.Required,
			"considered":     insufficient.Considered,
			"min_similarity": insufficient.MinSimilarity,
		})
		return
	}

	if errors.Is(err, pricing.ErrZeroCombinedWeight) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":      err.Error(),
			"confidence": pricing.ConfidenceNone,
		})
		return
	}

	s.logger.Error("estimate failed",
		"error", err,
		"request_id", middleware.GetReqID(r.Context()),
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// handleTrend exposes the resolved trend score for a designer/model pair.
func (s *HTTPServer) handleTrend(w http.ResponseWriter, r *http.Request) {
	designer := chi.URLParam(r, "designer")
	model := chi.URLParam(r, "model")

	score, err := s.trends.TrendScore(r.Context(), designer, model)
	degraded := err != nil
	if degraded {
		s.logger.Warn("trend lookup degraded",
			"designer", designer, "model", model, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"designer":    designer,
		"model":       model,
		"trend_score": score,
		"degraded":    degraded,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestLoggingMiddleware logs HTTP requests
func requestLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote_addr", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// corsMiddleware handles CORS headers
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			if len(allowedOrigins) == 0 {
				// If no origins specified, allow all in development
				allowed = true
				origin = "*"
			} else {
				for _, o := range allowedOrigins {
					if o == "*" || o == origin {
						allowed = true
						break
					}
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, X-Request-ID, X-API-Key")
				w.Header().Set("Access-Control-Max-Age", "86400")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// healthCheckHandler returns a handler for the /healthz endpoint
func healthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}

// readinessCheckHandler returns a handler for the /readyz endpoint
func readinessCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
