// Package auth provides API key authentication middleware for the HTTP API.
package auth

import (
	"encoding/json"
	"net/http"
	"strings"
)

// APIKeyHeader is the request header carrying the API key
const APIKeyHeader = "X-API-Key"

// APIKeyMiddleware validates the X-API-Key header against a configured key.
// Health check paths are always skipped. An empty configured key disables
// authentication entirely, which is the development default.
type APIKeyMiddleware struct {
	apiKey    string
	skipPaths map[string]bool
}

// NewAPIKeyMiddleware creates the middleware with default skip paths.
func NewAPIKeyMiddleware(apiKey string) *APIKeyMiddleware {
	return &APIKeyMiddleware{
		apiKey: apiKey,
		skipPaths: map[string]bool{
			"/healthz": true,
			"/readyz":  true,
		},
	}
}

// WithSkipPaths adds paths to skip authentication
func (m *APIKeyMiddleware) WithSkipPaths(paths ...string) *APIKeyMiddleware {
	for _, p := range paths {
		m.skipPaths[p] = true
	}
	return m
}

// Handler returns the chi-compatible middleware function.
func (m *APIKeyMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.apiKey == "" || m.skipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		key := strings.TrimSpace(r.Header.Get(APIKeyHeader))
		if key == "" {
			unauthorized(w, "missing API key")
			return
		}
		if key != m.apiKey {
			unauthorized(w, "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
