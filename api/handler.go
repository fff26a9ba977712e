// Package api provides the admin HTTP API for webhook management and
// monitoring.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	hooks "github.com/VersatilVC/organize-prime-sub010"
	"github.com/VersatilVC/organize-prime-sub010/delivery"
	"github.com/VersatilVC/organize-prime-sub010/endpoint"
)

// Handler is the root HTTP handler for the admin API.
type Handler struct {
	monitor *hooks.Monitor
	logger  *slog.Logger
	mux     *http.ServeMux
}

// NewHandler creates a new admin API handler over a Monitor.
func NewHandler(m *hooks.Monitor, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		monitor: m,
		logger:  logger,
		mux:     http.NewServeMux(),
	}

	h.registerRoutes()
	return h
}

func (h *Handler) registerRoutes() {
	// Endpoints
	h.mux.HandleFunc("POST /endpoints", h.createEndpoint)
	h.mux.HandleFunc("GET /endpoints", h.listEndpoints)
	h.mux.HandleFunc("GET /endpoints/{id}", h.getEndpoint)
	h.mux.HandleFunc("PUT /endpoints/{id}", h.updateEndpoint)
	h.mux.HandleFunc("DELETE /endpoints/{id}", h.deleteEndpoint)
	h.mux.HandleFunc("PATCH /endpoints/{id}/enable", h.enableEndpoint)
	h.mux.HandleFunc("PATCH /endpoints/{id}/disable", h.disableEndpoint)
	h.mux.HandleFunc("POST /endpoints/{id}/rotate-secret", h.rotateSecret)

	// Deliveries
	h.mux.HandleFunc("POST /endpoints/{id}/test", h.testEndpoint)
	h.mux.HandleFunc("POST /test-batch", h.testBatch)
	h.mux.HandleFunc("POST /endpoints/{id}/retry-failed", h.retryFailed)
	h.mux.HandleFunc("GET /endpoints/{id}/events", h.listEvents)
	h.mux.HandleFunc("GET /events/{id}", h.getEvent)

	// Monitoring
	h.mux.HandleFunc("GET /endpoints/{id}/health", h.getHealth)
	h.mux.HandleFunc("GET /endpoints/{id}/stats", h.getStats)
	h.mux.HandleFunc("GET /endpoints/{id}/trends", h.getTrends)
	h.mux.HandleFunc("GET /trends", h.getFleetTrends)
	h.mux.HandleFunc("GET /top-triggers", h.getTopTriggers)
	h.mux.HandleFunc("GET /summary", h.getSummary)
	h.mux.HandleFunc("POST /refresh", h.refresh)
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.withMiddleware(h.mux).ServeHTTP(w, r)
}

func (h *Handler) withMiddleware(next http.Handler) http.Handler {
	return h.panicRecovery(h.logging(next))
}

func (h *Handler) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		h.logger.Info("api request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (h *Handler) panicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.Error("panic recovered",
					"error", rec,
					"stack", string(debug.Stack()),
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// JSON helpers.

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best effort
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps Monitor errors onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	var epErr *endpoint.ValidationError
	var payloadErr *delivery.ValidationError

	switch {
	case errors.Is(err, hooks.ErrEndpointNotFound):
		writeError(w, http.StatusNotFound, "endpoint not found")
	case errors.Is(err, hooks.ErrEventNotFound):
		writeError(w, http.StatusNotFound, "delivery event not found")
	case errors.Is(err, hooks.ErrEndpointInactive):
		writeError(w, http.StatusConflict, "endpoint is inactive")
	case errors.Is(err, hooks.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "test rate exceeded")
	case errors.As(err, &epErr), errors.As(err, &payloadErr):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// queryParam returns a query parameter value, or empty string if not present.
func queryParam(r *http.Request, key string) string {
	return r.URL.Query().Get(key)
}

// queryInt returns a query parameter as int or a default value.
func queryInt(r *http.Request, key string, defaultVal int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	var n int
	for _, c := range v {
		if c < '0' || c > '9' {
			return defaultVal
		}
		n = n*10 + int(c-'0')
	}
	return n
}
