package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger is a dependency the readiness probe checks
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler handles health check endpoints
type HealthHandler struct {
	database Pinger
	redis    Pinger // nil when revocations are kept in process
	logger   *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(database, redis Pinger, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{database: database, redis: redis, logger: logger}
}

// Health handles GET /healthz - liveness only
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{"status": "ok"})
}

// Ready handles GET /readyz. Returns 503 unless every configured dependency answers.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{
		"postgres": check(ctx, h.database),
		"redis":    check(ctx, h.redis),
	}

	status, code := "ready", http.StatusOK
	for _, c := range checks {
		if c != "ok" && c != "not configured" {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
	}
	if h.database == nil {
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	writeJSON(w, code, envelope{"status": status, "checks": checks})

	h.logger.Info("readiness check",
		slog.String("status", status),
		slog.String("postgres", checks["postgres"]),
		slog.String("redis", checks["redis"]),
	)
}

func check(ctx context.Context, p Pinger) string {
	if p == nil {
		return "not configured"
	}
	if err := p.Ping(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}
