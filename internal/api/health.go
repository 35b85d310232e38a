package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// HealthResponse is the GET /api/health body.
type HealthResponse struct {
	Status             string `json:"status"`
	PostgresConfigured bool   `json:"postgresConfigured"`
	LLMConfigured      bool   `json:"llmConfigured"`
	Timestamp          string `json:"timestamp"`
}

type healthHandler struct {
	pool          *pgxpool.Pool // nil without PostgreSQL
	llmConfigured bool
	logger        *slog.Logger
}

// health reports configuration completeness. "degraded" means the
// service still answers but without vector search or live models.
func (h *healthHandler) health(w http.ResponseWriter, _ *http.Request) {
	status := "ok"
	if h.pool == nil || !h.llmConfigured {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:             status,
		PostgresConfigured: h.pool != nil,
		LLMConfigured:      h.llmConfigured,
		Timestamp:          time.Now().UTC().Format(time.RFC3339),
	})
}

// readiness pings the database so orchestrators only route traffic once
// dependencies answer.
func (h *healthHandler) readiness(w http.ResponseWriter, r *http.Request) {
	if h.pool == nil {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	if err := h.pool.Ping(r.Context()); err != nil {
		h.logger.Error("readiness check failed", "error", err)
		http.Error(w, "database not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
