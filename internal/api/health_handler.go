package api

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/pkg/response"
)

const readinessTimeout = 2 * time.Second

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	store   Pinger
	version string
	logger  *zap.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store Pinger, version string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{store: store, version: version, logger: logger}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version,omitempty"`
}

func status(s string) HealthResponse {
	return HealthResponse{Status: s, Timestamp: time.Now().UTC().Format(time.RFC3339)}
}

// Health returns the health status
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := status("ok")
	resp.Version = h.version
	response.OK(w, resp)
}

// Ready pings the store; a failing store answers 503
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("readiness check failed", zap.Error(err))
		response.Error(w, http.StatusServiceUnavailable, "NOT_READY", "store unavailable")
		return
	}
	response.OK(w, status("ready"))
}

// Live returns the liveness status
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	response.OK(w, status("alive"))
}
