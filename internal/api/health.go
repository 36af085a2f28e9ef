package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stackie-hr/stackie-server/internal/session"
	"github.com/stackie-hr/stackie-server/internal/store"
)

// healthCheckTimeout bounds the dependency probes.
const healthCheckTimeout = 5 * time.Second

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	repo       store.Repository
	controller *session.Controller
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(repo store.Repository, controller *session.Controller) *HealthHandler {
	return &HealthHandler{repo: repo, controller: controller}
}

// Health returns the health status of the API and its dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := map[string]interface{}{
		"status": "healthy",
		"checks": map[string]string{"api": "ok"},
	}
	statusCode := http.StatusOK

	if err := h.repo.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		status["checks"].(map[string]string)["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		status["checks"].(map[string]string)["database"] = "ok"
	}

	phase := h.controller.Phase()
	status["checks"].(map[string]string)["session"] = string(phase)
	if !phase.Ready() {
		status["status"] = "degraded"
	}

	JSON(w, statusCode, status)
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
