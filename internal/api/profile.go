package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stackie-hr/stackie-server/internal/domain"
	"github.com/stackie-hr/stackie-server/internal/middleware"
)

// ProfileHandler handles profile endpoints.
type ProfileHandler struct {
	*Handler
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(base *Handler) *ProfileHandler {
	return &ProfileHandler{Handler: base}
}

// RegisterRoutes registers profile routes.
func (h *ProfileHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/me", func(r chi.Router) {
		r.Get("/", h.GetMe)
		r.Patch("/", h.UpdateMe)
	})
}

// GetMe returns the requesting user's profile.
func (h *ProfileHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "identity required")
		return
	}

	profile, err := h.repo.GetProfile(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to load profile", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	if profile == nil {
		Error(w, http.StatusNotFound, "profile not found")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"profile":           profile,
		"queries_remaining": profile.QueriesRemaining(),
	})
}

// UpdateMe applies a partial profile update and echoes the new state into
// the session controller's cache.
func (h *ProfileHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "identity required")
		return
	}

	var update domain.ProfileUpdate
	if !decodeBody(w, r, &update) {
		return
	}
	if update.IsEmpty() {
		Error(w, http.StatusBadRequest, "no fields to update")
		return
	}

	profile, err := h.repo.UpdateProfile(r.Context(), userID, &update)
	if err != nil {
		slog.Error("Failed to update profile", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to update profile")
		return
	}
	if profile == nil {
		Error(w, http.StatusNotFound, "profile not found")
		return
	}

	h.controller.SetProfile(profile)

	JSON(w, http.StatusOK, map[string]interface{}{"profile": profile})
}
