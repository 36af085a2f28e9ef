package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/stackie-hr/stackie-server/internal/identity"
)

// AuthHandler handles sign-up, sign-in and sign-out endpoints.
type AuthHandler struct {
	*Handler
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(base *Handler) *AuthHandler {
	return &AuthHandler{Handler: base}
}

// RegisterRoutes registers auth routes.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", h.SignUp)
		r.Post("/signin", h.SignIn)
		r.Post("/signout", h.SignOut)
		r.Get("/session", h.GetSession)
	})
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req *credentialsRequest) validate() string {
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return "a valid email is required"
	}
	if len(req.Password) < 6 {
		return "password must be at least 6 characters"
	}
	return ""
}

// SignUp registers a new account with the identity provider. An already
// registered email yields a named status, not an error.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		Error(w, http.StatusBadRequest, msg)
		return
	}

	result, err := h.controller.SignUp(r.Context(), req.Email, req.Password)
	if errors.Is(err, identity.ErrNotConfigured) {
		Error(w, http.StatusServiceUnavailable, "identity provider not configured")
		return
	}
	if err != nil {
		slog.Error("Sign-up failed", "error", err)
		Error(w, http.StatusBadGateway, "sign-up failed")
		return
	}

	JSON(w, http.StatusOK, result)
}

// SignIn authenticates with the identity provider. The session controller's
// phase flips via the provider's event, not here.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		Error(w, http.StatusBadRequest, msg)
		return
	}

	sess, err := h.controller.SignIn(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, identity.ErrNotConfigured):
		Error(w, http.StatusServiceUnavailable, "identity provider not configured")
		return
	case errors.Is(err, identity.ErrInvalidCredentials):
		Error(w, http.StatusUnauthorized, "invalid login credentials")
		return
	case err != nil:
		slog.Error("Sign-in failed", "error", err)
		Error(w, http.StatusBadGateway, "sign-in failed")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"user":       sess.User,
		"expires_at": sess.ExpiresAt,
	})
}

// SignOut revokes the current session. Local state is cleared even when the
// provider call fails, so this endpoint reports success unless the provider
// is entirely unconfigured.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.SignOut(r.Context()); err != nil {
		if errors.Is(err, identity.ErrNotConfigured) {
			Error(w, http.StatusServiceUnavailable, "identity provider not configured")
			return
		}
		slog.Warn("Sign-out revocation failed, session cleared locally", "error", err)
	}
	JSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

// GetSession returns the session controller's current snapshot.
func (h *AuthHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.controller.Snapshot())
}
