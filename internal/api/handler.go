// Package api provides HTTP handlers for the Stackie API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/stackie-hr/stackie-server/internal/session"
	"github.com/stackie-hr/stackie-server/internal/store"
)

// maxBodyBytes bounds request bodies on JSON endpoints.
const maxBodyBytes = 1 << 20

// Handler provides common handler utilities.
type Handler struct {
	repo       store.Repository
	controller *session.Controller
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, controller *session.Controller) *Handler {
	return &Handler{repo: repo, controller: controller}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decodeBody decodes a JSON request body into v with a size cap. On failure
// it writes the error response and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
