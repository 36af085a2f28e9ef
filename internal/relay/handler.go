package relay

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stackie-hr/stackie-server/internal/api"
)

// maxRequestBodySize bounds completion request bodies (1MB).
const maxRequestBodySize = 1 << 20

// Handler exposes the relay over HTTP.
type Handler struct {
	relay *Relay
}

// NewHandler creates the relay HTTP handler.
func NewHandler(relay *Relay) *Handler {
	return &Handler{relay: relay}
}

// RegisterRoutes registers the completion endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/v1/assist/completions", h.HandleCompletion)
}

// completionRequest is the endpoint's request body.
type completionRequest struct {
	Message             string         `json:"message"`
	ConversationHistory []HistoryEntry `json:"conversation_history"`
}

// HandleCompletion answers every well-formed request with 200 and a usable
// response string, regardless of upstream state.
func (h *Handler) HandleCompletion(w http.ResponseWriter, r *http.Request) {
	var req completionRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		if errors.Is(err, io.EOF) {
			api.Error(w, http.StatusBadRequest, "request body required")
			return
		}
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	text := h.relay.Generate(r.Context(), req.Message, req.ConversationHistory)
	api.JSON(w, http.StatusOK, map[string]interface{}{
		"response": text,
		"success":  true,
	})
}
