package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/stackie-hr/stackie-server/internal/assist"
	"github.com/stackie-hr/stackie-server/internal/chat"
	"github.com/stackie-hr/stackie-server/internal/domain"
	"github.com/stackie-hr/stackie-server/internal/middleware"
	"github.com/stackie-hr/stackie-server/internal/realtime"
)

// maxMessageLen bounds a single user message.
const maxMessageLen = 4000

// AssistHandler handles assistant chat endpoints.
type AssistHandler struct {
	*Handler
	chats   *chat.Service
	assist  *assist.Service
	hub     *realtime.Hub
	limiter *middleware.RateLimiter
}

// NewAssistHandler creates a new assist handler.
func NewAssistHandler(base *Handler, chats *chat.Service, svc *assist.Service, hub *realtime.Hub, limiter *middleware.RateLimiter) *AssistHandler {
	return &AssistHandler{
		Handler: base,
		chats:   chats,
		assist:  svc,
		hub:     hub,
		limiter: limiter,
	}
}

// RegisterRoutes registers assist routes.
func (h *AssistHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/assist", func(r chi.Router) {
		r.Post("/chat", h.Chat)
		r.Post("/messages/{messageID}/feedback", h.Feedback)
	})
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type chatResponse struct {
	Response       string `json:"response"`
	Success        bool   `json:"success"`
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
}

// Chat runs one assistant turn: persist the user message, produce a reply,
// persist it, and return both identifiers. The reply text is always usable;
// upstream failures surface as fallback text, not HTTP errors.
func (h *AssistHandler) Chat(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "identity required")
		return
	}

	if h.limiter != nil && !h.limiter.Allow(userID) {
		Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	var req chatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		Error(w, http.StatusBadRequest, "message cannot be empty")
		return
	}
	if len(req.Message) > maxMessageLen {
		Error(w, http.StatusBadRequest, "message too long")
		return
	}

	ctx := r.Context()

	profile, err := h.repo.GetProfile(ctx, userID)
	if err != nil {
		slog.Error("Failed to load profile for chat", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	if profile != nil && !profile.CanQuery() {
		Error(w, http.StatusTooManyRequests, "query limit reached")
		return
	}

	conv, err := h.chats.EnsureConversation(ctx, userID, req.ConversationID, req.Message)
	if err != nil {
		slog.Error("Failed to resolve conversation", "error", err, "user_id", userID)
		Error(w, http.StatusNotFound, "conversation not found")
		return
	}

	history, err := h.chats.History(ctx, conv.ID, h.assist.HistoryWindow())
	if err != nil {
		slog.Error("Failed to load history", "error", err, "conversation_id", conv.ID)
		Error(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	if _, err := h.chats.AppendTurn(ctx, conv, domain.RoleUser, req.Message); err != nil {
		slog.Error("Failed to persist user turn", "error", err, "conversation_id", conv.ID)
		Error(w, http.StatusInternalServerError, "failed to store message")
		return
	}

	reply := h.assist.GetReply(ctx, req.Message, history)

	assistantMsg, err := h.chats.AppendTurn(ctx, conv, domain.RoleAssistant, reply.Text)
	if err != nil {
		slog.Error("Failed to persist assistant turn", "error", err, "conversation_id", conv.ID)
		Error(w, http.StatusInternalServerError, "failed to store reply")
		return
	}

	// Only model-backed replies count against the usage allowance.
	if reply.FromModel {
		if err := h.repo.IncrementQueriesUsed(ctx, userID); err != nil {
			slog.Warn("Failed to increment query counter", "error", err, "user_id", userID)
		}
	}

	if h.hub != nil {
		h.hub.Publish(userID, realtime.Event{
			Type: realtime.EventAssistantReply,
			Payload: map[string]string{
				"conversation_id": conv.ID,
				"message_id":      assistantMsg.ID,
			},
		})
	}

	JSON(w, http.StatusOK, chatResponse{
		Response:       reply.Text,
		Success:        reply.Success,
		ConversationID: conv.ID,
		MessageID:      assistantMsg.ID,
	})
}

type feedbackRequest struct {
	Feedback string `json:"feedback"`
}

// Feedback tags an assistant message with a thumbs-up or thumbs-down.
func (h *AssistHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "identity required")
		return
	}

	messageID := chi.URLParam(r, "messageID")
	if messageID == "" {
		Error(w, http.StatusBadRequest, "message id required")
		return
	}

	var req feedbackRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := h.chats.SetFeedback(r.Context(), userID, messageID, domain.Feedback(req.Feedback))
	switch {
	case err == nil:
	case errors.Is(err, chat.ErrMessageNotFound):
		Error(w, http.StatusNotFound, "message not found")
		return
	case errors.Is(err, chat.ErrInvalidFeedback):
		Error(w, http.StatusBadRequest, "invalid feedback")
		return
	default:
		slog.Error("Failed to store feedback", "error", err, "message_id", messageID)
		Error(w, http.StatusInternalServerError, "failed to store feedback")
		return
	}

	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
