// Package chat provides conversation bookkeeping for the assistant.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stackie-hr/stackie-server/internal/domain"
	"github.com/stackie-hr/stackie-server/internal/store"
)

// titleMaxLen bounds conversation titles derived from the first message.
const titleMaxLen = 60

var (
	// ErrMessageNotFound covers both missing messages and messages owned
	// by another user; callers cannot tell the two apart.
	ErrMessageNotFound = errors.New("message not found")

	// ErrInvalidFeedback is returned for feedback values outside the
	// up/down/none set.
	ErrInvalidFeedback = errors.New("invalid feedback")
)

// Service manages conversations and their messages on top of the store.
type Service struct {
	repo        store.Repository
	transcripts *TranscriptLogger
}

// NewService creates a chat service. transcripts may be nil to disable
// transcript logging.
func NewService(repo store.Repository, transcripts *TranscriptLogger) *Service {
	return &Service{repo: repo, transcripts: transcripts}
}

// EnsureConversation resolves the conversation for a chat request. An empty
// id creates a new conversation titled after the first message; a non-empty
// id must exist and belong to the user.
func (s *Service) EnsureConversation(ctx context.Context, userID, conversationID, firstMessage string) (*domain.Conversation, error) {
	if conversationID != "" {
		conv, err := s.repo.GetConversation(ctx, conversationID)
		if err != nil {
			return nil, fmt.Errorf("get conversation: %w", err)
		}
		if conv == nil || conv.UserID != userID {
			return nil, fmt.Errorf("conversation %s not found for user", conversationID)
		}
		return conv, nil
	}

	now := time.Now()
	conv := &domain.Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     deriveTitle(firstMessage),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// History returns the trailing n messages of a conversation.
func (s *Service) History(ctx context.Context, conversationID string, n int) ([]domain.ChatMessage, error) {
	return s.repo.RecentMessages(ctx, conversationID, n)
}

// AppendTurn persists one chat turn and logs it to the transcript.
func (s *Service) AppendTurn(ctx context.Context, conv *domain.Conversation, role domain.MessageRole, content string) (*domain.ChatMessage, error) {
	msg := &domain.ChatMessage{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now(),
	}
	if err := s.repo.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("append turn: %w", err)
	}

	if s.transcripts != nil {
		s.transcripts.Log(TranscriptEvent{
			UserID:         conv.UserID,
			ConversationID: conv.ID,
			Role:           string(role),
			Content:        content,
			Timestamp:      msg.CreatedAt,
		})
	}
	return msg, nil
}

// SetFeedback tags a message with user feedback. The message must belong to
// one of the user's conversations; foreign and missing messages both yield
// ErrMessageNotFound.
func (s *Service) SetFeedback(ctx context.Context, userID, messageID string, feedback domain.Feedback) error {
	switch feedback {
	case domain.FeedbackUp, domain.FeedbackDown, domain.FeedbackNone:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFeedback, feedback)
	}

	msg, err := s.repo.GetMessage(ctx, messageID)
	if err != nil {
		return fmt.Errorf("get message: %w", err)
	}
	if msg == nil {
		return ErrMessageNotFound
	}
	conv, err := s.repo.GetConversation(ctx, msg.ConversationID)
	if err != nil {
		return fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil || conv.UserID != userID {
		return ErrMessageNotFound
	}

	return s.repo.SetMessageFeedback(ctx, messageID, feedback)
}

func deriveTitle(message string) string {
	runes := []rune(message)
	if len(runes) <= titleMaxLen {
		return message
	}
	return string(runes[:titleMaxLen])
}
