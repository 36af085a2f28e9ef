// Package assist implements the assistant response pipeline.
//
// The pipeline accepts a user message plus a short trailing conversation
// window and always produces display-ready text: when the completion service
// is unconfigured or failing it falls back to deterministic local replies
// instead of surfacing an error. Availability over precision.
package assist

import (
	"context"
	"errors"

	"github.com/stackie-hr/stackie-server/internal/domain"
)

// ErrEmptyCompletion is returned by completion clients when the service
// answered successfully but produced no usable content.
var ErrEmptyCompletion = errors.New("completion service returned empty content")

// Completer is the interface to the remote completion service.
type Completer interface {
	// IsConfigured reports whether the service can be called at all.
	IsConfigured() bool

	// Complete issues one completion request with the composed prompt.
	Complete(ctx context.Context, message string, history []domain.ChatMessage) (string, error)
}

// Reply is the pipeline's output. FromModel distinguishes remote-generated
// text from a local fallback; it is observable, never persisted.
type Reply struct {
	Text      string
	Success   bool
	FromModel bool
}

// Service runs the pipeline. Stateless across calls: the only memory is the
// caller-supplied trailing history window.
type Service struct {
	completer     Completer
	historyWindow int
}

// NewService creates the pipeline with the given completion client and
// trailing-history window size.
func NewService(completer Completer, historyWindow int) *Service {
	if historyWindow <= 0 {
		historyWindow = 6
	}
	return &Service{completer: completer, historyWindow: historyWindow}
}

// HistoryWindow returns the configured trailing-window size.
func (s *Service) HistoryWindow() int {
	return s.historyWindow
}

// GetReply produces display-ready text for a user message. Every branch
// yields a usable string; the operation never returns an error.
func (s *Service) GetReply(ctx context.Context, message string, history []domain.ChatMessage) Reply {
	if s.completer == nil || !s.completer.IsConfigured() {
		// Deterministic offline branch, not an error path.
		return Reply{Text: NotConfiguredReply, Success: true}
	}

	history = domain.TrailingWindow(history, s.historyWindow)

	text, err := s.completer.Complete(ctx, message, history)
	if err != nil || text == "" {
		return Reply{Text: TransientIssueReply, Success: true}
	}

	return Reply{Text: FormatReply(text), Success: true, FromModel: true}
}
