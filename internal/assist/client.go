package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/stackie-hr/stackie-server/internal/config"
	"github.com/stackie-hr/stackie-server/internal/domain"
)

// historyEntry is one prior turn on the completion wire.
type historyEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// completionRequest is the completion service's request body.
type completionRequest struct {
	Message             string         `json:"message"`
	ConversationHistory []historyEntry `json:"conversation_history"`
}

// completionResponse is the completion service's response body.
type completionResponse struct {
	Response string `json:"response"`
	Success  bool   `json:"success"`
}

// HTTPCompleter calls the completion service over HTTP with a bearer
// credential. The request timeout bounds the single suspension point of the
// pipeline so GetReply can never block indefinitely.
type HTTPCompleter struct {
	url    string
	key    string
	http   *http.Client
	logger *slog.Logger
}

// NewHTTPCompleter creates a completion client from configuration.
func NewHTTPCompleter(cfg config.AssistantConfig, logger *slog.Logger) *HTTPCompleter {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPCompleter{
		url:    strings.TrimRight(cfg.URL, "/"),
		key:    cfg.Key,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// IsConfigured reports whether both endpoint and credential are resolvable.
func (c *HTTPCompleter) IsConfigured() bool {
	return c.url != "" && c.key != ""
}

// Complete issues one completion request. Non-2xx statuses and empty
// response content are errors; the pipeline maps them onto its fallback.
func (c *HTTPCompleter) Complete(ctx context.Context, message string, history []domain.ChatMessage) (string, error) {
	entries := make([]historyEntry, 0, len(history))
	for _, msg := range history {
		entries = append(entries, historyEntry{Role: string(msg.Role), Content: msg.Content})
	}

	body, err := json.Marshal(completionRequest{
		Message:             message,
		ConversationHistory: entries,
	})
	if err != nil {
		return "", fmt.Errorf("encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("failed to close completion response body", "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("completion service returned status %d", resp.StatusCode)
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if out.Response == "" {
		return "", ErrEmptyCompletion
	}
	return out.Response, nil
}

var _ Completer = (*HTTPCompleter)(nil)
