// Package relay hosts the completion relay: the single endpoint the
// assistant pipeline calls. It forwards composed prompts to the OpenAI chat
// completion API and answers with canned domain content whenever the API is
// unconfigured or unavailable, so the relay itself never produces a dead end.
package relay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/stackie-hr/stackie-server/internal/config"
)

// HistoryEntry is one prior conversation turn as received on the wire.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completion parameters mirror the production relay tuning: low temperature
// for precise professional answers, generous token budget for comprehensive
// guidance.
const (
	maxCompletionTokens = 2500
	temperature         = 0.2
	topP                = 0.9
	presencePenalty     = 0.1
	frequencyPenalty    = 0.1
)

// Relay generates assistant responses.
type Relay struct {
	model  string
	client *openai.Client
	logger *slog.Logger
}

// New creates a relay. With an empty API key the relay stays in fallback
// mode: Generate answers with the capability overview and never touches the
// network.
func New(cfg config.RelayConfig, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Relay{model: cfg.Model, logger: logger}
	if cfg.OpenAIKey != "" {
		client := openai.NewClient(option.WithAPIKey(cfg.OpenAIKey))
		r.client = &client
	}
	return r
}

// IsConfigured reports whether the OpenAI API can be called.
func (r *Relay) IsConfigured() bool {
	return r.client != nil
}

// Generate produces the response text for a user message. It never returns
// an error: unconfigured and failing branches yield deterministic fallback
// content.
func (r *Relay) Generate(ctx context.Context, message string, history []HistoryEntry) string {
	if r.client == nil {
		return capabilityFallback
	}

	text, err := r.complete(ctx, message, history)
	if err != nil {
		r.logger.Error("completion call failed, serving knowledge fallback", "error", err)
		return knowledgeFallback
	}
	return text
}

func (r *Relay) complete(ctx context.Context, message string, history []HistoryEntry) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(systemPrompt))
	for _, entry := range history {
		if entry.Role == "user" {
			messages = append(messages, openai.UserMessage(entry.Content))
		} else {
			messages = append(messages, openai.AssistantMessage(entry.Content))
		}
	}
	messages = append(messages, openai.UserMessage(message))

	completion, err := r.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:            openai.ChatModel(r.model),
		Messages:         messages,
		MaxTokens:        openai.Int(maxCompletionTokens),
		Temperature:      openai.Float(temperature),
		TopP:             openai.Float(topP),
		PresencePenalty:  openai.Float(presencePenalty),
		FrequencyPenalty: openai.Float(frequencyPenalty),
	})
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("no completion content returned")
	}
	return completion.Choices[0].Message.Content, nil
}
