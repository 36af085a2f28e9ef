// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port            string
	FrontendURL     string
	DBPath          string
	Identity        IdentityConfig
	Assistant       AssistantConfig
	Relay           RelayConfig
	SessionWatchdog time.Duration
	ConversationTTL time.Duration
	RateLimit       RateLimitConfig
	TranscriptLog   TranscriptLogConfig
}

// IdentityConfig points at the hosted identity provider. Absence of either
// value is a supported mode: the server runs anonymous-only.
type IdentityConfig struct {
	URL string
	Key string
}

// IsConfigured returns true if the identity provider can be reached at all.
func (c IdentityConfig) IsConfigured() bool {
	return c.URL != "" && c.Key != "" &&
		c.URL != "your-identity-url" && c.Key != "your-identity-key"
}

// AssistantConfig controls the assistant response pipeline.
type AssistantConfig struct {
	URL            string
	Key            string
	RequestTimeout time.Duration
	HistoryWindow  int
}

// IsConfigured returns true if the completion service can be called.
func (c AssistantConfig) IsConfigured() bool {
	return c.URL != "" && c.Key != ""
}

// RelayConfig controls the in-process completion relay.
type RelayConfig struct {
	OpenAIKey string
	Model     string
}

// RateLimitConfig throttles assistant requests per user.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// TranscriptLogConfig controls NDJSON chat transcript logging.
type TranscriptLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("TRANSCRIPT_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/stackie.db"),
		Identity: IdentityConfig{
			URL: getEnv("IDENTITY_URL", ""),
			Key: getEnv("IDENTITY_KEY", ""),
		},
		Assistant: AssistantConfig{
			URL:            getEnv("ASSIST_URL", ""),
			Key:            getEnv("ASSIST_KEY", ""),
			RequestTimeout: getEnvDuration("ASSIST_TIMEOUT", 15*time.Second),
			HistoryWindow:  getEnvInt("ASSIST_HISTORY_WINDOW", 6),
		},
		Relay: RelayConfig{
			OpenAIKey: getEnv("OPENAI_API_KEY", ""),
			Model:     getEnv("OPENAI_MODEL", "gpt-4o"),
		},
		SessionWatchdog: getEnvDuration("SESSION_WATCHDOG", 3*time.Second),
		ConversationTTL: getEnvDuration("CONVERSATION_TTL", 30*24*time.Hour),
		RateLimit: RateLimitConfig{
			Requests: getEnvInt("ASSIST_RATE_LIMIT", 20),
			Window:   getEnvDuration("ASSIST_RATE_WINDOW", time.Minute),
		},
		TranscriptLog: TranscriptLogConfig{
			Enabled:   getEnvBool("TRANSCRIPT_LOG_ENABLED", false),
			Dir:       getEnv("TRANSCRIPT_LOG_DIR", "./data/logs/transcripts"),
			QueueSize: queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.SessionWatchdog <= 0 {
		return fmt.Errorf("SESSION_WATCHDOG must be > 0")
	}
	if c.Assistant.RequestTimeout <= 0 {
		return fmt.Errorf("ASSIST_TIMEOUT must be > 0")
	}
	if c.Assistant.HistoryWindow <= 0 {
		return fmt.Errorf("ASSIST_HISTORY_WINDOW must be > 0")
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("ASSIST_RATE_LIMIT and ASSIST_RATE_WINDOW must be > 0")
	}
	if c.TranscriptLog.Enabled && c.TranscriptLog.Dir == "" {
		return fmt.Errorf("TRANSCRIPT_LOG_DIR cannot be empty when transcript logging is enabled")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
