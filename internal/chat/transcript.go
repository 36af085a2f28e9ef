package chat

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stackie-hr/stackie-server/internal/config"
)

// TranscriptEvent is one chat turn destined for the NDJSON transcript.
type TranscriptEvent struct {
	UserID         string    `json:"user_id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"ts"`
}

// TranscriptLogger appends chat turns to per-user NDJSON files through a
// bounded queue. Log never blocks the request path: events are dropped
// (and counted) when the queue is full.
type TranscriptLogger struct {
	cfg     config.TranscriptLogConfig
	logger  *slog.Logger
	queue   chan TranscriptEvent
	wg      sync.WaitGroup
	dropped atomic.Int64

	// mu orders in-flight sends before the queue is closed; closed is
	// checked under it so Log never sends on a closed channel.
	mu     sync.RWMutex
	closed bool
}

// NewTranscriptLogger creates the logger. A disabled config yields a
// logger whose Log is a no-op.
func NewTranscriptLogger(cfg config.TranscriptLogConfig, logger *slog.Logger) (*TranscriptLogger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	t := &TranscriptLogger{cfg: cfg, logger: logger}
	if !cfg.Enabled {
		return t, nil
	}

	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create transcript directory: %w", err)
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1000
	}
	t.queue = make(chan TranscriptEvent, queueSize)

	t.wg.Add(1)
	go t.worker()
	return t, nil
}

// Log enqueues a transcript event without blocking.
func (t *TranscriptLogger) Log(event TranscriptEvent) {
	if t.queue == nil {
		return
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return
	}

	select {
	case t.queue <- event:
	default:
		if t.dropped.Add(1)%100 == 1 {
			t.logger.Warn("transcript queue full, dropping events",
				"dropped_total", t.dropped.Load())
		}
	}
}

// Dropped returns the number of events discarded due to a full queue.
func (t *TranscriptLogger) Dropped() int64 {
	return t.dropped.Load()
}

// Close drains the queue and stops the worker. It waits for in-flight Log
// calls before closing the queue.
func (t *TranscriptLogger) Close() error {
	if t.queue == nil {
		return nil
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	close(t.queue)
	t.mu.Unlock()

	t.wg.Wait()
	return nil
}

func (t *TranscriptLogger) worker() {
	defer t.wg.Done()
	for event := range t.queue {
		if err := t.write(event); err != nil {
			t.logger.Warn("failed to write transcript event",
				"user_id", event.UserID,
				"conversation_id", event.ConversationID,
				"error", err)
		}
	}
}

func (t *TranscriptLogger) write(event TranscriptEvent) error {
	dir := filepath.Join(t.cfg.Dir, event.UserID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create user transcript directory: %w", err)
	}

	path := filepath.Join(dir, event.ConversationID+".ndjson")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open transcript file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			t.logger.Warn("failed to close transcript file", "path", path, "error", closeErr)
		}
	}()

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode transcript event: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write transcript line: %w", err)
	}
	return nil
}
