package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/stackie-hr/stackie-server/internal/shared"
	"github.com/stackie-hr/stackie-server/internal/store"
)

const retentionSweepInterval = 1 * time.Hour

// StartRetentionWorker runs a background goroutine that periodically removes
// conversations idle for longer than ttl.
func StartRetentionWorker(ctx context.Context, repo store.Repository, ttl time.Duration) {
	ticker := time.NewTicker(retentionSweepInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("Retention worker started", "interval", retentionSweepInterval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				sweepExpiredConversations(ctx, repo, ttl)
			case <-ctx.Done():
				slog.Info("Retention worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweepExpiredConversations(ctx context.Context, repo store.Repository, ttl time.Duration) {
	deleted, err := cleanupWithRetry(ctx, repo, ttl)
	if err != nil {
		slog.Error("Retention worker failed to cleanup conversations", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("Retention worker removed expired conversations", "count", deleted)
	}
}

// cleanupWithRetry retries the sweep with exponential backoff to handle
// SQLITE_BUSY errors from concurrent message writes.
func cleanupWithRetry(ctx context.Context, repo store.Repository, ttl time.Duration) (int64, error) {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		deleted, err := repo.CleanupExpiredConversations(ctx, ttl)
		if err == nil {
			return deleted, nil
		}
		lastErr = err

		if shared.IsSQLiteConflictError(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i) // 100ms, 200ms, 400ms
			slog.Debug("Retention sweep hit SQLITE_BUSY, retrying",
				"attempt", i+1,
				"delay", delay)
			time.Sleep(delay)
			continue
		}
		break
	}
	return 0, lastErr
}
