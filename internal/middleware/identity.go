package middleware

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/stackie-hr/stackie-server/internal/domain"
	"github.com/stackie-hr/stackie-server/internal/store"
)

const (
	// UserIDHeaderName carries the request's user identity. Token
	// verification happens at the hosted identity provider; this layer
	// only establishes which profile a request acts on.
	UserIDHeaderName = "X-Stackie-User-ID"
)

type contextKey int

const userIDKey contextKey = iota

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// UserIDFromContext extracts the user ID from the request context.
// Returns "" for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

func userIDFromRequest(r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(UserIDHeaderName))
	if id == "" || !userIDPattern.MatchString(id) {
		return ""
	}
	return id
}

func ensureProfile(ctx context.Context, repo store.Repository, userID string) error {
	profile, err := repo.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if profile != nil {
		return nil
	}

	now := time.Now()
	return repo.UpsertProfile(ctx, &domain.Profile{
		ID:               userID,
		SubscriptionTier: domain.TierFree,
		AIQueriesLimit:   domain.DefaultQueryLimit,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
}

// Identity injects the request's user identity and lazily creates the
// backing profile row. Requests without a valid identity header pass
// through anonymous; handlers that require a user reject them.
func Identity(repo store.Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := userIDFromRequest(r)
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			if err := ensureProfile(r.Context(), repo, userID); err != nil {
				http.Error(w, `{"error":"failed to initialize profile"}`, http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
