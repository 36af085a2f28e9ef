package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stackie-hr/stackie-server/internal/domain"
	"github.com/stackie-hr/stackie-server/internal/store"
)

func newTestRepo(t *testing.T) store.Repository {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "mw.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("Failed to close store: %v", err)
		}
	})
	return repo
}

func identityProbe(captured *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestIdentityInjectsUserID(t *testing.T) {
	repo := newTestRepo(t)

	var captured string
	handler := Identity(repo)(identityProbe(&captured))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(UserIDHeaderName, "u1")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if captured != "u1" {
		t.Errorf("Expected user id u1 in context, got %q", captured)
	}
}

func TestIdentityCreatesProfileLazily(t *testing.T) {
	repo := newTestRepo(t)

	var captured string
	handler := Identity(repo)(identityProbe(&captured))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(UserIDHeaderName, "new-user")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	profile, err := repo.GetProfile(context.Background(), "new-user")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if profile == nil {
		t.Fatal("Expected a lazily created profile")
	}
	if profile.SubscriptionTier != domain.TierFree {
		t.Errorf("Expected free tier, got %s", profile.SubscriptionTier)
	}
	if profile.AIQueriesLimit != domain.DefaultQueryLimit {
		t.Errorf("Expected default query limit, got %d", profile.AIQueriesLimit)
	}
}

func TestIdentityAnonymousPassThrough(t *testing.T) {
	repo := newTestRepo(t)

	var captured string
	handler := Identity(repo)(identityProbe(&captured))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected anonymous requests to pass through, got %d", w.Code)
	}
	if captured != "" {
		t.Errorf("Expected empty user id for anonymous request, got %q", captured)
	}
}

func TestIdentityRejectsMalformedHeader(t *testing.T) {
	repo := newTestRepo(t)

	var captured string
	handler := Identity(repo)(identityProbe(&captured))

	for _, bad := range []string{"has spaces", "semi;colon", strings.Repeat("a", 200)} {
		captured = "sentinel"
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(UserIDHeaderName, bad)
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if captured != "" {
			t.Errorf("Expected malformed header %q to be treated as anonymous, got %q", bad, captured)
		}
	}
}
