package api

import (
	"net/http"
	"testing"

	"github.com/stackie-hr/stackie-server/internal/domain"
)

func TestGetMeRequiresIdentity(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/me", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for anonymous request, got %d", w.Code)
	}
}

func TestGetMeReturnsLazilyCreatedProfile(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/me", "u1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var got struct {
		Profile          domain.Profile `json:"profile"`
		QueriesRemaining int            `json:"queries_remaining"`
	}
	decodeJSON(t, w, &got)
	if got.Profile.ID != "u1" {
		t.Errorf("Expected profile u1, got %q", got.Profile.ID)
	}
	if got.Profile.SubscriptionTier != domain.TierFree {
		t.Errorf("Expected free tier, got %s", got.Profile.SubscriptionTier)
	}
	if got.QueriesRemaining != domain.DefaultQueryLimit {
		t.Errorf("Expected full allowance, got %d", got.QueriesRemaining)
	}
}

func TestUpdateMePartial(t *testing.T) {
	env := newTestEnv(t)

	// Touch once so the profile row exists.
	if w := env.do(t, http.MethodGet, "/api/me", "u1", ""); w.Code != http.StatusOK {
		t.Fatalf("Profile bootstrap failed: %d", w.Code)
	}

	w := env.do(t, http.MethodPatch, "/api/me", "u1",
		`{"full_name":"Jane Doe","company":"Acme HR"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var got struct {
		Profile domain.Profile `json:"profile"`
	}
	decodeJSON(t, w, &got)
	if got.Profile.FullName != "Jane Doe" || got.Profile.Company != "Acme HR" {
		t.Errorf("Expected updated fields, got %+v", got.Profile)
	}
}

func TestUpdateMeRejectsEmptyUpdate(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPatch, "/api/me", "u1", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for an empty update, got %d", w.Code)
	}
}
