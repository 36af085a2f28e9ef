package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stackie-hr/stackie-server/internal/domain"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
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

func testProfile(id string) *domain.Profile {
	now := time.Now()
	return &domain.Profile{
		ID:               id,
		Email:            id + "@example.com",
		FullName:         "Jane Doe",
		SubscriptionTier: domain.TierFree,
		AIQueriesLimit:   domain.DefaultQueryLimit,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestGetProfileMissingReturnsNil(t *testing.T) {
	repo := newTestStore(t)

	profile, err := repo.GetProfile(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if profile != nil {
		t.Errorf("Expected nil for a missing profile, got %+v", profile)
	}
}

func TestUpsertAndGetProfile(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	if err := repo.UpsertProfile(ctx, testProfile("u1")); err != nil {
		t.Fatalf("UpsertProfile failed: %v", err)
	}

	profile, err := repo.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if profile == nil {
		t.Fatal("Expected a profile, got nil")
	}
	if profile.Email != "u1@example.com" || profile.FullName != "Jane Doe" {
		t.Errorf("Unexpected profile contents: %+v", profile)
	}
	if profile.SubscriptionTier != domain.TierFree {
		t.Errorf("Expected free tier, got %s", profile.SubscriptionTier)
	}
	if profile.AIQueriesLimit != domain.DefaultQueryLimit {
		t.Errorf("Expected default query limit, got %d", profile.AIQueriesLimit)
	}

	// Second upsert updates in place.
	updated := testProfile("u1")
	updated.Company = "Acme HR"
	if err := repo.UpsertProfile(ctx, updated); err != nil {
		t.Fatalf("Second UpsertProfile failed: %v", err)
	}
	profile, err = repo.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("GetProfile after update failed: %v", err)
	}
	if profile.Company != "Acme HR" {
		t.Errorf("Expected company updated, got %q", profile.Company)
	}
}

func TestUpdateProfilePartial(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	if err := repo.UpsertProfile(ctx, testProfile("u1")); err != nil {
		t.Fatalf("UpsertProfile failed: %v", err)
	}

	bio := "Labour law specialist"
	profile, err := repo.UpdateProfile(ctx, "u1", &domain.ProfileUpdate{Bio: &bio})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if profile.Bio != bio {
		t.Errorf("Expected bio updated, got %q", profile.Bio)
	}
	if profile.FullName != "Jane Doe" {
		t.Errorf("Expected untouched fields preserved, got %q", profile.FullName)
	}
}

func TestUpdateProfileMissing(t *testing.T) {
	repo := newTestStore(t)

	bio := "x"
	if _, err := repo.UpdateProfile(context.Background(), "nobody", &domain.ProfileUpdate{Bio: &bio}); err == nil {
		t.Error("Expected an error updating a missing profile")
	}
}

func TestIncrementQueriesUsed(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	if err := repo.UpsertProfile(ctx, testProfile("u1")); err != nil {
		t.Fatalf("UpsertProfile failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := repo.IncrementQueriesUsed(ctx, "u1"); err != nil {
			t.Fatalf("IncrementQueriesUsed failed: %v", err)
		}
	}

	profile, err := repo.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if profile.AIQueriesUsed != 3 {
		t.Errorf("Expected 3 queries used, got %d", profile.AIQueriesUsed)
	}
}

func TestConversationRoundTrip(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	conv := &domain.Conversation{
		ID:        "c1",
		UserID:    "u1",
		Title:     "Overtime question",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	got, err := repo.GetConversation(ctx, "c1")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if got == nil || got.UserID != "u1" || got.Title != "Overtime question" {
		t.Errorf("Unexpected conversation: %+v", got)
	}

	missing, err := repo.GetConversation(ctx, "nope")
	if err != nil {
		t.Fatalf("GetConversation for missing id failed: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for a missing conversation, got %+v", missing)
	}
}

func TestRecentMessagesWindowAndOrder(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	conv := &domain.Conversation{ID: "c1", UserID: "u1", CreatedAt: now, UpdatedAt: now}
	if err := repo.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	for i := 0; i < 10; i++ {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		msg := &domain.ChatMessage{
			ID:             fmt.Sprintf("m%02d", i),
			ConversationID: "c1",
			Role:           role,
			Content:        fmt.Sprintf("turn %d", i),
			CreatedAt:      now.Add(time.Duration(i) * time.Second),
		}
		if err := repo.AppendMessage(ctx, msg); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}

	messages, err := repo.RecentMessages(ctx, "c1", 6)
	if err != nil {
		t.Fatalf("RecentMessages failed: %v", err)
	}
	if len(messages) != 6 {
		t.Fatalf("Expected 6 messages, got %d", len(messages))
	}
	if messages[0].Content != "turn 4" || messages[5].Content != "turn 9" {
		t.Errorf("Expected chronological trailing window, got first=%q last=%q",
			messages[0].Content, messages[5].Content)
	}
}

func TestSetMessageFeedback(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	conv := &domain.Conversation{ID: "c1", UserID: "u1", CreatedAt: now, UpdatedAt: now}
	if err := repo.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	msg := &domain.ChatMessage{
		ID: "m1", ConversationID: "c1",
		Role: domain.RoleAssistant, Content: "answer", CreatedAt: now,
	}
	if err := repo.AppendMessage(ctx, msg); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	if err := repo.SetMessageFeedback(ctx, "m1", domain.FeedbackUp); err != nil {
		t.Fatalf("SetMessageFeedback failed: %v", err)
	}

	messages, err := repo.RecentMessages(ctx, "c1", 10)
	if err != nil {
		t.Fatalf("RecentMessages failed: %v", err)
	}
	if len(messages) != 1 || messages[0].Feedback != domain.FeedbackUp {
		t.Errorf("Expected feedback up on the message, got %+v", messages)
	}

	if err := repo.SetMessageFeedback(ctx, "missing", domain.FeedbackDown); err == nil {
		t.Error("Expected an error for feedback on a missing message")
	}
}

func TestCleanupExpiredConversations(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	fresh := time.Now()

	stale := &domain.Conversation{ID: "old", UserID: "u1", CreatedAt: old, UpdatedAt: old}
	active := &domain.Conversation{ID: "new", UserID: "u1", CreatedAt: fresh, UpdatedAt: fresh}
	if err := repo.CreateConversation(ctx, stale); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	if err := repo.CreateConversation(ctx, active); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	deleted, err := repo.CleanupExpiredConversations(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("CleanupExpiredConversations failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 conversation deleted, got %d", deleted)
	}

	gone, err := repo.GetConversation(ctx, "old")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if gone != nil {
		t.Error("Expected the stale conversation to be removed")
	}
	kept, err := repo.GetConversation(ctx, "new")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if kept == nil {
		t.Error("Expected the active conversation to survive")
	}
}
