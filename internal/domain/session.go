package domain

import (
	"time"
)

// User is the identity reference resolved by the identity provider.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session represents the resolved authentication context.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Expired returns true if the session's access token has passed its expiry.
// A zero expiry is treated as non-expiring.
func (s *Session) Expired() bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(s.ExpiresAt)
}
