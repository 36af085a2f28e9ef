// Package domain contains core domain types for the Stackie community server.
package domain

import (
	"time"
)

// SubscriptionTier identifies a profile's paid plan.
type SubscriptionTier string

const (
	TierFree         SubscriptionTier = "free"
	TierProfessional SubscriptionTier = "professional"
	TierEnterprise   SubscriptionTier = "enterprise"
)

// DefaultQueryLimit is the monthly assistant query allowance for free profiles.
const DefaultQueryLimit = 50

// Profile represents a user-owned record of display and business attributes.
// It is distinct from the identity: a profile row exists per known user and
// is cached by the session controller for the signed-in identity.
type Profile struct {
	ID               string           `json:"id"`
	Email            string           `json:"email"`
	FullName         string           `json:"full_name,omitempty"`
	AvatarURL        string           `json:"avatar_url,omitempty"`
	Company          string           `json:"company,omitempty"`
	JobTitle         string           `json:"job_title,omitempty"`
	Bio              string           `json:"bio,omitempty"`
	IsPremium        bool             `json:"is_premium"`
	SubscriptionTier SubscriptionTier `json:"subscription_tier"`
	AIQueriesUsed    int              `json:"ai_queries_used"`
	AIQueriesLimit   int              `json:"ai_queries_limit"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// CanQuery returns true if the profile has assistant queries remaining.
// Premium profiles are not metered.
func (p *Profile) CanQuery() bool {
	if p.IsPremium {
		return true
	}
	return p.AIQueriesUsed < p.AIQueriesLimit
}

// QueriesRemaining returns the number of assistant queries left this cycle.
// Returns 0 once the allowance is exhausted.
func (p *Profile) QueriesRemaining() int {
	remaining := p.AIQueriesLimit - p.AIQueriesUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ProfileUpdate carries the mutable profile fields for an update call.
// Nil fields are left untouched.
type ProfileUpdate struct {
	FullName  *string `json:"full_name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Company   *string `json:"company,omitempty"`
	JobTitle  *string `json:"job_title,omitempty"`
	Bio       *string `json:"bio,omitempty"`
}

// IsEmpty returns true if the update would change nothing.
func (u *ProfileUpdate) IsEmpty() bool {
	return u.FullName == nil && u.AvatarURL == nil && u.Company == nil &&
		u.JobTitle == nil && u.Bio == nil
}
