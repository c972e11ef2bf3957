package models

import (
	"time"
)

// Profile is the canonical per-user identity row (PostgreSQL `profiles`).
// A profile is anonymous-first: the anonymous handle is generated at signup
// and real-name fields stay empty until the owner fills them in. Profiles are
// never hard-deleted; IsActive is flipped instead.
type Profile struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Real-identity fields, all optional
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`

	// Anonymous identity, generated at signup and regenerable by the owner
	AnonymousHandle      string `json:"anonymous_handle"`
	AnonymousDisplayName string `json:"anonymous_display_name,omitempty"`

	// Visibility gates. RealNameVisibility only has effect while
	// CanRevealIdentity is true.
	IsAnonymous        bool `json:"is_anonymous"`
	CanRevealIdentity  bool `json:"can_reveal_identity"`
	RealNameVisibility bool `json:"real_name_visibility"`

	AvatarURL string `json:"avatar_url,omitempty"`
	IsActive  bool   `json:"is_active"`

	// Internal only - never returned in JSON
	PasswordHash string `json:"-"`
}
