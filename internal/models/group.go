package models

import "time"

// Group roles.
const (
	GroupRoleAdmin  = "admin"
	GroupRoleMember = "member"
)

// Group is a community space with its own member list and chat room.
type Group struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	CreatedBy   string    `json:"created_by"`
	IsPublic    bool      `json:"is_public"`
	MemberCount int       `json:"member_count"`
}

// GroupMember is one membership row; display information is resolved
// separately so raw identities never leave the profiles table.
type GroupMember struct {
	UserID   string    `json:"user_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}
