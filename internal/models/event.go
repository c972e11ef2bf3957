package models

import (
	"time"
)

// Event is a community event that members can book seats for.
type Event struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	Capacity    int       `json:"capacity"`
	CreatedBy   string    `json:"created_by"`
	IsCancelled bool      `json:"is_cancelled"`
}

// Booking statuses.
const (
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

// Booking is one seat reservation per (event, user).
type Booking struct {
	ID          string     `json:"id"`
	EventID     string     `json:"event_id"`
	UserID      string     `json:"user_id"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}
