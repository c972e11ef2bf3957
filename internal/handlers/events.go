package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gatherly-app/gatherly-backend/internal/database"
	"github.com/gatherly-app/gatherly-backend/internal/models"
	"github.com/go-chi/chi/v5"
)

type createEventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	Capacity    int       `json:"capacity"`
}

// CreateEvent creates a community event owned by the authenticated user.
func CreateEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := getCurrentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.StartsAt.IsZero() || req.EndsAt.IsZero() || !req.EndsAt.After(req.StartsAt) {
		writeError(w, http.StatusBadRequest, "starts_at must be before ends_at")
		return
	}
	if req.Capacity < 0 {
		writeError(w, http.StatusBadRequest, "capacity cannot be negative")
		return
	}

	var event models.Event
	err := database.PostgresDB.QueryRowContext(r.Context(), `
		INSERT INTO events (title, description, location, starts_at, ends_at, capacity, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at, title, description, location,
			starts_at, ends_at, capacity, created_by, is_cancelled
	`, req.Title, req.Description, req.Location, req.StartsAt, req.EndsAt, req.Capacity, userID.String()).Scan(
		&event.ID, &event.CreatedAt, &event.UpdatedAt, &event.Title, &event.Description,
		&event.Location, &event.StartsAt, &event.EndsAt, &event.Capacity, &event.CreatedBy, &event.IsCancelled,
	)
	if err != nil {
		log.Printf("⚠️ Failed to create event: %v", err)
		http.Error(w, "Failed to create event", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, Response{Success: true, Message: "Event created", Data: event})
}

// ListEvents returns upcoming events, soonest first.
func ListEvents(w http.ResponseWriter, r *http.Request) {
	rows, err := database.PostgresDB.QueryContext(r.Context(), `
		SELECT e.id, e.created_at, e.updated_at, e.title, COALESCE(e.description, ''),
			COALESCE(e.location, ''), e.starts_at, e.ends_at, e.capacity, e.created_by, e.is_cancelled,
			COUNT(b.id) FILTER (WHERE b.status = 'confirmed') AS booked
		FROM events e
		LEFT JOIN bookings b ON b.event_id = e.id
		WHERE e.ends_at > NOW() AND e.is_cancelled = FALSE
		GROUP BY e.id
		ORDER BY e.starts_at ASC
		LIMIT 100
	`)
	if err != nil {
		http.Error(w, "Failed to load events", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	type eventWithBookings struct {
		models.Event
		BookedCount int `json:"booked_count"`
	}

	events := []eventWithBookings{}
	for rows.Next() {
		var e eventWithBookings
		if err := rows.Scan(
			&e.ID, &e.CreatedAt, &e.UpdatedAt, &e.Title, &e.Description,
			&e.Location, &e.StartsAt, &e.EndsAt, &e.Capacity, &e.CreatedBy, &e.IsCancelled,
			&e.BookedCount,
		); err != nil {
			http.Error(w, "Failed to load events", http.StatusInternalServerError)
			return
		}
		events = append(events, e)
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: events})
}

// GetEventAttendees returns the confirmed attendee list with display names
// resolved per the viewer's visibility.
func GetEventAttendees(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	if eventID == "" {
		writeError(w, http.StatusBadRequest, "Event id is required")
		return
	}

	rows, err := database.PostgresDB.QueryContext(r.Context(), `
		SELECT user_id FROM bookings WHERE event_id = $1 AND status = 'confirmed'
		ORDER BY created_at ASC
	`, eventID)
	if err != nil {
		http.Error(w, "Failed to load attendees", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	var attendeeIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			http.Error(w, "Failed to load attendees", http.StatusInternalServerError)
			return
		}
		attendeeIDs = append(attendeeIDs, id)
	}

	viewerID := optionalViewerID(r)
	infos := displayResolver.ResolveUsers(r.Context(), attendeeIDs, viewerID, false)

	attendees := make([]interface{}, 0, len(attendeeIDs))
	for _, id := range attendeeIDs {
		attendees = append(attendees, infos[id])
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: attendees})
}

// BookEvent reserves a seat. The capacity check and insert run in one
// transaction with the event row locked, so two racing bookings cannot both
// take the last seat.
func BookEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := getCurrentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	eventID := chi.URLParam(r, "eventID")
	if eventID == "" {
		writeError(w, http.StatusBadRequest, "Event id is required")
		return
	}

	tx, err := database.PostgresDB.BeginTx(r.Context(), nil)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	defer tx.Rollback()

	var capacity int
	var isCancelled bool
	var endsAt time.Time
	err = tx.QueryRowContext(r.Context(), `
		SELECT capacity, is_cancelled, ends_at FROM events WHERE id = $1 FOR UPDATE
	`, eventID).Scan(&capacity, &isCancelled, &endsAt)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "Event not found")
		return
	}
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	if isCancelled || !endsAt.After(time.Now()) {
		writeError(w, http.StatusConflict, "Event is no longer open for booking")
		return
	}

	if capacity > 0 {
		var booked int
		err = tx.QueryRowContext(r.Context(), `
			SELECT COUNT(*) FROM bookings WHERE event_id = $1 AND status = 'confirmed'
		`, eventID).Scan(&booked)
		if err != nil {
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}
		if booked >= capacity {
			writeError(w, http.StatusConflict, "Event is fully booked")
			return
		}
	}

	var booking models.Booking
	err = tx.QueryRowContext(r.Context(), `
		INSERT INTO bookings (event_id, user_id, status)
		VALUES ($1, $2, 'confirmed')
		ON CONFLICT (event_id, user_id) DO UPDATE SET
			status = 'confirmed', cancelled_at = NULL
		RETURNING id, event_id, user_id, status, created_at, cancelled_at
	`, eventID, userID.String()).Scan(
		&booking.ID, &booking.EventID, &booking.UserID, &booking.Status,
		&booking.CreatedAt, &booking.CancelledAt,
	)
	if err != nil {
		log.Printf("⚠️ Failed to book event %s: %v", eventID, err)
		http.Error(w, "Failed to book event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(); err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, Response{Success: true, Message: "Booking confirmed", Data: booking})
}

// CancelBooking cancels the authenticated user's own booking. The row is
// kept with its cancelled status rather than deleted.
func CancelBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := getCurrentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	eventID := chi.URLParam(r, "eventID")
	if eventID == "" {
		writeError(w, http.StatusBadRequest, "Event id is required")
		return
	}

	result, err := database.PostgresDB.ExecContext(r.Context(), `
		UPDATE bookings SET status = 'cancelled', cancelled_at = NOW()
		WHERE event_id = $1 AND user_id = $2 AND status = 'confirmed'
	`, eventID, userID.String())
	if err != nil {
		http.Error(w, "Failed to cancel booking", http.StatusInternalServerError)
		return
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		writeError(w, http.StatusNotFound, "No active booking for this event")
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Booking cancelled"})
}
