package routes

import (
	"github.com/gatherly-app/gatherly-backend/internal/handlers"
	"github.com/go-chi/chi/v5"
)

func SetupRoutes(r *chi.Mux) {
	// Anonymous-first auth routes
	r.Post("/api/auth/signup", handlers.Signup)
	r.Post("/api/auth/signin", handlers.Signin)
	r.Post("/api/auth/signout", handlers.Signout)
	r.Get("/api/auth/me", handlers.GetMe)
	r.Post("/api/auth/check-handle", handlers.CheckHandleAvailability)

	// Anonymous identity routes
	r.Get("/api/identity/suggestions", handlers.HandleSuggestions)
	r.Post("/api/identity/regenerate", handlers.RegenerateHandle)
	r.Get("/api/identity/display/{userID}", handlers.ResolveDisplay)
	r.Post("/api/identity/display/batch", handlers.ResolveDisplayBatch)

	// Profile routes
	r.Put("/api/profile", handlers.UpdateProfileSettings)
	r.Post("/api/profile/avatar", handlers.UploadAvatar)

	// Privacy and consent routes
	r.Get("/api/privacy/consents", handlers.GetConsents)
	r.Put("/api/privacy/consents", handlers.UpdateConsent)
	r.Get("/api/privacy/consents/summary", handlers.GetConsentSummary)
	r.Post("/api/privacy/consents/revoke-all", handlers.RevokeAllConsents)
	r.Get("/api/privacy/retention-policies", handlers.GetRetentionPolicies)

	// Event and booking routes
	r.Post("/api/events", handlers.CreateEvent)
	r.Get("/api/events", handlers.ListEvents)
	r.Get("/api/events/{eventID}/attendees", handlers.GetEventAttendees)
	r.Post("/api/events/{eventID}/bookings", handlers.BookEvent)
	r.Delete("/api/events/{eventID}/bookings", handlers.CancelBooking)

	// Anonymous community feed
	r.Post("/api/posts", handlers.CreatePost)
	r.Get("/api/posts", handlers.ListPosts)

	// News routes (personalization is consent-gated)
	r.Get("/api/news", handlers.GetNews)
	r.Put("/api/news/preferences", handlers.UpdateNewsPreferences)
	r.Post("/api/news/ingest", handlers.IngestNews)

	// Group community routes
	r.Post("/api/groups", handlers.CreateGroup)
	r.Get("/api/groups", handlers.ListGroups)
	r.Get("/api/groups/{groupID}", handlers.GetGroup)
	r.Post("/api/groups/{groupID}/join", handlers.JoinGroup)
	r.Delete("/api/groups/{groupID}/leave", handlers.LeaveGroup)
	r.Get("/api/groups/{groupID}/members", handlers.GetGroupMembers)

	// Realtime chat API (MongoDB history + Redis Pub/Sub)
	r.Get("/api/chat/{groupID}/history", handlers.GetChatHistory)

	// WebSocket endpoint for realtime group chat
	r.Get("/ws/chat", handlers.ChatWebSocket)
}
