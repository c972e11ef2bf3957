package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gatherly-app/gatherly-backend/internal/consent"
	"github.com/gatherly-app/gatherly-backend/internal/identity"
	"github.com/gatherly-app/gatherly-backend/internal/services"
	"github.com/gatherly-app/gatherly-backend/internal/store"
	"github.com/google/uuid"
)

// Package-level service handles, wired once from main before the router
// starts serving.
var (
	profileStore      *store.Store
	handleGenerator   *identity.Generator
	displayResolver   *identity.Resolver
	consentLedger     *consent.Ledger
	cloudinaryService *services.CloudinaryService
)

// InitStore wires the PostgreSQL-backed store.
func InitStore(s *store.Store) {
	profileStore = s
}

// InitIdentity wires the handle generator and display resolver.
func InitIdentity(g *identity.Generator, r *identity.Resolver) {
	handleGenerator = g
	displayResolver = r
}

// InitConsent wires the consent ledger.
func InitConsent(l *consent.Ledger) {
	consentLedger = l
}

// InitCloudinaryService wires the avatar upload service. Optional; avatar
// uploads return 503 when it was never configured.
func InitCloudinaryService(s *services.CloudinaryService) {
	cloudinaryService = s
}

// Response is the standard JSON envelope.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: false, Message: message})
}

// extractBearerToken pulls the session token from the Authorization header.
func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// getCurrentUser validates the request's session token and returns the
// authenticated user id. Returns uuid.Nil and false when unauthenticated.
func getCurrentUser(r *http.Request) (uuid.UUID, bool) {
	token := extractBearerToken(r)
	if token == "" {
		return uuid.Nil, false
	}
	userID, valid, err := services.ValidateSession(token)
	if err != nil || !valid {
		return uuid.Nil, false
	}
	return userID, true
}

// optionalViewerID returns the viewer's user id as a string, or "" for
// unauthenticated requests. Public surfaces use it so owners still see
// their own identity.
func optionalViewerID(r *http.Request) string {
	userID, ok := getCurrentUser(r)
	if !ok {
		return ""
	}
	return userID.String()
}
