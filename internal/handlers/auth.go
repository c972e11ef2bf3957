package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gatherly-app/gatherly-backend/internal/identity"
	"github.com/gatherly-app/gatherly-backend/internal/models"
	"github.com/gatherly-app/gatherly-backend/internal/services"
	"github.com/gatherly-app/gatherly-backend/pkg/utils"
	"github.com/google/uuid"
)

type SignupRequest struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password"`
	// Optional, for account recovery. Stored encrypted, never in plain text.
	RecoveryEmail string `json:"recovery_email,omitempty"`
}

type SigninRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CheckHandleRequest struct {
	Handle string `json:"handle"`
}

// AuthResponse returns the session token plus the anonymous profile view.
type AuthResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Token   string                 `json:"token,omitempty"`
	User    map[string]interface{} `json:"user,omitempty"`
}

// Signup registers an anonymous-first account. A username is optional; every
// account gets a generated anonymous handle either way, and that handle is
// what other members see.
func Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if len(req.Password) < 8 {
		writeJSON(w, http.StatusBadRequest, AuthResponse{
			Success: false,
			Message: "Password must be at least 8 characters",
		})
		return
	}

	username := ""
	if req.Username != "" {
		if res := identity.ValidateHandle(req.Username); !res.IsValid {
			writeJSON(w, http.StatusBadRequest, Response{
				Success: false,
				Message: "Invalid username",
				Data:    map[string]interface{}{"errors": res.Errors},
			})
			return
		}
		username = identity.NormalizeHandle(req.Username)

		taken, err := profileStore.IsHandleTaken(r.Context(), username)
		if err != nil {
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}
		if taken {
			writeJSON(w, http.StatusConflict, AuthResponse{
				Success: false,
				Message: "Username is already taken",
			})
			return
		}
	}

	suggestion, err := handleGenerator.Generate(r.Context(), identity.GenerateOptions{
		IncludeNumbers: true,
	})
	if err != nil {
		log.Printf("⚠️ Handle generation failed at signup: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, AuthResponse{
			Success: false,
			Message: "Could not generate an anonymous handle, please try again",
		})
		return
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		http.Error(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	profile := &models.Profile{
		UserID:               uuid.New().String(),
		Username:             username,
		AnonymousHandle:      suggestion.Username,
		AnonymousDisplayName: suggestion.DisplayName,
		IsAnonymous:          true,
		CanRevealIdentity:    false,
		RealNameVisibility:   false,
		PasswordHash:         hashedPassword,
	}

	if err := profileStore.CreateProfile(r.Context(), profile); err != nil {
		log.Printf("⚠️ Failed to create profile: %v", err)
		http.Error(w, "Failed to create account", http.StatusInternalServerError)
		return
	}

	if req.RecoveryEmail != "" {
		encrypted, err := utils.Encrypt(req.RecoveryEmail)
		if err != nil {
			log.Printf("⚠️ Failed to encrypt recovery email: %v", err)
		} else if err := profileStore.SetRecoveryEmail(r.Context(), profile.UserID, encrypted); err != nil {
			log.Printf("⚠️ Failed to save recovery email: %v", err)
		}
	}

	userID, _ := uuid.Parse(profile.UserID)
	token, err := services.CreateSession(userID)
	if err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{
		Success: true,
		Message: "Account created successfully",
		Token:   token,
		User: map[string]interface{}{
			"id":                     profile.UserID,
			"anonymous_handle":       profile.AnonymousHandle,
			"anonymous_display_name": profile.AnonymousDisplayName,
			"is_anonymous":           true,
		},
	})
}

// Signin authenticates by username or anonymous handle.
func Signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	profile, err := profileStore.GetProfileByLogin(r.Context(), req.Username)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	if profile == nil {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	valid, err := utils.VerifyPassword(req.Password, profile.PasswordHash)
	if err != nil || !valid {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	userID, err := uuid.Parse(profile.UserID)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	token, err := services.CreateSession(userID)
	if err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "Login successful",
		Token:   token,
		User: map[string]interface{}{
			"id":                     profile.UserID,
			"anonymous_handle":       profile.AnonymousHandle,
			"anonymous_display_name": profile.AnonymousDisplayName,
			"is_anonymous":           profile.IsAnonymous,
		},
	})
}

// Signout invalidates the current session.
func Signout(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r)
	if token != "" {
		services.InvalidateSession(token)
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Signed out"})
}

// GetMe returns the authenticated user's full profile, including the real
// identity fields only the owner may see.
func GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := getCurrentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	profile, err := profileStore.GetProfile(r.Context(), userID.String())
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "Profile not found")
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: profile})
}

// CheckHandleAvailability validates a handle and reports whether it is free.
// All validation errors are returned together so the client can show them in
// one pass.
func CheckHandleAvailability(w http.ResponseWriter, r *http.Request) {
	var req CheckHandleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result := identity.ValidateHandle(req.Handle)
	if !result.IsValid {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":   true,
			"available": false,
			"valid":     false,
			"errors":    result.Errors,
		})
		return
	}

	taken, err := profileStore.IsHandleTaken(r.Context(), identity.NormalizeHandle(req.Handle))
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"available": !taken,
		"valid":     true,
	})
}
