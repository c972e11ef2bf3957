package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gatherly-app/gatherly-backend/internal/consent"
)

type updateConsentRequest struct {
	Category string `json:"category"`
	Granted  bool   `json:"granted"`
	Purpose  string `json:"purpose,omitempty"`
}

// GetConsents returns all of the authenticated user's consent records,
// newest first.
func GetConsents(w http.ResponseWriter, r *http.Request) {
	userID, ok := getCurrentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	records, err := consentLedger.Records(r.Context(), userID.String())
	if err != nil {
		http.Error(w, "Failed to load consents", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: records})
}

// UpdateConsent grants or revokes one consent category.
func UpdateConsent(w http.ResponseWriter, r *http.Request) {
	userID, ok := getCurrentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req updateConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Category == "" {
		writeError(w, http.StatusBadRequest, "category is required")
		return
	}

	record, err := consentLedger.Update(r.Context(), userID.String(), req.Category, req.Granted, req.Purpose)
	if err != nil {
		if errors.Is(err, consent.ErrUnknownCategory) {
			writeError(w, http.StatusNotFound, "Unknown consent category: "+req.Category)
			return
		}
		http.Error(w, "Failed to update consent", http.StatusInternalServerError)
		return
	}

	message := "Consent granted"
	if !req.Granted {
		message = "Consent revoked"
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: message, Data: record})
}

// GetConsentSummary classifies every active consent category for the user.
func GetConsentSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := getCurrentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	summary, err := consentLedger.Summary(r.Context(), userID.String())
	if err != nil {
		http.Error(w, "Failed to load consent summary", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: summary})
}

// RevokeAllConsents revokes every currently-granted consent for the user.
func RevokeAllConsents(w http.ResponseWriter, r *http.Request) {
	userID, ok := getCurrentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	revoked, err := consentLedger.RevokeAll(r.Context(), userID.String())
	if err != nil {
		http.Error(w, "Failed to revoke consents", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "All consents revoked",
		Data:    map[string]int{"revoked": revoked},
	})
}

// GetRetentionPolicies lists the active data-retention policies. Public so
// the privacy page can render them before signup.
func GetRetentionPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := profileStore.ListActiveRetentionPolicies(r.Context())
	if err != nil {
		http.Error(w, "Failed to load retention policies", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: policies})
}
