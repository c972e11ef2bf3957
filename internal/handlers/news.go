package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"os"

	"github.com/gatherly-app/gatherly-backend/internal/models"
	"github.com/gatherly-app/gatherly-backend/internal/services"
)

// Consent category gating news personalization.
const newsPersonalizationCategory = "news_personalization"

// GetNews returns the latest community news. Anonymous requests and users
// without the news_personalization consent get the plain feed; users who
// granted it get the feed filtered to their followed sources.
func GetNews(w http.ResponseWriter, r *http.Request) {
	var sources []string

	if userID, ok := getCurrentUser(r); ok {
		has, err := consentLedger.Has(r.Context(), userID.String(), newsPersonalizationCategory)
		if err == nil && has {
			sources, _ = services.GetNewsSourcePreferences(r.Context(), userID.String())
		}
	}

	items, err := services.ListNews(r.Context(), sources)
	if err != nil {
		http.Error(w, "Failed to load news", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"items":        items,
			"personalized": len(sources) > 0,
		},
	})
}

type newsPreferencesRequest struct {
	Sources []string `json:"sources"`
}

// UpdateNewsPreferences stores the user's followed sources. Requires a
// currently-valid news_personalization consent; without it the preferences
// are neither stored nor applied.
func UpdateNewsPreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := getCurrentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	has, err := consentLedger.Has(r.Context(), userID.String(), newsPersonalizationCategory)
	if err != nil {
		http.Error(w, "Failed to check consent", http.StatusInternalServerError)
		return
	}
	if !has {
		writeError(w, http.StatusForbidden, "News personalization requires the news_personalization consent")
		return
	}

	var req newsPreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := services.SetNewsSourcePreferences(r.Context(), userID.String(), req.Sources); err != nil {
		http.Error(w, "Failed to save preferences", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Message: "News preferences saved"})
}

// IngestNews accepts one news item from the aggregation pipeline. Protected
// by a shared token, not user sessions.
func IngestNews(w http.ResponseWriter, r *http.Request) {
	expected := os.Getenv("NEWS_INGEST_TOKEN")
	provided := r.Header.Get("X-Ingest-Token")
	if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) != 1 {
		writeError(w, http.StatusUnauthorized, "Invalid ingest token")
		return
	}

	var item models.NewsItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if item.Title == "" || item.URL == "" || item.Source == "" {
		writeError(w, http.StatusBadRequest, "title, url and source are required")
		return
	}

	if err := services.IngestNewsItem(r.Context(), &item); err != nil {
		http.Error(w, "Failed to save news item", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, Response{Success: true, Message: "News item stored"})
}
