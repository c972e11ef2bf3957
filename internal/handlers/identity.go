package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gatherly-app/gatherly-backend/internal/identity"
	"github.com/go-chi/chi/v5"
)

const (
	defaultSuggestionCount = 5
	maxSuggestionCount     = 10
	maxBatchResolveSize    = 100
)

// HandleSuggestions returns a batch of generated handle candidates. Nothing
// is persisted; the client applies one via RegenerateHandle or signup.
func HandleSuggestions(w http.ResponseWriter, r *http.Request) {
	count := defaultSuggestionCount
	if v := r.URL.Query().Get("count"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			count = n
		}
	}
	if count > maxSuggestionCount {
		count = maxSuggestionCount
	}

	opts := identity.GenerateOptions{
		Format:              r.URL.Query().Get("format"),
		IncludeNumbers:      r.URL.Query().Get("include_numbers") != "false",
		IncludeSpecialChars: r.URL.Query().Get("include_special_chars") == "true",
	}
	if v := r.URL.Query().Get("max_length"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.MaxLength = n
		}
	}

	suggestions, err := handleGenerator.Suggestions(r.Context(), count, opts)
	if err != nil {
		if errors.Is(err, identity.ErrGenerationExhausted) {
			writeError(w, http.StatusConflict, "Could not find enough unique handles, please try again")
			return
		}
		http.Error(w, "Failed to generate suggestions", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: suggestions})
}

type regenerateRequest struct {
	identity.GenerateOptions
}

// RegenerateHandle generates a fresh anonymous handle for the authenticated
// user and persists it. Past chat messages keep the display name captured at
// send time, so a regenerate never rewrites history.
func RegenerateHandle(w http.ResponseWriter, r *http.Request) {
	userID, ok := getCurrentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req regenerateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	suggestion, err := handleGenerator.Generate(r.Context(), req.GenerateOptions)
	if err != nil {
		if errors.Is(err, identity.ErrGenerationExhausted) {
			writeError(w, http.StatusConflict, "Could not find a unique handle, please try again")
			return
		}
		http.Error(w, "Failed to generate handle", http.StatusInternalServerError)
		return
	}

	if err := profileStore.SetAnonymousHandle(r.Context(), userID.String(), suggestion.Username, suggestion.DisplayName); err != nil {
		http.Error(w, "Failed to save handle", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Anonymous handle updated",
		Data:    suggestion,
	})
}

// ResolveDisplay returns the display info one viewer may see for one user.
func ResolveDisplay(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "userID")
	if targetID == "" {
		writeError(w, http.StatusBadRequest, "User id is required")
		return
	}

	forceAnonymous := r.URL.Query().Get("force_anonymous") == "true"
	viewerID := optionalViewerID(r)

	info := displayResolver.ResolveUser(r.Context(), targetID, viewerID, forceAnonymous)
	writeJSON(w, http.StatusOK, Response{Success: true, Data: info})
}

type batchResolveRequest struct {
	UserIDs        []string `json:"user_ids"`
	ForceAnonymous bool     `json:"force_anonymous,omitempty"`
}

// ResolveDisplayBatch resolves display info for up to 100 users in one call.
// Every requested id gets an entry; unknown ids resolve to the anonymous
// fallback rather than being dropped.
func ResolveDisplayBatch(w http.ResponseWriter, r *http.Request) {
	var req batchResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.UserIDs) == 0 {
		writeError(w, http.StatusBadRequest, "user_ids is required")
		return
	}
	if len(req.UserIDs) > maxBatchResolveSize {
		writeError(w, http.StatusBadRequest, "Too many user ids, maximum is 100")
		return
	}

	viewerID := optionalViewerID(r)
	infos := displayResolver.ResolveUsers(r.Context(), req.UserIDs, viewerID, req.ForceAnonymous)
	writeJSON(w, http.StatusOK, Response{Success: true, Data: infos})
}
