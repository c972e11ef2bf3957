package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gatherly-app/gatherly-backend/internal/services"
	"github.com/go-chi/chi/v5"
)

const defaultChatHistoryLimit = 50

// GetChatHistory returns a group's message history, oldest first. Members
// only. Initial loads come from the Redis recent cache when warm; paging
// further back with `before` always hits MongoDB.
func GetChatHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := getCurrentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	groupID := chi.URLParam(r, "groupID")
	if groupID == "" {
		writeError(w, http.StatusBadRequest, "Group id is required")
		return
	}

	member, err := isGroupMember(r, groupID, userID.String())
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	if !member {
		writeError(w, http.StatusForbidden, "You must be a member of this group")
		return
	}

	limit := int64(defaultChatHistoryLimit)
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			limit = n
		}
	}

	var before *time.Time
	if v := r.URL.Query().Get("before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "before must be RFC3339")
			return
		}
		before = &t
	}

	messages, hasMore, err := services.LoadChatMessagesWithCache(r.Context(), groupID, before, limit)
	if err != nil {
		http.Error(w, "Failed to load messages", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"messages": messages,
			"has_more": hasMore,
		},
	})
}
