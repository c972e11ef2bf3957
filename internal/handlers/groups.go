package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"regexp"
	"strings"

	"github.com/gatherly-app/gatherly-backend/internal/database"
	"github.com/gatherly-app/gatherly-backend/internal/models"
	"github.com/go-chi/chi/v5"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// slugify turns a group name into a URL-safe slug.
func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugPattern.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

type createGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsPublic    *bool  `json:"is_public,omitempty"`
}

const groupColumns = `
	id, created_at, updated_at, name, slug, COALESCE(description, ''),
	created_by, is_public, member_count
`

func scanGroup(row interface{ Scan(...interface{}) error }) (*models.Group, error) {
	var g models.Group
	err := row.Scan(
		&g.ID, &g.CreatedAt, &g.UpdatedAt, &g.Name, &g.Slug, &g.Description,
		&g.CreatedBy, &g.IsPublic, &g.MemberCount,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// CreateGroup creates a group and makes the creator its admin member.
func CreateGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := getCurrentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	slug := slugify(req.Name)
	if slug == "" {
		writeError(w, http.StatusBadRequest, "name must contain letters or digits")
		return
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	tx, err := database.PostgresDB.BeginTx(r.Context(), nil)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	defer tx.Rollback()

	group := &models.Group{}
	err = tx.QueryRowContext(r.Context(), `
		INSERT INTO groups (name, slug, description, created_by, is_public)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+groupColumns+`
	`, req.Name, slug, req.Description, userID.String(), isPublic).Scan(
		&group.ID, &group.CreatedAt, &group.UpdatedAt, &group.Name, &group.Slug,
		&group.Description, &group.CreatedBy, &group.IsPublic, &group.MemberCount,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			writeError(w, http.StatusConflict, "A group with this name already exists")
			return
		}
		log.Printf("⚠️ Failed to create group: %v", err)
		http.Error(w, "Failed to create group", http.StatusInternalServerError)
		return
	}

	_, err = tx.ExecContext(r.Context(), `
		INSERT INTO group_members (group_id, user_id, role)
		VALUES ($1, $2, 'admin')
	`, group.ID, userID.String())
	if err != nil {
		http.Error(w, "Failed to create group", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(); err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, Response{Success: true, Message: "Group created", Data: group})
}

// ListGroups returns public groups, largest first.
func ListGroups(w http.ResponseWriter, r *http.Request) {
	rows, err := database.PostgresDB.QueryContext(r.Context(), `
		SELECT `+groupColumns+`
		FROM groups WHERE is_public = TRUE
		ORDER BY member_count DESC, created_at DESC
		LIMIT 100
	`)
	if err != nil {
		http.Error(w, "Failed to load groups", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	groups := []models.Group{}
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			http.Error(w, "Failed to load groups", http.StatusInternalServerError)
			return
		}
		groups = append(groups, *g)
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: groups})
}

// GetGroup returns one group by id or slug.
func GetGroup(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "groupID")
	if ref == "" {
		writeError(w, http.StatusBadRequest, "Group id or slug is required")
		return
	}

	row := database.PostgresDB.QueryRowContext(r.Context(), `
		SELECT `+groupColumns+`
		FROM groups WHERE id::text = $1 OR slug = $1
	`, ref)

	group, err := scanGroup(row)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "Group not found")
		return
	}
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: group})
}

// JoinGroup adds the authenticated user to a group.
func JoinGroup(w http.ResponseWriter, r *http.Request) {
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

	tx, err := database.PostgresDB.BeginTx(r.Context(), nil)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(r.Context(), `
		INSERT INTO group_members (group_id, user_id, role)
		VALUES ($1, $2, 'member')
		ON CONFLICT (group_id, user_id) DO NOTHING
	`, groupID, userID.String())
	if err != nil {
		writeError(w, http.StatusNotFound, "Group not found")
		return
	}

	if affected, _ := result.RowsAffected(); affected > 0 {
		_, err = tx.ExecContext(r.Context(), `
			UPDATE groups SET member_count = member_count + 1, updated_at = NOW() WHERE id = $1
		`, groupID)
		if err != nil {
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}
	}

	if err := tx.Commit(); err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Joined group"})
}

// LeaveGroup removes the authenticated user from a group.
func LeaveGroup(w http.ResponseWriter, r *http.Request) {
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

	tx, err := database.PostgresDB.BeginTx(r.Context(), nil)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(r.Context(), `
		DELETE FROM group_members WHERE group_id = $1 AND user_id = $2
	`, groupID, userID.String())
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		writeError(w, http.StatusNotFound, "Not a member of this group")
		return
	}

	_, err = tx.ExecContext(r.Context(), `
		UPDATE groups SET member_count = GREATEST(member_count - 1, 0), updated_at = NOW() WHERE id = $1
	`, groupID)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(); err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Left group"})
}

// GetGroupMembers returns the member list with display names resolved for
// the viewer. Every member id gets an entry even if its profile row is
// broken; those degrade to the anonymous fallback.
func GetGroupMembers(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	if groupID == "" {
		writeError(w, http.StatusBadRequest, "Group id is required")
		return
	}

	rows, err := database.PostgresDB.QueryContext(r.Context(), `
		SELECT user_id, role, joined_at FROM group_members
		WHERE group_id = $1
		ORDER BY joined_at ASC
	`, groupID)
	if err != nil {
		http.Error(w, "Failed to load members", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	var members []models.GroupMember
	var memberIDs []string
	for rows.Next() {
		var m models.GroupMember
		if err := rows.Scan(&m.UserID, &m.Role, &m.JoinedAt); err != nil {
			http.Error(w, "Failed to load members", http.StatusInternalServerError)
			return
		}
		members = append(members, m)
		memberIDs = append(memberIDs, m.UserID)
	}

	viewerID := optionalViewerID(r)
	infos := displayResolver.ResolveUsers(r.Context(), memberIDs, viewerID, false)

	type memberView struct {
		models.GroupMember
		Display interface{} `json:"display"`
	}
	views := make([]memberView, 0, len(members))
	for _, m := range members {
		views = append(views, memberView{GroupMember: m, Display: infos[m.UserID]})
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: views})
}

// isGroupMember checks membership for chat access control.
func isGroupMember(r *http.Request, groupID, userID string) (bool, error) {
	var exists bool
	err := database.PostgresDB.QueryRowContext(r.Context(), `
		SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id = $1 AND user_id = $2)
	`, groupID, userID).Scan(&exists)
	return exists, err
}
