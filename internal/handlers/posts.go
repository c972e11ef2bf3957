package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gatherly-app/gatherly-backend/internal/database"
	"github.com/gatherly-app/gatherly-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	maxPostLength    = 4000
	defaultPostLimit = 20
	maxPostLimit     = 50
)

type createPostRequest struct {
	Body string   `json:"body"`
	Tags []string `json:"tags,omitempty"`
}

// postView is a post plus the author's resolved display info. The feed is
// always anonymous: resolution runs with anonymity forced, so even users who
// opted into revealing their identity elsewhere stay anonymous here.
type postView struct {
	models.Post
	Author interface{} `json:"author"`
}

// CreatePost publishes an anonymous post to the community feed.
func CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := getCurrentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Body == "" {
		writeError(w, http.StatusBadRequest, "body is required")
		return
	}
	if len(req.Body) > maxPostLength {
		writeError(w, http.StatusBadRequest, "Post is too long, maximum is 4000 characters")
		return
	}

	authorID := userID.String()
	now := time.Now().UTC()
	post := models.Post{
		ID:        primitive.NewObjectID(),
		CreatedAt: now,
		UpdatedAt: now,
		AuthorID:  &authorID,
		Body:      req.Body,
		Tags:      req.Tags,
	}

	if _, err := database.DB.Collection("posts").InsertOne(r.Context(), post); err != nil {
		log.Printf("⚠️ Failed to save post: %v", err)
		http.Error(w, "Failed to save post", http.StatusInternalServerError)
		return
	}

	author := displayResolver.ResolveUser(r.Context(), authorID, authorID, true)
	writeJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Post published",
		Data:    postView{Post: post, Author: author},
	})
}

// ListPosts returns the feed, newest first, with authors resolved
// anonymously in one batch.
func ListPosts(w http.ResponseWriter, r *http.Request) {
	limit := int64(defaultPostLimit)
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPostLimit {
		limit = maxPostLimit
	}

	filter := bson.M{}
	if tag := r.URL.Query().Get("tag"); tag != "" {
		filter["tags"] = tag
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cur, err := database.DB.Collection("posts").Find(r.Context(), filter, opts)
	if err != nil {
		http.Error(w, "Failed to load posts", http.StatusInternalServerError)
		return
	}
	defer cur.Close(r.Context())

	var posts []models.Post
	if err := cur.All(r.Context(), &posts); err != nil {
		http.Error(w, "Failed to load posts", http.StatusInternalServerError)
		return
	}

	authorIDs := make([]string, 0, len(posts))
	for _, p := range posts {
		if p.AuthorID != nil {
			authorIDs = append(authorIDs, *p.AuthorID)
		}
	}

	viewerID := optionalViewerID(r)
	infos := displayResolver.ResolveUsers(r.Context(), authorIDs, viewerID, true)

	views := make([]postView, 0, len(posts))
	for _, p := range posts {
		view := postView{Post: p}
		if p.AuthorID != nil {
			view.Author = infos[*p.AuthorID]
		}
		views = append(views, view)
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: views})
}
