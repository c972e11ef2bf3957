package services

import (
	"context"
	"time"

	"github.com/gatherly-app/gatherly-backend/internal/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ChatMessage is stored in MongoDB, one document per message.
// DisplayName is the sender's resolved display name at send time; the
// anonymous identity shown in chat stays stable even if the sender later
// regenerates their handle.
type ChatMessage struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GroupID     string             `bson:"group_id" json:"group_id"`
	SenderID    string             `bson:"sender_id" json:"sender_id"`
	DisplayName string             `bson:"display_name" json:"display_name"`
	Text        string             `bson:"text" json:"text"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	Status      string             `bson:"status" json:"status"` // "sent", "delivered"
}

// EnsureChatIndexes configures indexes for the chat_messages collection.
// Called on startup from main after Mongo has connected.
func EnsureChatIndexes(ctx context.Context) error {
	col := database.DB.Collection("chat_messages")

	// Compound index on (group_id, created_at) to support efficient pagination.
	models := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "group_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_group_created"),
		},
	}

	for _, m := range models {
		if _, err := col.Indexes().CreateOne(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// SaveChatMessage persists a message and returns it with its assigned id.
func SaveChatMessage(ctx context.Context, msg *ChatMessage) (*ChatMessage, error) {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if msg.Status == "" {
		msg.Status = "sent"
	}

	col := database.DB.Collection("chat_messages")
	res, err := col.InsertOne(ctx, msg)
	if err != nil {
		return nil, err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		msg.ID = oid
	}
	return msg, nil
}

// LoadChatMessages returns paginated chat history for a group.
// Pagination is based on timestamp + limit (newest-first scrolling).
func LoadChatMessages(ctx context.Context, groupID string, before *time.Time, limit int64) ([]ChatMessage, bool, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	col := database.DB.Collection("chat_messages")

	filter := bson.M{
		"group_id": groupID,
	}
	if before != nil {
		filter["created_at"] = bson.M{"$lt": before.UTC()}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit + 1)

	cur, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, false, err
	}
	defer cur.Close(ctx)

	var msgs []ChatMessage
	for cur.Next(ctx) {
		var m ChatMessage
		if err := cur.Decode(&m); err != nil {
			continue
		}
		msgs = append(msgs, m)
	}
	if err := cur.Err(); err != nil {
		return nil, false, err
	}

	hasMore := int64(len(msgs)) > limit
	if hasMore {
		msgs = msgs[:len(msgs)-1]
	}

	// Reverse to oldest-first for the UI.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	return msgs, hasMore, nil
}
