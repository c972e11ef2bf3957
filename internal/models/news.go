package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewsItem is an aggregated news entry stored in MongoDB and served from the
// Redis-backed listing cache.
type NewsItem struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	Title       string             `bson:"title" json:"title"`
	URL         string             `bson:"url" json:"url"`
	Source      string             `bson:"source" json:"source"`
	Summary     string             `bson:"summary,omitempty" json:"summary,omitempty"`
	PublishedAt time.Time          `bson:"published_at" json:"published_at"`
}
