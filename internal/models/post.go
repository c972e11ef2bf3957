package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post is an anonymous community post stored in MongoDB.
// AuthorID is optional; the public feed never shows real identities either
// way - display names go through the display resolver with anonymity forced.
type Post struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`

	AuthorID *string `bson:"author_id,omitempty" json:"author_id,omitempty"`

	Body string   `bson:"body" json:"body"`
	Tags []string `bson:"tags,omitempty" json:"tags,omitempty"`
}
