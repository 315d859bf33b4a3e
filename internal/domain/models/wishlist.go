// internal/domain/models/wishlist.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WishlistItem records that a user wants a title. One item per (user, movie);
// adding again replaces priority, format hint and notes.
type WishlistItem struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       primitive.ObjectID `bson:"user_id" json:"user_id"`
	MovieID      primitive.ObjectID `bson:"movie_id" json:"movie_id"`
	Priority     int                `bson:"priority" json:"priority"`
	TargetFormat string             `bson:"target_format,omitempty" json:"target_format"`
	Notes        string             `bson:"notes,omitempty" json:"notes"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
