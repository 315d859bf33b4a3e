// internal/domain/models/authsession.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthSession maps an opaque bearer token to a user until it expires.
// Sessions are issued by the login flow (or cineshelfctl) and only read here.
type AuthSession struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	Token      string             `bson:"token" json:"-"`
	UserID     primitive.ObjectID `bson:"user_id" json:"user_id"`
	ExpiresAt  time.Time          `bson:"expires_at" json:"expires_at"`
	LastUsedAt *time.Time         `bson:"last_used_at,omitempty" json:"last_used_at,omitempty"`
	UserAgent  string             `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}
