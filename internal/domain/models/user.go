// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a collection owner. Users are created on first login (by the
// login collaborator) or on first legacy username use, and are never
// hard-deleted.
type User struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username    string             `bson:"username" json:"username"`
	Email       *string            `bson:"email,omitempty" json:"email,omitempty"`
	EmailCI     *string            `bson:"email_ci,omitempty" json:"-"` // case-folded for lookups and uniqueness
	DisplayName *string            `bson:"display_name,omitempty" json:"display_name,omitempty"`
	IsAdmin     bool               `bson:"is_admin" json:"is_admin"`

	// Settings is an opaque client-owned document (theme, view modes, ...).
	Settings map[string]any `bson:"settings,omitempty" json:"-"`

	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
	LastLoginAt *time.Time `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
}

// Name returns the display name when set, otherwise the username.
func (u User) Name() string {
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	return u.Username
}

// EmailAddress returns the email or "" when none is on file.
func (u User) EmailAddress() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}
