// internal/domain/models/groupinvite.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GroupInvite is a redeemable link into a group. A nil InvitedEmail makes it
// group-wide: any signed-in user may redeem it until it expires.
// Expired invites stay in the collection; they are simply inert.
type GroupInvite struct {
	ID           primitive.ObjectID  `bson:"_id" json:"id"`
	Token        string              `bson:"token" json:"invite_token"`
	GroupID      primitive.ObjectID  `bson:"group_id" json:"group_id"`
	InvitedBy    primitive.ObjectID  `bson:"invited_by" json:"invited_by"`
	InvitedEmail *string             `bson:"invited_email,omitempty" json:"invited_email,omitempty"`
	ExpiresAt    time.Time           `bson:"expires_at" json:"expires_at"`
	AcceptedBy   *primitive.ObjectID `bson:"accepted_by,omitempty" json:"accepted_by,omitempty"`
	AcceptedAt   *time.Time          `bson:"accepted_at,omitempty" json:"accepted_at,omitempty"`
	CreatedAt    time.Time           `bson:"created_at" json:"created_at"`
}

// GroupWide reports whether the invite is not bound to an email address.
func (i GroupInvite) GroupWide() bool {
	return i.InvitedEmail == nil
}

// Expired reports whether the invite has lapsed at the given instant.
func (i GroupInvite) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
