// internal/domain/models/borrow.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Borrow is one loan of a copy. While unreturned it carries active=true,
// which a unique partial index on copy_id uses to allow at most one open
// loan per copy. Returning unsets active and stamps ReturnedAt; the
// document is then history and never changes again.
type Borrow struct {
	ID         primitive.ObjectID `bson:"_id" json:"borrow_id"`
	CopyID     primitive.ObjectID `bson:"copy_id" json:"copy_id"`
	OwnerID    primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	BorrowerID primitive.ObjectID `bson:"borrower_id" json:"borrower_id"`
	BorrowedAt time.Time          `bson:"borrowed_at" json:"borrowed_at"`
	DueDate    *time.Time         `bson:"due_date,omitempty" json:"due_date,omitempty"`
	ReturnedAt *time.Time         `bson:"returned_at,omitempty" json:"returned_at,omitempty"`
	Notes      string             `bson:"notes,omitempty" json:"notes"`
	Active     bool               `bson:"active,omitempty" json:"-"`
}

// Involves reports whether the user is the owner or the borrower.
func (b Borrow) Involves(userID primitive.ObjectID) bool {
	return b.OwnerID == userID || b.BorrowerID == userID
}
