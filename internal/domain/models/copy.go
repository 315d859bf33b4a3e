// internal/domain/models/copy.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Default physical attributes applied when a copy is added without them.
const (
	DefaultFormat    = "DVD"
	DefaultCondition = "Good"
)

// Copy is one physical (or digital) instance of a catalog entry. Only the
// owner may change or delete it; resolution may move it to another entry.
type Copy struct {
	ID        primitive.ObjectID `bson:"_id" json:"copy_id"`
	OwnerID   primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	MovieID   primitive.ObjectID `bson:"movie_id" json:"movie_id"`
	Format    string             `bson:"format" json:"format"`
	Edition   string             `bson:"edition,omitempty" json:"edition"`
	Region    string             `bson:"region,omitempty" json:"region"`
	Condition string             `bson:"condition" json:"condition"`
	Notes     string             `bson:"notes,omitempty" json:"notes"`
	Barcode   string             `bson:"barcode,omitempty" json:"barcode"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
