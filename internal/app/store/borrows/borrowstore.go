// internal/app/store/borrows/borrowstore.go
package borrowstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/cineshelf/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("borrows")}
}

var (
	// ErrAlreadyBorrowed is returned when the copy already has an active
	// borrow. The unique partial index on (copy_id | active) makes this hold
	// under concurrent inserts, not just for the read-then-write path.
	ErrAlreadyBorrowed = errors.New("copy already borrowed")
	ErrNotFound        = errors.New("borrow not found")
)

// activeFilter selects unreturned borrows.
func activeFilter(f bson.M) bson.M {
	f["active"] = true
	return f
}

// Create opens a borrow for b.CopyID.
func (s *Store) Create(ctx context.Context, b models.Borrow) (models.Borrow, error) {
	b.ID = primitive.NewObjectID()
	b.BorrowedAt = time.Now().UTC()
	b.ReturnedAt = nil
	b.Active = true
	if _, err := s.c.InsertOne(ctx, b); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Borrow{}, ErrAlreadyBorrowed
		}
		return models.Borrow{}, err
	}
	return b, nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.Borrow, error) {
	var b models.Borrow
	if err := s.c.FindOne(ctx, filter).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Borrow{}, ErrNotFound
		}
		return models.Borrow{}, err
	}
	return b, nil
}

// GetActive loads a borrow only while it is unreturned.
func (s *Store) GetActive(ctx context.Context, id primitive.ObjectID) (models.Borrow, error) {
	return s.findOne(ctx, activeFilter(bson.M{"_id": id}))
}

// GetActiveByCopy returns the open borrow of a copy, if any.
func (s *Store) GetActiveByCopy(ctx context.Context, copyID primitive.ObjectID) (models.Borrow, error) {
	return s.findOne(ctx, activeFilter(bson.M{"copy_id": copyID}))
}

// MarkReturned closes an active borrow. It returns ErrNotFound when the
// borrow is unknown or was returned already (including by a concurrent call).
func (s *Store) MarkReturned(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	res, err := s.c.UpdateOne(ctx,
		activeFilter(bson.M{"_id": id}),
		bson.M{
			"$set":   bson.M{"returned_at": at},
			"$unset": bson.M{"active": ""},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListActiveByBorrower returns the user's open borrows (things they have).
func (s *Store) ListActiveByBorrower(ctx context.Context, borrowerID primitive.ObjectID) ([]models.Borrow, error) {
	return s.find(ctx, activeFilter(bson.M{"borrower_id": borrowerID}))
}

// ListActiveByOwner returns the open borrows of the user's copies (things
// they lent out).
func (s *Store) ListActiveByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Borrow, error) {
	return s.find(ctx, activeFilter(bson.M{"owner_id": ownerID}))
}

// ActiveByCopies returns the open borrow of each copy that has one.
func (s *Store) ActiveByCopies(ctx context.Context, copyIDs []primitive.ObjectID) (map[primitive.ObjectID]models.Borrow, error) {
	out := make(map[primitive.ObjectID]models.Borrow)
	if len(copyIDs) == 0 {
		return out, nil
	}
	borrows, err := s.find(ctx, activeFilter(bson.M{"copy_id": bson.M{"$in": copyIDs}}))
	if err != nil {
		return nil, err
	}
	for _, b := range borrows {
		out[b.CopyID] = b
	}
	return out, nil
}

// CountActiveByBorrower counts what the user currently has borrowed.
func (s *Store) CountActiveByBorrower(ctx context.Context, borrowerID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, activeFilter(bson.M{"borrower_id": borrowerID}))
}

// CountActiveByOwner counts what the user currently has lent out.
func (s *Store) CountActiveByOwner(ctx context.Context, ownerID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, activeFilter(bson.M{"owner_id": ownerID}))
}

// find returns matches unordered; list views sort by due date themselves.
func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Borrow, error) {
	cur, err := s.c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Borrow
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
