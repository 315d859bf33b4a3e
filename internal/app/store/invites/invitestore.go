// internal/app/store/invites/invitestore.go
package invitestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/cineshelf/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("group_invites")}
}

var (
	ErrNotFound = errors.New("invite not found")
	// ErrDuplicateToken is returned when the token collides with an existing
	// invite. With 128-bit tokens this signals a broken random source.
	ErrDuplicateToken = errors.New("invite token already exists")
)

// Create inserts an invite.
func (s *Store) Create(ctx context.Context, inv models.GroupInvite) (models.GroupInvite, error) {
	inv.ID = primitive.NewObjectID()
	inv.CreatedAt = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, inv); err != nil {
		if wafflemongo.IsDup(err) {
			return models.GroupInvite{}, ErrDuplicateToken
		}
		return models.GroupInvite{}, err
	}
	return inv, nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (models.GroupInvite, error) {
	var inv models.GroupInvite
	if err := s.c.FindOne(ctx, filter, opts...).Decode(&inv); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.GroupInvite{}, ErrNotFound
		}
		return models.GroupInvite{}, err
	}
	return inv, nil
}

// GetByToken loads an invite by token, expired or not.
func (s *Store) GetByToken(ctx context.Context, token string) (models.GroupInvite, error) {
	return s.findOne(ctx, bson.M{"token": token})
}

// GetByID loads an invite by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.GroupInvite, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// FindActiveGroupWide returns the group-wide invite for the group that
// expires last, provided it is still valid at now.
func (s *Store) FindActiveGroupWide(ctx context.Context, groupID primitive.ObjectID, now time.Time) (models.GroupInvite, error) {
	return s.findOne(ctx,
		bson.M{
			"group_id":      groupID,
			"invited_email": nil, // matches missing and null
			"expires_at":    bson.M{"$gt": now},
		},
		options.FindOne().SetSort(bson.D{{Key: "expires_at", Value: -1}}),
	)
}

// ListByGroup returns every invite of a group, newest first.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.GroupInvite, error) {
	cur, err := s.c.Find(ctx, bson.M{"group_id": groupID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.GroupInvite
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkAccepted records the first acceptance of an invite. Later acceptances
// of a group-wide invite leave the record as it is.
func (s *Store) MarkAccepted(ctx context.Context, id, userID primitive.ObjectID, at time.Time) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "accepted_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"accepted_by": userID, "accepted_at": at}},
	)
	return err
}

// Delete removes an invite. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
