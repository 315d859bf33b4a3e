// internal/app/store/wishlist/wishliststore.go
package wishliststore

import (
	"context"
	"time"

	"github.com/dalemusser/cineshelf/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("wishlist")}
}

// Upsert adds an entry to the user's wishlist, or replaces priority, target
// format and notes when the entry is already there.
func (s *Store) Upsert(ctx context.Context, item models.WishlistItem) error {
	now := time.Now().UTC()
	_, err := s.c.UpdateOne(ctx,
		bson.M{"user_id": item.UserID, "movie_id": item.MovieID},
		bson.M{
			"$set": bson.M{
				"priority":      item.Priority,
				"target_format": item.TargetFormat,
				"notes":         item.Notes,
				"updated_at":    now,
			},
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

// Remove deletes the user's wishlist item for an entry.
// Returns the number of documents deleted (0 or 1).
func (s *Store) Remove(ctx context.Context, userID, movieID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"user_id": userID, "movie_id": movieID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByUser empties the user's wishlist.
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListByUser returns the user's wishlist, highest priority first.
// Title ordering within a priority is applied by the caller, which has the
// entries loaded.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.WishlistItem, error) {
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "priority", Value: -1}, {Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var items []models.WishlistItem
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CountByUser counts the user's wishlist items.
func (s *Store) CountByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"user_id": userID})
}

// CountByUsers returns the number of wishlist items per user.
func (s *Store) CountByUsers(ctx context.Context, userIDs []primitive.ObjectID) (map[primitive.ObjectID]int, error) {
	result := make(map[primitive.ObjectID]int)
	if len(userIDs) == 0 {
		return result, nil
	}

	cur, err := s.c.Aggregate(ctx, []bson.M{
		{"$match": bson.M{"user_id": bson.M{"$in": userIDs}}},
		{"$group": bson.M{"_id": "$user_id", "n": bson.M{"$sum": 1}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
			N  int                `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		result[row.ID] = row.N
	}
	return result, cur.Err()
}
