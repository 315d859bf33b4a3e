// internal/app/store/copies/copystore.go
package copystore

import (
	"context"
	"errors"
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
	return &Store{c: db.Collection("copies")}
}

// ErrNotFound is returned when no copy matches.
var ErrNotFound = errors.New("copy not found")

// Attributes are the owner-editable physical attributes of a copy.
type Attributes struct {
	Format    string
	Edition   string
	Region    string
	Condition string
	Notes     string
}

// Create inserts a copy and returns it with ID and timestamps set.
func (s *Store) Create(ctx context.Context, c models.Copy) (models.Copy, error) {
	now := time.Now().UTC()
	c.ID = primitive.NewObjectID()
	c.CreatedAt = now
	c.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		return models.Copy{}, err
	}
	return c, nil
}

// GetByID loads a copy by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Copy, error) {
	var c models.Copy
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Copy{}, ErrNotFound
		}
		return models.Copy{}, err
	}
	return c, nil
}

// GetByIDs batch-loads copies keyed by ID.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Copy, error) {
	out := make(map[primitive.ObjectID]models.Copy, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	copies, err := s.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, nil)
	if err != nil {
		return nil, err
	}
	for _, c := range copies {
		out[c.ID] = c
	}
	return out, nil
}

// Update replaces the editable attributes of a copy owned by ownerID.
func (s *Store) Update(ctx context.Context, id, ownerID primitive.ObjectID, a Attributes) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "owner_id": ownerID}, bson.M{"$set": bson.M{
		"format":     a.Format,
		"edition":    a.Edition,
		"region":     a.Region,
		"condition":  a.Condition,
		"notes":      a.Notes,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOwned deletes the copy only if ownerID owns it.
// Returns the number of documents deleted (0 or 1).
func (s *Store) DeleteOwned(ctx context.Context, id, ownerID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "owner_id": ownerID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByOwner deletes every copy the user owns and returns how many went.
func (s *Store) DeleteByOwner(ctx context.Context, ownerID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListByOwner returns all copies owned by a user, newest first.
func (s *Store) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Copy, error) {
	return s.find(ctx, bson.M{"owner_id": ownerID}, bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
}

// ListByOwners returns all copies owned by any of the users.
func (s *Store) ListByOwners(ctx context.Context, ownerIDs []primitive.ObjectID) ([]models.Copy, error) {
	if len(ownerIDs) == 0 {
		return nil, nil
	}
	return s.find(ctx, bson.M{"owner_id": bson.M{"$in": ownerIDs}}, bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
}

// ListByOwnerAndMovie returns a user's copies of one entry, newest first.
func (s *Store) ListByOwnerAndMovie(ctx context.Context, ownerID, movieID primitive.ObjectID) ([]models.Copy, error) {
	return s.find(ctx, bson.M{"owner_id": ownerID, "movie_id": movieID}, bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
}

func (s *Store) find(ctx context.Context, filter bson.M, sort bson.D) ([]models.Copy, error) {
	opts := options.Find()
	if sort != nil {
		opts.SetSort(sort)
	}
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Copy
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByMovie counts copies of one entry across all owners.
func (s *Store) CountByMovie(ctx context.Context, movieID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"movie_id": movieID})
}

// CountOwnedOfMovie counts one user's copies of one entry.
func (s *Store) CountOwnedOfMovie(ctx context.Context, ownerID, movieID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"owner_id": ownerID, "movie_id": movieID})
}

// CountByOwner counts a user's copies.
func (s *Store) CountByOwner(ctx context.Context, ownerID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"owner_id": ownerID})
}

// DistinctMoviesByOwner returns the entries a user owns at least one copy of.
func (s *Store) DistinctMoviesByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]primitive.ObjectID, error) {
	vals, err := s.c.Distinct(ctx, "movie_id", bson.M{"owner_id": ownerID})
	if err != nil {
		return nil, err
	}
	out := make([]primitive.ObjectID, 0, len(vals))
	for _, v := range vals {
		if oid, ok := v.(primitive.ObjectID); ok {
			out = append(out, oid)
		}
	}
	return out, nil
}

// CountByMovies returns, for each entry, the number of copies across all
// owners. This is the global sibling count shown next to a collection row.
func (s *Store) CountByMovies(ctx context.Context, movieIDs []primitive.ObjectID) (map[primitive.ObjectID]int, error) {
	return s.countGrouped(ctx, "movie_id", movieIDs)
}

// CountByOwners returns the number of copies each user owns.
func (s *Store) CountByOwners(ctx context.Context, ownerIDs []primitive.ObjectID) (map[primitive.ObjectID]int, error) {
	return s.countGrouped(ctx, "owner_id", ownerIDs)
}

func (s *Store) countGrouped(ctx context.Context, field string, ids []primitive.ObjectID) (map[primitive.ObjectID]int, error) {
	result := make(map[primitive.ObjectID]int)
	if len(ids) == 0 {
		return result, nil
	}

	cur, err := s.c.Aggregate(ctx, []bson.M{
		{"$match": bson.M{field: bson.M{"$in": ids}}},
		{"$group": bson.M{"_id": "$" + field, "n": bson.M{"$sum": 1}}},
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

// Reassign moves ownerID's copies of one entry to another entry.
// Returns the number of copies moved.
func (s *Store) Reassign(ctx context.Context, fromMovieID, toMovieID, ownerID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"movie_id": fromMovieID, "owner_id": ownerID},
		bson.M{"$set": bson.M{"movie_id": toMovieID, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
