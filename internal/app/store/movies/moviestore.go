// internal/app/store/movies/moviestore.go
package moviestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/cineshelf/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("movies")}
}

var (
	// ErrNotFound is returned when no catalog entry matches.
	ErrNotFound = errors.New("movie not found")
	// ErrDuplicateExternalID is returned when a resolved entry for the
	// external id already exists.
	ErrDuplicateExternalID = errors.New("a movie with this external id already exists")
)

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.Movie, error) {
	var m models.Movie
	if err := s.c.FindOne(ctx, filter).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Movie{}, ErrNotFound
		}
		return models.Movie{}, err
	}
	return m, nil
}

// GetByID loads an entry by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Movie, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByIdentity loads the entry carrying the given identity.
func (s *Store) GetByIdentity(ctx context.Context, id models.Identity) (models.Movie, error) {
	if id.IsResolved() {
		return s.GetByExternalID(ctx, id.ExternalID)
	}
	return s.findOne(ctx, bson.M{"state": models.IdentityUnresolved, "placeholder_id": id.PlaceholderID})
}

// GetByExternalID loads the resolved entry for an external metadata id.
func (s *Store) GetByExternalID(ctx context.Context, externalID string) (models.Movie, error) {
	return s.findOne(ctx, bson.M{"state": models.IdentityResolved, "external_id": externalID})
}

// GetByIDs batch-loads entries keyed by ID.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Movie, error) {
	out := make(map[primitive.ObjectID]models.Movie, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var m models.Movie
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		out[m.ID] = m
	}
	return out, cur.Err()
}

// CreateResolved inserts a canonical entry built from metadata.
func (s *Store) CreateResolved(ctx context.Context, md models.Metadata) (models.Movie, error) {
	now := time.Now().UTC()
	m := models.Movie{
		ID:        primitive.NewObjectID(),
		Identity:  models.Resolved(md.ExternalID),
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyMetadata(&m, md)

	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Movie{}, ErrDuplicateExternalID
		}
		return models.Movie{}, err
	}
	return m, nil
}

// CreateUnresolved inserts a placeholder entry with a fresh placeholder id.
func (s *Store) CreateUnresolved(ctx context.Context, title, mediaType string) (models.Movie, error) {
	now := time.Now().UTC()
	m := models.Movie{
		ID:        primitive.NewObjectID(),
		Identity:  models.Unresolved(strings.ReplaceAll(uuid.NewString(), "-", "")),
		Title:     title,
		TitleCI:   text.Fold(title),
		MediaType: mediaType,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.Movie{}, err
	}
	return m, nil
}

// ResolveInPlace turns an unresolved entry into the canonical entry for
// md.ExternalID, keeping its _id so every copy referencing it follows.
// The display-title override is left untouched.
func (s *Store) ResolveInPlace(ctx context.Context, id primitive.ObjectID, md models.Metadata) (models.Movie, error) {
	var m models.Movie
	applyMetadata(&m, md)

	set := bson.M{
		"state":         models.IdentityResolved,
		"external_id":   md.ExternalID,
		"title":         m.Title,
		"title_ci":      m.TitleCI,
		"media_type":    m.MediaType,
		"poster_url":    m.PosterURL,
		"backdrop_url":  m.BackdropURL,
		"overview":      m.Overview,
		"genre":         m.Genre,
		"director":      m.Director,
		"certification": m.Certification,
		"imdb_id":       m.IMDbID,
		"updated_at":    time.Now().UTC(),
	}
	unset := bson.M{"placeholder_id": ""}
	setOrUnset(set, unset, "year", m.Year)
	setOrUnset(set, unset, "rating", m.Rating)
	setOrUnset(set, unset, "runtime", m.Runtime)

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "state": models.IdentityUnresolved},
		bson.M{"$set": set, "$unset": unset},
		opts,
	).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Movie{}, ErrNotFound
		}
		if wafflemongo.IsDup(err) {
			return models.Movie{}, ErrDuplicateExternalID
		}
		return models.Movie{}, err
	}
	return m, nil
}

func setOrUnset[T any](set, unset bson.M, key string, v *T) {
	if v == nil {
		unset[key] = ""
		return
	}
	set[key] = *v
}

// SetDisplayTitle sets the display-title override, or clears it when title
// is empty.
func (s *Store) SetDisplayTitle(ctx context.Context, id primitive.ObjectID, title string) error {
	update := bson.M{"$set": bson.M{"display_title": title, "updated_at": time.Now().UTC()}}
	if title == "" {
		update = bson.M{
			"$unset": bson.M{"display_title": ""},
			"$set":   bson.M{"updated_at": time.Now().UTC()},
		}
	}
	res, err := s.c.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPoster replaces the entry's poster image.
func (s *Store) SetPoster(ctx context.Context, id primitive.ObjectID, posterURL string) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"poster_url": posterURL,
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

// Delete removes an entry. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListUnresolvedByIDs returns the unresolved entries among ids, by title.
func (s *Store) ListUnresolvedByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Movie, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "state": models.IdentityUnresolved},
		options.Find().SetSort(bson.D{{Key: "title_ci", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Movie
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func applyMetadata(m *models.Movie, md models.Metadata) {
	m.Title = md.Title
	m.TitleCI = text.Fold(md.Title)
	m.Year = md.Year
	m.MediaType = md.MediaType
	if m.MediaType == "" {
		m.MediaType = models.MediaMovie
	}
	m.PosterURL = md.PosterURL
	m.BackdropURL = md.BackdropURL
	m.Overview = md.Overview
	m.Rating = md.Rating
	m.Runtime = md.Runtime
	m.Genre = md.Genre()
	m.Director = md.Director
	m.Certification = md.Certification
	m.IMDbID = md.IMDbID
}
