// internal/app/store/sessions/store.go
package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/cineshelf/internal/app/system/tokens"
	"github.com/dalemusser/cineshelf/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned when the token is unknown or expired.
var ErrNotFound = errors.New("session not found")

// Store manages bearer-token auth sessions.
type Store struct {
	c *mongo.Collection
}

// New creates a new sessions Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("auth_sessions")}
}

// Create issues a session for userID valid for ttl and returns it with its
// token.
func (s *Store) Create(ctx context.Context, userID primitive.ObjectID, ttl time.Duration, userAgent string) (models.AuthSession, error) {
	tok, err := tokens.New(tokens.SessionBytes)
	if err != nil {
		return models.AuthSession{}, err
	}
	now := time.Now().UTC()
	sess := models.AuthSession{
		ID:        primitive.NewObjectID(),
		Token:     tok,
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		UserAgent: userAgent,
		CreatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, sess); err != nil {
		return models.AuthSession{}, err
	}
	return sess, nil
}

// FindActive returns the unexpired session for token and stamps its
// last_used_at.
func (s *Store) FindActive(ctx context.Context, token string, now time.Time) (models.AuthSession, error) {
	var sess models.AuthSession
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"token": token, "expires_at": bson.M{"$gt": now}},
		bson.M{"$set": bson.M{"last_used_at": now}},
	).Decode(&sess)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.AuthSession{}, ErrNotFound
	}
	return sess, err
}

// Revoke deletes the session for token. Returns the number of documents
// deleted (0 or 1).
func (s *Store) Revoke(ctx context.Context, token string) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"token": token})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteExpired removes sessions that expired before now. The TTL index
// does the same lazily; this keeps the collection tight on servers where
// the TTL monitor runs rarely.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": now}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
