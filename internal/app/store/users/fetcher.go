package userstore

import (
	"context"

	"github.com/dalemusser/cineshelf/internal/app/system/auth"
	"github.com/dalemusser/cineshelf/internal/app/system/timeouts"
	"github.com/dalemusser/cineshelf/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fetcher implements auth.PrincipalFetcher so every request sees the user's
// current admin flag and email rather than a copy cached at login.
type Fetcher struct {
	store *Store
}

// NewFetcher creates a PrincipalFetcher that queries the given database.
func NewFetcher(db *mongo.Database) *Fetcher {
	return &Fetcher{store: New(db)}
}

// FetchPrincipal returns nil when the user does not exist or cannot be read.
func (f *Fetcher) FetchPrincipal(ctx context.Context, userID primitive.ObjectID) *auth.Principal {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	u, err := f.store.GetByID(ctx, userID)
	if err != nil {
		return nil
	}
	return PrincipalOf(u)
}

// FetchLegacy resolves a bare username, creating the account on first use.
func (f *Fetcher) FetchLegacy(ctx context.Context, username string) (*auth.Principal, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	u, err := f.store.GetOrCreateByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return PrincipalOf(u), nil
}

// PrincipalOf converts a stored user into the request principal.
func PrincipalOf(u models.User) *auth.Principal {
	return &auth.Principal{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.EmailAddress(),
		DisplayName: u.Name(),
		IsAdmin:     u.IsAdmin,
	}
}
