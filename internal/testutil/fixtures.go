package testutil

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/dalemusser/cineshelf/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to insert into %s: %v", coll, err)
	}
}

// CreateUser creates a user with the given username and an email derived
// from it.
func (f *Fixtures) CreateUser(ctx context.Context, username string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	email := username + "@example.com"
	emailCI := text.Fold(email)
	u := models.User{
		ID:        primitive.NewObjectID(),
		Username:  username,
		Email:     &email,
		EmailCI:   &emailCI,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "users", u)
	return u
}

// CreateAdmin creates a site admin.
func (f *Fixtures) CreateAdmin(ctx context.Context, username string) models.User {
	f.t.Helper()

	u := f.CreateUser(ctx, username)
	if _, err := f.db.Collection("users").UpdateByID(ctx, u.ID, bson.M{"$set": bson.M{"is_admin": true}}); err != nil {
		f.t.Fatalf("failed to promote %s: %v", username, err)
	}
	u.IsAdmin = true
	return u
}

// CreateMovie creates a resolved catalog entry for externalID.
func (f *Fixtures) CreateMovie(ctx context.Context, externalID, title string, year int) models.Movie {
	f.t.Helper()

	now := time.Now().UTC()
	m := models.Movie{
		ID:        primitive.NewObjectID(),
		Identity:  models.Resolved(externalID),
		Title:     title,
		TitleCI:   text.Fold(title),
		Year:      &year,
		MediaType: models.MediaMovie,
		PosterURL: "https://image.example/" + externalID + ".jpg",
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "movies", m)
	return m
}

// CreateUnresolved creates a placeholder entry.
func (f *Fixtures) CreateUnresolved(ctx context.Context, title string) models.Movie {
	f.t.Helper()

	now := time.Now().UTC()
	m := models.Movie{
		ID:        primitive.NewObjectID(),
		Identity:  models.Unresolved(primitive.NewObjectID().Hex()),
		Title:     title,
		TitleCI:   text.Fold(title),
		MediaType: models.MediaMovie,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "movies", m)
	return m
}

// CreateCopy creates a DVD copy of movie owned by owner.
func (f *Fixtures) CreateCopy(ctx context.Context, owner models.User, movie models.Movie) models.Copy {
	f.t.Helper()

	now := time.Now().UTC()
	c := models.Copy{
		ID:        primitive.NewObjectID(),
		OwnerID:   owner.ID,
		MovieID:   movie.ID,
		Format:    models.DefaultFormat,
		Condition: models.DefaultCondition,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "copies", c)
	return c
}

// CreateCopies creates n copies of movie owned by owner.
func (f *Fixtures) CreateCopies(ctx context.Context, owner models.User, movie models.Movie, n int) []models.Copy {
	f.t.Helper()

	out := make([]models.Copy, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, f.CreateCopy(ctx, owner, movie))
	}
	return out
}

// CreateGroup creates a group with admin as its only member.
func (f *Fixtures) CreateGroup(ctx context.Context, name string, admin models.User) models.Group {
	f.t.Helper()

	now := time.Now().UTC()
	g := models.Group{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		CreatedBy: admin.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "groups", g)
	f.AddMember(ctx, g, admin, models.RoleAdmin)
	return g
}

// AddMember adds user to group with role.
func (f *Fixtures) AddMember(ctx context.Context, g models.Group, u models.User, role string) {
	f.t.Helper()

	f.insert(ctx, "group_memberships", models.GroupMembership{
		ID:       primitive.NewObjectID(),
		GroupID:  g.ID,
		UserID:   u.ID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	})
}

// CreateInvite creates a group-wide invite expiring at expiresAt.
func (f *Fixtures) CreateInvite(ctx context.Context, g models.Group, by models.User, expiresAt time.Time) models.GroupInvite {
	f.t.Helper()

	inv := models.GroupInvite{
		ID:        primitive.NewObjectID(),
		Token:     primitive.NewObjectID().Hex() + strconv.FormatInt(time.Now().UnixNano(), 16),
		GroupID:   g.ID,
		InvitedBy: by.ID,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: time.Now().UTC(),
	}
	f.insert(ctx, "group_invites", inv)
	return inv
}

// CreateBorrow records an active borrow of c by borrower.
func (f *Fixtures) CreateBorrow(ctx context.Context, c models.Copy, borrower models.User) models.Borrow {
	f.t.Helper()

	b := models.Borrow{
		ID:         primitive.NewObjectID(),
		CopyID:     c.ID,
		OwnerID:    c.OwnerID,
		BorrowerID: borrower.ID,
		BorrowedAt: time.Now().UTC(),
		Active:     true,
	}
	f.insert(ctx, "borrows", b)
	return b
}
