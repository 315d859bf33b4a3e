package indexes_test

import (
	"testing"
	"time"

	"github.com/dalemusser/cineshelf/internal/app/system/indexes"
	"github.com/dalemusser/cineshelf/internal/testutil"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// SetupTestDB already ran EnsureAll once.
	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("third EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesNamedIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	expected := map[string][]string{
		"users":             {"uniq_users_username", "uniq_users_emailci"},
		"movies":            {"uniq_movies_external_id", "uniq_movies_placeholder_id", "idx_movies_titleci__id"},
		"borrows":           {"uniq_borrows_active_copy", "idx_borrows_borrower_active", "idx_borrows_owner_active"},
		"group_invites":     {"uniq_invites_token", "idx_invites_group_expires"},
		"group_memberships": {"uniq_gm_group_user", "idx_gm_user"},
		"auth_sessions":     {"uniq_auth_sessions_token", "ttl_auth_sessions_expires"},
	}

	for coll, names := range expected {
		cur, err := db.Collection(coll).Indexes().List(ctx)
		if err != nil {
			t.Fatalf("list %s indexes: %v", coll, err)
		}
		found := map[string]bool{}
		for cur.Next(ctx) {
			var idx bson.M
			if err := cur.Decode(&idx); err != nil {
				continue
			}
			if name, ok := idx["name"].(string); ok {
				found[name] = true
			}
		}
		cur.Close(ctx)

		for _, n := range names {
			if !found[n] {
				t.Errorf("%s: expected index %q", coll, n)
			}
		}
	}
}

func TestActiveBorrowIndex_AllowsHistory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c := db.Collection("borrows")
	copyID := primitive.NewObjectID()
	now := time.Now().UTC()

	// Two returned borrows of the same copy are fine.
	for i := 0; i < 2; i++ {
		if _, err := c.InsertOne(ctx, bson.M{"copy_id": copyID, "returned_at": now}); err != nil {
			t.Fatalf("insert returned borrow %d: %v", i, err)
		}
	}
	if _, err := c.InsertOne(ctx, bson.M{"copy_id": copyID, "active": true}); err != nil {
		t.Fatalf("insert first active borrow: %v", err)
	}
	_, err := c.InsertOne(ctx, bson.M{"copy_id": copyID, "active": true})
	if !wafflemongo.IsDup(err) {
		t.Fatalf("second active borrow: expected duplicate key error, got %v", err)
	}
}

func TestMovieIdentityIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c := db.Collection("movies")
	if _, err := c.InsertOne(ctx, bson.M{"state": "resolved", "external_id": "603"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	_, err := c.InsertOne(ctx, bson.M{"state": "resolved", "external_id": "603"})
	if !wafflemongo.IsDup(err) {
		t.Fatalf("expected duplicate external_id to fail, got %v", err)
	}
	// Placeholders never collide with each other via external_id.
	for i := 0; i < 2; i++ {
		if _, err := c.InsertOne(ctx, bson.M{"state": "unresolved", "placeholder_id": primitive.NewObjectID().Hex()}); err != nil {
			t.Fatalf("insert placeholder %d: %v", i, err)
		}
	}
}
