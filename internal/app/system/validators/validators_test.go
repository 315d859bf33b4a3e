package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/cineshelf/internal/app/system/validators"
	"github.com/dalemusser/cineshelf/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for i := 0; i < 2; i++ {
		if err := validators.EnsureAll(ctx, db, zap.NewNop()); err != nil {
			t.Fatalf("EnsureAll call %d failed: %v", i+1, err)
		}
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	have := map[string]bool{}
	for _, n := range names {
		have[n] = true
	}
	for _, want := range []string{"users", "movies", "copies", "groups", "group_memberships", "group_invites", "borrows", "wishlist", "auth_sessions", "audit_events"} {
		if !have[want] {
			t.Errorf("expected collection %q to exist", want)
		}
	}
}

func TestBorrowsValidator_RejectsBadDocs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	c := db.Collection("borrows")
	good := bson.M{
		"copy_id":     primitive.NewObjectID(),
		"owner_id":    primitive.NewObjectID(),
		"borrower_id": primitive.NewObjectID(),
		"borrowed_at": time.Now().UTC(),
		"active":      true,
	}
	if _, err := c.InsertOne(ctx, good); err != nil {
		t.Fatalf("valid borrow rejected: %v", err)
	}

	bad := bson.M{
		"copy_id":     "not-an-id",
		"owner_id":    primitive.NewObjectID(),
		"borrower_id": primitive.NewObjectID(),
		"borrowed_at": time.Now().UTC(),
	}
	if _, err := c.InsertOne(ctx, bad); err == nil {
		t.Error("expected validator to reject string copy_id")
	}
}

func TestMembershipValidator_RoleEnum(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	_, err := db.Collection("group_memberships").InsertOne(ctx, bson.M{
		"user_id":  primitive.NewObjectID(),
		"group_id": primitive.NewObjectID(),
		"role":     "leader",
	})
	if err == nil {
		t.Error("expected validator to reject unknown role")
	}
}
