package systemusers_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/dalemusser/cineshelf/internal/app/features/groups"
	"github.com/dalemusser/cineshelf/internal/app/features/systemusers"
	"github.com/dalemusser/cineshelf/internal/app/store/audit"
	wishliststore "github.com/dalemusser/cineshelf/internal/app/store/wishlist"
	"github.com/dalemusser/cineshelf/internal/app/system/auditlog"
	"github.com/dalemusser/cineshelf/internal/app/system/apperr"
	"github.com/dalemusser/cineshelf/internal/app/system/rpc"
	"github.com/dalemusser/cineshelf/internal/domain/models"
	"github.com/dalemusser/cineshelf/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestAdminLists(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	gh := groups.NewHandler(db, nil, 0, zap.NewNop())
	reg := rpc.NewRegistry(systemusers.NewHandler(db, gh, nil, zap.NewNop()))
	ctx, cancel := testutil.TestContext()
	defer cancel()

	root := fx.CreateAdmin(ctx, "root")
	amy := fx.CreateUser(ctx, "amy")
	bob := fx.CreateUser(ctx, "bob")
	fx.CreateCopies(ctx, amy, fx.CreateMovie(ctx, "603", "The Matrix", 1999), 2)
	g := fx.CreateGroup(ctx, "Zeta", amy)
	fx.AddMember(ctx, g, bob, models.RoleMember)
	fx.CreateGroup(ctx, "alpha", bob)

	for _, action := range []string{"admin_list_users", "admin_list_all_groups"} {
		_, err := reg.Dispatch(context.Background(), testutil.Principal(amy), rpc.Request{Action: action})
		ae, ok := apperr.As(err)
		require.True(t, ok, action)
		assert.Equal(t, apperr.KindAuthorization, ae.Kind)
		assert.Equal(t, "Admin access required", ae.Message)
	}

	data, err := reg.Dispatch(context.Background(), testutil.Principal(root), rpc.Request{Action: "admin_list_users"})
	require.NoError(t, err)
	users := data.([]systemusers.UserRow)
	require.Len(t, users, 3)
	assert.Equal(t, "amy", users[0].Username)
	assert.Equal(t, 2, users[0].CollectionCount)
	assert.True(t, users[2].IsAdmin)

	data, err = reg.Dispatch(context.Background(), testutil.Principal(root), rpc.Request{Action: "admin_list_all_groups"})
	require.NoError(t, err)
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	var gs []groups.Summary
	require.NoError(t, json.Unmarshal(raw, &gs))
	require.Len(t, gs, 2)
	assert.Equal(t, "alpha", gs[0].Name)
	assert.Equal(t, "Zeta", gs[1].Name)
	assert.Equal(t, 2, gs[1].MemberCount)
	assert.Empty(t, gs[1].Role)
}

func userAction(t *testing.T, reg *rpc.Registry, p *models.User, action, userID string) (any, error) {
	t.Helper()
	raw, err := json.Marshal(map[string]string{"user_id": userID})
	require.NoError(t, err)
	return reg.Dispatch(context.Background(), testutil.Principal(*p), rpc.Request{Action: action, Body: raw})
}

func TestAdminUserData(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	gh := groups.NewHandler(db, nil, 0, zap.NewNop())
	reg := rpc.NewRegistry(systemusers.NewHandler(db, gh, nil, zap.NewNop()))
	ctx, cancel := testutil.TestContext()
	defer cancel()

	root := fx.CreateAdmin(ctx, "root")
	amy := fx.CreateUser(ctx, "amy")
	bob := fx.CreateUser(ctx, "bob")
	matrix := fx.CreateMovie(ctx, "603", "The Matrix", 1999)
	fx.CreateCopies(ctx, amy, matrix, 3)
	require.NoError(t, wishliststore.New(db).Upsert(ctx, models.WishlistItem{UserID: amy.ID, MovieID: matrix.ID, Priority: 2}))
	fx.CreateGroup(ctx, "zeta", amy)
	g := fx.CreateGroup(ctx, "Alpha", bob)
	fx.AddMember(ctx, g, amy, models.RoleMember)
	fx.CreateGroup(ctx, "Elsewhere", bob)

	_, err := userAction(t, reg, &amy, "admin_get_user_data", amy.ID.Hex())
	assert.Equal(t, "Admin access required", errMessage(err))

	_, err = userAction(t, reg, &root, "admin_get_user_data", "")
	assert.Equal(t, "User ID required", errMessage(err))

	_, err = userAction(t, reg, &root, "admin_get_user_data", primitive.NewObjectID().Hex())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "User not found", errMessage(err))

	data, err := userAction(t, reg, &root, "admin_get_user_data", amy.ID.Hex())
	require.NoError(t, err)
	ud := data.(systemusers.UserData)
	assert.Equal(t, "amy", ud.User.Username)
	assert.EqualValues(t, 3, ud.CollectionCount)
	assert.EqualValues(t, 1, ud.WishlistCount)
	require.Len(t, ud.Groups, 2)
	assert.Equal(t, "Alpha", ud.Groups[0].Name)
	assert.Equal(t, "zeta", ud.Groups[1].Name)
}

func TestAdminClearUserData(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	store := audit.New(db)
	trail := auditlog.New(store, zap.NewNop(), auditlog.Config{Groups: "db"})
	gh := groups.NewHandler(db, nil, 0, zap.NewNop())
	reg := rpc.NewRegistry(systemusers.NewHandler(db, gh, trail, zap.NewNop()))
	ctx, cancel := testutil.TestContext()
	defer cancel()

	root := fx.CreateAdmin(ctx, "root")
	amy := fx.CreateUser(ctx, "amy")
	bob := fx.CreateUser(ctx, "bob")
	matrix := fx.CreateMovie(ctx, "603", "The Matrix", 1999)
	heat := fx.CreateMovie(ctx, "949", "Heat", 1995)
	fx.CreateCopies(ctx, amy, matrix, 2)
	fx.CreateCopy(ctx, bob, matrix)
	wl := wishliststore.New(db)
	for _, m := range []models.Movie{matrix, heat} {
		require.NoError(t, wl.Upsert(ctx, models.WishlistItem{UserID: amy.ID, MovieID: m.ID}))
	}
	require.NoError(t, wl.Upsert(ctx, models.WishlistItem{UserID: bob.ID, MovieID: heat.ID}))

	for _, action := range []string{"admin_clear_wishlist", "admin_clear_collection"} {
		_, err := userAction(t, reg, &bob, action, amy.ID.Hex())
		assert.Equal(t, "Admin access required", errMessage(err), action)

		_, err = userAction(t, reg, &root, action, "not-an-id")
		assert.Equal(t, "Invalid User ID", errMessage(err), action)
	}

	data, err := userAction(t, reg, &root, "admin_clear_wishlist", amy.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"message": "Wishlist cleared successfully", "items_deleted": float64(2)}, asMap(t, data))

	data, err = userAction(t, reg, &root, "admin_clear_collection", amy.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"message": "Collection cleared successfully", "items_deleted": float64(2)}, asMap(t, data))

	n, err := db.Collection("copies").CountDocuments(ctx, bson.M{"owner_id": bob.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "other owners keep their copies")
	n, err = db.Collection("wishlist").CountDocuments(ctx, bson.M{"user_id": bob.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "other users keep their wishlist")

	// Clearing again is a no-op, not an error.
	data, err = userAction(t, reg, &root, "admin_clear_collection", amy.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, float64(0), asMap(t, data)["items_deleted"])

	events, err := store.Query(ctx, audit.QueryFilter{ActorID: &root.ID, Category: audit.CategoryGroups})
	require.NoError(t, err)
	types := map[string]int{}
	for _, e := range events {
		types[e.EventType]++
		assert.Equal(t, amy.ID, *e.UserID)
	}
	assert.Equal(t, 1, types[audit.EventWishlistCleared])
	assert.Equal(t, 2, types[audit.EventCollectionCleared])
}

func errMessage(err error) string {
	ae, ok := apperr.As(err)
	if !ok {
		return ""
	}
	return ae.Message
}

func asMap(t *testing.T, v any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}
