package groups_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dalemusser/cineshelf/internal/app/features/groups"
	"github.com/dalemusser/cineshelf/internal/app/features/shared/copyrows"
	"github.com/dalemusser/cineshelf/internal/app/system/apperr"
	"github.com/dalemusser/cineshelf/internal/app/system/auth"
	"github.com/dalemusser/cineshelf/internal/app/system/rpc"
	"github.com/dalemusser/cineshelf/internal/domain/models"
	"github.com/dalemusser/cineshelf/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newRegistry(t *testing.T) (*mongo.Database, *testutil.Fixtures, *rpc.Registry) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	h := groups.NewHandler(db, nil, 0, zap.NewNop())
	return db, testutil.NewFixtures(t, db), rpc.NewRegistry(h)
}

func call(t *testing.T, reg *rpc.Registry, p *auth.Principal, action string, body map[string]any, out any) error {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	data, err := reg.Dispatch(context.Background(), p, rpc.Request{Action: action, Body: raw})
	if err != nil {
		return err
	}
	if out != nil {
		b, err := json.Marshal(data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(b, out))
	}
	return nil
}

func requireKind(t *testing.T, err error, kind apperr.Kind, message string) {
	t.Helper()
	ae, ok := apperr.As(err)
	require.True(t, ok, "expected apperr, got %v", err)
	assert.Equal(t, kind, ae.Kind)
	if message != "" {
		assert.Equal(t, message, ae.Message)
	}
}

// Create, invite twice (same token), accept, list members.
func TestGroupInviteFlow(t *testing.T) {
	_, fx, reg := newRegistry(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	x := testutil.Principal(fx.CreateUser(ctx, "xavier"))
	y := testutil.Principal(fx.CreateUser(ctx, "yolanda"))

	var created map[string]string
	require.NoError(t, call(t, reg, x, "create_group", map[string]any{"name": "Family"}, &created))
	assert.Equal(t, "Family", created["name"])
	groupID := created["group_id"]

	var first, second map[string]any
	require.NoError(t, call(t, reg, x, "create_group_invite", map[string]any{"group_id": groupID}, &first))
	require.NoError(t, call(t, reg, x, "create_group_invite", map[string]any{"group_id": groupID}, &second))
	token := first["invite_token"].(string)
	assert.Len(t, token, 32)
	assert.Equal(t, token, second["invite_token"])
	assert.Equal(t, true, second["existing"])
	assert.Equal(t, "Using existing group invite link", second["message"])

	var joined map[string]any
	require.NoError(t, call(t, reg, y, "accept_group_invite", map[string]any{"invite_token": token}, &joined))
	assert.Equal(t, groupID, joined["group_id"])
	assert.Equal(t, "Family", joined["group_name"])
	assert.Nil(t, joined["already_member"])

	var members []groups.Member
	require.NoError(t, call(t, reg, x, "list_group_members", map[string]any{"group_id": groupID}, &members))
	require.Len(t, members, 2)
	assert.Equal(t, "xavier", members[0].Username)
	assert.Equal(t, models.RoleAdmin, members[0].Role)
	assert.Equal(t, "yolanda", members[1].Username)
	assert.Equal(t, models.RoleMember, members[1].Role)

	// Accepting again changes nothing.
	var again map[string]any
	require.NoError(t, call(t, reg, y, "accept_group_invite", map[string]any{"invite_token": token}, &again))
	assert.Equal(t, true, again["already_member"])
	require.NoError(t, call(t, reg, x, "list_group_members", map[string]any{"group_id": groupID}, &members))
	assert.Len(t, members, 2)

	var mine []groups.Summary
	require.NoError(t, call(t, reg, y, "list_groups", map[string]any{}, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, models.RoleMember, mine[0].Role)
	assert.Equal(t, 2, mine[0].MemberCount)
	assert.Equal(t, "xavier", mine[0].CreatorName)
}

func TestCreateGroup_Validation(t *testing.T) {
	_, fx, reg := newRegistry(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := testutil.Principal(fx.CreateUser(ctx, "xavier"))
	err := call(t, reg, p, "create_group", map[string]any{"name": "   "}, nil)
	requireKind(t, err, apperr.KindValidation, "Group name required")
}

func TestAcceptInvite_Failures(t *testing.T) {
	db, fx, reg := newRegistry(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := fx.CreateUser(ctx, "admin")
	joiner := fx.CreateUser(ctx, "joiner")
	g := fx.CreateGroup(ctx, "Film Club", admin)

	expired := fx.CreateInvite(ctx, g, admin, time.Now().Add(-time.Hour))

	email := "someone-else@example.com"
	bound := models.GroupInvite{
		ID:           primitive.NewObjectID(),
		Token:        "bound" + primitive.NewObjectID().Hex(),
		GroupID:      g.ID,
		InvitedBy:    admin.ID,
		InvitedEmail: &email,
		ExpiresAt:    time.Now().Add(time.Hour).UTC(),
		CreatedAt:    time.Now().UTC(),
	}
	_, err := db.Collection("group_invites").InsertOne(ctx, bound)
	require.NoError(t, err)

	gone := fx.CreateGroup(ctx, "Gone", admin)
	orphan := fx.CreateInvite(ctx, gone, admin, time.Now().Add(time.Hour))
	require.NoError(t, call(t, reg, testutil.Principal(admin), "delete_group", map[string]any{"group_id": gone.ID.Hex()}, nil))

	tests := []struct {
		name    string
		token   string
		kind    apperr.Kind
		message string
	}{
		{"missing", "", apperr.KindValidation, "Invite token required"},
		{"unknown", "nope", apperr.KindNotFound, "Invalid invite link"},
		{"expired", expired.Token, apperr.KindExpired, "This invite link has expired"},
		{"other email", bound.Token, apperr.KindAuthorization, ""},
		{"deleted group", orphan.Token, apperr.KindNotFound, "Group not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := call(t, reg, testutil.Principal(joiner), "accept_group_invite", map[string]any{"invite_token": tt.token}, nil)
			requireKind(t, err, tt.kind, tt.message)
		})
	}

	n, err := db.Collection("group_memberships").CountDocuments(ctx, bson.M{"user_id": joiner.ID})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAcceptInvite_EmailBoundMatch(t *testing.T) {
	db, fx, reg := newRegistry(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := fx.CreateUser(ctx, "admin")
	joiner := fx.CreateUser(ctx, "joiner")
	g := fx.CreateGroup(ctx, "Film Club", admin)

	var inv map[string]any
	require.NoError(t, call(t, reg, testutil.Principal(admin), "create_group_invite",
		map[string]any{"group_id": g.ID.Hex(), "email": "JOINER@example.com"}, &inv))

	require.NoError(t, call(t, reg, testutil.Principal(joiner), "accept_group_invite",
		map[string]any{"invite_token": inv["invite_token"]}, nil))

	var doc models.GroupInvite
	require.NoError(t, db.Collection("group_invites").FindOne(ctx, bson.M{"token": inv["invite_token"]}).Decode(&doc))
	require.NotNil(t, doc.AcceptedBy)
	assert.Equal(t, joiner.ID, *doc.AcceptedBy)
}

func TestInvites_AdminOnly(t *testing.T) {
	_, fx, reg := newRegistry(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := fx.CreateUser(ctx, "admin")
	member := fx.CreateUser(ctx, "member")
	g := fx.CreateGroup(ctx, "Film Club", admin)
	fx.AddMember(ctx, g, member, models.RoleMember)
	inv := fx.CreateInvite(ctx, g, admin, time.Now().Add(time.Hour))

	err := call(t, reg, testutil.Principal(member), "create_group_invite", map[string]any{"group_id": g.ID.Hex()}, nil)
	requireKind(t, err, apperr.KindAuthorization, "Only group admins can create invites")
	err = call(t, reg, testutil.Principal(member), "list_group_invites", map[string]any{"group_id": g.ID.Hex()}, nil)
	requireKind(t, err, apperr.KindAuthorization, "Only group admins can view invites")
	err = call(t, reg, testutil.Principal(member), "cancel_group_invite", map[string]any{"invite_id": inv.ID.Hex()}, nil)
	requireKind(t, err, apperr.KindAuthorization, "Not authorized")

	var rows []groups.InviteRow
	require.NoError(t, call(t, reg, testutil.Principal(admin), "list_group_invites", map[string]any{"group_id": g.ID.Hex()}, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "admin", rows[0].InvitedByUsername)

	require.NoError(t, call(t, reg, testutil.Principal(admin), "cancel_group_invite", map[string]any{"invite_id": inv.ID.Hex()}, nil))
	require.NoError(t, call(t, reg, testutil.Principal(admin), "list_group_invites", map[string]any{"group_id": g.ID.Hex()}, &rows))
	assert.Empty(t, rows)
}

func TestUpdateAndDelete_Authorization(t *testing.T) {
	db, fx, reg := newRegistry(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := fx.CreateUser(ctx, "admin")
	member := fx.CreateUser(ctx, "member")
	site := fx.CreateAdmin(ctx, "root")
	g := fx.CreateGroup(ctx, "Film Club", admin)
	fx.AddMember(ctx, g, member, models.RoleMember)

	update := map[string]any{"group_id": g.ID.Hex(), "name": "Cinema Club"}

	// Site admins get no bypass for updates.
	err := call(t, reg, testutil.Principal(site), "update_group", update, nil)
	requireKind(t, err, apperr.KindAuthorization, "Only group admins can update group details")
	err = call(t, reg, testutil.Principal(member), "update_group", update, nil)
	requireKind(t, err, apperr.KindAuthorization, "")

	require.NoError(t, call(t, reg, testutil.Principal(admin), "update_group", update, nil))
	var stored models.Group
	require.NoError(t, db.Collection("groups").FindOne(ctx, bson.M{"_id": g.ID}).Decode(&stored))
	assert.Equal(t, "Cinema Club", stored.Name)

	err = call(t, reg, testutil.Principal(member), "delete_group", map[string]any{"group_id": g.ID.Hex()}, nil)
	requireKind(t, err, apperr.KindAuthorization, "Only group admins can delete groups")

	inv := fx.CreateInvite(ctx, g, admin, time.Now().Add(time.Hour))

	// They do for deletes.
	require.NoError(t, call(t, reg, testutil.Principal(site), "delete_group", map[string]any{"group_id": g.ID.Hex()}, nil))

	n, err := db.Collection("group_memberships").CountDocuments(ctx, bson.M{"group_id": g.ID})
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = db.Collection("group_invites").CountDocuments(ctx, bson.M{"_id": inv.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "invites are not cascaded")
}

func TestRemoveMember(t *testing.T) {
	_, fx, reg := newRegistry(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := fx.CreateUser(ctx, "admin")
	a := fx.CreateUser(ctx, "amy")
	b := fx.CreateUser(ctx, "bob")
	outsider := fx.CreateUser(ctx, "outsider")
	g := fx.CreateGroup(ctx, "Film Club", admin)
	fx.AddMember(ctx, g, a, models.RoleMember)
	fx.AddMember(ctx, g, b, models.RoleMember)

	remove := func(p models.User, target models.User) error {
		return call(t, reg, testutil.Principal(p), "remove_group_member",
			map[string]any{"group_id": g.ID.Hex(), "user_id": target.ID.Hex()}, nil)
	}

	requireKind(t, remove(a, b), apperr.KindAuthorization, "Only admins can remove other members")
	requireKind(t, remove(outsider, b), apperr.KindAuthorization, "Not a member of this group")
	require.NoError(t, remove(a, a))
	require.NoError(t, remove(admin, b))
	// The last admin may leave.
	require.NoError(t, remove(admin, admin))

	err := call(t, reg, testutil.Principal(admin), "list_group_members", map[string]any{"group_id": g.ID.Hex()}, nil)
	requireKind(t, err, apperr.KindAuthorization, "Not a member of this group")
}

func TestAddGroupMember_Deprecated(t *testing.T) {
	_, fx, reg := newRegistry(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := testutil.Principal(fx.CreateUser(ctx, "xavier"))
	err := call(t, reg, p, "add_group_member", map[string]any{"group_id": primitive.NewObjectID().Hex()}, nil)
	requireKind(t, err, apperr.KindValidation, "This endpoint is deprecated. Use invite links instead.")
}

func TestGroupCollections(t *testing.T) {
	_, fx, reg := newRegistry(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fx.CreateUser(ctx, "amy")
	b := fx.CreateUser(ctx, "bob")
	outsider := fx.CreateUser(ctx, "outsider")
	g := fx.CreateGroup(ctx, "Film Club", a)
	fx.AddMember(ctx, g, b, models.RoleMember)

	matrix := fx.CreateMovie(ctx, "603", "The Matrix", 1999)
	alien := fx.CreateMovie(ctx, "348", "Alien", 1979)
	bc := fx.CreateCopy(ctx, b, matrix)
	fx.CreateCopy(ctx, a, matrix)
	fx.CreateCopy(ctx, a, alien)
	fx.CreateCopy(ctx, outsider, alien)
	fx.CreateBorrow(ctx, bc, a)

	var rows []copyrows.Row
	require.NoError(t, call(t, reg, testutil.Principal(b), "list_group_collection", map[string]any{"group_id": g.ID.Hex()}, &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "Alien", rows[0].Title)
	assert.Equal(t, 2, rows[0].CopyCount)
	assert.Equal(t, "amy", rows[1].OwnerName)
	assert.Equal(t, "bob", rows[2].OwnerName)
	require.NotNil(t, rows[2].BorrowerID)
	assert.Equal(t, a.ID, *rows[2].BorrowerID)
	assert.Equal(t, "amy", rows[2].BorrowerName)

	require.NoError(t, call(t, reg, testutil.Principal(a), "list_member_collection",
		map[string]any{"group_id": g.ID.Hex(), "member_user_id": b.ID.Hex()}, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, bc.ID, rows[0].CopyID)

	err := call(t, reg, testutil.Principal(a), "list_member_collection",
		map[string]any{"group_id": g.ID.Hex(), "member_user_id": outsider.ID.Hex()}, nil)
	requireKind(t, err, apperr.KindAuthorization, "Not authorized")

	err = call(t, reg, testutil.Principal(outsider), "list_group_collection", map[string]any{"group_id": g.ID.Hex()}, nil)
	requireKind(t, err, apperr.KindAuthorization, "Not a member of this group")
}
