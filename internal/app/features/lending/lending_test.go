package lending_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/cineshelf/internal/app/features/lending"
	auditstore "github.com/dalemusser/cineshelf/internal/app/store/audit"
	"github.com/dalemusser/cineshelf/internal/app/system/apperr"
	"github.com/dalemusser/cineshelf/internal/app/system/auditlog"
	"github.com/dalemusser/cineshelf/internal/app/system/auth"
	"github.com/dalemusser/cineshelf/internal/app/system/rpc"
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
	audit := auditlog.New(auditstore.New(db), zap.NewNop(), auditlog.Config{Groups: "all", Lending: "all", Catalog: "all"})
	return db, testutil.NewFixtures(t, db), rpc.NewRegistry(lending.NewHandler(db, audit, zap.NewNop()))
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

func TestParseDueDate(t *testing.T) {
	tests := []struct {
		in      string
		wantNil bool
		wantErr bool
	}{
		{"", true, false},
		{"2025-01-01", false, false},
		{"01/01/2025", true, true},
		{"2025-13-01", true, true},
	}
	for _, tt := range tests {
		got, err := lending.ParseDueDate(tt.in)
		if tt.wantErr {
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.wantNil, got == nil, tt.in)
	}
}

func TestSortByDue(t *testing.T) {
	d := func(s string) *time.Time {
		v, _ := time.Parse("2006-01-02", s)
		return &v
	}
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := []lending.Row{
		{Title: "undated-old", BorrowedAt: base},
		{Title: "late", DueDate: d("2025-03-01"), BorrowedAt: base},
		{Title: "undated-new", BorrowedAt: base.Add(time.Hour)},
		{Title: "soon-old", DueDate: d("2025-01-01"), BorrowedAt: base},
		{Title: "soon-new", DueDate: d("2025-01-01"), BorrowedAt: base.Add(time.Hour)},
	}
	lending.SortByDue(rows)

	want := []string{"soon-new", "soon-old", "late", "undated-new", "undated-old"}
	for i, w := range want {
		assert.Equal(t, w, rows[i].Title, "position %d", i)
	}
}

// Borrow, double-borrow conflict, return, borrow again.
func TestBorrowCycle(t *testing.T) {
	db, fx, reg := newRegistry(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fx.CreateUser(ctx, "amy")
	b := fx.CreateUser(ctx, "bob")
	c1 := fx.CreateCopy(ctx, b, fx.CreateMovie(ctx, "603", "The Matrix", 1999))

	var first map[string]string
	require.NoError(t, call(t, reg, testutil.Principal(a), "borrow_copy", map[string]any{"copy_id": c1.ID.Hex(), "due_date": "2025-01-01"}, &first))

	err := call(t, reg, testutil.Principal(a), "borrow_copy", map[string]any{"copy_id": c1.ID.Hex()}, nil)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindConflict, ae.Kind)
	assert.Equal(t, "Copy already borrowed", ae.Message)

	var returned map[string]string
	require.NoError(t, call(t, reg, testutil.Principal(b), "return_copy", map[string]any{"borrow_id": first["borrow_id"]}, &returned))
	assert.Equal(t, first["borrow_id"], returned["returned"])

	var second map[string]string
	require.NoError(t, call(t, reg, testutil.Principal(a), "borrow_copy", map[string]any{"copy_id": c1.ID.Hex()}, &second))
	assert.NotEqual(t, first["borrow_id"], second["borrow_id"])

	n, err := db.Collection("borrows").CountDocuments(ctx, bson.M{"copy_id": c1.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	firstID, _ := primitive.ObjectIDFromHex(first["borrow_id"])
	var doc bson.M
	require.NoError(t, db.Collection("borrows").FindOne(ctx, bson.M{"_id": firstID}).Decode(&doc))
	assert.NotNil(t, doc["returned_at"])
	_, active := doc["active"]
	assert.False(t, active)
	due := doc["due_date"].(primitive.DateTime).Time().UTC()
	assert.Equal(t, "2025-01-01", due.Format("2006-01-02"))

	events, err := auditstore.New(db).Query(ctx, auditstore.QueryFilter{Category: auditstore.CategoryLending, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestBorrowBoundaries(t *testing.T) {
	_, fx, reg := newRegistry(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "owner")
	other := fx.CreateUser(ctx, "other")
	third := fx.CreateUser(ctx, "third")
	c := fx.CreateCopy(ctx, owner, fx.CreateMovie(ctx, "603", "The Matrix", 1999))

	tests := []struct {
		name    string
		p       *auth.Principal
		body    map[string]any
		kind    apperr.Kind
		message string
	}{
		{"missing id", testutil.Principal(other), map[string]any{}, apperr.KindValidation, "Copy ID required"},
		{"unknown copy", testutil.Principal(other), map[string]any{"copy_id": primitive.NewObjectID().Hex()}, apperr.KindNotFound, "Copy not found"},
		{"own copy", testutil.Principal(owner), map[string]any{"copy_id": c.ID.Hex()}, apperr.KindValidation, "Cannot borrow your own copy"},
		{"bad due date", testutil.Principal(other), map[string]any{"copy_id": c.ID.Hex(), "due_date": "soon"}, apperr.KindValidation, "Invalid due date (expected YYYY-MM-DD)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := call(t, reg, tt.p, "borrow_copy", tt.body, nil)
			ae, ok := apperr.As(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.kind, ae.Kind)
			assert.Equal(t, tt.message, ae.Message)
		})
	}

	var opened map[string]string
	require.NoError(t, call(t, reg, testutil.Principal(other), "borrow_copy", map[string]any{"copy_id": c.ID.Hex()}, &opened))

	// With an active borrow, the owner sees the conflict before the self check.
	err := call(t, reg, testutil.Principal(owner), "borrow_copy", map[string]any{"copy_id": c.ID.Hex()}, nil)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	// Only the two parties may return it.
	err = call(t, reg, testutil.Principal(third), "return_copy", map[string]any{"borrow_id": opened["borrow_id"]}, nil)
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))

	require.NoError(t, call(t, reg, testutil.Principal(other), "return_copy", map[string]any{"borrow_id": opened["borrow_id"]}, nil))

	err = call(t, reg, testutil.Principal(other), "return_copy", map[string]any{"borrow_id": opened["borrow_id"]}, nil)
	ae, _ := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, apperr.KindNotFound, ae.Kind)
	assert.Equal(t, "Active borrow not found", ae.Message)
}

func TestBorrow_ConcurrentSingleWinner(t *testing.T) {
	db, fx, reg := newRegistry(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "owner")
	c := fx.CreateCopy(ctx, owner, fx.CreateMovie(ctx, "603", "The Matrix", 1999))
	borrowers := make([]*auth.Principal, 6)
	for i := range borrowers {
		borrowers[i] = testutil.Principal(fx.CreateUser(ctx, "b"+string(rune('a'+i))))
	}

	var wg sync.WaitGroup
	errs := make([]error, len(borrowers))
	for i, p := range borrowers {
		wg.Add(1)
		go func(i int, p *auth.Principal) {
			defer wg.Done()
			errs[i] = call(t, reg, p, "borrow_copy", map[string]any{"copy_id": c.ID.Hex()}, nil)
		}(i, p)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	}
	assert.Equal(t, 1, wins)

	n, err := db.Collection("borrows").CountDocuments(ctx, bson.M{"copy_id": c.ID, "active": true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestListBorrowedAndLent(t *testing.T) {
	_, fx, reg := newRegistry(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fx.CreateUser(ctx, "amy")
	b := fx.CreateUser(ctx, "bob")
	c := fx.CreateCopy(ctx, b, fx.CreateMovie(ctx, "603", "The Matrix", 1999))
	fx.CreateBorrow(ctx, c, a)

	var borrowed []lending.Row
	require.NoError(t, call(t, reg, testutil.Principal(a), "list_borrowed", map[string]any{}, &borrowed))
	require.Len(t, borrowed, 1)
	assert.Equal(t, "bob", borrowed[0].OwnerName)
	assert.Equal(t, "The Matrix", borrowed[0].Title)
	assert.Equal(t, c.ID, borrowed[0].CopyID)

	var lent []lending.Row
	require.NoError(t, call(t, reg, testutil.Principal(b), "list_lent", map[string]any{}, &lent))
	require.Len(t, lent, 1)
	assert.Equal(t, "amy", lent[0].BorrowerName)

	var none []lending.Row
	require.NoError(t, call(t, reg, testutil.Principal(a), "list_lent", map[string]any{}, &none))
	assert.Empty(t, none)
}
