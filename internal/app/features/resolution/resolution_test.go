package resolution_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/dalemusser/cineshelf/internal/app/features/catalog"
	"github.com/dalemusser/cineshelf/internal/app/features/resolution"
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

type env struct {
	db  *mongo.Database
	fx  *testutil.Fixtures
	src *testutil.FakeMetadata
	reg *rpc.Registry
}

func setup(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	src := testutil.NewFakeMetadata(testutil.Matrix())
	cat := catalog.NewHandler(db, src, nil, zap.NewNop())
	h := resolution.NewHandler(db, cat, nil, zap.NewNop())
	return env{db: db, fx: testutil.NewFixtures(t, db), src: src, reg: rpc.NewRegistry(h)}
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

func copyMovieIDs(t *testing.T, db *mongo.Database, owner primitive.ObjectID) []primitive.ObjectID {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	cur, err := db.Collection("copies").Find(ctx, bson.M{"owner_id": owner})
	require.NoError(t, err)
	var docs []models.Copy
	require.NoError(t, cur.All(ctx, &docs))
	out := make([]primitive.ObjectID, 0, len(docs))
	for _, c := range docs {
		out = append(out, c.MovieID)
	}
	return out
}

// With no canonical entry, the placeholder becomes it.
func TestResolve_InPlace(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	x := e.fx.CreateUser(ctx, "xavier")
	placeholder := e.fx.CreateUnresolved(ctx, "matrix dvd")
	e.fx.CreateCopies(ctx, x, placeholder, 2)

	var out map[string]any
	require.NoError(t, call(t, e.reg, testutil.Principal(x), "resolve_movie", map[string]any{
		"movie_id":   placeholder.WireKey(),
		"tmdb_id":    603,
		"media_type": "movie",
	}, &out))
	assert.Equal(t, placeholder.ID.Hex(), out["movie_id"])
	assert.Equal(t, "The Matrix", out["title"])

	var m models.Movie
	require.NoError(t, e.db.Collection("movies").FindOne(ctx, bson.M{"_id": placeholder.ID}).Decode(&m))
	assert.True(t, m.IsResolved())
	assert.Equal(t, "603", m.WireKey())
	assert.Equal(t, "The Matrix", m.Title)
	assert.Empty(t, m.PlaceholderID)

	for _, id := range copyMovieIDs(t, e.db, x.ID) {
		assert.Equal(t, placeholder.ID, id)
	}
	n, err := e.db.Collection("movies").CountDocuments(ctx, bson.M{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

// When the canonical entry exists, merge needs confirmation.
func TestResolve_MergeNeedsConfirmation(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	x := e.fx.CreateUser(ctx, "xavier")
	canonical := e.fx.CreateMovie(ctx, "603", "The Matrix", 1999)
	for _, name := range []string{"u1", "u2", "u3", "u4", "u5"} {
		e.fx.CreateCopy(ctx, e.fx.CreateUser(ctx, name), canonical)
	}
	placeholder := e.fx.CreateUnresolved(ctx, "matrix dvd")
	e.fx.CreateCopies(ctx, x, placeholder, 2)

	body := map[string]any{"movie_id": placeholder.ID.Hex(), "tmdb_id": "603"}
	err := call(t, e.reg, testutil.Principal(x), "resolve_movie", body, nil)
	ae, ok := apperr.As(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, apperr.KindConflict, ae.Kind)
	assert.Equal(t, "This movie already exists in your collection", ae.Message)

	payload, err := json.Marshal(ae.Data)
	require.NoError(t, err)
	var conflict struct {
		AlreadyExists bool `json:"already_exists"`
		Existing      struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"existing_movie"`
		Unresolved string `json:"unresolved_movie_id"`
	}
	require.NoError(t, json.Unmarshal(payload, &conflict))
	assert.True(t, conflict.AlreadyExists)
	assert.Equal(t, canonical.ID.Hex(), conflict.Existing.ID)
	assert.Equal(t, "The Matrix", conflict.Existing.Title)
	assert.Equal(t, placeholder.ID.Hex(), conflict.Unresolved)

	// Nothing moved.
	for _, id := range copyMovieIDs(t, e.db, x.ID) {
		assert.Equal(t, placeholder.ID, id)
	}
	assert.Zero(t, e.src.Fetches())

	body["confirm_merge"] = true
	var merged resolution.MergeResult
	require.NoError(t, call(t, e.reg, testutil.Principal(x), "resolve_movie", body, &merged))
	assert.True(t, merged.Merged)
	assert.EqualValues(t, 2, merged.CopiesMoved)
	assert.Equal(t, canonical.ID, merged.MovieID)

	for _, id := range copyMovieIDs(t, e.db, x.ID) {
		assert.Equal(t, canonical.ID, id)
	}
	n, err := e.db.Collection("copies").CountDocuments(ctx, bson.M{"movie_id": canonical.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)
	n, err = e.db.Collection("movies").CountDocuments(ctx, bson.M{"_id": placeholder.ID})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestResolve_MergeKeepsSharedPlaceholder(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	x := e.fx.CreateUser(ctx, "xavier")
	y := e.fx.CreateUser(ctx, "yolanda")
	canonical := e.fx.CreateMovie(ctx, "603", "The Matrix", 1999)
	placeholder := e.fx.CreateUnresolved(ctx, "matrix dvd")
	e.fx.CreateCopy(ctx, x, placeholder)
	e.fx.CreateCopy(ctx, y, placeholder)

	var merged resolution.MergeResult
	require.NoError(t, call(t, e.reg, testutil.Principal(x), "resolve_movie", map[string]any{
		"movie_id": placeholder.ID.Hex(), "tmdb_id": "603", "confirm_merge": "1",
	}, &merged))
	assert.EqualValues(t, 1, merged.CopiesMoved)
	assert.Equal(t, canonical.ID, merged.MovieID)

	n, err := e.db.Collection("movies").CountDocuments(ctx, bson.M{"_id": placeholder.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "placeholder still referenced by another user")
}

func TestResolve_Preconditions(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	x := e.fx.CreateUser(ctx, "xavier")
	y := e.fx.CreateUser(ctx, "yolanda")
	placeholder := e.fx.CreateUnresolved(ctx, "mystery")
	e.fx.CreateCopy(ctx, x, placeholder)
	resolved := e.fx.CreateMovie(ctx, "550", "Fight Club", 1999)
	e.fx.CreateCopy(ctx, x, resolved)

	tests := []struct {
		name    string
		p       *auth.Principal
		body    map[string]any
		kind    apperr.Kind
		message string
	}{
		{"missing ids", testutil.Principal(x), map[string]any{"movie_id": placeholder.ID.Hex()}, apperr.KindValidation, "Movie ID and TMDB ID required"},
		{"unknown entry", testutil.Principal(x), map[string]any{"movie_id": primitive.NewObjectID().Hex(), "tmdb_id": "603"}, apperr.KindNotFound, "Movie not found"},
		{"unknown wire key", testutil.Principal(x), map[string]any{"movie_id": "unresolved_nope", "tmdb_id": "603"}, apperr.KindNotFound, "Movie not found"},
		{"already resolved", testutil.Principal(x), map[string]any{"movie_id": resolved.ID.Hex(), "tmdb_id": "603"}, apperr.KindValidation, "Movie is not unresolved"},
		{"not an owner", testutil.Principal(y), map[string]any{"movie_id": placeholder.ID.Hex(), "tmdb_id": "603"}, apperr.KindAuthorization, "Not authorized"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := call(t, e.reg, tt.p, "resolve_movie", tt.body, nil)
			ae, ok := apperr.As(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.kind, ae.Kind)
			assert.Equal(t, tt.message, ae.Message)
		})
	}
}

func TestResolve_FetchFailure(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	x := e.fx.CreateUser(ctx, "xavier")
	placeholder := e.fx.CreateUnresolved(ctx, "mystery")
	e.fx.CreateCopy(ctx, x, placeholder)
	e.src.SetFailing(true)

	err := call(t, e.reg, testutil.Principal(x), "resolve_movie", map[string]any{
		"movie_id": placeholder.ID.Hex(), "tmdb_id": "603",
	}, nil)
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))

	var m models.Movie
	require.NoError(t, e.db.Collection("movies").FindOne(ctx, bson.M{"_id": placeholder.ID}).Decode(&m))
	assert.False(t, m.IsResolved())
}

func TestUnresolved_AddAndList(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	x := e.fx.CreateUser(ctx, "xavier")
	p := testutil.Principal(x)

	err := call(t, e.reg, p, "add_unresolved", map[string]any{"title": "  "}, nil)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	var added map[string]string
	require.NoError(t, call(t, e.reg, p, "add_unresolved", map[string]any{"title": "Home Video 1987"}, &added))
	assert.Contains(t, added["tmdb_id"], models.UnresolvedPrefix)

	copyID, err := primitive.ObjectIDFromHex(added["copy_id"])
	require.NoError(t, err)
	var c models.Copy
	require.NoError(t, e.db.Collection("copies").FindOne(ctx, bson.M{"_id": copyID}).Decode(&c))
	assert.Equal(t, models.DefaultFormat, c.Format)
	assert.Equal(t, models.DefaultCondition, c.Condition)

	// A resolved entry the user owns is not listed.
	e.fx.CreateCopy(ctx, x, e.fx.CreateMovie(ctx, "603", "The Matrix", 1999))

	var rows []resolution.UnresolvedRow
	require.NoError(t, call(t, e.reg, p, "list_unresolved", map[string]any{}, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Home Video 1987", rows[0].Title)
	assert.Equal(t, added["tmdb_id"], rows[0].TMDBID)
	assert.Equal(t, 1, rows[0].CopyCount)
}
