package profile_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/dalemusser/cineshelf/internal/app/features/profile"
	"github.com/dalemusser/cineshelf/internal/app/system/apperr"
	"github.com/dalemusser/cineshelf/internal/app/system/auth"
	"github.com/dalemusser/cineshelf/internal/app/system/rpc"
	"github.com/dalemusser/cineshelf/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dispatch(t *testing.T, reg *rpc.Registry, p *auth.Principal, action, body string) (map[string]any, error) {
	t.Helper()
	data, err := reg.Dispatch(context.Background(), p, rpc.Request{Action: action, Body: json.RawMessage(body)})
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out, nil
}

func TestProfile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	reg := rpc.NewRegistry(profile.NewHandler(db, zap.NewNop()))
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := testutil.Principal(fx.CreateUser(ctx, "xavier"))

	got, err := dispatch(t, reg, p, "get_profile", `{}`)
	require.NoError(t, err)
	assert.Equal(t, "xavier", got["username"])
	assert.Equal(t, "xavier", got["display_name"])
	assert.Equal(t, "xavier@example.com", got["email"])

	_, err = dispatch(t, reg, p, "update_profile", `{"display_name":"  "}`)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "Display name cannot be empty", ae.Message)

	_, err = dispatch(t, reg, p, "update_profile", `{"display_name":"<b>Xav</b>"}`)
	require.NoError(t, err)
	got, err = dispatch(t, reg, p, "get_profile", `{}`)
	require.NoError(t, err)
	assert.Equal(t, "Xav", got["display_name"])
}

func TestSettings(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	reg := rpc.NewRegistry(profile.NewHandler(db, zap.NewNop()))
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := testutil.Principal(fx.CreateUser(ctx, "xavier"))

	got, err := dispatch(t, reg, p, "get_user_settings", `{}`)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = dispatch(t, reg, p, "save_user_settings", `{"settings":{"theme":"dark","view":"grid","columns":{"year":true}}}`)
	require.NoError(t, err)
	got, err = dispatch(t, reg, p, "get_user_settings", `{}`)
	require.NoError(t, err)
	assert.Equal(t, "dark", got["theme"])
	assert.Equal(t, "grid", got["view"])
	assert.Equal(t, map[string]any{"year": true}, got["columns"])

	_, err = dispatch(t, reg, p, "save_user_settings", `{"settings":[1,2]}`)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
