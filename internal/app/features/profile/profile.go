// internal/app/features/profile/profile.go
package profile

import (
	"context"
	"encoding/json"
	"errors"

	userstore "github.com/dalemusser/cineshelf/internal/app/store/users"
	"github.com/dalemusser/cineshelf/internal/app/system/apperr"
	"github.com/dalemusser/cineshelf/internal/app/system/auth"
	"github.com/dalemusser/cineshelf/internal/app/system/rpc"
	"github.com/dalemusser/cineshelf/internal/app/system/sanitize"
	"github.com/dalemusser/cineshelf/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// maxSettingsBytes caps the encoded settings document.
const maxSettingsBytes = 64 << 10

func (h *Handler) getProfile(ctx context.Context, p *auth.Principal, _ rpc.Request) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, p.ID)
	if errors.Is(err, userstore.ErrNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":            u.ID,
		"username":      u.Username,
		"email":         u.EmailAddress(),
		"display_name":  u.Name(),
		"is_admin":      u.IsAdmin,
		"created_at":    u.CreatedAt,
		"last_login_at": u.LastLoginAt,
	}, nil
}

type profileInput struct {
	DisplayName string `json:"display_name"`
}

func (h *Handler) updateProfile(ctx context.Context, p *auth.Principal, req rpc.Request) (any, error) {
	var in profileInput
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	name := sanitize.Text(in.DisplayName, 100)
	if name == "" {
		return nil, apperr.Validation("Display name cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	if err := h.Users.UpdateDisplayName(ctx, p.ID, name); err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		h.Log.Error("update display name failed", zap.String("user_id", p.ID.Hex()), zap.Error(err))
		return nil, err
	}
	return map[string]any{
		"display_name": name,
		"message":      "Display name updated successfully",
	}, nil
}

// getSettings returns the opaque client settings, {} when none are saved.
func (h *Handler) getSettings(ctx context.Context, p *auth.Principal, _ rpc.Request) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, p.ID)
	if errors.Is(err, userstore.ErrNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(u.Settings))
	for k, v := range u.Settings {
		out[k] = plain(v)
	}
	return out, nil
}

// plain converts nested BSON documents and arrays decoded into an untyped
// map back to JSON-friendly maps and slices.
func plain(v any) any {
	switch t := v.(type) {
	case primitive.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = plain(e.Value)
		}
		return m
	case primitive.M:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = plain(e)
		}
		return m
	case primitive.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	}
	return v
}

type settingsInput struct {
	Settings json.RawMessage `json:"settings"`
}

// saveSettings replaces the settings document and echoes it back.
func (h *Handler) saveSettings(ctx context.Context, p *auth.Principal, req rpc.Request) (any, error) {
	var in settingsInput
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	if len(in.Settings) > maxSettingsBytes {
		return nil, apperr.Validation("Settings too large")
	}
	settings := map[string]any{}
	if len(in.Settings) > 0 && string(in.Settings) != "null" {
		if err := json.Unmarshal(in.Settings, &settings); err != nil {
			return nil, apperr.Validation("Settings must be an object")
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	if err := h.Users.SaveSettings(ctx, p.ID, settings); err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, err
	}
	return settings, nil
}
