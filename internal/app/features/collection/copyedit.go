// internal/app/features/collection/copyedit.go
package collection

import (
	"context"
	"errors"

	"github.com/dalemusser/cineshelf/internal/app/policy/accesspolicy"
	copystore "github.com/dalemusser/cineshelf/internal/app/store/copies"
	"github.com/dalemusser/cineshelf/internal/app/system/apperr"
	"github.com/dalemusser/cineshelf/internal/app/system/auth"
	"github.com/dalemusser/cineshelf/internal/app/system/rpc"
	"github.com/dalemusser/cineshelf/internal/app/system/sanitize"
	"github.com/dalemusser/cineshelf/internal/app/system/timeouts"
	"github.com/dalemusser/cineshelf/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type addCopyInput struct {
	TMDBID    rpc.String `json:"tmdb_id"`
	MediaType string     `json:"media_type"`
	Format    string     `json:"format"`
	Edition   string     `json:"edition"`
	Region    string     `json:"region"`
	Condition string     `json:"condition"`
	Notes     string     `json:"notes"`
	Barcode   string     `json:"barcode"`
}

func (h *Handler) addCopy(ctx context.Context, p *auth.Principal, req rpc.Request) (any, error) {
	var in addCopyInput
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	externalID := sanitize.Text(string(in.TMDBID), 20)
	if externalID == "" {
		return nil, apperr.Validation("TMDB ID required")
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	m, err := h.Catalog.EnsureEntry(ctx, externalID, in.MediaType)
	if err != nil {
		return nil, err
	}

	c := models.Copy{
		OwnerID:   p.ID,
		MovieID:   m.ID,
		Format:    orDefault(sanitize.Text(in.Format, 50), models.DefaultFormat),
		Edition:   sanitize.Text(in.Edition, 100),
		Region:    sanitize.Text(in.Region, 50),
		Condition: orDefault(sanitize.Text(in.Condition, 50), models.DefaultCondition),
		Notes:     sanitize.Text(in.Notes, 500),
		Barcode:   sanitize.Text(in.Barcode, 50),
	}
	c, err = h.Copies.Create(ctx, c)
	if err != nil {
		h.Log.Error("create copy failed", zap.String("movie_id", m.ID.Hex()), zap.Error(err))
		return nil, err
	}
	return map[string]any{"copy_id": c.ID}, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

type updateCopyInput struct {
	CopyID    string `json:"copy_id"`
	Format    string `json:"format"`
	Edition   string `json:"edition"`
	Region    string `json:"region"`
	Condition string `json:"condition"`
	Notes     string `json:"notes"`
}

func (h *Handler) updateCopy(ctx context.Context, p *auth.Principal, req rpc.Request) (any, error) {
	var in updateCopyInput
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	format := sanitize.Text(in.Format, 50)
	if in.CopyID == "" || format == "" {
		return nil, apperr.Validation("Copy ID and format required")
	}
	copyID, err := primitive.ObjectIDFromHex(in.CopyID)
	if err != nil {
		return nil, apperr.Validation("Invalid Copy ID")
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	c, err := h.Copies.GetByID(ctx, copyID)
	if errors.Is(err, copystore.ErrNotFound) {
		return nil, apperr.NotFound("Copy not found")
	}
	if err != nil {
		return nil, err
	}
	if !accesspolicy.CanEditCopy(p, c) {
		return nil, apperr.Authorization("Not authorized to edit this copy")
	}

	err = h.Copies.Update(ctx, copyID, p.ID, copystore.Attributes{
		Format:    format,
		Edition:   sanitize.Text(in.Edition, 100),
		Region:    sanitize.Text(in.Region, 20),
		Condition: sanitize.Text(in.Condition, 20),
		Notes:     sanitize.Text(in.Notes, 500),
	})
	if errors.Is(err, copystore.ErrNotFound) {
		return nil, apperr.NotFound("Copy not found")
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{"copy_id": copyID}, nil
}

type deleteCopyInput struct {
	CopyID string `json:"copy_id"`
}

// deleteCopy removes the copy if the caller owns it. Deleting someone
// else's copy, or one that is already gone, reports success without
// touching anything.
func (h *Handler) deleteCopy(ctx context.Context, p *auth.Principal, req rpc.Request) (any, error) {
	var in deleteCopyInput
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	copyID, err := rpc.ObjectID(in.CopyID, "Copy ID")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	n, err := h.Copies.DeleteOwned(ctx, copyID, p.ID)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		h.Log.Debug("copy deleted", zap.String("copy_id", copyID.Hex()), zap.String("owner_id", p.ID.Hex()))
	}
	return map[string]any{"deleted": copyID}, nil
}
