// internal/app/features/resolution/resolve.go
package resolution

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/cineshelf/internal/app/features/catalog"
	moviestore "github.com/dalemusser/cineshelf/internal/app/store/movies"
	"github.com/dalemusser/cineshelf/internal/app/system/apperr"
	"github.com/dalemusser/cineshelf/internal/app/system/auth"
	"github.com/dalemusser/cineshelf/internal/app/system/rpc"
	"github.com/dalemusser/cineshelf/internal/app/system/sanitize"
	"github.com/dalemusser/cineshelf/internal/app/system/timeouts"
	"github.com/dalemusser/cineshelf/internal/app/system/txn"
	"github.com/dalemusser/cineshelf/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type resolveInput struct {
	MovieID      rpc.String `json:"movie_id"`
	TMDBID       rpc.String `json:"tmdb_id"`
	MediaType    string     `json:"media_type"`
	ConfirmMerge rpc.Flag   `json:"confirm_merge"`
}

// MergeResult is returned when a placeholder is folded into an existing
// canonical entry.
type MergeResult struct {
	MovieID     primitive.ObjectID `json:"movie_id"`
	Title       string             `json:"title"`
	Merged      bool               `json:"merged"`
	CopiesMoved int64              `json:"copies_moved"`
}

// entryRef is the short form of an entry used in the conflict payload.
type entryRef struct {
	ID    primitive.ObjectID `json:"id"`
	Title string             `json:"title"`
}

func (h *Handler) resolveMovie(ctx context.Context, p *auth.Principal, req rpc.Request) (any, error) {
	var in resolveInput
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	key := strings.TrimSpace(string(in.MovieID))
	externalID := sanitize.Text(string(in.TMDBID), 20)
	if key == "" || externalID == "" {
		return nil, apperr.Validation("Movie ID and TMDB ID required")
	}
	if strings.HasPrefix(externalID, models.UnresolvedPrefix) {
		return nil, apperr.Validation("Invalid TMDB ID")
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	entry, err := h.loadPlaceholder(ctx, key)
	if err != nil {
		return nil, err
	}
	owned, err := h.Copies.CountOwnedOfMovie(ctx, p.ID, entry.ID)
	if err != nil {
		return nil, err
	}
	if owned == 0 {
		return nil, apperr.Authorization("Not authorized")
	}

	existing, err := h.Movies.GetByExternalID(ctx, externalID)
	switch {
	case errors.Is(err, moviestore.ErrNotFound):
		return h.resolveInPlace(ctx, p, entry, externalID, in.MediaType)
	case err != nil:
		return nil, err
	}

	if !bool(in.ConfirmMerge) {
		return nil, apperr.Conflict("This movie already exists in your collection").WithData(map[string]any{
			"already_exists":      true,
			"existing_movie":      entryRef{ID: existing.ID, Title: existing.Title},
			"unresolved_movie_id": entry.ID,
		})
	}
	return h.merge(ctx, p, entry, existing)
}

// loadPlaceholder finds the entry named by key (ObjectID hex or wire key)
// and checks that it is still unresolved.
func (h *Handler) loadPlaceholder(ctx context.Context, key string) (models.Movie, error) {
	var (
		m   models.Movie
		err error
	)
	if strings.HasPrefix(key, models.UnresolvedPrefix) {
		m, err = h.Movies.GetByIdentity(ctx, models.ParseWireKey(key))
	} else {
		id, perr := rpc.ObjectID(key, "Movie ID")
		if perr != nil {
			return models.Movie{}, perr
		}
		m, err = h.Movies.GetByID(ctx, id)
	}
	if errors.Is(err, moviestore.ErrNotFound) {
		return models.Movie{}, apperr.NotFound("Movie not found")
	}
	if err != nil {
		return models.Movie{}, err
	}
	if m.IsResolved() {
		return models.Movie{}, apperr.Validation("Movie is not unresolved")
	}
	return m, nil
}

func (h *Handler) resolveInPlace(ctx context.Context, p *auth.Principal, entry models.Movie, externalID, mediaType string) (any, error) {
	if mediaType == "" {
		mediaType = entry.MediaType
	}
	md, err := h.Catalog.Source.Fetch(ctx, externalID, catalog.NormalizeMediaType(mediaType))
	if err != nil {
		h.Log.Warn("metadata fetch failed", zap.String("external_id", externalID), zap.Error(err))
		return nil, apperr.Upstream(err, "Failed to fetch from TMDB")
	}
	md.ExternalID = externalID
	if md.MediaType == "" {
		md.MediaType = catalog.NormalizeMediaType(mediaType)
	}

	m, err := h.Movies.ResolveInPlace(ctx, entry.ID, md)
	switch {
	case errors.Is(err, moviestore.ErrDuplicateExternalID):
		// Another request created the canonical entry after our lookup.
		return nil, apperr.Conflict("This movie already exists in your collection")
	case errors.Is(err, moviestore.ErrNotFound):
		return nil, apperr.Conflict("Movie was resolved by another request")
	case err != nil:
		return nil, err
	}

	h.Audit.EntryResolved(ctx, p.ID, m.ID, externalID)
	return map[string]any{"movie_id": m.ID, "title": m.Title}, nil
}

// merge moves the caller's copies of entry onto target and deletes entry
// once no copies from any user reference it.
func (h *Handler) merge(ctx context.Context, p *auth.Principal, entry, target models.Movie) (any, error) {
	var (
		moved   int64
		deleted bool
	)
	err := txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		n, err := h.Copies.Reassign(ctx, entry.ID, target.ID, p.ID)
		if err != nil {
			return err
		}
		remaining, err := h.Copies.CountByMovie(ctx, entry.ID)
		if err != nil {
			return err
		}
		moved, deleted = n, false
		if remaining == 0 {
			d, err := h.Movies.Delete(ctx, entry.ID)
			if err != nil {
				return err
			}
			deleted = d > 0
		}
		return nil
	})
	if err != nil {
		h.Log.Error("merge failed",
			zap.String("from", entry.ID.Hex()),
			zap.String("to", target.ID.Hex()),
			zap.Error(err))
		return nil, err
	}

	h.Audit.EntryMerged(ctx, p.ID, entry.ID, target.ID, moved, deleted)
	return MergeResult{MovieID: target.ID, Title: target.Title, Merged: true, CopiesMoved: moved}, nil
}
