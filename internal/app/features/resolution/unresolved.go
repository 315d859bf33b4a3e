// internal/app/features/resolution/unresolved.go
package resolution

import (
	"context"

	"github.com/dalemusser/cineshelf/internal/app/features/catalog"
	"github.com/dalemusser/cineshelf/internal/app/system/apperr"
	"github.com/dalemusser/cineshelf/internal/app/system/auth"
	"github.com/dalemusser/cineshelf/internal/app/system/rpc"
	"github.com/dalemusser/cineshelf/internal/app/system/sanitize"
	"github.com/dalemusser/cineshelf/internal/app/system/timeouts"
	"github.com/dalemusser/cineshelf/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type addUnresolvedInput struct {
	Title     string `json:"title"`
	MediaType string `json:"media_type"`
	Format    string `json:"format"`
	Notes     string `json:"notes"`
}

// addUnresolved records a copy of something the metadata source could not
// identify, under a fresh placeholder entry.
func (h *Handler) addUnresolved(ctx context.Context, p *auth.Principal, req rpc.Request) (any, error) {
	var in addUnresolvedInput
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	title := sanitize.Text(in.Title, 200)
	if title == "" {
		return nil, apperr.Validation("Title required")
	}
	format := sanitize.Text(in.Format, 50)
	if format == "" {
		format = models.DefaultFormat
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	m, err := h.Movies.CreateUnresolved(ctx, title, catalog.NormalizeMediaType(in.MediaType))
	if err != nil {
		return nil, err
	}
	c, err := h.Copies.Create(ctx, models.Copy{
		OwnerID:   p.ID,
		MovieID:   m.ID,
		Format:    format,
		Condition: models.DefaultCondition,
		Notes:     sanitize.Text(in.Notes, 500),
	})
	if err != nil {
		h.Log.Error("create placeholder copy failed", zap.String("movie_id", m.ID.Hex()), zap.Error(err))
		return nil, err
	}
	return map[string]any{"movie_id": m.ID, "tmdb_id": m.WireKey(), "copy_id": c.ID}, nil
}

// UnresolvedRow is one placeholder entry the caller holds copies of.
type UnresolvedRow struct {
	MovieID   primitive.ObjectID `json:"movie_id"`
	TMDBID    string             `json:"tmdb_id"`
	Title     string             `json:"title"`
	PosterURL string             `json:"poster_url"`
	Year      *int               `json:"year"`
	CopyCount int                `json:"copy_count"`
}

func (h *Handler) listUnresolved(ctx context.Context, p *auth.Principal, _ rpc.Request) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	ids, err := h.Copies.DistinctMoviesByOwner(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	movies, err := h.Movies.ListUnresolvedByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	unresolvedIDs := make([]primitive.ObjectID, 0, len(movies))
	for _, m := range movies {
		unresolvedIDs = append(unresolvedIDs, m.ID)
	}
	counts, err := h.Copies.CountByMovies(ctx, unresolvedIDs)
	if err != nil {
		return nil, err
	}

	rows := make([]UnresolvedRow, 0, len(movies))
	for _, m := range movies {
		rows = append(rows, UnresolvedRow{
			MovieID:   m.ID,
			TMDBID:    m.WireKey(),
			Title:     m.EffectiveTitle(),
			PosterURL: m.PosterURL,
			Year:      m.Year,
			CopyCount: counts[m.ID],
		})
	}
	return rows, nil
}
