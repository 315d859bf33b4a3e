// internal/app/features/catalog/posters.go
package catalog

import (
	"context"
	"errors"
	"strings"

	moviestore "github.com/dalemusser/cineshelf/internal/app/store/movies"
	"github.com/dalemusser/cineshelf/internal/app/system/apperr"
	"github.com/dalemusser/cineshelf/internal/app/system/auth"
	"github.com/dalemusser/cineshelf/internal/app/system/rpc"
	"github.com/dalemusser/cineshelf/internal/app/system/sanitize"
	"github.com/dalemusser/cineshelf/internal/app/system/timeouts"
	"github.com/dalemusser/cineshelf/internal/domain/models"
	"go.uber.org/zap"
)

func (h *Handler) getPosters(ctx context.Context, _ *auth.Principal, req rpc.Request) (any, error) {
	var in getMovieInput
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	id := sanitize.Text(string(in.TMDBID), 20)
	if id == "" || strings.HasPrefix(id, models.UnresolvedPrefix) {
		return nil, apperr.Validation("TMDB ID required")
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	posters, err := h.Source.Posters(ctx, id, NormalizeMediaType(in.MediaType))
	if err != nil {
		h.Log.Warn("poster lookup failed", zap.String("external_id", id), zap.Error(err))
		return nil, apperr.Upstream(err, "Failed to fetch posters from TMDB")
	}
	if posters == nil {
		posters = []models.Poster{}
	}
	return posters, nil
}

type updatePosterInput struct {
	MovieID    string `json:"movie_id"`
	PosterPath string `json:"poster_path"`
}

// updatePoster swaps the shared entry's poster for one of the alternatives
// listed by get_movie_posters. Any signed-in user may do this; the poster
// is shown to everyone holding the entry.
func (h *Handler) updatePoster(ctx context.Context, p *auth.Principal, req rpc.Request) (any, error) {
	var in updatePosterInput
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	path := sanitize.Text(in.PosterPath, 200)
	if strings.TrimSpace(in.MovieID) == "" || path == "" {
		return nil, apperr.Validation("Movie ID and poster path required")
	}
	movieID, err := rpc.ObjectID(in.MovieID, "Movie ID")
	if err != nil {
		return nil, err
	}
	// Only image paths as the source returns them, never absolute URLs.
	if !strings.HasPrefix(path, "/") || strings.Contains(path, "//") || strings.Contains(path, "..") {
		return nil, apperr.Validation("Invalid poster path")
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	posterURL := h.Source.ImageURL(path)
	if err := h.Movies.SetPoster(ctx, movieID, posterURL); err != nil {
		if errors.Is(err, moviestore.ErrNotFound) {
			return nil, apperr.NotFound("Movie not found")
		}
		return nil, err
	}
	h.Audit.PosterUpdated(ctx, p.ID, movieID, posterURL)

	return map[string]any{"movie_id": movieID, "poster_url": posterURL}, nil
}
