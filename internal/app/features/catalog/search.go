// internal/app/features/catalog/search.go
package catalog

import (
	"context"
	"strings"

	"github.com/dalemusser/cineshelf/internal/app/system/apperr"
	"github.com/dalemusser/cineshelf/internal/app/system/auth"
	"github.com/dalemusser/cineshelf/internal/app/system/rpc"
	"github.com/dalemusser/cineshelf/internal/app/system/sanitize"
	"github.com/dalemusser/cineshelf/internal/app/system/timeouts"
	"github.com/dalemusser/cineshelf/internal/domain/models"
	"go.uber.org/zap"
)

type searchInput struct {
	Query string `json:"query"`
}

func (h *Handler) search(multi bool) rpc.Handler {
	return func(ctx context.Context, _ *auth.Principal, req rpc.Request) (any, error) {
		var in searchInput
		if err := req.Bind(&in); err != nil {
			return nil, err
		}
		query := sanitize.Text(in.Query, 100)
		if query == "" {
			return nil, apperr.Validation("Search query required")
		}

		ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
		defer cancel()

		results, err := h.Source.Search(ctx, query, multi)
		if err != nil {
			h.Log.Warn("metadata search failed", zap.String("query", query), zap.Error(err))
			return nil, apperr.Upstream(err, "TMDB API request failed")
		}
		if results == nil {
			results = []models.SearchResult{}
		}
		return results, nil
	}
}

type getMovieInput struct {
	TMDBID    rpc.String `json:"tmdb_id"`
	MediaType string     `json:"media_type"`
}

func (h *Handler) getMovie(ctx context.Context, _ *auth.Principal, req rpc.Request) (any, error) {
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

	md, err := h.Source.Fetch(ctx, id, NormalizeMediaType(in.MediaType))
	if err != nil {
		h.Log.Warn("metadata fetch failed", zap.String("external_id", id), zap.Error(err))
		return nil, apperr.Upstream(err, "TMDB API request failed")
	}
	return movieDetails(md), nil
}

// details is the get_movie response: metadata with the genre list joined.
type details struct {
	models.Metadata
	Genre string `json:"genre"`
}

func movieDetails(md models.Metadata) details {
	return details{Metadata: md, Genre: md.Genre()}
}
