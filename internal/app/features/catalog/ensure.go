// internal/app/features/catalog/ensure.go
package catalog

import (
	"context"
	"errors"
	"strings"

	moviestore "github.com/dalemusser/cineshelf/internal/app/store/movies"
	"github.com/dalemusser/cineshelf/internal/app/system/apperr"
	"github.com/dalemusser/cineshelf/internal/domain/models"
	"go.uber.org/zap"
)

// NormalizeMediaType maps anything other than "tv" to "movie".
func NormalizeMediaType(s string) string {
	if strings.EqualFold(strings.TrimSpace(s), models.MediaTV) {
		return models.MediaTV
	}
	return models.MediaMovie
}

// EnsureEntry returns the canonical entry for externalID, fetching metadata
// and creating it when the catalog does not have it yet.
//
// Fetch failures are returned as apperr upstream errors. A concurrent
// create for the same id loses the unique-index race and re-reads.
func (h *Handler) EnsureEntry(ctx context.Context, externalID, mediaType string) (models.Movie, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return models.Movie{}, apperr.Validation("TMDB ID required")
	}

	m, err := h.Movies.GetByExternalID(ctx, externalID)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, moviestore.ErrNotFound) {
		return models.Movie{}, err
	}

	md, err := h.Source.Fetch(ctx, externalID, NormalizeMediaType(mediaType))
	if err != nil {
		h.Log.Warn("metadata fetch failed", zap.String("external_id", externalID), zap.Error(err))
		return models.Movie{}, apperr.Upstream(err, "Failed to fetch movie from TMDB")
	}
	// The lookup key wins over whatever id the source echoes back.
	md.ExternalID = externalID
	if md.MediaType == "" {
		md.MediaType = NormalizeMediaType(mediaType)
	}

	m, err = h.Movies.CreateResolved(ctx, md)
	if errors.Is(err, moviestore.ErrDuplicateExternalID) {
		return h.Movies.GetByExternalID(ctx, externalID)
	}
	return m, err
}
