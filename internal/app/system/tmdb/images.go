// internal/app/system/tmdb/images.go
package tmdb

import (
	"context"
	"sort"
	"strconv"

	"github.com/dalemusser/cineshelf/internal/domain/models"
	"go.uber.org/zap"
)

// MaxPosters caps the Posters result.
const MaxPosters = 20

type imagesResponse struct {
	Posters []struct {
		FilePath    string  `json:"file_path"`
		Width       int     `json:"width"`
		Height      int     `json:"height"`
		Language    string  `json:"iso_639_1"`
		VoteAverage float64 `json:"vote_average"`
		VoteCount   int     `json:"vote_count"`
	} `json:"posters"`
}

// Posters lists the alternative posters for a title, best rated first.
func (c *Client) Posters(ctx context.Context, externalID, mediaType string) ([]models.Poster, error) {
	if mediaType != models.MediaTV {
		mediaType = models.MediaMovie
	}
	if _, err := strconv.Atoi(externalID); err != nil {
		return nil, ErrNotFound
	}

	var resp imagesResponse
	if err := c.get(ctx, "images", "/"+mediaType+"/"+externalID+"/images", nil, &resp); err != nil {
		c.log.Warn("tmdb images failed",
			zap.String("external_id", externalID),
			zap.String("media_type", mediaType),
			zap.Error(err))
		return nil, err
	}

	out := make([]models.Poster, 0, len(resp.Posters))
	for _, p := range resp.Posters {
		if p.FilePath == "" {
			continue
		}
		out = append(out, models.Poster{
			FilePath:    p.FilePath,
			URL:         c.image(p.FilePath),
			Width:       p.Width,
			Height:      p.Height,
			Language:    p.Language,
			VoteAverage: p.VoteAverage,
			VoteCount:   p.VoteCount,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].VoteAverage > out[j].VoteAverage })
	if len(out) > MaxPosters {
		out = out[:MaxPosters]
	}
	return out, nil
}

// ImageURL turns a poster path into a full image URL.
func (c *Client) ImageURL(path string) string { return c.image(path) }
