// internal/app/system/tmdb/search.go
package tmdb

import (
	"context"
	"net/url"
	"strconv"

	"github.com/dalemusser/cineshelf/internal/domain/models"
)

type searchResponse struct {
	Results []struct {
		ID           int      `json:"id"`
		MediaType    string   `json:"media_type"`
		Title        string   `json:"title"`
		Name         string   `json:"name"`
		ReleaseDate  string   `json:"release_date"`
		FirstAirDate string   `json:"first_air_date"`
		PosterPath   string   `json:"poster_path"`
		Overview     string   `json:"overview"`
		VoteAverage  *float64 `json:"vote_average"`
		Popularity   float64  `json:"popularity"`
	} `json:"results"`
}

// Search queries movies, or movies and TV together when multi is set. Multi
// results other than movie and tv (people) are dropped.
func (c *Client) Search(ctx context.Context, query string, multi bool) ([]models.SearchResult, error) {
	path := "/search/movie"
	if multi {
		path = "/search/multi"
	}
	q := url.Values{}
	q.Set("query", query)

	var resp searchResponse
	if err := c.get(ctx, "search", path, q, &resp); err != nil {
		return nil, err
	}

	out := make([]models.SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		mediaType := r.MediaType
		if !multi {
			mediaType = models.MediaMovie
		}
		if mediaType != models.MediaMovie && mediaType != models.MediaTV {
			continue
		}
		sr := models.SearchResult{
			ExternalID: strconv.Itoa(r.ID),
			MediaType:  mediaType,
			PosterURL:  c.image(r.PosterPath),
			Overview:   r.Overview,
			Rating:     r.VoteAverage,
			Popularity: r.Popularity,
		}
		if mediaType == models.MediaTV {
			sr.Title, sr.ReleaseDate = r.Name, r.FirstAirDate
		} else {
			sr.Title, sr.ReleaseDate = r.Title, r.ReleaseDate
		}
		sr.Year = yearOf(sr.ReleaseDate)
		out = append(out, sr)
	}
	return out, nil
}
