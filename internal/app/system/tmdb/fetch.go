// internal/app/system/tmdb/fetch.go
package tmdb

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/dalemusser/cineshelf/internal/domain/models"
	"go.uber.org/zap"
)

type genre struct {
	Name string `json:"name"`
}

// detail covers both /movie/{id} and /tv/{id}; the TV endpoint uses name,
// first_air_date, episode_run_time and created_by.
type detail struct {
	ID             int      `json:"id"`
	Title          string   `json:"title"`
	Name           string   `json:"name"`
	ReleaseDate    string   `json:"release_date"`
	FirstAirDate   string   `json:"first_air_date"`
	PosterPath     string   `json:"poster_path"`
	BackdropPath   string   `json:"backdrop_path"`
	Overview       string   `json:"overview"`
	VoteAverage    *float64 `json:"vote_average"`
	Runtime        *int     `json:"runtime"`
	EpisodeRunTime []int    `json:"episode_run_time"`
	Genres         []genre  `json:"genres"`
	IMDbID         string   `json:"imdb_id"`
	CreatedBy      []struct {
		Name string `json:"name"`
	} `json:"created_by"`
	Credits struct {
		Crew []struct {
			Job  string `json:"job"`
			Name string `json:"name"`
		} `json:"crew"`
	} `json:"credits"`
	ReleaseDates struct {
		Results []struct {
			Country  string `json:"iso_3166_1"`
			Releases []struct {
				Certification string `json:"certification"`
			} `json:"release_dates"`
		} `json:"results"`
	} `json:"release_dates"`
	ContentRatings struct {
		Results []struct {
			Country string `json:"iso_3166_1"`
			Rating  string `json:"rating"`
		} `json:"results"`
	} `json:"content_ratings"`
}

// Fetch returns the full metadata for one title, including the director
// (or TV creator) and the US certification.
func (c *Client) Fetch(ctx context.Context, externalID, mediaType string) (models.Metadata, error) {
	if mediaType != models.MediaTV {
		mediaType = models.MediaMovie
	}
	if _, err := strconv.Atoi(externalID); err != nil {
		return models.Metadata{}, ErrNotFound
	}

	q := url.Values{}
	q.Set("append_to_response", "release_dates,content_ratings,credits")

	var d detail
	if err := c.get(ctx, "fetch", "/"+mediaType+"/"+externalID, q, &d); err != nil {
		c.log.Warn("tmdb fetch failed",
			zap.String("external_id", externalID),
			zap.String("media_type", mediaType),
			zap.Error(err))
		return models.Metadata{}, err
	}
	return c.toMetadata(d, mediaType), nil
}

func (c *Client) toMetadata(d detail, mediaType string) models.Metadata {
	md := models.Metadata{
		ExternalID:  strconv.Itoa(d.ID),
		MediaType:   mediaType,
		PosterURL:   c.image(d.PosterPath),
		BackdropURL: c.image(d.BackdropPath),
		Overview:    d.Overview,
		Rating:      d.VoteAverage,
		IMDbID:      d.IMDbID,
	}
	for _, g := range d.Genres {
		md.Genres = append(md.Genres, g.Name)
	}

	if mediaType == models.MediaTV {
		md.Title = d.Name
		md.Year = yearOf(d.FirstAirDate)
		if len(d.EpisodeRunTime) > 0 {
			rt := d.EpisodeRunTime[0]
			md.Runtime = &rt
		}
		if len(d.CreatedBy) > 0 {
			md.Director = d.CreatedBy[0].Name
		}
		for _, r := range d.ContentRatings.Results {
			if r.Country == "US" {
				md.Certification = r.Rating
				break
			}
		}
		return md
	}

	md.Title = d.Title
	md.Year = yearOf(d.ReleaseDate)
	md.Runtime = d.Runtime
	for _, p := range d.Credits.Crew {
		if p.Job == "Director" {
			md.Director = p.Name
			break
		}
	}
us:
	for _, r := range d.ReleaseDates.Results {
		if r.Country != "US" {
			continue
		}
		for _, rel := range r.Releases {
			if cert := strings.TrimSpace(rel.Certification); cert != "" {
				md.Certification = cert
				break us
			}
		}
	}
	return md
}
