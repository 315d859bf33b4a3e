package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/dalemusser/cineshelf/internal/domain/models"
)

// ErrFakeUnavailable is returned by FakeMetadata when failure is injected.
var ErrFakeUnavailable = errors.New("metadata source unavailable")

// FakeMetadata is an in-memory metadata source keyed by external id.
type FakeMetadata struct {
	mu      sync.Mutex
	entries map[string]models.Metadata
	posters map[string][]models.Poster
	fail    bool
	fetches int
}

// NewFakeMetadata returns a source that knows the given entries.
func NewFakeMetadata(entries ...models.Metadata) *FakeMetadata {
	f := &FakeMetadata{
		entries: make(map[string]models.Metadata),
		posters: make(map[string][]models.Poster),
	}
	for _, md := range entries {
		f.entries[md.ExternalID] = md
	}
	return f
}

// Matrix is the metadata for external id "603".
func Matrix() models.Metadata {
	year := 1999
	rating := 8.2
	runtime := 136
	return models.Metadata{
		ExternalID:    "603",
		MediaType:     models.MediaMovie,
		Title:         "The Matrix",
		Year:          &year,
		PosterURL:     "https://image.example/matrix.jpg",
		Overview:      "A hacker learns the truth.",
		Rating:        &rating,
		Runtime:       &runtime,
		Genres:        []string{"Action", "Science Fiction"},
		Director:      "Lana Wachowski",
		Certification: "R",
	}
}

// SetFailing makes every call fail (or succeed again).
func (f *FakeMetadata) SetFailing(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

// Fetches reports how many Fetch calls were made.
func (f *FakeMetadata) Fetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

// Fetch implements the metadata source contract.
func (f *FakeMetadata) Fetch(ctx context.Context, externalID, mediaType string) (models.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fail {
		return models.Metadata{}, ErrFakeUnavailable
	}
	md, ok := f.entries[externalID]
	if !ok {
		return models.Metadata{}, errors.New("not found: " + externalID)
	}
	return md, nil
}

// Search returns entries whose title contains query, case-insensitively.
func (f *FakeMetadata) Search(ctx context.Context, query string, multi bool) ([]models.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, ErrFakeUnavailable
	}
	q := strings.ToLower(query)
	var out []models.SearchResult
	for _, md := range f.entries {
		if !multi && md.MediaType == models.MediaTV {
			continue
		}
		if strings.Contains(strings.ToLower(md.Title), q) {
			out = append(out, models.SearchResult{
				ExternalID: md.ExternalID,
				MediaType:  md.MediaType,
				Title:      md.Title,
				Year:       md.Year,
				PosterURL:  md.PosterURL,
				Overview:   md.Overview,
				Rating:     md.Rating,
			})
		}
	}
	return out, nil
}

// FakeImageBase prefixes poster paths in ImageURL.
const FakeImageBase = "https://image.example"

// SetPosters sets the posters returned for an external id, in order.
func (f *FakeMetadata) SetPosters(externalID string, posters ...models.Poster) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posters[externalID] = posters
}

// Posters returns what SetPosters recorded for the id.
func (f *FakeMetadata) Posters(ctx context.Context, externalID, mediaType string) ([]models.Poster, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, ErrFakeUnavailable
	}
	ps, ok := f.posters[externalID]
	if !ok {
		return nil, errors.New("not found: " + externalID)
	}
	return ps, nil
}

// ImageURL implements the metadata source contract.
func (f *FakeMetadata) ImageURL(path string) string { return FakeImageBase + path }
