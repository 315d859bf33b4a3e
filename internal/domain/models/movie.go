// internal/domain/models/movie.go
package models

import (
	"encoding/json"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Media types.
const (
	MediaMovie = "movie"
	MediaTV    = "tv"
)

// IdentityState tags a catalog entry as matched to the metadata source or not.
type IdentityState string

const (
	IdentityResolved   IdentityState = "resolved"
	IdentityUnresolved IdentityState = "unresolved"
)

// UnresolvedPrefix marks placeholder identities in the wire vocabulary only.
// Stored documents carry the explicit state instead.
const UnresolvedPrefix = "unresolved_"

// Identity is the tagged identity of a catalog entry: either Resolved with an
// external metadata id, or Unresolved with a local placeholder id.
type Identity struct {
	State         IdentityState `bson:"state"`
	ExternalID    string        `bson:"external_id,omitempty"`
	PlaceholderID string        `bson:"placeholder_id,omitempty"`
}

// Resolved builds the identity of a canonical entry.
func Resolved(externalID string) Identity {
	return Identity{State: IdentityResolved, ExternalID: externalID}
}

// Unresolved builds the identity of a placeholder entry.
func Unresolved(placeholderID string) Identity {
	return Identity{State: IdentityUnresolved, PlaceholderID: placeholderID}
}

// IsResolved reports whether the entry is matched to external metadata.
func (i Identity) IsResolved() bool {
	return i.State == IdentityResolved
}

// WireKey renders the identity the way clients know it (the tmdb_id field).
func (i Identity) WireKey() string {
	if i.IsResolved() {
		return i.ExternalID
	}
	return UnresolvedPrefix + i.PlaceholderID
}

// ParseWireKey is the inverse of WireKey.
func ParseWireKey(key string) Identity {
	if p, ok := strings.CutPrefix(key, UnresolvedPrefix); ok {
		return Unresolved(p)
	}
	return Resolved(key)
}

// Movie is a catalog entry for one movie or TV series.
type Movie struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	Identity `bson:",inline" json:"-"`

	Title         string   `bson:"title" json:"title"`
	TitleCI       string   `bson:"title_ci" json:"-"`
	DisplayTitle  *string  `bson:"display_title,omitempty" json:"display_title"`
	Year          *int     `bson:"year,omitempty" json:"year"`
	MediaType     string   `bson:"media_type" json:"media_type"`
	PosterURL     string   `bson:"poster_url,omitempty" json:"poster_url"`
	BackdropURL   string   `bson:"backdrop_url,omitempty" json:"backdrop_url"`
	Overview      string   `bson:"overview,omitempty" json:"overview"`
	Rating        *float64 `bson:"rating,omitempty" json:"rating"`
	Runtime       *int     `bson:"runtime,omitempty" json:"runtime"`
	Genre         string   `bson:"genre,omitempty" json:"genre"`
	Director      string   `bson:"director,omitempty" json:"director"`
	Certification string   `bson:"certification,omitempty" json:"certification"`
	IMDbID        string   `bson:"imdb_id,omitempty" json:"imdb_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// EffectiveTitle is the display-title override when present, else the title.
func (m Movie) EffectiveTitle() string {
	if m.DisplayTitle != nil && *m.DisplayTitle != "" {
		return *m.DisplayTitle
	}
	return m.Title
}

// MarshalJSON adds the wire identity (tmdb_id, resolved) to the entry.
func (m Movie) MarshalJSON() ([]byte, error) {
	type plain Movie
	return json.Marshal(struct {
		plain
		TMDBID   string `json:"tmdb_id"`
		Resolved bool   `json:"resolved"`
	}{plain(m), m.WireKey(), m.IsResolved()})
}

// Metadata is what the external metadata source knows about a title.
type Metadata struct {
	ExternalID    string   `json:"id"`
	MediaType     string   `json:"media_type"`
	Title         string   `json:"title"`
	Year          *int     `json:"year"`
	PosterURL     string   `json:"poster_url,omitempty"`
	BackdropURL   string   `json:"backdrop_url,omitempty"`
	Overview      string   `json:"overview,omitempty"`
	Rating        *float64 `json:"rating"`
	Runtime       *int     `json:"runtime"`
	Genres        []string `json:"genres"`
	Director      string   `json:"director,omitempty"`
	Certification string   `json:"certification,omitempty"`
	IMDbID        string   `json:"imdb_id,omitempty"`
}

// Genre joins the genre list the way entries store it.
func (md Metadata) Genre() string {
	return strings.Join(md.Genres, ", ")
}

// SearchResult is one hit from a metadata search.
type SearchResult struct {
	ExternalID  string   `json:"id"`
	MediaType   string   `json:"media_type"`
	Title       string   `json:"title"`
	Year        *int     `json:"year"`
	PosterURL   string   `json:"poster_url,omitempty"`
	Overview    string   `json:"overview,omitempty"`
	Rating      *float64 `json:"rating"`
	Popularity  float64  `json:"popularity"`
	ReleaseDate string   `json:"release_date,omitempty"`
}

// Poster is one alternative poster image for a title.
type Poster struct {
	FilePath    string  `json:"file_path"`
	URL         string  `json:"url"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Language    string  `json:"iso_639_1,omitempty"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
}
