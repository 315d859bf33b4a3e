package tmdb_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/cineshelf/internal/app/system/tmdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingObserver struct {
	mu   sync.Mutex
	ops  []string
	errs int
}

func (o *recordingObserver) ObserveUpstream(op string, err error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = append(o.ops, op)
	if err != nil {
		o.errs++
	}
}

const matrixJSON = `{
  "id": 603,
  "title": "The Matrix",
  "release_date": "1999-03-30",
  "poster_path": "/p.jpg",
  "backdrop_path": "/b.jpg",
  "overview": "A hacker learns the truth.",
  "vote_average": 8.2,
  "runtime": 136,
  "imdb_id": "tt0133093",
  "genres": [{"name": "Action"}, {"name": "Science Fiction"}],
  "credits": {"crew": [{"job": "Producer", "name": "Joel Silver"}, {"job": "Director", "name": "Lana Wachowski"}]},
  "release_dates": {"results": [
    {"iso_3166_1": "DE", "release_dates": [{"certification": "16"}]},
    {"iso_3166_1": "US", "release_dates": [{"certification": ""}, {"certification": "R"}]}
  ]}
}`

const showJSON = `{
  "id": 1399,
  "name": "Game of Thrones",
  "first_air_date": "2011-04-17",
  "episode_run_time": [60],
  "genres": [{"name": "Drama"}],
  "created_by": [{"name": "David Benioff"}],
  "content_ratings": {"results": [{"iso_3166_1": "US", "rating": "TV-MA"}]}
}`

// imagesJSON carries 25 posters with vote averages 0.0 .. 2.4 in ascending
// order, plus one without a file path.
var imagesJSON = func() string {
	var b strings.Builder
	b.WriteString(`{"posters":[{"file_path":"","vote_average":9.9}`)
	for i := 0; i < 25; i++ {
		fmt.Fprintf(&b, `,{"file_path":"/p%d.jpg","width":500,"height":750,"iso_639_1":"en","vote_average":%.1f,"vote_count":%d}`, i, float64(i)/10, i)
	}
	b.WriteString(`]}`)
	return b.String()
}()

func newServer(t *testing.T, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/movie/603":
			_, _ = w.Write([]byte(matrixJSON))
		case "/tv/1399":
			_, _ = w.Write([]byte(showJSON))
		case "/search/multi":
			_, _ = w.Write([]byte(`{"results":[
				{"id":603,"media_type":"movie","title":"The Matrix","release_date":"1999-03-30","popularity":80.1},
				{"id":6384,"media_type":"person","name":"Keanu Reeves"},
				{"id":1399,"media_type":"tv","name":"Game of Thrones","first_air_date":"2011-04-17"}
			]}`))
		case "/search/movie":
			_, _ = w.Write([]byte(`{"results":[{"id":603,"title":"The Matrix","release_date":"1999-03-30"}]}`))
		case "/movie/603/images":
			_, _ = w.Write([]byte(imagesJSON))
		case "/movie/500":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch_Movie(t *testing.T) {
	srv := newServer(t, func(r *http.Request) {
		assert.Equal(t, "k", r.URL.Query().Get("api_key"))
	})
	obs := &recordingObserver{}
	c, err := tmdb.New(tmdb.Config{APIKey: "k", BaseURL: srv.URL, ImageBase: "https://img"}, obs, zap.NewNop())
	require.NoError(t, err)

	md, err := c.Fetch(context.Background(), "603", "movie")
	require.NoError(t, err)

	assert.Equal(t, "603", md.ExternalID)
	assert.Equal(t, "The Matrix", md.Title)
	require.NotNil(t, md.Year)
	assert.Equal(t, 1999, *md.Year)
	assert.Equal(t, "https://img/p.jpg", md.PosterURL)
	assert.Equal(t, "Lana Wachowski", md.Director)
	assert.Equal(t, "R", md.Certification)
	assert.Equal(t, "Action, Science Fiction", md.Genre())
	require.NotNil(t, md.Runtime)
	assert.Equal(t, 136, *md.Runtime)
	assert.Equal(t, []string{"fetch"}, obs.ops)
}

func TestFetch_TV(t *testing.T) {
	srv := newServer(t, nil)
	c, err := tmdb.New(tmdb.Config{APIKey: "k", BaseURL: srv.URL}, nil, zap.NewNop())
	require.NoError(t, err)

	md, err := c.Fetch(context.Background(), "1399", "tv")
	require.NoError(t, err)
	assert.Equal(t, "Game of Thrones", md.Title)
	assert.Equal(t, "David Benioff", md.Director)
	assert.Equal(t, "TV-MA", md.Certification)
	require.NotNil(t, md.Runtime)
	assert.Equal(t, 60, *md.Runtime)
}

func TestFetch_Errors(t *testing.T) {
	srv := newServer(t, nil)
	obs := &recordingObserver{}
	c, err := tmdb.New(tmdb.Config{APIKey: "k", BaseURL: srv.URL}, obs, zap.NewNop())
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), "999", "movie")
	assert.ErrorIs(t, err, tmdb.ErrNotFound)

	_, err = c.Fetch(context.Background(), "not-a-number", "movie")
	assert.ErrorIs(t, err, tmdb.ErrNotFound)

	_, err = c.Fetch(context.Background(), "500", "movie")
	var se *tmdb.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Equal(t, 2, obs.errs)
}

func TestSearch(t *testing.T) {
	srv := newServer(t, nil)
	c, err := tmdb.New(tmdb.Config{APIKey: "k", BaseURL: srv.URL}, nil, zap.NewNop())
	require.NoError(t, err)

	multi, err := c.Search(context.Background(), "matrix", true)
	require.NoError(t, err)
	require.Len(t, multi, 2, "people are filtered out")
	assert.Equal(t, "movie", multi[0].MediaType)
	assert.Equal(t, "tv", multi[1].MediaType)
	assert.Equal(t, "Game of Thrones", multi[1].Title)

	movies, err := c.Search(context.Background(), "matrix", false)
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, "movie", movies[0].MediaType)
}

func TestBearerToken(t *testing.T) {
	srv := newServer(t, func(r *http.Request) {
		assert.Equal(t, "Bearer v4-token", r.Header.Get("Authorization"))
		assert.Empty(t, r.URL.Query().Get("api_key"))
	})
	c, err := tmdb.New(tmdb.Config{ReadToken: "v4-token", BaseURL: srv.URL}, nil, zap.NewNop())
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), "603", "movie")
	require.NoError(t, err)
}

func TestNew_RequiresCredential(t *testing.T) {
	_, err := tmdb.New(tmdb.Config{}, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestPosters(t *testing.T) {
	srv := newServer(t, nil)
	obs := &recordingObserver{}
	c, err := tmdb.New(tmdb.Config{APIKey: "k", BaseURL: srv.URL, ImageBase: "https://img"}, obs, zap.NewNop())
	require.NoError(t, err)

	posters, err := c.Posters(context.Background(), "603", "movie")
	require.NoError(t, err)
	require.Len(t, posters, tmdb.MaxPosters)
	assert.Equal(t, "/p24.jpg", posters[0].FilePath, "best rated first")
	assert.Equal(t, "https://img/p24.jpg", posters[0].URL)
	assert.Equal(t, "/p5.jpg", posters[len(posters)-1].FilePath)
	for _, p := range posters {
		assert.NotEmpty(t, p.FilePath)
	}
	assert.Equal(t, []string{"images"}, obs.ops)

	_, err = c.Posters(context.Background(), "1399", "tv")
	assert.ErrorIs(t, err, tmdb.ErrNotFound)

	_, err = c.Posters(context.Background(), "abc", "movie")
	assert.ErrorIs(t, err, tmdb.ErrNotFound)

	assert.Equal(t, "https://img/x.jpg", c.ImageURL("/x.jpg"))
}

func TestDisabled(t *testing.T) {
	var d tmdb.Disabled
	_, err := d.Posters(context.Background(), "603", "movie")
	assert.ErrorIs(t, err, tmdb.ErrNotConfigured)
	assert.Equal(t, tmdb.DefaultImageBase+"/x.jpg", d.ImageURL("/x.jpg"))
}
