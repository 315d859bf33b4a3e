// internal/app/system/tmdb/client.go
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/cineshelf/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Defaults for the public TMDB v3 API.
const (
	DefaultBaseURL   = "https://api.themoviedb.org/3"
	DefaultImageBase = "https://image.tmdb.org/t/p/w500"
)

// ErrNotFound is returned when TMDB has no title with the requested id.
var ErrNotFound = errors.New("tmdb: title not found")

// StatusError is returned for any other non-2xx response.
type StatusError struct {
	Code int
	Path string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tmdb: %s returned HTTP %d", e.Path, e.Code)
}

// Observer receives one call per upstream request. *metrics.Metrics
// implements it.
type Observer interface {
	ObserveUpstream(op string, err error, d time.Duration)
}

// Config configures a Client. Either APIKey (v3 query parameter) or
// ReadToken (v4 bearer token) must be set.
type Config struct {
	APIKey    string
	ReadToken string
	BaseURL   string
	ImageBase string
	// RPS throttles outbound calls; zero disables throttling.
	RPS     float64
	Timeout time.Duration
}

// Client talks to TMDB and maps its responses onto models.Metadata.
type Client struct {
	http      *http.Client
	apiKey    string
	baseURL   string
	imageBase string
	limiter   *rate.Limiter
	observer  Observer
	log       *zap.Logger
}

// New builds a Client. A ReadToken is sent as a bearer token through an
// oauth2 transport; otherwise APIKey goes on every query string.
func New(cfg Config, observer Observer, log *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" && cfg.ReadToken == "" {
		return nil, errors.New("tmdb: api key or read token required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.ImageBase == "" {
		cfg.ImageBase = DefaultImageBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	hc := &http.Client{Timeout: cfg.Timeout}
	if cfg.ReadToken != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.ReadToken, TokenType: "Bearer"})
		hc = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &oauth2.Transport{Source: ts, Base: http.DefaultTransport},
		}
	}

	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		burst := int(cfg.RPS)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}

	return &Client{
		http:      hc,
		apiKey:    cfg.APIKey,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		imageBase: strings.TrimRight(cfg.ImageBase, "/"),
		limiter:   limiter,
		observer:  observer,
		log:       log,
	}, nil
}

func (c *Client) get(ctx context.Context, op, path string, q url.Values, out any) (err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveUpstream(op, err, time.Since(start))
		}
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	if q == nil {
		q = url.Values{}
	}
	if c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("tmdb: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Code: resp.StatusCode, Path: path}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("tmdb: decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) image(path string) string {
	if path == "" {
		return ""
	}
	return c.imageBase + path
}

// yearOf returns the year of a YYYY-MM-DD date, or nil.
func yearOf(date string) *int {
	if len(date) < 4 {
		return nil
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return nil
	}
	return &y
}

// ErrNotConfigured is returned by Disabled.
var ErrNotConfigured = errors.New("tmdb: no api key or read token configured")

// Disabled stands in for a Client when no credential is configured, so the
// service still starts in dev. Every call fails with ErrNotConfigured.
type Disabled struct{}

func (Disabled) Fetch(context.Context, string, string) (models.Metadata, error) {
	return models.Metadata{}, ErrNotConfigured
}

func (Disabled) Search(context.Context, string, bool) ([]models.SearchResult, error) {
	return nil, ErrNotConfigured
}

func (Disabled) Posters(context.Context, string, string) ([]models.Poster, error) {
	return nil, ErrNotConfigured
}

func (Disabled) ImageURL(path string) string { return DefaultImageBase + path }
