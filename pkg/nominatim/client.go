// Package nominatim provides a rate-limited client for the Nominatim search
// API with a local SQLite result cache.
package nominatim

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public Nominatim instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// Result is the outcome of a forward geocoding lookup. Matched is false when
// Nominatim returned no candidates for the query.
type Result struct {
	Latitude    float64
	Longitude   float64
	DisplayName string
	Matched     bool
}

// Client performs forward geocoding lookups.
type Client interface {
	// Search geocodes a free-form query, returning the top candidate.
	Search(ctx context.Context, query string) (*Result, error)
}

// searchResponse is one element of Nominatim's jsonv2 search response.
// Coordinates arrive as strings.
type searchResponse struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

type client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
}

// Option configures the client.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.http = hc
	}
}

// WithBaseURL points the client at a different Nominatim instance.
func WithBaseURL(u string) Option {
	return func(c *client) {
		c.baseURL = u
	}
}

// WithRateLimit sets the request rate in requests per second. The public
// instance's usage policy allows at most one request per second.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// NewClient creates a Nominatim client. userAgent is required by the public
// instance's usage policy and must identify the application.
func NewClient(userAgent string, opts ...Option) (Client, error) {
	if userAgent == "" {
		return nil, eris.New("nominatim: user agent is required")
	}
	c := &client{
		baseURL:   DefaultBaseURL,
		userAgent: userAgent,
		http:      &http.Client{Timeout: 30 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(1.0), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *client) Search(ctx context.Context, query string) (*Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "nominatim: rate limit")
	}

	params := url.Values{
		"q":      {query},
		"format": {"jsonv2"},
		"limit":  {"1"},
	}
	reqURL := c.baseURL + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: build request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: search request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: read body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("nominatim: search returned status %d: %s", resp.StatusCode, string(body))
	}

	var candidates []searchResponse
	if err := json.Unmarshal(body, &candidates); err != nil {
		return nil, eris.Wrap(err, "nominatim: parse response")
	}

	if len(candidates) == 0 {
		return &Result{Matched: false}, nil
	}

	top := candidates[0]
	lat, err := strconv.ParseFloat(top.Lat, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "nominatim: parse latitude %q", top.Lat)
	}
	lon, err := strconv.ParseFloat(top.Lon, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "nominatim: parse longitude %q", top.Lon)
	}

	return &Result{
		Latitude:    lat,
		Longitude:   lon,
		DisplayName: top.DisplayName,
		Matched:     true,
	}, nil
}
