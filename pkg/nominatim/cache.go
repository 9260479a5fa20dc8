package nominatim

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// cacheKey returns SHA-256 hex of the normalized query for cache lookup.
func cacheKey(query string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(query), " "))
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}

// Cache stores geocode results, including non-matches, in a local SQLite
// database so repeated runs never re-query Nominatim for the same text.
type Cache struct {
	db *sql.DB
}

// OpenCache opens (creating if needed) the cache database at path.
func OpenCache(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrapf(err, "nominatim: open cache %s", path)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS geocode_cache (
			query_hash   TEXT PRIMARY KEY,
			query        TEXT NOT NULL,
			latitude     REAL,
			longitude    REAL,
			display_name TEXT,
			matched      INTEGER NOT NULL,
			cached_at    TEXT NOT NULL
		)`)
	if err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "nominatim: create cache table")
	}

	return &Cache{db: db}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get looks up a cached result for query. The second return value is false on
// a cache miss. Cached non-matches are returned so the caller can skip the API.
func (c *Cache) Get(query string) (*Result, bool, error) {
	key := cacheKey(query)

	var lat, lon sql.NullFloat64
	var displayName sql.NullString
	var matched bool

	row := c.db.QueryRow(
		"SELECT latitude, longitude, display_name, matched FROM geocode_cache WHERE query_hash = ?", key)
	err := row.Scan(&lat, &lon, &displayName, &matched)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "nominatim: cache lookup")
	}

	r := &Result{Matched: matched}
	if matched {
		r.Latitude = lat.Float64
		r.Longitude = lon.Float64
		r.DisplayName = displayName.String
	}

	zap.L().Debug("geocode cache hit", zap.String("key", key[:12]), zap.Bool("matched", matched))
	return r, true, nil
}

// Put stores a result (match or non-match) for query, replacing any prior entry.
func (c *Cache) Put(query string, result *Result) error {
	key := cacheKey(query)

	var lat, lon any
	var displayName any
	if result.Matched {
		lat, lon = result.Latitude, result.Longitude
		displayName = result.DisplayName
	}

	_, err := c.db.Exec(`
		INSERT INTO geocode_cache (query_hash, query, latitude, longitude, display_name, matched, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (query_hash) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			display_name = excluded.display_name,
			matched = excluded.matched,
			cached_at = excluded.cached_at`,
		key, query, lat, lon, displayName, result.Matched, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return eris.Wrap(err, "nominatim: store cache")
	}
	return nil
}

// CachedClient wraps a Client with a Cache, consulting the cache before the
// API and recording every outcome.
type CachedClient struct {
	client Client
	cache  *Cache
}

// NewCachedClient wraps client with cache.
func NewCachedClient(client Client, cache *Cache) *CachedClient {
	return &CachedClient{client: client, cache: cache}
}

func (c *CachedClient) Search(ctx context.Context, query string) (*Result, error) {
	cached, ok, err := c.cache.Get(query)
	if err != nil {
		return nil, err
	}
	if ok {
		return cached, nil
	}

	result, err := c.client.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Put(query, result); err != nil {
		return nil, err
	}
	return result, nil
}
