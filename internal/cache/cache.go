// Package cache provides the Redis layer in front of the hot read
// paths: upcoming market lines (refetched every prediction run) and the
// per-season team-context snapshot (stable for hours). Cache failures
// degrade to the database, never to an error.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/fortuna/propcast/internal/store"
)

// TTLs reflect how stale each read can tolerably be: lines move within
// the hour, team pace barely moves within a day.
const (
	upcomingTTL    = 15 * time.Minute
	teamContextTTL = 6 * time.Hour
)

// Cache wraps a Redis client with JSON get/set helpers.
type Cache struct {
	rdb *redis.Client
	log zerolog.Logger
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, addr, password string, db int, log zerolog.Logger) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return &Cache{rdb: rdb, log: log}, nil
}

// Close releases the client.
func (c *Cache) Close() error {
	return c.rdb.Close()
}

// getJSON reads and decodes a key. ok=false means miss or unreadable.
func (c *Cache) getJSON(ctx context.Context, key string, dest interface{}) bool {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(b, dest); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache entry corrupt, ignoring")
		return false
	}
	return true
}

// setJSON encodes and writes a key. Failures are logged and swallowed.
func (c *Cache) setJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	b, err := json.Marshal(value)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}
	if err := c.rdb.Set(ctx, key, b, ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// PropSource is what the cached loader wraps.
type PropSource interface {
	UpcomingProps(ctx context.Context, statType string, asOf time.Time) ([]store.PropRow, error)
	TeamContext(ctx context.Context) (*store.TeamContextSnapshot, error)
	Season() string
}

// CachedPropSource serves upcoming props and the team-context snapshot
// through Redis, falling back to the underlying source on any miss.
type CachedPropSource struct {
	src   PropSource
	cache *Cache
}

// NewCachedPropSource wraps a source with the cache. A nil cache is a
// valid no-op passthrough so callers can run without Redis.
func NewCachedPropSource(src PropSource, cache *Cache) *CachedPropSource {
	return &CachedPropSource{src: src, cache: cache}
}

func upcomingKey(statType string, asOf time.Time) string {
	return fmt.Sprintf("propcast:upcoming:%s:%s", statType, asOf.Format("2006-01-02"))
}

func teamContextKey(season string) string {
	return fmt.Sprintf("propcast:team_context:%s", season)
}

// UpcomingProps returns cached upcoming lines when fresh, otherwise
// loads and caches them.
func (s *CachedPropSource) UpcomingProps(ctx context.Context, statType string, asOf time.Time) ([]store.PropRow, error) {
	key := upcomingKey(statType, asOf)
	if s.cache != nil {
		var cached []store.PropRow
		if s.cache.getJSON(ctx, key, &cached) {
			return cached, nil
		}
	}

	rows, err := s.src.UpcomingProps(ctx, statType, asOf)
	if err != nil {
		return nil, err
	}
	if s.cache != nil && len(rows) > 0 {
		s.cache.setJSON(ctx, key, rows, upcomingTTL)
	}
	return rows, nil
}

// TeamContext returns the cached season snapshot when fresh, otherwise
// builds and caches it.
func (s *CachedPropSource) TeamContext(ctx context.Context) (*store.TeamContextSnapshot, error) {
	key := teamContextKey(s.src.Season())
	if s.cache != nil {
		var cached store.TeamContextSnapshot
		if s.cache.getJSON(ctx, key, &cached) {
			return &cached, nil
		}
	}

	snap, err := s.src.TeamContext(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil && len(snap.ByAbbr) > 0 {
		s.cache.setJSON(ctx, key, snap, teamContextTTL)
	}
	return snap, nil
}

// Season passes through to the underlying source.
func (s *CachedPropSource) Season() string {
	return s.src.Season()
}

// Invalidate drops the cached entries for a stat type and the season
// snapshot, forcing the next read through to the database.
func (s *CachedPropSource) Invalidate(ctx context.Context, statType string, asOf time.Time) {
	if s.cache == nil {
		return
	}
	keys := []string{upcomingKey(statType, asOf), teamContextKey(s.src.Season())}
	if err := s.cache.rdb.Del(ctx, keys...).Err(); err != nil {
		s.cache.log.Warn().Err(err).Msg("cache invalidation failed")
	}
}
