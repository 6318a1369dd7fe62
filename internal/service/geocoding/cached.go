package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/agrimarket/internal/domain/models"
)

// ErrCacheMiss is returned by a Cache when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Cache is the key/value store used to memoize resolutions.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

const cacheKeyPrefix = "geocode:"

// CachedResolver memoizes another resolver. Cache failures never fail a lookup.
type CachedResolver struct {
	next   LocationResolver
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedResolver wraps next with cache.
func NewCachedResolver(next LocationResolver, cache Cache, ttl time.Duration, logger *zap.Logger) *CachedResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedResolver{next: next, cache: cache, ttl: ttl, logger: logger}
}

// Resolve implements LocationResolver.
func (r *CachedResolver) Resolve(ctx context.Context, location string) (models.Coordinates, error) {
	key := cacheKey(location)

	if r.cache != nil {
		raw, err := r.cache.Get(ctx, key)
		switch {
		case err == nil:
			var coords models.Coordinates
			if jsonErr := json.Unmarshal(raw, &coords); jsonErr == nil {
				return coords, nil
			}
			r.logger.Debug("discarding unreadable cache entry", zap.String("key", key))
		case !errors.Is(err, ErrCacheMiss):
			r.logger.Warn("geocode cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	coords, err := r.next.Resolve(ctx, location)
	if err != nil {
		return models.Coordinates{}, err
	}

	if r.cache != nil {
		raw, _ := json.Marshal(coords)
		if err := r.cache.Set(ctx, key, raw, r.ttl); err != nil {
			r.logger.Warn("geocode cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return coords, nil
}

func cacheKey(location string) string {
	return cacheKeyPrefix + strings.ToLower(strings.TrimSpace(location))
}
