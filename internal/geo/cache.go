package geo

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	cacheKeyPrefix  = "geocode:"
	DefaultCacheTTL = 7 * 24 * time.Hour
)

// cacheStore is the subset of *redis.Client used by CachedResolver.
type cacheStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedResolver keeps successful forward lookups in Redis. Cache failures
// never fail a lookup.
type CachedResolver struct {
	next   Resolver
	store  cacheStore
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedResolver(next Resolver, store cacheStore, ttl time.Duration, logger *zap.Logger) *CachedResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	return &CachedResolver{next: next, store: store, ttl: ttl, logger: logger}
}

func (r *CachedResolver) GeocodeAddress(ctx context.Context, address string) *Coordinates {
	key := cacheKey(address)
	if key == "" {
		return r.next.GeocodeAddress(ctx, address)
	}

	raw, err := r.store.Get(ctx, key).Result()
	switch {
	case err == nil:
		var coords Coordinates
		if err := json.Unmarshal([]byte(raw), &coords); err == nil {
			r.logger.Debug("geocode cache hit", zap.String("key", key))
			return &coords
		}
		r.logger.Warn("dropping corrupt geocode cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("geocode cache read failed", zap.String("key", key), zap.Error(err))
	}

	coords := r.next.GeocodeAddress(ctx, address)
	if coords == nil {
		return nil
	}

	data, err := json.Marshal(coords)
	if err != nil {
		return coords
	}
	if err := r.store.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.logger.Warn("geocode cache write failed", zap.String("key", key), zap.Error(err))
	}

	return coords
}

func (r *CachedResolver) GeocodeCityPostalCode(ctx context.Context, city, postalCode string) *Coordinates {
	return r.GeocodeAddress(ctx, strings.TrimSpace(city)+" "+strings.TrimSpace(postalCode))
}

func (r *CachedResolver) ReverseGeocode(ctx context.Context, lon, lat float64) (string, bool) {
	return r.next.ReverseGeocode(ctx, lon, lat)
}

func cacheKey(address string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(address)), " ")
	if len([]rune(normalized)) < minAddressLength {
		return ""
	}
	return cacheKeyPrefix + normalized
}
