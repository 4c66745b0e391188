package geo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type memoryCache struct {
	mu      sync.Mutex
	data    map[string]string
	getErr  error
	setErr  error
	setTTLs []time.Duration
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string]string{}}
}

func (m *memoryCache) Get(_ context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return redis.NewStringResult("", m.getErr)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return redis.NewStatusResult("", m.setErr)
	}
	m.data[key] = string(value.([]byte))
	m.setTTLs = append(m.setTTLs, ttl)
	return redis.NewStatusResult("OK", nil)
}

type countingResolver struct {
	calls  int
	result *Coordinates
}

func (r *countingResolver) GeocodeAddress(context.Context, string) *Coordinates {
	r.calls++
	return r.result
}

func (r *countingResolver) GeocodeCityPostalCode(ctx context.Context, city, postalCode string) *Coordinates {
	return r.GeocodeAddress(ctx, city+" "+postalCode)
}

func (r *countingResolver) ReverseGeocode(context.Context, float64, float64) (string, bool) {
	return "label", true
}

func TestCachedResolverCachesHits(t *testing.T) {
	t.Parallel()

	next := &countingResolver{result: &Coordinates{Latitude: 45.76, Longitude: 4.83, City: "Lyon"}}
	cache := newMemoryCache()
	r := NewCachedResolver(next, cache, time.Hour, nil)

	first := r.GeocodeAddress(context.Background(), "1 Place Bellecour  Lyon")
	second := r.GeocodeAddress(context.Background(), "1 place bellecour lyon")

	if first == nil || second == nil {
		t.Fatalf("expected coordinates on both calls")
	}
	if next.calls != 1 {
		t.Fatalf("expected one provider call, got %d", next.calls)
	}
	if second.City != "Lyon" || second.Latitude != 45.76 {
		t.Fatalf("unexpected cached value: %+v", second)
	}
	if len(cache.setTTLs) != 1 || cache.setTTLs[0] != time.Hour {
		t.Fatalf("unexpected ttl writes: %v", cache.setTTLs)
	}
}

func TestCachedResolverDoesNotCacheMisses(t *testing.T) {
	t.Parallel()

	next := &countingResolver{}
	cache := newMemoryCache()
	r := NewCachedResolver(next, cache, 0, nil)

	for i := 0; i < 2; i++ {
		if coords := r.GeocodeCityPostalCode(context.Background(), "Nowhere", "00000"); coords != nil {
			t.Fatalf("expected nil")
		}
	}
	if next.calls != 2 {
		t.Fatalf("expected misses to reach the provider each time, got %d", next.calls)
	}
	if len(cache.data) != 0 {
		t.Fatalf("expected empty cache, got %v", cache.data)
	}
}

func TestCachedResolverIgnoresCacheErrors(t *testing.T) {
	t.Parallel()

	next := &countingResolver{result: &Coordinates{Latitude: 1, Longitude: 2}}
	cache := newMemoryCache()
	cache.getErr = errors.New("connection refused")
	cache.setErr = errors.New("connection refused")
	r := NewCachedResolver(next, cache, 0, nil)

	if coords := r.GeocodeAddress(context.Background(), "12 rue des Lilas"); coords == nil {
		t.Fatalf("expected provider result despite cache errors")
	}

	if label, ok := r.ReverseGeocode(context.Background(), 2, 1); !ok || label != "label" {
		t.Fatalf("expected reverse lookup to pass through")
	}
}
