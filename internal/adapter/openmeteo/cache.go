package openmeteo

import (
	"container/list"
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/couchcryptid/road-weather-service/internal/domain"
	"github.com/couchcryptid/road-weather-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Forecaster returns hourly forecasts for a horizon in days.
type Forecaster interface {
	Forecast(ctx context.Context, days int) ([]domain.ForecastHour, error)
}

// CachedClient wraps a Forecaster with an in-memory LRU cache whose entries
// expire after a TTL.
type CachedClient struct {
	inner   Forecaster
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedClient creates a cache decorator around a forecaster.
func NewCachedClient(inner Forecaster, ttl time.Duration, maxEntries int, clock clockwork.Clock, metrics *observability.Metrics) *CachedClient {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CachedClient{
		inner:   inner,
		cache:   newLRUCache(maxEntries, ttl, clock),
		metrics: metrics,
	}
}

func (c *CachedClient) Forecast(ctx context.Context, days int) ([]domain.ForecastHour, error) {
	key := strconv.Itoa(days)
	if hours, ok := c.cache.get(key); ok {
		c.metrics.ForecastCache.WithLabelValues("hit").Inc()
		return hours, nil
	}
	c.metrics.ForecastCache.WithLabelValues("miss").Inc()

	hours, err := c.inner.Forecast(ctx, days)
	if err != nil {
		return nil, err
	}
	// Empty responses are not cached so the next call retries.
	if len(hours) > 0 {
		c.cache.put(key, hours)
	}
	return hours, nil
}

// lruCache is a thread-safe LRU cache with per-entry expiry. The front of
// order is the most recently used entry.
type lruCache struct {
	maxEntries int
	ttl        time.Duration
	clock      clockwork.Clock

	mu      sync.Mutex
	order   *list.List
	entries map[string]*list.Element
}

type cached struct {
	key     string
	hours   []domain.ForecastHour
	expires time.Time
}

func newLRUCache(maxEntries int, ttl time.Duration, clock clockwork.Clock) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		ttl:        ttl,
		clock:      clock,
		order:      list.New(),
		entries:    make(map[string]*list.Element),
	}
}

func (c *lruCache) get(key string) ([]domain.ForecastHour, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	item := el.Value.(*cached)
	if !c.clock.Now().Before(item.expires) {
		c.drop(el)
		return nil, false
	}
	c.order.MoveToFront(el)
	return item.hours, true
}

func (c *lruCache) put(key string, hours []domain.ForecastHour) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item := &cached{key: key, hours: hours, expires: c.clock.Now().Add(c.ttl)}
	if el, ok := c.entries[key]; ok {
		el.Value = item
		c.order.MoveToFront(el)
		return
	}
	c.entries[key] = c.order.PushFront(item)

	for c.order.Len() > c.maxEntries {
		c.drop(c.order.Back())
	}
}

func (c *lruCache) drop(el *list.Element) {
	delete(c.entries, el.Value.(*cached).key)
	c.order.Remove(el)
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
