package chartcache

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/yanqian/careops/internal/domain/forecast"
)

// Cache keeps rendered forecast charts keyed by their parameter hash.
type Cache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

// New builds a cache holding up to size charts for ttl each.
func New(size int64, ttl time.Duration) (*Cache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10 * size,
		MaxCost:     size,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("init chart cache: %w", err)
	}
	return &Cache{cache: cache, ttl: ttl}, nil
}

// Get returns the cached chart for key.
func (c *Cache) Get(key uint64) (string, bool) {
	value, found := c.cache.Get(key)
	if !found {
		return "", false
	}
	chart, ok := value.(string)
	return chart, ok
}

// Set stores a chart. Admission is asynchronous and may be refused under pressure.
func (c *Cache) Set(key uint64, chart string) {
	if c.ttl > 0 {
		c.cache.SetWithTTL(key, chart, 1, c.ttl)
		return
	}
	c.cache.Set(key, chart, 1)
}

// Wait blocks until buffered writes are applied.
func (c *Cache) Wait() {
	c.cache.Wait()
}

// Close stops the cache goroutines.
func (c *Cache) Close() {
	c.cache.Close()
}

var _ forecast.ChartCache = (*Cache)(nil)
