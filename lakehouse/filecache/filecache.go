// Package filecache is the global, byte-budgeted cache for whole-object
// reads the query path's Parquet scans share, grounded on
// original_source/rust/analytics/src/lakehouse/file_cache.rs's FileCache.
// The original uses moka's weighted, async-native cache; this port uses
// hashicorp/golang-lru/v2 (already a direct dependency, same library the
// teacher's own stack reaches for elsewhere) sized generously by entry
// count and kept within budget by evicting the oldest entry whenever the
// tracked byte total goes over, since golang-lru/v2 has no built-in
// per-entry weigher the way moka does.
package filecache

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultMaxBytes is the cache's total byte budget, a 200 MB
	// default.
	DefaultMaxBytes = 200 * 1024 * 1024
	// DefaultMaxFileBytes is the largest single object eligible for
	// caching, a 10 MB default; larger objects bypass the
	// cache and are read in ranged fetches by the caller instead.
	DefaultMaxFileBytes = 10 * 1024 * 1024

	// maxEntries bounds the underlying LRU's entry count only, as a
	// backstop against pathological numbers of tiny files; the real
	// eviction pressure comes from the byte budget below.
	maxEntries = 1 << 16
)

var evictionDelay = prometheus.NewHistogram(prometheus.HistogramOpts{
	Namespace: "lakehouse",
	Subsystem: "file_cache",
	Name:      "eviction_delay_seconds",
	Help:      "time between a file cache entry's insertion and its eviction under size pressure",
	Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
})

func init() {
	prometheus.MustRegister(evictionDelay)
}

type entry struct {
	data       []byte
	insertedAt time.Time
}

// Cache is a process-wide LRU of whole small objects, read through a
// caller-supplied loader on miss. Safe for concurrent use; concurrent
// misses on the same key coalesce via singleflight, matching the
// original's try_get_with thundering-herd protection.
type Cache struct {
	maxBytes     int64
	maxFileBytes int64

	mu         sync.Mutex
	lru        *lru.Cache[string, entry]
	totalBytes int64

	group singleflight.Group

	// Hits and Misses count GetOrLoad calls, the same running counters
	// friggdb.go keeps (BlockReads, BloomFilterReads, ...) next to its
	// own LRU-backed stores.
	Hits   *atomic.Int64
	Misses *atomic.Int64
}

func New(maxBytes, maxFileBytes int64) (*Cache, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if maxFileBytes <= 0 {
		maxFileBytes = DefaultMaxFileBytes
	}
	c := &Cache{
		maxBytes:     maxBytes,
		maxFileBytes: maxFileBytes,
		Hits:         atomic.NewInt64(0),
		Misses:       atomic.NewInt64(0),
	}
	inner, err := lru.NewWithEvict[string, entry](maxEntries, c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("filecache: new lru: %w", err)
	}
	c.lru = inner
	return c, nil
}

func (c *Cache) onEvict(_ string, e entry) {
	c.totalBytes -= int64(len(e.data))
	evictionDelay.Observe(time.Since(e.insertedAt).Seconds())
}

// ShouldCache reports whether an object of the given size is eligible: the
// cache never holds objects over maxFileBytes regardless of how much
// budget is free.
func (c *Cache) ShouldCache(size int64) bool {
	return size <= c.maxFileBytes
}

// Loader fetches an object's full contents on a cache miss.
type Loader func(ctx context.Context) ([]byte, error)

// GetOrLoad returns path's cached contents, or calls load once (coalescing
// concurrent callers) and caches the result if it's within maxFileBytes.
func (c *Cache) GetOrLoad(ctx context.Context, path string, size int64, load Loader) ([]byte, error) {
	c.mu.Lock()
	if e, ok := c.lru.Get(path); ok {
		c.mu.Unlock()
		c.Hits.Inc()
		return e.data, nil
	}
	c.mu.Unlock()
	c.Misses.Inc()

	v, err, _ := c.group.Do(path, func() (interface{}, error) {
		data, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if c.ShouldCache(size) {
			c.insert(path, data)
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *Cache) insert(path string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Add(path, entry{data: data, insertedAt: time.Now()})
	c.totalBytes += int64(len(data))
	for c.totalBytes > c.maxBytes {
		if _, _, ok := c.lru.RemoveOldest(); !ok {
			break
		}
	}
}

// Stats reports the cache's current entry count and tracked byte total,
// the Go equivalent of FileCache::stats().
func (c *Cache) Stats() (entries int, bytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len(), c.totalBytes
}
