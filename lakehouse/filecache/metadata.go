package filecache

import (
	"context"
	"fmt"
	"sync"
)

// FooterSource loads a partition's stored Parquet footer, the shape
// metastore.Store.LoadPartitionFooter satisfies - kept as an interface so
// tests don't need a live database.
type FooterSource interface {
	LoadPartitionFooter(ctx context.Context, filePath string) ([]byte, error)
}

// ReaderMetadataCache caches Parquet footers per query-engine reader
// (a process-wide cache is optional; per-reader caching
// is always on). One instance is created per scan; it's not meant to
// outlive the query that built it, so it has no eviction policy of its
// own - it lives and dies with its owning reader.
type ReaderMetadataCache struct {
	source FooterSource

	mu    sync.Mutex
	cache map[string][]byte
}

func NewReaderMetadataCache(source FooterSource) *ReaderMetadataCache {
	return &ReaderMetadataCache{source: source, cache: make(map[string][]byte)}
}

// Footer returns filePath's footer bytes, loading and caching on first
// access within this reader's lifetime.
func (c *ReaderMetadataCache) Footer(ctx context.Context, filePath string) ([]byte, error) {
	c.mu.Lock()
	if b, ok := c.cache[filePath]; ok {
		c.mu.Unlock()
		return b, nil
	}
	c.mu.Unlock()

	b, err := c.source.LoadPartitionFooter(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("filecache: load footer %s: %w", filePath, err)
	}

	c.mu.Lock()
	c.cache[filePath] = b
	c.mu.Unlock()
	return b, nil
}
