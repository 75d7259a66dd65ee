// Package cache wraps a backend.Reader with a size-bounded disk cache,
// modeled on friggdb/backend/cache/cache.go and disk_cache.go: reads land on
// disk keyed by path, a janitor goroutine prunes the oldest entries once the
// cache exceeds its byte budget, and concurrent misses for the same path are
// coalesced so a thundering herd of readers only pays the backing-store cost
// once (friggdb didn't need this; our query-engine fan-out does, so it's
// grounded on singleflight.Group, the stdlib-adjacent idiom for this).
package cache

import (
	"container/heap"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/grafana/lakehouse/lakehouse/backend"
)

type Config struct {
	Path          string        `yaml:"disk_path"`
	MaxDiskMBs    int           `yaml:"disk_max_mbs"`
	PruneCount    int           `yaml:"disk_prune_count"`
	DiskCleanRate time.Duration `yaml:"disk_clean_rate"`
}

type reader struct {
	cfg  *Config
	next backend.Reader

	lock   sync.RWMutex
	group  singleflight.Group
	stopCh chan struct{}
}

func New(next backend.Reader, cfg *Config) (*reader, error) {
	if err := os.RemoveAll(cfg.Path); err != nil {
		return nil, fmt.Errorf("disk cache: clean dir: %w", err)
	}
	if err := os.MkdirAll(cfg.Path, os.ModePerm); err != nil {
		return nil, fmt.Errorf("disk cache: mkdir: %w", err)
	}
	if cfg.PruneCount == 0 {
		return nil, fmt.Errorf("disk cache: must specify prune count")
	}
	if cfg.DiskCleanRate == 0 {
		return nil, fmt.Errorf("disk cache: must specify clean rate")
	}
	if cfg.MaxDiskMBs == 0 {
		return nil, fmt.Errorf("disk cache: must specify max disk mbs")
	}

	r := &reader{
		cfg:    cfg,
		next:   next,
		stopCh: make(chan struct{}),
	}
	go r.startJanitor()
	return r, nil
}

func (r *reader) List(ctx context.Context, prefix string) ([]string, error) {
	return r.next.List(ctx, prefix)
}

func (r *reader) Size(ctx context.Context, path string) (int64, error) {
	return r.next.Size(ctx, path)
}

// Read is the cached path: whole-object reads of Parquet footers and small
// metadata files are what benefit from disk caching. ReadRange passes through
// uncached, matching friggdb's Object() method which never cached ranged reads.
func (r *reader) Read(ctx context.Context, path string) ([]byte, error) {
	return r.readOrCacheToDisk(ctx, path)
}

func (r *reader) ReadRange(ctx context.Context, path string, offset int64, length int64) ([]byte, error) {
	return r.next.ReadRange(ctx, path, offset, length)
}

func (r *reader) Shutdown() {
	close(r.stopCh)
	r.next.Shutdown()
}

func (r *reader) diskPath(key string) string {
	return filepath.Join(r.cfg.Path, filepath.FromSlash(key))
}

func (r *reader) readOrCacheToDisk(ctx context.Context, path string) ([]byte, error) {
	r.lock.RLock()
	b, err := os.ReadFile(r.diskPath(path))
	r.lock.RUnlock()
	if err == nil {
		return b, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("disk cache: read %s: %w", path, err)
	}

	v, err, _ := r.group.Do(path, func() (interface{}, error) {
		data, err := r.next.Read(ctx, path)
		if err != nil {
			return nil, err
		}
		if err := r.writeToDisk(path, data); err != nil {
			return data, fmt.Errorf("disk cache: write %s: %w", path, err)
		}
		return data, nil
	})
	if v == nil {
		return nil, err
	}
	return v.([]byte), err
}

func (r *reader) writeToDisk(key string, data []byte) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	full := r.diskPath(key)
	if err := os.MkdirAll(filepath.Dir(full), os.ModePerm); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o644)
}

func (r *reader) startJanitor() {
	ticker := time.NewTicker(r.cfg.DiskCleanRate)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			for clean(r.cfg.Path, r.cfg.MaxDiskMBs, r.cfg.PruneCount) {
			}
		case <-r.stopCh:
			return
		}
	}
}

func clean(folder string, allowedMBs int, pruneCount int) bool {
	var totalSize int64
	fileInfoHeap := fileInfoHeap(make([]os.FileInfo, 0, pruneCount))
	heap.Init(&fileInfoHeap)
	paths := make(map[os.FileInfo]string)

	_ = filepath.Walk(folder, func(p string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		totalSize += info.Size()
		paths[info] = p
		for len(fileInfoHeap) >= cap(fileInfoHeap) {
			heap.Pop(&fileInfoHeap)
		}
		heap.Push(&fileInfoHeap, info)
		return nil
	})

	if totalSize < int64(allowedMBs)*1024*1024 {
		return false
	}

	for fileInfoHeap.Len() > 0 {
		info := heap.Pop(&fileInfoHeap).(os.FileInfo)
		if info == nil {
			continue
		}
		_ = os.Remove(paths[info])
	}
	return true
}

// fileInfoHeap is ordered so the most recently modified file pops first:
// popping whenever it is full leaves the pruneCount oldest-modified files,
// which clean then removes. This is the same ModTime-based ordering friggdb falls back to when atime isn't
// available (we drop its Linux-only syscall.Stat_t atime path entirely).
type fileInfoHeap []os.FileInfo

func (h fileInfoHeap) Len() int { return len(h) }
func (h fileInfoHeap) Less(i, j int) bool {
	return h[i].ModTime().After(h[j].ModTime())
}
func (h fileInfoHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *fileInfoHeap) Push(x interface{}) {
	*h = append(*h, x.(os.FileInfo))
}
func (h *fileInfoHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return item
}
