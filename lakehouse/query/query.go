// Package query is the read path every view set is served through.
// Grounded on original_source/rust/analytics/src/lakehouse/query.rs and
// view_factory.rs, which wrap each view as a DataFusion TableProvider and
// run `(sql, Option<TimeRange>)` against an Apache Arrow DataFusion
// session. There's no embeddable SQL engine or Arrow implementation for Go
// available to build this against, so this package is hand-built on the
// standard library plus the same parquet-go/pgx stack every other package
// already uses: a Go API playing the TableProvider's role (Scan, per-view
// pushdown, JIT-at-scan-time) without a SQL string parser in front of it.
// Callers that want SQL text bring their own parser and call these methods
// from the plan they build.
package query

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/grafana/lakehouse/lakehouse/backend"
	"github.com/grafana/lakehouse/lakehouse/catalog"
	"github.com/grafana/lakehouse/lakehouse/filecache"
	"github.com/grafana/lakehouse/lakehouse/metastore"
	"github.com/grafana/lakehouse/lakehouse/rowset"
	"github.com/grafana/lakehouse/lakehouse/view"
)

// Blobs is the read surface the query path needs: whole-object reads go
// through the file cache, so only Reader is required here.
type Blobs interface {
	backend.Reader
}

// Engine binds a view factory to the storage it reads through: the
// metastore for catalog lookups and metadata-passthrough view sets, the
// object store (via the file cache) for materialized Parquet partitions.
// One Engine is shared process-wide; callers that need per-reader footer
// caching construct a filecache.ReaderMetadataCache per scan instead of
// reusing Engine's own cache.
type Engine struct {
	Store   *metastore.Store
	Blobs   Blobs
	Catalog *catalog.Catalog
	Factory *view.Factory
	Files   *filecache.Cache
}

// New builds an Engine; files may be nil, in which case every scan reads
// its partitions straight from the object store with no whole-object
// caching.
func New(store *metastore.Store, blobs Blobs, cat *catalog.Catalog, factory *view.Factory, files *filecache.Cache) *Engine {
	return &Engine{Store: store, Blobs: blobs, Catalog: cat, Factory: factory, Files: files}
}

// Scan serves one materialized view instance: JIT-update it for the
// requested range, consult the partition cache, then read every
// overlapping partition and apply the time-range predicate itself, since
// the partition selection above only advertises pushdown - it does not
// evaluate the predicate exactly.
func Scan[T rowset.Timed](ctx context.Context, eng *Engine, viewSetName, instanceID string, tr view.TimeRange) ([]T, error) {
	v, err := eng.Factory.MakeView(viewSetName, instanceID)
	if err != nil {
		return nil, fmt.Errorf("query: make view %s/%s: %w", viewSetName, instanceID, err)
	}
	if err := v.JITUpdate(ctx, &tr); err != nil {
		return nil, fmt.Errorf("query: jit update %s/%s: %w", viewSetName, instanceID, err)
	}

	partitions, err := eng.Catalog.PartitionsForView(ctx, v.ViewSetName(), v.ViewInstanceID(), tr.Begin, tr.End)
	if err != nil {
		return nil, fmt.Errorf("query: partitions for view: %w", err)
	}

	var out []T
	for _, p := range partitions {
		// A partition left behind by a breaking schema bump is treated as
		// missing rather than decoded as the current row type T: it doesn't
		// match v.FileSchemaHash(), so reading its bytes as T would silently
		// misinterpret columns instead of erroring.
		if !bytes.Equal(p.FileSchemaHash, v.FileSchemaHash()) {
			continue
		}
		data, err := eng.readPartition(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("query: read partition %s: %w", p.FilePath, err)
		}
		rows, err := readAllRows[T](data)
		if err != nil {
			return nil, fmt.Errorf("query: decode partition %s: %w", p.FilePath, err)
		}
		// The catalog only filters by insert-range overlap, a coarser bound
		// than the query's actual [begin, end) event-time window, so every
		// row still needs the predicate applied here rather than trusting
		// the partition selection alone.
		for _, row := range rows {
			t := row.EventTime()
			if t.Before(tr.Begin) || !t.Before(tr.End) {
				continue
			}
			out = append(out, row)
		}
	}
	return out, nil
}

// readPartition fetches a partition's bytes, going through the file cache
// when one is configured (every partition this port writes is well under
// the cache's default 10 MB eligibility ceiling; oversized partitions fall
// back to a direct read instead).
func (eng *Engine) readPartition(ctx context.Context, p metastore.Partition) ([]byte, error) {
	if eng.Files == nil || !eng.Files.ShouldCache(p.FileSize) {
		return eng.Blobs.Read(ctx, p.FilePath)
	}
	return eng.Files.GetOrLoad(ctx, p.FilePath, p.FileSize, func(ctx context.Context) ([]byte, error) {
		return eng.Blobs.Read(ctx, p.FilePath)
	})
}

func readAllRows[T any](data []byte) ([]T, error) {
	reader := parquet.NewGenericReader[T](bytes.NewReader(data))
	defer reader.Close()

	var out []T
	buf := make([]T, 1024)
	for {
		n, err := reader.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// ListProcesses, ListStreams and ListBlocks serve the metadata-passthrough
// view sets (view.NewProcesses et al.): these have no Parquet partitions to
// scan, so the engine reads the metastore tables directly instead of
// routing through Scan.
func (eng *Engine) ListProcesses(ctx context.Context, tr view.TimeRange) ([]metastore.Process, error) {
	return eng.Store.ListProcessesInRange(ctx, tr.Begin, tr.End)
}

func (eng *Engine) ListStreams(ctx context.Context, tr view.TimeRange) ([]metastore.Stream, error) {
	return eng.Store.ListStreamsInRange(ctx, tr.Begin, tr.End)
}

func (eng *Engine) ListBlocks(ctx context.Context, tr view.TimeRange) ([]metastore.Block, error) {
	return eng.Store.ListBlocksInRange(ctx, tr.Begin, tr.End)
}

// ListViewSets is the list_view_sets() table function.
func (eng *Engine) ListViewSets() []string {
	return eng.Factory.ViewSetNames()
}

// ListPartitions is the list_partitions() table function.
func (eng *Engine) ListPartitions(ctx context.Context) ([]metastore.Partition, error) {
	return eng.Store.ListAllPartitions(ctx)
}

// RetirePartitionByFile is the retire_partition_by_file(path) table
// function.
func (eng *Engine) RetirePartitionByFile(ctx context.Context, filePath string, tempFileExpiration time.Duration) error {
	return eng.Catalog.RetireByFile(ctx, filePath, tempFileExpiration)
}

// RetirePartitionsInRange retires every partition of the given view set and
// instance whose insert range falls within [begin,end), for the
// retire-partitions maintenance CLI subcommand. Returns the number of
// partitions retired.
func (eng *Engine) RetirePartitionsInRange(ctx context.Context, viewSetName, instanceID string, begin, end time.Time, tempFileExpiration time.Duration) (int, error) {
	partitions, err := eng.Store.ListPartitionsContained(ctx, viewSetName, instanceID, begin, end)
	if err != nil {
		return 0, fmt.Errorf("query: list partitions to retire: %w", err)
	}
	for _, p := range partitions {
		if err := eng.RetirePartitionByFile(ctx, p.FilePath, tempFileExpiration); err != nil {
			return 0, fmt.Errorf("query: retire partition %s: %w", p.FilePath, err)
		}
	}
	return len(partitions), nil
}

// DeleteDuplicateBlocks, DeleteDuplicateStreams and DeleteDuplicateProcesses
// are the delete_duplicate_{blocks,streams,processes}() table functions.
func (eng *Engine) DeleteDuplicateProcesses(ctx context.Context) (int64, error) {
	return eng.Store.DeleteDuplicateProcesses(ctx)
}

func (eng *Engine) DeleteDuplicateStreams(ctx context.Context) (int64, error) {
	return eng.Store.DeleteDuplicateStreams(ctx)
}

func (eng *Engine) DeleteDuplicateBlocks(ctx context.Context) (int64, error) {
	return eng.Store.DeleteDuplicateBlocks(ctx)
}
