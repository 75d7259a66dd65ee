// Package batch materializes a view's global partitions over a time range
// on a fixed schedule, grounded on
// original_source/rust/analytics/src/lakehouse/batch_update.rs's
// create_or_update_minute_partitions/create_or_update_partition: align the
// requested range to the view's partition granularity, skip any aligned
// slot the catalog already has up to date, and funnel the rest through the
// block processors and the partition writer.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/grafana/lakehouse/lakehouse/backend"
	"github.com/grafana/lakehouse/lakehouse/blockproc"
	"github.com/grafana/lakehouse/lakehouse/catalog"
	"github.com/grafana/lakehouse/lakehouse/codec"
	"github.com/grafana/lakehouse/lakehouse/metastore"
	"github.com/grafana/lakehouse/lakehouse/rowset"
	"github.com/grafana/lakehouse/lakehouse/view"
	"github.com/grafana/lakehouse/lakehouse/writer"
)

// Blobs is the read-write blob storage surface this package needs: Reader to
// fetch the source blocks, Writer to upload the materialized partition.
// The local backend (local.New) and every other backend.Reader+Writer
// implementation in the pack satisfies this without extra wiring.
type Blobs interface {
	backend.Reader
	backend.Writer
}

// GlobalViewSpec binds a global-instance view to the stream tag its source
// blocks carry and the block processor that turns them into rows - the Go
// stand-in for an `Arc<dyn View>` carrying both a make_batch_partition_spec
// implementation and an implicit block processor choice, split apart here
// since a generic writer needs the row type T at
// the call site rather than behind an interface.
type GlobalViewSpec struct {
	View      view.View
	Tag       string
	Processor blockproc.Processor
}

// alignRange truncates begin down and rounds end up to multiples of delta,
// mirroring create_or_update_minute_partitions's duration_trunc plus the
// fixed 15-partition lookback window generalized to an arbitrary range.
func alignRange(r view.TimeRange, delta time.Duration) (time.Time, time.Time) {
	begin := r.Begin.UTC().Truncate(delta)
	end := r.End.UTC()
	if truncated := end.Truncate(delta); truncated.Before(end) {
		end = truncated.Add(delta)
	}
	if !end.After(begin) {
		end = begin.Add(delta)
	}
	return begin, end
}

// MaterializePartitionRange is materialize_partition_range: aligns
// insertRange to spec.View's partition granularity for the batch strategy,
// then materializes each aligned subrange in order.
func MaterializePartitionRange[T any](ctx context.Context, store *metastore.Store, blobs Blobs, cat *catalog.Catalog, spec GlobalViewSpec, insertRange view.TimeRange, tempFileExpiration time.Duration) error {
	delta := spec.View.MaxPartitionTimeDelta(view.StrategyBatch)
	if delta <= 0 {
		return fmt.Errorf("batch: view %s has no positive partition delta", spec.View.ViewSetName())
	}

	begin, end := alignRange(insertRange, delta)
	for b := begin; b.Before(end); b = b.Add(delta) {
		e := b.Add(delta)
		if err := materializeSlot[T](ctx, store, blobs, cat, spec, b, e, tempFileExpiration); err != nil {
			return fmt.Errorf("batch: materialize %s [%s,%s): %w", spec.View.ViewSetName(), b, e, err)
		}
	}
	return nil
}

func materializeSlot[T any](ctx context.Context, store *metastore.Store, blobs Blobs, cat *catalog.Catalog, spec GlobalViewSpec, begin, end time.Time, tempFileExpiration time.Duration) error {
	blocks, err := store.FindBlocksTaggedInRange(ctx, spec.Tag, begin, end)
	if err != nil {
		return fmt.Errorf("find blocks tagged %q: %w", spec.Tag, err)
	}

	sourceHash := rowset.SourceDataHash(metastore.SumNbObjects(blocks))
	status, err := cat.CheckRange(ctx, spec.View.ViewSetName(), spec.View.ViewInstanceID(), begin, end, sourceHash, spec.View.FileSchemaHash())
	if err != nil {
		return fmt.Errorf("check catalog range: %w", err)
	}
	if status.UpToDate {
		return nil
	}

	rowSets := make([]*blockproc.RowSet, 0, len(blocks))
	processCache := make(map[string]metastore.Process)
	streamCache := make(map[string]metastore.Stream)
	metaCache := make(map[string]codec.StreamMetadata)

	for _, block := range blocks {
		proc, ok := processCache[block.ProcessID.String()]
		if !ok {
			proc, err = store.FindProcess(ctx, block.ProcessID)
			if err != nil {
				return fmt.Errorf("find process %s: %w", block.ProcessID, err)
			}
			processCache[block.ProcessID.String()] = proc
		}

		stream, ok := streamCache[block.StreamID.String()]
		if !ok {
			stream, err = store.FindStream(ctx, block.StreamID)
			if err != nil {
				return fmt.Errorf("find stream %s: %w", block.StreamID, err)
			}
			streamCache[block.StreamID.String()] = stream
		}

		meta, ok := metaCache[block.StreamID.String()]
		if !ok {
			meta, err = blockproc.DecodeStreamMetadata(stream)
			if err != nil {
				return fmt.Errorf("decode stream metadata %s: %w", block.StreamID, err)
			}
			metaCache[block.StreamID.String()] = meta
		}

		src := blockproc.Source{Process: proc, Stream: stream, Block: block}
		rs, err := blockproc.Run(ctx, blobs, meta, src, spec.Processor)
		if err != nil {
			return fmt.Errorf("process block %s: %w", block.BlockID, err)
		}
		rowSets = append(rowSets, rs)
	}

	params := writer.Params{
		ViewSetName:        spec.View.ViewSetName(),
		ViewInstanceID:     spec.View.ViewInstanceID(),
		SchemaHash:         spec.View.FileSchemaHash(),
		BeginInsert:        begin,
		EndInsert:          end,
		SourceDataHash:     sourceHash,
		TempFileExpiration: tempFileExpiration,
	}

	_, err = writer.WritePartition[T](ctx, blobs, store, params, rowSets, status.Superseded)
	return err
}
