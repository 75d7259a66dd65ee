package query

import (
	"context"
	"fmt"
	"time"

	"github.com/grafana/lakehouse/lakehouse/batch"
	"github.com/grafana/lakehouse/lakehouse/blockproc"
	"github.com/grafana/lakehouse/lakehouse/rowset"
	"github.com/grafana/lakehouse/lakehouse/view"
)

// globalBatchBlobs is the read-write surface materialize_partitions needs,
// a superset of Engine's read-only Blobs; kept separate so Engine itself
// doesn't have to carry write access just to serve scans.
type globalBatchBlobs interface {
	batch.Blobs
}

// materializer runs one global view's batch materialization for an
// arbitrary caller-supplied range, type-erased so materialize_partitions
// can dispatch on a view_set_name string the way a SQL table function
// would. Each entry mirrors a view already registered in
// view.RegisterBuiltins.
var materializers = map[string]func(ctx context.Context, eng *Engine, blobs globalBatchBlobs, begin, end time.Time, deltaSeconds int, tempFileExpiration time.Duration) error{
	"log_entries": func(ctx context.Context, eng *Engine, blobs globalBatchBlobs, begin, end time.Time, deltaSeconds int, tempFileExpiration time.Duration) error {
		return materializeGlobal[rowset.LogEntryRow](ctx, eng, blobs, "log_entries", "log", blockproc.LogEntries{}, begin, end, deltaSeconds, tempFileExpiration)
	},
	"measures": func(ctx context.Context, eng *Engine, blobs globalBatchBlobs, begin, end time.Time, deltaSeconds int, tempFileExpiration time.Duration) error {
		return materializeGlobal[rowset.MeasureRow](ctx, eng, blobs, "measures", "metrics", blockproc.Measures{}, begin, end, deltaSeconds, tempFileExpiration)
	},
}

// deltaOverride wraps a view to force MaxPartitionTimeDelta to a
// caller-supplied value, letting materialize_partitions's delta_s argument
// override the view's own batch granularity for one call without touching
// the registered view itself.
type deltaOverride struct {
	view.View
	delta time.Duration
}

func (d deltaOverride) MaxPartitionTimeDelta(view.Strategy) time.Duration { return d.delta }

func materializeGlobal[T any](ctx context.Context, eng *Engine, blobs globalBatchBlobs, viewSetName, tag string, proc blockproc.Processor, begin, end time.Time, deltaSeconds int, tempFileExpiration time.Duration) error {
	v, err := eng.Factory.MakeView(viewSetName, "global")
	if err != nil {
		return fmt.Errorf("query: make view %s: %w", viewSetName, err)
	}
	if deltaSeconds > 0 {
		v = deltaOverride{View: v, delta: time.Duration(deltaSeconds) * time.Second}
	}
	spec := batch.GlobalViewSpec{View: v, Tag: tag, Processor: proc}
	return batch.MaterializePartitionRange[T](ctx, eng.Store, blobs, eng.Catalog, spec, view.NewTimeRange(begin, end), tempFileExpiration)
}

// MaterializePartitions is the materialize_partitions(view_set, begin, end,
// delta_s) table function. delta_s overrides the view's own partition
// granularity for this one call, the same per-call override
// create_or_update_minute_partitions's caller applies by choosing which
// function to invoke.
//
// Table functions like this one are described elsewhere as returning a
// streaming (time, msg) progress log from a background task rather than a
// single row; this port runs synchronously and returns one final error
// instead; there is no physical-plan layer here to emit partial progress
// into.
func (eng *Engine) MaterializePartitions(ctx context.Context, blobs globalBatchBlobs, viewSetName string, begin, end time.Time, deltaSeconds int, tempFileExpiration time.Duration) error {
	materialize, ok := materializers[viewSetName]
	if !ok {
		return fmt.Errorf("query: materialize_partitions: unsupported view set %q", viewSetName)
	}
	return materialize(ctx, eng, blobs, begin, end, deltaSeconds, tempFileExpiration)
}
