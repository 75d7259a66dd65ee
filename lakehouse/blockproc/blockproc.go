// Package blockproc turns a decoded block into one view's row-set. Each
// processor knows the set of type_names it consumes from the codec's decoded
// object stream and silently skips anything else. Grounded on
// original_source/rust/analytics/src/lakehouse/async_events_block_processor.rs's
// BlockProcessor trait (process(blob_storage, src_block) -> Option<RowSet>)
// and the three free-standing per-view walkers it composes with
// (thread_block_processor.rs, async_block_processing.rs, measure.rs).
package blockproc

import (
	"fmt"
	"time"

	"github.com/grafana/lakehouse/lakehouse/codec"
	"github.com/grafana/lakehouse/lakehouse/metastore"
	"github.com/grafana/lakehouse/lakehouse/rowset"
	"github.com/grafana/lakehouse/lakehouse/timeconv"
)

// Source bundles a block with its owning process and stream, everything a
// processor needs to build row identity and a time converter without a
// second metadata-store round trip.
type Source struct {
	Process metastore.Process
	Stream  metastore.Stream
	Block   metastore.Block
}

func (s Source) identity() rowset.Identity {
	return rowset.Identity{
		ProcessID: s.Process.ProcessID,
		StreamID:  s.Stream.StreamID,
		BlockID:   s.Block.BlockID,
	}
}

// converter derives the tick-to-time mapping for the block's process from
// the block's own end timing, the only timing pair a Source carries. Both
// batch and JIT materialization convert event times through it; neither
// uses a FromLatestTiming converter for event times.
func (s Source) converter() (*timeconv.Converter, error) {
	proc := timeconv.Process{
		StartTicks:   s.Process.StartTicks,
		StartTime:    s.Process.StartTime,
		TscFrequency: s.Process.TscFrequency,
	}
	return timeconv.FromProcessTimingPair(proc, s.Block.EndTicks, s.Block.EndTime)
}

// RowSet is the output of a processor: a finished Parquet-encoded batch plus
// the wall-clock range its rows cover, the same pairing used elsewhere
// for the in-memory columnar batch a block processor hands to the partition
// writer.
type RowSet struct {
	TimeRange timeconv.Range
	Parquet   []byte
	NumRows   int
}

// Processor adapts a decoded block into one view's row-set. Returns a nil
// RowSet (not an error) when the block contributed no rows to this view.
type Processor interface {
	ViewName() string
	Process(meta codec.StreamMetadata, payload codec.Payload, src Source) (*RowSet, error)
}

// timeTracker accumulates the observed min/max event time across a
// processor's rows, since parquet-go's writer doesn't expose column
// statistics back to the caller cheaply enough to re-derive it after the
// fact.
type timeTracker struct {
	min, max time.Time
	seen     bool
}

func (t *timeTracker) observe(ts time.Time) {
	if !t.seen {
		t.min, t.max = ts, ts
		t.seen = true
		return
	}
	if ts.Before(t.min) {
		t.min = ts
	}
	if ts.After(t.max) {
		t.max = ts
	}
}

func fieldErr(view, field string, err error) error {
	return fmt.Errorf("blockproc: %s: reading %s: %w", view, field, err)
}

func timeOf(nanos int64) time.Time {
	return time.Unix(0, nanos).UTC()
}

func timeconvRange(t *timeTracker) timeconv.Range {
	if !t.seen {
		return timeconv.Range{}
	}
	return timeconv.NewRange(t.min, t.max)
}
