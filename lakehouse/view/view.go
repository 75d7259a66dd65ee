// Package view is the static registry of view-sets and the per-view
// metadata (schema hash, time bounds, update group, partitioning strategy)
// every other lakehouse component reads off a view rather than re-deriving.
// Grounded on original_source/rust/analytics/src/lakehouse/{view,
// view_factory,metrics_view,blocks_view,async_events_view}.rs: the Rust
// `View` trait's method set is ported directly, generics replacing the
// trait-object/Arc<dyn View> pattern since Go has no inheritance story that
// needs one.
package view

import (
	"context"
	"time"
)

// Strategy selects which partitioning path a view is materialized through:
// Batch for time-sliced global views on the cron schedule, JIT for
// per-instance views materialized on first query.
type Strategy int

const (
	StrategyBatch Strategy = iota
	StrategyJIT
)

// UpdateGroup buckets batch views by how often the maintenance daemon
// re-materializes them. Per-instance JIT views have no update group: they
// are never touched by the daemon's cron tasks.
type UpdateGroup int

const (
	// NoUpdateGroup marks a view the daemon never schedules (JIT-only views).
	NoUpdateGroup UpdateGroup = 0
	UpdateGroupMinute UpdateGroup = 1000
	UpdateGroupHour   UpdateGroup = 2000
	UpdateGroupDay    UpdateGroup = 3000
)

// TimeRange is the half-open query window passed to jit_update and to
// time-filter pushdown, kept distinct from timeconv.Range since this one is
// always expressed as plain begin/end instants with no tick/process
// association.
type TimeRange struct {
	Begin time.Time
	End   time.Time
}

func NewTimeRange(begin, end time.Time) TimeRange { return TimeRange{Begin: begin, End: end} }

// View is one materialized logical table: either a single shared "global"
// instance (log_entries, measures, processes/streams/blocks) or one instance
// per key such as a process id (thread_spans, async_events, per-process
// metrics).
type View interface {
	ViewSetName() string
	ViewInstanceID() string

	// FileSchemaHash is bumped whenever the output schema changes in a way
	// that invalidates existing partitions; partitions with a stale hash are
	// treated as missing by the catalog.
	FileSchemaHash() []byte

	// TimeColumn names the single column make_time_filter pushes begin/end
	// predicates against; min and max event-time share one column for every
	// view currently shipped, so there is no separate min/max accessor.
	TimeColumn() string

	// UpdateGroupOf reports the daemon scheduling bucket for this view
	// instance, or ok=false if it is JIT-only and never daemon-scheduled.
	UpdateGroupOf() (group UpdateGroup, ok bool)

	// MaxPartitionTimeDelta is the granularity batch/JIT partitioning slices
	// this view's insert-time range into.
	MaxPartitionTimeDelta(strategy Strategy) time.Duration

	// JITUpdate materializes any missing per-instance partitions for
	// queryRange. Global-instance views return immediately (nil): they are
	// only ever updated by the maintenance daemon's batch schedule.
	JITUpdate(ctx context.Context, queryRange *TimeRange) error
}

// Maker constructs one view instance by instance id ("global" for
// single-instance views, a process/stream UUID string otherwise).
type Maker func(instanceID string) (View, error)

// Factory maps a view_set_name to the Maker that builds its instances,
// mirroring make_view(view_set_name, view_instance_id).
type Factory struct {
	makers map[string]Maker
}

func NewFactory() *Factory {
	return &Factory{makers: make(map[string]Maker)}
}

func (f *Factory) Register(viewSetName string, maker Maker) {
	f.makers[viewSetName] = maker
}

func (f *Factory) ViewSetNames() []string {
	names := make([]string, 0, len(f.makers))
	for name := range f.makers {
		names = append(names, name)
	}
	return names
}

type unknownViewSetError struct{ name string }

func (e unknownViewSetError) Error() string { return "view: unknown view set " + e.name }

func (f *Factory) MakeView(viewSetName, instanceID string) (View, error) {
	maker, ok := f.makers[viewSetName]
	if !ok {
		return nil, unknownViewSetError{name: viewSetName}
	}
	return maker(instanceID)
}
