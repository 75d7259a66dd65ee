package view

import (
	"context"
	"time"
)

// globalView is the shared shape behind every single-instance view set
// (processes, streams, blocks, log_entries, measures): view_instance_id is
// always "global", and JITUpdate is a no-op because these are only ever
// materialized by the maintenance daemon's batch schedule (MetricsView::
// jit_update documents this same split: "this view instance is updated
// using the deamon").
type globalView struct {
	viewSetName string
	schemaHash  []byte
	timeColumn  string
	updateGroup UpdateGroup
	minuteDelta time.Duration
	hourDelta   time.Duration
}

func (v globalView) ViewSetName() string    { return v.viewSetName }
func (v globalView) ViewInstanceID() string { return "global" }
func (v globalView) FileSchemaHash() []byte { return v.schemaHash }
func (v globalView) TimeColumn() string     { return v.timeColumn }

func (v globalView) UpdateGroupOf() (UpdateGroup, bool) {
	return v.updateGroup, true
}

func (v globalView) MaxPartitionTimeDelta(strategy Strategy) time.Duration {
	if v.updateGroup == UpdateGroupMinute {
		return v.minuteDelta
	}
	return v.hourDelta
}

func (globalView) JITUpdate(ctx context.Context, queryRange *TimeRange) error { return nil }

// NewLogEntries builds the log_entries view set's single global instance.
// Grounded on original_source/rust/analytics/src/lakehouse/metrics_view.rs's
// MetricsView shape; log_entries has no standalone view source file to
// copy from, so its schema hash/update group/delta are chosen by the same
// conventions metrics_view.rs uses for its sibling high-frequency view.
func NewLogEntries(instanceID string) (View, error) {
	return globalView{
		viewSetName: "log_entries",
		schemaHash:  []byte{1},
		timeColumn:  "time",
		updateGroup: UpdateGroupMinute,
		minuteDelta: time.Minute,
		hourDelta:   time.Hour,
	}, nil
}

// NewMeasures builds the measures view set's single global instance,
// grounded directly on metrics_view.rs: schema_hash vec![4], update group
// 2000 (UpdateGroupHour) for the global instance, 1h max partition delta
// regardless of strategy (get_max_partition_time_delta ignores its
// strategy argument in the original).
func NewMeasures(instanceID string) (View, error) {
	return globalView{
		viewSetName: "measures",
		schemaHash:  []byte{4},
		timeColumn:  "time",
		updateGroup: UpdateGroupHour,
		minuteDelta: time.Hour,
		hourDelta:   time.Hour,
	}, nil
}

// NewProcesses/NewStreams/NewBlocks build the three metadata-passthrough
// view sets: thin projections of the metastore's processes/streams/blocks
// tables rather than block-processed data, grounded on
// original_source/rust/analytics/src/lakehouse/blocks_view.rs (the same
// direct-SQL-backed shape; processes/streams have no dedicated source file
// in the pack but follow blocks_view.rs's pattern exactly).
func NewProcesses(instanceID string) (View, error) {
	return globalView{
		viewSetName: "processes",
		schemaHash:  []byte{1},
		timeColumn:  "insert_time",
		updateGroup: UpdateGroupHour,
		minuteDelta: time.Hour,
		hourDelta:   time.Hour,
	}, nil
}

func NewStreams(instanceID string) (View, error) {
	return globalView{
		viewSetName: "streams",
		schemaHash:  []byte{1},
		timeColumn:  "insert_time",
		updateGroup: UpdateGroupHour,
		minuteDelta: time.Hour,
		hourDelta:   time.Hour,
	}, nil
}

func NewBlocks(instanceID string) (View, error) {
	return globalView{
		viewSetName: "blocks",
		schemaHash:  []byte{1},
		timeColumn:  "insert_time",
		updateGroup: UpdateGroupHour,
		minuteDelta: time.Hour,
		hourDelta:   time.Hour,
	}, nil
}

// RegisterBuiltins registers the three metadata views and the two
// block-processed global views into f. Per-instance JIT views (thread_spans,
// async_events) are registered separately by the jit package, which is the
// one that knows how to drive their JITUpdate.
func RegisterBuiltins(f *Factory) {
	f.Register("processes", NewProcesses)
	f.Register("streams", NewStreams)
	f.Register("blocks", NewBlocks)
	f.Register("log_entries", NewLogEntries)
	f.Register("measures", NewMeasures)
}
