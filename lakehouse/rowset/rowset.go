// Package rowset builds the columnar row-sets each view materializes into a
// Parquet partition. parquet-go stands in for the Arrow-go memory model the
// original uses: grafana-tempo already depends on
// github.com/parquet-go/parquet-go directly and uses its generic
// Reader[T]/Writer[T] API (cmd/tempo-cli's vparquet3/vparquet4 converters),
// so row-sets here are plain Go structs with parquet struct tags rather than
// an Arrow RecordBatch builder.
package rowset

import (
	"time"

	"github.com/google/uuid"
)

// LogEntryRow is one row of the log_entries view.
type LogEntryRow struct {
	ProcessID  string    `parquet:"process_id,dict"`
	StreamID   string    `parquet:"stream_id,dict"`
	BlockID    string    `parquet:"block_id,dict"`
	Time       time.Time `parquet:"time,timestamp"`
	Level      int32     `parquet:"level"`
	Target     string    `parquet:"target,dict"`
	Msg        string    `parquet:"msg"`
	Properties []byte    `parquet:"properties,dict"`
}

// MeasureRow is one row of the measures view.
type MeasureRow struct {
	ProcessID  string    `parquet:"process_id,dict"`
	StreamID   string    `parquet:"stream_id,dict"`
	BlockID    string    `parquet:"block_id,dict"`
	Time       time.Time `parquet:"time,timestamp"`
	Target     string    `parquet:"target,dict"`
	Name       string    `parquet:"name,dict"`
	Unit       string    `parquet:"unit,dict"`
	Value      float64   `parquet:"value"`
	Properties []byte    `parquet:"properties,dict"`
}

// ThreadEventRow is one row of the thread_events view: synchronous
// begin/end span events on a single thread.
type ThreadEventRow struct {
	ProcessID  string    `parquet:"process_id,dict"`
	StreamID   string    `parquet:"stream_id,dict"`
	BlockID    string    `parquet:"block_id,dict"`
	ThreadID   int64     `parquet:"thread_id"`
	SpanID     int64     `parquet:"span_id"`
	ParentID   int64     `parquet:"parent_id"`
	Name       string    `parquet:"name,dict"`
	Target     string    `parquet:"target,dict"`
	BeginTime  time.Time `parquet:"begin_time,timestamp"`
	EndTime    time.Time `parquet:"end_time,timestamp"`
	Depth      int32     `parquet:"depth"`
	Properties []byte    `parquet:"properties,dict"`
}

// AsyncEventRow is one row of the async_events view: begin/end events on a
// span identified by a span_id that may cross threads.
type AsyncEventRow struct {
	ProcessID  string    `parquet:"process_id,dict"`
	StreamID   string    `parquet:"stream_id,dict"`
	BlockID    string    `parquet:"block_id,dict"`
	SpanID     int64     `parquet:"span_id"`
	ParentID   int64     `parquet:"parent_id"`
	Name       string    `parquet:"name,dict"`
	Target     string    `parquet:"target,dict"`
	EventType  string    `parquet:"event_type,dict"` // "begin" or "end"
	Time       time.Time `parquet:"time,timestamp"`
	Properties []byte    `parquet:"properties,dict"`
}

// Identity is the (process, stream, block) triple every row carries,
// factored out since every block processor stamps it identically.
type Identity struct {
	ProcessID uuid.UUID
	StreamID  uuid.UUID
	BlockID   uuid.UUID
}

func (id Identity) strings() (string, string, string) {
	return id.ProcessID.String(), id.StreamID.String(), id.BlockID.String()
}

// Timed is satisfied by every row type here; the query engine uses it
// to apply the inexact time-range predicate DataFusion would otherwise push
// down through Arrow statistics, since this port has no such engine to do
// that evaluation for it.
type Timed interface {
	EventTime() time.Time
}

func (r LogEntryRow) EventTime() time.Time   { return r.Time }
func (r MeasureRow) EventTime() time.Time    { return r.Time }
func (r ThreadEventRow) EventTime() time.Time { return r.BeginTime }
func (r AsyncEventRow) EventTime() time.Time { return r.Time }
