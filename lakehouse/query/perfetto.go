package query

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/grafana/lakehouse/lakehouse/rowset"
	"github.com/grafana/lakehouse/lakehouse/view"
)

// SpanKind selects which per-process JIT view(s) perfetto_trace_chunks
// reads from, the Go equivalent of the SpanTypes enum it's grounded on.
type SpanKind string

const (
	SpanKindThread SpanKind = "thread"
	SpanKindAsync  SpanKind = "async"
	SpanKindBoth   SpanKind = "both"
)

// TraceChunk is one row of perfetto_trace_chunks's output: chunk_id plus an
// opaque binary payload. Framed Perfetto protobuf TracePacket bytes are the
// eventual target, but no Perfetto protobuf schema is available to encode
// against, and the chunk-assembly file (perfetto_trace_execution_plan.rs)
// isn't present either to follow, so ChunkData here is a JSON-encoded batch
// of spans instead - the (process, span kind, time range) -> chunked row
// stream shape is kept, the wire format is not.
type TraceChunk struct {
	ChunkID   int32
	ChunkData []byte
}

// traceSpan is one row of a chunk's JSON payload, a flattened view over
// either a thread or an async span.
type traceSpan struct {
	Kind      SpanKind  `json:"kind"`
	ThreadID  int64     `json:"thread_id,omitempty"`
	SpanID    int64     `json:"span_id"`
	ParentID  int64     `json:"parent_id"`
	Name      string    `json:"name"`
	Target    string    `json:"target"`
	BeginTime time.Time `json:"begin_time"`
	EndTime   time.Time `json:"end_time,omitempty"`
}

// defaultChunkSize bounds how many spans are packed into one TraceChunk,
// keeping individual chunks small enough to stream incrementally.
const defaultChunkSize = 1000

// PerfettoTraceChunks is the perfetto_trace_chunks(process_id, span_kind,
// begin, end) table function: it scans the requested per-process views
// (thread_spans and/or async_events, JIT-updating each first) and packs
// the resulting spans into fixed-size chunks in time order.
func (eng *Engine) PerfettoTraceChunks(ctx context.Context, processID string, kind SpanKind, begin, end time.Time) ([]TraceChunk, error) {
	tr := view.NewTimeRange(begin, end)

	var spans []traceSpan
	if kind == SpanKindThread || kind == SpanKindBoth {
		rows, err := Scan[rowset.ThreadEventRow](ctx, eng, "thread_spans", processID, tr)
		if err != nil {
			return nil, fmt.Errorf("query: perfetto_trace_chunks thread spans: %w", err)
		}
		for _, r := range rows {
			spans = append(spans, traceSpan{Kind: SpanKindThread, ThreadID: r.ThreadID, SpanID: r.SpanID, ParentID: r.ParentID, Name: r.Name, Target: r.Target, BeginTime: r.BeginTime, EndTime: r.EndTime})
		}
	}
	if kind == SpanKindAsync || kind == SpanKindBoth {
		rows, err := Scan[rowset.AsyncEventRow](ctx, eng, "async_events", processID, tr)
		if err != nil {
			return nil, fmt.Errorf("query: perfetto_trace_chunks async events: %w", err)
		}
		for _, r := range rows {
			spans = append(spans, traceSpan{Kind: SpanKindAsync, SpanID: r.SpanID, ParentID: r.ParentID, Name: r.Name, Target: r.Target, BeginTime: r.Time})
		}
	}

	sort.SliceStable(spans, func(i, j int) bool { return spans[i].BeginTime.Before(spans[j].BeginTime) })

	var chunks []TraceChunk
	for i := 0; i < len(spans); i += defaultChunkSize {
		end := i + defaultChunkSize
		if end > len(spans) {
			end = len(spans)
		}
		data, err := json.Marshal(spans[i:end])
		if err != nil {
			return nil, fmt.Errorf("query: perfetto_trace_chunks encode: %w", err)
		}
		chunks = append(chunks, TraceChunk{ChunkID: int32(len(chunks)), ChunkData: data})
	}
	return chunks, nil
}
