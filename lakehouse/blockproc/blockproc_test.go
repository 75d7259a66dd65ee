package blockproc

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafana/lakehouse/lakehouse/codec"
	"github.com/grafana/lakehouse/lakehouse/codec/codectest"
	"github.com/grafana/lakehouse/lakehouse/metastore"
)

func testSource(t *testing.T) Source {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	proc := metastore.Process{
		ProcessID:    uuid.New(),
		StartTime:    start,
		StartTicks:   0,
		TscFrequency: 1_000_000_000, // one tick per nanosecond, so ticks_to_nanos is trivial to reason about
	}
	stream := metastore.Stream{StreamID: uuid.New(), ProcessID: proc.ProcessID}
	block := metastore.Block{
		BlockID:   uuid.New(),
		StreamID:  stream.StreamID,
		ProcessID: proc.ProcessID,
		EndTicks:  3000,
		EndTime:   start.Add(3000 * time.Nanosecond),
	}
	return Source{Process: proc, Stream: stream, Block: block}
}

func encodeObjects(t *testing.T, objs []codectest.Object) codec.Payload {
	t.Helper()
	b, err := codectest.EncodeSection(objs)
	require.NoError(t, err)
	return codec.Payload{Objects: b}
}

func TestLogEntriesProcessesKnownType(t *testing.T) {
	meta := codec.StreamMetadata{
		DependenciesMetadata: []codec.UserDefinedType{
			{Name: "LogMetadata", Members: []codec.MemberType{{Name: "target"}, {Name: "level"}}},
		},
		ObjectsMetadata: []codec.UserDefinedType{
			{Name: "LogStringEventV2", Members: []codec.MemberType{{Name: "desc"}, {Name: "time"}, {Name: "msg"}}},
			{Name: "SomeOtherEvent", Members: []codec.MemberType{{Name: "n"}}},
		},
	}
	objs := []codectest.Object{
		{Type: "LogStringEventV2", Members: []codectest.Value{
			codectest.Obj(codectest.Object{Type: "LogMetadata", Members: []codectest.Value{
				codectest.Str("app"), codectest.Scalar(uint32(2)),
			}}),
			codectest.Scalar(int64(1000)),
			codectest.Str("hello"),
		}},
		{Type: "SomeOtherEvent", Members: []codectest.Value{codectest.Scalar(uint32(1))}},
	}
	payload := encodeObjects(t, objs)

	rs, err := (LogEntries{}).Process(meta, payload, testSource(t))
	require.NoError(t, err)
	require.NotNil(t, rs)
	assert.Equal(t, 1, rs.NumRows)
	assert.NotEmpty(t, rs.Parquet)
}

func TestLogEntriesEmptyBlockReturnsNil(t *testing.T) {
	meta := codec.StreamMetadata{
		ObjectsMetadata: []codec.UserDefinedType{
			{Name: "SomeOtherEvent", Members: []codec.MemberType{{Name: "n"}}},
		},
	}
	objs := []codectest.Object{{Type: "SomeOtherEvent", Members: []codectest.Value{codectest.Scalar(uint32(1))}}}
	payload := encodeObjects(t, objs)

	rs, err := (LogEntries{}).Process(meta, payload, testSource(t))
	require.NoError(t, err)
	assert.Nil(t, rs)
}

func TestMeasuresHandlesBothEventTypes(t *testing.T) {
	meta := codec.StreamMetadata{
		DependenciesMetadata: []codec.UserDefinedType{
			{Name: "MetricDesc", Members: []codec.MemberType{{Name: "target"}, {Name: "name"}, {Name: "unit"}}},
		},
		ObjectsMetadata: []codec.UserDefinedType{
			{Name: "FloatMetricEvent", Members: []codec.MemberType{{Name: "time"}, {Name: "value"}, {Name: "desc"}}},
			{Name: "IntegerMetricEvent", Members: []codec.MemberType{{Name: "time"}, {Name: "value"}, {Name: "desc"}}},
		},
	}
	desc := func() codectest.Object {
		return codectest.Object{Type: "MetricDesc", Members: []codectest.Value{
			codectest.Str("app"), codectest.Str("fps"), codectest.Str("hz"),
		}}
	}
	objs := []codectest.Object{
		{Type: "FloatMetricEvent", Members: []codectest.Value{
			codectest.Scalar(int64(1000)), codectest.Scalar(60.5), codectest.Obj(desc()),
		}},
		{Type: "IntegerMetricEvent", Members: []codectest.Value{
			codectest.Scalar(int64(2000)), codectest.Scalar(uint64(42)), codectest.Obj(desc()),
		}},
	}
	payload := encodeObjects(t, objs)

	rs, err := (Measures{}).Process(meta, payload, testSource(t))
	require.NoError(t, err)
	require.NotNil(t, rs)
	assert.Equal(t, 2, rs.NumRows)
}

func TestThreadEventsPairsBeginEnd(t *testing.T) {
	meta := codec.StreamMetadata{
		DependenciesMetadata: []codec.UserDefinedType{
			{Name: "ScopeDesc", Members: []codec.MemberType{{Name: "name"}, {Name: "file"}, {Name: "line"}}},
		},
		ObjectsMetadata: []codec.UserDefinedType{
			{Name: "BeginThreadSpanEvent", Members: []codec.MemberType{{Name: "thread_span_desc"}, {Name: "time"}}},
			{Name: "EndThreadSpanEvent", Members: []codec.MemberType{{Name: "thread_span_desc"}, {Name: "time"}}},
		},
	}
	scope := codectest.Object{Type: "ScopeDesc", Members: []codectest.Value{
		codectest.Str("doWork"), codectest.Str("main.go"), codectest.Scalar(uint32(42)),
	}}
	objs := []codectest.Object{
		{Type: "BeginThreadSpanEvent", Members: []codectest.Value{codectest.Obj(scope), codectest.Scalar(int64(100))}},
		{Type: "EndThreadSpanEvent", Members: []codectest.Value{codectest.Obj(scope), codectest.Scalar(int64(200))}},
	}
	payload := encodeObjects(t, objs)

	rs, err := (ThreadEvents{}).Process(meta, payload, testSource(t))
	require.NoError(t, err)
	require.NotNil(t, rs)
	assert.Equal(t, 1, rs.NumRows)
}

func TestThreadEventsUnmatchedEndIsIgnored(t *testing.T) {
	meta := codec.StreamMetadata{
		ObjectsMetadata: []codec.UserDefinedType{
			{Name: "EndThreadSpanEvent", Members: []codec.MemberType{{Name: "thread_span_desc"}, {Name: "time"}}},
		},
	}
	objs := []codectest.Object{
		{Type: "EndThreadSpanEvent", Members: []codectest.Value{codectest.Scalar(nil), codectest.Scalar(int64(200))}},
	}
	payload := encodeObjects(t, objs)

	rs, err := (ThreadEvents{}).Process(meta, payload, testSource(t))
	require.NoError(t, err)
	assert.Nil(t, rs)
}

func TestAsyncEventsOneRowPerEvent(t *testing.T) {
	meta := codec.StreamMetadata{
		DependenciesMetadata: []codec.UserDefinedType{
			{Name: "SpanDesc", Members: []codec.MemberType{{Name: "name"}, {Name: "file"}, {Name: "target"}, {Name: "line"}}},
		},
		ObjectsMetadata: []codec.UserDefinedType{
			{Name: "BeginAsyncSpanEvent", Members: []codec.MemberType{
				{Name: "span_id"}, {Name: "parent_span_id"}, {Name: "time"}, {Name: "span_desc"},
			}},
			{Name: "EndAsyncSpanEvent", Members: []codec.MemberType{
				{Name: "span_id"}, {Name: "parent_span_id"}, {Name: "time"}, {Name: "span_desc"},
			}},
		},
	}
	spanDesc := codectest.Object{Type: "SpanDesc", Members: []codectest.Value{
		codectest.Str("fetch"), codectest.Str("net.go"), codectest.Str("net"), codectest.Scalar(uint32(10)),
	}}
	objs := []codectest.Object{
		{Type: "BeginAsyncSpanEvent", Members: []codectest.Value{
			codectest.Scalar(uint64(7)), codectest.Scalar(uint64(0)), codectest.Scalar(int64(500)), codectest.Obj(spanDesc),
		}},
		{Type: "EndAsyncSpanEvent", Members: []codectest.Value{
			codectest.Scalar(uint64(7)), codectest.Scalar(uint64(0)), codectest.Scalar(int64(900)), codectest.Obj(spanDesc),
		}},
	}
	payload := encodeObjects(t, objs)

	rs, err := (AsyncEvents{}).Process(meta, payload, testSource(t))
	require.NoError(t, err)
	require.NotNil(t, rs)
	assert.Equal(t, 2, rs.NumRows)
}

func TestBuiltinRegistryHasFourViews(t *testing.T) {
	assert.Len(t, Builtin, 4)
	for _, name := range []string{"log_entries", "measures", "thread_events", "async_events"} {
		_, ok := Builtin[name]
		assert.True(t, ok, "missing processor for %s", name)
	}
}
