package blockproc

import (
	"github.com/grafana/lakehouse/lakehouse/codec"
	"github.com/grafana/lakehouse/lakehouse/rowset"
)

// ThreadEvents processor consumes the four thread-span event types a
// single-threaded scope emits: {Begin,End}ThreadSpanEvent carry a
// thread_span_desc member, the {Begin,End}ThreadNamedSpanEvent variants
// carry a thread_span_location plus a separate name member. Grounded on
// original_source/rust/analytics/src/thread_block_processor.rs's
// on_thread_event/on_thread_named_event pair.
//
// This is a per-stream JIT view: unlike log_entries/measures it
// pairs begin/end events into spans rather than emitting one row per event,
// so it tracks open spans on a per-thread stack keyed by nesting depth.
type ThreadEvents struct{}

func (ThreadEvents) ViewName() string { return "thread_events" }

type openThreadSpan struct {
	name, target string
	beginTicks   int64
	depth        int32
}

func (p ThreadEvents) Process(meta codec.StreamMetadata, payload codec.Payload, src Source) (*RowSet, error) {
	conv, err := src.converter()
	if err != nil {
		return nil, err
	}
	procID, streamID, blockID := src.identity().ProcessID.String(), src.identity().StreamID.String(), src.identity().BlockID.String()

	builder := rowset.NewBuilder[rowset.ThreadEventRow]()
	tracker := &timeTracker{}

	var threadID int64
	var stack []openThreadSpan

	pushBegin := func(name, target string, ticks int64) {
		stack = append(stack, openThreadSpan{name: name, target: target, beginTicks: ticks, depth: int32(len(stack))})
	}
	popEnd := func(endTicks int64) {
		if len(stack) == 0 {
			return
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		begin := timeOf(conv.TicksToNanos(top.beginTicks))
		end := timeOf(conv.TicksToNanos(endTicks))
		tracker.observe(begin)
		tracker.observe(end)
		builder.Append(rowset.ThreadEventRow{
			ProcessID: procID,
			StreamID:  streamID,
			BlockID:   blockID,
			ThreadID:  threadID,
			Name:      top.name,
			Target:    top.target,
			BeginTime: begin,
			EndTime:   end,
			Depth:     top.depth,
		})
	}

	visitErr := codec.ForEachObject(meta, payload, func(v codec.Value) (bool, error) {
		switch v.TypeName {
		case "BeginThreadSpanEvent":
			scope, ok := v.Get("thread_span_desc")
			if !ok {
				return false, fieldErr(p.ViewName(), "thread_span_desc", codec.ErrFieldMissing)
			}
			name, target, err := scopeNameTarget(p.ViewName(), scope)
			if err != nil {
				return false, err
			}
			ticks, err := v.GetInt64("time")
			if err != nil {
				return false, fieldErr(p.ViewName(), "time", err)
			}
			pushBegin(name, target, ticks)
		case "EndThreadSpanEvent":
			ticks, err := v.GetInt64("time")
			if err != nil {
				return false, fieldErr(p.ViewName(), "time", err)
			}
			popEnd(ticks)
		case "BeginThreadNamedSpanEvent":
			scope, ok := v.Get("thread_span_location")
			if !ok {
				return false, fieldErr(p.ViewName(), "thread_span_location", codec.ErrFieldMissing)
			}
			_, target, err := scopeNameTarget(p.ViewName(), scope)
			if err != nil {
				return false, err
			}
			name, err := v.GetString("name")
			if err != nil {
				return false, fieldErr(p.ViewName(), "name", err)
			}
			ticks, err := v.GetInt64("time")
			if err != nil {
				return false, fieldErr(p.ViewName(), "time", err)
			}
			pushBegin(name, target, ticks)
		case "EndThreadNamedSpanEvent":
			ticks, err := v.GetInt64("time")
			if err != nil {
				return false, fieldErr(p.ViewName(), "time", err)
			}
			popEnd(ticks)
		}
		return true, nil
	})
	if visitErr != nil {
		return nil, visitErr
	}
	if builder.Len() == 0 {
		return nil, nil
	}

	data, err := builder.WriteParquet()
	if err != nil {
		return nil, err
	}
	return &RowSet{
		TimeRange: timeconvRange(tracker),
		Parquet:   data,
		NumRows:   builder.Len(),
	}, nil
}

// scopeNameTarget reads name and target off a scope descriptor object.
// Thread span events don't carry a target member (ScopeDesc::new for
// thread spans is a 3-arg name/filename/line call, unlike the 4-arg async
// variant), so a missing target here degrades to empty
// rather than failing the whole event.
func scopeNameTarget(view string, scope codec.Value) (name, target string, err error) {
	name, err = scope.GetString("name")
	if err != nil {
		return "", "", fieldErr(view, "scope.name", err)
	}
	target, _ = scope.GetString("target")
	return name, target, nil
}
