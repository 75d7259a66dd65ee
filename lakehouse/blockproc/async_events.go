package blockproc

import (
	"github.com/grafana/lakehouse/lakehouse/codec"
	"github.com/grafana/lakehouse/lakehouse/rowset"
)

// AsyncEvents processor consumes Begin/EndAsyncSpanEvent and their Named
// variants, one row per event (unlike ThreadEvents it does not pair
// begin/end into a single row, since an async span's begin and end can land
// in different blocks). Grounded on
// original_source/rust/analytics/src/lakehouse/async_events_block_processor.rs's
// AsyncEventCollector and the parse_async_block_payload walker it drives in
// original_source/rust/analytics/src/async_block_processing.rs.
type AsyncEvents struct{}

func (AsyncEvents) ViewName() string { return "async_events" }

func (p AsyncEvents) Process(meta codec.StreamMetadata, payload codec.Payload, src Source) (*RowSet, error) {
	conv, err := src.converter()
	if err != nil {
		return nil, err
	}
	procID, streamID, blockID := src.identity().ProcessID.String(), src.identity().StreamID.String(), src.identity().BlockID.String()

	builder := rowset.NewBuilder[rowset.AsyncEventRow]()
	tracker := &timeTracker{}

	appendRow := func(eventType, name, target string, spanID, parentSpanID, ticks int64) {
		ts := timeOf(conv.TicksToNanos(ticks))
		tracker.observe(ts)
		builder.Append(rowset.AsyncEventRow{
			ProcessID: procID,
			StreamID:  streamID,
			BlockID:   blockID,
			SpanID:    spanID,
			ParentID:  parentSpanID,
			Name:      name,
			Target:    target,
			EventType: eventType,
			Time:      ts,
		})
	}

	visitErr := codec.ForEachObject(meta, payload, func(v codec.Value) (bool, error) {
		var eventType string
		switch v.TypeName {
		case "BeginAsyncSpanEvent", "BeginAsyncNamedSpanEvent":
			eventType = "begin"
		case "EndAsyncSpanEvent", "EndAsyncNamedSpanEvent":
			eventType = "end"
		default:
			return true, nil
		}

		spanID, err := v.GetInt64("span_id")
		if err != nil {
			return false, fieldErr(p.ViewName(), "span_id", err)
		}
		parentSpanID, err := v.GetInt64("parent_span_id")
		if err != nil {
			return false, fieldErr(p.ViewName(), "parent_span_id", err)
		}
		ticks, err := v.GetInt64("time")
		if err != nil {
			return false, fieldErr(p.ViewName(), "time", err)
		}

		var name, target string
		switch v.TypeName {
		case "BeginAsyncSpanEvent", "EndAsyncSpanEvent":
			scope, ok := v.Get("span_desc")
			if !ok {
				return false, fieldErr(p.ViewName(), "span_desc", codec.ErrFieldMissing)
			}
			name, err = scope.GetString("name")
			if err != nil {
				return false, fieldErr(p.ViewName(), "span_desc.name", err)
			}
			target, err = scope.GetString("target")
			if err != nil {
				return false, fieldErr(p.ViewName(), "span_desc.target", err)
			}
		default: // BeginAsyncNamedSpanEvent, EndAsyncNamedSpanEvent
			scope, ok := v.Get("span_location")
			if !ok {
				return false, fieldErr(p.ViewName(), "span_location", codec.ErrFieldMissing)
			}
			target, err = scope.GetString("target")
			if err != nil {
				return false, fieldErr(p.ViewName(), "span_location.target", err)
			}
			name, err = v.GetString("name")
			if err != nil {
				return false, fieldErr(p.ViewName(), "name", err)
			}
		}

		appendRow(eventType, name, target, spanID, parentSpanID, ticks)
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
