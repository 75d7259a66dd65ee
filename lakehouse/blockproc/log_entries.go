package blockproc

import (
	"github.com/grafana/lakehouse/lakehouse/codec"
	"github.com/grafana/lakehouse/lakehouse/rowset"
)

// LogEntries processor consumes LogStringEventV2, the only log event type a
// current sink emits (the static-string interop variants never reach the
// lakehouse layer: they're expanded to LogStringEventV2 by the ingestion
// side, per original_source/rust/tracing/src/logs/block.rs's LogMsgQueueAny
// dispatch). There is no standalone log_entries block processor file to
// follow line by line (that project inlines it into its view materializer);
// the shape here follows the sibling AsyncEventsBlockProcessor/measure.rs
// walkers: decode, switch on type_name, append a row.
type LogEntries struct{}

func (LogEntries) ViewName() string { return "log_entries" }

func (p LogEntries) Process(meta codec.StreamMetadata, payload codec.Payload, src Source) (*RowSet, error) {
	conv, err := src.converter()
	if err != nil {
		return nil, err
	}
	procID, streamID, blockID := src.identity().ProcessID.String(), src.identity().StreamID.String(), src.identity().BlockID.String()

	builder := rowset.NewBuilder[rowset.LogEntryRow]()
	tracker := &timeTracker{}

	visitErr := codec.ForEachObject(meta, payload, func(v codec.Value) (bool, error) {
		if v.TypeName != "LogStringEventV2" {
			return true, nil
		}
		ticks, err := v.GetInt64("time")
		if err != nil {
			return false, fieldErr(p.ViewName(), "time", err)
		}
		msg, err := v.GetString("msg")
		if err != nil {
			return false, fieldErr(p.ViewName(), "msg", err)
		}
		desc, ok := v.Get("desc")
		if !ok {
			return false, fieldErr(p.ViewName(), "desc", codec.ErrFieldMissing)
		}
		target, err := desc.GetString("target")
		if err != nil {
			return false, fieldErr(p.ViewName(), "desc.target", err)
		}
		level, err := desc.GetInt64("level")
		if err != nil {
			return false, fieldErr(p.ViewName(), "desc.level", err)
		}

		ts := timeOf(conv.TicksToNanos(ticks))
		tracker.observe(ts)
		builder.Append(rowset.LogEntryRow{
			ProcessID: procID,
			StreamID:  streamID,
			BlockID:   blockID,
			Time:      ts,
			Level:     int32(level),
			Target:    target,
			Msg:       msg,
		})
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
