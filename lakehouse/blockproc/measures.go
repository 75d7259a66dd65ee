package blockproc

import (
	"github.com/grafana/lakehouse/lakehouse/codec"
	"github.com/grafana/lakehouse/lakehouse/rowset"
)

// Measures processor consumes FloatMetricEvent and IntegerMetricEvent,
// grounded directly on original_source/rust/analytics/src/measure.rs's
// measure_from_value: both event types carry time/value plus a shared "desc"
// object (target/name/unit), and both funnel into one row shape by widening
// the integer value to float64 the same way the original does.
type Measures struct{}

func (Measures) ViewName() string { return "measures" }

func (p Measures) Process(meta codec.StreamMetadata, payload codec.Payload, src Source) (*RowSet, error) {
	conv, err := src.converter()
	if err != nil {
		return nil, err
	}
	procID, streamID, blockID := src.identity().ProcessID.String(), src.identity().StreamID.String(), src.identity().BlockID.String()

	builder := rowset.NewBuilder[rowset.MeasureRow]()
	tracker := &timeTracker{}

	visitErr := codec.ForEachObject(meta, payload, func(v codec.Value) (bool, error) {
		var value float64
		switch v.TypeName {
		case "FloatMetricEvent":
			f, err := v.GetFloat64("value")
			if err != nil {
				return false, fieldErr(p.ViewName(), "value", err)
			}
			value = f
		case "IntegerMetricEvent":
			i, err := v.GetInt64("value")
			if err != nil {
				return false, fieldErr(p.ViewName(), "value", err)
			}
			value = float64(i)
		default:
			return true, nil
		}

		ticks, err := v.GetInt64("time")
		if err != nil {
			return false, fieldErr(p.ViewName(), "time", err)
		}
		desc, ok := v.Get("desc")
		if !ok {
			return false, fieldErr(p.ViewName(), "desc", codec.ErrFieldMissing)
		}
		target, err := desc.GetString("target")
		if err != nil {
			return false, fieldErr(p.ViewName(), "desc.target", err)
		}
		name, err := desc.GetString("name")
		if err != nil {
			return false, fieldErr(p.ViewName(), "desc.name", err)
		}
		unit, err := desc.GetString("unit")
		if err != nil {
			return false, fieldErr(p.ViewName(), "desc.unit", err)
		}

		ts := timeOf(conv.TicksToNanos(ticks))
		tracker.observe(ts)
		builder.Append(rowset.MeasureRow{
			ProcessID: procID,
			StreamID:  streamID,
			BlockID:   blockID,
			Time:      ts,
			Target:    target,
			Name:      name,
			Unit:      unit,
			Value:     value,
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
