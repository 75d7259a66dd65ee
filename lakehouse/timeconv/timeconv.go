// Package timeconv converts between a process's tick counter and wall-clock
// time. A process publishes its tick frequency at startup; when that's
// absent, the frequency is estimated from how many ticks elapsed between
// process start and some known point in time. Grounded on
// original_source/rust/analytics/src/time.rs's ConvertTicks.
package timeconv

import (
	"fmt"
	"time"
)

const nanosPerSec = 1e9

// Converter maps a single process's tick counter to and from wall-clock
// time. Once derived it is immutable for the life of the process, so that
// every partition covering that process agrees on the same mapping.
type Converter struct {
	tickOffset        int64
	processStartNanos int64
	frequency         int64
	invFrequencyNanos float64
}

// FromMetaData builds a converter directly from a known tick frequency, the
// process's start ticks and start time. This is the one true constructor;
// the other three are all just frequency-derivation strategies that funnel
// into it.
func FromMetaData(startTicks int64, processStartNanos int64, frequency int64) (*Converter, error) {
	if frequency <= 0 {
		return nil, fmt.Errorf("timeconv: invalid frequency %d", frequency)
	}
	return &Converter{
		tickOffset:        startTicks,
		processStartNanos: processStartNanos,
		frequency:         frequency,
		invFrequencyNanos: nanosPerSec / float64(frequency),
	}, nil
}

// Process carries the subset of process metadata the frequency-derivation
// strategies need.
type Process struct {
	StartTicks    int64
	StartTime     time.Time
	TscFrequency  int64
}

// FromProcessTimingPair derives a converter's frequency from a single known
// (end_ticks, end_time) pair when the process did not publish a reliable
// tick frequency: ticks_per_second = end_ticks / seconds_since_start. It
// backs both the from_block_meta and from_latest_timing strategies in the
// original, which differ only in which block's timing they pass in.
func FromProcessTimingPair(process Process, endTicks int64, endTime time.Time) (*Converter, error) {
	if process.TscFrequency > 0 {
		return FromMetaData(process.StartTicks, process.StartTime.UnixNano(), process.TscFrequency)
	}
	deltaSeconds := endTime.Sub(process.StartTime).Seconds()
	if deltaSeconds <= 0 {
		return nil, fmt.Errorf("timeconv: non-positive elapsed time for frequency estimation")
	}
	ticksPerSecond := int64(float64(endTicks)/deltaSeconds + 0.5)
	return FromMetaData(process.StartTicks, process.StartTime.UnixNano(), ticksPerSecond)
}

// FromLatestTiming derives a converter using the latest known block's timing
// for a process; given the same latest block it always yields the same
// mapping. In this module the JIT path calls it to turn a query range into
// ticks; block processing (blockproc) converts event times with a converter
// derived from each block's own end timing instead.
func FromLatestTiming(process Process, lastBlockEndTicks int64, lastBlockEndTime time.Time) (*Converter, error) {
	return FromProcessTimingPair(process, lastBlockEndTicks, lastBlockEndTime)
}

// Frequency returns the ticks-per-second this converter was derived with.
func (c *Converter) Frequency() int64 { return c.frequency }

// TicksToNanos converts an absolute tick count to absolute nanoseconds since
// the Unix epoch.
func (c *Converter) TicksToNanos(absoluteTicks int64) int64 {
	delta := float64(absoluteTicks - c.tickOffset)
	nanosSinceStart := int64(delta*c.invFrequencyNanos + signOf(delta)*0.5)
	return c.processStartNanos + nanosSinceStart
}

// DeltaTicksToNanos converts a tick count relative to process start into
// absolute nanoseconds since the Unix epoch.
func (c *Converter) DeltaTicksToNanos(relativeTicks int64) int64 {
	nanosSinceStart := int64(float64(relativeTicks)*c.invFrequencyNanos + signOf(float64(relativeTicks))*0.5)
	return c.processStartNanos + nanosSinceStart
}

// DeltaTicksToTime converts a tick count relative to process start into a
// wall-clock time.
func (c *Converter) DeltaTicksToTime(relativeTicks int64) time.Time {
	return time.Unix(0, c.DeltaTicksToNanos(relativeTicks)).UTC()
}

// NanosToTicks converts an absolute wall-clock instant back into a relative
// tick count since process start.
func (c *Converter) NanosToTicks(wallClock time.Time) int64 {
	deltaNanos := wallClock.UnixNano() - c.processStartNanos
	seconds := float64(deltaNanos) / nanosPerSec
	return int64(seconds*float64(c.frequency) + signOf(seconds)*0.5)
}

func signOf(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

// Range is a half-open time interval used to bound queries and partition
// coverage.
type Range struct {
	Begin time.Time
	End   time.Time
}

func NewRange(begin, end time.Time) Range {
	return Range{Begin: begin, End: end}
}
