package query

import (
	"fmt"
	"math"
)

// Histogram is the histogram aggregate's accumulated state: an equal-width
// bin count plus the running min/max/sum/sum-of-squares DataFusion's
// HistogramAccumulator tracks alongside the bins themselves (used to answer
// moments without re-scanning), grounded on
// original_source/rust/analytics/src/dfext/histogram/histogram_udaf.rs's
// HistogramArray field layout (start, end, min, max, sum, sum_sq, count,
// bins) - accumulator.rs itself isn't available, so the update step is
// rebuilt from what histogram_udaf.rs's getters and
// expand_histogram_tests.rs's expected bin assignments imply.
type Histogram struct {
	Start, End float64
	Min, Max   float64
	Sum, SumSq float64
	Count      uint64
	Bins       []uint64
}

// NewHistogram starts an empty equal-width histogram over [start, end)
// split into nbBins bins, the make_histogram(start, end, nb_bins, value)
// UDAF's initial state.
func NewHistogram(start, end float64, nbBins int) *Histogram {
	return &Histogram{
		Start: start,
		End:   end,
		Min:   math.Inf(1),
		Max:   math.Inf(-1),
		Bins:  make([]uint64, nbBins),
	}
}

// Add folds one value into the histogram: out-of-range values still update
// min/max/sum/count (the moments are exact regardless of range) but are
// dropped from the bin counts, mirroring a value landing outside [start,
// end) having no valid bin index to increment.
func (h *Histogram) Add(v float64) {
	h.Count++
	h.Sum += v
	h.SumSq += v * v
	if v < h.Min {
		h.Min = v
	}
	if v > h.Max {
		h.Max = v
	}
	if v < h.Start || v >= h.End || len(h.Bins) == 0 {
		return
	}
	width := (h.End - h.Start) / float64(len(h.Bins))
	idx := int((v - h.Start) / width)
	if idx >= len(h.Bins) {
		idx = len(h.Bins) - 1
	}
	h.Bins[idx]++
}

// Merge combines another histogram's state into h, the UDAF's partial-state
// merge step across parallel partitions; both histograms must share the
// same range and bin count.
func (h *Histogram) Merge(other *Histogram) error {
	if h.Start != other.Start || h.End != other.End || len(h.Bins) != len(other.Bins) {
		return fmt.Errorf("query: merge histograms with different range/bin count")
	}
	h.Count += other.Count
	h.Sum += other.Sum
	h.SumSq += other.SumSq
	if other.Min < h.Min {
		h.Min = other.Min
	}
	if other.Max > h.Max {
		h.Max = other.Max
	}
	for i, c := range other.Bins {
		h.Bins[i] += c
	}
	return nil
}

// MakeHistogram is the make_histogram(start, end, nb_bins, values) UDAF
// applied to a whole in-memory slice at once, for callers that already
// have every value and don't need incremental accumulation.
func MakeHistogram(start, end float64, nbBins int, values []float64) *Histogram {
	h := NewHistogram(start, end, nbBins)
	for _, v := range values {
		h.Add(v)
	}
	return h
}

// HistogramBin is one row of expand_histogram's output: (bin_center, count).
type HistogramBin struct {
	BinCenter float64
	Count     uint64
}

// ExpandHistogram is the expand_histogram table function: one row per bin,
// centered on the bin's midpoint.
func ExpandHistogram(h *Histogram) []HistogramBin {
	if len(h.Bins) == 0 {
		return nil
	}
	width := (h.End - h.Start) / float64(len(h.Bins))
	out := make([]HistogramBin, len(h.Bins))
	for i, c := range h.Bins {
		out[i] = HistogramBin{BinCenter: h.Start + width*(float64(i)+0.5), Count: c}
	}
	return out
}
