package batch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/grafana/lakehouse/lakehouse/view"
)

func TestAlignRangeTruncatesAndRoundsUp(t *testing.T) {
	r := view.NewTimeRange(
		time.Date(2026, 1, 1, 10, 0, 30, 0, time.UTC),
		time.Date(2026, 1, 1, 10, 2, 15, 0, time.UTC),
	)
	begin, end := alignRange(r, time.Minute)
	assert.Equal(t, time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC), begin)
	assert.Equal(t, time.Date(2026, 1, 1, 10, 3, 0, 0, time.UTC), end)
}

func TestAlignRangeAlwaysProducesAtLeastOneSlot(t *testing.T) {
	same := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	r := view.NewTimeRange(same, same)
	begin, end := alignRange(r, time.Hour)
	assert.True(t, end.After(begin))
	assert.Equal(t, time.Hour, end.Sub(begin))
}
