package jit

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/grafana/lakehouse/lakehouse/metastore"
)

func block(beginTicks, endTicks int64, begin, end time.Time) metastore.Block {
	return metastore.Block{
		BlockID:    uuid.New(),
		BeginTicks: beginTicks,
		EndTicks:   endTicks,
		BeginTime:  begin,
		EndTime:    end,
	}
}

func TestPackContiguousBlocksMergesAdjacent(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	blocks := []metastore.Block{
		block(0, 100, t0, t0.Add(time.Second)),
		block(100, 200, t0.Add(time.Second), t0.Add(2*time.Second)),
		block(200, 300, t0.Add(2*time.Second), t0.Add(3*time.Second)),
	}
	cfg := DefaultConfig()

	candidates := packContiguousBlocks(blocks, cfg)
	assert.Len(t, candidates, 1)
	assert.Len(t, candidates[0].blocks, 3)
	assert.Equal(t, t0, candidates[0].begin)
	assert.Equal(t, t0.Add(3*time.Second), candidates[0].end)
}

func TestPackContiguousBlocksSplitsOnGap(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	blocks := []metastore.Block{
		block(0, 100, t0, t0.Add(time.Second)),
		block(500, 600, t0.Add(5*time.Second), t0.Add(6*time.Second)),
	}
	cfg := DefaultConfig()

	candidates := packContiguousBlocks(blocks, cfg)
	assert.Len(t, candidates, 2)
	assert.Len(t, candidates[0].blocks, 1)
	assert.Len(t, candidates[1].blocks, 1)
}

func TestPackContiguousBlocksSplitsOnMaxCount(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{MaxBlocksPerPartition: 2, MaxPartitionDelta: time.Hour}
	blocks := []metastore.Block{
		block(0, 100, t0, t0.Add(time.Second)),
		block(100, 200, t0.Add(time.Second), t0.Add(2*time.Second)),
		block(200, 300, t0.Add(2*time.Second), t0.Add(3*time.Second)),
	}

	candidates := packContiguousBlocks(blocks, cfg)
	assert.Len(t, candidates, 2)
	assert.Len(t, candidates[0].blocks, 2)
	assert.Len(t, candidates[1].blocks, 1)
}

func TestPackContiguousBlocksSplitsOnMaxDelta(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{MaxBlocksPerPartition: 100, MaxPartitionDelta: time.Second}
	blocks := []metastore.Block{
		block(0, 100, t0, t0.Add(time.Second)),
		block(100, 200, t0.Add(time.Second), t0.Add(3*time.Second)),
	}

	candidates := packContiguousBlocks(blocks, cfg)
	assert.Len(t, candidates, 2)
}

func TestNewThreadSpansRejectsInvalidInstanceID(t *testing.T) {
	maker := NewThreadSpans(Deps{})
	_, err := maker("not-a-uuid")
	assert.Error(t, err)
}
