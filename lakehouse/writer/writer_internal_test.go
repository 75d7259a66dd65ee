package writer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafana/lakehouse/lakehouse/rowset"
)

func TestReadRowsRoundTrips(t *testing.T) {
	b := rowset.NewBuilder[rowset.LogEntryRow]()
	b.Append(rowset.LogEntryRow{ProcessID: "p", StreamID: "s", BlockID: "b", Time: time.Now().UTC(), Level: 1, Target: "app", Msg: "hi"})
	b.Append(rowset.LogEntryRow{ProcessID: "p", StreamID: "s", BlockID: "b", Time: time.Now().UTC(), Level: 2, Target: "app", Msg: "there"})
	data, err := b.WriteParquet()
	require.NoError(t, err)

	rows, err := readRows[rowset.LogEntryRow](data, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "hi", rows[0].Msg)
	assert.Equal(t, "there", rows[1].Msg)
}

func TestFooterBytesRejectsTooSmall(t *testing.T) {
	_, err := footerBytes([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestFooterBytesExtractsValidRange(t *testing.T) {
	b := rowset.NewBuilder[rowset.LogEntryRow]()
	b.Append(rowset.LogEntryRow{ProcessID: "p", StreamID: "s", BlockID: "b", Time: time.Now().UTC(), Level: 1, Target: "app", Msg: "hi"})
	data, err := b.WriteParquet()
	require.NoError(t, err)

	footer, err := footerBytes(data)
	require.NoError(t, err)
	assert.NotEmpty(t, footer)
	assert.Less(t, len(footer), len(data))
}

func TestParamsPathBucketIsSortableByTime(t *testing.T) {
	p := Params{BeginInsert: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	assert.Equal(t, "2026-01-02-03-04-05", p.pathBucket())
}
