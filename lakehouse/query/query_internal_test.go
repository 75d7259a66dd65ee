package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafana/lakehouse/lakehouse/rowset"
)

func TestReadAllRowsHandlesMoreRowsThanOneBuffer(t *testing.T) {
	b := rowset.NewBuilder[rowset.LogEntryRow]()
	want := 2500 // more than readAllRows's 1024-row buffer
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < want; i++ {
		b.Append(rowset.LogEntryRow{ProcessID: "p", StreamID: "s", BlockID: "b", Time: base.Add(time.Duration(i) * time.Second), Level: 1, Target: "app", Msg: "m"})
	}
	data, err := b.WriteParquet()
	require.NoError(t, err)

	rows, err := readAllRows[rowset.LogEntryRow](data)
	require.NoError(t, err)
	assert.Len(t, rows, want)
}
