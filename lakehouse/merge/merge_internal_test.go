package merge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafana/lakehouse/lakehouse/rowset"
)

func TestEncodeDecodeObjectCountRoundTrips(t *testing.T) {
	h := encodeObjectCount(42)
	assert.Equal(t, uint64(42), decodeObjectCount(h))
}

func TestDecodeObjectCountMatchesRowsetEncoding(t *testing.T) {
	h := rowset.SourceDataHash(7)
	assert.Equal(t, uint64(7), decodeObjectCount(h))
}

func TestDecodeObjectCountRejectsWrongLength(t *testing.T) {
	assert.Equal(t, uint64(0), decodeObjectCount([]byte{1, 2, 3}))
}

func TestFooterBytesRejectsTooSmall(t *testing.T) {
	_, err := footerBytes([]byte{1, 2})
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
