package rowset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderWriteParquet(t *testing.T) {
	b := NewBuilder[LogEntryRow]()
	b.Append(LogEntryRow{
		ProcessID: "p1",
		StreamID:  "s1",
		BlockID:   "b1",
		Time:      time.Now().UTC(),
		Level:     2,
		Target:    "app",
		Msg:       "hello",
	})
	require.Equal(t, 1, b.Len())

	data, err := b.WriteParquet()
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestEncodePropertiesIsOrderIndependent(t *testing.T) {
	a := EncodeProperties([]Property{{Key: "b", Value: "2"}, {Key: "a", Value: "1"}})
	c := EncodeProperties([]Property{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}})
	assert.Equal(t, a, c)

	decoded, err := DecodeProperties(a)
	require.NoError(t, err)
	assert.Equal(t, []Property{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}}, decoded)
}

func TestEncodePropertiesEmpty(t *testing.T) {
	assert.Nil(t, EncodeProperties(nil))
}

func TestSourceDataHashDistinguishesCounts(t *testing.T) {
	assert.NotEqual(t, SourceDataHash(1), SourceDataHash(2))
}

func TestPropertyInternerReturnsSharedBytesForEqualSets(t *testing.T) {
	pi := NewPropertyInterner()
	a := pi.Intern([]Property{{Key: "env", Value: "prod"}, {Key: "host", Value: "a"}})
	b := pi.Intern([]Property{{Key: "host", Value: "a"}, {Key: "env", Value: "prod"}})
	assert.Equal(t, a, b)
	assert.Same(t, &a[0], &b[0], "equal property sets should share one backing array")
}

func TestPropertyInternerDistinguishesDifferentSets(t *testing.T) {
	pi := NewPropertyInterner()
	a := pi.Intern([]Property{{Key: "env", Value: "prod"}})
	b := pi.Intern([]Property{{Key: "env", Value: "staging"}})
	assert.NotEqual(t, a, b)
}

func TestPropertyInternerNilReceiverFallsBackToEncode(t *testing.T) {
	var pi *PropertyInterner
	props := []Property{{Key: "a", Value: "1"}}
	assert.Equal(t, EncodeProperties(props), pi.Intern(props))
}

func TestPropertyInternerEmptyReturnsNil(t *testing.T) {
	pi := NewPropertyInterner()
	assert.Nil(t, pi.Intern(nil))
}
