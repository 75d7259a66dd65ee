package filecache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrLoadCachesSmallFiles(t *testing.T) {
	c, err := New(1024, 100)
	require.NoError(t, err)

	var loads int32
	load := func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&loads, 1)
		return []byte("hello"), nil
	}

	data, err := c.GetOrLoad(context.Background(), "a", 5, load)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	data, err = c.GetOrLoad(context.Background(), "a", 5, load)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.EqualValues(t, 1, atomic.LoadInt32(&loads))
}

func TestGetOrLoadBypassesOversizedFiles(t *testing.T) {
	c, err := New(1024, 10)
	require.NoError(t, err)

	var loads int32
	load := func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&loads, 1)
		return make([]byte, 20), nil
	}

	_, err = c.GetOrLoad(context.Background(), "big", 20, load)
	require.NoError(t, err)
	_, err = c.GetOrLoad(context.Background(), "big", 20, load)
	require.NoError(t, err)

	assert.EqualValues(t, 2, atomic.LoadInt32(&loads))
	entries, bytes := c.Stats()
	assert.Equal(t, 0, entries)
	assert.EqualValues(t, 0, bytes)
}

func TestGetOrLoadEvictsUnderByteBudget(t *testing.T) {
	c, err := New(15, 100)
	require.NoError(t, err)

	load := func(data string) Loader {
		return func(ctx context.Context) ([]byte, error) { return []byte(data), nil }
	}

	_, err = c.GetOrLoad(context.Background(), "a", 10, load("aaaaaaaaaa"))
	require.NoError(t, err)
	_, err = c.GetOrLoad(context.Background(), "b", 10, load("bbbbbbbbbb"))
	require.NoError(t, err)

	entries, bytes := c.Stats()
	assert.Equal(t, 1, entries)
	assert.LessOrEqual(t, bytes, int64(15))
}

func TestGetOrLoadPropagatesLoadError(t *testing.T) {
	c, err := New(1024, 100)
	require.NoError(t, err)

	wantErr := errors.New("boom")
	_, err = c.GetOrLoad(context.Background(), "x", 5, func(ctx context.Context) ([]byte, error) {
		return nil, wantErr
	})
	assert.ErrorIs(t, err, wantErr)
}

type fakeFooterSource struct {
	calls int
	data  []byte
	err   error
}

func (f *fakeFooterSource) LoadPartitionFooter(ctx context.Context, filePath string) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

func TestReaderMetadataCacheLoadsOnce(t *testing.T) {
	src := &fakeFooterSource{data: []byte("footer")}
	c := NewReaderMetadataCache(src)

	b, err := c.Footer(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "footer", string(b))

	b, err = c.Footer(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "footer", string(b))
	assert.Equal(t, 1, src.calls)
}

func TestReaderMetadataCachePropagatesError(t *testing.T) {
	src := &fakeFooterSource{err: errors.New("db down")}
	c := NewReaderMetadataCache(src)

	_, err := c.Footer(context.Background(), "p1")
	assert.Error(t, err)
}
