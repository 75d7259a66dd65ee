//go:build integration

package merge_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/grafana/lakehouse/lakehouse/backend/local"
	"github.com/grafana/lakehouse/lakehouse/merge"
	"github.com/grafana/lakehouse/lakehouse/metastore"
	"github.com/grafana/lakehouse/lakehouse/rowset"
)

func newTestStore(t *testing.T) *metastore.Store {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("lakehouse"),
		tcpostgres.WithUsername("lakehouse"),
		tcpostgres.WithPassword("lakehouse"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp")),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := metastore.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	require.NoError(t, metastore.CreateSchema(ctx, store))
	return store
}

func insertPartition(t *testing.T, store *metastore.Store, blobs *local.Config, filePath string, begin, end time.Time, objectCount uint64) {
	t.Helper()
	ctx := context.Background()

	b := rowset.NewBuilder[rowset.LogEntryRow]()
	b.Append(rowset.LogEntryRow{ProcessID: "p", StreamID: "s", BlockID: "b", Time: begin, Level: 1, Target: "app", Msg: "hi"})
	data, err := b.WriteParquet()
	require.NoError(t, err)

	blobStore, err := local.New(blobs)
	require.NoError(t, err)
	require.NoError(t, blobStore.Write(ctx, filePath, data))

	require.NoError(t, store.InsertOrUpdatePartitionAndRetire(ctx, metastore.Partition{
		ViewSetName:     "log_entries",
		ViewInstanceID:  "global",
		BeginInsertTime: begin,
		EndInsertTime:   end,
		MinEventTime:    begin,
		MaxEventTime:    end,
		UpdatedTime:     time.Now().UTC(),
		FilePath:        filePath,
		FileSize:        int64(len(data)),
		FileSchemaHash:  []byte{1},
		SourceDataHash:  rowset.SourceDataHash(objectCount),
	}, nil, nil, time.Hour))
}

func TestMergeCombinesTwoPartitions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	dir := t.TempDir()
	cfg := &local.Config{Path: dir}
	blobs, err := local.New(cfg)
	require.NoError(t, err)

	rangeBegin := time.Now().UTC().Truncate(time.Hour)
	rangeEnd := rangeBegin.Add(time.Hour)
	mid := rangeBegin.Add(30 * time.Minute)

	insertPartition(t, store, cfg, "views/log_entries/global/a/1.parquet", rangeBegin, mid, 1)
	insertPartition(t, store, cfg, "views/log_entries/global/a/2.parquet", mid, rangeEnd, 2)

	result, err := merge.Merge[rowset.LogEntryRow](ctx, store, blobs, "log_entries", "global", rangeBegin, rangeEnd, []byte{1}, 0, time.Hour)
	require.NoError(t, err)
	require.Equal(t, 2, result.MergedCount)
	require.Equal(t, []byte{1}, result.Partition.FileSchemaHash)

	remaining, err := store.ListPartitionsContained(ctx, "log_entries", "global", rangeBegin, rangeEnd)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, result.Partition.FilePath, remaining[0].FilePath)
}

func TestMergeRejectsTooFewPartitions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	dir := t.TempDir()
	cfg := &local.Config{Path: dir}
	blobs, err := local.New(cfg)
	require.NoError(t, err)

	rangeBegin := time.Now().UTC().Truncate(time.Hour)
	rangeEnd := rangeBegin.Add(time.Hour)
	insertPartition(t, store, cfg, "views/log_entries/global/a/only.parquet", rangeBegin, rangeEnd, 1)

	_, err = merge.Merge[rowset.LogEntryRow](ctx, store, blobs, "log_entries", "global", rangeBegin, rangeEnd, []byte{1}, 0, time.Hour)
	require.ErrorIs(t, err, merge.ErrTooFewPartitions)
}
