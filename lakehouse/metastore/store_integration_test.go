//go:build integration

package metastore_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/grafana/lakehouse/lakehouse/metastore"
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

func TestProcessStreamBlockRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	processID := uuid.New()
	err := store.InsertProcess(ctx, metastore.Process{
		ProcessID:    processID,
		Exe:          "my-service",
		Username:     "svc",
		StartTime:    time.Now().UTC(),
		TscFrequency: 1_000_000_000,
		Properties:   map[string]string{"region": "us-east"},
	})
	require.NoError(t, err)

	got, err := store.FindProcess(ctx, processID)
	require.NoError(t, err)
	require.Equal(t, "my-service", got.Exe)
	require.Equal(t, "us-east", got.Properties["region"])

	streamID := uuid.New()
	err = store.InsertStream(ctx, metastore.Stream{
		StreamID:  streamID,
		ProcessID: processID,
		Tags:      []string{"log"},
	})
	require.NoError(t, err)

	streams, err := store.ListProcessStreamsTagged(ctx, processID, "log")
	require.NoError(t, err)
	require.Len(t, streams, 1)
	require.Equal(t, streamID, streams[0].StreamID)

	blockID := uuid.New()
	now := time.Now().UTC()
	err = store.InsertBlock(ctx, metastore.Block{
		BlockID:    blockID,
		StreamID:   streamID,
		ProcessID:  processID,
		BeginTime:  now,
		EndTime:    now.Add(time.Second),
		EndTicks:   1_000_000_000,
		NbObjects:  10,
	})
	require.NoError(t, err)

	blocks, err := store.FindStreamBlocksInRange(ctx, streamID, 0, 2_000_000_000)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	require.Equal(t, blockID, blocks[0].BlockID)

	latest, err := store.LatestBlock(ctx, processID)
	require.NoError(t, err)
	require.Equal(t, blockID, latest.BlockID)
}

func TestPartitionRetirementIsTransactional(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	old := metastore.Partition{
		ViewSetName:    "log_entries",
		ViewInstanceID: "global",
		FilePath:       "views/log_entries/global/bucket-0/old.parquet",
		FileSize:       1024,
	}
	require.NoError(t, store.InsertOrUpdatePartitionAndRetire(ctx, old, []byte("footer"), nil, time.Hour))

	replacement := metastore.Partition{
		ViewSetName:    "log_entries",
		ViewInstanceID: "global",
		FilePath:       "views/log_entries/global/bucket-0/new.parquet",
		FileSize:       2048,
	}
	require.NoError(t, store.InsertOrUpdatePartitionAndRetire(ctx, replacement, []byte("footer2"), []metastore.Partition{old}, time.Hour))

	live, err := store.ListPartitionsOverlapping(ctx, "log_entries", "global", time.Time{}, time.Now().Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, live, 1)
	require.Equal(t, replacement.FilePath, live[0].FilePath)

	expired, err := store.ExpiredTempFiles(ctx, 10)
	require.NoError(t, err)
	require.Len(t, expired, 0, "temp file not yet expired")
}
