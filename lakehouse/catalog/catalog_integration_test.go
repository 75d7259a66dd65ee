//go:build integration

package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/grafana/lakehouse/lakehouse/catalog"
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

func TestCheckRangeUpToDateAfterMatchingInsert(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	cat := catalog.New(store)

	begin := time.Now().UTC().Truncate(time.Minute)
	end := begin.Add(time.Minute)
	hash := []byte{1, 2, 3}
	schemaHash := []byte{4}

	status, err := cat.CheckRange(ctx, "measures", "global", begin, end, hash, schemaHash)
	require.NoError(t, err)
	require.False(t, status.UpToDate)
	require.Empty(t, status.Superseded)

	require.NoError(t, store.InsertOrUpdatePartitionAndRetire(ctx, metastore.Partition{
		ViewSetName:     "measures",
		ViewInstanceID:  "global",
		BeginInsertTime: begin,
		EndInsertTime:   end,
		MinEventTime:    begin,
		MaxEventTime:    end,
		UpdatedTime:     time.Now().UTC(),
		FilePath:        "views/measures/global/x/a.parquet",
		FileSize:        100,
		FileSchemaHash:  schemaHash,
		SourceDataHash:  hash,
	}, nil, nil, time.Hour))

	status, err = cat.CheckRange(ctx, "measures", "global", begin, end, hash, schemaHash)
	require.NoError(t, err)
	require.True(t, status.UpToDate)
	require.Empty(t, status.Superseded)
}

func TestCheckRangeReportsSupersededOnSchemaHashChange(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	cat := catalog.New(store)

	begin := time.Now().UTC().Truncate(time.Minute)
	end := begin.Add(time.Minute)
	hash := []byte{1, 2, 3}

	old := metastore.Partition{
		ViewSetName:     "measures",
		ViewInstanceID:  "global",
		BeginInsertTime: begin,
		EndInsertTime:   end,
		MinEventTime:    begin,
		MaxEventTime:    end,
		UpdatedTime:     time.Now().UTC(),
		FilePath:        "views/measures/global/x/old-schema.parquet",
		FileSize:        100,
		FileSchemaHash:  []byte{4},
		SourceDataHash:  hash,
	}
	require.NoError(t, store.InsertOrUpdatePartitionAndRetire(ctx, old, nil, nil, time.Hour))

	status, err := cat.CheckRange(ctx, "measures", "global", begin, end, hash, []byte{5})
	require.NoError(t, err)
	require.False(t, status.UpToDate, "a partition whose schema hash no longer matches the view must not count as up to date")
	require.Len(t, status.Superseded, 1)
	require.Equal(t, old.FilePath, status.Superseded[0].FilePath)
}

func TestCheckRangeReportsSupersededOnHashChange(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	cat := catalog.New(store)

	begin := time.Now().UTC().Truncate(time.Minute)
	end := begin.Add(time.Minute)

	old := metastore.Partition{
		ViewSetName:     "measures",
		ViewInstanceID:  "global",
		BeginInsertTime: begin,
		EndInsertTime:   end,
		MinEventTime:    begin,
		MaxEventTime:    end,
		UpdatedTime:     time.Now().UTC(),
		FilePath:        "views/measures/global/x/old.parquet",
		FileSize:        100,
		FileSchemaHash:  []byte{4},
		SourceDataHash:  []byte{1},
	}
	require.NoError(t, store.InsertOrUpdatePartitionAndRetire(ctx, old, nil, nil, time.Hour))

	status, err := cat.CheckRange(ctx, "measures", "global", begin, end, []byte{2}, old.FileSchemaHash)
	require.NoError(t, err)
	require.False(t, status.UpToDate)
	require.Len(t, status.Superseded, 1)
	require.Equal(t, old.FilePath, status.Superseded[0].FilePath)
}
