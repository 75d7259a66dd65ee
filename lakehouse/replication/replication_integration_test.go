//go:build integration

package replication_test

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
	"github.com/grafana/lakehouse/lakehouse/replication"
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

func TestCursorPagesBlocksInInsertOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	processID := uuid.New()
	require.NoError(t, store.InsertProcess(ctx, metastore.Process{
		ProcessID: processID, Exe: "test", StartTime: time.Now().UTC(),
	}))
	streamID := uuid.New()
	require.NoError(t, store.InsertStream(ctx, metastore.Stream{
		StreamID: streamID, ProcessID: processID,
	}))

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		require.NoError(t, store.InsertBlock(ctx, metastore.Block{
			BlockID: uuid.New(), StreamID: streamID, ProcessID: processID,
			BeginTime: now, EndTime: now.Add(time.Second),
		}))
	}

	cur := replication.NewCursor(store, time.Time{})

	first, err := cur.Next(ctx, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.True(t, cur.Position().After(time.Time{}))

	second, err := cur.Next(ctx, 2)
	require.NoError(t, err)
	require.Len(t, second, 1)

	third, err := cur.Next(ctx, 2)
	require.NoError(t, err)
	require.Empty(t, third)
}
