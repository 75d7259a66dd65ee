//go:build integration

package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/grafana/lakehouse/lakehouse/backend/local"
	"github.com/grafana/lakehouse/lakehouse/catalog"
	"github.com/grafana/lakehouse/lakehouse/metastore"
	"github.com/grafana/lakehouse/lakehouse/query"
	"github.com/grafana/lakehouse/lakehouse/rowset"
	"github.com/grafana/lakehouse/lakehouse/view"
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

func writeTestPartition(t *testing.T, ctx context.Context, store *metastore.Store, blobs *local.Config, begin time.Time) string {
	t.Helper()
	b, err := local.New(blobs)
	require.NoError(t, err)

	path := "views/log_entries/global/" + begin.Format("20060102150405") + ".parquet"
	data := []byte("fake-parquet-bytes")
	require.NoError(t, b.Write(ctx, path, data))
	require.NoError(t, store.InsertOrUpdatePartitionAndRetire(ctx, metastore.Partition{
		ViewSetName:     "log_entries",
		ViewInstanceID:  "global",
		BeginInsertTime: begin,
		EndInsertTime:   begin.Add(time.Minute),
		MinEventTime:    begin,
		MaxEventTime:    begin.Add(time.Minute),
		UpdatedTime:     time.Now().UTC(),
		FilePath:        path,
		FileSize:        int64(len(data)),
		FileSchemaHash:  []byte{1},
		SourceDataHash:  rowset.SourceDataHash(1),
	}, nil, nil, time.Hour))
	return path
}

func TestDeleteOldDataRetiresOldPartitionsOnly(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	cfg := &local.Config{Path: t.TempDir()}

	now := time.Now().UTC()
	writeTestPartition(t, ctx, store, cfg, now.Add(-60*24*time.Hour))
	recentPath := writeTestPartition(t, ctx, store, cfg, now.Add(-time.Hour))

	d := Deps{Engine: &query.Engine{Store: store}, RetentionAge: 30 * 24 * time.Hour, TempFileExpiration: time.Hour, Logger: log.NewNopLogger()}
	require.NoError(t, deleteOldData(ctx, d))

	partitions, err := store.ListAllPartitions(ctx)
	require.NoError(t, err)
	require.Len(t, partitions, 1)
	require.Equal(t, recentPath, partitions[0].FilePath)
}

func TestGCExpiredTempFilesDeletesObjectAndRow(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	cfg := &local.Config{Path: t.TempDir()}
	blobs, err := local.New(cfg)
	require.NoError(t, err)

	path := writeTestPartition(t, ctx, store, cfg, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, store.RetirePartitionByFile(ctx, path, -time.Minute)) // already expired

	expiredBefore, err := store.ExpiredTempFiles(ctx, 10)
	require.NoError(t, err)
	require.Len(t, expiredBefore, 1)

	d := Deps{Engine: &query.Engine{Store: store}, Blobs: blobs, Logger: log.NewNopLogger()}
	require.NoError(t, gcExpiredTempFiles(ctx, d))

	expiredAfter, err := store.ExpiredTempFiles(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, expiredAfter)

	_, err = blobs.Read(ctx, path)
	require.Error(t, err)
}

func TestMaterializeAllSkipsEmptyViewSetList(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	cfg := &local.Config{Path: t.TempDir()}
	blobs, err := local.New(cfg)
	require.NoError(t, err)

	factory := view.NewFactory()
	view.RegisterBuiltins(factory)
	eng := query.New(store, blobs, catalog.New(store), factory, nil)

	d := Deps{Engine: eng, Blobs: blobs, Logger: log.NewNopLogger(), TempFileExpiration: time.Hour}
	require.NoError(t, materializeAll(ctx, d, nil, time.Hour))
}
