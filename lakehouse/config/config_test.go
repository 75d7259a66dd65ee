package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafana/lakehouse/lakehouse/backend/cache"
	"github.com/grafana/lakehouse/lakehouse/config"
)

func TestLoadAppliesDefaultsWithNoFile(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, int64(200<<20), cfg.FileCache.MaxBytes)
	assert.Equal(t, int64(10<<20), cfg.FileCache.MaxFileBytes)
	assert.Equal(t, 30*24*time.Hour, cfg.Maintenance.RetentionAge)
	assert.Equal(t, time.Hour, cfg.Maintenance.TempFileExpiration)
	assert.Equal(t, []string{"log_entries"}, cfg.Maintenance.MinuteViewSets)
	assert.Equal(t, []string{"measures"}, cfg.Maintenance.HourViewSets)
}

func TestLoadOverlaysYAMLOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sql_connection_string: "postgres://localhost/lakehouse"
storage:
  backend: local
  local:
    path: /var/lib/lakehouse
maintenance:
  retention_age: 168h
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/lakehouse", cfg.SQLConnectionString)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, "/var/lib/lakehouse", cfg.Storage.Local.Path)
	assert.Equal(t, 168*time.Hour, cfg.Maintenance.RetentionAge)
	// untouched defaults survive the overlay
	assert.Equal(t, time.Hour, cfg.Maintenance.TempFileExpiration)
	assert.Equal(t, int64(200<<20), cfg.FileCache.MaxBytes)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not_a_real_field: true\n"), 0o644))

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestStorageConfigNewSelectsBackend(t *testing.T) {
	dir := t.TempDir()

	blobs, err := (config.StorageConfig{Backend: "local"}).New()
	assert.Nil(t, blobs)
	assert.Error(t, err, "local backend requires a path")

	blobs, err = (config.StorageConfig{Backend: "unknown"}).New()
	assert.Nil(t, blobs)
	assert.ErrorContains(t, err, "unknown backend")

	blobs, err = localStorageConfig(dir).New()
	require.NoError(t, err)
	assert.NotNil(t, blobs)
}

func localStorageConfig(path string) config.StorageConfig {
	sc := config.StorageConfig{Backend: "local"}
	sc.Local.Path = path
	return sc
}

func TestStorageConfigNewWrapsCache(t *testing.T) {
	dir := t.TempDir()
	sc := localStorageConfig(filepath.Join(dir, "data"))
	sc.Cache = &cache.Config{
		Path:          filepath.Join(dir, "cache"),
		MaxDiskMBs:    64,
		PruneCount:    10,
		DiskCleanRate: time.Minute,
	}

	withCache, err := sc.New()
	require.NoError(t, err)
	assert.NotNil(t, withCache)

	// the cached blob store still satisfies the plain Reader+Writer
	// surface everything else in the module depends on
	err = withCache.Write(context.Background(), "does/not/matter", nil)
	assert.NoError(t, err)
}
