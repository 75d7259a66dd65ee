// Package config assembles the hand-rolled YAML config struct every
// long-running binary in this module loads, the same shape friggdb.Config
// and cmd/tempo/app.Config use: one struct per sub-component, yaml tags
// throughout, no viper.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/grafana/lakehouse/lakehouse/backend"
	"github.com/grafana/lakehouse/lakehouse/backend/cache"
	"github.com/grafana/lakehouse/lakehouse/backend/gcs"
	"github.com/grafana/lakehouse/lakehouse/backend/local"
	"github.com/grafana/lakehouse/lakehouse/backend/s3"
	"github.com/grafana/lakehouse/lakehouse/batch"
	"github.com/grafana/lakehouse/lakehouse/filecache"
	"github.com/grafana/lakehouse/lakehouse/jit"
)

// StorageConfig selects and configures one object store backend, the way
// friggdb.Config picks among Local/GCS by the Backend discriminator, plus
// an optional disk-backed read cache in front of it (friggdb.New wraps its
// chosen backend.Reader in a cache.New the same way, only doing so when
// cfg.Cache is non-nil).
type StorageConfig struct {
	Backend string        `yaml:"backend"`
	Local   local.Config  `yaml:"local"`
	S3      s3.Config     `yaml:"s3"`
	GCS     gcs.Config    `yaml:"gcs"`
	Cache   *cache.Config `yaml:"cache"`
}

// cachedBlobs layers the disk-cached reader from backend/cache over an
// otherwise unmodified Writer, since cache.New only wraps reads.
type cachedBlobs struct {
	backend.Reader
	backend.Writer
}

// New constructs the blob store this config selects, mirroring friggdb.go's
// New's backend switch, then optionally wrapping the reader side in a disk
// cache the same way friggdb.New does when cfg.Cache is set.
func (c StorageConfig) New() (batch.Blobs, error) {
	var blobs batch.Blobs
	var err error
	switch c.Backend {
	case "local":
		blobs, err = local.New(&c.Local)
	case "s3":
		blobs, err = s3.New(&c.S3)
	case "gcs":
		blobs, err = gcs.New(&c.GCS)
	default:
		return nil, fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	if err != nil {
		return nil, err
	}

	if c.Cache == nil {
		return blobs, nil
	}
	cached, err := cache.New(blobs, c.Cache)
	if err != nil {
		return nil, fmt.Errorf("config: open disk cache: %w", err)
	}
	return cachedBlobs{Reader: cached, Writer: blobs}, nil
}

// FileCacheConfig bounds the whole-object file cache (filecache.Cache)
// query.Engine reads through; the per-partition footer cache
// (filecache.ReaderMetadataCache) takes no settings from it.
type FileCacheConfig struct {
	MaxBytes     int64 `yaml:"max_bytes"`
	MaxFileBytes int64 `yaml:"max_file_bytes"`
}

func (c FileCacheConfig) orDefaults() FileCacheConfig {
	if c.MaxBytes == 0 {
		c.MaxBytes = 200 << 20
	}
	if c.MaxFileBytes == 0 {
		c.MaxFileBytes = 10 << 20
	}
	return c
}

// New builds the filecache.Cache this config describes.
func (c FileCacheConfig) New() (*filecache.Cache, error) {
	c = c.orDefaults()
	return filecache.New(c.MaxBytes, c.MaxFileBytes)
}

// MaintenanceConfig is the crond daemon's retention and materialization
// knobs.
type MaintenanceConfig struct {
	RetentionAge       time.Duration `yaml:"retention_age"`
	TempFileExpiration time.Duration `yaml:"temp_file_expiration"`
	MinuteViewSets     []string      `yaml:"minute_view_sets"`
	HourViewSets       []string      `yaml:"hour_view_sets"`
	DayViewSets        []string      `yaml:"day_view_sets"`
}

func (c MaintenanceConfig) orDefaults() MaintenanceConfig {
	if c.RetentionAge == 0 {
		c.RetentionAge = 30 * 24 * time.Hour
	}
	if c.TempFileExpiration == 0 {
		c.TempFileExpiration = time.Hour
	}
	if c.MinuteViewSets == nil {
		c.MinuteViewSets = []string{"log_entries"}
	}
	if c.HourViewSets == nil {
		c.HourViewSets = []string{"measures"}
	}
	return c
}

// Config is the top-level struct every binary in this module loads from
// YAML, following cmd/tempo/main.go's loadConfig: defaults applied in
// code, then overlaid with an optional -config.file.
type Config struct {
	SQLConnectionString string            `yaml:"sql_connection_string"`
	Storage             StorageConfig     `yaml:"storage"`
	FileCache           FileCacheConfig   `yaml:"file_cache"`
	Maintenance         MaintenanceConfig `yaml:"maintenance"`
	JIT                 jit.Config        `yaml:"jit"`
}

// Load reads path as YAML into a Config seeded with defaults, failing on
// unknown fields the way cmd/tempo/main.go's yaml.UnmarshalStrict does.
func Load(path string) (*Config, error) {
	cfg := &Config{
		FileCache:   FileCacheConfig{}.orDefaults(),
		Maintenance: MaintenanceConfig{}.orDefaults(),
		JIT:         jit.DefaultConfig(),
	}
	if path == "" {
		return cfg, nil
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.UnmarshalStrict(buf, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.FileCache = cfg.FileCache.orDefaults()
	cfg.Maintenance = cfg.Maintenance.orDefaults()
	return cfg, nil
}
