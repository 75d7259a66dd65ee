// Package gcs implements the backend.Reader/Writer pair against Google Cloud
// Storage. Modeled on friggdb/backend/gcs/gcs.go, generalized from the
// meta/bloom/index/data quadruplet to generic path-based objects.
package gcs

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/grafana/lakehouse/lakehouse/backend"
)

type Config struct {
	BucketName      string `yaml:"bucket_name"`
	ChunkBufferSize int    `yaml:"chunk_buffer_size"`
}

type readerWriter struct {
	cfg    *Config
	client *storage.Client
	bucket *storage.BucketHandle
}

func New(cfg *Config) (*readerWriter, error) {
	ctx := context.Background()

	client, err := storage.NewClient(ctx, storage.ScopeReadWrite)
	if err != nil {
		return nil, fmt.Errorf("gcs backend: new client: %w", err)
	}

	rw := &readerWriter{
		cfg:    cfg,
		client: client,
		bucket: client.Bucket(cfg.BucketName),
	}
	return rw, nil
}

func (rw *readerWriter) Write(ctx context.Context, path string, data []byte) error {
	w := rw.bucket.Object(path).NewWriter(ctx)
	w.ChunkSize = rw.cfg.ChunkBufferSize

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs backend: write %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs backend: close %s: %w", path, err)
	}
	return nil
}

func (rw *readerWriter) Delete(ctx context.Context, path string) error {
	err := rw.bucket.Object(path).Delete(ctx)
	if err != nil && err != storage.ErrObjectNotExist {
		return fmt.Errorf("gcs backend: delete %s: %w", path, err)
	}
	return nil
}

func (rw *readerWriter) Read(ctx context.Context, path string) ([]byte, error) {
	r, err := rw.bucket.Object(path).NewReader(ctx)
	if err == storage.ErrObjectNotExist {
		return nil, fmt.Errorf("%s: %w", path, backend.ErrObjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("gcs backend: read %s: %w", path, err)
	}
	defer r.Close()

	return io.ReadAll(r)
}

func (rw *readerWriter) ReadRange(ctx context.Context, path string, offset int64, length int64) ([]byte, error) {
	r, err := rw.bucket.Object(path).NewRangeReader(ctx, offset, length)
	if err == storage.ErrObjectNotExist {
		return nil, fmt.Errorf("%s: %w", path, backend.ErrObjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("gcs backend: read range %s: %w", path, err)
	}
	defer r.Close()

	return io.ReadAll(r)
}

func (rw *readerWriter) Size(ctx context.Context, path string) (int64, error) {
	attrs, err := rw.bucket.Object(path).Attrs(ctx)
	if err == storage.ErrObjectNotExist {
		return 0, fmt.Errorf("%s: %w", path, backend.ErrObjectNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("gcs backend: attrs %s: %w", path, err)
	}
	return attrs.Size, nil
}

func (rw *readerWriter) List(ctx context.Context, prefix string) ([]string, error) {
	iter := rw.bucket.Objects(ctx, &storage.Query{Prefix: prefix})

	var out []string
	for {
		attrs, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gcs backend: list %s: %w", prefix, err)
		}
		if strings.HasSuffix(attrs.Name, ".tmp") {
			continue
		}
		out = append(out, attrs.Name)
	}
	sort.Strings(out)
	return out, nil
}

func (rw *readerWriter) Shutdown() {
	_ = rw.client.Close()
}
