// Package s3 implements the backend.Reader/Writer pair against an
// S3-compatible object store, using the minio client the way
// cmd/tempo-cli/main.go configures its own s3 backend (bucket/endpoint/
// access+secret key/insecure). Structured the same as the local and gcs
// backends in this package.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/grafana/lakehouse/lakehouse/backend"
)

type Config struct {
	Bucket    string `yaml:"bucket"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Insecure  bool   `yaml:"insecure"`
}

type readerWriter struct {
	cfg    *Config
	client *minio.Client
}

func New(cfg *Config) (*readerWriter, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: !cfg.Insecure,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 backend: new client: %w", err)
	}
	return &readerWriter{cfg: cfg, client: client}, nil
}

func (rw *readerWriter) Write(ctx context.Context, path string, data []byte) error {
	_, err := rw.client.PutObject(ctx, rw.cfg.Bucket, path, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("s3 backend: write %s: %w", path, err)
	}
	return nil
}

func (rw *readerWriter) Delete(ctx context.Context, path string) error {
	err := rw.client.RemoveObject(ctx, rw.cfg.Bucket, path, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("s3 backend: delete %s: %w", path, err)
	}
	return nil
}

func (rw *readerWriter) Read(ctx context.Context, path string) ([]byte, error) {
	obj, err := rw.client.GetObject(ctx, rw.cfg.Bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("s3 backend: read %s: %w", path, err)
	}
	defer obj.Close()

	b, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("%s: %w", path, backend.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("s3 backend: read %s: %w", path, err)
	}
	return b, nil
}

func (rw *readerWriter) ReadRange(ctx context.Context, path string, offset int64, length int64) ([]byte, error) {
	obj, err := rw.client.GetObject(ctx, rw.cfg.Bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("s3 backend: read range %s: %w", path, err)
	}
	defer obj.Close()

	if err := obj.SetRange(offset, offset+length-1); err != nil {
		return nil, fmt.Errorf("s3 backend: set range %s: %w", path, err)
	}

	b, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("%s: %w", path, backend.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("s3 backend: read range %s: %w", path, err)
	}
	return b, nil
}

func (rw *readerWriter) Size(ctx context.Context, path string) (int64, error) {
	info, err := rw.client.StatObject(ctx, rw.cfg.Bucket, path, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return 0, fmt.Errorf("%s: %w", path, backend.ErrObjectNotFound)
		}
		return 0, fmt.Errorf("s3 backend: stat %s: %w", path, err)
	}
	return info.Size, nil
}

func (rw *readerWriter) List(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	for obj := range rw.client.ListObjects(ctx, rw.cfg.Bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("s3 backend: list %s: %w", prefix, obj.Err)
		}
		if strings.HasSuffix(obj.Key, ".tmp") {
			continue
		}
		out = append(out, obj.Key)
	}
	sort.Strings(out)
	return out, nil
}

func (rw *readerWriter) Shutdown() {}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey"
}
