// Package local implements the backend.Reader/Writer pair against the local
// filesystem, used for development and single-node deployments. Modeled on
// friggdb/backend/local/local.go.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/grafana/lakehouse/lakehouse/backend"
)

type Config struct {
	Path string `yaml:"path"`
}

type readerWriter struct {
	cfg *Config
}

func New(cfg *Config) (*readerWriter, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("local backend: path is required")
	}
	if err := os.MkdirAll(cfg.Path, os.ModePerm); err != nil {
		return nil, fmt.Errorf("local backend: mkdir root: %w", err)
	}
	return &readerWriter{cfg: cfg}, nil
}

func (rw *readerWriter) fullPath(path string) string {
	return filepath.Join(rw.cfg.Path, filepath.FromSlash(path))
}

func (rw *readerWriter) Write(_ context.Context, path string, data []byte) error {
	full := rw.fullPath(path)
	if err := os.MkdirAll(filepath.Dir(full), os.ModePerm); err != nil {
		return fmt.Errorf("local backend: mkdir: %w", err)
	}
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("local backend: write temp: %w", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		return fmt.Errorf("local backend: rename: %w", err)
	}
	return nil
}

func (rw *readerWriter) Delete(_ context.Context, path string) error {
	err := os.Remove(rw.fullPath(path))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("local backend: delete: %w", err)
	}
	return nil
}

func (rw *readerWriter) Read(_ context.Context, path string) ([]byte, error) {
	b, err := os.ReadFile(rw.fullPath(path))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", path, backend.ErrObjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("local backend: read: %w", err)
	}
	return b, nil
}

func (rw *readerWriter) ReadRange(_ context.Context, path string, offset int64, length int64) ([]byte, error) {
	f, err := os.Open(rw.fullPath(path))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", path, backend.ErrObjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("local backend: open: %w", err)
	}
	defer f.Close()

	buf := make([]byte, length)
	n, err := f.ReadAt(buf, offset)
	if err != nil && n == 0 {
		return nil, fmt.Errorf("local backend: read range: %w", err)
	}
	return buf[:n], nil
}

func (rw *readerWriter) Size(_ context.Context, path string) (int64, error) {
	fi, err := os.Stat(rw.fullPath(path))
	if os.IsNotExist(err) {
		return 0, fmt.Errorf("%s: %w", path, backend.ErrObjectNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("local backend: stat: %w", err)
	}
	return fi.Size(), nil
}

func (rw *readerWriter) List(_ context.Context, prefix string) ([]string, error) {
	root := rw.fullPath(prefix)
	var out []string
	err := filepath.Walk(filepath.Dir(root), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() || strings.HasSuffix(path, ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(rw.cfg.Path, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(rel, prefix) {
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("local backend: list: %w", err)
	}
	sort.Strings(out)
	return out, nil
}

func (rw *readerWriter) Shutdown() {}
