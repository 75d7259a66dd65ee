// Package backend abstracts the object store that holds raw event blocks and
// materialized Parquet partitions. It plays the same role friggdb/backend played
// for trace blocks: a thin Reader/Writer pair that every higher layer depends on
// only through this interface, never through a concrete cloud SDK.
package backend

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned when a path does not exist in the store.
var ErrObjectNotFound = errors.New("backend: object not found")

// Reader reads whole or partial objects out of the store.
type Reader interface {
	// Read fetches the entire object at path.
	Read(ctx context.Context, path string) ([]byte, error)

	// ReadRange fetches length bytes starting at offset. Used by the block
	// codec's lazy reader and by Parquet's ranged footer/row-group fetches.
	ReadRange(ctx context.Context, path string, offset int64, length int64) ([]byte, error)

	// List enumerates object paths under prefix recursively, including
	// nested paths, in the store's natural listing order (lexicographic).
	List(ctx context.Context, prefix string) ([]string, error)

	// Size returns the size in bytes of the object at path.
	Size(ctx context.Context, path string) (int64, error)

	Shutdown()
}

// Writer writes and deletes objects.
type Writer interface {
	Write(ctx context.Context, path string, data []byte) error
	Delete(ctx context.Context, path string) error
}

// ReaderAtCloser adapts a Reader into an io.ReaderAt for a single object, used
// by the Parquet reader factory which wants random access without
// buffering the whole file when it's not in the file cache.
type ReaderAtCloser struct {
	ctx    context.Context
	path   string
	reader Reader
	size   int64
}

func NewReaderAt(ctx context.Context, reader Reader, path string, size int64) *ReaderAtCloser {
	return &ReaderAtCloser{ctx: ctx, path: path, reader: reader, size: size}
}

func (r *ReaderAtCloser) ReadAt(p []byte, off int64) (int, error) {
	if off >= r.size {
		return 0, io.EOF
	}
	length := int64(len(p))
	if off+length > r.size {
		length = r.size - off
	}
	b, err := r.reader.ReadRange(r.ctx, r.path, off, length)
	if err != nil {
		return 0, err
	}
	n := copy(p, b)
	if int64(n) < int64(len(p)) {
		return n, io.EOF
	}
	return n, nil
}

func (r *ReaderAtCloser) Close() error { return nil }
