package rowset

import (
	"bytes"
	"fmt"

	"github.com/parquet-go/parquet-go"
)

// Builder accumulates rows of one Parquet-taggable struct type in memory and
// flushes them to a byte buffer, the shape every block processor and
// partition writer works against. Kept generic over the four view row
// types above rather than duck-typed, mirroring how grafana-tempo's converter
// commands use parquet.NewGenericWriter[*vparquetN.Trace] against one
// concrete row type per block version.
type Builder[T any] struct {
	rows []T
}

func NewBuilder[T any]() *Builder[T] {
	return &Builder[T]{}
}

func (b *Builder[T]) Append(row T) {
	b.rows = append(b.rows, row)
}

func (b *Builder[T]) Len() int {
	return len(b.rows)
}

func (b *Builder[T]) Rows() []T {
	return b.rows
}

// WriteParquet serializes the accumulated rows as a single-row-group
// Parquet file, LZ4_RAW-compressed and v2-encoded to match the partition
// writer's contract.
func (b *Builder[T]) WriteParquet() ([]byte, error) {
	var buf bytes.Buffer
	writer := parquet.NewGenericWriter[T](&buf,
		parquet.Compression(&parquet.Lz4Raw),
		parquet.DataPageStatistics(true),
	)

	if _, err := writer.Write(b.rows); err != nil {
		return nil, fmt.Errorf("rowset: write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("rowset: close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

// SourceDataHash is the source-data-hash stored alongside a partition: the
// count of source objects summed across the blocks that contributed rows to
// it (not the block count itself), used to detect when a partition needs
// re-materialization without comparing row contents. Little-endian encoded
// so it stays additive with merge.go's decodeObjectCount/encodeObjectCount,
// which read this same layout back when summing a merged partition's
// inputs.
func SourceDataHash(objectCount uint64) []byte {
	h := make([]byte, 8)
	for i := 0; i < 8; i++ {
		h[i] = byte(objectCount >> (8 * i))
	}
	return h
}
