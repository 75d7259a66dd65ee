// Package merge combines several small partitions of one view instance
// into one larger partition, grounded on
// original_source/rust/analytics/src/lakehouse/merge.rs's
// create_merged_partition: select partitions fully contained in the target
// range, abort if fewer than two or if any has a stale schema hash, stream
// their rows into one new partition, and give the merged partition a
// source_data_hash that's the sum of its inputs' so the catalog's
// up-to-date check still recognizes it without re-reading the data.
package merge

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"

	"github.com/grafana/lakehouse/lakehouse/backend"
	"github.com/grafana/lakehouse/lakehouse/metastore"
)

// Blobs is the read-write blob surface this package needs.
type Blobs interface {
	backend.Reader
	backend.Writer
}

// DefaultApproxRowsPerBatch bounds how many rows merge holds in memory at
// once while re-streaming an input partition into the output writer,
// matching the "approx_nb_rows_per_batch" knob it's grounded on.
const DefaultApproxRowsPerBatch = 64 * 1024

// ErrTooFewPartitions is returned when fewer than two partitions are fully
// contained in the requested range - nothing to merge.
var ErrTooFewPartitions = fmt.Errorf("merge: fewer than two partitions in range")

// SchemaMismatchError reports that a candidate partition's file schema
// hash doesn't match the view's current one, so merging it would produce
// a partition not even the view that owns it could read back.
type SchemaMismatchError struct {
	FilePath string
}

func (e SchemaMismatchError) Error() string {
	return fmt.Sprintf("merge: partition %s has an incompatible schema hash", e.FilePath)
}

// Result summarizes a completed merge.
type Result struct {
	Partition     metastore.Partition
	MergedCount   int
	SumInputBytes int64
}

// Merge combines every partition of (viewSetName, viewInstanceID) fully
// contained in [begin, end) into one new partition of row type T, retiring
// the inputs on success.
func Merge[T any](ctx context.Context, store *metastore.Store, blobs Blobs, viewSetName, viewInstanceID string, begin, end time.Time, fileSchemaHash []byte, approxRowsPerBatch int, tempFileExpiration time.Duration) (Result, error) {
	if approxRowsPerBatch <= 0 {
		approxRowsPerBatch = DefaultApproxRowsPerBatch
	}

	parts, err := store.ListPartitionsContained(ctx, viewSetName, viewInstanceID, begin, end)
	if err != nil {
		return Result{}, fmt.Errorf("list contained partitions: %w", err)
	}
	if len(parts) < 2 {
		return Result{}, ErrTooFewPartitions
	}

	var sumSize int64
	var sourceHash uint64
	var minTime, maxTime time.Time
	for i, p := range parts {
		if !bytes.Equal(p.FileSchemaHash, fileSchemaHash) {
			return Result{}, SchemaMismatchError{FilePath: p.FilePath}
		}
		sumSize += p.FileSize
		sourceHash += decodeObjectCount(p.SourceDataHash)
		if i == 0 || p.MinEventTime.Before(minTime) {
			minTime = p.MinEventTime
		}
		if i == 0 || p.MaxEventTime.After(maxTime) {
			maxTime = p.MaxEventTime
		}
	}

	var buf bytes.Buffer
	out := parquet.NewGenericWriter[T](&buf,
		parquet.Compression(&parquet.Lz4Raw),
		parquet.DataPageStatistics(true),
	)

	for _, p := range parts {
		if err := streamPartitionInto(ctx, blobs, p.FilePath, out, approxRowsPerBatch); err != nil {
			return Result{}, fmt.Errorf("stream partition %s: %w", p.FilePath, err)
		}
	}
	if err := out.Close(); err != nil {
		return Result{}, fmt.Errorf("close merged writer: %w", err)
	}

	data := buf.Bytes()
	fileID := uuid.New()
	filePath := fmt.Sprintf("views/%s/%s/merged/%s/%s.parquet",
		viewSetName, viewInstanceID, begin.UTC().Format("2006-01-02-15-04-05"), fileID)
	if err := blobs.Write(ctx, filePath, data); err != nil {
		return Result{}, fmt.Errorf("upload merged object: %w", err)
	}

	merged := metastore.Partition{
		ViewSetName:     viewSetName,
		ViewInstanceID:  viewInstanceID,
		BeginInsertTime: begin,
		EndInsertTime:   end,
		MinEventTime:    minTime,
		MaxEventTime:    maxTime,
		UpdatedTime:     time.Now().UTC(),
		FilePath:        filePath,
		FileSize:        int64(len(data)),
		FileSchemaHash:  fileSchemaHash,
		SourceDataHash:  encodeObjectCount(sourceHash),
	}

	metadataBytes, err := footerBytes(data)
	if err != nil {
		return Result{}, fmt.Errorf("extract footer: %w", err)
	}

	if err := store.InsertOrUpdatePartitionAndRetire(ctx, merged, metadataBytes, parts, tempFileExpiration); err != nil {
		return Result{}, err
	}

	return Result{Partition: merged, MergedCount: len(parts), SumInputBytes: sumSize}, nil
}

// streamPartitionInto reads a source partition object whole, then decodes
// it in row batches of at most approxRowsPerBatch and re-appends each batch
// to out immediately, so at most one batch of decoded rows is held at a
// time; the merged output itself accumulates in out's buffer.
func streamPartitionInto[T any](ctx context.Context, blobs Blobs, filePath string, out *parquet.GenericWriter[T], approxRowsPerBatch int) error {
	data, err := blobs.Read(ctx, filePath)
	if err != nil {
		return fmt.Errorf("read source object: %w", err)
	}
	reader := parquet.NewGenericReader[T](bytes.NewReader(data))
	defer reader.Close()

	batch := make([]T, approxRowsPerBatch)
	for {
		n, err := reader.Read(batch)
		if n > 0 {
			if _, werr := out.Write(batch[:n]); werr != nil {
				return fmt.Errorf("write merged rows: %w", werr)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read source rows: %w", err)
		}
	}
}

// decodeObjectCount/encodeObjectCount mirror rowset.SourceDataHash's
// little-endian uint64 object-count encoding so merged hashes stay
// additive and comparable to un-merged ones, since a merged
// partition inherits source_data_hash = sum of inputs'.
func decodeObjectCount(hash []byte) uint64 {
	if len(hash) != 8 {
		return 0
	}
	return binary.LittleEndian.Uint64(hash)
}

func encodeObjectCount(count uint64) []byte {
	h := make([]byte, 8)
	binary.LittleEndian.PutUint64(h, count)
	return h
}

// footerBytes mirrors writer.footerBytes; duplicated rather than exported
// from the writer package to keep merge from depending on writer for one
// ten-line helper that reads the same fixed Parquet trailer layout either
// package would need to parse on its own.
func footerBytes(data []byte) ([]byte, error) {
	const trailerSize = 8
	if len(data) < trailerSize {
		return nil, fmt.Errorf("parquet object too small (%d bytes)", len(data))
	}
	trailer := data[len(data)-trailerSize:]
	footerLen := int(trailer[0]) | int(trailer[1])<<8 | int(trailer[2])<<16 | int(trailer[3])<<24
	start := len(data) - trailerSize - footerLen
	if start < 0 {
		return nil, fmt.Errorf("corrupt footer length %d", footerLen)
	}
	return data[start : len(data)-trailerSize], nil
}
