// Package writer serializes a stream of per-block row-sets into one
// Parquet partition object, publishes its catalog row, and retires any
// partition it supersedes. Grounded on
// original_source/rust/analytics/src/lakehouse/batch_update.rs's
// create_or_update_partition: same buffer-in-memory-then-upload shape, same
// (min_time, max_time) accumulation across incoming row-sets, same
// views/<view_set>/<view_instance>/... file path convention.
//
// The original streams Arrow RecordBatches straight into one open
// ArrowWriter. This port's block processors already close each
// block's contribution into a small standalone Parquet object (so that a
// Builder's "finish is destructive, may be called once" invariant has one
// obvious place to live); the writer here re-reads each of those with
// parquet-go's generic Reader and re-appends the rows into the partition's
// single GenericWriter, which is both the only `parquet-go` API available
// for this and the same read-then-rewrite shape the merger already needs
// for combining partitions, so the concern isn't duplicated, just reused
// one layer down.
package writer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"

	"github.com/grafana/lakehouse/lakehouse/backend"
	"github.com/grafana/lakehouse/lakehouse/blockproc"
	"github.com/grafana/lakehouse/lakehouse/metastore"
)

// Params identifies the partition being written and the retirement window
// it supersedes, everything create_or_update_partition needs besides the
// row-sets themselves.
type Params struct {
	ViewSetName        string
	ViewInstanceID     string
	SchemaHash         []byte
	BeginInsert        time.Time
	EndInsert          time.Time
	SourceDataHash     []byte
	TempFileExpiration time.Duration
}

func (p Params) pathBucket() string {
	return p.BeginInsert.UTC().Format("2006-01-02-15-04-05")
}

// WritePartition drains rowSets (one per processed block, nils for empty
// blocks skipped) into a single Parquet object of row type T, uploads it,
// and commits the catalog row in one transaction with whatever partitions
// in `retire` it supersedes.
//
// If every row-set was empty, no object is uploaded; a catalog row is still
// inserted with a zero file_size so callers learn "materialized, empty" —
// RetirePartitionByFile and the catalog's staleness check
// both key off the row, not the object's existence.
func WritePartition[T any](ctx context.Context, blobs backend.Writer, store *metastore.Store, params Params, rowSets []*blockproc.RowSet, retire []metastore.Partition) (metastore.Partition, error) {
	var buf bytes.Buffer
	out := parquet.NewGenericWriter[T](&buf,
		parquet.Compression(&parquet.Lz4Raw),
		parquet.DataPageStatistics(true),
	)

	var minTime, maxTime time.Time
	var sawRows bool

	for _, rs := range rowSets {
		if rs == nil || rs.NumRows == 0 {
			continue
		}
		rows, err := readRows[T](rs.Parquet, rs.NumRows)
		if err != nil {
			return metastore.Partition{}, fmt.Errorf("writer: re-read block row-set: %w", err)
		}
		if _, err := out.Write(rows); err != nil {
			return metastore.Partition{}, fmt.Errorf("writer: write partition rows: %w", err)
		}
		if !sawRows || rs.TimeRange.Begin.Before(minTime) {
			minTime = rs.TimeRange.Begin
		}
		if !sawRows || rs.TimeRange.End.After(maxTime) {
			maxTime = rs.TimeRange.End
		}
		sawRows = true
	}

	partition := metastore.Partition{
		ViewSetName:     params.ViewSetName,
		ViewInstanceID:  params.ViewInstanceID,
		BeginInsertTime: params.BeginInsert,
		EndInsertTime:   params.EndInsert,
		FileSchemaHash:  params.SchemaHash,
		SourceDataHash:  params.SourceDataHash,
		UpdatedTime:     time.Now().UTC(),
	}

	if !sawRows {
		if err := out.Close(); err != nil {
			return metastore.Partition{}, fmt.Errorf("writer: close empty partition writer: %w", err)
		}
		if err := store.InsertOrUpdatePartitionAndRetire(ctx, partition, nil, retire, params.TempFileExpiration); err != nil {
			return metastore.Partition{}, err
		}
		return partition, nil
	}

	if err := out.Close(); err != nil {
		return metastore.Partition{}, fmt.Errorf("writer: close partition writer: %w", err)
	}

	data := buf.Bytes()
	fileID := uuid.New()
	filePath := fmt.Sprintf("views/%s/%s/%s/%s.parquet",
		params.ViewSetName, params.ViewInstanceID, params.pathBucket(), fileID)

	if err := blobs.Write(ctx, filePath, data); err != nil {
		return metastore.Partition{}, fmt.Errorf("writer: upload partition object: %w", err)
	}

	partition.MinEventTime = minTime
	partition.MaxEventTime = maxTime
	partition.FilePath = filePath
	partition.FileSize = int64(len(data))

	metadataBytes, err := footerBytes(data)
	if err != nil {
		return metastore.Partition{}, fmt.Errorf("writer: extract footer: %w", err)
	}

	if err := store.InsertOrUpdatePartitionAndRetire(ctx, partition, metadataBytes, retire, params.TempFileExpiration); err != nil {
		return metastore.Partition{}, err
	}
	return partition, nil
}

func readRows[T any](data []byte, numRows int) ([]T, error) {
	reader := parquet.NewGenericReader[T](bytes.NewReader(data))
	defer reader.Close()

	rows := make([]T, numRows)
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return rows[:n], nil
}

// footerBytes splits out the trailing Parquet footer partition_metadata
// stores as a sibling row, kept as a copy of the Parquet footer so
// the hot lakehouse_partitions table stays small. The footer is
// length-prefixed by the last 8 bytes of a Parquet file per the format spec
// (4-byte footer length + 4-byte "PAR1" magic).
func footerBytes(data []byte) ([]byte, error) {
	const trailerSize = 8
	if len(data) < trailerSize {
		return nil, fmt.Errorf("writer: parquet object too small (%d bytes)", len(data))
	}
	trailer := data[len(data)-trailerSize:]
	footerLen := int(trailer[0]) | int(trailer[1])<<8 | int(trailer[2])<<16 | int(trailer[3])<<24
	start := len(data) - trailerSize - footerLen
	if start < 0 {
		return nil, fmt.Errorf("writer: corrupt footer length %d", footerLen)
	}
	return data[start : len(data)-trailerSize], nil
}
