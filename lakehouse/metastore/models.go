// Package metastore is the relational metadata store: processes, streams,
// and blocks on the ingest side; lakehouse_partitions, partition_metadata,
// and temp_files on the materialization side. Grounded on
// original_source/rust/analytics/src/metadata.rs (query shapes) and
// original_source/rust/ingestion/src/sql_telemetry_db.rs (table schema),
// reimplemented against jackc/pgx/v5 the way grafana-tempo's stack reaches for
// a driver library rather than hand-rolled wire protocol.
package metastore

import (
	"time"

	"github.com/google/uuid"
)

// Process is one registered telemetry-emitting process.
type Process struct {
	ProcessID       uuid.UUID
	Exe             string
	Username        string
	Realname        string
	Computer        string
	Distro          string
	CPUBrand        string
	TscFrequency    int64
	StartTime       time.Time
	StartTicks      int64
	InsertTime      time.Time
	ParentProcessID uuid.NullUUID
	Properties      map[string]string
}

// Stream is one stream of blocks published by a process, self-describing via
// its dependency/object UDT metadata.
type Stream struct {
	StreamID             uuid.UUID
	ProcessID            uuid.UUID
	DependenciesMetadata []byte
	ObjectsMetadata      []byte
	Tags                 []string
	Properties           map[string]string
	InsertTime           time.Time
}

// Block is one block of CBOR-encoded events within a stream.
type Block struct {
	BlockID      uuid.UUID
	StreamID     uuid.UUID
	ProcessID    uuid.UUID
	BeginTime    time.Time
	BeginTicks   int64
	EndTime      time.Time
	EndTicks     int64
	NbObjects    int32
	ObjectOffset int64
	PayloadSize  int64
	InsertTime   time.Time
}

// SumNbObjects totals NbObjects across blocks, the object count a caller
// hands to rowset.SourceDataHash when materializing a partition from them.
func SumNbObjects(blocks []Block) uint64 {
	var total uint64
	for _, b := range blocks {
		total += uint64(b.NbObjects)
	}
	return total
}

// Partition is one row of lakehouse_partitions: a materialized Parquet file
// backing one view instance's time slice.
type Partition struct {
	ViewSetName     string
	ViewInstanceID  string
	BeginInsertTime time.Time
	EndInsertTime   time.Time
	MinEventTime    time.Time
	MaxEventTime    time.Time
	UpdatedTime     time.Time
	FilePath        string
	FileSize        int64
	FileSchemaHash  []byte
	SourceDataHash  []byte
}

// PartitionMetadata is the (file_path, metadata_bytes) row split out of
// lakehouse_partitions so the hot table stays small; metadata_bytes is a
// copy of the partition's Parquet footer.
type PartitionMetadata struct {
	FilePath     string
	MetadataBytes []byte
}

// TempFile is a retired-but-not-yet-deleted object awaiting garbage
// collection once its expiration passes.
type TempFile struct {
	FilePath   string
	FileSize   int64
	Expiration time.Time
}
