package metastore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a lookup by primary key finds no row.
var ErrNotFound = errors.New("metastore: not found")

// Store is the relational metadata store backing the lakehouse,
// backed by a pgx connection pool: single pool, short-lived transactions
// per write, no long-lived cursors held open.
type Store struct {
	pool *pgxpool.Pool
}

func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("metastore: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("metastore: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// InsertProcess records a newly started process. Idempotent on
// process_id: a duplicate insert (the historical non-idempotent ingest bug
// delete_duplicate_processes targets) is silently ignored by ON CONFLICT DO
// NOTHING, leaving the first row unchanged and returning no error.
func (s *Store) InsertProcess(ctx context.Context, p Process) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO processes
			(process_id, exe, username, realname, computer, distro, cpu_brand,
			 tsc_frequency, start_time, start_ticks, insert_time, parent_process_id, properties)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now(),$11,$12)
		ON CONFLICT (process_id) DO NOTHING`,
		p.ProcessID, p.Exe, p.Username, p.Realname, p.Computer, p.Distro, p.CPUBrand,
		p.TscFrequency, p.StartTime, p.StartTicks, p.ParentProcessID, propertiesToJSONB(p.Properties))
	if err != nil {
		return fmt.Errorf("metastore: insert process: %w", err)
	}
	return nil
}

// FindProcess looks up a process by id, mirroring metadata.rs's find_process.
func (s *Store) FindProcess(ctx context.Context, processID uuid.UUID) (Process, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT process_id, exe, username, realname, computer, distro, cpu_brand,
		       tsc_frequency, start_time, start_ticks, insert_time, parent_process_id, properties
		FROM processes WHERE process_id = $1`, processID)
	return scanProcess(row)
}

// InsertStream records a newly registered stream and its UDT metadata.
func (s *Store) InsertStream(ctx context.Context, st Stream) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO streams
			(stream_id, process_id, dependencies_metadata, objects_metadata, tags, properties, insert_time)
		VALUES ($1,$2,$3,$4,$5,$6,now())
		ON CONFLICT (stream_id) DO NOTHING`,
		st.StreamID, st.ProcessID, st.DependenciesMetadata, st.ObjectsMetadata, st.Tags, propertiesToJSONB(st.Properties))
	if err != nil {
		return fmt.Errorf("metastore: insert stream: %w", err)
	}
	return nil
}

// FindStream mirrors metadata.rs's find_stream.
func (s *Store) FindStream(ctx context.Context, streamID uuid.UUID) (Stream, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT stream_id, process_id, dependencies_metadata, objects_metadata, tags, properties
		FROM streams WHERE stream_id = $1`, streamID)
	return scanStream(row)
}

// ListProcessStreamsTagged mirrors metadata.rs's list_process_streams_tagged.
func (s *Store) ListProcessStreamsTagged(ctx context.Context, processID uuid.UUID, tag string) ([]Stream, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT stream_id, process_id, dependencies_metadata, objects_metadata, tags, properties
		FROM streams
		WHERE process_id = $1 AND $2 = ANY(tags)`, processID, tag)
	if err != nil {
		return nil, fmt.Errorf("metastore: list tagged streams: %w", err)
	}
	defer rows.Close()

	var out []Stream
	for rows.Next() {
		st, err := scanStream(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// InsertBlock records a newly flushed block.
func (s *Store) InsertBlock(ctx context.Context, b Block) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO blocks
			(block_id, stream_id, process_id, begin_time, begin_ticks, end_time, end_ticks,
			 nb_objects, object_offset, payload_size, insert_time)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now())
		ON CONFLICT (block_id) DO NOTHING`,
		b.BlockID, b.StreamID, b.ProcessID, b.BeginTime, b.BeginTicks, b.EndTime, b.EndTicks,
		b.NbObjects, b.ObjectOffset, b.PayloadSize)
	if err != nil {
		return fmt.Errorf("metastore: insert block: %w", err)
	}
	return nil
}

// FindStreamBlocksInRange mirrors metadata.rs's find_stream_blocks_in_range.
func (s *Store) FindStreamBlocksInRange(ctx context.Context, streamID uuid.UUID, beginTicks, endTicks int64) ([]Block, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT block_id, stream_id, process_id, begin_time, begin_ticks, end_time, end_ticks,
		       nb_objects, object_offset, payload_size, insert_time
		FROM blocks
		WHERE stream_id = $1 AND end_ticks >= $2 AND begin_ticks <= $3
		ORDER BY begin_ticks ASC`, streamID, beginTicks, endTicks)
	if err != nil {
		return nil, fmt.Errorf("metastore: find blocks in range: %w", err)
	}
	defer rows.Close()

	var out []Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// LatestBlock returns the most recently ended block for a process, used by
// the time converter's from_latest_timing derivation.
func (s *Store) LatestBlock(ctx context.Context, processID uuid.UUID) (Block, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT block_id, stream_id, process_id, begin_time, begin_ticks, end_time, end_ticks,
		       nb_objects, object_offset, payload_size, insert_time
		FROM blocks
		WHERE process_id = $1
		ORDER BY end_time DESC
		LIMIT 1`, processID)
	return scanBlock(row)
}

// FindBlocksTaggedInRange gathers every block, across every process, whose
// stream carries `tag` and whose wall-clock span overlaps [begin, end). This
// is the global-view counterpart to list_process_streams_tagged +
// find_stream_blocks_in_range in metadata.rs, folding both steps into one
// query for a view instance that spans every process instead of just one.
func (s *Store) FindBlocksTaggedInRange(ctx context.Context, tag string, begin, end time.Time) ([]Block, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT b.block_id, b.stream_id, b.process_id, b.begin_time, b.begin_ticks,
		       b.end_time, b.end_ticks, b.nb_objects, b.object_offset, b.payload_size,
		       b.insert_time
		FROM blocks b
		JOIN streams s ON s.stream_id = b.stream_id
		WHERE $1 = ANY(s.tags) AND b.end_time >= $2 AND b.begin_time <= $3
		ORDER BY b.begin_time ASC`, tag, begin, end)
	if err != nil {
		return nil, fmt.Errorf("metastore: find blocks tagged in range: %w", err)
	}
	defer rows.Close()

	var out []Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// InsertOrUpdatePartitionAndRetire performs the batch-update engine's
// idempotent re-materialization step in one short transaction: insert the
// new partition row and footer, and retire any partitions it supersedes by
// moving them to temp_files, since bulk retirement uses a
// single transaction" rule.
func (s *Store) InsertOrUpdatePartitionAndRetire(ctx context.Context, p Partition, metadataBytes []byte, retire []Partition, tempFileExpiration time.Duration) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("metastore: begin partition transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, old := range retire {
		if _, err := tx.Exec(ctx, `
			INSERT INTO temp_files (file_path, file_size, expiration)
			VALUES ($1, $2, now() + $3)
			ON CONFLICT (file_path) DO NOTHING`,
			old.FilePath, old.FileSize, tempFileExpiration); err != nil {
			return fmt.Errorf("metastore: stage retired partition: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM lakehouse_partitions WHERE file_path = $1`, old.FilePath); err != nil {
			return fmt.Errorf("metastore: retire partition: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO lakehouse_partitions
			(view_set_name, view_instance_id, begin_insert_time, end_insert_time,
			 min_event_time, max_event_time, updated_time, file_path, file_size,
			 file_schema_hash, source_data_hash)
		VALUES ($1,$2,$3,$4,$5,$6,now(),$7,$8,$9,$10)
		ON CONFLICT (file_path) DO UPDATE SET
			updated_time = now(),
			file_size = EXCLUDED.file_size,
			source_data_hash = EXCLUDED.source_data_hash`,
		p.ViewSetName, p.ViewInstanceID, p.BeginInsertTime, p.EndInsertTime,
		p.MinEventTime, p.MaxEventTime, p.FilePath, p.FileSize, p.FileSchemaHash, p.SourceDataHash); err != nil {
		return fmt.Errorf("metastore: insert partition: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO partition_metadata (file_path, metadata_bytes)
		VALUES ($1, $2)
		ON CONFLICT (file_path) DO UPDATE SET metadata_bytes = EXCLUDED.metadata_bytes`,
		p.FilePath, metadataBytes); err != nil {
		return fmt.Errorf("metastore: insert partition metadata: %w", err)
	}

	return tx.Commit(ctx)
}

// ListPartitionsOverlapping returns every live partition of a view instance
// whose insert-time range intersects [begin, end), the partition catalog's
// core overlap query.
func (s *Store) ListPartitionsOverlapping(ctx context.Context, viewSetName, viewInstanceID string, begin, end time.Time) ([]Partition, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT view_set_name, view_instance_id, begin_insert_time, end_insert_time,
		       min_event_time, max_event_time, updated_time, file_path, file_size,
		       file_schema_hash, source_data_hash
		FROM lakehouse_partitions
		WHERE view_set_name = $1 AND view_instance_id = $2
		  AND begin_insert_time < $4 AND end_insert_time > $3
		ORDER BY begin_insert_time ASC`, viewSetName, viewInstanceID, begin, end)
	if err != nil {
		return nil, fmt.Errorf("metastore: list overlapping partitions: %w", err)
	}
	defer rows.Close()

	var out []Partition
	for rows.Next() {
		p, err := scanPartition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListPartitionsContained returns every live partition of a view instance
// fully contained within [begin, end), the merger's source-selection
// query - grounded on merge.rs's create_merged_partition, which
// deliberately queries `begin_insert_time >= $3 AND end_insert_time <= $4`
// rather than the overlap predicate ListPartitionsOverlapping uses, "we are
// not looking for intersecting partitions, but only those that fit
// completely in the range".
func (s *Store) ListPartitionsContained(ctx context.Context, viewSetName, viewInstanceID string, begin, end time.Time) ([]Partition, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT view_set_name, view_instance_id, begin_insert_time, end_insert_time,
		       min_event_time, max_event_time, updated_time, file_path, file_size,
		       file_schema_hash, source_data_hash
		FROM lakehouse_partitions
		WHERE view_set_name = $1 AND view_instance_id = $2
		  AND begin_insert_time >= $3 AND end_insert_time <= $4
		ORDER BY begin_insert_time ASC`, viewSetName, viewInstanceID, begin, end)
	if err != nil {
		return nil, fmt.Errorf("metastore: list contained partitions: %w", err)
	}
	defer rows.Close()

	var out []Partition
	for rows.Next() {
		p, err := scanPartition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListProcessesInRange, ListStreamsInRange and ListBlocksInRange back the
// processes/streams/blocks view sets, which are thin SQL passthroughs
// rather than materialized Parquet partitions (view.NewProcesses et al.),
// grounded on blocks_view.rs's direct-SQL query shape.
func (s *Store) ListProcessesInRange(ctx context.Context, begin, end time.Time) ([]Process, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT process_id, exe, username, realname, computer, distro, cpu_brand,
		       tsc_frequency, start_time, start_ticks, insert_time, parent_process_id, properties
		FROM processes WHERE insert_time >= $1 AND insert_time < $2
		ORDER BY insert_time ASC`, begin, end)
	if err != nil {
		return nil, fmt.Errorf("metastore: list processes in range: %w", err)
	}
	defer rows.Close()

	var out []Process
	for rows.Next() {
		p, err := scanProcess(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ListStreamsInRange(ctx context.Context, begin, end time.Time) ([]Stream, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT stream_id, process_id, dependencies_metadata, objects_metadata, tags, properties
		FROM streams WHERE insert_time >= $1 AND insert_time < $2
		ORDER BY insert_time ASC`, begin, end)
	if err != nil {
		return nil, fmt.Errorf("metastore: list streams in range: %w", err)
	}
	defer rows.Close()

	var out []Stream
	for rows.Next() {
		st, err := scanStream(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) ListBlocksInRange(ctx context.Context, begin, end time.Time) ([]Block, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT block_id, stream_id, process_id, begin_time, begin_ticks,
		       end_time, end_ticks, nb_objects, object_offset, payload_size, insert_time
		FROM blocks WHERE insert_time >= $1 AND insert_time < $2
		ORDER BY insert_time ASC`, begin, end)
	if err != nil {
		return nil, fmt.Errorf("metastore: list blocks in range: %w", err)
	}
	defer rows.Close()

	var out []Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// BlocksSince pages newly-inserted blocks after cursor, ordered by
// insert_time, for an external mirror replaying the block stream. Returns
// at most limit blocks and the cursor value to resume from on the next
// call (the last row's insert_time, or the input cursor unchanged if
// nothing new was found).
func (s *Store) BlocksSince(ctx context.Context, cursor time.Time, limit int) ([]Block, time.Time, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT block_id, stream_id, process_id, begin_time, begin_ticks,
		       end_time, end_ticks, nb_objects, object_offset, payload_size, insert_time
		FROM blocks WHERE insert_time > $1
		ORDER BY insert_time ASC
		LIMIT $2`, cursor, limit)
	if err != nil {
		return nil, cursor, fmt.Errorf("metastore: list blocks since cursor: %w", err)
	}
	defer rows.Close()

	var out []Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, cursor, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, cursor, err
	}
	if len(out) > 0 {
		cursor = out[len(out)-1].InsertTime
	}
	return out, cursor, nil
}

// ListAllPartitions returns every live partition across every view set and
// instance, backing the query engine's list_partitions() table
// function.
func (s *Store) ListAllPartitions(ctx context.Context) ([]Partition, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT view_set_name, view_instance_id, begin_insert_time, end_insert_time,
		       min_event_time, max_event_time, updated_time, file_path, file_size,
		       file_schema_hash, source_data_hash
		FROM lakehouse_partitions
		ORDER BY view_set_name, view_instance_id, begin_insert_time ASC`)
	if err != nil {
		return nil, fmt.Errorf("metastore: list all partitions: %w", err)
	}
	defer rows.Close()

	var out []Partition
	for rows.Next() {
		p, err := scanPartition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteDuplicateProcesses, DeleteDuplicateStreams and DeleteDuplicateBlocks
// back the query engine's delete_duplicate_{processes,streams,blocks}()
// table functions. The ingest tables are keyed by UUID primary key, so a
// duplicate natural-key row can't exist under this schema the way it could
// in the original before its primary keys were tightened; these keep the
// ctid self-join shape of that cleanup anyway so the function stays
// available if a future migration ever relaxes a constraint.
func (s *Store) DeleteDuplicateProcesses(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM processes a USING processes b
		WHERE a.ctid < b.ctid AND a.process_id = b.process_id`)
	if err != nil {
		return 0, fmt.Errorf("metastore: delete duplicate processes: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) DeleteDuplicateStreams(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM streams a USING streams b
		WHERE a.ctid < b.ctid AND a.stream_id = b.stream_id`)
	if err != nil {
		return 0, fmt.Errorf("metastore: delete duplicate streams: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) DeleteDuplicateBlocks(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM blocks a USING blocks b
		WHERE a.ctid < b.ctid AND a.block_id = b.block_id`)
	if err != nil {
		return 0, fmt.Errorf("metastore: delete duplicate blocks: %w", err)
	}
	return tag.RowsAffected(), nil
}

// LoadPartitionFooter fetches a partition's stored Parquet footer bytes,
// grounded on
// original_source/rust/analytics/src/lakehouse/partition_metadata.rs's
// load_partition_metadata - minus its legacy-format upgrade and
// column-index-stripping steps, which exist there to paper over Arrow-rs
// reading a footer written by an older Arrow-rs version. parquet-go wrote
// and reads its own footer format consistently here, so there's no legacy
// format to compat with.
func (s *Store) LoadPartitionFooter(ctx context.Context, filePath string) ([]byte, error) {
	var metadataBytes []byte
	err := s.pool.QueryRow(ctx, `
		SELECT metadata_bytes FROM partition_metadata WHERE file_path = $1`, filePath).Scan(&metadataBytes)
	if err != nil {
		return nil, fmt.Errorf("metastore: load partition footer %s: %w", filePath, err)
	}
	return metadataBytes, nil
}

// RetirePartitionByFile manually retires a single partition by path.
func (s *Store) RetirePartitionByFile(ctx context.Context, filePath string, tempFileExpiration time.Duration) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("metastore: begin retire transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var fileSize int64
	err = tx.QueryRow(ctx, `SELECT file_size FROM lakehouse_partitions WHERE file_path = $1`, filePath).Scan(&fileSize)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("metastore: lookup partition: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO temp_files (file_path, file_size, expiration) VALUES ($1, $2, now() + $3)
		ON CONFLICT (file_path) DO NOTHING`, filePath, fileSize, tempFileExpiration); err != nil {
		return fmt.Errorf("metastore: stage temp file: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM lakehouse_partitions WHERE file_path = $1`, filePath); err != nil {
		return fmt.Errorf("metastore: delete partition: %w", err)
	}
	return tx.Commit(ctx)
}

// ExpiredTempFiles returns temp_files rows whose expiration has passed, for
// the GC task to delete from the object store and then from this table.
func (s *Store) ExpiredTempFiles(ctx context.Context, limit int) ([]TempFile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT file_path, file_size, expiration FROM temp_files
		WHERE expiration < now()
		ORDER BY expiration ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("metastore: list expired temp files: %w", err)
	}
	defer rows.Close()

	var out []TempFile
	for rows.Next() {
		var tf TempFile
		if err := rows.Scan(&tf.FilePath, &tf.FileSize, &tf.Expiration); err != nil {
			return nil, fmt.Errorf("metastore: scan temp file: %w", err)
		}
		out = append(out, tf)
	}
	return out, rows.Err()
}

// DeleteTempFile removes a temp_files row once its backing object has been
// deleted from the store.
func (s *Store) DeleteTempFile(ctx context.Context, filePath string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM temp_files WHERE file_path = $1`, filePath)
	if err != nil {
		return fmt.Errorf("metastore: delete temp file: %w", err)
	}
	return nil
}

// DeleteOldData retires every partition whose end_insert_time is older than
// cutoff: each one is staged into temp_files (same stage-then-delete shape
// as RetirePartitionByFile) and its partition_metadata row is dropped in the
// same transaction, batched with ANY($1) the way
// original_source/rust/analytics/src/lakehouse/partition_metadata.rs's
// delete_partition_metadata_batch avoids a per-row placeholder. Returns the
// number of partitions retired.
func (s *Store) DeleteOldData(ctx context.Context, cutoff time.Time, tempFileExpiration time.Duration) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("metastore: begin retention transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	rows, err := tx.Query(ctx, `
		SELECT file_path, file_size FROM lakehouse_partitions WHERE end_insert_time < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("metastore: list old partitions: %w", err)
	}
	var filePaths []string
	var fileSizes []int64
	for rows.Next() {
		var fp string
		var size int64
		if err := rows.Scan(&fp, &size); err != nil {
			rows.Close()
			return 0, fmt.Errorf("metastore: scan old partition: %w", err)
		}
		filePaths = append(filePaths, fp)
		fileSizes = append(fileSizes, size)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("metastore: list old partitions: %w", err)
	}
	rows.Close()

	if len(filePaths) == 0 {
		return 0, tx.Commit(ctx)
	}

	for i, fp := range filePaths {
		if _, err := tx.Exec(ctx, `
			INSERT INTO temp_files (file_path, file_size, expiration) VALUES ($1, $2, now() + $3)
			ON CONFLICT (file_path) DO NOTHING`, fp, fileSizes[i], tempFileExpiration); err != nil {
			return 0, fmt.Errorf("metastore: stage old partition %s: %w", fp, err)
		}
	}
	if _, err := tx.Exec(ctx, `DELETE FROM partition_metadata WHERE file_path = ANY($1)`, filePaths); err != nil {
		return 0, fmt.Errorf("metastore: delete old partition metadata: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM lakehouse_partitions WHERE file_path = ANY($1)`, filePaths); err != nil {
		return 0, fmt.Errorf("metastore: delete old partitions: %w", err)
	}

	return len(filePaths), tx.Commit(ctx)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProcess(row rowScanner) (Process, error) {
	var p Process
	var props []byte
	err := row.Scan(&p.ProcessID, &p.Exe, &p.Username, &p.Realname, &p.Computer, &p.Distro,
		&p.CPUBrand, &p.TscFrequency, &p.StartTime, &p.StartTicks, &p.InsertTime, &p.ParentProcessID, &props)
	if errors.Is(err, pgx.ErrNoRows) {
		return Process{}, ErrNotFound
	}
	if err != nil {
		return Process{}, fmt.Errorf("metastore: scan process: %w", err)
	}
	p.Properties = propertiesFromJSONB(props)
	return p, nil
}

func scanStream(row rowScanner) (Stream, error) {
	var st Stream
	var props []byte
	err := row.Scan(&st.StreamID, &st.ProcessID, &st.DependenciesMetadata, &st.ObjectsMetadata, &st.Tags, &props)
	if errors.Is(err, pgx.ErrNoRows) {
		return Stream{}, ErrNotFound
	}
	if err != nil {
		return Stream{}, fmt.Errorf("metastore: scan stream: %w", err)
	}
	st.Properties = propertiesFromJSONB(props)
	return st, nil
}

func scanBlock(row rowScanner) (Block, error) {
	var b Block
	err := row.Scan(&b.BlockID, &b.StreamID, &b.ProcessID, &b.BeginTime, &b.BeginTicks,
		&b.EndTime, &b.EndTicks, &b.NbObjects, &b.ObjectOffset, &b.PayloadSize, &b.InsertTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return Block{}, ErrNotFound
	}
	if err != nil {
		return Block{}, fmt.Errorf("metastore: scan block: %w", err)
	}
	return b, nil
}

func scanPartition(row rowScanner) (Partition, error) {
	var p Partition
	err := row.Scan(&p.ViewSetName, &p.ViewInstanceID, &p.BeginInsertTime, &p.EndInsertTime,
		&p.MinEventTime, &p.MaxEventTime, &p.UpdatedTime, &p.FilePath, &p.FileSize,
		&p.FileSchemaHash, &p.SourceDataHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return Partition{}, ErrNotFound
	}
	if err != nil {
		return Partition{}, fmt.Errorf("metastore: scan partition: %w", err)
	}
	return p, nil
}
