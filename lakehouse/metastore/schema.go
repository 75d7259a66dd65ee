package metastore

import (
	"context"
	"fmt"
)

// CreateSchema runs the full set of DDL statements for a fresh metadata
// store, mirroring sql_telemetry_db.rs's create_tables: a properties
// composite type, the ingest-side tables, then the lakehouse-side tables
// this system adds, all inside one transaction.
func CreateSchema(ctx context.Context, s *Store) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("metastore: begin schema transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	statements := []string{
		`CREATE TABLE IF NOT EXISTS processes(
			process_id UUID PRIMARY KEY,
			exe VARCHAR(255),
			username VARCHAR(255),
			realname VARCHAR(255),
			computer VARCHAR(255),
			distro VARCHAR(255),
			cpu_brand VARCHAR(255),
			tsc_frequency BIGINT,
			start_time TIMESTAMPTZ,
			start_ticks BIGINT,
			insert_time TIMESTAMPTZ,
			parent_process_id UUID,
			properties JSONB
		)`,
		`CREATE INDEX IF NOT EXISTS process_start_time ON processes(start_time)`,
		`CREATE INDEX IF NOT EXISTS process_parent ON processes(parent_process_id)`,

		`CREATE TABLE IF NOT EXISTS streams(
			stream_id UUID PRIMARY KEY,
			process_id UUID REFERENCES processes(process_id),
			dependencies_metadata BYTEA,
			objects_metadata BYTEA,
			tags TEXT[],
			properties JSONB,
			insert_time TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS stream_process_id ON streams(process_id)`,
		`CREATE INDEX IF NOT EXISTS stream_insert_time ON streams(insert_time)`,

		`CREATE TABLE IF NOT EXISTS blocks(
			block_id UUID PRIMARY KEY,
			stream_id UUID REFERENCES streams(stream_id),
			process_id UUID REFERENCES processes(process_id),
			begin_time TIMESTAMPTZ,
			begin_ticks BIGINT,
			end_time TIMESTAMPTZ,
			end_ticks BIGINT,
			nb_objects INT,
			object_offset BIGINT,
			payload_size BIGINT,
			insert_time TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS block_stream_id ON blocks(stream_id)`,
		`CREATE INDEX IF NOT EXISTS block_insert_time ON blocks(insert_time)`,

		`CREATE TABLE IF NOT EXISTS lakehouse_partitions(
			view_set_name VARCHAR(255),
			view_instance_id VARCHAR(255),
			begin_insert_time TIMESTAMPTZ,
			end_insert_time TIMESTAMPTZ,
			min_event_time TIMESTAMPTZ,
			max_event_time TIMESTAMPTZ,
			updated_time TIMESTAMPTZ,
			file_path VARCHAR(1024) PRIMARY KEY,
			file_size BIGINT,
			file_schema_hash BYTEA,
			source_data_hash BYTEA
		)`,
		`CREATE INDEX IF NOT EXISTS partition_view ON lakehouse_partitions(view_set_name, view_instance_id)`,
		`CREATE INDEX IF NOT EXISTS partition_insert_range ON lakehouse_partitions(begin_insert_time, end_insert_time)`,

		`CREATE TABLE IF NOT EXISTS partition_metadata(
			file_path VARCHAR(1024) PRIMARY KEY REFERENCES lakehouse_partitions(file_path) ON DELETE CASCADE,
			metadata_bytes BYTEA
		)`,

		`CREATE TABLE IF NOT EXISTS temp_files(
			file_path VARCHAR(1024) PRIMARY KEY,
			file_size BIGINT,
			expiration TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS temp_file_expiration ON temp_files(expiration)`,
	}

	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("metastore: create schema: %w", err)
		}
	}

	return tx.Commit(ctx)
}
