// Package catalog answers the one question every materialization pass needs
// before it touches storage: is this partition already up to date, or does
// it need to be rebuilt? Grounded on
// original_source/rust/analytics/src/lakehouse/batch_update.rs's
// count_equal_partitions and the implicit "find what a new partition
// supersedes" step create_or_update_partition leaves to ListPartitions.
package catalog

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/grafana/lakehouse/lakehouse/metastore"
)

// Catalog is a thin, read-mostly view over the partition metadata table,
// the same role friggdb's in-memory Blocklist plays for tempodb's
// compactor: every caller consults it instead of re-querying Postgres
// directly so the up-to-date check stays in one place.
type Catalog struct {
	store *metastore.Store
}

func New(store *metastore.Store) *Catalog {
	return &Catalog{store: store}
}

// Status describes what a materialization pass should do about one
// (view set, view instance, insert range) slot.
type Status struct {
	// UpToDate is true when at least one partition already covers this exact
	// range with this exact source data hash and schema hash -
	// count_equal_partitions >= 1.
	UpToDate bool
	// Superseded holds every partition overlapping the range that is not an
	// exact match (same range, source data hash and schema hash); these are
	// what the writer's `retire` argument should be given.
	Superseded []metastore.Partition
}

// CheckRange mirrors count_equal_partitions: it classifies the partitions
// already on file for [begin, end) against sourceDataHash and schemaHash.
// More than one exact match is treated as "needs no new write, but
// something upstream double-wrote" (a condition documented as
// "too many partitions for the same time range"); it still reports UpToDate
// so a batch pass doesn't thrash retrying a condition it can't fix by
// itself. A partition whose FileSchemaHash no longer matches the view's
// current schemaHash never counts as exact - a stale-schema partition is
// treated as missing and falls into Superseded so a materialization pass
// retires and replaces it rather than reading it back as the current row
// type.
func (c *Catalog) CheckRange(ctx context.Context, viewSetName, viewInstanceID string, begin, end time.Time, sourceDataHash, schemaHash []byte) (Status, error) {
	overlapping, err := c.store.ListPartitionsOverlapping(ctx, viewSetName, viewInstanceID, begin, end)
	if err != nil {
		return Status{}, fmt.Errorf("catalog: list overlapping partitions: %w", err)
	}

	var equal int
	var status Status
	for _, p := range overlapping {
		exact := p.BeginInsertTime.Equal(begin) && p.EndInsertTime.Equal(end) &&
			bytes.Equal(p.SourceDataHash, sourceDataHash) && bytes.Equal(p.FileSchemaHash, schemaHash)
		if exact {
			equal++
			continue
		}
		status.Superseded = append(status.Superseded, p)
	}

	status.UpToDate = equal >= 1
	return status, nil
}

// PartitionsForView returns every partition on file for a view instance
// within [begin, end), ordered however the store returns them - callers
// that need them sorted for a merge sort themselves, since not every
// caller (e.g. the query path) cares about order.
func (c *Catalog) PartitionsForView(ctx context.Context, viewSetName, viewInstanceID string, begin, end time.Time) ([]metastore.Partition, error) {
	partitions, err := c.store.ListPartitionsOverlapping(ctx, viewSetName, viewInstanceID, begin, end)
	if err != nil {
		return nil, fmt.Errorf("catalog: list partitions for view: %w", err)
	}
	return partitions, nil
}

// RetireByFile marks the partition at filePath retired, moving its object
// to the temp_files GC queue with the given grace period. Thin passthrough
// kept here so callers that only hold a Catalog (not a *metastore.Store)
// can still retire a partition by hand, e.g. the query engine's
// retire_partition_by_file table function.
func (c *Catalog) RetireByFile(ctx context.Context, filePath string, tempFileExpiration time.Duration) error {
	return c.store.RetirePartitionByFile(ctx, filePath, tempFileExpiration)
}
