// Package replication lets an external mirror page through newly-inserted
// blocks without re-scanning the whole metastore, grounded on
// original_source/rust/analytics/src/replication.rs's role of streaming
// freshly-ingested rows to a second data lake. The original moves Arrow
// Flight record batches end to end (bulk_ingest/ingest_processes); the wire
// transport and the receiving lake are both external per this module's
// scope, so what's implemented here is the piece that is this module's to
// own: a resumable (last_seen_insert_time) cursor over the blocks table.
package replication

import (
	"context"
	"time"

	"github.com/grafana/lakehouse/lakehouse/metastore"
)

// Cursor tracks how far a replica has read the block stream.
type Cursor struct {
	store *metastore.Store
	last  time.Time
}

// NewCursor starts a cursor at last, the insert_time of the most recently
// replicated block (the zero value replays the whole table).
func NewCursor(store *metastore.Store, last time.Time) *Cursor {
	return &Cursor{store: store, last: last}
}

// Next fetches up to limit blocks inserted after the cursor's current
// position and advances it. An empty result with a nil error means the
// replica is caught up; callers poll again after a delay.
func (c *Cursor) Next(ctx context.Context, limit int) ([]metastore.Block, error) {
	blocks, next, err := c.store.BlocksSince(ctx, c.last, limit)
	if err != nil {
		return nil, err
	}
	c.last = next
	return blocks, nil
}

// Position returns the insert_time a caller should persist to resume this
// cursor across restarts.
func (c *Cursor) Position() time.Time {
	return c.last
}
