package blockproc

import (
	"context"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/grafana/lakehouse/lakehouse/backend"
	"github.com/grafana/lakehouse/lakehouse/codec"
	"github.com/grafana/lakehouse/lakehouse/metastore"
)

// DecodeStreamMetadata unpacks the CBOR-encoded UDT vectors a stream
// registered at creation time (metastore.Stream.DependenciesMetadata/
// ObjectsMetadata) into the StreamMetadata ForEachObject needs.
func DecodeStreamMetadata(stream metastore.Stream) (codec.StreamMetadata, error) {
	var meta codec.StreamMetadata
	if len(stream.DependenciesMetadata) > 0 {
		if err := cbor.Unmarshal(stream.DependenciesMetadata, &meta.DependenciesMetadata); err != nil {
			return codec.StreamMetadata{}, fmt.Errorf("blockproc: decode dependencies metadata: %w", err)
		}
	}
	if len(stream.ObjectsMetadata) > 0 {
		if err := cbor.Unmarshal(stream.ObjectsMetadata, &meta.ObjectsMetadata); err != nil {
			return codec.StreamMetadata{}, fmt.Errorf("blockproc: decode objects metadata: %w", err)
		}
	}
	return meta, nil
}

// BlockPath returns the object store path a block's raw CBOR bytes live
// under, the blobs/<process>/<stream>/<block> layout backend.go's doc
// comment names.
func BlockPath(src Source) string {
	return fmt.Sprintf("blobs/%s/%s/%s",
		src.Process.ProcessID, src.Stream.StreamID, src.Block.BlockID)
}

// Run fetches one block's raw bytes from blob_storage, decodes its envelope,
// and dispatches the payload to proc, the full process(blob_storage,
// src_block) -> Option<RowSet> contract.
func Run(ctx context.Context, blobStorage backend.Reader, meta codec.StreamMetadata, src Source, proc Processor) (*RowSet, error) {
	raw, err := blobStorage.Read(ctx, BlockPath(src))
	if err != nil {
		return nil, fmt.Errorf("blockproc: fetch block payload: %w", err)
	}
	env, err := codec.DecodeEnvelope(raw)
	if err != nil {
		return nil, fmt.Errorf("blockproc: decode envelope: %w", err)
	}
	return proc.Process(meta, env.Payload, src)
}
