// Package codec decodes the CBOR-framed, self-describing event blocks that
// every downstream stage (time conversion, row-set building, partition
// writing) consumes. It knows nothing about object stores or partitions; its
// only job is turning raw block bytes plus a stream's UDT metadata into a
// lazy sequence of typed objects.
package codec

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/pierrec/lz4/v4"
)

// Payload holds the two independently compressed byte sequences a block
// carries: interned dependency objects first, then the events themselves.
type Payload struct {
	Dependencies []byte
	Objects      []byte
}

// Envelope is the CBOR envelope wrapping one block, per the wire layout a
// stream writer produces when it flushes: identity, tick/time bounds, object
// count, and the compressed payload.
type Envelope struct {
	ProcessID    uuid.UUID `cbor:"process_id"`
	StreamID     uuid.UUID `cbor:"stream_id"`
	BlockID      uuid.UUID `cbor:"block_id"`
	BeginTime    time.Time `cbor:"begin_time"`
	BeginTicks   int64     `cbor:"begin_ticks"`
	EndTime      time.Time `cbor:"end_time"`
	EndTicks     int64     `cbor:"end_ticks"`
	NbObjects    uint32    `cbor:"nb_objects"`
	ObjectOffset uint32    `cbor:"object_offset"`
	Payload      Payload   `cbor:"payload"`
}

// DecodeEnvelope parses the outer CBOR envelope of a raw block. It does not
// touch the payload's inner sections; callers call ForEachObject separately
// once they have the stream's metadata in hand.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := cbor.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("%s: %w", err.Error(), ErrParse)
	}
	return env, nil
}

// decompress reads an LZ4 stream (the frame format, with its header and
// block checksums, not a bare LZ4 block) over the raw event queue bytes a
// stream writer produces for one payload section.
func decompress(section []byte) ([]byte, error) {
	if len(section) == 0 {
		return nil, nil
	}
	out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(section)))
	if err != nil {
		return nil, fmt.Errorf("decompress: %s: %w", err.Error(), ErrParse)
	}
	return out, nil
}
