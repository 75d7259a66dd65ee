// Package codectest builds compressed, CBOR-encoded dependency/object
// sections outside the codec package, for tests in packages that consume
// codec.ForEachObject (blockproc, and anything built on top of it) without
// hand-rolling the wire format in every caller. The struct tags mirror
// codec's unexported wireValue/wireObject exactly, so a codectest.Object
// decodes through codec.ForEachObject identically to one built inside the
// codec package's own tests.
package codectest

import (
	"bytes"

	"github.com/fxamacker/cbor/v2"
	"github.com/pierrec/lz4/v4"
)

// Value is one member value: exactly one field should be set.
type Value struct {
	Ref    *uint32     `cbor:"r,omitempty"`
	Obj    *Object     `cbor:"o,omitempty"`
	Str    *string     `cbor:"x,omitempty"`
	Scalar interface{} `cbor:"s,omitempty"`
}

// Object is one UDT-typed object with ordered member values.
type Object struct {
	Type    string  `cbor:"t"`
	Members []Value `cbor:"m"`
}

type section struct {
	Objects []Object `cbor:"objs"`
}

// Str builds a string-valued member.
func Str(s string) Value { return Value{Str: &s} }

// Ref builds a reference-valued member pointing at dependency index idx.
func Ref(idx uint32) Value { return Value{Ref: &idx} }

// Scalar builds a scalar-valued member.
func Scalar(v interface{}) Value { return Value{Scalar: v} }

// Obj builds a nested-object-valued member.
func Obj(o Object) Value { return Value{Obj: &o} }

// EncodeSection CBOR-encodes and LZ4-stream-compresses a list of objects
// into one dependencies or objects section, ready to hand to a
// codec.Payload field.
func EncodeSection(objs []Object) ([]byte, error) {
	raw, err := cbor.Marshal(section{Objects: objs})
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
