package codec

// wireValue is the CBOR-level shape of one scalar, string, reference or
// nested object, as emitted by the dependency/object encoder. Exactly one
// field is populated; which one is determined by presence, not a tag byte,
// which keeps the wire format self-describing the way the stream metadata
// already is.
type wireValue struct {
	Ref    *uint32      `cbor:"r,omitempty"`
	Obj    *wireObject  `cbor:"o,omitempty"`
	Str    *string      `cbor:"x,omitempty"`
	Scalar interface{}  `cbor:"s,omitempty"`
}

// wireObject is one CBOR-encoded object: its UDT name and its member values
// in the declaration order of that UDT's Members.
type wireObject struct {
	Type    string      `cbor:"t"`
	Members []wireValue `cbor:"m"`
}

// wireSection is the top-level shape of a decompressed dependencies or
// objects byte sequence: an ordered list of objects. Order matters for the
// dependencies section, since a dependency's position is its reference id.
type wireSection struct {
	Objects []wireObject `cbor:"objs"`
}
