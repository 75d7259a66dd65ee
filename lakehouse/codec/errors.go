package codec

import "errors"

// ErrParse is returned for any framing or length error while decoding a
// block's dependencies or objects section. The batch and JIT
// materialization paths in this module return it to their caller, which
// abandons the partition being built; the failing block is not skipped.
var ErrParse = errors.New("codec: parse error")

// ErrFieldMissing is returned when a well-formed object is missing a member
// a visitor expected. It propagates the same way ErrParse does.
var ErrFieldMissing = errors.New("codec: field missing")
