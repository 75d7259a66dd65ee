package rowset

import (
	"bytes"
	"encoding/json"
	"sort"
	"sync"

	"github.com/dgryski/go-farm"
)

// Property is one key/value pair attached to a process, stream, or event.
type Property struct {
	Key   string
	Value string
}

// EncodeProperties canonicalizes a property list (sorted by key, so two
// occurrences of the same set always serialize identically) and returns its
// JSON bytes for storage in a row's `dict`-tagged Properties column.
//
// original_source/rust/analytics/src/properties/dictionary_builder.rs hand-
// rolls an Arrow DictionaryArray so repeated identical property sets share
// one physical value; parquet-go's `dict` column encoding (used on every
// Properties field in this package) already performs that same
// byte-identical-value deduplication at the column level once it sees the
// encoded bytes, so canonicalizing to a stable byte form is the only piece
// left for this package to do itself.
func EncodeProperties(props []Property) []byte {
	if len(props) == 0 {
		return nil
	}
	sorted := make([]Property, len(props))
	copy(sorted, props)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	_ = enc.Encode(sorted)
	return bytes.TrimRight(buf.Bytes(), "\n")
}

// PropertyInterner deduplicates repeated encodings of the same property set
// by content hash instead of by equality scan, the same farm.Fingerprint64
// hashing friggdb.go runs over a block ID before trusting it against its
// bloom filter, applied here over the encoded property bytes so a view that
// re-sees the same tag set across many rows returns one shared []byte rather
// than a fresh allocation each time. A fingerprint collision falls through
// to a bytes.Equal check before trusting the cached entry.
type PropertyInterner struct {
	mu    sync.Mutex
	byKey map[uint64][]byte
}

func NewPropertyInterner() *PropertyInterner {
	return &PropertyInterner{byKey: make(map[uint64][]byte)}
}

// Intern encodes props and returns the interned []byte for its fingerprint,
// caching the first encoding seen for each distinct set. A nil receiver
// degrades to a plain EncodeProperties call so callers that don't need the
// cache (a one-off encode) aren't forced to construct an interner.
func (pi *PropertyInterner) Intern(props []Property) []byte {
	encoded := EncodeProperties(props)
	if pi == nil || len(encoded) == 0 {
		return encoded
	}
	fp := farm.Fingerprint64(encoded)

	pi.mu.Lock()
	defer pi.mu.Unlock()
	if cached, ok := pi.byKey[fp]; ok && bytes.Equal(cached, encoded) {
		return cached
	}
	pi.byKey[fp] = encoded
	return encoded
}

// DecodeProperties reverses EncodeProperties, used by the property_get and
// jsonb_* query-engine extension functions to walk a row's property
// list without re-deserializing through the metadata store.
func DecodeProperties(b []byte) ([]Property, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var props []Property
	if err := json.Unmarshal(b, &props); err != nil {
		return nil, err
	}
	return props, nil
}
