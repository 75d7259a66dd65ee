package query

import (
	"encoding/json"
	"fmt"

	"github.com/grafana/lakehouse/lakehouse/rowset"
)

// Functions groups the session-wide property/jsonb helpers every query
// session registers, grounded on
// original_source/rust/analytics/src/properties/properties_to_jsonb_udf.rs
// and src/dfext/jsonb/{cast,keys,parse}.rs. There is no embedded SQL
// session here to register UDFs on (see the package doc), so these are
// plain functions a caller's own expression evaluator invokes directly.
type Functions struct {
	interner *rowset.PropertyInterner
}

// NewFunctions returns a Functions backed by a fresh PropertyInterner, so
// PropertiesToDict calls against the same session share cached encodings.
// The zero value Functions{} still works (PropertiesToDict falls back to a
// plain encode) for callers that don't need the cache.
func NewFunctions() Functions {
	return Functions{interner: rowset.NewPropertyInterner()}
}

// PropertyGet returns the value of the first property named key, mirroring
// property_get's linear scan over the row's property list.
func (Functions) PropertyGet(props []rowset.Property, key string) (string, bool) {
	for _, p := range props {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// PropertiesToDict returns props re-encoded the same way rowset stores them
// on disk (sorted, JSON array of pairs) - the query-time equivalent of
// properties_to_dict, which in the original builds an Arrow DictionaryArray
// from the same canonical form. Routed through the interner when one is
// set, so a query scanning many rows with repeated tag sets reuses one
// encoding per distinct set instead of re-marshaling every row.
func (f Functions) PropertiesToDict(props []rowset.Property) []byte {
	return f.interner.Intern(props)
}

// PropertiesToJSONB converts a property list into a JSON object document
// (last write wins on duplicate keys), the shape jsonb_as_string/f64/i64
// and jsonb_object_keys below expect, as opposed to rowset's array-of-pairs
// storage form.
func (Functions) PropertiesToJSONB(props []rowset.Property) ([]byte, error) {
	obj := make(map[string]string, len(props))
	for _, p := range props {
		obj[p.Key] = p.Value
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("query: properties_to_jsonb: %w", err)
	}
	return b, nil
}

// JSONBParse parses arbitrary JSON text into the same document shape
// PropertiesToJSONB produces, backing the jsonb_parse function.
func (Functions) JSONBParse(text []byte) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(text, &doc); err != nil {
		return nil, fmt.Errorf("query: jsonb_parse: %w", err)
	}
	return doc, nil
}

func (f Functions) parse(doc []byte) (map[string]any, error) { return f.JSONBParse(doc) }

// JSONBAsString backs jsonb_as_string: doc[key] coerced to a string, or
// ok=false if key is absent or doc doesn't parse.
func (f Functions) JSONBAsString(doc []byte, key string) (string, bool) {
	m, err := f.parse(doc)
	if err != nil {
		return "", false
	}
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// JSONBAsF64 backs jsonb_as_f64.
func (f Functions) JSONBAsF64(doc []byte, key string) (float64, bool) {
	m, err := f.parse(doc)
	if err != nil {
		return 0, false
	}
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	n, ok := v.(float64)
	return n, ok
}

// JSONBAsI64 backs jsonb_as_i64, truncating the underlying JSON number
// (JSON has no separate integer type) toward zero.
func (f Functions) JSONBAsI64(doc []byte, key string) (int64, bool) {
	n, ok := f.JSONBAsF64(doc, key)
	if !ok {
		return 0, false
	}
	return int64(n), true
}

// JSONBObjectKeys backs jsonb_object_keys.
func (f Functions) JSONBObjectKeys(doc []byte) ([]string, error) {
	m, err := f.parse(doc)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys, nil
}
