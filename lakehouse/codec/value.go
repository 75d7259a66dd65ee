package codec

// Kind discriminates the four shapes a decoded Value can take, per the
// self-describing layout: a scalar, an interned string, a reference into the
// dependency map, or a nested object with ordered members.
type Kind int

const (
	KindScalar Kind = iota
	KindString
	KindReference
	KindObject
)

// Member is one (name, value) pair of a decoded Object, in declaration order
// as recorded by the UserDefinedType that produced it.
type Member struct {
	Name  string
	Value Value
}

// Value is one decoded object, dependency, or member value. Only the field
// matching Kind is populated.
type Value struct {
	Kind Kind

	Scalar interface{}
	Str    string

	// TypeName and Members are set when Kind == KindObject.
	TypeName string
	Members  []Member
}

// Get returns the value of the named member, or (Value{}, false) if absent.
// Visitors use this instead of scanning Members directly.
func (v Value) Get(name string) (Value, bool) {
	for _, m := range v.Members {
		if m.Name == name {
			return m.Value, true
		}
	}
	return Value{}, false
}

// GetString returns the named member as a string, or ErrFieldMissing if the
// member is absent or not a string-shaped value.
func (v Value) GetString(name string) (string, error) {
	m, ok := v.Get(name)
	if !ok {
		return "", wrapField(name)
	}
	switch m.Kind {
	case KindString:
		return m.Str, nil
	case KindScalar:
		if s, ok := m.Scalar.(string); ok {
			return s, nil
		}
	}
	return "", wrapField(name)
}

// GetInt64 returns the named member as an int64.
func (v Value) GetInt64(name string) (int64, error) {
	m, ok := v.Get(name)
	if !ok {
		return 0, wrapField(name)
	}
	switch n := m.Scalar.(type) {
	case int64:
		return n, nil
	case uint64:
		return int64(n), nil
	case int:
		return int64(n), nil
	}
	return 0, wrapField(name)
}

// GetFloat64 returns the named member as a float64.
func (v Value) GetFloat64(name string) (float64, error) {
	m, ok := v.Get(name)
	if !ok {
		return 0, wrapField(name)
	}
	switch n := m.Scalar.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	}
	return 0, wrapField(name)
}

func wrapField(name string) error {
	return &fieldMissingError{field: name}
}

type fieldMissingError struct {
	field string
}

func (e *fieldMissingError) Error() string {
	return "codec: field missing: " + e.field
}

func (e *fieldMissingError) Unwrap() error {
	return ErrFieldMissing
}
