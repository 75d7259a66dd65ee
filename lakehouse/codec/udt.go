package codec

// MemberType describes one field of a UserDefinedType: its name, its declared
// type (either a scalar type name or another UDT's name), its byte offset
// and size within the in-process C layout the sink recorded it from, and
// whether it was stored as a reference into the dependency map rather than
// inline.
type MemberType struct {
	Name        string `cbor:"name"`
	TypeName    string `cbor:"type_name"`
	Offset      uint32 `cbor:"offset"`
	Size        uint32 `cbor:"size"`
	IsReference bool   `cbor:"is_reference"`
}

// UserDefinedType is one entry of a stream's dependencies_metadata or
// objects_metadata vector: a self-describing struct layout that lets the
// decoder walk raw member bytes without a compiled-in schema.
type UserDefinedType struct {
	Name          string       `cbor:"name"`
	Size          uint32       `cbor:"size"`
	Members       []MemberType `cbor:"members"`
	IsReference   bool         `cbor:"is_reference"`
	SecondaryUDTs []UserDefinedType `cbor:"secondary_udts"`
}

// StreamMetadata is the pair of UDT vectors a stream publishes once at
// registration: one for objects referenced out of the main event stream
// (interned strings, property sets) and one for the events themselves.
type StreamMetadata struct {
	DependenciesMetadata []UserDefinedType
	ObjectsMetadata      []UserDefinedType
}

func (m StreamMetadata) findObjectUDT(typeName string) (UserDefinedType, bool) {
	for _, udt := range m.ObjectsMetadata {
		if udt.Name == typeName {
			return udt, true
		}
	}
	return UserDefinedType{}, false
}

func (m StreamMetadata) findDependencyUDT(typeName string) (UserDefinedType, bool) {
	for _, udt := range m.DependenciesMetadata {
		if udt.Name == typeName {
			return udt, true
		}
	}
	return UserDefinedType{}, false
}
