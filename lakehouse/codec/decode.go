package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Visitor is called once per decoded object in a block's objects section.
// Returning false stops iteration early.
type Visitor func(Value) (continue_ bool, err error)

// ForEachObject decompresses and decodes a block's payload against the
// owning stream's metadata, registering every dependency object into an
// id-by-position map before resolving the objects section against it, per
// the self-describing layout: dependencies first, then objects, references
// resolved only backward.
func ForEachObject(meta StreamMetadata, payload Payload, visit Visitor) error {
	depBytes, err := decompress(payload.Dependencies)
	if err != nil {
		return err
	}
	objBytes, err := decompress(payload.Objects)
	if err != nil {
		return err
	}

	deps, err := decodeSection(depBytes)
	if err != nil {
		return err
	}
	objs, err := decodeSection(objBytes)
	if err != nil {
		return err
	}

	udts := flattenUDTs(meta)

	depValues := make([]Value, 0, len(deps))
	for _, wobj := range deps {
		udt, ok := meta.findDependencyUDT(wobj.Type)
		if !ok {
			return fmt.Errorf("unknown dependency type %q: %w", wobj.Type, ErrParse)
		}
		v, err := resolveObject(wobj, udt, udts, depValues)
		if err != nil {
			return err
		}
		depValues = append(depValues, v)
	}

	for _, wobj := range objs {
		udt, ok := meta.findObjectUDT(wobj.Type)
		if !ok {
			return fmt.Errorf("unknown object type %q: %w", wobj.Type, ErrParse)
		}
		v, err := resolveObject(wobj, udt, udts, depValues)
		if err != nil {
			return err
		}
		cont, err := visit(v)
		if err != nil {
			return err
		}
		if !cont {
			break
		}
	}
	return nil
}

func decodeSection(b []byte) ([]wireObject, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var section wireSection
	if err := cbor.Unmarshal(b, &section); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), ErrParse)
	}
	return section.Objects, nil
}

// flattenUDTs indexes every UDT a stream knows about by name, including
// secondary UDTs nested under a top-level descriptor, so a nested object's
// member names can be recovered regardless of which vector declared it.
func flattenUDTs(meta StreamMetadata) map[string]UserDefinedType {
	out := make(map[string]UserDefinedType)
	var add func(udt UserDefinedType)
	add = func(udt UserDefinedType) {
		out[udt.Name] = udt
		for _, sec := range udt.SecondaryUDTs {
			add(sec)
		}
	}
	for _, udt := range meta.DependenciesMetadata {
		add(udt)
	}
	for _, udt := range meta.ObjectsMetadata {
		add(udt)
	}
	return out
}

// resolveObject turns a wireObject into a Value, naming each member from the
// owning UDT's declared member order and resolving any reference members
// against deps, the dependency objects decoded so far.
func resolveObject(wobj wireObject, udt UserDefinedType, udts map[string]UserDefinedType, deps []Value) (Value, error) {
	members := make([]Member, 0, len(wobj.Members))
	for i, wm := range wobj.Members {
		name := fmt.Sprintf("field%d", i)
		if i < len(udt.Members) {
			name = udt.Members[i].Name
		}
		v, err := resolveValue(wm, udts, deps)
		if err != nil {
			return Value{}, err
		}
		members = append(members, Member{Name: name, Value: v})
	}
	return Value{Kind: KindObject, TypeName: wobj.Type, Members: members}, nil
}

func resolveValue(wv wireValue, udts map[string]UserDefinedType, deps []Value) (Value, error) {
	switch {
	case wv.Ref != nil:
		idx := int(*wv.Ref)
		if idx < 0 || idx >= len(deps) {
			return Value{}, fmt.Errorf("reference %d out of range: %w", idx, ErrParse)
		}
		return deps[idx], nil
	case wv.Obj != nil:
		nested := udts[wv.Obj.Type]
		return resolveObject(*wv.Obj, nested, udts, deps)
	case wv.Str != nil:
		return Value{Kind: KindString, Str: *wv.Str}, nil
	default:
		return Value{Kind: KindScalar, Scalar: wv.Scalar}, nil
	}
}
