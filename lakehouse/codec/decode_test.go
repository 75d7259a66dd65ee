package codec

import (
	"bytes"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compressSection(t *testing.T, objs []wireObject) []byte {
	t.Helper()
	raw, err := cbor.Marshal(wireSection{Objects: objs})
	require.NoError(t, err)

	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	_, err = w.Write(raw)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestForEachObjectResolvesReferences(t *testing.T) {
	meta := StreamMetadata{
		DependenciesMetadata: []UserDefinedType{
			{Name: "StaticString", Members: []MemberType{{Name: "value", TypeName: "string"}}},
		},
		ObjectsMetadata: []UserDefinedType{
			{Name: "LogEntry", Members: []MemberType{
				{Name: "msg", TypeName: "StaticString", IsReference: true},
				{Name: "level", TypeName: "u32"},
			}},
		},
	}

	str := "hello"
	depIdx := uint32(0)
	level := uint32(3)

	deps := []wireObject{
		{Type: "StaticString", Members: []wireValue{{Str: &str}}},
	}
	objs := []wireObject{
		{Type: "LogEntry", Members: []wireValue{
			{Ref: &depIdx},
			{Scalar: level},
		}},
	}

	payload := Payload{
		Dependencies: compressSection(t, deps),
		Objects:      compressSection(t, objs),
	}

	var seen []Value
	err := ForEachObject(meta, payload, func(v Value) (bool, error) {
		seen = append(seen, v)
		return true, nil
	})
	require.NoError(t, err)
	require.Len(t, seen, 1)

	msg, ok := seen[0].Get("msg")
	require.True(t, ok)
	assert.Equal(t, KindObject, msg.Kind)
	assert.Equal(t, "StaticString", msg.TypeName)
	s, err := msg.GetString("value")
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	lvl, err := seen[0].GetInt64("level")
	require.NoError(t, err)
	assert.EqualValues(t, 3, lvl)
}

func TestForEachObjectStopsOnFalse(t *testing.T) {
	meta := StreamMetadata{
		ObjectsMetadata: []UserDefinedType{
			{Name: "Tick", Members: []MemberType{{Name: "n", TypeName: "u32"}}},
		},
	}

	objs := []wireObject{
		{Type: "Tick", Members: []wireValue{{Scalar: uint32(1)}}},
		{Type: "Tick", Members: []wireValue{{Scalar: uint32(2)}}},
	}
	payload := Payload{Objects: compressSection(t, objs)}

	count := 0
	err := ForEachObject(meta, payload, func(v Value) (bool, error) {
		count++
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestForEachObjectUnknownTypeIsParseError(t *testing.T) {
	meta := StreamMetadata{}
	objs := []wireObject{{Type: "Mystery"}}
	payload := Payload{Objects: compressSection(t, objs)}

	err := ForEachObject(meta, payload, func(v Value) (bool, error) {
		return true, nil
	})
	require.ErrorIs(t, err, ErrParse)
}

func TestGetStringMissingField(t *testing.T) {
	v := Value{Kind: KindObject}
	_, err := v.GetString("nope")
	assert.ErrorIs(t, err, ErrFieldMissing)
}
