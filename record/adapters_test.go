package record

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"

	"github.com/spookydb/spookydb/format"
)

func decodeJSON(t *testing.T, src string) any {
	t.Helper()

	dec := json.NewDecoder(bytes.NewReader([]byte(src)))
	dec.UseNumber()

	var out any
	require.NoError(t, dec.Decode(&out))

	return out
}

func TestJSONValue_NumberNarrowing(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantTag format.Tag
	}{
		{"integer", `42`, format.TagInt64},
		{"negative integer", `-42`, format.TagInt64},
		{"huge unsigned", `18446744073709551615`, format.TagUint64},
		{"decimal", `1.5`, format.TagFloat},
		{"exponent", `1e3`, format.TagFloat},
		{"bool", `true`, format.TagBool},
		{"null", `null`, format.TagNull},
		{"string", `"x"`, format.TagString},
		{"array", `[1,2]`, format.TagNested},
		{"object", `{"a":1}`, format.TagNested},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, tag, err := EncodeField(nil, JSON(decodeJSON(t, tt.src)))
			require.NoError(t, err)
			require.Equal(t, tt.wantTag, tag)
		})
	}
}

func TestJSONFamily_RoundTrip(t *testing.T) {
	obj := decodeJSON(t, `{
		"name": "Alice",
		"age": 28,
		"score": 99.5,
		"active": true,
		"meta": null,
		"tags": ["go", "db"],
		"profile": {"bio": "engineer", "level": 3}
	}`).(map[string]any)

	fields := make(map[string]JSONValue, len(obj))
	for k, v := range obj {
		fields[k] = JSON(v)
	}

	buf, n, err := Serialize(fields)
	require.NoError(t, err)
	require.Equal(t, 7, n)

	rec, err := NewRecord(buf)
	require.NoError(t, err)

	name, ok := DecodeNamed[any](rec, JSONBuilder{}, "name")
	require.True(t, ok)
	require.Equal(t, "Alice", name)

	age, ok := DecodeNamed[any](rec, JSONBuilder{}, "age")
	require.True(t, ok)
	require.Equal(t, int64(28), age)

	score, ok := DecodeNamed[any](rec, JSONBuilder{}, "score")
	require.True(t, ok)
	require.Equal(t, 99.5, score)

	tags, ok := DecodeNamed[any](rec, JSONBuilder{}, "tags")
	require.True(t, ok)
	require.Equal(t, []any{"go", "db"}, tags)

	profile, ok := DecodeNamed[any](rec, JSONBuilder{}, "profile")
	require.True(t, ok)
	m, isMap := profile.(map[string]any)
	require.True(t, isMap)
	require.Equal(t, "engineer", m["bio"])
}

func TestCBORValue_IntegerDispatch(t *testing.T) {
	// Non-negative CBOR integers decode as uint64 but must take the signed
	// path while they fit; only values past MaxInt64 go unsigned.
	_, tag, err := EncodeField(nil, CBOR(uint64(7)))
	require.NoError(t, err)
	require.Equal(t, format.TagInt64, tag)

	_, tag, err = EncodeField(nil, CBOR(uint64(math.MaxUint64)))
	require.NoError(t, err)
	require.Equal(t, format.TagUint64, tag)

	_, tag, err = EncodeField(nil, CBOR(int64(-7)))
	require.NoError(t, err)
	require.Equal(t, format.TagInt64, tag)
}

func TestCBORFamily_RoundTrip(t *testing.T) {
	src := map[string]any{
		"name":   "Alice",
		"age":    uint64(28),
		"nested": map[string]any{"a": uint64(1)},
	}

	enc, err := cbor.Marshal(src)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, cborDecMode.Unmarshal(enc, &decoded))

	fields := make(map[string]CBORValue, len(decoded))
	for k, v := range decoded {
		fields[k] = CBOR(v)
	}

	buf, _, err := Serialize(fields)
	require.NoError(t, err)

	rec, err := NewRecord(buf)
	require.NoError(t, err)

	age, ok := DecodeNamed[any](rec, CBORBuilder{}, "age")
	require.True(t, ok)
	require.Equal(t, int64(28), age)

	nested, ok := DecodeNamed[any](rec, CBORBuilder{}, "nested")
	require.True(t, ok)
	m, isMap := nested.(map[string]any)
	require.True(t, isMap)
	require.NotEmpty(t, m)
}

func TestCrossFamilyReads(t *testing.T) {
	// A record written from JSON values reads back into native Values.
	obj := decodeJSON(t, `{"age": 28, "name": "Alice"}`).(map[string]any)
	fields := make(map[string]JSONValue, len(obj))
	for k, v := range obj {
		fields[k] = JSON(v)
	}

	buf, _, err := Serialize(fields)
	require.NoError(t, err)

	rec, err := NewRecord(buf)
	require.NoError(t, err)

	age, ok := rec.GetInt64("age")
	require.True(t, ok)
	require.Equal(t, int64(28), age)

	v, ok := rec.GetValue("name")
	require.True(t, ok)
	s, _ := v.AsString()
	require.Equal(t, "Alice", s)
}
