package desc

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compose-network/aebridge/x/fourcc"
)

func roundTrip(t *testing.T, v any) any {
	t.Helper()

	data, err := NewEncoder(nil).Encode(v)
	require.NoError(t, err)
	require.Zero(t, len(data)%2, "flattened length is even")

	out, err := NewDecoder().Decode(data)
	require.NoError(t, err)
	return out
}

func TestRoundTrip_Scalars(t *testing.T) {
	t.Parallel()

	assert.Nil(t, roundTrip(t, nil))
	assert.Equal(t, true, roundTrip(t, true))
	assert.Equal(t, false, roundTrip(t, false))
	assert.Equal(t, 42, roundTrip(t, 42))
	assert.Equal(t, 3.25, roundTrip(t, 3.25))
	assert.Equal(t, "Grüße, 世界 🎉", roundTrip(t, "Grüße, 世界 🎉"))
	assert.Equal(t, "", roundTrip(t, ""))
	assert.Equal(t, File{Path: "/tmp/a b.txt"}, roundTrip(t, File{Path: "/tmp/a b.txt"}))
}

func TestRoundTrip_IntegerBoundary(t *testing.T) {
	t.Parallel()

	assert.Equal(t, math.MaxInt32, roundTrip(t, math.MaxInt32))
	assert.Equal(t, math.MinInt32, roundTrip(t, math.MinInt32))
	assert.Equal(t, float64(-2147483649), roundTrip(t, -2147483649))
	assert.Equal(t, float64(2147483648), roundTrip(t, int64(2147483648)))
	assert.Equal(t, float64(2147483648), roundTrip(t, uint32(2147483648)))
	assert.Equal(t, 7, roundTrip(t, uint8(7)))
}

func TestRoundTrip_Date(t *testing.T) {
	t.Parallel()

	in := time.Date(2024, 5, 6, 7, 8, 9, 600*int(time.Millisecond), time.FixedZone("X", 3600))
	out := roundTrip(t, in)
	assert.Equal(t, time.Date(2024, 5, 6, 6, 8, 10, 0, time.UTC), out)

	assert.Equal(t, time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC), roundTrip(t, time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestRoundTrip_Collections(t *testing.T) {
	t.Parallel()

	in := []any{1, "two", []any{3.5, nil}, map[string]any{"name": "x", "index": 2}}
	out := roundTrip(t, in)
	assert.Equal(t, []any{1, "two", []any{3.5, nil}, map[string]any{"name": "x", "index": 2}}, out)

	assert.Equal(t, []any{}, roundTrip(t, []any{}))
	assert.Equal(t, []any{1, 2, 3}, roundTrip(t, []int{1, 2, 3}), "typed slices encode as lists")
	assert.Equal(t, map[string]any{"name": "y"}, roundTrip(t, map[string]string{"name": "y"}))
}

func TestRoundTrip_Keywords(t *testing.T) {
	t.Parallel()

	out := roundTrip(t, TypeKeyword("document"))
	kw, ok := out.(Keyword)
	require.True(t, ok)
	assert.Equal(t, Keyword{Type: TypeType, Code: fourcc.Make("docu"), Name: "document"}, kw)

	out = roundTrip(t, EnumKeyword("yes"))
	assert.Equal(t, Keyword{Type: TypeEnumerated, Code: fourcc.Make("yes "), Name: "yes"}, out)

	out = roundTrip(t, CodeKeyword(TypeEnumerated, fourcc.Make("zzzz")))
	assert.Equal(t, "'zzzz'", out.(Keyword).Name, "unknown codes keep the raw code as name")
}

func TestEncode_ClassResolution(t *testing.T) {
	t.Parallel()

	data, err := NewEncoder(nil).Encode(map[string]any{"class": TypeKeyword("document"), "name": "x"})
	require.NoError(t, err)
	assert.Equal(t, uint32(0x646f6375), binary.BigEndian.Uint32(data[8:]))
	assert.Equal(t, uint32(0x646f6375), binary.BigEndian.Uint32(data[28:]), "preamble repeats the type")

	out, err := NewDecoder().Decode(data)
	require.NoError(t, err)
	m, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "x", m["name"])
	cls, ok := m["class"].(Keyword)
	require.True(t, ok)
	assert.Equal(t, uint32(0x646f6375), cls.Code)
	assert.Equal(t, "document", cls.Name)
}

func TestEncode_ClassKeySpellings(t *testing.T) {
	t.Parallel()

	for _, key := range []string{"class", "pcls", "'pcls'", "0x70636C73", "0x70636c73"} {
		data, err := NewEncoder(nil).Encode(map[string]any{key: TypeKeyword("window")})
		require.NoError(t, err, key)
		assert.Equal(t, fourcc.Make("cwin"), binary.BigEndian.Uint32(data[8:]), key)
	}
}

func TestRoundTrip_UserFieldsAndLiteralKeys(t *testing.T) {
	t.Parallel()

	in := map[string]any{
		"name":       "n",
		"my field":   []any{1},
		"0x12345678": true,
		"'abcd'":     "lit",
	}
	out := roundTrip(t, in)
	assert.Equal(t, map[string]any{
		"name":       "n",
		"my field":   []any{1},
		"0x12345678": true,
		"0x61626364": "lit",
	}, out)
}

func TestEncode_Failures(t *testing.T) {
	t.Parallel()

	enc := NewEncoder(nil)

	_, err := enc.Encode(math.NaN())
	require.ErrorIs(t, err, ErrNonFinite)

	_, err = enc.Encode(map[string]any{"class": TypeKeyword("no such class")})
	require.ErrorIs(t, err, ErrUnresolvedName)
	var encErr *EncodeError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, TypeKeyword("no such class"), encErr.Value)

	_, err = enc.Encode(struct{ A int }{1})
	require.ErrorIs(t, err, ErrUnsupportedValue)

	_, err = enc.Encode(map[int]any{1: 2})
	require.ErrorIs(t, err, ErrUnsupportedValue)

	_, err = enc.Encode([]any{1, math.Inf(1)})
	require.ErrorIs(t, err, ErrNonFinite)
}

func TestEncode_AlignmentAfterEveryValue(t *testing.T) {
	t.Parallel()

	enc := NewEncoder(nil)
	w := NewWriter(0)
	for _, v := range []any{
		"a", File{Path: "/x"}, Opaque{Type: fourcc.Make("zzzz"), Data: []byte{1, 2, 3}},
		[]any{"odd", Opaque{Type: TypeUTF8Text, Data: []byte("abc")}}, 1, true,
	} {
		require.NoError(t, enc.WriteValue(w, v))
		assert.Zero(t, w.Len()%2, "%#v", v)
	}
}

func TestDecode_TruncatedInputFails(t *testing.T) {
	t.Parallel()

	values := []any{
		nil, true, 42, 2.5, "hello", "odd", time.Unix(0, 0),
		[]any{1, "a", []any{nil}},
		map[string]any{"class": TypeKeyword("document"), "name": "x", "other": 1},
		File{Path: "/abc"},
		Opaque{Type: fourcc.Make("zzzz"), Data: []byte{9}},
	}
	for _, v := range values {
		data, err := NewEncoder(nil).Encode(v)
		require.NoError(t, err)

		_, err = NewDecoder().Decode(data[:len(data)-1])
		var decErr *DecodeError
		require.ErrorAs(t, err, &decErr, "%#v", v)
	}
}

func TestDecode_OffsetMismatch(t *testing.T) {
	t.Parallel()

	data := []byte{
		'd', 'l', 'e', '2', 0, 0, 0, 0,
		'l', 'o', 'n', 'g', 0, 0, 0, 6, 0, 0, 0, 1, 0, 0,
	}
	_, err := NewDecoder().Decode(data)
	require.ErrorIs(t, err, ErrOffsetMismatch)

	_, err = NewDecoder().Decode(append(data[:8:8], 't', 'r', 'u', 'e', 0, 0, 0, 2, 0, 0))
	require.ErrorIs(t, err, ErrOffsetMismatch, "zero-length types must be empty")
}

func TestDecode_BadHeader(t *testing.T) {
	t.Parallel()

	_, err := NewDecoder().Decode([]byte("abcd\x00\x00\x00\x00null\x00\x00\x00\x00"))
	require.ErrorIs(t, err, ErrBadHeader)
}

func TestDecode_AlternativeScalarForms(t *testing.T) {
	t.Parallel()

	dec := NewDecoder()

	v, err := dec.DecodeDesc([]byte{'b', 'o', 'o', 'l', 0, 0, 0, 1, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = dec.DecodeDesc([]byte{'u', 't', 'x', 't', 0, 0, 0, 4, 0xff, 0xfe, 'a', 0})
	require.NoError(t, err)
	assert.Equal(t, "a", v, "byte-order mark selects little-endian")

	v, err = dec.DecodeDesc([]byte{'T', 'E', 'X', 'T', 0, 0, 0, 2, 'e', 0x8e})
	require.NoError(t, err)
	assert.Equal(t, "eé", v)

	v, err = dec.DecodeDesc([]byte{'s', 'h', 'o', 'r', 0, 0, 0, 2, 0xff, 0xfe})
	require.NoError(t, err)
	assert.Equal(t, -2, v)

	v, err = dec.DecodeDesc([]byte{'u', 't', 'f', '8', 0, 0, 0, 3, 'a', 'b', 'c', 0})
	require.NoError(t, err)
	assert.Equal(t, "abc", v)

	v, err = dec.DecodeDesc([]byte{'k', 'e', 'y', 'w', 0, 0, 0, 4, 'p', 'n', 'a', 'm'})
	require.NoError(t, err)
	assert.Equal(t, Keyword{Type: TypeKeywordCode, Code: fourcc.Make("pnam"), Name: "name"}, v,
		"keyw codes are named from properties first")
}

func TestDecode_UnknownTypePreserved(t *testing.T) {
	t.Parallel()

	in := Opaque{Type: fourcc.Make("zzzz"), Data: []byte{1, 2, 3}}
	out := roundTrip(t, in)
	assert.Equal(t, in, out)
}

func TestDecode_TopLevelPreamble(t *testing.T) {
	t.Parallel()

	data, err := NewEncoder(nil).Encode([]any{1})
	require.NoError(t, err)

	_, err = NewDecoder(WithTopLevel(false)).Decode(data)
	require.Error(t, err)

	w := NewWriter(0)
	w.WriteUint32(FlatHeader)
	w.WriteUint32(0)
	require.NoError(t, NewEncoder(nil).WriteValue(w, []any{1}))
	v, err := NewDecoder(WithTopLevel(false)).Decode(w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []any{1}, v)
}

func TestDecode_Extension(t *testing.T) {
	t.Parallel()

	dec := NewDecoder(WithExtension(TypeCurrentContainer, func(_ *Decoder, raw Raw) (any, error) {
		return "container:" + fourcc.String(raw.Type), nil
	}))
	v, err := dec.DecodeDesc([]byte{'c', 'c', 'n', 't', 0, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, "container:ccnt", v)
}

func TestRecordFields(t *testing.T) {
	t.Parallel()

	w := NewWriter(0)
	require.NoError(t, NewEncoder(nil).WriteRecord(w, TypeRangeDescriptor, []Field{
		{Key: KeyRangeStart, Value: 1},
		{Key: KeyRangeStop, Value: "x"},
	}))

	fields, err := RecordFields(Raw{Bytes: w.Bytes()})
	require.NoError(t, err)
	require.Len(t, fields, 2)

	stop, ok := Lookup(fields, KeyRangeStop)
	require.True(t, ok)
	v, err := NewDecoder().Value(stop)
	require.NoError(t, err)
	assert.Equal(t, "x", v)

	v, err = NewDecoder().DecodeDesc(w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, Range{Start: 1, Stop: "x"}, v)
}

func TestScan_LocatesWithoutDecoding(t *testing.T) {
	t.Parallel()

	w := NewWriter(0)
	require.NoError(t, NewEncoder(nil).WriteValue(w, "odd"))
	require.NoError(t, NewEncoder(nil).WriteValue(w, 7))
	data := w.Bytes()

	first, next, err := Scan(data, 0)
	require.NoError(t, err)
	assert.Equal(t, TypeUnicodeText, first.Type)
	assert.Equal(t, 14, next)

	second, end, err := Scan(data, next)
	require.NoError(t, err)
	assert.Equal(t, TypeSInt32, second.Type)
	assert.Equal(t, len(data), end)

	_, _, err = Scan(data[:len(data)-1], next)
	require.ErrorIs(t, err, ErrTruncated)
}
