package packstream

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, v any) any {
	t.Helper()
	var p Packer
	require.NoError(t, p.PackValue(v))
	var u Unpacker
	u.Reset(p.Bytes())
	out, err := u.Next()
	require.NoError(t, err)
	return out
}

func TestIntegerWidthBoundaries(t *testing.T) {
	cases := []struct {
		v            int64
		wantMarker   byte
		wantMarkerLen int
	}{
		{127, 0x7F, 1},
		{128, markerInt16, 3},
		{32767, markerInt16, 3},
		{32768, markerInt32, 5},
		{2147483647, markerInt32, 5},
		{2147483648, markerInt64, 9},
		{-16, 0xF0, 1},
		{-17, markerInt8, 2},
		{-128, markerInt8, 2},
		{-129, markerInt16, 3},
		{-32768, markerInt16, 3},
		{-32769, markerInt32, 5},
		{-2147483648, markerInt32, 5},
		{-2147483649, markerInt64, 9},
	}
	for _, c := range cases {
		var p Packer
		p.PackInt64(c.v)
		require.Lenf(t, p.Bytes(), c.wantMarkerLen, "value %d", c.v)
		require.Equal(t, c.wantMarker, p.Bytes()[0], "value %d", c.v)
		require.EqualValues(t, c.v, roundTrip(t, c.v))
	}
}

func TestContainerSizeBoundaries(t *testing.T) {
	sizes := []int{0, 15, 16, 255, 256, 65535, 65536}
	for _, n := range sizes {
		list := make([]any, n)
		for i := range list {
			list[i] = int64(i % 10)
		}
		var p Packer
		require.NoError(t, p.PackValue(list))
		var u Unpacker
		u.Reset(p.Bytes())
		out, err := u.Next()
		require.NoError(t, err)
		got, ok := out.([]any)
		require.True(t, ok)
		require.Len(t, got, n)
	}
}

func TestMapEncodingExample(t *testing.T) {
	// spec.md §8 scenario 6: {"name": "Alice", "age": 42} -> marker 0xA2,
	// tiny-string key/value pairs, 42 as tiny-int 0x2A. Map key order is
	// unspecified, so this checks the pieces are present rather than an
	// exact byte sequence.
	var p Packer
	require.NoError(t, p.PackString("name"))
	nameKey := append([]byte{}, p.Bytes()...)
	p.Reset()
	require.NoError(t, p.PackString("Alice"))
	aliceVal := append([]byte{}, p.Bytes()...)
	p.Reset()
	p.PackInt64(42)
	require.Equal(t, []byte{0x2A}, p.Bytes())

	p.Reset()
	m := map[string]any{"name": "Alice", "age": int64(42)}
	require.NoError(t, p.PackValue(m))
	require.Equal(t, byte(0xA2), p.Bytes()[0])
	require.Contains(t, string(p.Bytes()), string(nameKey))
	require.Contains(t, string(p.Bytes()), string(aliceVal))

	var u Unpacker
	u.Reset(p.Bytes())
	out, err := u.Next()
	require.NoError(t, err)
	got, ok := out.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "Alice", got["name"])
	require.EqualValues(t, 42, got["age"])
}

func TestRoundTripScalars(t *testing.T) {
	require.Equal(t, nil, roundTrip(t, nil))
	require.Equal(t, true, roundTrip(t, true))
	require.Equal(t, false, roundTrip(t, false))
	require.Equal(t, 3.5, roundTrip(t, 3.5))
	require.Equal(t, "hello, world", roundTrip(t, "hello, world"))
	require.Equal(t, []byte{1, 2, 3}, roundTrip(t, []byte{1, 2, 3}))
}

func TestRoundTripStruct(t *testing.T) {
	s := Struct{Tag: 0x4E, Fields: []any{int64(1), []any{"Person"}, map[string]any{"name": "a"}}}
	out := roundTrip(t, s)
	got, ok := out.(Struct)
	require.True(t, ok)
	require.Equal(t, s.Tag, got.Tag)
	require.Len(t, got.Fields, 3)
}

func TestUnknownMarkerRejected(t *testing.T) {
	var u Unpacker
	u.Reset([]byte{0xC7}) // unused marker byte
	_, err := u.Next()
	require.ErrorIs(t, err, ErrUnknownMarker)
}

func TestTruncatedInputIsEmpty(t *testing.T) {
	var u Unpacker
	u.Reset([]byte{markerInt16, 0x01}) // needs 2 bytes, only 1 given
	_, err := u.Next()
	require.ErrorIs(t, err, ErrEmpty)
}

func TestTinyIntEncodedWithWiderFormDecodesSame(t *testing.T) {
	// decoder must accept any legal encoding of a value even if not the
	// minimal form, per spec.md §4.A "self-description".
	var u Unpacker
	u.Reset([]byte{markerInt32, 0x00, 0x00, 0x00, 0x05})
	v, err := u.Next()
	require.NoError(t, err)
	require.EqualValues(t, 5, v)
}

func TestValueAccessors(t *testing.T) {
	v := NewValue(int64(42))
	i, ok := v.AsInt64()
	require.True(t, ok)
	require.EqualValues(t, 42, i)

	_, ok = v.AsString()
	require.False(t, ok)
}
