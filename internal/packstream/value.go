// Package packstream implements the PackStream binary value encoding used
// underneath the Bolt protocol: a self-describing format over {Null, Bool,
// Int, Float, String, Bytes, List, Map, Struct}.
package packstream

import "fmt"

// Struct is a tagged composite value: a one-byte tag plus an ordered list
// of fields. Node, Relationship, Path and the temporal/spatial value types
// all arrive on the wire as a Struct and are hydrated from one by the bolt
// package.
type Struct struct {
	Tag    byte
	Fields []any
}

func (s Struct) String() string {
	return fmt.Sprintf("Struct{tag: 0x%02X, fields: %d}", s.Tag, len(s.Fields))
}

// Value wraps a decoded PackStream value with typed accessors, so callers
// don't have to type-switch on `any` at every use site. The zero Value
// wraps nil.
type Value struct {
	v any
}

// NewValue wraps a raw decoded value (nil, bool, int64, float64, string,
// []byte, []any, map[string]any, or Struct).
func NewValue(v any) Value { return Value{v: v} }

// Raw returns the underlying decoded value.
func (v Value) Raw() any { return v.v }

// IsNull reports whether the value is PackStream Null.
func (v Value) IsNull() bool { return v.v == nil }

// AsBool returns the value as a bool, if it is one.
func (v Value) AsBool() (bool, bool) {
	b, ok := v.v.(bool)
	return b, ok
}

// AsInt64 returns the value as an int64, if it is one.
func (v Value) AsInt64() (int64, bool) {
	i, ok := v.v.(int64)
	return i, ok
}

// AsFloat64 returns the value as a float64, if it is one.
func (v Value) AsFloat64() (float64, bool) {
	f, ok := v.v.(float64)
	return f, ok
}

// AsString returns the value as a string, if it is one.
func (v Value) AsString() (string, bool) {
	s, ok := v.v.(string)
	return s, ok
}

// AsBytes returns the value as a byte slice, if it is one.
func (v Value) AsBytes() ([]byte, bool) {
	b, ok := v.v.([]byte)
	return b, ok
}

// AsList returns the value as a list of raw values, if it is one.
func (v Value) AsList() ([]any, bool) {
	l, ok := v.v.([]any)
	return l, ok
}

// AsMap returns the value as a string-keyed map, if it is one.
func (v Value) AsMap() (map[string]any, bool) {
	m, ok := v.v.(map[string]any)
	return m, ok
}

// AsStruct returns the value as a Struct, if it is one.
func (v Value) AsStruct() (Struct, bool) {
	s, ok := v.v.(Struct)
	return s, ok
}
