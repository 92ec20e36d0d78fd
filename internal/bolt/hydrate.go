package bolt

import (
	"fmt"

	"github.com/neo4j-labs/neo4rs-sub001/internal/packstream"
)

// Node is a labeled, property-bearing graph node, decoded from a 0x4E
// struct.
type Node struct {
	ID         int64
	Labels     []string
	Properties map[string]any
	ElementID  string
}

// Relationship is a bound, directed edge, decoded from a 0x52 struct.
type Relationship struct {
	ID         int64
	StartID    int64
	EndID      int64
	Type       string
	Properties map[string]any
	ElementID  string
}

// UnboundRelationship appears inside Path encodings, decoded from 0x72;
// it lacks start/end node ids until resolved against the path's node list.
type UnboundRelationship struct {
	ID         int64
	Type       string
	Properties map[string]any
	ElementID  string
}

// Path carries parallel node/relationship arrays and a signed index list,
// per spec.md §9: traversal is exposed as an iterator computed from the
// indices, never as an owning graph of pointers.
type Path struct {
	Nodes         []Node
	Relationships []UnboundRelationship
	indices       []int64
}

// PathSegment is one step of a path: the relationship traversed and the
// node arrived at, with Forward indicating traversal direction.
type PathSegment struct {
	Start, End Relationship
	Node       Node
	Forward    bool
}

// Segments computes the traversal described by the path's index list,
// resolving each unbound relationship's start/end node ids along the way.
func (p Path) Segments() []PathSegment {
	if len(p.Nodes) == 0 {
		return nil
	}
	segs := make([]PathSegment, 0, len(p.indices)/2)
	prev := p.Nodes[0]
	for i := 0; i+1 < len(p.indices); i += 2 {
		relIdx := p.indices[i]
		nodeIdx := p.indices[i+1]
		forward := relIdx > 0
		if relIdx < 0 {
			relIdx = -relIdx
		}
		rel := p.Relationships[relIdx-1]
		node := p.Nodes[nodeIdx]
		bound := Relationship{ID: rel.ID, Type: rel.Type, Properties: rel.Properties, ElementID: rel.ElementID}
		if forward {
			bound.StartID, bound.EndID = prev.ID, node.ID
		} else {
			bound.StartID, bound.EndID = node.ID, prev.ID
		}
		segs = append(segs, PathSegment{Start: bound, Node: node, Forward: forward})
		prev = node
	}
	return segs
}

// Point2D/Point3D carry spatial coordinates with a coordinate reference
// system id; conversion to an external geometry type is out of scope.
type Point2D struct {
	SRID   int64
	X, Y   float64
}

type Point3D struct {
	SRID    int64
	X, Y, Z float64
}

// Duration carries the Bolt duration components; conversion to an
// external duration type is out of scope.
type Duration struct {
	Months, Days, Seconds, Nanos int64
}

// Temporal values are kept as their raw wire components; callers that
// want time.Time conversions layer that on top themselves.
type Date struct{ EpochDays int64 }

type LocalTime struct{ Nanos int64 }

type Time struct {
	Nanos       int64
	TZOffsetSec int64
}

type LocalDateTime struct {
	Seconds, Nanos int64
}

type DateTime struct {
	Seconds, Nanos int64
	TZOffsetSec    int64
	TZName         string
	Legacy         bool // decoded from the pre-4.4 0x46 tag (UTC semantics differ)
}

// hydrate converts a decoded packstream.Struct into one of the typed
// values above, per spec.md §3's struct tag table.
func hydrate(s packstream.Struct) (any, error) {
	f := s.Fields
	switch s.Tag {
	case tagNode:
		if len(f) < 3 {
			return nil, fmt.Errorf("bolt: node struct: %w", ErrProtocol)
		}
		n := Node{ID: asInt(f[0]), Labels: asStringList(f[1]), Properties: asMap(f[2])}
		if len(f) >= 4 {
			n.ElementID, _ = f[3].(string)
		}
		return n, nil
	case tagRelationship:
		if len(f) < 5 {
			return nil, fmt.Errorf("bolt: relationship struct: %w", ErrProtocol)
		}
		r := Relationship{ID: asInt(f[0]), StartID: asInt(f[1]), EndID: asInt(f[2]), Type: asString(f[3]), Properties: asMap(f[4])}
		if len(f) >= 8 {
			r.ElementID, _ = f[5].(string)
		}
		return r, nil
	case tagUnboundRelationship:
		if len(f) < 3 {
			return nil, fmt.Errorf("bolt: unbound relationship struct: %w", ErrProtocol)
		}
		ur := UnboundRelationship{ID: asInt(f[0]), Type: asString(f[1]), Properties: asMap(f[2])}
		if len(f) >= 4 {
			ur.ElementID, _ = f[3].(string)
		}
		return ur, nil
	case tagPath:
		if len(f) < 3 {
			return nil, fmt.Errorf("bolt: path struct: %w", ErrProtocol)
		}
		rawNodes, _ := f[0].([]any)
		rawRels, _ := f[1].([]any)
		rawIdx, _ := f[2].([]any)
		p := Path{}
		for _, rn := range rawNodes {
			if st, ok := rn.(packstream.Struct); ok {
				v, err := hydrate(st)
				if err != nil {
					return nil, err
				}
				if n, ok := v.(Node); ok {
					p.Nodes = append(p.Nodes, n)
				}
			}
		}
		for _, rr := range rawRels {
			if st, ok := rr.(packstream.Struct); ok {
				v, err := hydrate(st)
				if err != nil {
					return nil, err
				}
				if ur, ok := v.(UnboundRelationship); ok {
					p.Relationships = append(p.Relationships, ur)
				}
			}
		}
		for _, ri := range rawIdx {
			p.indices = append(p.indices, asInt(ri))
		}
		return p, nil
	case tagDate:
		return Date{EpochDays: asInt(f[0])}, nil
	case tagLocalTime:
		return LocalTime{Nanos: asInt(f[0])}, nil
	case tagTime:
		return Time{Nanos: asInt(f[0]), TZOffsetSec: asInt(f[1])}, nil
	case tagLocalDateTime:
		return LocalDateTime{Seconds: asInt(f[0]), Nanos: asInt(f[1])}, nil
	case tagDateTime:
		dt := DateTime{Seconds: asInt(f[0]), Nanos: asInt(f[1])}
		switch tz := f[2].(type) {
		case int64:
			dt.TZOffsetSec = tz
		case string:
			dt.TZName = tz
		}
		return dt, nil
	case tagDateTimeLegacy:
		dt := DateTime{Seconds: asInt(f[0]), Nanos: asInt(f[1]), Legacy: true}
		switch tz := f[2].(type) {
		case int64:
			dt.TZOffsetSec = tz
		case string:
			dt.TZName = tz
		}
		return dt, nil
	case tagDuration:
		return Duration{Months: asInt(f[0]), Days: asInt(f[1]), Seconds: asInt(f[2]), Nanos: asInt(f[3])}, nil
	case tagPoint2D:
		return Point2D{SRID: asInt(f[0]), X: asFloat(f[1]), Y: asFloat(f[2])}, nil
	case tagPoint3D:
		return Point3D{SRID: asInt(f[0]), X: asFloat(f[1]), Y: asFloat(f[2]), Z: asFloat(f[3])}, nil
	default:
		return nil, fmt.Errorf("bolt: %w: unknown struct tag 0x%02X", ErrProtocol, s.Tag)
	}
}

// hydrateDeep walks v, replacing any packstream.Struct (including nested
// ones inside lists/maps) with its hydrated Go value.
func hydrateDeep(v any) (any, error) {
	switch x := v.(type) {
	case packstream.Struct:
		return hydrate(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			h, err := hydrateDeep(e)
			if err != nil {
				return nil, err
			}
			out[i] = h
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			h, err := hydrateDeep(e)
			if err != nil {
				return nil, err
			}
			out[k] = h
		}
		return out, nil
	default:
		return v, nil
	}
}

func asInt(v any) int64 {
	i, _ := v.(int64)
	return i
}

func asFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asStringList(v any) []string {
	l, _ := v.([]any)
	out := make([]string, 0, len(l))
	for _, e := range l {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
