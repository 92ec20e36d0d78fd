package neo4rs

import "github.com/neo4j-labs/neo4rs-sub001/internal/bolt"

// Node, Relationship, Path and the temporal/spatial value types are
// re-exported from the internal bolt package's struct hydration (spec.md
// §3's struct tag table / §9's path representation). External conversion
// to calendar/geometry libraries is out of scope — these carry their raw
// wire components.
type (
	Node                = bolt.Node
	Relationship        = bolt.Relationship
	UnboundRelationship = bolt.UnboundRelationship
	Path                = bolt.Path
	PathSegment         = bolt.PathSegment
	Point2D             = bolt.Point2D
	Point3D             = bolt.Point3D
	Duration            = bolt.Duration
	Date                = bolt.Date
	LocalTime           = bolt.LocalTime
	Time                = bolt.Time
	LocalDateTime       = bolt.LocalDateTime
	DateTime            = bolt.DateTime
)

// Record is one row of a result set: field names bound 1:1 to values by
// position, per spec.md §4.G "field binding".
type Record struct {
	keys   []string
	values []any
}

// Keys returns the field names, in RUN-response order.
func (r Record) Keys() []string { return r.keys }

// Get returns the value at the named field.
func (r Record) Get(key string) (any, bool) {
	for i, k := range r.keys {
		if k == key {
			return r.values[i], true
		}
	}
	return nil, false
}

// At returns the value at a 0-based position.
func (r Record) At(i int) (any, bool) {
	if i < 0 || i >= len(r.values) {
		return nil, false
	}
	return r.values[i], true
}

// Values returns the row's values in field order.
func (r Record) Values() []any { return r.values }
