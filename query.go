package neo4rs

// Query is an immutable triple of cypher text, named parameters and extra
// metadata, per spec.md §3. There is no query builder here — the
// user-facing `query()` helper is out of scope (spec.md §1); callers pass
// cypher text and parameters directly.
type Query struct {
	Cypher string
	Params map[string]any
	Extra  map[string]any
}

// NewQuery builds a Query with no parameters.
func NewQuery(cypher string) Query {
	return Query{Cypher: cypher}
}

// WithParams returns a copy of q with params attached.
func (q Query) WithParams(params map[string]any) Query {
	q.Params = params
	return q
}

// WithExtra returns a copy of q with extra metadata attached. These keys
// ride alongside the transaction extras on the wire RUN message and take
// precedence over them on collision, matching the original client's
// `Query.extra` flowing into `BoltRequest::run`.
func (q Query) WithExtra(extra map[string]any) Query {
	q.Extra = extra
	return q
}
