package boltdb

import "context"

// StreamHandle identifies one open result stream (RUN'd query) on a
// connection. Its zero value is not a valid handle.
type StreamHandle any

// TxHandle identifies an open transaction on a connection.
type TxHandle int64

// Summary is the terminal metadata of a fully consumed stream, per
// spec.md §4.B's PULL/DISCARD SUCCESS shape. Only the fields the core
// depends on are modeled; full result-summary semantics are out of scope.
type Summary struct {
	Bookmark string
	HasMore  bool
	Database string
	QueryType string
}

// TxConfig carries the extras BEGIN/RUN accept, per spec.md §4.B. Which
// of these are legal on the wire depends on the negotiated Bolt minor
// version; Connection implementations apply that filtering themselves.
type TxConfig struct {
	Mode             string // "r" or "w"
	Bookmarks        []string
	TimeoutMillis    int64
	HasTimeout       bool
	Metadata         map[string]any
	DatabaseName     string
	ImpersonatedUser string
}

// StreamConfig carries a RUN's cypher text, parameters, fetch size and any
// caller-supplied extra metadata, per spec.md §3's Query triple.
type StreamConfig struct {
	Cypher    string
	Params    map[string]any
	FetchSize int64
	Extra     map[string]any
}

// Connection is the interface the pool, retry engine and transaction/
// cursor layers program against, decoupling them from the concrete Bolt
// version implementation — the same role the teacher's idb.Connection
// interface plays between its session package and internal/bolt.
type Connection interface {
	// Connect performs the handshake and HELLO.
	Connect(ctx context.Context) error

	// Run executes an auto-commit query and returns a stream handle.
	Run(ctx context.Context, cfg StreamConfig, tx TxConfig) (StreamHandle, []string, error)

	// TxBegin starts an explicit transaction.
	TxBegin(ctx context.Context, cfg TxConfig) (TxHandle, error)
	// RunTx executes a query inside the current transaction.
	RunTx(ctx context.Context, tx TxHandle, cfg StreamConfig) (StreamHandle, []string, error)
	TxCommit(ctx context.Context, tx TxHandle) (string, error)
	TxRollback(ctx context.Context, tx TxHandle) error

	// Pull issues one PULL(n) wire round trip for the stream and returns
	// the batch of records received plus whether the server indicated
	// more remain. The cursor (not the connection) owns fetch-size policy
	// and buffering across calls, per spec.md §3/§4.G.
	Pull(ctx context.Context, s StreamHandle, n int64) (records [][]any, hasMore bool, sum Summary, err error)
	// Discard issues one DISCARD(n) wire round trip, draining without
	// producing records.
	Discard(ctx context.Context, s StreamHandle, n int64) (hasMore bool, sum Summary, err error)

	Reset(ctx context.Context) error
	Close(ctx context.Context)

	IsAlive() bool
	Bookmark() string
	ServerName() string
}
