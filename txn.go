package neo4rs

import (
	"context"
	"sync"

	"github.com/neo4j-labs/neo4rs-sub001/internal/boltdb"
	"github.com/neo4j-labs/neo4rs-sub001/internal/pool"
)

type txState int32

const (
	txActive txState = iota
	txCommitted
	txRolledBack
)

// Txn is an explicit transaction handle bound to one pooled connection
// for its entire lifetime, per spec.md §3/§4.H. A Txn is not safe for
// concurrent use: every cursor opened against it must pass the Txn back
// into Next/Buffer/Consume so the single underlying stream of requests
// stays serialized, per spec.md §5's borrow discipline.
type Txn struct {
	p    *pool.Pool
	slot *pool.Slot
	conn boltdb.Connection

	handle    boltdb.TxHandle
	fetchSize int64
	database  string

	mu       sync.Mutex
	state    txState
	bookmark string
}

func beginTxn(ctx context.Context, p *pool.Pool, slot *pool.Slot, fetchSize int64, cfg boltdb.TxConfig) (*Txn, error) {
	conn := slot.Conn
	handle, err := conn.TxBegin(ctx, cfg)
	if err != nil {
		p.Discard(ctx, slot)
		return nil, err
	}
	return &Txn{
		p:         p,
		slot:      slot,
		conn:      conn,
		handle:    handle,
		fetchSize: fetchSize,
		database:  cfg.DatabaseName,
		state:     txActive,
	}, nil
}

func (t *Txn) requireActive() error {
	if t.state != txActive {
		return boltdb.NewUnexpectedError("transaction is no longer active")
	}
	return nil
}

// Run executes q within the transaction and discards its result, for
// statements whose rows are not needed (CREATE/MERGE/SET and the like).
func (t *Txn) Run(ctx context.Context, q Query) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.requireActive(); err != nil {
		return err
	}
	handle, _, err := t.conn.RunTx(ctx, t.handle, boltdb.StreamConfig{
		Cypher: q.Cypher, Params: q.Params, FetchSize: t.fetchSize, Extra: q.Extra,
	})
	if err != nil {
		return err
	}
	fsm := newCursorFSM(handle, nil, t.fetchSize)
	return fsm.consumeAll(ctx, t.conn)
}

// Execute runs q within the transaction and returns a cursor over its
// rows. The returned TxCursor must be driven with this same *Txn,
// enforcing that only one stream is in flight on the shared connection
// at a time, per spec.md §4.H/§9.
func (t *Txn) Execute(ctx context.Context, q Query) (*TxCursor, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.requireActive(); err != nil {
		return nil, err
	}
	handle, keys, err := t.conn.RunTx(ctx, t.handle, boltdb.StreamConfig{
		Cypher: q.Cypher, Params: q.Params, FetchSize: t.fetchSize, Extra: q.Extra,
	})
	if err != nil {
		return nil, err
	}
	fsm := newCursorFSM(handle, keys, t.fetchSize)
	return &TxCursor{txn: t, fsm: fsm}, nil
}

// Commit commits the transaction and releases its connection back to the
// pool. Calling Commit a second time, or after Rollback, is an error.
func (t *Txn) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.requireActive(); err != nil {
		return err
	}
	bookmark, err := t.conn.TxCommit(ctx, t.handle)
	if err != nil {
		t.state = txRolledBack
		t.p.Discard(ctx, t.slot)
		return err
	}
	t.bookmark = bookmark
	t.state = txCommitted
	t.p.Return(ctx, t.slot)
	return nil
}

// Bookmark returns the bookmark produced by a successful Commit, or the
// empty string before commit.
func (t *Txn) Bookmark() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bookmark
}

// Rollback rolls back the transaction and releases its connection back to
// the pool. Rollback is idempotent: calling it after Commit or a prior
// Rollback is a no-op, matching the "drop means rollback" convention used
// by Close.
func (t *Txn) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != txActive {
		return nil
	}
	err := t.conn.TxRollback(ctx, t.handle)
	t.state = txRolledBack
	if err != nil {
		t.p.Discard(ctx, t.slot)
		return err
	}
	t.p.Return(ctx, t.slot)
	return nil
}

// Close resolves an unresolved transaction by rolling it back, per
// spec.md §9's conservative reading of "drop without commit means
// rollback". It is safe to call after an explicit Commit/Rollback.
func (t *Txn) Close(ctx context.Context) error {
	return t.Rollback(ctx)
}

// TxCursor is a row-stream opened against a Txn. Unlike Cursor, it does
// not own a connection: every call must present the owning *Txn so the
// borrow is explicit in the API surface, per spec.md §9.
type TxCursor struct {
	txn *Txn
	fsm cursorFSM
}

// Keys returns the field names bound by the originating RUN.
func (c *TxCursor) Keys() []string { return c.fsm.keys }

func (c *TxCursor) checkTxn(txn *Txn) error {
	if txn != c.txn {
		return boltdb.NewUnexpectedError("cursor was not opened against this transaction")
	}
	return txn.requireActive()
}

// Next advances the cursor by one row. txn must be the exact *Txn this
// cursor was opened from.
func (c *TxCursor) Next(ctx context.Context, txn *Txn) (Record, bool, error) {
	txn.mu.Lock()
	defer txn.mu.Unlock()
	if err := c.checkTxn(txn); err != nil {
		return Record{}, false, err
	}
	return c.fsm.advance(ctx, txn.conn)
}

// Buffer drains the remainder of the stream into memory.
func (c *TxCursor) Buffer(ctx context.Context, txn *Txn) error {
	txn.mu.Lock()
	defer txn.mu.Unlock()
	if err := c.checkTxn(txn); err != nil {
		return err
	}
	return c.fsm.bufferAll(ctx, txn.conn)
}

// Consume discards the remainder of the stream without buffering it.
func (c *TxCursor) Consume(ctx context.Context, txn *Txn) error {
	txn.mu.Lock()
	defer txn.mu.Unlock()
	if err := c.checkTxn(txn); err != nil {
		return err
	}
	return c.fsm.consumeAll(ctx, txn.conn)
}

// Collect drains the cursor into a slice.
func (c *TxCursor) Collect(ctx context.Context, txn *Txn) ([]Record, error) {
	return collect(ctx, func(ctx context.Context) (Record, bool, error) {
		return c.Next(ctx, txn)
	})
}

// Err reports a descriptive error if the cursor ended in a failed state.
func (c *TxCursor) Err() error { return wrapCursorErr(c.fsm.err) }
