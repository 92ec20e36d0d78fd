package neo4rs

import (
	"context"
	"fmt"

	"github.com/neo4j-labs/neo4rs-sub001/internal/boltdb"
)

// cursorState is the internal pull state of spec.md §3/§4.G.
type cursorState int

const (
	csReady cursorState = iota
	csStreaming
	csBuffered
	csComplete
)

// cursorFSM is the Ready/Streaming/Buffered/Complete state machine
// shared by Cursor (owns its connection outright) and TxCursor (borrows
// a transaction's connection for the duration of one Next call), per
// spec.md §4.G / §5 / §9.
type cursorFSM struct {
	handle    boltdb.StreamHandle
	keys      []string
	fetchSize int64

	state cursorState
	buf   [][]any
	err   error
}

func newCursorFSM(handle boltdb.StreamHandle, keys []string, fetchSize int64) cursorFSM {
	if fetchSize == 0 {
		fetchSize = DefaultFetchSize
	}
	return cursorFSM{handle: handle, keys: keys, fetchSize: fetchSize, state: csReady}
}

func (f *cursorFSM) advance(ctx context.Context, conn boltdb.Connection) (Record, bool, error) {
	for {
		if len(f.buf) > 0 {
			row := f.buf[0]
			f.buf = f.buf[1:]
			if len(f.buf) == 0 && f.state == csBuffered {
				f.state = csReady
			}
			return Record{keys: f.keys, values: row}, true, nil
		}
		if f.state == csComplete {
			return Record{}, false, f.err
		}

		f.state = csStreaming
		records, hasMore, _, err := conn.Pull(ctx, f.handle, f.fetchSize)
		if err != nil {
			f.state = csComplete
			f.err = err
			return Record{}, false, err
		}
		f.buf = records
		if hasMore {
			f.state = csBuffered
		} else {
			f.state = csComplete
		}
		if len(f.buf) == 0 && f.state != csComplete {
			f.state = csReady
		}
	}
}

func (f *cursorFSM) bufferAll(ctx context.Context, conn boltdb.Connection) error {
	for f.state != csComplete {
		records, hasMore, _, err := conn.Pull(ctx, f.handle, -1)
		if err != nil {
			f.state = csComplete
			f.err = err
			return err
		}
		f.buf = append(f.buf, records...)
		if !hasMore {
			f.state = csComplete
		}
	}
	return nil
}

func (f *cursorFSM) consumeAll(ctx context.Context, conn boltdb.Connection) error {
	for f.state != csComplete {
		hasMore, _, err := conn.Discard(ctx, f.handle, -1)
		if err != nil {
			f.state = csComplete
			f.err = err
			return err
		}
		if !hasMore {
			f.state = csComplete
		}
	}
	return nil
}

// Cursor is a lazy, non-restartable sequence of records from one
// auto-commit RUN; it owns its connection for its lifetime, per spec.md
// §4.G/§4.I. When opened via Graph.Execute, its connection is borrowed
// from the pool and released automatically once the stream completes or
// Close is called.
type Cursor struct {
	conn    boltdb.Connection
	fsm     cursorFSM
	release func()
	done    bool
}

func newCursor(conn boltdb.Connection, handle boltdb.StreamHandle, keys []string, fetchSize int64) *Cursor {
	return &Cursor{conn: conn, fsm: newCursorFSM(handle, keys, fetchSize)}
}

// finish releases the underlying connection back to its owner exactly
// once, whether the stream ended normally or was abandoned early.
func (c *Cursor) finish() {
	if c.done {
		return
	}
	c.done = true
	if c.release != nil {
		c.release()
	}
}

// Keys returns the field names bound by the originating RUN.
func (c *Cursor) Keys() []string { return c.fsm.keys }

// Next advances the cursor by one row, pulling a new batch from the
// server when the local buffer is exhausted. It returns (Record{}, false,
// nil) once the stream is terminally exhausted, and (Record{}, false,
// err) on a protocol-level failure.
func (c *Cursor) Next(ctx context.Context) (Record, bool, error) {
	rec, ok, err := c.fsm.advance(ctx, c.conn)
	if !ok {
		c.finish()
	}
	return rec, ok, err
}

// Buffer drains the entire remaining stream into memory, per spec.md
// §4.G "Drop semantics".
func (c *Cursor) Buffer(ctx context.Context) error {
	err := c.fsm.bufferAll(ctx, c.conn)
	c.finish()
	return err
}

// Consume discards the remainder of the stream without buffering it.
func (c *Cursor) Consume(ctx context.Context) error {
	err := c.fsm.consumeAll(ctx, c.conn)
	c.finish()
	return err
}

// Collect drains the cursor into a slice, for small result sets.
func (c *Cursor) Collect(ctx context.Context) ([]Record, error) {
	return collect(ctx, c.Next)
}

// Close abandons the cursor, discarding any unread rows and releasing its
// connection. It is a no-op once the stream has already completed.
func (c *Cursor) Close(ctx context.Context) error {
	if c.done {
		return nil
	}
	return c.Consume(ctx)
}

// Err reports a descriptive error if the cursor ended in a failed state.
func (c *Cursor) Err() error { return wrapCursorErr(c.fsm.err) }

func collect(ctx context.Context, next func(context.Context) (Record, bool, error)) ([]Record, error) {
	var out []Record
	for {
		rec, ok, err := next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, rec)
	}
}

func wrapCursorErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("neo4rs: cursor failed: %w", err)
}
