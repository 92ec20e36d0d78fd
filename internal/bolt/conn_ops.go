package bolt

import (
	"context"
	"fmt"

	"github.com/neo4j-labs/neo4rs-sub001/internal/boltdb"
)

// assertState returns an Unexpected error naming both the expected and
// actual state, matching the teacher's assertState/assertTxHandle guards.
// A dead connection gets its own sentinel: Close/die leave it dead forever,
// so callers can distinguish "closed" from an ordinary choreography error.
func (c *Conn) assertState(want ...state) error {
	for _, w := range want {
		if c.state == w {
			return nil
		}
	}
	if c.state == stateDead {
		return fmt.Errorf("%w: in state %s", ErrClosed, c.state)
	}
	return fmt.Errorf("bolt: %w: in state %s", boltdb.NewUnexpectedError("operation not valid in current state"), c.state)
}

// Run executes an auto-commit RUN, per spec.md §4.B/§4.G.
func (c *Conn) Run(ctx context.Context, cfg boltdb.StreamConfig, tx boltdb.TxConfig) (boltdb.StreamHandle, []string, error) {
	if err := c.assertState(stateReady); err != nil {
		return nil, nil, err
	}
	c.setDeadline(ctx)
	resp, err := c.sendRecv(newRunMsg(c.minor, cfg.Cypher, cfg.Params, cfg.Extra, tx))
	if err != nil {
		c.die(err)
		return nil, nil, err
	}
	meta, err := expectSuccess(resp)
	if err != nil {
		c.failConnection(err)
		return nil, nil, err
	}
	keys := stringSlice(meta["fields"])
	st := &stream{qid: -1, keys: keys}
	c.streams[-1] = st
	c.openCnt++
	c.state = stateStreaming
	return st, keys, nil
}

// TxBegin starts an explicit transaction, per spec.md §4.B/§4.H.
func (c *Conn) TxBegin(ctx context.Context, cfg boltdb.TxConfig) (boltdb.TxHandle, error) {
	if err := c.assertState(stateReady); err != nil {
		return 0, err
	}
	c.setDeadline(ctx)
	resp, err := c.sendRecv(newBeginMsg(c.minor, cfg))
	if err != nil {
		c.die(err)
		return 0, err
	}
	if _, err := expectSuccess(resp); err != nil {
		c.failConnection(err)
		return 0, err
	}
	c.txID++
	c.state = stateTx
	c.streams = map[int64]*stream{}
	c.openCnt = 0
	return c.txID, nil
}

// RunTx executes RUN inside the transaction tx, returning the server's
// assigned qid as part of the stream handle so sibling cursors may
// multiplex PULL/DISCARD against the correct result, per spec.md §4.G.
func (c *Conn) RunTx(ctx context.Context, tx boltdb.TxHandle, cfg boltdb.StreamConfig) (boltdb.StreamHandle, []string, error) {
	if tx != c.txID {
		return nil, nil, boltdb.NewUnexpectedError("stale transaction handle")
	}
	if err := c.assertState(stateTx, stateStreamingTx); err != nil {
		return nil, nil, err
	}
	c.setDeadline(ctx)
	resp, err := c.sendRecv(newRunMsg(c.minor, cfg.Cypher, cfg.Params, cfg.Extra, boltdb.TxConfig{}))
	if err != nil {
		c.die(err)
		return nil, nil, err
	}
	meta, err := expectSuccess(resp)
	if err != nil {
		c.failConnection(err)
		return nil, nil, err
	}
	keys := stringSlice(meta["fields"])
	qid := int64(-1)
	if q, ok := meta["qid"].(int64); ok {
		qid = q
	} else if len(c.streams) > 0 {
		// When the server omits qid, the first stream in a transaction
		// keeps -1 and each later one takes the count of streams already
		// recorded, a monotonically increasing fallback.
		qid = int64(len(c.streams))
	}
	st := &stream{qid: qid, keys: keys}
	c.streams[qid] = st
	c.openCnt++
	c.state = stateStreamingTx
	return st, keys, nil
}

// discardAllOpenStreams drains every still-open stream via DISCARD before
// COMMIT/ROLLBACK, matching the teacher's discardAllStreams.
func (c *Conn) discardAllOpenStreams(ctx context.Context) error {
	for qid, st := range c.streams {
		if st.complete {
			continue
		}
		if _, _, err := c.Discard(ctx, st, -1); err != nil {
			return err
		}
		delete(c.streams, qid)
	}
	return nil
}

// TxCommit drains any open streams, sends COMMIT, and returns the
// bookmark.
func (c *Conn) TxCommit(ctx context.Context, tx boltdb.TxHandle) (string, error) {
	if tx != c.txID {
		return "", boltdb.NewUnexpectedError("stale transaction handle")
	}
	if err := c.assertState(stateTx, stateStreamingTx); err != nil {
		return "", err
	}
	if err := c.discardAllOpenStreams(ctx); err != nil {
		return "", err
	}
	c.setDeadline(ctx)
	resp, err := c.sendRecv(newCommitMsg())
	if err != nil {
		c.die(err)
		return "", err
	}
	meta, err := expectSuccess(resp)
	if err != nil {
		c.failConnection(err)
		return "", err
	}
	if bm, ok := meta["bookmark"].(string); ok {
		c.bookmark = bm
	}
	c.state = stateReady
	c.txID = 0
	return c.bookmark, nil
}

// TxRollback drains any open streams and sends ROLLBACK.
func (c *Conn) TxRollback(ctx context.Context, tx boltdb.TxHandle) error {
	if tx != c.txID {
		return boltdb.NewUnexpectedError("stale transaction handle")
	}
	if err := c.assertState(stateTx, stateStreamingTx); err != nil {
		return err
	}
	if err := c.discardAllOpenStreams(ctx); err != nil {
		return err
	}
	c.setDeadline(ctx)
	resp, err := c.sendRecv(newRollbackMsg())
	if err != nil {
		c.die(err)
		return err
	}
	if _, err := expectSuccess(resp); err != nil {
		c.failConnection(err)
		return err
	}
	c.state = stateReady
	c.txID = 0
	return nil
}

// Pull issues one PULL(n, qid) round trip, per spec.md §4.B/§4.G.
func (c *Conn) Pull(ctx context.Context, s boltdb.StreamHandle, n int64) ([][]any, bool, boltdb.Summary, error) {
	st, ok := s.(*stream)
	if !ok {
		return nil, false, boltdb.Summary{}, boltdb.NewUnexpectedError("invalid stream handle")
	}
	if st.complete {
		return nil, false, boltdb.Summary{HasMore: false}, nil
	}
	c.setDeadline(ctx)
	if err := c.send(newPullMsg(n, st.qid)); err != nil {
		c.die(err)
		return nil, false, boltdb.Summary{}, err
	}
	var records [][]any
	for {
		resp, err := c.recv()
		if err != nil {
			c.die(err)
			return nil, false, boltdb.Summary{}, err
		}
		switch resp.Tag {
		case tagRecord:
			if len(resp.Fields) == 1 {
				if row, ok := resp.Fields[0].([]any); ok {
					records = append(records, row)
					continue
				}
			}
			return nil, false, boltdb.Summary{}, boltdb.NewProtocolError("malformed RECORD")
		case tagSuccess, tagFailure, tagIgnored:
			meta, err := expectSuccess(resp)
			if err != nil {
				st.complete = true
				c.failConnection(err)
				return records, false, boltdb.Summary{}, err
			}
			hasMore, _ := meta["has_more"].(bool)
			sum := summaryFromMeta(meta)
			if !hasMore {
				st.complete = true
			}
			c.afterStreamActivity()
			return records, hasMore, sum, nil
		default:
			return nil, false, boltdb.Summary{}, boltdb.NewUnexpectedError("unexpected response to PULL")
		}
	}
}

// Discard issues one DISCARD(n, qid) round trip.
func (c *Conn) Discard(ctx context.Context, s boltdb.StreamHandle, n int64) (bool, boltdb.Summary, error) {
	st, ok := s.(*stream)
	if !ok {
		return false, boltdb.Summary{}, boltdb.NewUnexpectedError("invalid stream handle")
	}
	if st.complete {
		return false, boltdb.Summary{}, nil
	}
	c.setDeadline(ctx)
	resp, err := c.sendRecv(newDiscardMsg(n, st.qid))
	if err != nil {
		c.die(err)
		return false, boltdb.Summary{}, err
	}
	meta, err := expectSuccess(resp)
	if err != nil {
		st.complete = true
		c.failConnection(err)
		return false, boltdb.Summary{}, err
	}
	hasMore, _ := meta["has_more"].(bool)
	if !hasMore {
		st.complete = true
	}
	c.afterStreamActivity()
	return hasMore, summaryFromMeta(meta), nil
}

// afterStreamActivity recomputes the coarse connection state after a
// PULL/DISCARD response: once every open stream is complete, the
// connection returns to Ready (outside a tx) or Tx (inside one).
func (c *Conn) afterStreamActivity() {
	anyOpen := false
	for _, st := range c.streams {
		if !st.complete {
			anyOpen = true
			break
		}
	}
	if anyOpen {
		if c.txID != 0 {
			c.state = stateStreamingTx
		} else {
			c.state = stateStreaming
		}
		return
	}
	if c.txID != 0 {
		c.state = stateTx
	} else {
		c.state = stateReady
	}
}

func (c *Conn) failConnection(err error) {
	if de, ok := err.(*boltdb.Error); ok && de.Kind == boltdb.KindServer {
		// A FAILURE response leaves the connection usable only after
		// RESET, per spec.md §7.
		c.state = stateFailed
		return
	}
	c.die(err)
}

func summaryFromMeta(meta map[string]any) boltdb.Summary {
	sum := boltdb.Summary{}
	if bm, ok := meta["bookmark"].(string); ok {
		sum.Bookmark = bm
	}
	if db, ok := meta["db"].(string); ok {
		sum.Database = db
	}
	if t, ok := meta["type"].(string); ok {
		sum.QueryType = t
	}
	if hm, ok := meta["has_more"].(bool); ok {
		sum.HasMore = hm
	}
	return sum
}

func stringSlice(v any) []string {
	l, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(l))
	for _, e := range l {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
