package neo4rs

import (
	"context"
	"testing"

	"github.com/neo4j-labs/neo4rs-sub001/internal/boltdb"
	"github.com/neo4j-labs/neo4rs-sub001/internal/pool"
	"github.com/stretchr/testify/require"
)

func newTestTxn(t *testing.T, fc *fakeConn) (*Txn, *pool.Pool) {
	t.Helper()
	p := pool.New(1, func(ctx context.Context) (boltdb.Connection, error) { return fc, nil }, 0, nil)
	slot, err := p.Acquire(context.Background())
	require.NoError(t, err)
	txn, err := beginTxn(context.Background(), p, slot, 100, boltdb.TxConfig{})
	require.NoError(t, err)
	return txn, p
}

func TestTxnRunDiscardsResult(t *testing.T) {
	fc := newFakeConn()
	fc.runTxQueue = []runResult{{handle: "h1", keys: []string{"n"}}}
	fc.discardQueue = []discardResult{{hasMore: false}}
	txn, _ := newTestTxn(t, fc)

	require.NoError(t, txn.Run(context.Background(), NewQuery("CREATE (n)")))
	require.Equal(t, 1, fc.discardCalls)
}

func TestTxnExecuteReturnsCursorBoundToTxn(t *testing.T) {
	fc := newFakeConn()
	fc.runTxQueue = []runResult{{handle: "h1", keys: []string{"n"}}}
	fc.pullQueue = []pullResult{{records: [][]any{{int64(7)}}, hasMore: false}}
	txn, _ := newTestTxn(t, fc)

	cur, err := txn.Execute(context.Background(), NewQuery("RETURN 7 AS n"))
	require.NoError(t, err)
	require.Equal(t, []string{"n"}, cur.Keys())

	rec, ok, err := cur.Next(context.Background(), txn)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(7), rec.Values()[0])

	_, ok, err = cur.Next(context.Background(), txn)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTxCursorRejectsWrongTxn(t *testing.T) {
	fc1 := newFakeConn()
	fc1.runTxQueue = []runResult{{handle: "h1", keys: []string{"n"}}}
	txn1, _ := newTestTxn(t, fc1)

	fc2 := newFakeConn()
	txn2, _ := newTestTxn(t, fc2)

	cur, err := txn1.Execute(context.Background(), NewQuery("RETURN 1"))
	require.NoError(t, err)

	_, _, err = cur.Next(context.Background(), txn2)
	require.Error(t, err)
}

func TestTxnCommitReturnsBookmarkAndReleasesConnection(t *testing.T) {
	fc := newFakeConn()
	fc.commitBookmark = "bm-1"
	txn, p := newTestTxn(t, fc)

	require.NoError(t, txn.Commit(context.Background()))
	require.Equal(t, "bm-1", txn.Bookmark())
	require.Equal(t, 1, fc.commitCalls)
	require.Equal(t, 1, p.Stats().Idle)

	// A second Commit on an already-resolved transaction is an error.
	require.Error(t, txn.Commit(context.Background()))
}

func TestTxnRollbackIsIdempotent(t *testing.T) {
	fc := newFakeConn()
	txn, p := newTestTxn(t, fc)

	require.NoError(t, txn.Rollback(context.Background()))
	require.NoError(t, txn.Rollback(context.Background()))
	require.Equal(t, 1, fc.rollbackCalls)
	require.Equal(t, 1, p.Stats().Idle)
}

func TestTxnCloseRollsBackUnresolvedTransaction(t *testing.T) {
	fc := newFakeConn()
	txn, _ := newTestTxn(t, fc)

	require.NoError(t, txn.Close(context.Background()))
	require.Equal(t, 1, fc.rollbackCalls)

	// Close after an explicit Commit must not roll back.
	fc2 := newFakeConn()
	txn2, _ := newTestTxn(t, fc2)
	require.NoError(t, txn2.Commit(context.Background()))
	require.NoError(t, txn2.Close(context.Background()))
	require.Equal(t, 0, fc2.rollbackCalls)
}
