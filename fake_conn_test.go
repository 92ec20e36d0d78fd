package neo4rs

import (
	"context"
	"sync"

	"github.com/neo4j-labs/neo4rs-sub001/internal/boltdb"
)

// runResult and pullResult/discardResult let a test script a fakeConn's
// responses call-by-call, in the style of internal/pool's fakeConn and
// internal/bolt's fakeServer.
type runResult struct {
	handle boltdb.StreamHandle
	keys   []string
	err    error
}

type pullResult struct {
	records [][]any
	hasMore bool
	sum     boltdb.Summary
	err     error
}

type discardResult struct {
	hasMore bool
	sum     boltdb.Summary
	err     error
}

type fakeConn struct {
	mu sync.Mutex

	alive    bool
	closed   bool
	resetErr error

	runQueue  []runResult
	runCalls  int
	runTxQueue []runResult
	runTxCalls int

	pullQueue    []pullResult
	pullCalls    int
	discardQueue []discardResult
	discardCalls int

	txHandle   boltdb.TxHandle
	txBeginErr error

	commitBookmark string
	commitErr      error
	commitCalls    int
	rollbackErr    error
	rollbackCalls  int
}

func newFakeConn() *fakeConn { return &fakeConn{alive: true} }

func (f *fakeConn) Connect(ctx context.Context) error { return nil }

func (f *fakeConn) Run(ctx context.Context, cfg boltdb.StreamConfig, tx boltdb.TxConfig) (boltdb.StreamHandle, []string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.runCalls >= len(f.runQueue) {
		return nil, nil, nil
	}
	r := f.runQueue[f.runCalls]
	f.runCalls++
	return r.handle, r.keys, r.err
}

func (f *fakeConn) TxBegin(ctx context.Context, cfg boltdb.TxConfig) (boltdb.TxHandle, error) {
	return f.txHandle, f.txBeginErr
}

func (f *fakeConn) RunTx(ctx context.Context, tx boltdb.TxHandle, cfg boltdb.StreamConfig) (boltdb.StreamHandle, []string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.runTxCalls >= len(f.runTxQueue) {
		return nil, nil, nil
	}
	r := f.runTxQueue[f.runTxCalls]
	f.runTxCalls++
	return r.handle, r.keys, r.err
}

func (f *fakeConn) TxCommit(ctx context.Context, tx boltdb.TxHandle) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commitCalls++
	return f.commitBookmark, f.commitErr
}

func (f *fakeConn) TxRollback(ctx context.Context, tx boltdb.TxHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rollbackCalls++
	return f.rollbackErr
}

func (f *fakeConn) Pull(ctx context.Context, s boltdb.StreamHandle, n int64) ([][]any, bool, boltdb.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pullCalls >= len(f.pullQueue) {
		return nil, false, boltdb.Summary{}, nil
	}
	r := f.pullQueue[f.pullCalls]
	f.pullCalls++
	return r.records, r.hasMore, r.sum, r.err
}

func (f *fakeConn) Discard(ctx context.Context, s boltdb.StreamHandle, n int64) (bool, boltdb.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.discardCalls >= len(f.discardQueue) {
		return false, boltdb.Summary{}, nil
	}
	r := f.discardQueue[f.discardCalls]
	f.discardCalls++
	return r.hasMore, r.sum, r.err
}

func (f *fakeConn) Reset(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resetErr
}

func (f *fakeConn) Close(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.alive = false
}

func (f *fakeConn) IsAlive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive
}

func (f *fakeConn) Bookmark() string   { return "" }
func (f *fakeConn) ServerName() string { return "fake" }
