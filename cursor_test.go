package neo4rs

import (
	"context"
	"testing"

	"github.com/neo4j-labs/neo4rs-sub001/internal/boltdb"
	"github.com/stretchr/testify/require"
)

func TestCursorNextDrainsMultipleBatches(t *testing.T) {
	fc := newFakeConn()
	fc.pullQueue = []pullResult{
		{records: [][]any{{int64(1)}, {int64(2)}}, hasMore: true},
		{records: [][]any{{int64(3)}}, hasMore: false},
	}
	c := newCursor(fc, "h", []string{"n"}, 2)

	var got []any
	for {
		rec, ok, err := c.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, rec.Values()[0])
	}
	require.Equal(t, []any{int64(1), int64(2), int64(3)}, got)
	require.Equal(t, 2, fc.pullCalls)
}

func TestCursorNextReleasesConnectionOnExhaustion(t *testing.T) {
	fc := newFakeConn()
	fc.pullQueue = []pullResult{{records: nil, hasMore: false}}
	c := newCursor(fc, "h", nil, 10)
	released := 0
	c.release = func() { released++ }

	_, ok, err := c.Next(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 1, released)

	// A second call after exhaustion must not release twice.
	_, ok, err = c.Next(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 1, released)
}

func TestCursorErrSurfacesPullFailure(t *testing.T) {
	fc := newFakeConn()
	fc.pullQueue = []pullResult{{err: boltdb.NewIOError(context.DeadlineExceeded, true)}}
	c := newCursor(fc, "h", nil, 10)

	_, ok, err := c.Next(context.Background())
	require.Error(t, err)
	require.False(t, ok)
	require.Error(t, c.Err())
}

func TestCursorBufferThenNextReadsFromMemory(t *testing.T) {
	fc := newFakeConn()
	fc.pullQueue = []pullResult{
		{records: [][]any{{int64(1)}}, hasMore: true},
		{records: [][]any{{int64(2)}}, hasMore: false},
	}
	c := newCursor(fc, "h", []string{"n"}, 1)

	require.NoError(t, c.Buffer(context.Background()))
	require.Equal(t, 2, fc.pullCalls)

	rec, ok, err := c.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), rec.Values()[0])

	rec, ok, err = c.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(2), rec.Values()[0])

	_, ok, err = c.Next(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCursorConsumeDiscardsWithoutFetchingRecords(t *testing.T) {
	fc := newFakeConn()
	fc.discardQueue = []discardResult{
		{hasMore: true},
		{hasMore: false},
	}
	c := newCursor(fc, "h", nil, 10)

	require.NoError(t, c.Consume(context.Background()))
	require.Equal(t, 2, fc.discardCalls)
	require.Equal(t, 0, fc.pullCalls)

	_, ok, err := c.Next(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCursorCollect(t *testing.T) {
	fc := newFakeConn()
	fc.pullQueue = []pullResult{
		{records: [][]any{{"a"}, {"b"}}, hasMore: false},
	}
	c := newCursor(fc, "h", []string{"v"}, 10)

	recs, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, "a", recs[0].Values()[0])
	require.Equal(t, "b", recs[1].Values()[0])
}
