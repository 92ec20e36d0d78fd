package bolt

import (
	"io"
	"net"
	"testing"

	"github.com/neo4j-labs/neo4rs-sub001/internal/packstream"
	"github.com/stretchr/testify/require"
)

// fakeServer is an in-process scripted Bolt peer, in the style of the
// teacher's bolt4server_test.go / setupBolt5Pipe: a real net.Pipe with a
// goroutine-driven counterpart that asserts on incoming requests and
// sends back scripted responses.
type fakeServer struct {
	t    *testing.T
	conn net.Conn
	dechk dechunker
	pack packstream.Packer
	unp  packstream.Unpacker
}

func newFakePipe(t *testing.T) (*Conn, *fakeServer) {
	t.Helper()
	clientSide, serverSide := net.Pipe()
	fs := &fakeServer{t: t, conn: serverSide}
	c := NewConn(clientSide, "neo4j", "password", "neo4rs-sub001/test", nil, nil)
	return c, fs
}

func (fs *fakeServer) waitForHandshake(major, minor byte) {
	fs.t.Helper()
	buf := make([]byte, 20)
	_, err := io.ReadFull(fs.conn, buf)
	require.NoError(fs.t, err)
	require.Equal(fs.t, []byte{0x60, 0x60, 0xB0, 0x17}, buf[:4])
	_, err = fs.conn.Write([]byte{0x00, 0x00, minor, major})
	require.NoError(fs.t, err)
}

func (fs *fakeServer) receiveMsg() packstream.Struct {
	fs.t.Helper()
	raw, err := fs.dechk.receive(fs.conn)
	require.NoError(fs.t, err)
	fs.unp.Reset(raw)
	v, err := fs.unp.Next()
	require.NoError(fs.t, err)
	s, ok := v.(packstream.Struct)
	require.True(fs.t, ok)
	return s
}

func (fs *fakeServer) waitForHello() packstream.Struct {
	s := fs.receiveMsg()
	require.EqualValues(fs.t, tagHello, s.Tag)
	return s
}

func (fs *fakeServer) waitForTag(tag byte) packstream.Struct {
	s := fs.receiveMsg()
	require.EqualValues(fs.t, tag, s.Tag)
	return s
}

func (fs *fakeServer) send(s packstream.Struct) {
	fs.t.Helper()
	fs.pack.Reset()
	require.NoError(fs.t, fs.pack.PackValue(s))
	var ck chunker
	ck.write(fs.pack.Bytes())
	require.NoError(fs.t, ck.send(fs.conn))
}

func (fs *fakeServer) sendSuccess(meta map[string]any) {
	fs.send(packstream.Struct{Tag: tagSuccess, Fields: []any{meta}})
}

func (fs *fakeServer) sendFailure(code, message string) {
	fs.send(packstream.Struct{Tag: tagFailure, Fields: []any{map[string]any{"code": code, "message": message}}})
}

func (fs *fakeServer) sendRecord(values ...any) {
	fs.send(packstream.Struct{Tag: tagRecord, Fields: []any{asAnyList(values)}})
}

func asAnyList(vs []any) []any {
	out := make([]any, len(vs))
	copy(out, vs)
	return out
}

func (fs *fakeServer) acceptHello() {
	fs.waitForHello()
	fs.sendSuccess(map[string]any{"server": "Neo4j/4.4.0", "connection_id": "bolt-1"})
}
