// Package bolt implements the Bolt message state machine (component B/D/G
// support) over a net.Conn: handshake and version negotiation, chunked
// framing, request encoding, response decoding and struct hydration, and
// the per-connection request/response state machine governing when RUN,
// PULL, BEGIN, COMMIT etc. are legal.
package bolt

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/neo4j-labs/neo4rs-sub001/internal/boltdb"
	"github.com/neo4j-labs/neo4rs-sub001/internal/packstream"
	"github.com/neo4j-labs/neo4rs-sub001/log"
)

// state mirrors the per-connection choreography state: which requests are
// legal to send next. Named after the teacher's bolt5 state constants.
type state int

const (
	stateReady state = iota
	stateStreaming
	stateTx
	stateStreamingTx
	stateFailed
	stateDead
)

func (s state) String() string {
	switch s {
	case stateReady:
		return "ready"
	case stateStreaming:
		return "streaming"
	case stateTx:
		return "tx"
	case stateStreamingTx:
		return "streaming_tx"
	case stateFailed:
		return "failed"
	case stateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// stream tracks one open RUN'd result on the wire: its server-assigned
// qid (or -1 if this connection has only one, unqualified, active
// stream), its field names, and whether it has been fully drained.
type stream struct {
	qid      int64
	keys     []string
	complete bool
}

// Conn is a single Bolt connection. It is not safe for concurrent use:
// the invariant "never used by two concurrent operations at once" (spec.md
// §3) is the caller's responsibility (pool / Txn / cursor borrow
// discipline), not enforced here beyond the state assertions below.
type Conn struct {
	raw    net.Conn
	major  int
	minor  int
	packer   packstream.Packer
	unpacker packstream.Unpacker
	chk    chunker
	dechk  dechunker

	state state
	err   error

	streams map[int64]*stream
	openCnt int

	txID     boltdb.TxHandle
	bookmark string

	principal, credentials, userAgent string
	routingCtx                       map[string]any

	serverName string
	connID     string
	logID      string
	log        log.Logger

	birthDate time.Time
}

// NewConn wraps an already-dialed net.Conn (plain or TLS) in a Bolt
// connection. Dialing and the scheme-driven TLS wrap happen in Dial;
// this type only speaks the protocol once bytes flow.
func NewConn(raw net.Conn, principal, credentials, userAgent string, routingCtx map[string]any, logger log.Logger) *Conn {
	if logger == nil {
		logger = log.Void{}
	}
	return &Conn{
		raw:         raw,
		principal:   principal,
		credentials: credentials,
		userAgent:   userAgent,
		routingCtx:  routingCtx,
		streams:     map[int64]*stream{},
		log:         logger,
		logID:       log.NewID(),
		birthDate:   time.Now(),
	}
}

var supportedMinorsByMajor = map[uint32][2]int{
	0x00000404: {4, 4},
	0x00000304: {4, 3},
	0x00000104: {4, 1},
	0x00000004: {4, 0},
}

// Connect performs the magic preamble + four version proposals handshake,
// then sends HELLO. Per spec.md §4.D / §6.
func (c *Conn) Connect(ctx context.Context) error {
	c.setDeadline(ctx)
	buf := make([]byte, 0, 20)
	buf = append(buf, handshakeMagic[:]...)
	for _, v := range proposedVersions {
		buf = append(buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
	if _, err := c.raw.Write(buf); err != nil {
		return fmt.Errorf("bolt: sending handshake: %w", boltdb.NewIOError(err, true))
	}
	reply := make([]byte, 4)
	if _, err := io.ReadFull(c.raw, reply); err != nil {
		return fmt.Errorf("bolt: reading handshake reply: %w", boltdb.NewIOError(err, true))
	}
	chosen := uint32(reply[0])<<24 | uint32(reply[1])<<16 | uint32(reply[2])<<8 | uint32(reply[3])
	if chosen == 0 {
		return boltdb.NewProtocolError("no common bolt version")
	}
	mm, ok := supportedMinorsByMajor[chosen]
	if !ok {
		return boltdb.NewProtocolError(fmt.Sprintf("server chose unsupported version 0x%08X", chosen))
	}
	c.major, c.minor = mm[0], mm[1]

	hello := newHelloMsg(c.minor, c.principal, c.credentials, c.userAgent, c.routingCtxForMinor())
	resp, err := c.sendRecv(hello)
	if err != nil {
		return err
	}
	succ, err := expectSuccess(resp)
	if err != nil {
		if isAuthFailure(resp) {
			return boltdb.NewAuthError("authentication failed")
		}
		return err
	}
	if sn, ok := succ["server"].(string); ok {
		c.serverName = sn
	}
	if cid, ok := succ["connection_id"].(string); ok {
		c.connID = cid
	}
	c.state = stateReady
	return nil
}

// routingCtxForMinor suppresses the routing extra on Bolt 4.0, which
// predates it, per spec.md's concrete scenario 5.
func (c *Conn) routingCtxForMinor() map[string]any {
	if c.minor < 1 {
		return nil
	}
	if c.routingCtx == nil {
		return map[string]any{}
	}
	return c.routingCtx
}

func (c *Conn) setDeadline(ctx context.Context) {
	if dl, ok := ctx.Deadline(); ok {
		c.raw.SetDeadline(dl)
	} else {
		c.raw.SetDeadline(time.Time{})
	}
}

// send encodes, chunks and writes msg.
func (c *Conn) send(msg packstream.Struct) error {
	c.packer.Reset()
	if err := c.packer.PackValue(msg); err != nil {
		return fmt.Errorf("bolt: encoding message: %w", err)
	}
	c.chk.reset()
	c.chk.write(c.packer.Bytes())
	if err := c.chk.send(c.raw); err != nil {
		return fmt.Errorf("bolt: writing message: %w", boltdb.NewIOError(err, false))
	}
	return nil
}

// recv reads one dechunked message and decodes its top-level struct.
func (c *Conn) recv() (packstream.Struct, error) {
	raw, err := c.dechk.receive(c.raw)
	if err != nil {
		c.die(err)
		return packstream.Struct{}, fmt.Errorf("bolt: receiving message: %w", boltdb.NewIOError(err, false))
	}
	c.unpacker.Reset(raw)
	v, err := c.unpacker.Next()
	if err != nil {
		return packstream.Struct{}, fmt.Errorf("bolt: decoding message: %w", boltdb.NewDeserializationError(err))
	}
	s, ok := v.(packstream.Struct)
	if !ok {
		return packstream.Struct{}, boltdb.NewProtocolError("response was not a struct")
	}
	hv, err := hydrateResponseFields(s)
	if err != nil {
		return packstream.Struct{}, err
	}
	return hv, nil
}

// hydrateResponseFields hydrates any nested value-structs (Node, Path, ...)
// inside a response's fields, leaving the top-level envelope struct
// (SUCCESS/RECORD/FAILURE/IGNORED) itself untouched.
func hydrateResponseFields(s packstream.Struct) (packstream.Struct, error) {
	out := packstream.Struct{Tag: s.Tag, Fields: make([]any, len(s.Fields))}
	for i, f := range s.Fields {
		h, err := hydrateDeep(f)
		if err != nil {
			return packstream.Struct{}, err
		}
		out.Fields[i] = h
	}
	return out, nil
}

func (c *Conn) sendRecv(msg packstream.Struct) (packstream.Struct, error) {
	if err := c.send(msg); err != nil {
		return packstream.Struct{}, err
	}
	return c.recv()
}

func (c *Conn) die(err error) {
	c.state = stateDead
	c.err = err
	c.log.Error("conn", c.logID, err)
}

func expectSuccess(resp packstream.Struct) (map[string]any, error) {
	switch resp.Tag {
	case tagSuccess:
		if len(resp.Fields) == 0 {
			return map[string]any{}, nil
		}
		m, _ := resp.Fields[0].(map[string]any)
		return m, nil
	case tagFailure:
		return nil, failureError(resp)
	case tagIgnored:
		return nil, boltdb.NewUnexpectedError("request was ignored; connection requires RESET")
	default:
		return nil, boltdb.NewUnexpectedError(fmt.Sprintf("unexpected response tag 0x%02X", resp.Tag))
	}
}

func failureError(resp packstream.Struct) error {
	code, msg := "Neo.DatabaseError.General.UnknownError", ""
	if len(resp.Fields) > 0 {
		if m, ok := resp.Fields[0].(map[string]any); ok {
			if c, ok := m["code"].(string); ok {
				code = c
			}
			if m2, ok := m["message"].(string); ok {
				msg = m2
			}
		}
	}
	return boltdb.NewServerError(code, msg)
}

func isAuthFailure(resp packstream.Struct) bool {
	if resp.Tag != tagFailure || len(resp.Fields) == 0 {
		return false
	}
	m, ok := resp.Fields[0].(map[string]any)
	if !ok {
		return false
	}
	code, _ := m["code"].(string)
	return code == "Neo.ClientError.Security.Unauthorized" || code == "Neo.ClientError.Security.AuthenticationRateLimit"
}

// IsAlive reports whether the connection is usable.
func (c *Conn) IsAlive() bool { return c.state != stateDead }

func (c *Conn) Bookmark() string   { return c.bookmark }
func (c *Conn) ServerName() string { return c.serverName }

// Close sends GOODBYE fire-and-forget, then closes the socket. Per
// spec.md §4.B, GOODBYE has no reply.
func (c *Conn) Close(ctx context.Context) {
	if c.state != stateDead {
		_ = c.send(newGoodbyeMsg())
	}
	c.raw.Close()
	c.state = stateDead
}

// Reset clears any failed/interrupted state, per spec.md §4.B/§4.D.
func (c *Conn) Reset(ctx context.Context) error {
	if c.state == stateDead {
		return fmt.Errorf("%w: in state %s", ErrClosed, c.state)
	}
	c.setDeadline(ctx)
	resp, err := c.sendRecv(newResetMsg())
	if err != nil {
		c.die(err)
		return err
	}
	if _, err := expectSuccess(resp); err != nil {
		c.die(err)
		return err
	}
	c.state = stateReady
	c.txID = 0
	c.bookmark = ""
	c.streams = map[int64]*stream{}
	c.openCnt = 0
	return nil
}
