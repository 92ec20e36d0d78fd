package bolt

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"

	"github.com/neo4j-labs/neo4rs-sub001/internal/boltdb"
	"github.com/neo4j-labs/neo4rs-sub001/log"
)

// Endpoint is a parsed Bolt URI: scheme-driven TLS dispatch plus host:port,
// per spec.md §4.D/§6.
type Endpoint struct {
	Host      string
	Port      int
	TLS       bool
	TLSConfig *tls.Config
}

// Dial opens a TCP connection to the endpoint, wrapping it in TLS first
// when the scheme requires it, then runs the Bolt handshake and HELLO.
// TLS handshake internals beyond this scheme dispatch are out of scope
// (spec.md §1); only whether to wrap is decided here, in the style of the
// qail driver's upgradeToSSL.
func Dial(ctx context.Context, ep Endpoint, principal, credentials, userAgent string, routingCtx map[string]any, logger log.Logger) (*Conn, error) {
	addr := fmt.Sprintf("%s:%d", ep.Host, ep.Port)
	var d net.Dialer
	raw, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("bolt: dialing %s: %w", addr, boltdb.NewIOError(err, true))
	}
	if ep.TLS {
		cfg := ep.TLSConfig
		if cfg == nil {
			cfg = &tls.Config{ServerName: ep.Host}
		}
		raw = tls.Client(raw, cfg)
	}
	c := NewConn(raw, principal, credentials, userAgent, routingCtx, logger)
	if err := c.Connect(ctx); err != nil {
		raw.Close()
		return nil, err
	}
	return c, nil
}
