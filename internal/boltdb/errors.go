// Package boltdb holds the small set of types and interfaces shared
// between the bolt, pool and retry packages without creating import
// cycles with the root package — the same role the teacher's own
// internal "idb" package plays between its bolt and session layers.
package boltdb

import "fmt"

// Kind classifies a driver error, per the error taxonomy.
type Kind int

const (
	KindIO Kind = iota
	KindProtocol
	KindAuth
	KindServer
	KindDeserialization
	KindConfig
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "IO"
	case KindProtocol:
		return "Protocol"
	case KindAuth:
		return "Auth"
	case KindServer:
		return "Server"
	case KindDeserialization:
		return "Deserialization"
	case KindConfig:
		return "Config"
	case KindUnexpected:
		return "Unexpected"
	default:
		return "Unknown"
	}
}

// Error is the driver's closed error type. Code/Message are populated for
// Kind == KindServer, carrying the server's FAILURE response verbatim.
type Error struct {
	Kind      Kind
	Code      string
	Message   string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Kind == KindServer {
		return fmt.Sprintf("neo4rs: server error %s: %s", e.Code, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("neo4rs: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("neo4rs: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// transientServerCodes lists the FAILURE code prefixes the spec calls out
// as retryable: transaction lease loss, leader re-election, resource
// exhaustion.
var transientServerCodes = []string{
	"TransientError",
	"Neo.TransientError",
	"Neo.ClientError.Transaction.LockClientStopped",
	"Neo.ClientError.Transaction.Terminated",
	"Neo.ClientError.Cluster.NotALeader",
	"Neo.ClusterError",
}

func isTransientCode(code string) bool {
	for _, c := range transientServerCodes {
		if code == c || hasPrefixFold(code, c) {
			return true
		}
	}
	return false
}

func hasPrefixFold(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	return s[:len(prefix)] == prefix
}

// NewIOError wraps a transport-level failure. IO errors during connection
// establishment are retryable; once a connection is up, callers decide
// per spec.md §7 based on where the failure occurred.
func NewIOError(err error, retryable bool) *Error {
	return &Error{Kind: KindIO, Err: err, Retryable: retryable}
}

func NewProtocolError(msg string) *Error {
	return &Error{Kind: KindProtocol, Message: msg, Retryable: false}
}

func NewAuthError(msg string) *Error {
	return &Error{Kind: KindAuth, Message: msg, Retryable: false}
}

// NewServerError wraps a FAILURE response, classifying it retryable or
// terminal based on its code.
func NewServerError(code, message string) *Error {
	return &Error{Kind: KindServer, Code: code, Message: message, Retryable: isTransientCode(code)}
}

func NewDeserializationError(err error) *Error {
	return &Error{Kind: KindDeserialization, Err: err, Retryable: false}
}

func NewConfigError(msg string) *Error {
	return &Error{Kind: KindConfig, Message: msg, Retryable: false}
}

func NewUnexpectedError(msg string) *Error {
	return &Error{Kind: KindUnexpected, Message: msg, Retryable: false}
}

// IsRetryable reports whether err (or anything it wraps) is a retryable
// driver error.
func IsRetryable(err error) bool {
	var de *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			de = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return de != nil && de.Retryable
}
