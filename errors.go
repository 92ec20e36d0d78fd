package neo4rs

import (
	"errors"

	"github.com/neo4j-labs/neo4rs-sub001/internal/boltdb"
)

// Kind classifies a driver error, per the error taxonomy: IO, Protocol,
// Auth, Server, Deserialization, Config, Unexpected.
type Kind = boltdb.Kind

const (
	KindIO              = boltdb.KindIO
	KindProtocol        = boltdb.KindProtocol
	KindAuth            = boltdb.KindAuth
	KindServer          = boltdb.KindServer
	KindDeserialization = boltdb.KindDeserialization
	KindConfig          = boltdb.KindConfig
	KindUnexpected      = boltdb.KindUnexpected
)

// Error is the driver's public error type. Use errors.As to recover it
// and inspect Kind/Code/Message/Retryable.
type Error = boltdb.Error

// IsRetryable reports whether err represents a retryable failure per the
// taxonomy in spec.md §7.
func IsRetryable(err error) bool { return boltdb.IsRetryable(err) }

// AsError recovers the driver's *Error from err, if present anywhere in
// its unwrap chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
