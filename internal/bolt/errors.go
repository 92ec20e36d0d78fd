package bolt

import "errors"

// ErrProtocol marks a malformed frame, a malformed value struct, or an
// unknown struct tag — wrapped with more context at each call site.
var ErrProtocol = errors.New("bolt protocol violation")

// ErrClosed is returned by operations attempted on a dead connection.
var ErrClosed = errors.New("bolt: connection closed")
