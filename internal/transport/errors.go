package transport

import (
	"errors"
	"fmt"
)

// ErrRetriesExhausted is the only terminal transport error: the reconnect
// budget is spent and a fresh Connect call is required to try again.
var ErrRetriesExhausted = errors.New("transport: reconnect attempts exhausted")

var ErrDialTimeout = errors.New("transport: dial timed out")

// ConnectionError wraps a recoverable socket failure (failed dial, abnormal
// closure, failed write). The session keeps retrying on its own.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string { return fmt.Sprintf("transport: connection: %v", e.Err) }
func (e *ConnectionError) Unwrap() error { return e.Err }

// ParseError wraps a malformed inbound frame. The frame is dropped; the
// connection stays up.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("transport: parse: %v", e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }
