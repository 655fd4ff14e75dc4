package protocol

import (
	"errors"
	"fmt"
)

// ErrConnectionClosed reports that the controller closed or reset the
// command connection. Detected on read or via transport.(*Channel).CheckClosed.
var ErrConnectionClosed = errors.New("command connection closed by controller")

// NetworkError wraps any lower-level socket failure: dial, bind, send,
// receive, probe. These are never retried by the engine.
type NetworkError struct {
	Op  string // the socket operation that failed
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("network: %s: %v", e.Op, e.Err) }

func (e *NetworkError) Unwrap() error { return e.Err }

// ProtocolError reports bytes that cannot be interpreted as a valid frame of
// the expected kind or size, including wrong-size telemetry datagrams.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return "protocol: " + e.Reason }

// VersionMismatchError reports a handshake rejected for an incompatible
// library version. Both versions are kept for diagnostics.
type VersionMismatchError struct {
	Peer     uint16 // version the controller runs
	Expected uint16 // version this library speaks
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("incompatible version: controller speaks %d, library speaks %d", e.Peer, e.Expected)
}
