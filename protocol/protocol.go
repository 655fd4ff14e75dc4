// Package protocol defines the wire format spoken with an arm controller.
//
// Every message on the command connection is one frame: a fixed 8-byte
// header followed by a fixed-size payload whose layout is determined
// entirely by the command kind. The header carries the kind tag and the
// command id that binds a reply to the request that caused it.
//
// Frame format:
//
//	0         4         8
//	┌─────────┬─────────┬──────────────────┐
//	│  kind   │   id    │     payload      │
//	│ uint32  │ uint32  │ fixed per kind   │
//	└─────────┴─────────┴──────────────────┘
//
// All integers are big-endian. The concrete kind values, payload sizes and
// status codes are fixed by the controller firmware; this package records
// them as descriptor data rather than burying them in code, so the engine
// in package transport stays one implementation for every command kind.
package protocol

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the fixed length of a frame header in bytes.
const HeaderSize = 8 // 4 (kind) + 4 (command id)

// Kind tags one command of a sub-protocol. The set is closed: the
// controller rejects anything outside the descriptor tables below.
type Kind uint32

// Header precedes every request and every reply on the command connection.
type Header struct {
	Kind      Kind
	CommandID uint32
}

// PutHeader encodes h into the first HeaderSize bytes of buf.
func PutHeader(buf []byte, h Header) {
	binary.BigEndian.PutUint32(buf[0:4], uint32(h.Kind))
	binary.BigEndian.PutUint32(buf[4:8], h.CommandID)
}

// ParseHeader decodes a header from buf.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, &ProtocolError{Reason: fmt.Sprintf("short header: %d bytes, want %d", len(buf), HeaderSize)}
	}
	return Header{
		Kind:      Kind(binary.BigEndian.Uint32(buf[0:4])),
		CommandID: binary.BigEndian.Uint32(buf[4:8]),
	}, nil
}

// Descriptor describes one command: its kind tag and the fixed sizes of its
// request and reply payloads. The engine treats payloads as opaque blobs of
// exactly these sizes.
type Descriptor struct {
	Kind         Kind
	Name         string
	RequestSize  int
	ResponseSize int
}

func (d Descriptor) String() string { return d.Name }
