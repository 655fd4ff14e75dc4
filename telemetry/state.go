// Package telemetry ingests the controller's periodic state datagrams.
//
// The controller publishes one fixed-size datagram per control tick on the
// UDP port advertised during the handshake. The channel is best-effort and
// latest-wins: nothing here sequences, deduplicates or reassembles — a
// datagram is either decoded whole or rejected as a protocol violation.
package telemetry

import (
	"encoding/binary"
	"fmt"
	"math"

	"armlink/protocol"
)

// StateSize is the exact wire size of one state datagram in bytes.
const StateSize = 8 + 3*7*8 + 16*8 // 304

// State is one sample of the arm's state, published per control tick.
type State struct {
	// Sequence is the controller's tick counter. Informational only:
	// datagrams are delivered as they arrive, without reordering.
	Sequence uint64

	JointPositions  [7]float64 // rad
	JointVelocities [7]float64 // rad/s
	JointTorques    [7]float64 // Nm

	// EndEffectorPose is the measured end-effector pose as a column-major
	// 4x4 homogeneous transform.
	EndEffectorPose [16]float64
}

// Encode returns the wire form of the state. Used by peer simulators and
// round-trip tests; the library itself only decodes.
func (s *State) Encode() []byte {
	buf := make([]byte, StateSize)
	offset := 0

	binary.BigEndian.PutUint64(buf[offset:], s.Sequence)
	offset += 8

	for _, block := range [][7]float64{s.JointPositions, s.JointVelocities, s.JointTorques} {
		for _, v := range block {
			binary.BigEndian.PutUint64(buf[offset:], math.Float64bits(v))
			offset += 8
		}
	}
	for _, v := range s.EndEffectorPose {
		binary.BigEndian.PutUint64(buf[offset:], math.Float64bits(v))
		offset += 8
	}
	return buf
}

// Decode parses one state datagram. Anything but an exactly sized datagram
// is a protocol violation.
func Decode(buf []byte) (State, error) {
	if len(buf) != StateSize {
		return State{}, &protocol.ProtocolError{Reason: fmt.Sprintf("state datagram size %d, want %d", len(buf), StateSize)}
	}

	var s State
	offset := 0

	s.Sequence = binary.BigEndian.Uint64(buf[offset:])
	offset += 8

	for _, block := range []*[7]float64{&s.JointPositions, &s.JointVelocities, &s.JointTorques} {
		for i := range block {
			block[i] = math.Float64frombits(binary.BigEndian.Uint64(buf[offset:]))
			offset += 8
		}
	}
	for i := range s.EndEffectorPose {
		s.EndEffectorPose[i] = math.Float64frombits(binary.BigEndian.Uint64(buf[offset:]))
		offset += 8
	}
	return s, nil
}
