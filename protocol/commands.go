package protocol

import "encoding/binary"

// Expected library versions per sub-protocol. The handshake fails with a
// VersionMismatchError when the controller answers with an incompatible one.
const (
	ArmVersion     uint16 = 5
	GripperVersion uint16 = 3
	VacuumVersion  uint16 = 2
)

// Command kinds of the arm sub-protocol.
const (
	KindConnect Kind = iota
	KindMove
	KindStopMove
	KindSetCollisionBehavior
	KindAutomaticErrorRecovery
)

// Command kinds of the gripper sub-protocol. The gripper listens on its own
// port, so tags may overlap with the arm's.
const (
	KindGripperConnect Kind = iota
	KindGripperHoming
	KindGripperGrasp
	KindGripperMove
	KindGripperStop
)

// Command kinds of the vacuum accessory sub-protocol.
const (
	KindVacuumConnect Kind = iota
	KindVacuumApply
	KindVacuumDrop
)

// Arm command descriptors. Request/response sizes are fixed by the
// controller firmware.
var (
	Connect                = Descriptor{Kind: KindConnect, Name: "Connect", RequestSize: ConnectRequestSize, ResponseSize: ConnectResponseSize}
	Move                   = Descriptor{Kind: KindMove, Name: "Move", RequestSize: 40, ResponseSize: 16}
	StopMove               = Descriptor{Kind: KindStopMove, Name: "StopMove", RequestSize: 0, ResponseSize: 2}
	SetCollisionBehavior   = Descriptor{Kind: KindSetCollisionBehavior, Name: "SetCollisionBehavior", RequestSize: 208, ResponseSize: 2}
	AutomaticErrorRecovery = Descriptor{Kind: KindAutomaticErrorRecovery, Name: "AutomaticErrorRecovery", RequestSize: 0, ResponseSize: 2}
)

// Gripper command descriptors.
var (
	GripperConnect = Descriptor{Kind: KindGripperConnect, Name: "GripperConnect", RequestSize: ConnectRequestSize, ResponseSize: ConnectResponseSize}
	GripperHoming  = Descriptor{Kind: KindGripperHoming, Name: "GripperHoming", RequestSize: 0, ResponseSize: 2}
	GripperGrasp   = Descriptor{Kind: KindGripperGrasp, Name: "GripperGrasp", RequestSize: 24, ResponseSize: 2}
	GripperMove    = Descriptor{Kind: KindGripperMove, Name: "GripperMove", RequestSize: 16, ResponseSize: 2}
	GripperStop    = Descriptor{Kind: KindGripperStop, Name: "GripperStop", RequestSize: 0, ResponseSize: 2}
)

// Vacuum accessory command descriptors.
var (
	VacuumConnect = Descriptor{Kind: KindVacuumConnect, Name: "VacuumConnect", RequestSize: ConnectRequestSize, ResponseSize: ConnectResponseSize}
	VacuumApply   = Descriptor{Kind: KindVacuumApply, Name: "VacuumApply", RequestSize: 10, ResponseSize: 2}
	VacuumDrop    = Descriptor{Kind: KindVacuumDrop, Name: "VacuumDrop", RequestSize: 8, ResponseSize: 2}
)

// Connect payload sizes. Every sub-protocol reuses the same connect layout.
const (
	ConnectRequestSize  = 4 // 2 (version) + 2 (udp port)
	ConnectResponseSize = 4 // 2 (status) + 2 (version)
)

// ConnectStatus is the controller's verdict on a connect request.
type ConnectStatus uint16

const (
	ConnectSuccess ConnectStatus = iota
	ConnectIncompatibleVersion
)

// ConnectRequest advertises the caller's library version and the local UDP
// port the controller should publish state telemetry to.
type ConnectRequest struct {
	Version uint16
	UDPPort uint16
}

// Encode returns the wire form of the request.
func (r ConnectRequest) Encode() []byte {
	buf := make([]byte, ConnectRequestSize)
	binary.BigEndian.PutUint16(buf[0:2], r.Version)
	binary.BigEndian.PutUint16(buf[2:4], r.UDPPort)
	return buf
}

// ConnectResponse carries the controller's status and its protocol version.
type ConnectResponse struct {
	Status  ConnectStatus
	Version uint16
}

// ParseConnectResponse decodes a connect reply payload.
func ParseConnectResponse(buf []byte) (ConnectResponse, error) {
	if len(buf) != ConnectResponseSize {
		return ConnectResponse{}, &ProtocolError{Reason: "connect response has wrong size"}
	}
	return ConnectResponse{
		Status:  ConnectStatus(binary.BigEndian.Uint16(buf[0:2])),
		Version: binary.BigEndian.Uint16(buf[2:4]),
	}, nil
}
