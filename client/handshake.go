package client

import (
	"fmt"

	"armlink/protocol"
	"armlink/transport"
)

// Connect performs the version-negotiation handshake on a freshly opened
// channel: it sends a connect request advertising the expected library
// version and the locally bound telemetry port, then blocks for the matching
// reply. On success it returns the version the controller settled on, which
// may differ from expectedVersion only when the controller explicitly flags
// it compatible.
//
// One routine serves every sub-protocol — arm, gripper, vacuum — varying
// only the descriptor and the expected version; they all share the connect
// payload layout.
func Connect(ch *transport.Channel, desc protocol.Descriptor, expectedVersion uint16) (uint16, error) {
	req := protocol.ConnectRequest{Version: expectedVersion, UDPPort: ch.UDPPort()}

	id, err := ch.SendRequest(desc, req.Encode())
	if err != nil {
		return 0, err
	}
	raw, err := ch.ReceiveResponse(desc, id)
	if err != nil {
		return 0, err
	}
	resp, err := protocol.ParseConnectResponse(raw)
	if err != nil {
		return 0, err
	}

	switch resp.Status {
	case protocol.ConnectSuccess:
		return resp.Version, nil
	case protocol.ConnectIncompatibleVersion:
		return 0, &protocol.VersionMismatchError{Peer: resp.Version, Expected: expectedVersion}
	default:
		return 0, &protocol.ProtocolError{Reason: fmt.Sprintf("%s: unexpected status %d", desc.Name, resp.Status)}
	}
}
