package telemetry

import "armlink/transport"

// Streamer reads state samples off a channel's telemetry socket. It holds no
// state of its own; pacing comes entirely from the controller's publish
// cadence.
type Streamer struct {
	ch *transport.Channel
}

func NewStreamer(ch *transport.Channel) *Streamer {
	return &Streamer{ch: ch}
}

// WaitNext blocks until the next complete state datagram arrives and
// returns it decoded. Control loops call this to pace themselves to the
// controller's tick.
func (s *Streamer) WaitNext() (State, error) {
	buf, err := s.ch.ReceiveDatagram(StateSize)
	if err != nil {
		return State{}, err
	}
	return Decode(buf)
}

// TryNext returns a decoded state only if a full datagram was already
// queued; ok is false otherwise.
func (s *Streamer) TryNext() (State, bool, error) {
	buf, ok, err := s.ch.TryReceiveDatagram(StateSize)
	if err != nil || !ok {
		return State{}, false, err
	}
	state, err := Decode(buf)
	if err != nil {
		return State{}, false, err
	}
	return state, true, nil
}
