package transport

import (
	"io"
	"strconv"
	"time"

	"armlink/protocol"
)

// SendRequest frames one request and writes it to the command connection,
// returning the command id assigned to it.
//
// The header and payload are encoded into a single buffer and written with
// one call under the TCP mutex, so concurrent senders can never interleave
// parts of their frames. Command ids are assigned under the same mutex:
// strictly increasing for the lifetime of the connection, never reused.
func (c *Channel) SendRequest(desc protocol.Descriptor, payload []byte) (uint32, error) {
	if len(payload) != desc.RequestSize {
		return 0, &protocol.ProtocolError{
			Reason: desc.Name + " request size " + strconv.Itoa(len(payload)) + ", want " + strconv.Itoa(desc.RequestSize),
		}
	}

	c.tcpMu.Lock()
	defer c.tcpMu.Unlock()

	c.commandID++
	id := c.commandID

	buf := make([]byte, protocol.HeaderSize+len(payload))
	protocol.PutHeader(buf, protocol.Header{Kind: desc.Kind, CommandID: id})
	copy(buf[protocol.HeaderSize:], payload)

	if err := c.tcp.SetWriteDeadline(time.Now().Add(c.opts.TCPTimeout)); err != nil {
		return 0, &protocol.NetworkError{Op: "send", Err: err}
	}
	if _, err := c.tcp.Write(buf); err != nil {
		if isClosed(err) {
			return 0, protocol.ErrConnectionClosed
		}
		return 0, &protocol.NetworkError{Op: "send", Err: err}
	}
	return id, nil
}

// TryReceiveResponse checks whether the reply to (desc, id) is at the front
// of the stream. If the next header matches, the whole frame is consumed and
// the payload returned with ok=true. If no full header is buffered yet, or
// the header belongs to a different command, nothing is consumed and ok is
// false — the mismatched frame stays in place for whoever is waiting on it.
func (c *Channel) TryReceiveResponse(desc protocol.Descriptor, id uint32) ([]byte, bool, error) {
	c.tcpMu.Lock()
	defer c.tcpMu.Unlock()

	h, ok, err := c.peekHeader(0)
	if err != nil {
		return nil, false, err
	}
	if !ok || h.Kind != desc.Kind || h.CommandID != id {
		return nil, false, nil
	}

	payload, err := c.consumeFrame(desc.ResponseSize)
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

// ReceiveResponse blocks until the reply to (desc, id) arrives and returns
// its payload. The loop runs entirely on the calling goroutine: each
// iteration takes the TCP mutex, peeks the next header for one poll
// interval, and releases the mutex again so senders on other goroutines are
// not starved. Only "header not yet present" is retried; a closed connection
// or any socket failure aborts the wait.
func (c *Channel) ReceiveResponse(desc protocol.Descriptor, id uint32) ([]byte, error) {
	for {
		c.tcpMu.Lock()
		h, ok, err := c.peekHeader(c.opts.PollInterval)
		if err != nil {
			c.tcpMu.Unlock()
			return nil, err
		}
		if ok && h.Kind == desc.Kind && h.CommandID == id {
			payload, err := c.consumeFrame(desc.ResponseSize)
			c.tcpMu.Unlock()
			return payload, err
		}
		c.tcpMu.Unlock()

		if ok {
			// A frame for someone else is at the front; yield so its
			// waiter can take the lock and consume it.
			time.Sleep(c.opts.PollInterval)
		}
	}
}

// peekHeader reports the header at the front of the stream without
// consuming it. wait bounds the underlying read; zero makes the probe
// non-blocking. ok is false while no complete header is buffered.
// Must be called with tcpMu held.
func (c *Channel) peekHeader(wait time.Duration) (protocol.Header, bool, error) {
	if err := c.tcp.SetReadDeadline(time.Now().Add(wait)); err != nil {
		return protocol.Header{}, false, &protocol.NetworkError{Op: "peek", Err: err}
	}

	raw, err := c.reader.Peek(protocol.HeaderSize)
	if len(raw) < protocol.HeaderSize {
		switch {
		case isTimeout(err):
			return protocol.Header{}, false, nil
		case isClosed(err):
			return protocol.Header{}, false, protocol.ErrConnectionClosed
		default:
			return protocol.Header{}, false, &protocol.NetworkError{Op: "peek", Err: err}
		}
	}

	h, perr := protocol.ParseHeader(raw)
	if perr != nil {
		return protocol.Header{}, false, perr
	}
	return h, true, nil
}

// consumeFrame reads one full frame (header plus size payload bytes) off the
// stream and returns the payload. The caller has already matched the peeked
// header, so anything short of a complete frame here is a hard failure —
// partial frames are never surfaced. Must be called with tcpMu held.
func (c *Channel) consumeFrame(size int) ([]byte, error) {
	if err := c.tcp.SetReadDeadline(time.Now().Add(c.opts.TCPTimeout)); err != nil {
		return nil, &protocol.NetworkError{Op: "receive", Err: err}
	}

	buf := make([]byte, protocol.HeaderSize+size)
	if _, err := io.ReadFull(c.reader, buf); err != nil {
		if isClosed(err) {
			return nil, protocol.ErrConnectionClosed
		}
		return nil, &protocol.NetworkError{Op: "receive", Err: err}
	}
	return buf[protocol.HeaderSize:], nil
}
