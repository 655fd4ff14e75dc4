// Package transport owns the two connections to an arm controller and
// implements the request/response engine on top of them.
//
// One TCP connection carries commands and their replies; one locally bound
// UDP socket receives the controller's periodic state telemetry. The two
// sides share no state: a mutex serializes the entire TCP side (send,
// receive and the command-id counter) and a second, independent mutex
// serializes the UDP side, so a realtime control loop can consume telemetry
// while another goroutine waits for a command reply.
//
// There is no background I/O goroutine. Blocking receives run a cooperative
// poll loop on the calling goroutine, peeking the next frame header in short
// deadline slices and releasing the lock between attempts. A consequence of
// the peek-then-consume design: if a frame nobody is waiting for sits at the
// front of the stream, every later waiter keeps polling behind it. The
// controller answers strictly per connection, so this does not occur in
// practice, but it is a deliberate property of the engine, not an accident.
package transport

import (
	"bufio"
	"errors"
	"io"
	"net"
	"os"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"armlink/protocol"
)

// KeepAlive configures TCP keepalive probing on the command connection.
type KeepAlive struct {
	Enable   bool
	Idle     time.Duration // idle time before the first probe
	Interval time.Duration // interval between probes
	Count    int           // unanswered probes before the connection is dropped
}

// Options tune one Channel. Timeouts bound individual read syscalls, not
// whole logical waits; a caller needing an overall deadline wraps the
// blocking call (see middleware.Deadline).
type Options struct {
	TCPTimeout   time.Duration // per-read bound on the command connection, also the dial timeout
	UDPTimeout   time.Duration // per-read bound on the telemetry socket
	PollInterval time.Duration // header-peek slice of the blocking receive loop
	KeepAlive    KeepAlive
	Logger       zerolog.Logger
}

// DefaultOptions returns the controller's documented defaults.
func DefaultOptions() Options {
	return Options{
		TCPTimeout:   60 * time.Second,
		UDPTimeout:   time.Second,
		PollInterval: 500 * time.Microsecond,
		KeepAlive:    KeepAlive{Enable: true, Idle: time.Second, Interval: 3 * time.Second, Count: 1},
		Logger:       zerolog.Nop(),
	}
}

// Channel owns the command connection and the telemetry socket of one
// session. Both are created together and torn down together; after either
// side fails, callers construct a new Channel rather than reconnecting.
type Channel struct {
	tcpMu     sync.Mutex
	tcp       net.Conn
	reader    *bufio.Reader
	commandID uint32 // guarded by tcpMu; strictly increasing, never reused

	udpMu   sync.Mutex
	udp     *net.UDPConn
	peer    *net.UDPAddr // guarded by udpMu; fixed once the controller starts publishing
	udpPort uint16

	opts Options
	log  zerolog.Logger
}

// Open dials the controller's command port and binds an ephemeral local UDP
// endpoint for telemetry. The UDP port is advertised to the controller
// during the handshake (see client.Connect).
func Open(address string, port uint16, opts Options) (*Channel, error) {
	fillDefaults(&opts)

	dialer := net.Dialer{Timeout: opts.TCPTimeout}
	if opts.KeepAlive.Enable {
		dialer.KeepAliveConfig = net.KeepAliveConfig{
			Enable:   true,
			Idle:     opts.KeepAlive.Idle,
			Interval: opts.KeepAlive.Interval,
			Count:    opts.KeepAlive.Count,
		}
	} else {
		dialer.KeepAlive = -1
	}

	tcp, err := dialer.Dial("tcp", net.JoinHostPort(address, strconv.Itoa(int(port))))
	if err != nil {
		return nil, &protocol.NetworkError{Op: "dial", Err: err}
	}

	udp, err := net.ListenUDP("udp", &net.UDPAddr{Port: 0})
	if err != nil {
		tcp.Close()
		return nil, &protocol.NetworkError{Op: "bind", Err: err}
	}

	c := &Channel{
		tcp:     tcp,
		reader:  bufio.NewReader(tcp),
		udp:     udp,
		udpPort: uint16(udp.LocalAddr().(*net.UDPAddr).Port),
		opts:    opts,
		log:     opts.Logger,
	}
	c.log.Debug().
		Str("controller", tcp.RemoteAddr().String()).
		Uint16("udp_port", c.udpPort).
		Msg("channel open")
	return c, nil
}

func fillDefaults(opts *Options) {
	def := DefaultOptions()
	if opts.TCPTimeout <= 0 {
		opts.TCPTimeout = def.TCPTimeout
	}
	if opts.UDPTimeout <= 0 {
		opts.UDPTimeout = def.UDPTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
}

// UDPPort reports the locally bound telemetry port.
func (c *Channel) UDPPort() uint16 { return c.udpPort }

// CheckClosed probes the command connection for a controller-initiated
// close without consuming any buffered frame. It returns
// protocol.ErrConnectionClosed if the peer has gone away, nil if the
// connection still looks alive.
func (c *Channel) CheckClosed() error {
	c.tcpMu.Lock()
	defer c.tcpMu.Unlock()

	if err := c.tcp.SetReadDeadline(time.Now()); err != nil {
		return &protocol.NetworkError{Op: "probe", Err: err}
	}
	_, err := c.reader.Peek(1)
	switch {
	case err == nil, isTimeout(err):
		return nil
	case isClosed(err):
		return protocol.ErrConnectionClosed
	default:
		return &protocol.NetworkError{Op: "probe", Err: err}
	}
}

// SendDatagram writes one datagram to the controller. It fails until the
// controller's telemetry address is known, which happens with the first
// received datagram after the handshake.
func (c *Channel) SendDatagram(buf []byte) error {
	c.udpMu.Lock()
	defer c.udpMu.Unlock()

	if c.peer == nil {
		return &protocol.NetworkError{Op: "udp send", Err: errors.New("controller address not yet known")}
	}
	if err := c.udp.SetWriteDeadline(time.Now().Add(c.opts.UDPTimeout)); err != nil {
		return &protocol.NetworkError{Op: "udp send", Err: err}
	}
	n, err := c.udp.WriteToUDP(buf, c.peer)
	if err != nil {
		return &protocol.NetworkError{Op: "udp send", Err: err}
	}
	if n != len(buf) {
		return &protocol.NetworkError{Op: "udp send", Err: io.ErrShortWrite}
	}
	return nil
}

// ReceiveDatagram blocks until one datagram arrives and returns its bytes.
// A datagram whose length differs from size is a protocol violation. The
// wait is bounded by the configured UDP timeout per read syscall.
func (c *Channel) ReceiveDatagram(size int) ([]byte, error) {
	c.udpMu.Lock()
	defer c.udpMu.Unlock()
	return c.receiveDatagramLocked(size, c.opts.UDPTimeout)
}

// TryReceiveDatagram returns a datagram only if one is already queued on the
// socket; ok is false otherwise.
func (c *Channel) TryReceiveDatagram(size int) ([]byte, bool, error) {
	c.udpMu.Lock()
	defer c.udpMu.Unlock()

	buf, err := c.receiveDatagramLocked(size, 0)
	if err != nil {
		var nerr *protocol.NetworkError
		if errors.As(err, &nerr) && isTimeout(nerr.Err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return buf, true, nil
}

func (c *Channel) receiveDatagramLocked(size int, wait time.Duration) ([]byte, error) {
	if err := c.udp.SetReadDeadline(time.Now().Add(wait)); err != nil {
		return nil, &protocol.NetworkError{Op: "udp receive", Err: err}
	}

	// One spare byte so an oversized datagram is detected instead of
	// silently truncated.
	buf := make([]byte, size+1)
	n, addr, err := c.udp.ReadFromUDP(buf)
	if err != nil {
		return nil, &protocol.NetworkError{Op: "udp receive", Err: err}
	}
	if n != size {
		return nil, &protocol.ProtocolError{Reason: "datagram size " + strconv.Itoa(n) + ", want " + strconv.Itoa(size)}
	}
	c.peer = addr
	return buf[:size], nil
}

// Close tears down both connections. The Channel is unusable afterwards.
func (c *Channel) Close() error {
	c.log.Debug().Msg("channel close")
	tcpErr := c.tcp.Close()
	udpErr := c.udp.Close()
	if tcpErr != nil {
		return &protocol.NetworkError{Op: "close", Err: tcpErr}
	}
	if udpErr != nil {
		return &protocol.NetworkError{Op: "close", Err: udpErr}
	}
	return nil
}

// isTimeout reports whether err is a read/write deadline expiry.
func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

// isClosed reports whether err means the peer closed or reset the connection.
func isClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}
