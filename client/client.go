// Package client is the high-level entry point: it dials a controller,
// negotiates the protocol version and exposes command execution and the
// state stream.
package client

import (
	"context"

	"github.com/rs/zerolog"

	"armlink/middleware"
	"armlink/protocol"
	"armlink/telemetry"
	"armlink/transport"
)

type settings struct {
	transport   transport.Options
	middlewares []middleware.Middleware
	logger      zerolog.Logger
	loggerSet   bool
}

// Option customizes a Dial call.
type Option func(*settings)

// WithTransportOptions replaces the default connection tuning.
func WithTransportOptions(opts transport.Options) Option {
	return func(s *settings) { s.transport = opts }
}

// WithMiddleware wraps every Execute call with the given interceptors, in
// order, outermost first.
func WithMiddleware(middlewares ...middleware.Middleware) Option {
	return func(s *settings) { s.middlewares = append(s.middlewares, middlewares...) }
}

// WithLogger routes connection and handshake events to the given logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
		s.loggerSet = true
	}
}

// Client is one session with one controller. It is safe for one goroutine to
// execute commands while another consumes the state stream. A Client does
// not reconnect: after a connection failure, Close it and dial a new one.
type Client struct {
	ch      *transport.Channel
	stream  *telemetry.Streamer
	handler middleware.HandlerFunc
	version uint16
	log     zerolog.Logger
}

// Dial connects to an arm controller and performs the arm handshake.
func Dial(address string, port uint16, opts ...Option) (*Client, error) {
	return DialDevice(address, port, protocol.Connect, protocol.ArmVersion, opts...)
}

// DialDevice connects to any device speaking this frame protocol — arm,
// gripper or accessory — given its connect descriptor and expected version.
func DialDevice(address string, port uint16, connect protocol.Descriptor, expectedVersion uint16, opts ...Option) (*Client, error) {
	s := settings{
		transport: transport.DefaultOptions(),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.loggerSet {
		s.transport.Logger = s.logger
	}

	ch, err := transport.Open(address, port, s.transport)
	if err != nil {
		return nil, err
	}

	version, err := Connect(ch, connect, expectedVersion)
	if err != nil {
		ch.Close()
		return nil, err
	}
	s.logger.Info().
		Str("device", connect.Name).
		Uint16("version", version).
		Msg("handshake complete")

	c := &Client{
		ch:      ch,
		stream:  telemetry.NewStreamer(ch),
		version: version,
		log:     s.logger,
	}
	c.handler = middleware.Chain(s.middlewares...)(c.exchange)
	return c, nil
}

// exchange is the innermost handler: send the request, block for the
// correlated reply.
func (c *Client) exchange(_ context.Context, cmd *middleware.Command) *middleware.Result {
	id, err := c.ch.SendRequest(cmd.Desc, cmd.Payload)
	if err != nil {
		return &middleware.Result{Err: err}
	}
	payload, err := c.ch.ReceiveResponse(cmd.Desc, id)
	return &middleware.Result{Payload: payload, Err: err}
}

// Execute sends one command and blocks for its reply, passing through the
// configured middleware chain. The payload is opaque to the engine; callers
// validate command values before handing them in.
func (c *Client) Execute(ctx context.Context, desc protocol.Descriptor, payload []byte) ([]byte, error) {
	result := c.handler(ctx, &middleware.Command{Desc: desc, Payload: payload})
	return result.Payload, result.Err
}

// ServerVersion reports the protocol version negotiated at handshake.
func (c *Client) ServerVersion() uint16 { return c.version }

// State blocks for the next telemetry sample; it paces a control loop to
// the controller's publish cadence.
func (c *Client) State() (telemetry.State, error) { return c.stream.WaitNext() }

// TryState returns a sample only if one is already queued.
func (c *Client) TryState() (telemetry.State, bool, error) { return c.stream.TryNext() }

// Channel exposes the underlying transport for raw use.
func (c *Client) Channel() *transport.Channel { return c.ch }

// Close tears down both connections.
func (c *Client) Close() error { return c.ch.Close() }
