// Package tcp carries flattened events to a remote responder over TCP, one
// connection per request, using length-prefixed frames.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/compose-network/aebridge/x/codec"
	"github.com/compose-network/aebridge/x/transport"
)

// Client is a Transport and Resolver backed by a remote Server.
type Client struct {
	addr     string
	codec    *codec.FrameCodec
	timeouts TimeoutConfig
	log      zerolog.Logger
}

var _ transport.Transport = (*Client)(nil)
var _ transport.Resolver = (*Client)(nil)

// NewClient returns a client for the server listening on addr.
func NewClient(addr string, log zerolog.Logger) *Client {
	return NewClientWithTimeouts(addr, log, DefaultTimeoutConfig())
}

// NewClientWithTimeouts returns a client with custom timeout configuration
func NewClientWithTimeouts(addr string, log zerolog.Logger, timeouts TimeoutConfig) *Client {
	return &Client{
		addr:     addr,
		codec:    codec.NewFrameCodec(codec.DefaultMaxMessageSize),
		timeouts: timeouts,
		log:      log.With().Str("component", "tcp-client").Str("server", addr).Logger(),
	}
}

func (c *Client) Inflate(data []byte) (transport.Handle, error) {
	return transport.InflateBuffer(data)
}

func (c *Client) Flatten(h transport.Handle) ([]byte, error) {
	return transport.FlattenBuffer(h)
}

func (c *Client) Send(
	ctx context.Context, h transport.Handle, address []byte, flags transport.SendFlags, timeoutTicks int32,
) ([]byte, error) {
	event, err := transport.FlattenBuffer(h)
	if err != nil {
		return nil, err
	}

	wait := c.timeouts.Read
	switch {
	case timeoutTicks > 0:
		wait = transport.Duration(timeoutTicks)
	case timeoutTicks == transport.NoTimeout:
		wait = 0
	}

	req := sendRequest{flags: flags, ticks: timeoutTicks, address: address, event: event}
	reply, err := c.roundTrip(ctx, req.marshal(), wait)
	if err != nil {
		return nil, err
	}
	if len(reply) == 0 {
		return nil, nil
	}
	return reply, nil
}

func (c *Client) Resolve(ctx context.Context, target transport.Target) ([]byte, error) {
	return c.roundTrip(ctx, marshalResolve(target), c.timeouts.Read)
}

func (c *Client) roundTrip(ctx context.Context, request []byte, wait time.Duration) ([]byte, error) {
	dialer := net.Dialer{Timeout: c.timeouts.Dial}
	netConn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		c.log.Debug().Err(err).Msg("Dial failed")
		return nil, &transport.Error{Code: transport.ProcNotFound, Op: "dial"}
	}
	conn := newConnection(netConn, c.codec, c.log, c.timeouts)
	defer conn.closeLogged()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := conn.writeFrame(request); err != nil {
		return nil, c.mapErr(ctx, "write", err)
	}

	frame, err := conn.readFrame(wait)
	if err != nil {
		return nil, c.mapErr(ctx, "read", err)
	}

	status, payload, err := unmarshalReply(frame)
	if err != nil {
		return nil, fmt.Errorf("tcp: bad reply: %w", err)
	}
	if status != 0 {
		return nil, &transport.Error{Code: status, Op: "remote"}
	}
	return payload, nil
}

func (c *Client) mapErr(ctx context.Context, op string, err error) error {
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case isTimeout(err):
		return &transport.Error{Code: transport.Timeout, Op: op}
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed), errors.Is(err, io.ErrUnexpectedEOF):
		return &transport.Error{Code: transport.ConnectionInvalid, Op: op}
	default:
		return fmt.Errorf("tcp %s: %w", op, err)
	}
}
