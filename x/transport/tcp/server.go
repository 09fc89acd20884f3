package tcp

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/compose-network/aebridge/x/codec"
	"github.com/compose-network/aebridge/x/transport"
)

// Backend is what a Server forwards requests to, typically a Loopback.
type Backend interface {
	transport.Transport
	transport.Resolver
}

// Server answers Client requests by forwarding them to a Backend.
type Server struct {
	backend  Backend
	codec    *codec.FrameCodec
	timeouts TimeoutConfig
	metrics  *Metrics
	log      zerolog.Logger

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
}

// NewServer creates a server forwarding to backend.
func NewServer(backend Backend, log zerolog.Logger) *Server {
	return &Server{
		backend:  backend,
		codec:    codec.NewFrameCodec(codec.DefaultMaxMessageSize),
		timeouts: DefaultTimeoutConfig(),
		log:      log.With().Str("component", "tcp-server").Logger(),
	}
}

// WithTimeouts replaces the connection timeouts. Call before serving.
func (s *Server) WithTimeouts(t TimeoutConfig) *Server {
	s.timeouts = t
	return s
}

// WithMaxMessageSize bounds request frames. Call before serving.
func (s *Server) WithMaxMessageSize(n int) *Server {
	s.codec = codec.NewFrameCodec(n)
	return s
}

// WithMetrics records connection and request metrics with reg. Call before
// serving.
func (s *Server) WithMetrics(reg prometheus.Registerer) *Server {
	s.metrics = NewMetrics(reg)
	return s
}

// ListenAndServe listens on addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done or ln is closed.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("Event responder listening")

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	for {
		netConn, err := ln.Accept()
		if err != nil {
			s.wg.Wait()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(ctx, newConnection(netConn, s.codec, s.log, s.timeouts))
		}()
	}
}

// Addr returns the listening address once Serve has started.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) handle(ctx context.Context, conn *connection) {
	opened := time.Now()
	s.metrics.RecordConnection("accepted")
	defer func() {
		conn.closeLogged()
		s.metrics.RecordConnection("closed")
		s.metrics.RecordConnectionDuration(time.Since(opened))
	}()

	for {
		frame, err := conn.readFrame(s.timeouts.Idle)
		if err != nil {
			if !errors.Is(err, io.EOF) && !isTimeout(err) {
				conn.log.Debug().Err(err).Msg("Failed to read request")
				s.metrics.RecordError("read")
			}
			return
		}

		start := time.Now()
		reply := s.serveFrame(ctx, frame)
		if status, _, err := unmarshalReply(reply); err == nil {
			s.metrics.RecordRequest(opName(frame), status, len(frame), len(reply), time.Since(start))
		}
		if err := conn.writeFrame(reply); err != nil {
			conn.log.Warn().Err(err).Msg("Failed to write reply")
			s.metrics.RecordError("write")
			return
		}
	}
}

func (s *Server) serveFrame(ctx context.Context, frame []byte) []byte {
	if len(frame) == 0 {
		return marshalReply(transport.NotADescriptor, nil)
	}

	switch frame[0] {
	case opSend:
		req, err := unmarshalSend(frame[1:])
		if err != nil {
			return marshalReply(transport.NotADescriptor, nil)
		}
		h, err := s.backend.Inflate(req.event)
		if err != nil {
			return marshalReply(statusOf(err), nil)
		}
		reply, err := s.backend.Send(ctx, h, req.address, req.flags, req.ticks)
		if err != nil {
			s.log.Debug().Err(err).Msg("Backend send failed")
			return marshalReply(statusOf(err), nil)
		}
		return marshalReply(0, reply)

	case opResolve:
		target, err := unmarshalResolve(frame[1:])
		if err != nil {
			return marshalReply(transport.NotADescriptor, nil)
		}
		addr, err := s.backend.Resolve(ctx, target)
		if err != nil {
			return marshalReply(statusOf(err), nil)
		}
		return marshalReply(0, addr)

	default:
		return marshalReply(transport.EventNotHandled, nil)
	}
}

func statusOf(err error) int {
	if code := transport.Code(err); code != 0 {
		return code
	}
	return transport.EventNotHandled
}
