package tcp

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/compose-network/aebridge/x/codec"
)

// TimeoutConfig contains timeout settings for connection operations
type TimeoutConfig struct {
	Dial  time.Duration // Timeout for establishing the connection (default: 5s)
	Read  time.Duration // Timeout for a reply when the event carries no timeout (default: 2m)
	Write time.Duration // Timeout for write operations (default: 20s)
	Idle  time.Duration // Server-side idle timeout between requests (default: 30s)
}

// DefaultTimeoutConfig returns production-ready timeout defaults
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		Dial:  5 * time.Second,
		Read:  2 * time.Minute,
		Write: 20 * time.Second,
		Idle:  30 * time.Second,
	}
}

// connection wraps a net.Conn with framed, deadline-bounded I/O
type connection struct {
	net.Conn
	codec    *codec.FrameCodec
	log      zerolog.Logger
	timeouts TimeoutConfig

	// Buffered I/O
	reader  *bufio.Reader
	writer  *bufio.Writer
	writeMu sync.Mutex

	// Metrics
	framesRead    uint64
	framesWritten uint64
}

func newConnection(netConn net.Conn, c *codec.FrameCodec, log zerolog.Logger, timeouts TimeoutConfig) *connection {
	return &connection{
		Conn:     netConn,
		codec:    c,
		log:      log.With().Str("remote", netConn.RemoteAddr().String()).Logger(),
		timeouts: timeouts,
		reader:   bufio.NewReaderSize(netConn, 16384),
		writer:   bufio.NewWriterSize(netConn, 16384),
	}
}

// readFrame reads one frame, waiting at most d (no deadline when d is zero)
func (c *connection) readFrame(d time.Duration) ([]byte, error) {
	deadline := time.Time{}
	if d > 0 {
		deadline = time.Now().Add(d)
	}
	if err := c.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("failed to set read deadline: %w", err)
	}

	frame, err := c.codec.DecodeStream(c.reader)
	if err != nil {
		return nil, err
	}

	atomic.AddUint64(&c.framesRead, 1)
	return frame, nil
}

// writeFrame writes one frame and flushes it
func (c *connection) writeFrame(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.timeouts.Write > 0 {
		if err := c.SetWriteDeadline(time.Now().Add(c.timeouts.Write)); err != nil {
			return fmt.Errorf("failed to set write deadline: %w", err)
		}
	}

	if err := c.codec.EncodeStream(c.writer, payload); err != nil {
		return err
	}

	if err := c.writer.Flush(); err != nil {
		return err
	}

	atomic.AddUint64(&c.framesWritten, 1)
	return nil
}

func (c *connection) closeLogged() {
	if err := c.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		c.log.Debug().Err(err).Msg("Failed to close connection")
	}
	c.log.Debug().
		Uint64("frames_read", atomic.LoadUint64(&c.framesRead)).
		Uint64("frames_written", atomic.LoadUint64(&c.framesWritten)).
		Msg("Connection closed")
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
