package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
)

// DefaultMaxMessageSize bounds a single frame.
const DefaultMaxMessageSize = 10 * 1024 * 1024

var ErrEmptyFrame = errors.New("empty frame")

// FrameCodec implements u32 big-endian length-prefixed framing.
type FrameCodec struct {
	maxMessageSize int

	// Buffer pool for zero-allocation prefix writes
	bufferPool sync.Pool
}

var _ StreamCodec = (*FrameCodec)(nil)

// NewFrameCodec creates a new frame codec
func NewFrameCodec(maxMessageSize int) *FrameCodec {
	if maxMessageSize <= 0 {
		maxMessageSize = DefaultMaxMessageSize
	}
	return &FrameCodec{
		maxMessageSize: maxMessageSize,
		bufferPool: sync.Pool{
			New: func() interface{} {
				buf := make([]byte, 0, 1024) // Start with 1KB capacity
				return &buf
			},
		},
	}
}

// Encode prepends the length prefix to payload
func (c *FrameCodec) Encode(payload []byte) ([]byte, error) {
	dataLen := len(payload)
	if dataLen > c.maxMessageSize {
		return nil, fmt.Errorf("message size %d exceeds max %d", dataLen, c.maxMessageSize)
	}
	if dataLen > math.MaxUint32 {
		return nil, fmt.Errorf("message size %d exceeds uint32 max", dataLen)
	}

	out := make([]byte, 4+dataLen)
	binary.BigEndian.PutUint32(out[:4], uint32(dataLen))
	copy(out[4:], payload)
	return out, nil
}

// Decode strips the length prefix from a complete frame
func (c *FrameCodec) Decode(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("data too short for length prefix")
	}

	length := binary.BigEndian.Uint32(data[:4])
	if int(length) > c.maxMessageSize {
		return nil, fmt.Errorf("message size %d exceeds max %d", length, c.maxMessageSize)
	}

	if len(data) < int(4+length) {
		return nil, fmt.Errorf("data too short for claimed message length")
	}

	return data[4 : 4+length], nil
}

// DecodeStream reads one frame from r
func (c *FrameCodec) DecodeStream(r io.Reader) ([]byte, error) {
	var lengthBuf [4]byte
	if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(lengthBuf[:])
	if int(length) > c.maxMessageSize {
		return nil, fmt.Errorf("message size %d exceeds max %d", length, c.maxMessageSize)
	}
	if length == 0 {
		return nil, ErrEmptyFrame
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// EncodeStream writes payload as one frame to w
func (c *FrameCodec) EncodeStream(w io.Writer, payload []byte) error {
	if len(payload) > c.maxMessageSize {
		return fmt.Errorf("message size %d exceeds max %d", len(payload), c.maxMessageSize)
	}

	bufPtr := c.bufferPool.Get().(*[]byte)
	defer c.bufferPool.Put(bufPtr)

	buf := (*bufPtr)[:0]
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(payload)))
	buf = append(buf, payload...)
	*bufPtr = buf

	_, err := w.Write(buf)
	return err
}

// MaxMessageSize returns the maximum message size
func (c *FrameCodec) MaxMessageSize() int {
	return c.maxMessageSize
}
