package codec

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameCodec_EncodeDecode_Roundtrip(t *testing.T) {
	t.Parallel()

	c := NewFrameCodec(1 << 20)

	payload := []byte("dle2\x00\x00\x00\x00null\x00\x00\x00\x00")
	data, err := c.Encode(payload)
	require.NoError(t, err)
	assert.Equal(t, uint32(len(payload)), binary.BigEndian.Uint32(data[:4]))

	out, err := c.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}

func TestFrameCodec_EncodeStream_DecodeStream(t *testing.T) {
	t.Parallel()

	c := NewFrameCodec(1 << 20)
	buf := new(bytes.Buffer)

	first := bytes.Repeat([]byte{0xab}, 256)
	second := []byte{1, 2, 3}
	require.NoError(t, c.EncodeStream(buf, first))
	require.NoError(t, c.EncodeStream(buf, second))

	got, err := c.DecodeStream(buf)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	got, err = c.DecodeStream(buf)
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestFrameCodec_MaxSizeExceeded(t *testing.T) {
	t.Parallel()

	c := NewFrameCodec(8)

	_, err := c.Encode(make([]byte, 9))
	require.Error(t, err)

	frame := make([]byte, 4)
	binary.BigEndian.PutUint32(frame, 9)
	_, err = c.DecodeStream(bytes.NewReader(append(frame, make([]byte, 9)...)))
	require.Error(t, err)
}

func TestFrameCodec_Decode_ShortData(t *testing.T) {
	t.Parallel()

	c := NewFrameCodec(1 << 20)

	_, err := c.Decode([]byte{0, 0})
	require.Error(t, err)

	_, err = c.Decode([]byte{0, 0, 0, 5, 1})
	require.Error(t, err)
}

func TestFrameCodec_EmptyFrame(t *testing.T) {
	t.Parallel()

	c := NewFrameCodec(0)
	assert.Equal(t, DefaultMaxMessageSize, c.MaxMessageSize())

	_, err := c.DecodeStream(bytes.NewReader([]byte{0, 0, 0, 0}))
	require.ErrorIs(t, err, ErrEmptyFrame)
}
