package desc

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compose-network/aebridge/x/transport"
)

func TestWriter_GrowPreservesBytes(t *testing.T) {
	t.Parallel()

	w := NewWriter(4)
	for i := range 100 {
		w.WriteUint32(uint32(i))
	}
	require.Equal(t, 400, w.Len())
	for i := range 100 {
		assert.Equal(t, uint32(i), binary.BigEndian.Uint32(w.Bytes()[i*4:]))
	}
}

func TestWriter_AllocateAndPatch(t *testing.T) {
	t.Parallel()

	w := NewWriter(0)
	off := w.Allocate(4)
	w.WriteUint16(0xbeef)
	w.PutUint32At(off, 0xcafef00d)

	assert.Equal(t, []byte{0xca, 0xfe, 0xf0, 0x0d, 0xbe, 0xef}, w.Bytes())
}

func TestWriter_EndDescExcludesPad(t *testing.T) {
	t.Parallel()

	w := NewWriter(0)
	mark := w.BeginDesc(TypeUTF8Text)
	w.WriteUint8('a')
	w.EndDesc(mark)

	assert.Equal(t, 10, w.Len(), "odd payload is padded")
	assert.Equal(t, uint32(1), binary.BigEndian.Uint32(w.Bytes()[4:]))
}

func TestWriter_Text16(t *testing.T) {
	t.Parallel()

	w := NewWriter(0)
	n, err := w.WriteText16("hé")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{0, 'h', 0, 0xe9}, w.Bytes(), "big-endian, no byte-order mark")
}

func TestWriter_RawAligns(t *testing.T) {
	t.Parallel()

	w := NewWriter(0)
	w.WriteRaw([]byte{1, 2, 3})
	assert.Equal(t, 4, w.Len())
	assert.Equal(t, []byte{1, 2, 3, 0}, w.Bytes())
}

func TestWriter_HandleInflatesWrittenBytes(t *testing.T) {
	t.Parallel()

	loop := transport.NewLoopback(nil)

	w := NewWriter(0)
	w.WriteUint32(FlatHeader)
	mark := w.BeginDesc(TypeSInt32)
	w.WriteUint32(7)
	w.EndDesc(mark)
	w.PutUint32At(mark+4, 9)

	h, err := w.Handle(loop)
	require.NoError(t, err)
	buf, ok := h.(*transport.Buffer)
	require.True(t, ok)
	assert.Equal(t, w.Bytes(), buf.Data)
	assert.Equal(t, uint32(9), binary.BigEndian.Uint32(buf.Data[12:]), "patches made after writing are inflated")

	short := NewWriter(0)
	short.WriteUint32(FlatHeader)
	_, err = short.Handle(loop)
	require.ErrorIs(t, err, ErrInflate)
	var trErr *transport.Error
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, transport.NotADescriptor, trErr.Code)
}
