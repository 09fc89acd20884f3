package desc

import (
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/text/encoding/unicode"

	"github.com/compose-network/aebridge/x/transport"
)

const defaultWriterSize = 256

var utf16Encoder = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// Writer accumulates the bytes of one flattened descriptor. The cursor is
// brought back to an even offset after every variable-length write.
type Writer struct {
	buf []byte
	off int
}

// NewWriter returns a writer with room for sizeHint bytes.
func NewWriter(sizeHint int) *Writer {
	if sizeHint <= 0 {
		sizeHint = defaultWriterSize
	}
	return &Writer{buf: make([]byte, sizeHint)}
}

// Len returns the cursor offset.
func (w *Writer) Len() int {
	return w.off
}

// Bytes returns the written bytes. The slice aliases the writer's buffer.
func (w *Writer) Bytes() []byte {
	return w.buf[:w.off]
}

// grow makes room for n more bytes, doubling the buffer so that repeated
// small writes stay amortised.
func (w *Writer) grow(n int) {
	need := w.off + n
	if need <= len(w.buf) {
		return
	}
	size := len(w.buf) * 2
	if size < need {
		size = need
	}
	buf := make([]byte, size)
	copy(buf, w.buf[:w.off])
	w.buf = buf
}

// Allocate reserves n zeroed bytes and returns their offset so they can be
// back-patched later.
func (w *Writer) Allocate(n int) int {
	w.grow(n)
	off := w.off
	clear(w.buf[off : off+n])
	w.off += n
	return off
}

func (w *Writer) WriteUint8(v uint8) {
	w.grow(1)
	w.buf[w.off] = v
	w.off++
}

func (w *Writer) WriteUint16(v uint16) {
	w.grow(2)
	binary.BigEndian.PutUint16(w.buf[w.off:], v)
	w.off += 2
}

func (w *Writer) WriteUint32(v uint32) {
	w.grow(4)
	binary.BigEndian.PutUint32(w.buf[w.off:], v)
	w.off += 4
}

func (w *Writer) WriteUint64(v uint64) {
	w.grow(8)
	binary.BigEndian.PutUint64(w.buf[w.off:], v)
	w.off += 8
}

func (w *Writer) WriteInt32(v int32) {
	w.WriteUint32(uint32(v))
}

func (w *Writer) WriteInt64(v int64) {
	w.WriteUint64(uint64(v))
}

func (w *Writer) WriteFloat64(v float64) {
	w.WriteUint64(math.Float64bits(v))
}

// PutUint32At overwrites four bytes at an offset returned by Allocate.
func (w *Writer) PutUint32At(off int, v uint32) {
	binary.BigEndian.PutUint32(w.buf[off:off+4], v)
}

// WriteText16 writes s as UTF-16BE without a byte-order mark and returns the
// number of text bytes written, not counting alignment padding.
func (w *Writer) WriteText16(s string) (int, error) {
	b, err := utf16Encoder.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return 0, fmt.Errorf("desc: utf-16 encode: %w", err)
	}
	w.grow(len(b))
	copy(w.buf[w.off:], b)
	w.off += len(b)
	w.Align()
	return len(b), nil
}

// WriteRaw splices in pre-built bytes, typically a packed sub-descriptor.
func (w *Writer) WriteRaw(b []byte) {
	w.grow(len(b))
	copy(w.buf[w.off:], b)
	w.off += len(b)
	w.Align()
}

// Align pads the cursor to an even offset.
func (w *Writer) Align() {
	if w.off%2 != 0 {
		w.WriteUint8(0)
	}
}

// BeginDesc writes a descriptor type and a size placeholder, returning the
// mark EndDesc needs.
func (w *Writer) BeginDesc(typ uint32) int {
	w.WriteUint32(typ)
	return w.Allocate(4)
}

// EndDesc back-patches the payload size of the descriptor opened at mark and
// restores alignment. The size never includes the pad byte.
func (w *Writer) EndDesc(mark int) {
	w.PutUint32At(mark, uint32(w.off-mark-4))
	w.Align()
}

// Handle inflates the accumulated bytes into a transport-native handle.
func (w *Writer) Handle(t transport.Inflater) (transport.Handle, error) {
	h, err := t.Inflate(w.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInflate, err)
	}
	return h, nil
}
