package transport

import (
	"encoding/binary"
	"errors"
)

// Address descriptor types produced by resolvers.
const (
	AddressProcessID   uint32 = 0x6b706964 // 'kpid'
	AddressApplication uint32 = 0x6170726c // 'aprl'
	AddressBundleID    uint32 = 0x62756e64 // 'bund'
)

const flatHeader uint32 = 0x646c6532 // 'dle2'

// ProcessAddress returns the address descriptor of a process id.
func ProcessAddress(pid int32) []byte {
	b := make([]byte, 12)
	binary.BigEndian.PutUint32(b[0:], AddressProcessID)
	binary.BigEndian.PutUint32(b[4:], 4)
	binary.BigEndian.PutUint32(b[8:], uint32(pid))
	return b
}

// TextAddress returns an address descriptor carrying UTF-8 text.
func TextAddress(typ uint32, s string) []byte {
	n := len(s)
	b := make([]byte, 8+n+n%2)
	binary.BigEndian.PutUint32(b[0:], typ)
	binary.BigEndian.PutUint32(b[4:], uint32(n))
	copy(b[8:], s)
	return b
}

// ProcessFromAddress extracts the process id from a 'kpid' address.
func ProcessFromAddress(address []byte) (int32, bool) {
	if len(address) < 12 || binary.BigEndian.Uint32(address) != AddressProcessID ||
		binary.BigEndian.Uint32(address[4:]) != 4 {
		return 0, false
	}
	return int32(binary.BigEndian.Uint32(address[8:])), true
}

// Buffer is the handle used by transports that keep events as flattened
// bytes.
type Buffer struct {
	Data []byte
}

var errNotBuffer = errors.New("handle is not a transport buffer")

// InflateBuffer validates the flattened header and copies data into a Buffer.
func InflateBuffer(data []byte) (*Buffer, error) {
	if len(data) < 16 || binary.BigEndian.Uint32(data) != flatHeader {
		return nil, &Error{Code: NotADescriptor, Op: "inflate"}
	}
	return &Buffer{Data: append([]byte(nil), data...)}, nil
}

// FlattenBuffer returns a copy of the bytes held by a Buffer handle.
func FlattenBuffer(h Handle) ([]byte, error) {
	b, ok := h.(*Buffer)
	if !ok || b == nil {
		return nil, errNotBuffer
	}
	return append([]byte(nil), b.Data...), nil
}
