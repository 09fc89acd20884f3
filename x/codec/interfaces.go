package codec

import "io"

// Codec frames opaque payloads for a byte stream.
type Codec interface {
	Encode(payload []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
	MaxMessageSize() int
}

// StreamCodec extends Codec for streaming operations
type StreamCodec interface {
	Codec
	DecodeStream(r io.Reader) ([]byte, error)
	EncodeStream(w io.Writer, payload []byte) error
}
