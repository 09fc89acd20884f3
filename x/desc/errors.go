package desc

import (
	"errors"
	"fmt"

	"github.com/compose-network/aebridge/x/fourcc"
)

var (
	ErrUnsupportedValue = errors.New("desc: unsupported value")
	ErrUnresolvedName   = errors.New("desc: unresolved name")
	ErrNonFinite        = errors.New("desc: non-finite number")
	ErrInflate          = errors.New("desc: inflate failed")

	ErrBadHeader      = errors.New("desc: bad flattened header")
	ErrTruncated      = errors.New("desc: truncated data")
	ErrOffsetMismatch = errors.New("desc: cursor does not match declared end")
	ErrMalformed      = errors.New("desc: malformed descriptor")
)

// EncodeError reports a host value the encoder could not serialise.
type EncodeError struct {
	Value  any
	Reason string
	Err    error
}

func (e *EncodeError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("desc: cannot encode %T: %v", e.Value, e.Err)
	}
	return fmt.Sprintf("desc: cannot encode %T (%s): %v", e.Value, e.Reason, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

func encodeErr(v any, err error, reason string, args ...any) *EncodeError {
	return &EncodeError{Value: v, Err: err, Reason: fmt.Sprintf(reason, args...)}
}

// DecodeError reports malformed wire bytes. Offset is relative to the
// buffer handed to the decoder.
type DecodeError struct {
	Offset int
	Type   uint32
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	typ := ""
	if e.Type != 0 {
		typ = " " + fourcc.Quote(e.Type)
	}
	return fmt.Sprintf("desc: decode%s at offset %d: %s: %v", typ, e.Offset, e.Reason, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func decodeErr(off int, typ uint32, err error, reason string, args ...any) *DecodeError {
	return &DecodeError{Offset: off, Type: typ, Err: err, Reason: fmt.Sprintf(reason, args...)}
}
