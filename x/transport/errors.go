package transport

import (
	"errors"
	"fmt"
)

// Transport status codes.
const (
	ProcNotFound      = -600
	ConnectionInvalid = -609
	NotADescriptor    = -1704
	EventNotHandled   = -1708
	Timeout           = -1712
	NoUserInteraction = -1713
)

var codeMessages = map[int]string{
	ProcNotFound:      "application isn't running",
	ConnectionInvalid: "connection is invalid",
	NotADescriptor:    "not a valid descriptor",
	EventNotHandled:   "event wasn't handled",
	Timeout:           "event timed out",
	NoUserInteraction: "no user interaction allowed",
}

// Error is a numbered transport failure.
type Error struct {
	Code int
	Op   string
}

func (e *Error) Error() string {
	msg, ok := codeMessages[e.Code]
	if !ok {
		msg = "transport error"
	}
	if e.Op == "" {
		return fmt.Sprintf("%s (%d)", msg, e.Code)
	}
	return fmt.Sprintf("%s: %s (%d)", e.Op, msg, e.Code)
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// Code extracts the transport status from err, or 0.
func Code(err error) int {
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	return 0
}

// IsProcessGone reports whether err means the target process exited or
// could not be reached at its cached address.
func IsProcessGone(err error) bool {
	switch Code(err) {
	case ProcNotFound, ConnectionInvalid:
		return true
	default:
		return false
	}
}
