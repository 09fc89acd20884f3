// Package transport defines the seams between the descriptor codec and the
// system that physically delivers events: inflating flattened bytes into a
// native handle, sending it to an address, and resolving process targets to
// address descriptors.
package transport

import (
	"context"
	"strings"
	"time"
)

// Handle is a transport-native descriptor produced by Inflate.
type Handle interface{}

// Inflater turns flattened descriptor bytes into a native handle.
type Inflater interface {
	Inflate(data []byte) (Handle, error)
}

// Transport delivers events. Send blocks until a reply arrives, the timeout
// elapses or ctx is done; a nil reply with a nil error means no reply was
// requested.
type Transport interface {
	Inflater
	Flatten(h Handle) ([]byte, error)
	Send(ctx context.Context, h Handle, address []byte, flags SendFlags, timeoutTicks int32) ([]byte, error)
}

// Resolver maps a target to the flattened address descriptor events are
// sent to (type, size, payload; no file header).
type Resolver interface {
	Resolve(ctx context.Context, target Target) ([]byte, error)
}

// SendFlags select reply, interaction and recording behavior for one send.
type SendFlags uint32

const (
	NoReply               SendFlags = 0x00000001
	QueueReply            SendFlags = 0x00000002
	WaitReply             SendFlags = 0x00000003
	NeverInteract         SendFlags = 0x00000010
	CanInteract           SendFlags = 0x00000020
	AlwaysInteract        SendFlags = 0x00000030
	CanSwitchLayer        SendFlags = 0x00000040
	DontRecord            SendFlags = 0x00001000
	DontExecute           SendFlags = 0x00002000
	ProcessNonReplyEvents SendFlags = 0x00008000

	replyMask       SendFlags = 0x00000003
	interactionMask SendFlags = 0x00000030

	DefaultSendFlags = WaitReply | CanSwitchLayer
)

var sendFlagNames = map[string]SendFlags{
	"noreply":               NoReply,
	"queuereply":            QueueReply,
	"waitreply":             WaitReply,
	"neverinteract":         NeverInteract,
	"caninteract":           CanInteract,
	"alwaysinteract":        AlwaysInteract,
	"canswitchlayer":        CanSwitchLayer,
	"dontrecord":            DontRecord,
	"dontexecute":           DontExecute,
	"processnonreplyevents": ProcessNonReplyEvents,
}

// SendFlagByName looks up a flag by its case-insensitive name, e.g.
// "noReply" or "canSwitchLayer".
func SendFlagByName(name string) (SendFlags, bool) {
	f, ok := sendFlagNames[strings.ToLower(name)]
	return f, ok
}

// WantsReply reports whether the sender blocks for a reply.
func (f SendFlags) WantsReply() bool {
	return f&replyMask == WaitReply
}

// ExpectsReply reports whether the reply is delivered at all.
func (f SendFlags) ExpectsReply() bool {
	return f&replyMask != NoReply
}

// Interaction returns the interaction level bits.
func (f SendFlags) Interaction() SendFlags {
	return f & interactionMask
}

const (
	// TicksPerSecond is the resolution of send timeouts.
	TicksPerSecond = 60

	// NoTimeout waits for a reply indefinitely.
	NoTimeout int32 = -2
	// DefaultTimeout lets the transport apply its own default.
	DefaultTimeout int32 = -1
)

// Ticks converts d to send-timeout ticks. Non-positive durations mean no
// timeout.
func Ticks(d time.Duration) int32 {
	if d <= 0 {
		return NoTimeout
	}
	t := d * TicksPerSecond / time.Second
	if t < 1 {
		t = 1
	}
	return int32(t)
}

// Duration converts ticks back to a duration. The sentinels map to zero.
func Duration(ticks int32) time.Duration {
	if ticks <= 0 {
		return 0
	}
	return time.Duration(ticks) * time.Second / TicksPerSecond
}
