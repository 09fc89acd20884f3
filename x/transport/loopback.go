package transport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// Handler answers one flattened event delivered to address. A nil reply is
// allowed when the event expects none.
type Handler func(ctx context.Context, event []byte, address []byte) ([]byte, error)

// Loopback is an in-process Transport and Resolver. Targets addressed by
// name, path or bundle id share one simulated process that is launched on
// resolution and can be quit to make cached addresses stale.
type Loopback struct {
	handler Handler

	mu       sync.Mutex
	failures []int

	running     atomic.Int32
	lastPID     atomic.Int32
	sends       atomic.Int64
	resolutions atomic.Int64
}

var _ Transport = (*Loopback)(nil)
var _ Resolver = (*Loopback)(nil)

// NewLoopback returns a loopback transport that routes every send to h.
func NewLoopback(h Handler) *Loopback {
	l := &Loopback{handler: h}
	l.lastPID.Store(100)
	return l
}

// FailNext scripts the status codes returned by the next sends, in order,
// before the handler is reached.
func (l *Loopback) FailNext(codes ...int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures = append(l.failures, codes...)
}

// Quit stops the simulated process; addresses resolved so far go stale.
func (l *Loopback) Quit() {
	l.running.Store(0)
}

// Sends returns the number of Send calls.
func (l *Loopback) Sends() int64 {
	return l.sends.Load()
}

// Resolutions returns the number of Resolve calls.
func (l *Loopback) Resolutions() int64 {
	return l.resolutions.Load()
}

func (l *Loopback) Inflate(data []byte) (Handle, error) {
	return InflateBuffer(data)
}

func (l *Loopback) Flatten(h Handle) ([]byte, error) {
	return FlattenBuffer(h)
}

func (l *Loopback) Resolve(ctx context.Context, target Target) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.resolutions.Add(1)

	switch target.Kind {
	case TargetCurrent:
		return ProcessAddress(0), nil
	case TargetProcessID:
		return ProcessAddress(target.PID), nil
	case TargetURL:
		return TextAddress(AddressApplication, target.Name), nil
	case TargetAddress:
		if len(target.Address) < 8 {
			return nil, &Error{Code: ProcNotFound, Op: "resolve"}
		}
		return append([]byte(nil), target.Address...), nil
	default:
		if l.running.Load() == 0 {
			l.running.Store(l.lastPID.Add(1))
		}
		return ProcessAddress(l.running.Load()), nil
	}
}

func (l *Loopback) Send(
	ctx context.Context, h Handle, address []byte, flags SendFlags, timeoutTicks int32,
) ([]byte, error) {
	l.sends.Add(1)

	if code := l.popFailure(); code != 0 {
		return nil, &Error{Code: code, Op: "send"}
	}
	if pid, ok := ProcessFromAddress(address); ok && pid != 0 && pid != l.running.Load() {
		return nil, &Error{Code: ProcNotFound, Op: "send"}
	}
	if l.handler == nil {
		return nil, &Error{Code: EventNotHandled, Op: "send"}
	}

	event, err := FlattenBuffer(h)
	if err != nil {
		return nil, err
	}

	if timeoutTicks > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, Duration(timeoutTicks))
		defer cancel()
	}

	reply, err := l.handler(ctx, event, address)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, &Error{Code: Timeout, Op: "send"}
	}
	if err != nil {
		return nil, err
	}
	if !flags.ExpectsReply() {
		return nil, nil
	}
	return reply, nil
}

func (l *Loopback) popFailure() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.failures) == 0 {
		return 0
	}
	code := l.failures[0]
	l.failures = l.failures[1:]
	return code
}
