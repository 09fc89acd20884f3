package dispatch

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/compose-network/aebridge/x/desc"
	"github.com/compose-network/aebridge/x/fourcc"
	"github.com/compose-network/aebridge/x/specifier"
	"github.com/compose-network/aebridge/x/terminology"
	"github.com/compose-network/aebridge/x/transport"
)

// Request is one event received by a Responder, decoded.
type Request struct {
	Class       uint32
	ID          uint32
	ReturnID    int32
	Address     []byte
	Subject     any
	ReplyWanted bool
	Params      map[uint32]any
}

// Direct returns the direct parameter.
func (r *Request) Direct() any {
	return r.Params[terminology.ParamDirect]
}

// HandlerFunc answers a request with its direct result. Returning an
// *ApplicationError sends that error back numbered as given.
type HandlerFunc func(ctx context.Context, req *Request) (any, error)

type route struct {
	class, id uint32
}

// Responder is the receiving side of the protocol: it decodes events,
// routes them by class and id and encodes the replies. Its Serve method is
// a transport.Handler.
type Responder struct {
	log zerolog.Logger
	enc *desc.Encoder
	dec *desc.Decoder

	mu     sync.RWMutex
	routes map[route]HandlerFunc
}

// NewResponder creates a responder resolving names through terms.
func NewResponder(terms terminology.Terms, log zerolog.Logger) *Responder {
	env := specifier.NewEnv(terms, nil)
	return &Responder{
		log:    log.With().Str("component", "responder").Logger(),
		enc:    desc.NewEncoder(terms),
		dec:    specifier.NewDecoder(env),
		routes: make(map[route]HandlerFunc),
	}
}

// NewLoopback returns an in-process transport whose sends are answered by r.
func NewLoopback(r *Responder) *transport.Loopback {
	return transport.NewLoopback(r.Serve)
}

// Handle routes events of class and id to fn.
func (r *Responder) Handle(class, id uint32, fn HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[route{class, id}] = fn
}

// HandleCommand routes the events of cmd to fn.
func (r *Responder) HandleCommand(cmd Command, fn HandlerFunc) {
	r.Handle(cmd.Class, cmd.ID, fn)
}

// Serve answers one flattened event.
func (r *Responder) Serve(ctx context.Context, event []byte, address []byte) ([]byte, error) {
	ev, err := ParseEvent(event)
	if err != nil {
		return nil, err
	}
	req, err := r.request(ev, address)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	fn, ok := r.routes[route{ev.Class, ev.ID}]
	r.mu.RUnlock()

	var result any
	if ok {
		result, err = fn(ctx, req)
	} else {
		err = &ApplicationError{Number: transport.EventNotHandled, Message: "event not handled"}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	log := r.log.With().
		Str("event", fourcc.String(ev.Class)+"/"+fourcc.String(ev.ID)).
		Int32("return_id", req.ReturnID).
		Logger()
	if err != nil {
		log.Debug().Err(err).Msg("Event failed")
	} else {
		log.Debug().Msg("Event handled")
	}

	if !req.ReplyWanted {
		return nil, nil
	}
	return r.reply(req.ReturnID, result, err)
}

func (r *Responder) request(ev *Event, address []byte) (*Request, error) {
	req := &Request{Class: ev.Class, ID: ev.ID, Address: address, ReplyWanted: true}

	if raw, ok := ev.Attribute(KeyReturnID); ok {
		v, err := r.dec.Value(raw)
		if err != nil {
			return nil, err
		}
		if n, ok := v.(int); ok {
			req.ReturnID = int32(n)
		}
	}
	if raw, ok := ev.Attribute(KeyReplyWanted); ok {
		v, err := r.dec.Value(raw)
		if err != nil {
			return nil, err
		}
		if b, ok := v.(bool); ok {
			req.ReplyWanted = b
		}
	}
	if raw, ok := ev.Attribute(KeySubject); ok {
		v, err := r.dec.Value(raw)
		if err != nil {
			return nil, err
		}
		req.Subject = v
	}

	params, err := ev.DecodeParams(r.dec)
	if err != nil {
		return nil, err
	}
	req.Params = params
	return req, nil
}

func (r *Responder) reply(returnID int32, result any, err error) ([]byte, error) {
	ev := envelope{
		class: ClassReply,
		id:    IDAnswer,
		attrs: []attribute{{key: KeyReturnID, value: int(returnID)}},
	}

	var appErr *ApplicationError
	if err != nil && !errors.As(err, &appErr) {
		appErr = &ApplicationError{Number: ErrorGeneric, Message: err.Error()}
	}
	switch {
	case appErr != nil:
		ev.params = append(ev.params, desc.Field{Key: terminology.ParamErrorNumber, Value: appErr.Number})
		if appErr.Message != "" {
			ev.params = append(ev.params, desc.Field{Key: terminology.ParamErrorString, Value: appErr.Message})
		}
		if appErr.ExpectedType != nil {
			ev.params = append(ev.params, desc.Field{Key: terminology.ParamErrorType, Value: appErr.ExpectedType})
		}
		if appErr.OffendingObject != nil {
			ev.params = append(ev.params, desc.Field{Key: terminology.ParamErrorObject, Value: appErr.OffendingObject})
		}
	case result != nil:
		ev.params = append(ev.params, desc.Field{Key: terminology.ParamDirect, Value: result})
	}

	pkt, err := ev.encode(r.enc)
	if err != nil {
		return nil, err
	}
	return pkt.data, nil
}
