// Package dispatch sends commands to a target application: it resolves call
// parameters, assembles the event envelope, sends it through a transport and
// turns the reply into a value or an error. A dispatch to a process that has
// gone away is resent once after looking the target up again when the
// relaunch policy allows it.
package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"os"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/compose-network/aebridge/x/desc"
	"github.com/compose-network/aebridge/x/fourcc"
	"github.com/compose-network/aebridge/x/specifier"
	"github.com/compose-network/aebridge/x/terminology"
	"github.com/compose-network/aebridge/x/transport"
)

// Dispatcher sends commands to one target application. It is safe for
// concurrent use: each dispatch owns its buffer and the only shared state is
// the cached target address.
type Dispatcher struct {
	transport transport.Transport
	resolver  transport.Resolver
	target    transport.Target
	cfg       Config
	log       zerolog.Logger
	metrics   *Metrics

	env    *specifier.Env
	enc    *desc.Encoder
	dec    *desc.Decoder
	origin []byte
	csig   uint32

	address  atomic.Pointer[[]byte]
	returnID atomic.Int32
}

var _ specifier.Invoker = (*Dispatcher)(nil)

// loadable is a vocabulary that is read on demand, such as a
// *terminology.Handle.
type loadable interface {
	Load() error
}

// call is one dispatch's resolved parameters and options.
type call struct {
	params      []desc.Field
	subject     any
	flags       transport.SendFlags
	timeout     int32
	considering uint32
	returnID    int32
}

// New creates a dispatcher for target.
func New(t transport.Transport, r transport.Resolver, target transport.Target, opts ...Option) (*Dispatcher, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if t == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if r == nil {
		return nil, fmt.Errorf("resolver is required")
	}
	csig, err := considerMask(cfg.Ignoring)
	if err != nil {
		return nil, err
	}

	d := &Dispatcher{
		transport: t,
		resolver:  r,
		target:    target,
		cfg:       cfg,
		log:       cfg.Logger.With().Str("component", "dispatcher").Stringer("target", target).Logger(),
		enc:       desc.NewEncoder(cfg.Terms),
		origin:    transport.ProcessAddress(int32(os.Getpid())),
		csig:      csig,
	}
	if cfg.Registerer != nil {
		d.metrics = NewMetrics(cfg.Registerer)
	}
	d.env = specifier.NewEnv(cfg.Terms, d)
	d.dec = specifier.NewDecoder(d.env, desc.WithDeferredReferences(cfg.DeferReferences))
	return d, nil
}

// Env returns the environment chains built for this target share.
func (d *Dispatcher) Env() *specifier.Env {
	return d.env
}

// Root returns the chain root addressing the target application.
func (d *Dispatcher) Root() *specifier.Node {
	return specifier.Target(d.env)
}

// Decoder returns the decoder replies are read with.
func (d *Dispatcher) Decoder() *desc.Decoder {
	return d.dec
}

// Command looks a command up in the dispatcher's vocabulary.
func (d *Dispatcher) Command(name string) (Command, error) {
	if err := d.loadTerms(); err != nil {
		return Command{}, err
	}
	return CommandFromTerminology(d.cfg.Terms, name)
}

func (d *Dispatcher) loadTerms() error {
	if l, ok := d.cfg.Terms.(loadable); ok {
		return l.Load()
	}
	return nil
}

// Dispatch sends cmd with target as its implicit subject and returns the
// reply's direct result. Every failure is a *CommandError.
func (d *Dispatcher) Dispatch(
	ctx context.Context, cmd Command, target *specifier.Node, params map[string]any,
) (any, error) {
	id := uuid.New()
	log := d.log.With().Str("dispatch_id", id.String()).Stringer("command", cmd).Logger()

	start := time.Now()
	result, err := d.dispatch(ctx, log, cmd, target, params)
	elapsed := time.Since(start)
	d.metrics.recordDispatch(cmd, err, elapsed)

	if err != nil {
		log.Debug().Err(err).Dur("elapsed", elapsed).Msg("Dispatch failed")
		return nil, &CommandError{Target: target, Command: cmd, Params: params, Cause: err}
	}
	log.Debug().Dur("elapsed", elapsed).Msg("Dispatch completed")
	return result, nil
}

func (d *Dispatcher) dispatch(
	ctx context.Context, log zerolog.Logger, cmd Command, target *specifier.Node, params map[string]any,
) (any, error) {
	if err := d.loadTerms(); err != nil {
		return nil, err
	}
	c, err := d.prepare(cmd, target, params)
	if err != nil {
		return nil, err
	}
	addr, err := d.addressFor(ctx)
	if err != nil {
		return nil, err
	}
	pkt, err := d.encode(cmd, c, addr)
	if err != nil {
		return nil, err
	}
	d.metrics.observeEnvelope(len(pkt.data))

	reply, err := d.send(ctx, pkt, addr, c)
	if err != nil && transport.IsProcessGone(err) && d.relaunchEligible(cmd) {
		log.Warn().Err(err).Msg("Target process gone, looking it up again")
		reply, err = d.relaunch(ctx, log, cmd, c, pkt, addr)
	}
	if err != nil {
		return nil, err
	}

	if !c.flags.WantsReply() || reply == nil {
		return nil, nil
	}
	return d.readReply(reply)
}

// prepare sorts params into sent parameters and call options and adds the
// implicit subject.
func (d *Dispatcher) prepare(cmd Command, target *specifier.Node, params map[string]any) (*call, error) {
	c := &call{
		flags:       d.cfg.SendFlags,
		timeout:     transport.Ticks(d.cfg.Timeout),
		considering: d.csig,
		returnID:    d.returnID.Add(1),
	}
	sent := make(map[uint32]bool, len(params)+1)
	add := func(code uint32, v any) {
		c.params = append(c.params, desc.Field{Key: code, Value: v})
		sent[code] = true
	}

	for _, key := range slices.Sorted(maps.Keys(params)) {
		v := params[key]
		if code, ok := cmd.Param(key); ok {
			add(code, v)
			continue
		}

		var err error
		switch key {
		case OptAsType:
			var kw desc.Keyword
			if kw, err = asTypeKeyword(v); err == nil {
				add(terminology.ParamResultType, kw)
			}
		case OptSendOptions:
			c.flags, err = parseSendOptions(v)
		case OptTimeout:
			c.timeout, err = parseTimeout(v)
		case OptIgnoring:
			var names []string
			if names, err = stringList(v); err == nil {
				c.considering, err = considerMask(names)
			}
		default:
			code, ok := fourcc.Parse(key)
			if !ok {
				return nil, fmt.Errorf("%w %q for %s", ErrUnknownParameter, key, cmd)
			}
			add(code, v)
		}
		if err != nil {
			return nil, err
		}
	}

	if target != nil && !target.IsTargetRoot() {
		implicit := terminology.ParamDirect
		if cmd.Class == terminology.ClassCore && cmd.ID == terminology.IDCreateElement {
			implicit = terminology.ParamInsertHere
		}
		if sent[implicit] {
			c.subject = target
		} else {
			add(implicit, target)
		}
	}
	return c, nil
}

func (d *Dispatcher) encode(cmd Command, c *call, addr []byte) (*packet, error) {
	subject := c.subject
	if subject == nil {
		subject = d.Root()
	}
	ev := envelope{
		class: cmd.Class,
		id:    cmd.ID,
		attrs: []attribute{
			{key: KeyReturnID, value: int(c.returnID)},
			{key: KeyAddress, raw: addr},
			{key: KeyOrigin, raw: d.origin},
			{key: KeyInteraction, value: int(c.flags.Interaction())},
			{key: KeyReplyWanted, value: c.flags.WantsReply()},
			{key: KeyTimeout, value: int(c.timeout)},
			{key: KeySubject, value: subject},
			{key: KeyConsidering, value: considering(c.considering)},
		},
		params: c.params,
	}
	return ev.encode(d.enc)
}

func (d *Dispatcher) send(ctx context.Context, pkt *packet, addr []byte, c *call) ([]byte, error) {
	h, err := pkt.w.Handle(d.transport)
	if err != nil {
		return nil, err
	}
	return d.transport.Send(ctx, h, addr, c.flags, c.timeout)
}

func (d *Dispatcher) relaunchEligible(cmd Command) bool {
	if !d.target.Relaunchable() {
		return false
	}
	switch d.cfg.Relaunch {
	case RelaunchAlways:
		return true
	case RelaunchLimited:
		return relaunchAllowed[[2]uint32{cmd.Class, cmd.ID}]
	default:
		return false
	}
}

// relaunch refreshes the target address and resends pkt once. The address
// is patched in place when its length is unchanged.
func (d *Dispatcher) relaunch(
	ctx context.Context, log zerolog.Logger, cmd Command, c *call, pkt *packet, stale []byte,
) ([]byte, error) {
	fresh, err := d.refreshAddress(ctx, stale)
	if err != nil {
		return nil, err
	}

	update := "patched"
	if pkt.addr >= 0 && len(fresh) == pkt.addrLen {
		copy(pkt.data[pkt.addr:], fresh)
	} else {
		update = "reencoded"
		if pkt, err = d.encode(cmd, c, fresh); err != nil {
			return nil, err
		}
	}
	d.metrics.recordRelaunch(update)
	log.Info().Str("update", update).Msg("Resending to relaunched target")

	return d.send(ctx, pkt, fresh, c)
}

// addressFor returns the cached target address, resolving it on first use.
func (d *Dispatcher) addressFor(ctx context.Context) ([]byte, error) {
	if p := d.address.Load(); p != nil {
		return *p, nil
	}
	addr, err := d.resolver.Resolve(ctx, d.target)
	if err != nil {
		return nil, err
	}
	if d.address.CompareAndSwap(nil, &addr) {
		return addr, nil
	}
	return *d.address.Load(), nil
}

// refreshAddress replaces stale in the cache. When another dispatch has
// already replaced it, that address is used without resolving again.
func (d *Dispatcher) refreshAddress(ctx context.Context, stale []byte) ([]byte, error) {
	if p := d.address.Load(); p != nil && !bytes.Equal(*p, stale) {
		return *p, nil
	}
	fresh, err := d.resolver.Resolve(ctx, d.target)
	if err != nil {
		return nil, err
	}
	for {
		cur := d.address.Load()
		if cur != nil && !bytes.Equal(*cur, stale) {
			return *cur, nil
		}
		if d.address.CompareAndSwap(cur, &fresh) {
			return fresh, nil
		}
	}
}

func (d *Dispatcher) readReply(data []byte) (any, error) {
	ev, err := ParseEvent(data)
	if err != nil {
		return nil, err
	}

	if raw, ok := ev.Param(terminology.ParamErrorNumber); ok {
		v, err := d.dec.Value(raw)
		if err != nil {
			return nil, err
		}
		n, ok := v.(int)
		if !ok {
			return nil, &desc.DecodeError{Offset: raw.Offset, Type: raw.Type, Reason: "error number is not an integer", Err: desc.ErrMalformed}
		}
		if n != 0 {
			return nil, d.applicationError(ev, n)
		}
	}

	raw, ok := ev.Param(terminology.ParamDirect)
	if !ok {
		return nil, nil
	}
	return d.dec.Value(raw)
}

func (d *Dispatcher) applicationError(ev *Event, n int) *ApplicationError {
	appErr := &ApplicationError{Number: n}
	optional := func(key uint32) any {
		raw, ok := ev.Param(key)
		if !ok {
			return nil
		}
		v, err := d.dec.Value(raw)
		if err != nil {
			d.log.Debug().Err(err).Str("param", fourcc.Quote(key)).Msg("Undecodable error detail")
			return nil
		}
		return v
	}
	appErr.Message, _ = optional(terminology.ParamErrorString).(string)
	appErr.ExpectedType = optional(terminology.ParamErrorType)
	appErr.OffendingObject = optional(terminology.ParamErrorObject)
	return appErr
}
