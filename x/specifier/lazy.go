package specifier

import (
	"sync"
	"sync/atomic"

	"github.com/compose-network/aebridge/x/desc"
)

// link is a node's container. It is either resolved (node set) or
// unresolved (decoder and raw bytes set); an unresolved link decodes exactly
// once, on first access, and then drops the bytes.
type link struct {
	once sync.Once
	done atomic.Bool
	env  *Env
	dec  *desc.Decoder
	raw  desc.Raw
	node *Node
	err  error
}

func resolvedLink(n *Node) *link {
	l := &link{node: n}
	l.done.Store(true)
	return l
}

func deferredLink(env *Env, dec *desc.Decoder, raw desc.Raw) *link {
	return &link{env: env, dec: dec, raw: raw}
}

func (l *link) get() (*Node, error) {
	l.once.Do(func() {
		if l.dec == nil {
			return
		}
		v, err := l.dec.Value(l.raw)
		if err == nil {
			l.node = asContainer(l.env, v)
		}
		l.err = err
		l.env, l.dec, l.raw = nil, nil, desc.Raw{}
		l.done.Store(true)
	})
	return l.node, l.err
}

func (l *link) resolved() bool {
	return l.done.Load()
}
