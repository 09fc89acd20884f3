package specifier

import (
	"context"

	"github.com/compose-network/aebridge/x/terminology"
)

// Invoker sends a command to the application a chain belongs to.
type Invoker interface {
	Dispatch(ctx context.Context, cmd terminology.Command, target *Node, params map[string]any) (any, error)
}

// Env is shared by every node of a chain: the vocabulary used to resolve
// names and the invoker commands go through.
type Env struct {
	Terms   terminology.Terms
	Invoker Invoker
}

// NewEnv returns an environment. A nil terms uses the core vocabulary.
func NewEnv(terms terminology.Terms, invoker Invoker) *Env {
	return &Env{Terms: terms, Invoker: invoker}
}

func (e *Env) terms() terminology.Terms {
	if e == nil || e.Terms == nil {
		return terminology.Default()
	}
	return e.Terms
}

// NewRoot returns a chain terminator of the given kind.
func NewRoot(kind RootKind, env *Env) *Node {
	return &Node{env: env, shape: shapeRoot, form: FormRoot, seld: rootSeld{kind: kind}}
}

// Target is the root addressing the application itself.
func Target(env *Env) *Node {
	return NewRoot(RootTarget, env)
}

// Container is the root range bounds are relative to.
func Container(env *Env) *Node {
	return NewRoot(RootContainer, env)
}

// Examined is the root tests are relative to: the object being examined.
func Examined(env *Env) *Node {
	return NewRoot(RootExamined, env)
}

// CustomRoot terminates a chain with an arbitrary value, encoded as is.
func CustomRoot(env *Env, value any) *Node {
	return &Node{env: env, shape: shapeRoot, form: FormRoot, seld: rootSeld{kind: RootCustom, value: value}}
}
