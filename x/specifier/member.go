package specifier

import (
	"context"
	"fmt"

	"github.com/compose-network/aebridge/x/terminology"
)

// Command returns a node that invokes the named command with n as target.
func (n *Node) Command(name string) (*Node, error) {
	if err := n.require(SelCommand); err != nil {
		return nil, err
	}
	cmd, ok := n.env.terms().CommandByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: command %q", ErrNotFound, name)
	}
	return n.WithCommand(cmd)
}

// WithCommand is Command for a definition that is not in the vocabulary.
func (n *Node) WithCommand(cmd terminology.Command) (*Node, error) {
	if err := n.require(SelCommand); err != nil {
		return nil, err
	}
	return &Node{env: n.env, from: resolvedLink(n), shape: shapeCommand, form: FormCommand, call: &cmd}, nil
}

// ResolveMember looks name up the way a script would: a selector taking
// no arguments first, then a property, an element class, and finally a
// command.
func (n *Node) ResolveMember(name string) (*Node, error) {
	if n.Can(name) {
		switch name {
		case SelFirst:
			return n.First()
		case SelMiddle:
			return n.Middle()
		case SelLast:
			return n.Last()
		case SelAny:
			return n.Any()
		case SelPrevious:
			return n.Previous("")
		case SelNext:
			return n.Next("")
		case SelBefore:
			return n.Before()
		case SelAfter:
			return n.After()
		case SelBeginning:
			return n.Beginning()
		case SelEnd:
			return n.End()
		}
	}

	terms := n.env.terms()
	if _, ok := terms.PropertyByName(name); ok && n.Can(SelProperty) {
		return n.Property(name)
	}
	if _, ok := terms.ElementByName(name); ok && n.Can(SelElements) {
		return n.Elements(name)
	}
	if _, ok := terms.CommandByName(name); ok && n.Can(SelCommand) {
		return n.Command(name)
	}
	return nil, notFound(n, name)
}

// Invoke sends the node's command with its parent as target. Any other
// reference is fetched with get.
func (n *Node) Invoke(ctx context.Context, params map[string]any) (any, error) {
	if n.env == nil || n.env.Invoker == nil {
		return nil, ErrNoInvoker
	}
	if n.call == nil {
		cmd, ok := n.env.terms().CommandByName(terminology.GetCommand.Name)
		if !ok {
			cmd = terminology.GetCommand
		}
		return n.env.Invoker.Dispatch(ctx, cmd, n, params)
	}
	target, err := n.Parent()
	if err != nil {
		return nil, err
	}
	return n.env.Invoker.Dispatch(ctx, *n.call, target, params)
}
