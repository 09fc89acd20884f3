package specifier

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a selector, property, element or command the node
	// does not offer.
	ErrNotFound = errors.New("specifier: not found")
	// ErrNotExamined reports a test whose operand is not rooted at the
	// examined object.
	ErrNotExamined = errors.New("specifier: test must be relative to the examined object")

	ErrMalformedChain = errors.New("specifier: malformed chain")
	ErrNoInvoker      = errors.New("specifier: chain has no invoker")
)

func notFound(n *Node, what string) error {
	return fmt.Errorf("%w: %s on %s", ErrNotFound, what, n.shape)
}
