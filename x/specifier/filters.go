package specifier

import (
	"fmt"

	"github.com/compose-network/aebridge/x/desc"
)

func (n *Node) compare(sel string, op uint32, left, right any) (*Node, error) {
	if err := n.require(sel); err != nil {
		return nil, err
	}
	return &Node{env: n.env, shape: shapeTest, form: FormComparison, seld: comparison{op: op, left: left, right: right}}, nil
}

func (n *Node) LessThan(v any) (*Node, error) {
	return n.compare(SelLessThan, desc.OperatorLessThan, n, v)
}

func (n *Node) LessOrEqual(v any) (*Node, error) {
	return n.compare(SelLessOrEqual, desc.OperatorLessOrEqual, n, v)
}

func (n *Node) Equal(v any) (*Node, error) {
	return n.compare(SelEqual, desc.OperatorEqual, n, v)
}

// NotEqual has no operator of its own and is sent as NOT (n = v).
func (n *Node) NotEqual(v any) (*Node, error) {
	if err := n.require(SelNotEqual); err != nil {
		return nil, err
	}
	eq, err := n.compare(SelEqual, desc.OperatorEqual, n, v)
	if err != nil {
		return nil, err
	}
	return newLogical(n.env, desc.LogicalNot, []*Node{eq}), nil
}

func (n *Node) GreaterThan(v any) (*Node, error) {
	return n.compare(SelGreaterThan, desc.OperatorGreaterThan, n, v)
}

func (n *Node) GreaterOrEqual(v any) (*Node, error) {
	return n.compare(SelGreaterOrEqual, desc.OperatorGreaterOrEqual, n, v)
}

func (n *Node) BeginsWith(v any) (*Node, error) {
	return n.compare(SelBeginsWith, desc.OperatorBeginsWith, n, v)
}

func (n *Node) EndsWith(v any) (*Node, error) {
	return n.compare(SelEndsWith, desc.OperatorEndsWith, n, v)
}

func (n *Node) Contains(v any) (*Node, error) {
	return n.compare(SelContains, desc.OperatorContains, n, v)
}

// IsIn is sent as "v contains n".
func (n *Node) IsIn(v any) (*Node, error) {
	return n.compare(SelIsIn, desc.OperatorContains, v, n)
}

func (n *Node) And(others ...*Node) (*Node, error) {
	return n.combine(SelAnd, desc.LogicalAnd, others)
}

func (n *Node) Or(others ...*Node) (*Node, error) {
	return n.combine(SelOr, desc.LogicalOr, others)
}

func (n *Node) Not() (*Node, error) {
	if err := n.require(SelNot); err != nil {
		return nil, err
	}
	return newLogical(n.env, desc.LogicalNot, []*Node{n}), nil
}

func (n *Node) combine(sel string, op uint32, others []*Node) (*Node, error) {
	if err := n.require(sel); err != nil {
		return nil, err
	}
	if len(others) == 0 {
		return nil, fmt.Errorf("%w: %s needs at least two tests", ErrMalformedChain, sel)
	}
	terms := make([]*Node, 0, len(others)+1)
	terms = append(terms, n)
	for _, t := range others {
		test, err := asTest(t)
		if err != nil {
			return nil, err
		}
		terms = append(terms, test)
	}
	return newLogical(n.env, op, terms), nil
}

func newLogical(env *Env, op uint32, terms []*Node) *Node {
	return &Node{env: env, shape: shapeTest, form: FormLogical, seld: logical{op: op, terms: terms}}
}

// asTest checks that t can filter elements: a test whose operands refer to
// the examined object, or such a reference on its own.
func asTest(t *Node) (*Node, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil test", ErrMalformedChain)
	}
	switch {
	case t.shape == shapeTest:
		if !t.relativeToExamined() {
			return nil, fmt.Errorf("%w: %s", ErrNotExamined, t)
		}
		return t, nil
	case t.isReference() && t.rootedAt(RootExamined):
		return t.Equal(true)
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotExamined, t)
	}
}

func (n *Node) relativeToExamined() bool {
	switch s := n.seld.(type) {
	case comparison:
		for _, operand := range []any{s.left, s.right} {
			if node, ok := operand.(*Node); ok && node.isReference() && node.rootedAt(RootExamined) {
				return true
			}
		}
		return false
	case logical:
		for _, t := range s.terms {
			if !t.relativeToExamined() {
				return false
			}
		}
		return len(s.terms) > 0
	default:
		return false
	}
}
