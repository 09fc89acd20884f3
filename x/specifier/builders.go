package specifier

import (
	"fmt"

	"github.com/compose-network/aebridge/x/desc"
	"github.com/compose-network/aebridge/x/fourcc"
)

func (n *Node) child(sh shape, form Form, from *link, want uint32, wantName string, seld any) *Node {
	return &Node{env: n.env, from: from, shape: sh, form: form, want: want, wantName: wantName, seld: seld}
}

// elementContainer is the container of a selector applied to n. Selecting
// out of an all-elements node replaces it, so the container is its parent;
// any other node contains the selection itself.
func (n *Node) elementContainer() *link {
	if n.shape == shapeAll {
		return n.from
	}
	return resolvedLink(n)
}

func (n *Node) propertyKeyword(name string) desc.Keyword {
	if code, ok := n.env.terms().PropertyByName(name); ok {
		return desc.Keyword{Type: desc.TypeType, Code: code, Name: name}
	}
	if code, ok := fourcc.ParseLiteral(name); ok {
		return desc.Keyword{Type: desc.TypeType, Code: code, Name: name}
	}
	return desc.Keyword{Type: desc.TypeType, Name: name}
}

func (n *Node) classCode(name string) (uint32, string) {
	terms := n.env.terms()
	if code, ok := terms.ElementByName(name); ok {
		return code, ""
	}
	if code, ok := terms.TypeByName(name); ok {
		return code, ""
	}
	if code, ok := fourcc.ParseLiteral(name); ok {
		return code, ""
	}
	return 0, name
}

// Property selects a property by name or code literal. Unknown names are
// kept and fail when the chain is encoded.
func (n *Node) Property(name string) (*Node, error) {
	if err := n.require(SelProperty); err != nil {
		return nil, err
	}
	return n.child(shapeSingle, FormProperty, resolvedLink(n), desc.TypeProperty, "", n.propertyKeyword(name)), nil
}

// UserProperty selects a script-defined property, always by name.
func (n *Node) UserProperty(name string) (*Node, error) {
	if err := n.require(SelUserProperty); err != nil {
		return nil, err
	}
	return n.child(shapeSingle, FormUserProperty, resolvedLink(n), desc.TypeProperty, "", name), nil
}

// Elements selects every element of a class.
func (n *Node) Elements(class string) (*Node, error) {
	if err := n.require(SelElements); err != nil {
		return nil, err
	}
	want, wantName := n.classCode(class)
	all := desc.CodeKeyword(desc.TypeAbsoluteOrdinal, desc.OrdinalAll)
	return n.child(shapeAll, FormAbsolutePosition, resolvedLink(n), want, wantName, all), nil
}

func (n *Node) First() (*Node, error)  { return n.ordinal(SelFirst, desc.OrdinalFirst) }
func (n *Node) Middle() (*Node, error) { return n.ordinal(SelMiddle, desc.OrdinalMiddle) }
func (n *Node) Last() (*Node, error)   { return n.ordinal(SelLast, desc.OrdinalLast) }
func (n *Node) Any() (*Node, error)    { return n.ordinal(SelAny, desc.OrdinalAny) }

func (n *Node) ordinal(sel string, code uint32) (*Node, error) {
	if err := n.require(sel); err != nil {
		return nil, err
	}
	return n.single(FormAbsolutePosition, desc.CodeKeyword(desc.TypeAbsoluteOrdinal, code)), nil
}

func (n *Node) single(form Form, seld any) *Node {
	return n.child(shapeSingle, form, n.elementContainer(), n.want, n.wantName, seld)
}

// At selects an element by index. Indexes are 1-based and negative ones
// count from the end.
func (n *Node) At(index any) (*Node, error) {
	if err := n.require(SelAt); err != nil {
		return nil, err
	}
	if index == nil {
		return nil, fmt.Errorf("%w: nil index", ErrMalformedChain)
	}
	return n.single(FormAbsolutePosition, index), nil
}

// Named selects an element by name.
func (n *Node) Named(name any) (*Node, error) {
	if err := n.require(SelNamed); err != nil {
		return nil, err
	}
	return n.single(FormName, name), nil
}

// ID selects an element by unique id.
func (n *Node) ID(id any) (*Node, error) {
	if err := n.require(SelID); err != nil {
		return nil, err
	}
	return n.single(FormUniqueID, id), nil
}

// Thru selects the elements from start to stop inclusive. Bounds that are
// not nodes are taken as indexes (or names, for strings) of elements of
// the same class relative to the container.
func (n *Node) Thru(start, stop any) (*Node, error) {
	if err := n.require(SelThru); err != nil {
		return nil, err
	}
	rng := desc.Range{Start: n.boundary(start), Stop: n.boundary(stop)}
	return n.child(shapeMulti, FormRange, n.elementContainer(), n.want, n.wantName, rng), nil
}

func (n *Node) boundary(v any) any {
	if node, ok := v.(*Node); ok {
		return node
	}
	form := FormAbsolutePosition
	if _, ok := v.(string); ok {
		form = FormName
	}
	ccnt := Container(n.env)
	return ccnt.child(shapeSingle, form, resolvedLink(ccnt), n.want, n.wantName, v)
}

// Where selects the elements passing test. The test must be relative to
// the examined object; a plain reference to a boolean property of it is
// accepted as the test "reference = true".
func (n *Node) Where(test *Node) (*Node, error) {
	if err := n.require(SelWhere); err != nil {
		return nil, err
	}
	t, err := asTest(test)
	if err != nil {
		return nil, err
	}
	return n.child(shapeMulti, FormTest, n.elementContainer(), n.want, n.wantName, t), nil
}

// Previous selects the object of class before n. An empty class keeps n's
// class. On an all-elements node the container stays the all-elements
// node itself.
func (n *Node) Previous(class string) (*Node, error) {
	return n.relative(SelPrevious, class, desc.RelativePrevious)
}

// Next selects the object of class after n.
func (n *Node) Next(class string) (*Node, error) {
	return n.relative(SelNext, class, desc.RelativeNext)
}

func (n *Node) relative(sel, class string, code uint32) (*Node, error) {
	if err := n.require(sel); err != nil {
		return nil, err
	}
	want, wantName := n.want, n.wantName
	if class != "" {
		want, wantName = n.classCode(class)
	}
	pos := desc.CodeKeyword(desc.TypeEnumerated, code)
	return n.child(shapeSingle, FormRelativePosition, resolvedLink(n), want, wantName, pos), nil
}

func (n *Node) Before() (*Node, error)    { return n.insertion(SelBefore, desc.PositionBefore) }
func (n *Node) After() (*Node, error)     { return n.insertion(SelAfter, desc.PositionAfter) }
func (n *Node) Beginning() (*Node, error) { return n.insertion(SelBeginning, desc.PositionBeginning) }
func (n *Node) End() (*Node, error)       { return n.insertion(SelEnd, desc.PositionEnd) }

func (n *Node) insertion(sel string, code uint32) (*Node, error) {
	if err := n.require(sel); err != nil {
		return nil, err
	}
	pos := desc.CodeKeyword(desc.TypeEnumerated, code)
	return n.child(shapeInsertion, FormInsertion, resolvedLink(n), 0, "", pos), nil
}
