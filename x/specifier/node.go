// Package specifier models object references (query chains) into a remote
// application's object model. Nodes are immutable: every builder returns a
// new node and leaves its receiver untouched, and a node's encoding is
// computed at most once.
package specifier

import (
	"fmt"
	"strings"
	"sync"

	"github.com/compose-network/aebridge/x/desc"
	"github.com/compose-network/aebridge/x/fourcc"
	"github.com/compose-network/aebridge/x/terminology"
)

// Form says how a node selects its object.
type Form int

const (
	FormRoot Form = iota
	FormProperty
	FormUserProperty
	FormAbsolutePosition
	FormRelativePosition
	FormName
	FormUniqueID
	FormRange
	FormTest
	FormInsertion
	FormComparison
	FormLogical
	FormCommand
)

var formNames = [...]string{
	FormRoot:             "root",
	FormProperty:         "property",
	FormUserProperty:     "user property",
	FormAbsolutePosition: "absolute position",
	FormRelativePosition: "relative position",
	FormName:             "name",
	FormUniqueID:         "unique id",
	FormRange:            "range",
	FormTest:             "test",
	FormInsertion:        "insertion",
	FormComparison:       "comparison",
	FormLogical:          "logical",
	FormCommand:          "command",
}

func (f Form) String() string {
	if int(f) < len(formNames) {
		return formNames[f]
	}
	return fmt.Sprintf("form(%d)", int(f))
}

// wire key-form codes of the object reference forms.
var formCodes = map[Form]uint32{
	FormProperty:         desc.FormProperty,
	FormUserProperty:     desc.FormUserProperty,
	FormAbsolutePosition: desc.FormAbsolutePosition,
	FormRelativePosition: desc.FormRelativePosition,
	FormName:             desc.FormName,
	FormUniqueID:         desc.FormUniqueID,
	FormRange:            desc.FormRange,
	FormTest:             desc.FormTest,
}

// RootKind distinguishes the chain terminators.
type RootKind int

const (
	RootTarget RootKind = iota
	RootContainer
	RootExamined
	RootCustom
)

// shape selects the capability table of a node.
type shape int

const (
	shapeRoot shape = iota
	shapeSingle
	shapeAll
	shapeMulti
	shapeInsertion
	shapeTest
	shapeCommand
)

var shapeNames = [...]string{
	shapeRoot:      "root",
	shapeSingle:    "single object",
	shapeAll:       "all elements",
	shapeMulti:     "multiple elements",
	shapeInsertion: "insertion location",
	shapeTest:      "test",
	shapeCommand:   "command",
}

func (s shape) String() string {
	return shapeNames[s]
}

type rootSeld struct {
	kind  RootKind
	value any
}

type comparison struct {
	op          uint32
	left, right any
}

type logical struct {
	op    uint32
	terms []*Node
}

type memo struct {
	once sync.Once
	data []byte
	err  error
}

// Node is one link of a query chain.
type Node struct {
	env   *Env
	from  *link
	shape shape
	form  Form

	// want is the class code; wantName holds the name until it resolves.
	want     uint32
	wantName string

	seld any
	call *terminology.Command

	// cached holds the received bytes of a decoded node.
	cached []byte
	packed memo
}

// Form returns how the node selects its object.
func (n *Node) Form() Form {
	return n.form
}

// Want returns the class code, or 0 when it is still a name.
func (n *Node) Want() uint32 {
	return n.want
}

// Selector returns the raw selection data: an index, name, id, keyword,
// desc.Range, or a test node.
func (n *Node) Selector() any {
	switch s := n.seld.(type) {
	case rootSeld:
		return s.value
	case comparison, logical:
		return nil
	default:
		return s
	}
}

// Call returns the command a command node invokes.
func (n *Node) Call() (terminology.Command, bool) {
	if n.call == nil {
		return terminology.Command{}, false
	}
	return *n.call, true
}

// Env returns the environment shared by the chain.
func (n *Node) Env() *Env {
	return n.env
}

// Parent returns the container node, decoding it first if it was deferred.
// Roots have no parent.
func (n *Node) Parent() (*Node, error) {
	if n.from == nil {
		return nil, nil
	}
	return n.from.get()
}

// IsRoot reports whether n terminates a chain.
func (n *Node) IsRoot() bool {
	return n.form == FormRoot
}

// RootKind returns the kind of a root node.
func (n *Node) RootKind() (RootKind, bool) {
	s, ok := n.seld.(rootSeld)
	return s.kind, ok
}

// IsTargetRoot reports whether n is the bare application root.
func (n *Node) IsTargetRoot() bool {
	k, ok := n.RootKind()
	return ok && k == RootTarget
}

// Root walks to the node that terminates the chain.
func (n *Node) Root() (*Node, error) {
	cur := n
	for !cur.IsRoot() {
		next, err := cur.Parent()
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, fmt.Errorf("%w: chain has no root", ErrMalformedChain)
		}
		cur = next
	}
	return cur, nil
}

func (n *Node) String() string {
	var b strings.Builder
	n.describe(&b, 0)
	return b.String()
}

const maxDescribeDepth = 32

func (n *Node) describe(b *strings.Builder, depth int) {
	if depth > maxDescribeDepth {
		b.WriteString("...")
		return
	}
	switch s := n.seld.(type) {
	case rootSeld:
		switch s.kind {
		case RootTarget:
			b.WriteString("application")
		case RootContainer:
			b.WriteString("container")
		case RootExamined:
			b.WriteString("it")
		default:
			fmt.Fprintf(b, "root %v", s.value)
		}
		return
	case comparison:
		describeValue(b, s.left, depth)
		fmt.Fprintf(b, " %s ", strings.TrimSpace(fourcc.String(s.op)))
		describeValue(b, s.right, depth)
		return
	case logical:
		b.WriteString(strings.TrimSpace(fourcc.String(s.op)))
		b.WriteString(" (")
		for i, t := range s.terms {
			if i > 0 {
				b.WriteString(", ")
			}
			t.describe(b, depth+1)
		}
		b.WriteString(")")
		return
	}

	switch n.form {
	case FormCommand:
		b.WriteString(n.call.String())
	case FormProperty, FormUserProperty:
		fmt.Fprintf(b, "%s %v", n.form, n.seld)
	case FormInsertion:
		fmt.Fprintf(b, "%v", n.seld)
	default:
		fmt.Fprintf(b, "%s by %s %v", n.className(), n.form, n.seld)
	}

	parent, err := n.Parent()
	switch {
	case err != nil:
		b.WriteString(" of <unreadable>")
	case parent != nil:
		b.WriteString(" of ")
		parent.describe(b, depth+1)
	}
}

func describeValue(b *strings.Builder, v any, depth int) {
	if node, ok := v.(*Node); ok {
		node.describe(b, depth+1)
		return
	}
	fmt.Fprintf(b, "%#v", v)
}

func (n *Node) className() string {
	if n.wantName != "" {
		return n.wantName
	}
	if name, ok := n.env.terms().ElementByCode(n.want); ok {
		return name
	}
	return fourcc.Quote(n.want)
}
