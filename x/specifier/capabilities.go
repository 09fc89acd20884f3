package specifier

import (
	"maps"
	"slices"
)

// Selector names, as accepted by Capabilities and ResolveMember.
const (
	SelProperty     = "property"
	SelUserProperty = "userProperty"
	SelElements     = "elements"
	SelFirst        = "first"
	SelMiddle       = "middle"
	SelLast         = "last"
	SelAny          = "any"
	SelAt           = "at"
	SelNamed        = "named"
	SelID           = "id"
	SelThru         = "thru"
	SelWhere        = "where"
	SelPrevious     = "previous"
	SelNext         = "next"
	SelBefore       = "before"
	SelAfter        = "after"
	SelBeginning    = "beginning"
	SelEnd          = "end"
	SelCommand      = "command"

	SelLessThan       = "lessThan"
	SelLessOrEqual    = "lessOrEqual"
	SelEqual          = "equal"
	SelNotEqual       = "notEqual"
	SelGreaterThan    = "greaterThan"
	SelGreaterOrEqual = "greaterOrEqual"
	SelBeginsWith     = "beginsWith"
	SelEndsWith       = "endsWith"
	SelContains       = "contains"
	SelIsIn           = "isIn"

	SelAnd = "and"
	SelOr  = "or"
	SelNot = "not"
)

type selectorSet map[string]struct{}

func setOf(names ...string) selectorSet {
	s := make(selectorSet, len(names))
	for _, name := range names {
		s[name] = struct{}{}
	}
	return s
}

// capabilities lists the legal next operations per node shape.
var capabilities = map[shape]selectorSet{
	shapeRoot: setOf(
		SelProperty, SelUserProperty, SelElements, SelCommand,
	),
	shapeSingle: setOf(
		SelProperty, SelUserProperty, SelElements, SelCommand,
		SelPrevious, SelNext, SelBefore, SelAfter, SelBeginning, SelEnd,
	),
	shapeAll: setOf(
		SelProperty, SelUserProperty, SelElements, SelCommand,
		SelFirst, SelMiddle, SelLast, SelAny, SelAt, SelNamed, SelID, SelThru, SelWhere,
		SelPrevious, SelNext, SelBeginning, SelEnd,
	),
	shapeMulti: setOf(
		SelProperty, SelUserProperty, SelElements, SelCommand,
		SelFirst, SelMiddle, SelLast, SelAny, SelAt, SelNamed, SelID, SelThru, SelWhere,
	),
	shapeInsertion: setOf(SelCommand),
	shapeTest:      setOf(SelAnd, SelOr, SelNot),
	shapeCommand:   setOf(),
}

// comparisons become available on references relative to the examined
// object.
var comparisons = setOf(
	SelLessThan, SelLessOrEqual, SelEqual, SelNotEqual, SelGreaterThan, SelGreaterOrEqual,
	SelBeginsWith, SelEndsWith, SelContains, SelIsIn,
)

// Can reports whether sel is a legal next operation on n.
func (n *Node) Can(sel string) bool {
	if _, ok := capabilities[n.shape][sel]; ok {
		return true
	}
	if _, ok := comparisons[sel]; ok {
		return n.isReference() && n.rootedAt(RootExamined)
	}
	return false
}

// Capabilities lists the legal next operations on n.
func (n *Node) Capabilities() []string {
	out := slices.Collect(maps.Keys(capabilities[n.shape]))
	if n.isReference() && n.rootedAt(RootExamined) {
		out = append(out, slices.Collect(maps.Keys(comparisons))...)
	}
	slices.Sort(out)
	return out
}

func (n *Node) require(sel string) error {
	if !n.Can(sel) {
		return notFound(n, sel)
	}
	return nil
}

func (n *Node) isReference() bool {
	switch n.shape {
	case shapeRoot, shapeSingle, shapeAll, shapeMulti:
		return true
	default:
		return false
	}
}

func (n *Node) rootedAt(kind RootKind) bool {
	root, err := n.Root()
	if err != nil {
		return false
	}
	k, _ := root.RootKind()
	return k == kind
}
