package specifier

import (
	"reflect"

	"github.com/compose-network/aebridge/x/desc"
)

// Equal reports whether a and b describe the same chain. Deferred
// containers are decoded as the comparison reaches them.
func Equal(a, b *Node) bool {
	for {
		if a == b {
			return true
		}
		if a == nil || b == nil {
			return false
		}
		if a.shape != b.shape || a.form != b.form || !sameClass(a, b) || !equalValues(a.seld, b.seld) {
			return false
		}
		if (a.call == nil) != (b.call == nil) {
			return false
		}
		if a.call != nil && (a.call.Class != b.call.Class || a.call.ID != b.call.ID) {
			return false
		}

		pa, err := a.Parent()
		if err != nil {
			return false
		}
		pb, err := b.Parent()
		if err != nil {
			return false
		}
		a, b = pa, pb
	}
}

func sameClass(a, b *Node) bool {
	ca, errA := a.wantCode()
	cb, errB := b.wantCode()
	if errA != nil || errB != nil {
		return a.wantName == b.wantName
	}
	return ca == cb
}

func equalValues(x, y any) bool {
	switch xv := x.(type) {
	case *Node:
		yv, ok := y.(*Node)
		return ok && Equal(xv, yv)
	case desc.Keyword:
		yv, ok := y.(desc.Keyword)
		if !ok || xv.Type != yv.Type {
			return false
		}
		if xv.Code == 0 || yv.Code == 0 {
			return xv.Code == yv.Code && xv.Name == yv.Name
		}
		return xv.Code == yv.Code
	case desc.Range:
		yv, ok := y.(desc.Range)
		return ok && equalValues(xv.Start, yv.Start) && equalValues(xv.Stop, yv.Stop)
	case rootSeld:
		yv, ok := y.(rootSeld)
		return ok && xv.kind == yv.kind && equalValues(xv.value, yv.value)
	case comparison:
		yv, ok := y.(comparison)
		return ok && xv.op == yv.op && equalValues(xv.left, yv.left) && equalValues(xv.right, yv.right)
	case logical:
		yv, ok := y.(logical)
		if !ok || xv.op != yv.op || len(xv.terms) != len(yv.terms) {
			return false
		}
		for i := range xv.terms {
			if !Equal(xv.terms[i], yv.terms[i]) {
				return false
			}
		}
		return true
	case []any:
		yv, ok := y.([]any)
		if !ok || len(xv) != len(yv) {
			return false
		}
		for i := range xv {
			if !equalValues(xv[i], yv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		yv, ok := y.(map[string]any)
		if !ok || len(xv) != len(yv) {
			return false
		}
		for k, v := range xv {
			w, ok := yv[k]
			if !ok || !equalValues(v, w) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(x, y)
	}
}
