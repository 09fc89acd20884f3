package specifier

import (
	"fmt"

	"github.com/compose-network/aebridge/x/desc"
	"github.com/compose-network/aebridge/x/fourcc"
)

// Pack returns the nested descriptor of the chain ending at n. It is
// computed once; decoded nodes return the bytes they were received as.
func (n *Node) Pack() ([]byte, error) {
	if n.cached != nil {
		return n.cached, nil
	}
	n.packed.once.Do(func() {
		w := desc.NewWriter(0)
		if err := n.encode(desc.NewEncoder(n.env.terms()), w); err != nil {
			n.packed.err = err
			return
		}
		n.packed.data = w.Bytes()
	})
	return n.packed.data, n.packed.err
}

// EncodeDesc lets chains be used as values anywhere the encoder accepts
// them.
func (n *Node) EncodeDesc(_ *desc.Encoder, w *desc.Writer) error {
	if n == nil {
		return desc.NewEncoder(nil).WriteValue(w, nil)
	}
	data, err := n.Pack()
	if err != nil {
		return err
	}
	w.WriteRaw(data)
	return nil
}

func (n *Node) encode(e *desc.Encoder, w *desc.Writer) error {
	switch s := n.seld.(type) {
	case rootSeld:
		return encodeRoot(e, w, s)
	case comparison:
		return e.WriteRecord(w, desc.TypeCompDescriptor, []desc.Field{
			{Key: desc.KeyCompOperator, Value: desc.CodeKeyword(desc.TypeEnumerated, s.op)},
			{Key: desc.KeyObject1, Value: s.left},
			{Key: desc.KeyObject2, Value: s.right},
		})
	case logical:
		terms := make([]any, len(s.terms))
		for i, t := range s.terms {
			terms[i] = t
		}
		return e.WriteRecord(w, desc.TypeLogicalDescriptor, []desc.Field{
			{Key: desc.KeyLogicalOperator, Value: desc.CodeKeyword(desc.TypeEnumerated, s.op)},
			{Key: desc.KeyLogicalTerms, Value: terms},
		})
	}

	parent, err := n.Parent()
	if err != nil {
		return err
	}

	switch n.form {
	case FormInsertion:
		return e.WriteRecord(w, desc.TypeInsertionLoc, []desc.Field{
			{Key: desc.KeyInsertObject, Value: parent},
			{Key: desc.KeyInsertPosition, Value: n.seld},
		})
	case FormCommand:
		return encodeErr(n, desc.ErrUnsupportedValue, "a command is not a reference")
	}

	want, err := n.wantCode()
	if err != nil {
		return err
	}
	seld := n.seld
	if n.form == FormProperty {
		if seld, err = n.propertyCode(); err != nil {
			return err
		}
	}
	return e.WriteRecord(w, desc.TypeObjectSpecifier, []desc.Field{
		{Key: desc.KeyDesiredClass, Value: desc.CodeKeyword(desc.TypeType, want)},
		{Key: desc.KeyKeyForm, Value: desc.CodeKeyword(desc.TypeEnumerated, formCodes[n.form])},
		{Key: desc.KeyKeyData, Value: seld},
		{Key: desc.KeyContainer, Value: parent},
	})
}

func encodeRoot(e *desc.Encoder, w *desc.Writer, s rootSeld) error {
	var typ uint32
	switch s.kind {
	case RootTarget:
		typ = desc.TypeNull
	case RootContainer:
		typ = desc.TypeCurrentContainer
	case RootExamined:
		typ = desc.TypeObjectBeingExamined
	default:
		return e.WriteValue(w, s.value)
	}
	w.WriteUint32(typ)
	w.WriteUint32(0)
	return nil
}

func (n *Node) wantCode() (uint32, error) {
	if n.wantName == "" {
		return n.want, nil
	}
	if code, _ := n.classCode(n.wantName); code != 0 {
		return code, nil
	}
	return 0, encodeErr(n, desc.ErrUnresolvedName, "unknown class %q", n.wantName)
}

func (n *Node) propertyCode() (desc.Keyword, error) {
	kw, ok := n.seld.(desc.Keyword)
	if !ok {
		return desc.Keyword{}, encodeErr(n, desc.ErrUnsupportedValue, "property selector is %T", n.seld)
	}
	if kw.Code != 0 {
		return kw, nil
	}
	if code, ok := n.env.terms().PropertyByName(kw.Name); ok {
		return desc.Keyword{Type: desc.TypeType, Code: code, Name: kw.Name}, nil
	}
	if code, ok := fourcc.ParseLiteral(kw.Name); ok {
		return desc.Keyword{Type: desc.TypeType, Code: code, Name: kw.Name}, nil
	}
	return desc.Keyword{}, encodeErr(n, desc.ErrUnresolvedName, "unknown property %q", kw.Name)
}

func encodeErr(n *Node, err error, reason string, args ...any) error {
	return &desc.EncodeError{Value: n, Reason: fmt.Sprintf(reason, args...), Err: err}
}
