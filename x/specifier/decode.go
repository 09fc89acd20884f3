package specifier

import (
	"fmt"

	"github.com/compose-network/aebridge/x/desc"
)

var formsByCode = func() map[uint32]Form {
	m := make(map[uint32]Form, len(formCodes))
	for form, code := range formCodes {
		m[code] = form
	}
	return m
}()

// DecoderOptions returns the decoder options that rebuild object
// references, insertion locations, tests and roots as nodes in env.
func DecoderOptions(env *Env) []desc.DecoderOption {
	x := extensions{env: env}
	return []desc.DecoderOption{
		desc.WithTerminology(env.terms()),
		desc.WithExtension(desc.TypeObjectSpecifier, x.objectSpecifier),
		desc.WithExtension(desc.TypeInsertionLoc, x.insertionLoc),
		desc.WithExtension(desc.TypeCompDescriptor, x.comparison),
		desc.WithExtension(desc.TypeLogicalDescriptor, x.logical),
		desc.WithExtension(desc.TypeNull, x.root(RootTarget)),
		desc.WithExtension(desc.TypeCurrentContainer, x.root(RootContainer)),
		desc.WithExtension(desc.TypeObjectBeingExamined, x.root(RootExamined)),
	}
}

// NewDecoder returns a decoder that rebuilds chains in env.
func NewDecoder(env *Env, opts ...desc.DecoderOption) *desc.Decoder {
	return desc.NewDecoder(append(DecoderOptions(env), opts...)...)
}

type extensions struct {
	env *Env
}

func malformed(raw desc.Raw, reason string, args ...any) error {
	return &desc.DecodeError{Offset: raw.Offset, Type: raw.Type, Reason: fmt.Sprintf(reason, args...), Err: desc.ErrMalformed}
}

func asContainer(env *Env, v any) *Node {
	switch c := v.(type) {
	case *Node:
		return c
	case nil:
		return Target(env)
	default:
		return CustomRoot(env, c)
	}
}

func (x extensions) root(kind RootKind) desc.Extension {
	return func(_ *desc.Decoder, raw desc.Raw) (any, error) {
		if len(raw.Payload) != 0 {
			return nil, malformed(raw, "root descriptor has a payload")
		}
		return NewRoot(kind, x.env), nil
	}
}

// fields scans a record and returns the items for keys, all required.
func fields(raw desc.Raw, keys ...uint32) ([]desc.Raw, error) {
	all, err := desc.RecordFields(raw)
	if err != nil {
		return nil, err
	}
	out := make([]desc.Raw, len(keys))
	for i, key := range keys {
		f, ok := desc.Lookup(all, key)
		if !ok {
			return nil, malformed(raw, "missing field %s", desc.CodeKeyword(0, key))
		}
		out[i] = f
	}
	return out, nil
}

func keywordField(d *desc.Decoder, raw desc.Raw) (desc.Keyword, error) {
	v, err := d.Value(raw)
	if err != nil {
		return desc.Keyword{}, err
	}
	kw, ok := v.(desc.Keyword)
	if !ok {
		return desc.Keyword{}, malformed(raw, "expected a keyword, got %T", v)
	}
	return kw, nil
}

func (x extensions) objectSpecifier(d *desc.Decoder, raw desc.Raw) (any, error) {
	f, err := fields(raw, desc.KeyDesiredClass, desc.KeyKeyForm, desc.KeyKeyData, desc.KeyContainer)
	if err != nil {
		return nil, err
	}
	want, err := keywordField(d, f[0])
	if err != nil {
		return nil, err
	}
	formKw, err := keywordField(d, f[1])
	if err != nil {
		return nil, err
	}
	form, ok := formsByCode[formKw.Code]
	if !ok {
		return nil, malformed(raw, "unknown key form %s", formKw)
	}
	seld, err := d.Value(f[2])
	if err != nil {
		return nil, err
	}

	var from *link
	if d.Deferred() {
		from = deferredLink(x.env, d, f[3])
	} else {
		v, err := d.Value(f[3])
		if err != nil {
			return nil, err
		}
		from = resolvedLink(asContainer(x.env, v))
	}

	sh := shapeSingle
	switch form {
	case FormAbsolutePosition:
		if kw, ok := seld.(desc.Keyword); ok && kw.Code == desc.OrdinalAll {
			sh = shapeAll
		}
	case FormRange, FormTest:
		sh = shapeMulti
	case FormProperty:
		if _, ok := seld.(desc.Keyword); !ok {
			return nil, malformed(raw, "property selector is %T", seld)
		}
	}

	return &Node{
		env:    x.env,
		from:   from,
		shape:  sh,
		form:   form,
		want:   want.Code,
		seld:   seld,
		cached: raw.Bytes,
	}, nil
}

func (x extensions) insertionLoc(d *desc.Decoder, raw desc.Raw) (any, error) {
	f, err := fields(raw, desc.KeyInsertObject, desc.KeyInsertPosition)
	if err != nil {
		return nil, err
	}
	obj, err := d.Value(f[0])
	if err != nil {
		return nil, err
	}
	pos, err := keywordField(d, f[1])
	if err != nil {
		return nil, err
	}
	return &Node{
		env:    x.env,
		from:   resolvedLink(asContainer(x.env, obj)),
		shape:  shapeInsertion,
		form:   FormInsertion,
		seld:   pos,
		cached: raw.Bytes,
	}, nil
}

func (x extensions) comparison(d *desc.Decoder, raw desc.Raw) (any, error) {
	f, err := fields(raw, desc.KeyCompOperator, desc.KeyObject1, desc.KeyObject2)
	if err != nil {
		return nil, err
	}
	op, err := keywordField(d, f[0])
	if err != nil {
		return nil, err
	}
	left, err := d.Value(f[1])
	if err != nil {
		return nil, err
	}
	right, err := d.Value(f[2])
	if err != nil {
		return nil, err
	}
	return &Node{
		env:    x.env,
		shape:  shapeTest,
		form:   FormComparison,
		seld:   comparison{op: op.Code, left: left, right: right},
		cached: raw.Bytes,
	}, nil
}

func (x extensions) logical(d *desc.Decoder, raw desc.Raw) (any, error) {
	f, err := fields(raw, desc.KeyLogicalOperator, desc.KeyLogicalTerms)
	if err != nil {
		return nil, err
	}
	op, err := keywordField(d, f[0])
	if err != nil {
		return nil, err
	}
	v, err := d.Value(f[1])
	if err != nil {
		return nil, err
	}
	items, ok := v.([]any)
	if !ok {
		return nil, malformed(raw, "logical terms are %T", v)
	}
	terms := make([]*Node, len(items))
	for i, item := range items {
		t, ok := item.(*Node)
		if !ok || t.shape != shapeTest {
			return nil, malformed(raw, "logical term %d is not a test", i)
		}
		terms[i] = t
	}
	return &Node{
		env:    x.env,
		shape:  shapeTest,
		form:   FormLogical,
		seld:   logical{op: op.Code, terms: terms},
		cached: raw.Bytes,
	}, nil
}
