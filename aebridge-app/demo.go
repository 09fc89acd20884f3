package main

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/compose-network/aebridge/x/desc"
	"github.com/compose-network/aebridge/x/dispatch"
	"github.com/compose-network/aebridge/x/fourcc"
	"github.com/compose-network/aebridge/x/specifier"
	"github.com/compose-network/aebridge/x/terminology"
)

// Error numbers the demo application answers with.
const (
	errNoSuchObject = -1728
	errAccessDenied = -10003
	errWrongClass   = -1700
)

var (
	propName     = fourcc.Make("pnam")
	propVersion  = fourcc.Make("vers")
	propFront    = fourcc.Make("pisf")
	propContents = fourcc.Make("pcnt")
	propID       = fourcc.Make("ID  ")
	propIndex    = fourcc.Make("pidx")
	classDoc     = fourcc.Make("docu")
)

type demoDoc struct {
	id       int
	name     string
	contents string
}

// demoApp is the application the in-process responder plays: a named
// application holding documents.
type demoApp struct {
	name string
	quit func()

	mu     sync.Mutex
	docs   []*demoDoc
	nextID int
}

func newDemoApp(name string, quit func()) *demoApp {
	a := &demoApp{name: name, quit: quit, nextID: 1}
	a.add("Untitled", "")
	return a
}

func (a *demoApp) add(name, contents string) *demoDoc {
	doc := &demoDoc{id: a.nextID, name: name, contents: contents}
	a.nextID++
	a.docs = append(a.docs, doc)
	return doc
}

// register routes the core commands of terms to the demo.
func (a *demoApp) register(r *dispatch.Responder, terms terminology.Terms) error {
	noop := func(context.Context, *dispatch.Request) (any, error) { return nil, nil }
	handlers := map[string]dispatch.HandlerFunc{
		"get":      a.get,
		"set":      a.set,
		"count":    a.count,
		"make":     a.make,
		"delete":   a.delete,
		"exists":   a.exists,
		"quit":     a.handleQuit,
		"activate": noop,
		"launch":   noop,
		"run":      noop,
		"reopen":   noop,
	}
	for name, fn := range handlers {
		cmd, err := dispatch.CommandFromTerminology(terms, name)
		if err != nil {
			return err
		}
		r.HandleCommand(cmd, fn)
	}
	return nil
}

// selection is what a reference resolves to: the application, one
// document, several documents, or a property of one of those.
type selection struct {
	doc  *demoDoc
	docs []*demoDoc
	many bool
	prop uint32
}

func noSuchObject(ref any) error {
	return &dispatch.ApplicationError{Number: errNoSuchObject, Message: "Can't get object.", OffendingObject: ref}
}

// resolve evaluates ref against the documents. Callers hold a.mu.
func (a *demoApp) resolve(ref *specifier.Node) (selection, error) {
	if ref.IsRoot() {
		if !ref.IsTargetRoot() {
			return selection{}, noSuchObject(ref)
		}
		return selection{}, nil
	}

	parent, err := ref.Parent()
	if err != nil {
		return selection{}, err
	}
	if parent == nil {
		return selection{}, noSuchObject(ref)
	}
	base, err := a.resolve(parent)
	if err != nil {
		return selection{}, err
	}
	if base.prop != 0 || base.many {
		return selection{}, noSuchObject(ref)
	}

	if ref.Form() == specifier.FormProperty {
		kw, ok := ref.Selector().(desc.Keyword)
		if !ok {
			return selection{}, noSuchObject(ref)
		}
		base.prop = kw.Code
		return base, nil
	}

	if base.doc != nil || ref.Want() != classDoc {
		return selection{}, noSuchObject(ref)
	}
	return a.selectDocs(ref)
}

func (a *demoApp) selectDocs(ref *specifier.Node) (selection, error) {
	seld := ref.Selector()
	pick := func(i int) (selection, error) {
		if i < 0 || i >= len(a.docs) {
			return selection{}, noSuchObject(ref)
		}
		return selection{doc: a.docs[i]}, nil
	}

	switch ref.Form() {
	case specifier.FormAbsolutePosition:
		switch v := seld.(type) {
		case desc.Keyword:
			switch v.Code {
			case desc.OrdinalAll:
				return selection{docs: slices.Clone(a.docs), many: true}, nil
			case desc.OrdinalFirst, desc.OrdinalAny:
				return pick(0)
			case desc.OrdinalMiddle:
				return pick((len(a.docs) - 1) / 2)
			case desc.OrdinalLast:
				return pick(len(a.docs) - 1)
			}
		case int:
			if v < 0 {
				return pick(len(a.docs) + v)
			}
			return pick(v - 1)
		case int64:
			if v < 0 {
				return pick(len(a.docs) + int(v))
			}
			return pick(int(v) - 1)
		}
	case specifier.FormName:
		for _, doc := range a.docs {
			if doc.name == seld {
				return selection{doc: doc}, nil
			}
		}
	case specifier.FormUniqueID:
		for _, doc := range a.docs {
			if id, ok := seld.(int); ok && doc.id == id {
				return selection{doc: doc}, nil
			}
		}
	}
	return selection{}, noSuchObject(ref)
}

func docRef(env *specifier.Env, doc *demoDoc) (*specifier.Node, error) {
	docs, err := specifier.Target(env).Elements("documents")
	if err != nil {
		return nil, err
	}
	return docs.ID(doc.id)
}

func (a *demoApp) get(_ context.Context, req *dispatch.Request) (any, error) {
	ref, ok := req.Direct().(*specifier.Node)
	if !ok {
		return req.Direct(), nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	sel, err := a.resolve(ref)
	if err != nil {
		return nil, err
	}

	switch {
	case sel.prop != 0 && sel.doc != nil:
		switch sel.prop {
		case propName:
			return sel.doc.name, nil
		case propContents:
			return sel.doc.contents, nil
		case propID:
			return sel.doc.id, nil
		case propIndex:
			return slices.Index(a.docs, sel.doc) + 1, nil
		}
	case sel.prop != 0 && !sel.many:
		switch sel.prop {
		case propName:
			return a.name, nil
		case propVersion:
			return Version, nil
		case propFront:
			return true, nil
		}
	case sel.many:
		refs := make([]any, 0, len(sel.docs))
		for _, doc := range sel.docs {
			r, err := docRef(ref.Env(), doc)
			if err != nil {
				return nil, err
			}
			refs = append(refs, r)
		}
		return refs, nil
	case sel.doc != nil:
		return docRef(ref.Env(), sel.doc)
	default:
		return specifier.Target(ref.Env()), nil
	}
	return nil, noSuchObject(ref)
}

func (a *demoApp) set(_ context.Context, req *dispatch.Request) (any, error) {
	ref, ok := req.Direct().(*specifier.Node)
	if !ok {
		return nil, noSuchObject(req.Direct())
	}
	text, ok := req.Params[terminology.ParamData].(string)
	if !ok {
		return nil, &dispatch.ApplicationError{Number: errWrongClass, Message: "Can't make data into text."}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	sel, err := a.resolve(ref)
	if err != nil {
		return nil, err
	}
	if sel.doc == nil {
		return nil, &dispatch.ApplicationError{Number: errAccessDenied, Message: "Access not allowed.", OffendingObject: ref}
	}
	switch sel.prop {
	case propName:
		sel.doc.name = text
	case propContents:
		sel.doc.contents = text
	default:
		return nil, &dispatch.ApplicationError{Number: errAccessDenied, Message: "Access not allowed.", OffendingObject: ref}
	}
	return text, nil
}

func (a *demoApp) count(_ context.Context, req *dispatch.Request) (any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ref, ok := req.Direct().(*specifier.Node)
	if !ok {
		return len(a.docs), nil
	}
	sel, err := a.resolve(ref)
	if err != nil {
		return nil, err
	}
	switch {
	case sel.many:
		return len(sel.docs), nil
	case sel.doc == nil && sel.prop == 0:
		return len(a.docs), nil
	default:
		return 1, nil
	}
}

func (a *demoApp) make(_ context.Context, req *dispatch.Request) (any, error) {
	class, ok := req.Params[terminology.ParamNewClass].(desc.Keyword)
	if !ok || class.Code != classDoc {
		return nil, &dispatch.ApplicationError{Number: errWrongClass, Message: "Can only make documents."}
	}

	name, contents := "Untitled", ""
	if props, ok := req.Params[terminology.ParamProperties].(map[string]any); ok {
		if s, ok := props["name"].(string); ok {
			name = s
		}
		if s, ok := props["contents"].(string); ok {
			contents = s
		}
	}

	a.mu.Lock()
	doc := a.add(name, contents)
	a.mu.Unlock()

	env := specifier.NewEnv(nil, nil)
	if ref, ok := req.Direct().(*specifier.Node); ok {
		env = ref.Env()
	}
	return docRef(env, doc)
}

func (a *demoApp) delete(_ context.Context, req *dispatch.Request) (any, error) {
	ref, ok := req.Direct().(*specifier.Node)
	if !ok {
		return nil, noSuchObject(req.Direct())
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	sel, err := a.resolve(ref)
	if err != nil {
		return nil, err
	}
	doomed := sel.docs
	if sel.doc != nil {
		doomed = []*demoDoc{sel.doc}
	}
	if sel.prop != 0 || len(doomed) == 0 {
		return nil, noSuchObject(ref)
	}
	a.docs = slices.DeleteFunc(a.docs, func(d *demoDoc) bool { return slices.Contains(doomed, d) })
	return nil, nil
}

func (a *demoApp) exists(_ context.Context, req *dispatch.Request) (any, error) {
	ref, ok := req.Direct().(*specifier.Node)
	if !ok {
		return req.Direct() != nil, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	_, err := a.resolve(ref)
	var appErr *dispatch.ApplicationError
	if errors.As(err, &appErr) && appErr.Number == errNoSuchObject {
		return false, nil
	}
	if err != nil {
		return nil, err
	}
	return true, nil
}

func (a *demoApp) handleQuit(context.Context, *dispatch.Request) (any, error) {
	if a.quit != nil {
		a.quit()
	}
	return nil, nil
}
