package desc

import (
	"net/url"

	"github.com/compose-network/aebridge/x/fourcc"
)

// SelfEncoder is implemented by host values that know their own wire shape.
// The encoder hands over the writer positioned where the descriptor starts.
type SelfEncoder interface {
	EncodeDesc(e *Encoder, w *Writer) error
}

// Keyword is a symbolic (namespace, code) constant: a type or enumerator.
// A zero Code means the keyword is still known only by Name and is resolved
// through terminology when encoded.
type Keyword struct {
	Type uint32
	Code uint32
	Name string
}

// TypeKeyword returns a type-namespace keyword resolved by name at encode time.
func TypeKeyword(name string) Keyword {
	return Keyword{Type: TypeType, Name: name}
}

// EnumKeyword returns an enumerator keyword resolved by name at encode time.
func EnumKeyword(name string) Keyword {
	return Keyword{Type: TypeEnumerated, Name: name}
}

// CodeKeyword returns a keyword with a known code.
func CodeKeyword(typ, code uint32) Keyword {
	return Keyword{Type: typ, Code: code, Name: fourcc.String(code)}
}

// EncodeDesc implements SelfEncoder.
func (k Keyword) EncodeDesc(e *Encoder, w *Writer) error {
	code, err := e.keywordCode(k)
	if err != nil {
		return err
	}
	typ := k.Type
	if typ == 0 {
		typ = TypeType
	}
	mark := w.BeginDesc(typ)
	w.WriteUint32(code)
	w.EndDesc(mark)
	return nil
}

func (k Keyword) String() string {
	if k.Name != "" {
		return k.Name
	}
	return fourcc.Quote(k.Code)
}

// File is a file reference carried as a file URL.
type File struct {
	Path string
}

// EncodeDesc implements SelfEncoder.
func (f File) EncodeDesc(_ *Encoder, w *Writer) error {
	u := url.URL{Scheme: "file", Path: f.Path}
	s := u.String()
	mark := w.BeginDesc(TypeFileURL)
	w.WriteRaw([]byte(s))
	w.PutUint32At(mark, uint32(len(s)))
	return nil
}

func fileFromURL(b []byte) (File, bool) {
	u, err := url.Parse(string(b))
	if err != nil || u.Scheme != "file" {
		return File{}, false
	}
	return File{Path: u.Path}, true
}

// Opaque preserves a descriptor whose type the decoder does not understand.
type Opaque struct {
	Type uint32
	Data []byte
}

// EncodeDesc implements SelfEncoder.
func (o Opaque) EncodeDesc(_ *Encoder, w *Writer) error {
	mark := w.BeginDesc(o.Type)
	w.WriteRaw(o.Data)
	w.PutUint32At(mark, uint32(len(o.Data)))
	return nil
}

// Range is the raw (start, stop) pair of a range descriptor. The element
// class is not carried on the wire and comes from the enclosing reference.
type Range struct {
	Start any
	Stop  any
}

// EncodeDesc implements SelfEncoder.
func (r Range) EncodeDesc(e *Encoder, w *Writer) error {
	return e.WriteRecord(w, TypeRangeDescriptor, []Field{
		{Key: KeyRangeStart, Value: r.Start},
		{Key: KeyRangeStop, Value: r.Stop},
	})
}

// Field is one keyed entry of a record being encoded.
type Field struct {
	Key   uint32
	Value any
}
