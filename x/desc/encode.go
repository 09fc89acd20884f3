package desc

import (
	"maps"
	"math"
	"reflect"
	"slices"
	"time"

	"github.com/compose-network/aebridge/x/fourcc"
	"github.com/compose-network/aebridge/x/terminology"
)

// epochOffset is the number of seconds between 1904-01-01 and 1970-01-01.
const epochOffset = 2082844800

// Encoder turns host values into descriptors. It holds no per-call state
// and may be shared; every call owns its Writer.
type Encoder struct {
	terms terminology.Terms
}

// NewEncoder returns an encoder resolving names through terms. A nil terms
// uses the core vocabulary.
func NewEncoder(terms terminology.Terms) *Encoder {
	if terms == nil {
		terms = terminology.Default()
	}
	return &Encoder{terms: terms}
}

// Terms returns the vocabulary the encoder resolves names with.
func (e *Encoder) Terms() terminology.Terms {
	return e.terms
}

// Encode flattens v as a standalone descriptor: the file header, then v
// with the list/record preamble.
func (e *Encoder) Encode(v any) ([]byte, error) {
	w := NewWriter(0)
	w.WriteUint32(FlatHeader)
	w.WriteUint32(0)
	if err := e.writeValue(w, v, true); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// WriteValue writes v as a nested descriptor.
func (e *Encoder) WriteValue(w *Writer, v any) error {
	return e.writeValue(w, v, false)
}

// WriteRecord writes a nested record of type typ with fields in order.
func (e *Encoder) WriteRecord(w *Writer, typ uint32, fields []Field) error {
	return e.writeRecord(w, typ, fields, false)
}

func (e *Encoder) writeValue(w *Writer, v any, top bool) error {
	switch x := v.(type) {
	case nil:
		writeCode(w, TypeType, MissingValue)
		return nil
	case SelfEncoder:
		return x.EncodeDesc(e, w)
	case bool:
		typ := TypeFalse
		if x {
			typ = TypeTrue
		}
		w.WriteUint32(typ)
		w.WriteUint32(0)
		return nil
	case int:
		return e.writeInt(w, int64(x))
	case int8:
		return e.writeInt(w, int64(x))
	case int16:
		return e.writeInt(w, int64(x))
	case int32:
		return e.writeInt(w, int64(x))
	case int64:
		return e.writeInt(w, x)
	case uint:
		return e.writeUint(w, uint64(x))
	case uint8:
		return e.writeUint(w, uint64(x))
	case uint16:
		return e.writeUint(w, uint64(x))
	case uint32:
		return e.writeUint(w, uint64(x))
	case uint64:
		return e.writeUint(w, x)
	case float32:
		return writeFloat(w, float64(x), v)
	case float64:
		return writeFloat(w, x, v)
	case string:
		return writeText(w, x)
	case time.Time:
		secs := x.Round(time.Second).Unix() + epochOffset
		mark := w.BeginDesc(TypeLongDateTime)
		w.WriteInt64(secs)
		w.EndDesc(mark)
		return nil
	case []any:
		return e.writeList(w, x, top)
	case map[string]any:
		return e.writeMap(w, x, top)
	default:
		return e.writeReflect(w, v, top)
	}
}

// writeInt applies the 32-bit boundary: anything outside [MinInt32,
// MaxInt32] is sent as a double, never truncated.
func (e *Encoder) writeInt(w *Writer, v int64) error {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return writeFloat(w, float64(v), v)
	}
	mark := w.BeginDesc(TypeSInt32)
	w.WriteInt32(int32(v))
	w.EndDesc(mark)
	return nil
}

func (e *Encoder) writeUint(w *Writer, v uint64) error {
	if v > math.MaxInt32 {
		return writeFloat(w, float64(v), v)
	}
	return e.writeInt(w, int64(v))
}

func writeFloat(w *Writer, f float64, orig any) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return encodeErr(orig, ErrNonFinite, "")
	}
	mark := w.BeginDesc(TypeFloat64)
	w.WriteFloat64(f)
	w.EndDesc(mark)
	return nil
}

func writeText(w *Writer, s string) error {
	mark := w.BeginDesc(TypeUnicodeText)
	n, err := w.WriteText16(s)
	if err != nil {
		return encodeErr(s, ErrUnsupportedValue, "text")
	}
	w.PutUint32At(mark, uint32(n))
	return nil
}

func writeCode(w *Writer, typ, code uint32) {
	mark := w.BeginDesc(typ)
	w.WriteUint32(code)
	w.EndDesc(mark)
}

func writePreamble(w *Writer, typ uint32) {
	w.WriteUint32(0)
	w.WriteUint32(0)
	w.WriteUint32(listPreambleMarker)
	w.WriteUint32(typ)
}

func (e *Encoder) writeList(w *Writer, items []any, top bool) error {
	mark := w.BeginDesc(TypeList)
	if top {
		writePreamble(w, TypeList)
	}
	w.WriteUint32(uint32(len(items)))
	w.WriteUint32(0)
	for _, item := range items {
		if err := e.writeValue(w, item, false); err != nil {
			return err
		}
	}
	w.EndDesc(mark)
	return nil
}

func (e *Encoder) writeRecord(w *Writer, typ uint32, fields []Field, top bool) error {
	mark := w.BeginDesc(typ)
	if top {
		writePreamble(w, typ)
	}
	w.WriteUint32(uint32(len(fields)))
	w.WriteUint32(0)
	for _, f := range fields {
		w.WriteUint32(f.Key)
		if err := e.writeValue(w, f.Value, false); err != nil {
			return err
		}
	}
	w.EndDesc(mark)
	return nil
}

// writeMap writes a keyed mapping as a record. Keys are emitted in sorted
// order so that equal maps flatten to equal bytes.
func (e *Encoder) writeMap(w *Writer, m map[string]any, top bool) error {
	typ := TypeRecord
	fields := make([]Field, 0, len(m))
	var user []any

	for _, key := range slices.Sorted(maps.Keys(m)) {
		v := m[key]
		if IsClassKey(key) {
			code, err := e.classCode(v)
			if err != nil {
				return err
			}
			typ = code
			continue
		}
		if code, ok := e.keyCode(key); ok {
			fields = append(fields, Field{Key: code, Value: v})
			continue
		}
		user = append(user, key, v)
	}
	if len(user) > 0 {
		fields = append(fields, Field{Key: KeyUserFields, Value: user})
	}
	return e.writeRecord(w, typ, fields, top)
}

// IsClassKey reports whether key is one of the spellings of the reserved
// class key.
func IsClassKey(key string) bool {
	for _, name := range ClassKeyNames {
		if key == name {
			return true
		}
	}
	code, ok := fourcc.ParseLiteral(key)
	return ok && code == KeyClass
}

func (e *Encoder) keyCode(key string) (uint32, bool) {
	if code, ok := e.terms.PropertyByName(key); ok {
		return code, true
	}
	return fourcc.ParseLiteral(key)
}

func (e *Encoder) classCode(v any) (uint32, error) {
	switch k := v.(type) {
	case Keyword:
		return e.keywordCode(k)
	case string:
		return e.keywordCode(TypeKeyword(k))
	default:
		return 0, encodeErr(v, ErrUnsupportedValue, "record class must be a keyword")
	}
}

// keywordCode resolves a keyword's code, looking its name up in the
// type/enumerator table or parsing it as a code literal.
func (e *Encoder) keywordCode(k Keyword) (uint32, error) {
	if k.Code != 0 {
		return k.Code, nil
	}
	if code, ok := e.terms.TypeByName(k.Name); ok {
		return code, nil
	}
	if code, ok := fourcc.ParseLiteral(k.Name); ok {
		return code, nil
	}
	return 0, encodeErr(k, ErrUnresolvedName, "keyword %q", k.Name)
}

// writeReflect handles named and composite types that are not matched
// statically: defined basic types, typed slices and string-keyed maps.
func (e *Encoder) writeReflect(w *Writer, v any, top bool) error {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return e.writeValue(w, nil, top)
		}
		return e.writeValue(w, rv.Elem().Interface(), top)
	case reflect.Bool:
		return e.writeValue(w, rv.Bool(), top)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return e.writeInt(w, rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return e.writeUint(w, rv.Uint())
	case reflect.Float32, reflect.Float64:
		return writeFloat(w, rv.Float(), v)
	case reflect.String:
		return writeText(w, rv.String())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return e.writeList(w, nil, top)
		}
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return e.writeList(w, items, top)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return encodeErr(v, ErrUnsupportedValue, "map keys must be strings")
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return e.writeMap(w, m, top)
	default:
		return encodeErr(v, ErrUnsupportedValue, "")
	}
}
