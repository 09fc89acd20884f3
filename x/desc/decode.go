package desc

import (
	"encoding/binary"
	"math"
	"time"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/compose-network/aebridge/x/fourcc"
	"github.com/compose-network/aebridge/x/terminology"
)

var utf16Decoder = unicode.UTF16(unicode.BigEndian, unicode.UseBOM)

// Raw locates one nested descriptor inside a decoded buffer.
type Raw struct {
	Type    uint32
	Payload []byte
	// Bytes is the nested flattened form: type, size, payload and pad.
	Bytes []byte
	// Offset of the type word, relative to the buffer handed to the decoder.
	Offset int
}

// RawField is one keyed item of a record, not yet decoded.
type RawField struct {
	Key uint32
	Raw
}

// Extension decodes one descriptor type in place of the built-in handling.
type Extension func(d *Decoder, raw Raw) (any, error)

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithTopLevel sets whether the outermost list or record of a flattened
// buffer carries the preamble. It does by default.
func WithTopLevel(top bool) DecoderOption {
	return func(d *Decoder) { d.topLevel = top }
}

// WithDeferredReferences makes reference extensions resolve containers
// lazily.
func WithDeferredReferences(deferred bool) DecoderOption {
	return func(d *Decoder) { d.deferred = deferred }
}

// WithExtension registers fn for descriptors of type typ.
func WithExtension(typ uint32, fn Extension) DecoderOption {
	return func(d *Decoder) { d.ext[typ] = fn }
}

// WithTerminology sets the vocabulary used to name keywords and record keys.
func WithTerminology(terms terminology.Terms) DecoderOption {
	return func(d *Decoder) {
		if terms != nil {
			d.terms = terms
		}
	}
}

// Decoder turns descriptors back into host values. Like Encoder it holds
// only configuration.
type Decoder struct {
	terms    terminology.Terms
	topLevel bool
	deferred bool
	ext      map[uint32]Extension
}

// NewDecoder returns a decoder with the core vocabulary and no extensions.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{
		terms:    terminology.Default(),
		topLevel: true,
		ext:      make(map[uint32]Extension),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Terms returns the decoder's vocabulary.
func (d *Decoder) Terms() terminology.Terms {
	return d.terms
}

// Deferred reports whether reference containers should be decoded lazily.
func (d *Decoder) Deferred() bool {
	return d.deferred
}

// Decode reads a flattened descriptor: header, one descriptor, nothing after.
func (d *Decoder) Decode(data []byte) (any, error) {
	if len(data) < 8 {
		return nil, decodeErr(0, 0, ErrTruncated, "header")
	}
	if binary.BigEndian.Uint32(data) != FlatHeader || binary.BigEndian.Uint32(data[4:]) != 0 {
		return nil, decodeErr(0, 0, ErrBadHeader, "got %s", fourcc.Quote(binary.BigEndian.Uint32(data)))
	}
	r := &reader{buf: data, off: 8}
	v, raw, err := d.readDesc(r, d.topLevel)
	if err != nil {
		return nil, err
	}
	if r.off != len(data) {
		return nil, decodeErr(r.off, raw.Type, ErrOffsetMismatch, "%d trailing bytes", len(data)-r.off)
	}
	return v, nil
}

// DecodeDesc reads one nested descriptor (no header, no preamble) that must
// span all of b.
func (d *Decoder) DecodeDesc(b []byte) (any, error) {
	return d.Value(Raw{Bytes: b})
}

// Value decodes a descriptor located by an earlier scan.
func (d *Decoder) Value(raw Raw) (any, error) {
	r := &reader{buf: raw.Bytes, base: raw.Offset}
	v, got, err := d.readDesc(r, false)
	if err != nil {
		return nil, err
	}
	if r.off != len(raw.Bytes) {
		return nil, decodeErr(r.base+r.off, got.Type, ErrOffsetMismatch, "%d trailing bytes", len(raw.Bytes)-r.off)
	}
	return v, nil
}

// Keyword builds the keyword value for a code, naming it from terminology
// when possible.
func (d *Decoder) Keyword(typ, code uint32) Keyword {
	var (
		name string
		ok   bool
	)
	switch typ {
	case TypeProperty, TypeKeywordCode:
		if name, ok = d.terms.PropertyByCode(code); !ok {
			name, ok = d.terms.TypeByCode(code)
		}
	default:
		name, ok = d.terms.TypeByCode(code)
	}
	if !ok {
		name = fourcc.Quote(code)
	}
	return Keyword{Type: typ, Code: code, Name: name}
}

// RecordFields scans the items of a nested record without decoding them.
func RecordFields(raw Raw) ([]RawField, error) {
	r := &reader{buf: raw.Bytes, base: raw.Offset}
	typ, err := r.u32()
	if err != nil {
		return nil, err
	}
	size, err := r.u32()
	if err != nil {
		return nil, err
	}
	end := r.off + int(size)
	if end > len(r.buf) {
		return nil, decodeErr(r.base+r.off, typ, ErrTruncated, "payload of %d bytes", size)
	}
	sub := &reader{buf: r.buf[:end], off: r.off, base: r.base}
	fields, err := scanFields(sub, typ, false)
	if err != nil {
		return nil, err
	}
	if sub.off != end {
		return nil, decodeErr(sub.base+sub.off, typ, ErrOffsetMismatch, "declared end %d", sub.base+end)
	}
	return fields, nil
}

// Lookup returns the first field with key.
func Lookup(fields []RawField, key uint32) (Raw, bool) {
	for _, f := range fields {
		if f.Key == key {
			return f.Raw, true
		}
	}
	return Raw{}, false
}

// Scan locates the descriptor starting at off in b without decoding it and
// returns the offset just past its pad byte.
func Scan(b []byte, off int) (Raw, int, error) {
	r := &reader{buf: b, off: off}
	raw, err := r.skipDesc()
	if err != nil {
		return Raw{}, off, err
	}
	return raw, r.off, nil
}

// readDesc reads one descriptor at the cursor and leaves the cursor after
// its pad byte. Whatever the type, the body must end exactly on the
// declared size.
func (d *Decoder) readDesc(r *reader, top bool) (any, Raw, error) {
	start := r.off
	typ, err := r.u32()
	if err != nil {
		return nil, Raw{}, err
	}
	size, err := r.u32()
	if err != nil {
		return nil, Raw{}, decodeErr(r.base+start, typ, ErrTruncated, "size")
	}
	end := r.off + int(size)
	if int(size) < 0 || end > len(r.buf) {
		return nil, Raw{}, decodeErr(r.base+r.off, typ, ErrTruncated, "payload of %d bytes", size)
	}
	next := end + int(size%2)
	if next > len(r.buf) {
		return nil, Raw{}, decodeErr(r.base+end, typ, ErrTruncated, "pad byte")
	}

	raw := Raw{Type: typ, Payload: r.buf[r.off:end], Bytes: r.buf[start:next], Offset: r.base + start}
	sub := &reader{buf: r.buf[:end], off: r.off, base: r.base}

	v, err := d.decodeBody(sub, raw, top)
	if err != nil {
		return nil, raw, err
	}
	if sub.off != end {
		return nil, raw, decodeErr(r.base+sub.off, typ, ErrOffsetMismatch, "declared end %d", r.base+end)
	}
	r.off = next
	return v, raw, nil
}

func (d *Decoder) decodeBody(r *reader, raw Raw, top bool) (any, error) {
	typ := raw.Type
	if fn, ok := d.ext[typ]; ok {
		v, err := fn(d, raw)
		if err != nil {
			return nil, err
		}
		r.off = len(r.buf)
		return v, nil
	}

	switch typ {
	case TypeNull:
		return nil, nil
	case TypeTrue:
		return true, nil
	case TypeFalse:
		return false, nil
	case TypeBoolean:
		b, err := r.u8()
		return b != 0, err
	case TypeSInt16:
		v, err := r.u16()
		return int(int16(v)), err
	case TypeSInt32:
		v, err := r.u32()
		return int(int32(v)), err
	case TypeSInt64:
		v, err := r.u64()
		return int(int64(v)), err
	case TypeUInt32:
		v, err := r.u32()
		return int(v), err
	case TypeFloat32:
		v, err := r.u32()
		return float64(math.Float32frombits(v)), err
	case TypeFloat64:
		v, err := r.u64()
		return math.Float64frombits(v), err
	case TypeUnicodeText:
		s, err := utf16Decoder.NewDecoder().Bytes(r.rest())
		if err != nil {
			return nil, decodeErr(raw.Offset, typ, ErrMalformed, "utf-16 text: %v", err)
		}
		return string(s), nil
	case TypeUTF8Text:
		return string(r.rest()), nil
	case TypeChar:
		s, err := charmap.Macintosh.NewDecoder().Bytes(r.rest())
		if err != nil {
			return nil, decodeErr(raw.Offset, typ, ErrMalformed, "mac roman text: %v", err)
		}
		return string(s), nil
	case TypeLongDateTime:
		v, err := r.u64()
		return time.Unix(int64(v)-epochOffset, 0).UTC(), err
	case TypeType, TypeEnumerated, TypeKeywordCode, TypeProperty, TypeAbsoluteOrdinal:
		code, err := r.u32()
		if err != nil {
			return nil, err
		}
		if typ == TypeType && code == MissingValue {
			return nil, nil
		}
		return d.Keyword(typ, code), nil
	case TypeFileURL:
		f, ok := fileFromURL(r.rest())
		if !ok {
			return nil, decodeErr(raw.Offset, typ, ErrMalformed, "file url %q", raw.Payload)
		}
		return f, nil
	case TypeList:
		return d.decodeList(r, top)
	case TypeRecord:
		return d.decodeRecord(r, typ, top)
	case TypeRangeDescriptor:
		return d.decodeRange(r)
	default:
		return d.decodeUnknown(r, raw, top)
	}
}

func (d *Decoder) decodeList(r *reader, top bool) (any, error) {
	count, err := readCollectionHeader(r, TypeList, top)
	if err != nil {
		return nil, err
	}
	items := make([]any, 0, min(count, len(r.buf)/8))
	for range count {
		v, _, err := d.readDesc(r, false)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, nil
}

// decodeRecord maps item keys to names: known properties by name, the class
// key as "class", anything else as 0xHHHHHHHH. User fields are merged back
// in under their own names.
func (d *Decoder) decodeRecord(r *reader, typ uint32, top bool) (map[string]any, error) {
	count, err := readCollectionHeader(r, typ, top)
	if err != nil {
		return nil, err
	}
	m := make(map[string]any, min(count, len(r.buf)/12)+1)
	if typ != TypeRecord {
		m["class"] = d.Keyword(TypeType, typ)
	}
	for range count {
		key, err := r.u32()
		if err != nil {
			return nil, err
		}
		v, raw, err := d.readDesc(r, false)
		if err != nil {
			return nil, err
		}
		switch key {
		case KeyUserFields:
			if err := mergeUserFields(m, v, raw); err != nil {
				return nil, err
			}
		case KeyClass:
			m["class"] = v
		default:
			name, ok := d.terms.PropertyByCode(key)
			if !ok {
				name = fourcc.Hex(key)
			}
			m[name] = v
		}
	}
	return m, nil
}

func mergeUserFields(m map[string]any, v any, raw Raw) error {
	pairs, ok := v.([]any)
	if !ok || len(pairs)%2 != 0 {
		return decodeErr(raw.Offset, raw.Type, ErrMalformed, "user fields must be a list of name/value pairs")
	}
	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			return decodeErr(raw.Offset, raw.Type, ErrMalformed, "user field name is %T", pairs[i])
		}
		m[name] = pairs[i+1]
	}
	return nil
}

func (d *Decoder) decodeRange(r *reader) (any, error) {
	fields, err := scanFields(r, TypeRangeDescriptor, false)
	if err != nil {
		return nil, err
	}
	start, ok1 := Lookup(fields, KeyRangeStart)
	stop, ok2 := Lookup(fields, KeyRangeStop)
	if !ok1 || !ok2 {
		return nil, decodeErr(r.base, TypeRangeDescriptor, ErrMalformed, "range needs start and stop")
	}
	var rng Range
	if rng.Start, err = d.Value(start); err != nil {
		return nil, err
	}
	if rng.Stop, err = d.Value(stop); err != nil {
		return nil, err
	}
	return rng, nil
}

// decodeUnknown tries the payload as a record of a custom class and falls
// back to preserving the bytes.
func (d *Decoder) decodeUnknown(r *reader, raw Raw, top bool) (any, error) {
	save := r.off
	if m, err := d.decodeRecord(r, raw.Type, top); err == nil && r.off == len(r.buf) {
		return m, nil
	}
	r.off = save
	data := append([]byte(nil), r.rest()...)
	return Opaque{Type: raw.Type, Data: data}, nil
}

func readCollectionHeader(r *reader, typ uint32, top bool) (int, error) {
	if top {
		for i, want := range []uint32{0, 0, listPreambleMarker, typ} {
			got, err := r.u32()
			if err != nil {
				return 0, err
			}
			if got != want {
				return 0, decodeErr(r.base+r.off-4, typ, ErrMalformed, "preamble word %d is %#x", i, got)
			}
		}
	}
	count, err := r.u32()
	if err != nil {
		return 0, err
	}
	reserved, err := r.u32()
	if err != nil {
		return 0, err
	}
	if reserved != 0 {
		return 0, decodeErr(r.base+r.off-4, typ, ErrMalformed, "reserved word is %#x", reserved)
	}
	return int(count), nil
}

func scanFields(r *reader, typ uint32, top bool) ([]RawField, error) {
	count, err := readCollectionHeader(r, typ, top)
	if err != nil {
		return nil, err
	}
	fields := make([]RawField, 0, min(count, len(r.buf)/12))
	for range count {
		key, err := r.u32()
		if err != nil {
			return nil, err
		}
		raw, err := r.skipDesc()
		if err != nil {
			return nil, err
		}
		fields = append(fields, RawField{Key: key, Raw: raw})
	}
	return fields, nil
}

// reader is a bounded cursor. base is added to offsets in errors.
type reader struct {
	buf  []byte
	off  int
	base int
}

func (r *reader) need(n int) error {
	if r.off+n > len(r.buf) {
		return decodeErr(r.base+r.off, 0, ErrTruncated, "need %d bytes, have %d", n, len(r.buf)-r.off)
	}
	return nil
}

func (r *reader) u8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

func (r *reader) u16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v, nil
}

func (r *reader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

func (r *reader) u64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v, nil
}

// rest consumes and returns everything up to the bound.
func (r *reader) rest() []byte {
	b := r.buf[r.off:]
	r.off = len(r.buf)
	return b
}

// skipDesc steps over one nested descriptor, pad included.
func (r *reader) skipDesc() (Raw, error) {
	start := r.off
	typ, err := r.u32()
	if err != nil {
		return Raw{}, err
	}
	size, err := r.u32()
	if err != nil {
		return Raw{}, err
	}
	end := r.off + int(size)
	next := end + int(size%2)
	if next > len(r.buf) {
		return Raw{}, decodeErr(r.base+r.off, typ, ErrTruncated, "payload of %d bytes", size)
	}
	raw := Raw{Type: typ, Payload: r.buf[r.off:end], Bytes: r.buf[start:next], Offset: r.base + start}
	r.off = next
	return raw, nil
}
