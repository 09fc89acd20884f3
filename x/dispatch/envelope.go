package dispatch

import (
	"encoding/binary"

	"github.com/compose-network/aebridge/x/desc"
	"github.com/compose-network/aebridge/x/fourcc"
)

// Envelope attribute keys.
var (
	KeyReturnID    = fourcc.Make("rtid")
	KeyAddress     = fourcc.Make("addr")
	KeyOrigin      = fourcc.Make("from")
	KeyInteraction = fourcc.Make("inte")
	KeyReplyWanted = fourcc.Make("repq")
	KeyTimeout     = fourcc.Make("timo")
	KeySubject     = fourcc.Make("subj")
	KeyConsidering = fourcc.Make("csig")

	endOfAttributes = fourcc.Make(";;;;")

	ClassReply = fourcc.Make("aevt")
	IDAnswer   = fourcc.Make("ansr")
)

const (
	envelopeVersion uint32 = 0x00010001

	// offsets in the flattened buffer, file header included
	offSize        = 12
	offParamOffset = 24
	offParamCount  = 28
	offClass       = 32
	offID          = 36
	offVersion     = 40
	offAttributes  = 44
)

// attribute is one envelope attribute. raw, when set, is spliced in as an
// already flattened descriptor.
type attribute struct {
	key   uint32
	value any
	raw   []byte
}

type envelope struct {
	class, id uint32
	attrs     []attribute
	params    []desc.Field
}

// packet is an encoded envelope. data is the writer's buffer, so patches
// to it are what the writer inflates. addr is the offset of the address
// descriptor inside data, or -1.
type packet struct {
	w       *desc.Writer
	data    []byte
	addr    int
	addrLen int
}

func (ev *envelope) encode(enc *desc.Encoder) (*packet, error) {
	w := desc.NewWriter(256)
	w.WriteUint32(desc.FlatHeader)
	w.WriteUint32(0)
	w.WriteUint32(desc.TypeAppleEvent)
	size := w.Allocate(4)
	w.WriteUint32(0)
	w.WriteUint32(0)
	paramOffset := w.Allocate(4)
	w.WriteUint32(uint32(len(ev.params)))
	w.WriteUint32(ev.class)
	w.WriteUint32(ev.id)
	w.WriteUint32(envelopeVersion)

	pkt := &packet{w: w, addr: -1}
	for _, a := range ev.attrs {
		w.WriteUint32(a.key)
		if a.raw != nil {
			if a.key == KeyAddress {
				pkt.addr, pkt.addrLen = w.Len(), len(a.raw)
			}
			w.WriteRaw(a.raw)
			continue
		}
		if err := enc.WriteValue(w, a.value); err != nil {
			return nil, err
		}
	}
	w.WriteUint32(endOfAttributes)

	w.PutUint32At(paramOffset, uint32(w.Len()))
	for _, p := range ev.params {
		w.WriteUint32(p.Key)
		if err := enc.WriteValue(w, p.Value); err != nil {
			return nil, err
		}
	}
	w.PutUint32At(size, uint32(w.Len()-size-4))

	pkt.data = w.Bytes()
	return pkt, nil
}

// Event is a parsed envelope. Attributes and parameters are located but not
// decoded.
type Event struct {
	Class      uint32
	ID         uint32
	Attributes []desc.RawField
	Params     []desc.RawField
}

func malformedEvent(off int, reason string) error {
	return &desc.DecodeError{Offset: off, Type: desc.TypeAppleEvent, Reason: reason, Err: desc.ErrMalformed}
}

// ParseEvent checks the envelope layout of a flattened event and locates
// its attributes and parameters.
func ParseEvent(data []byte) (*Event, error) {
	if len(data) < offAttributes+4 {
		return nil, &desc.DecodeError{Type: desc.TypeAppleEvent, Reason: "envelope header", Err: desc.ErrTruncated}
	}
	be := binary.BigEndian
	switch {
	case be.Uint32(data) != desc.FlatHeader || be.Uint32(data[4:]) != 0:
		return nil, &desc.DecodeError{Reason: "file header", Err: desc.ErrBadHeader}
	case be.Uint32(data[8:]) != desc.TypeAppleEvent:
		return nil, malformedEvent(8, "not an event")
	case int(be.Uint32(data[offSize:])) != len(data)-offSize-4:
		return nil, malformedEvent(offSize, "size does not match buffer")
	case be.Uint32(data[16:]) != 0 || be.Uint32(data[20:]) != 0:
		return nil, malformedEvent(16, "reserved words are not zero")
	case be.Uint32(data[offVersion:]) != envelopeVersion:
		return nil, malformedEvent(offVersion, "unknown envelope version")
	}

	ev := &Event{Class: be.Uint32(data[offClass:]), ID: be.Uint32(data[offID:])}
	off := offAttributes
	for {
		if off+4 > len(data) {
			return nil, malformedEvent(off, "missing attribute terminator")
		}
		key := be.Uint32(data[off:])
		off += 4
		if key == endOfAttributes {
			break
		}
		raw, next, err := desc.Scan(data, off)
		if err != nil {
			return nil, err
		}
		ev.Attributes = append(ev.Attributes, desc.RawField{Key: key, Raw: raw})
		off = next
	}

	if int(be.Uint32(data[offParamOffset:])) != off {
		return nil, malformedEvent(offParamOffset, "parameter offset does not follow attributes")
	}
	count := int(be.Uint32(data[offParamCount:]))
	for range count {
		if off+4 > len(data) {
			return nil, malformedEvent(off, "missing parameter")
		}
		key := be.Uint32(data[off:])
		raw, next, err := desc.Scan(data, off+4)
		if err != nil {
			return nil, err
		}
		ev.Params = append(ev.Params, desc.RawField{Key: key, Raw: raw})
		off = next
	}
	if off != len(data) {
		return nil, malformedEvent(off, "trailing bytes after parameters")
	}
	return ev, nil
}

// Attribute returns the attribute with key.
func (ev *Event) Attribute(key uint32) (desc.Raw, bool) {
	return desc.Lookup(ev.Attributes, key)
}

// Param returns the parameter with key.
func (ev *Event) Param(key uint32) (desc.Raw, bool) {
	return desc.Lookup(ev.Params, key)
}

// DecodeParams decodes every parameter with dec.
func (ev *Event) DecodeParams(dec *desc.Decoder) (map[uint32]any, error) {
	out := make(map[uint32]any, len(ev.Params))
	for _, p := range ev.Params {
		v, err := dec.Value(p.Raw)
		if err != nil {
			return nil, err
		}
		out[p.Key] = v
	}
	return out, nil
}
