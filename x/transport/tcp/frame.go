package tcp

import (
	"encoding/binary"
	"errors"

	"github.com/compose-network/aebridge/x/transport"
)

// Request opcodes.
const (
	opSend    byte = 1
	opResolve byte = 2
)

var errShortFrame = errors.New("tcp: short frame")

type sendRequest struct {
	flags   transport.SendFlags
	ticks   int32
	address []byte
	event   []byte
}

func (r sendRequest) marshal() []byte {
	b := make([]byte, 0, 13+len(r.address)+len(r.event))
	b = append(b, opSend)
	b = binary.BigEndian.AppendUint32(b, uint32(r.flags))
	b = binary.BigEndian.AppendUint32(b, uint32(r.ticks))
	b = binary.BigEndian.AppendUint32(b, uint32(len(r.address)))
	b = append(b, r.address...)
	return append(b, r.event...)
}

func unmarshalSend(b []byte) (sendRequest, error) {
	if len(b) < 12 {
		return sendRequest{}, errShortFrame
	}
	r := sendRequest{
		flags: transport.SendFlags(binary.BigEndian.Uint32(b[0:])),
		ticks: int32(binary.BigEndian.Uint32(b[4:])),
	}
	n := int(binary.BigEndian.Uint32(b[8:]))
	if len(b) < 12+n {
		return sendRequest{}, errShortFrame
	}
	r.address = b[12 : 12+n]
	r.event = b[12+n:]
	return r, nil
}

func marshalResolve(t transport.Target) []byte {
	name := t.Name
	if t.Kind == transport.TargetAddress {
		name = string(t.Address)
	}
	b := make([]byte, 0, 10+len(name))
	b = append(b, opResolve, byte(t.Kind))
	b = binary.BigEndian.AppendUint32(b, uint32(t.PID))
	b = binary.BigEndian.AppendUint32(b, uint32(len(name)))
	return append(b, name...)
}

func unmarshalResolve(b []byte) (transport.Target, error) {
	if len(b) < 9 {
		return transport.Target{}, errShortFrame
	}
	t := transport.Target{
		Kind: transport.TargetKind(b[0]),
		PID:  int32(binary.BigEndian.Uint32(b[1:])),
	}
	n := int(binary.BigEndian.Uint32(b[5:]))
	if len(b) < 9+n {
		return transport.Target{}, errShortFrame
	}
	if t.Kind == transport.TargetAddress {
		t.Address = append([]byte(nil), b[9:9+n]...)
	} else {
		t.Name = string(b[9 : 9+n])
	}
	return t, nil
}

// A reply frame carries a signed status followed by the payload.
func marshalReply(status int, payload []byte) []byte {
	b := make([]byte, 0, 4+len(payload))
	b = binary.BigEndian.AppendUint32(b, uint32(int32(status)))
	return append(b, payload...)
}

func unmarshalReply(b []byte) (int, []byte, error) {
	if len(b) < 4 {
		return 0, nil, errShortFrame
	}
	return int(int32(binary.BigEndian.Uint32(b))), b[4:], nil
}
