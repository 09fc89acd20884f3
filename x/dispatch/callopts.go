package dispatch

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/compose-network/aebridge/x/desc"
	"github.com/compose-network/aebridge/x/transport"
)

// Parameter keys that configure the call instead of being sent.
const (
	OptAsType      = "asType"
	OptSendOptions = "sendOptions"
	OptTimeout     = "timeout"
	OptIgnoring    = "ignoring"
)

// considerations pairs each text comparison attribute with its consider
// and ignore bits in the csig mask.
var considerations = []struct {
	name             string
	consider, ignore uint32
}{
	{"case", 0x00000001, 0x00010000},
	{"diacriticals", 0x00000002, 0x00020000},
	{"whiteSpace", 0x00000004, 0x00040000},
	{"hyphens", 0x00000008, 0x00080000},
	{"expansion", 0x00000010, 0x00100000},
	{"punctuation", 0x00000020, 0x00200000},
	{"numericStrings", 0x00000080, 0x00800000},
}

// considerMask sets the ignore bit of every named attribute and the
// consider bit of the rest.
func considerMask(ignoring []string) (uint32, error) {
	ignored := make(map[string]bool, len(ignoring))
	for _, name := range ignoring {
		ignored[name] = true
	}
	var mask uint32
	for _, c := range considerations {
		if ignored[c.name] {
			mask |= c.ignore
			delete(ignored, c.name)
		} else {
			mask |= c.consider
		}
	}
	if len(ignored) > 0 {
		return 0, fmt.Errorf("%w: cannot ignore %q", ErrInvalidOption, slices.Sorted(maps.Keys(ignored)))
	}
	return mask, nil
}

// considering is the csig attribute value, sent as an unsigned 32-bit
// integer.
type considering uint32

func (c considering) EncodeDesc(_ *desc.Encoder, w *desc.Writer) error {
	mark := w.BeginDesc(desc.TypeUInt32)
	w.WriteUint32(uint32(c))
	w.EndDesc(mark)
	return nil
}

func stringList(v any) ([]string, error) {
	switch x := v.(type) {
	case string:
		return []string{x}, nil
	case []string:
		return x, nil
	case []any:
		out := make([]string, len(x))
		for i, item := range x {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: expected strings, got %T", ErrInvalidOption, item)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: expected a list of strings, got %T", ErrInvalidOption, v)
	}
}

// parseSendOptions accepts flags or flag names. Options that name no reply
// mode wait for the reply.
func parseSendOptions(v any) (transport.SendFlags, error) {
	flags, ok := v.(transport.SendFlags)
	if !ok {
		names, err := stringList(v)
		if err != nil {
			return 0, err
		}
		for _, name := range names {
			f, ok := transport.SendFlagByName(name)
			if !ok {
				return 0, fmt.Errorf("%w: send option %q", ErrInvalidOption, name)
			}
			flags |= f
		}
	}
	if flags&transport.WaitReply == 0 {
		flags |= transport.WaitReply
	}
	return flags, nil
}

// parseTimeout converts a timeout in seconds to ticks. Zero waits forever.
func parseTimeout(v any) (int32, error) {
	var secs float64
	switch x := v.(type) {
	case time.Duration:
		secs = x.Seconds()
	case int:
		secs = float64(x)
	case int32:
		secs = float64(x)
	case int64:
		secs = float64(x)
	case float32:
		secs = float64(x)
	case float64:
		secs = x
	default:
		return 0, fmt.Errorf("%w: timeout must be a number of seconds, got %T", ErrInvalidOption, v)
	}
	if secs < 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return 0, fmt.Errorf("%w: timeout %v", ErrInvalidOption, v)
	}
	if secs == 0 {
		return transport.NoTimeout, nil
	}
	if secs*transport.TicksPerSecond >= math.MaxInt32 {
		return transport.NoTimeout, nil
	}
	return transport.Ticks(time.Duration(secs * float64(time.Second))), nil
}

func asTypeKeyword(v any) (desc.Keyword, error) {
	switch x := v.(type) {
	case desc.Keyword:
		return x, nil
	case string:
		return desc.TypeKeyword(x), nil
	default:
		return desc.Keyword{}, fmt.Errorf("%w: asType must be a type, got %T", ErrInvalidOption, v)
	}
}
