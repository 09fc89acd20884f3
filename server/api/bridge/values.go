package bridge

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/compose-network/aebridge/x/desc"
	"github.com/compose-network/aebridge/x/fourcc"
	"github.com/compose-network/aebridge/x/specifier"
)

// Tagged objects carry the values plain JSON has no spelling for. A JSON
// object with exactly one of these keys is read as the tagged value.
const (
	tagType      = "$type"
	tagEnum      = "$enum"
	tagDate      = "$date"
	tagFile      = "$file"
	tagOpaque    = "$opaque"
	tagRange     = "$range"
	tagReference = "$reference"
)

var errEmptyValue = errors.New("empty JSON value")

// ParseValue reads a JSON document into the host values the encoder takes.
// Integral numbers become int64 and the rest float64.
func ParseValue(data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errEmptyValue
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON value")
	}
	return hostValue(v)
}

func hostValue(v any) (any, error) {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		return x.Float64()
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			hv, err := hostValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = hv
		}
		return out, nil
	case map[string]any:
		if tagged, ok, err := taggedValue(x); ok || err != nil {
			return tagged, err
		}
		out := make(map[string]any, len(x))
		for k, item := range x {
			hv, err := hostValue(item)
			if err != nil {
				return nil, err
			}
			out[k] = hv
		}
		return out, nil
	default:
		return v, nil
	}
}

func taggedValue(m map[string]any) (any, bool, error) {
	if len(m) != 1 {
		return nil, false, nil
	}
	for key, raw := range m {
		s, isString := raw.(string)
		switch key {
		case tagType, tagEnum, tagDate, tagFile:
			if !isString {
				return nil, true, fmt.Errorf("%s wants a string, got %T", key, raw)
			}
		default:
			return nil, false, nil
		}

		switch key {
		case tagType:
			return desc.TypeKeyword(s), true, nil
		case tagEnum:
			return desc.EnumKeyword(s), true, nil
		case tagDate:
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return nil, true, fmt.Errorf("%s: %w", tagDate, err)
			}
			return t, true, nil
		default:
			return desc.File{Path: s}, true, nil
		}
	}
	return nil, false, nil
}

// RenderValue turns a decoded value into a JSON-compatible tree. Values
// without a JSON spelling come out as tagged objects.
func RenderValue(v any) any {
	switch x := v.(type) {
	case nil, bool, string, float64, float32:
		return x
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return x
	case desc.Keyword:
		tag := tagType
		if x.Type == desc.TypeEnumerated {
			tag = tagEnum
		}
		return map[string]any{tag: x.String()}
	case time.Time:
		return map[string]any{tagDate: x.UTC().Format(time.RFC3339)}
	case desc.File:
		return map[string]any{tagFile: x.Path}
	case desc.Opaque:
		return map[string]any{tagOpaque: fourcc.String(x.Type), "hex": hex.EncodeToString(x.Data)}
	case desc.Range:
		return map[string]any{tagRange: []any{RenderValue(x.Start), RenderValue(x.Stop)}}
	case *specifier.Node:
		out := map[string]any{tagReference: x.String()}
		if packed, err := x.Pack(); err == nil {
			out["hex"] = hex.EncodeToString(packed)
		}
		return out
	case []byte:
		return hex.EncodeToString(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = RenderValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = RenderValue(item)
		}
		return out
	default:
		return fmt.Sprint(x)
	}
}

// MarshalValue renders v and encodes it as JSON through structpb so that
// the output follows the protobuf JSON mapping.
func MarshalValue(v any) (json.RawMessage, error) {
	pv, err := structpb.NewValue(RenderValue(v))
	if err != nil {
		return nil, fmt.Errorf("render value: %w", err)
	}
	return protojson.Marshal(pv)
}

// DecodeHex parses hex text, ignoring whitespace and an optional 0x prefix.
func DecodeHex(s string) ([]byte, error) {
	clean := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case ' ', '\t', '\n', '\r':
		default:
			clean = append(clean, c)
		}
	}
	clean = bytes.TrimPrefix(bytes.TrimPrefix(clean, []byte("0x")), []byte("0X"))
	out := make([]byte, hex.DecodedLen(len(clean)))
	if _, err := hex.Decode(out, clean); err != nil {
		return nil, err
	}
	return out, nil
}
