package bridge

import "encoding/json"

// EncodeArgs is the JSON schema for POST routeEncode and Bridge.Encode.
type EncodeArgs struct {
	Value json.RawMessage `json:"value"`
	// TopLevel selects the standalone form: file header plus preamble.
	// It defaults to true.
	TopLevel *bool `json:"top_level,omitempty"`
}

// EncodeReply carries the hex of the encoded descriptor.
type EncodeReply struct {
	Hex  string `json:"hex"`
	Size int    `json:"size"`
}

// DecodeArgs is the JSON schema for POST routeDecode and Bridge.Decode.
type DecodeArgs struct {
	Hex string `json:"hex"`
}

// ValueReply carries a decoded or returned value rendered as JSON.
type ValueReply struct {
	Value json.RawMessage `json:"value"`
}

// Step is one selector applied while building a reference. Arg is the
// selector's argument; Thru takes a two-element array.
type Step struct {
	Op  string          `json:"op"`
	Arg json.RawMessage `json:"arg,omitempty"`
}

// DispatchArgs is the JSON schema for POST routeDispatch and
// Bridge.Dispatch. Class and ID, when both set, name a raw command that
// need not be in the vocabulary.
type DispatchArgs struct {
	Command   string          `json:"command"`
	Class     string          `json:"class,omitempty"`
	ID        string          `json:"id,omitempty"`
	Reference []Step          `json:"reference,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
}
