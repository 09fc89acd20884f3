package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/rpc/v2/json2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compose-network/aebridge/x/desc"
	"github.com/compose-network/aebridge/x/dispatch"
	"github.com/compose-network/aebridge/x/specifier"
	"github.com/compose-network/aebridge/x/terminology"
	"github.com/compose-network/aebridge/x/transport"
)

func newRouter(t *testing.T, withDispatcher bool) *mux.Router {
	t.Helper()

	var d *dispatch.Dispatcher
	if withDispatcher {
		responder := dispatch.NewResponder(nil, zerolog.Nop())
		get, err := dispatch.CommandFromTerminology(nil, "get")
		require.NoError(t, err)
		responder.HandleCommand(get, func(_ context.Context, req *dispatch.Request) (any, error) {
			ref, ok := req.Direct().(*specifier.Node)
			if !ok || ref.Form() != specifier.FormProperty {
				return nil, &dispatch.ApplicationError{Number: -1728, Message: "Can't get object."}
			}
			return "Untitled", nil
		})

		loop := dispatch.NewLoopback(responder)
		d, err = dispatch.New(loop, loop, transport.ByName("TextEdit"), dispatch.WithLogger(zerolog.Nop()))
		require.NoError(t, err)
	}

	h := NewHandler(terminology.Default(), d, zerolog.Nop())
	r := mux.NewRouter()
	require.NoError(t, h.RegisterMux(r))
	return r
}

func post(t *testing.T, r http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandler_EncodeThenDecode(t *testing.T) {
	t.Parallel()

	r := newRouter(t, false)

	rec := post(t, r, routeEncode, map[string]any{"value": "odd"})
	require.Equal(t, http.StatusOK, rec.Code)
	var enc EncodeReply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &enc))
	assert.Equal(t, "646c653200000000"+"7574787400000006"+"006f00640064", enc.Hex)
	assert.Equal(t, 22, enc.Size)

	rec = post(t, r, routeDecode, DecodeArgs{Hex: enc.Hex})
	require.Equal(t, http.StatusOK, rec.Code)
	var dec ValueReply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dec))
	assert.JSONEq(t, `"odd"`, string(dec.Value))
}

func TestHandler_EncodeNested(t *testing.T) {
	t.Parallel()

	r := newRouter(t, false)
	top := false
	rec := post(t, r, routeEncode, EncodeArgs{Value: json.RawMessage(`1`), TopLevel: &top})
	require.Equal(t, http.StatusOK, rec.Code)

	var enc EncodeReply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &enc))
	assert.Equal(t, "6c6f6e670000000400000001", enc.Hex)

	rec = post(t, r, routeDecode, DecodeArgs{Hex: "0x" + enc.Hex})
	require.Equal(t, http.StatusOK, rec.Code)
	var dec ValueReply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dec))
	assert.JSONEq(t, `1`, string(dec.Value))
}

func TestHandler_TaggedValuesSurviveTheWire(t *testing.T) {
	t.Parallel()

	r := newRouter(t, false)
	value := `{"name": "x", "kind": {"$type": "document"}, "at": {"$date": "2024-01-02T03:04:05Z"}, "n": 2.5}`

	rec := post(t, r, routeEncode, EncodeArgs{Value: json.RawMessage(value)})
	require.Equal(t, http.StatusOK, rec.Code)
	var enc EncodeReply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &enc))

	rec = post(t, r, routeDecode, DecodeArgs{Hex: enc.Hex})
	require.Equal(t, http.StatusOK, rec.Code)
	var dec ValueReply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dec))
	assert.JSONEq(t, value, string(dec.Value))
}

func TestHandler_Failures(t *testing.T) {
	t.Parallel()

	r := newRouter(t, false)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{name: "bad hex", path: routeDecode, body: DecodeArgs{Hex: "zz"}, status: http.StatusBadRequest},
		{name: "truncated", path: routeDecode, body: DecodeArgs{Hex: "646c6532000000007574"}, status: http.StatusUnprocessableEntity},
		{name: "unresolved keyword", path: routeEncode, body: EncodeArgs{Value: json.RawMessage(`{"$type": "no such type"}`)}, status: http.StatusUnprocessableEntity},
		{name: "missing value", path: routeEncode, body: map[string]any{}, status: http.StatusBadRequest},
		{name: "dispatch disabled", path: routeDispatch, body: DispatchArgs{Command: "get"}, status: http.StatusServiceUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := post(t, r, tc.path, tc.body)
			assert.Equal(t, tc.status, rec.Code)

			var body map[string]map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"]["code"])
		})
	}
}

func TestHandler_Dispatch(t *testing.T) {
	t.Parallel()

	r := newRouter(t, true)

	rec := post(t, r, routeDispatch, DispatchArgs{
		Command:   "get",
		Reference: []Step{{Op: "property", Arg: json.RawMessage(`"name"`)}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var reply ValueReply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.JSONEq(t, `"Untitled"`, string(reply.Value))

	rec = post(t, r, routeDispatch, DispatchArgs{
		Command:   "get",
		Reference: []Step{{Op: "elements", Arg: json.RawMessage(`"documents"`)}, {Op: "at", Arg: json.RawMessage(`1`)}},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var failure map[string]map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &failure))
	assert.Equal(t, "application_error", failure["error"]["code"])
	details, ok := failure["error"]["details"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, -1728, details["number"], 0)

	rec = post(t, r, routeDispatch, DispatchArgs{Command: "frobnicate"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = post(t, r, routeDispatch, DispatchArgs{
		Command:   "get",
		Reference: []Step{{Op: "sideways"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRPC_BridgeMethods(t *testing.T) {
	t.Parallel()

	r := newRouter(t, true)
	call := func(method string, args, reply any) error {
		body, err := json2.EncodeClientRequest(method, args)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, routeRPC, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		return json2.DecodeClientResponse(rec.Body, reply)
	}

	var enc EncodeReply
	require.NoError(t, call("Bridge.Encode", EncodeArgs{Value: json.RawMessage(`true`)}, &enc))
	assert.Equal(t, "646c6532000000007472756500000000", enc.Hex)

	var dec ValueReply
	require.NoError(t, call("Bridge.Decode", DecodeArgs{Hex: enc.Hex}, &dec))
	assert.JSONEq(t, `true`, string(dec.Value))

	var got ValueReply
	require.NoError(t, call("Bridge.Dispatch", DispatchArgs{
		Command:   "get",
		Reference: []Step{{Op: "property", Arg: json.RawMessage(`"name"`)}},
	}, &got))
	assert.JSONEq(t, `"Untitled"`, string(got.Value))

	err := call("Bridge.Decode", DecodeArgs{Hex: "zz"}, &dec)
	var rpcErr *json2.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, json2.E_BAD_PARAMS, rpcErr.Code)
}

func TestParseValue(t *testing.T) {
	t.Parallel()

	v, err := ParseValue([]byte(`[1, 2.5, 4294967296, {"$enum": "yes"}, {"$file": "/tmp/a b"}, {"$type": "x", "extra": 1}]`))
	require.NoError(t, err)

	items, ok := v.([]any)
	require.True(t, ok)
	require.Len(t, items, 6)
	assert.Equal(t, int64(1), items[0])
	assert.InDelta(t, 2.5, items[1], 0)
	assert.Equal(t, int64(4294967296), items[2])
	assert.Equal(t, desc.EnumKeyword("yes"), items[3])
	assert.Equal(t, desc.File{Path: "/tmp/a b"}, items[4])
	assert.IsType(t, map[string]any{}, items[5], "objects with more keys stay records")

	_, err = ParseValue([]byte(`{"$date": "yesterday"}`))
	require.Error(t, err)
	_, err = ParseValue([]byte(`1 2`))
	require.Error(t, err)
	_, err = ParseValue(nil)
	require.Error(t, err)
}

func TestRenderValue(t *testing.T) {
	t.Parallel()

	env := specifier.NewEnv(nil, nil)
	name, err := specifier.Target(env).Property("name")
	require.NoError(t, err)

	out := RenderValue(map[string]any{
		"ref":   name,
		"when":  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		"kind":  desc.CodeKeyword(desc.TypeEnumerated, desc.PositionEnd),
		"range": desc.Range{Start: 1, Stop: 2},
	})
	m, ok := out.(map[string]any)
	require.True(t, ok)

	ref, ok := m["ref"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, name.String(), ref[tagReference])
	assert.NotEmpty(t, ref["hex"])
	assert.Equal(t, map[string]any{tagDate: "2024-01-02T03:04:05Z"}, m["when"])
	assert.Contains(t, m["kind"], tagEnum)
	assert.Equal(t, map[string]any{tagRange: []any{1, 2}}, m["range"])

	raw, err := MarshalValue(m)
	require.NoError(t, err)
	assert.True(t, json.Valid(raw))
}

func TestClient_CallsRunningServer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(newRouter(t, true))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL+routeRPC, srv.Client(), zerolog.Nop())
	ctx := context.Background()

	var enc EncodeReply
	require.NoError(t, c.Call(ctx, "Encode", EncodeArgs{Value: json.RawMessage(`[1, "a"]`)}, &enc))
	assert.NotEmpty(t, enc.Hex)

	var got ValueReply
	require.NoError(t, c.Call(ctx, "Bridge.Dispatch", DispatchArgs{
		Command:   "get",
		Reference: []Step{{Op: "property", Arg: json.RawMessage(`"name"`)}},
	}, &got))
	assert.JSONEq(t, `"Untitled"`, string(got.Value))

	err := c.Call(ctx, "Dispatch", DispatchArgs{Command: "frobnicate"}, &got)
	var rpcErr *json2.Error
	require.ErrorAs(t, err, &rpcErr)
	data, ok := rpcErr.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "not_found", data["code"])

	bad := NewClient(srv.URL+"/nowhere", srv.Client(), zerolog.Nop())
	require.Error(t, bad.Call(ctx, "Encode", EncodeArgs{Value: json.RawMessage(`1`)}, &enc))
}
