// Package bridge exposes the descriptor codec and the dispatcher over HTTP:
// JSON routes under /v1 and a JSON-RPC 2.0 service at /rpc.
package bridge

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	apicommon "github.com/compose-network/aebridge/server/api"
	"github.com/compose-network/aebridge/server/api/middleware"
	"github.com/compose-network/aebridge/x/desc"
	"github.com/compose-network/aebridge/x/dispatch"
	"github.com/compose-network/aebridge/x/specifier"
	"github.com/compose-network/aebridge/x/terminology"
	"github.com/compose-network/aebridge/x/transport"
)

var (
	errNoDispatcher = errors.New("no dispatcher configured")
	errBadRequest   = errors.New("bad request")
)

type Handler struct {
	enc        *desc.Encoder
	dec        *desc.Decoder
	dispatcher *dispatch.Dispatcher
	log        zerolog.Logger
}

// NewHandler creates a handler. A nil dispatcher disables the dispatch
// route; encode and decode still work. References in decoded values share
// the dispatcher's environment when there is one.
func NewHandler(terms terminology.Terms, d *dispatch.Dispatcher, log zerolog.Logger) *Handler {
	env := specifier.NewEnv(terms, nil)
	if d != nil {
		env = d.Env()
	}
	return &Handler{
		enc:        desc.NewEncoder(terms),
		dec:        specifier.NewDecoder(env),
		dispatcher: d,
		log:        log.With().Str("component", "bridge-http").Logger(),
	}
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// Encode encodes a JSON value to descriptor bytes.
func (h *Handler) Encode(args *EncodeArgs) (*EncodeReply, error) {
	v, err := ParseValue(args.Value)
	if err != nil {
		return nil, badRequest("value: %v", err)
	}

	var data []byte
	if args.TopLevel == nil || *args.TopLevel {
		data, err = h.enc.Encode(v)
	} else {
		w := desc.NewWriter(0)
		if err = h.enc.WriteValue(w, v); err == nil {
			data = w.Bytes()
		}
	}
	if err != nil {
		return nil, err
	}
	return &EncodeReply{Hex: hex.EncodeToString(data), Size: len(data)}, nil
}

// Decode decodes descriptor bytes given as hex. Data starting with the file
// header is read as a standalone descriptor, anything else as a nested one.
func (h *Handler) Decode(args *DecodeArgs) (*ValueReply, error) {
	data, err := DecodeHex(args.Hex)
	if err != nil {
		return nil, badRequest("hex: %v", err)
	}
	if len(data) == 0 {
		return nil, badRequest("hex is empty")
	}

	var v any
	if len(data) >= 4 && bytes.Equal(data[:4], []byte("dle2")) {
		v, err = h.dec.Decode(data)
	} else {
		v, err = h.dec.DecodeDesc(data)
	}
	if err != nil {
		return nil, err
	}
	out, err := MarshalValue(v)
	if err != nil {
		return nil, err
	}
	return &ValueReply{Value: out}, nil
}

// Dispatch builds the reference, sends the command and renders its result.
func (h *Handler) Dispatch(ctx context.Context, args *DispatchArgs) (*ValueReply, error) {
	if h.dispatcher == nil {
		return nil, errNoDispatcher
	}

	cmd, err := h.command(args)
	if err != nil {
		return nil, err
	}
	middleware.Annotate(ctx, "command", cmd.String())
	target, err := h.reference(args.Reference)
	if err != nil {
		return nil, err
	}

	var params map[string]any
	if len(bytes.TrimSpace(args.Params)) > 0 {
		v, err := ParseValue(args.Params)
		if err != nil {
			return nil, badRequest("params: %v", err)
		}
		m, ok := v.(map[string]any)
		if !ok && v != nil {
			return nil, badRequest("params must be an object, got %T", v)
		}
		params = m
	}

	result, err := h.dispatcher.Dispatch(ctx, cmd, target, params)
	if err != nil {
		return nil, err
	}
	out, err := MarshalValue(result)
	if err != nil {
		return nil, err
	}
	return &ValueReply{Value: out}, nil
}

func (h *Handler) command(args *DispatchArgs) (dispatch.Command, error) {
	name := strings.TrimSpace(args.Command)
	if args.Class != "" || args.ID != "" {
		if name == "" {
			name = args.Class + "/" + args.ID
		}
		cmd, err := dispatch.NewCommand(name, args.Class, args.ID, nil)
		if err != nil {
			return dispatch.Command{}, badRequest("%v", err)
		}
		return cmd, nil
	}
	if name == "" {
		return dispatch.Command{}, badRequest("command is required")
	}
	return h.dispatcher.Command(name)
}

// reference applies steps to the application root.
func (h *Handler) reference(steps []Step) (*specifier.Node, error) {
	n := h.dispatcher.Root()
	for i, step := range steps {
		next, err := applyStep(n, step)
		if err != nil {
			return nil, badRequest("reference step %d (%s): %v", i, step.Op, err)
		}
		n = next
	}
	return n, nil
}

func applyStep(n *specifier.Node, step Step) (*specifier.Node, error) {
	arg, err := stepArg(step.Arg)
	if err != nil {
		return nil, err
	}
	str, _ := arg.(string)

	switch strings.ToLower(step.Op) {
	case "property":
		return n.Property(str)
	case "user_property":
		return n.UserProperty(str)
	case "elements":
		return n.Elements(str)
	case "first":
		return n.First()
	case "middle":
		return n.Middle()
	case "last":
		return n.Last()
	case "any":
		return n.Any()
	case "at":
		return n.At(arg)
	case "named":
		return n.Named(arg)
	case "id":
		return n.ID(arg)
	case "thru":
		bounds, ok := arg.([]any)
		if !ok || len(bounds) != 2 {
			return nil, errors.New("thru wants [start, stop]")
		}
		return n.Thru(bounds[0], bounds[1])
	case "previous":
		return n.Previous(str)
	case "next":
		return n.Next(str)
	case "before":
		return n.Before()
	case "after":
		return n.After()
	case "beginning":
		return n.Beginning()
	case "end":
		return n.End()
	case "member":
		return n.ResolveMember(str)
	default:
		return nil, fmt.Errorf("unknown op %q", step.Op)
	}
}

func stepArg(raw json.RawMessage) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	return ParseValue(raw)
}

func (h *Handler) handleEncode(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var args EncodeArgs
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
		apicommon.WriteError(w, r, http.StatusBadRequest, "invalid_json", "failed to decode request", nil)
		return
	}
	reply, err := h.Encode(&args)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	apicommon.WriteJSON(w, http.StatusOK, reply)
}

func (h *Handler) handleDecode(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var args DecodeArgs
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
		apicommon.WriteError(w, r, http.StatusBadRequest, "invalid_json", "failed to decode request", nil)
		return
	}
	reply, err := h.Decode(&args)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	apicommon.WriteJSON(w, http.StatusOK, reply)
}

func (h *Handler) handleDispatch(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var args DispatchArgs
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
		apicommon.WriteError(w, r, http.StatusBadRequest, "invalid_json", "failed to decode request", nil)
		return
	}
	reply, err := h.Dispatch(r.Context(), &args)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	apicommon.WriteJSON(w, http.StatusOK, reply)
}

// failure maps an error to its HTTP status, error code and details.
func failure(err error) (int, string, any) {
	var (
		appErr *dispatch.ApplicationError
		encErr *desc.EncodeError
		decErr *desc.DecodeError
		tErr   *transport.Error
		srcErr *terminology.SourceError
	)
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "invalid_request", nil
	case errors.Is(err, errNoDispatcher):
		return http.StatusServiceUnavailable, "dispatch_disabled", nil
	case errors.As(err, &srcErr):
		return http.StatusServiceUnavailable, "terminology_unavailable", map[string]any{"source": srcErr.Source}
	case errors.Is(err, dispatch.ErrUnknownCommand), errors.Is(err, specifier.ErrNotFound):
		return http.StatusNotFound, "not_found", nil
	case errors.As(err, &appErr):
		details := map[string]any{"number": appErr.Number}
		if appErr.Message != "" {
			details["message"] = appErr.Message
		}
		return http.StatusUnprocessableEntity, "application_error", details
	case errors.As(err, &tErr):
		return http.StatusBadGateway, "transport_error", map[string]any{"status": tErr.Code}
	case errors.As(err, &encErr):
		return http.StatusUnprocessableEntity, "encode_failed", nil
	case errors.As(err, &decErr):
		return http.StatusUnprocessableEntity, "decode_failed", map[string]any{"offset": decErr.Offset}
	case errors.Is(err, dispatch.ErrUnknownParameter), errors.Is(err, dispatch.ErrInvalidOption):
		return http.StatusBadRequest, "invalid_request", nil
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout, "canceled", nil
	default:
		return http.StatusInternalServerError, "internal", nil
	}
}

func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status, code, details := failure(err)
	middleware.Annotate(r.Context(), "error_code", code)
	if status >= http.StatusInternalServerError {
		h.log.Warn().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	apicommon.WriteError(w, r, status, code, err.Error(), details)
}
