package bridge

import (
	"net/http"

	gorillarpc "github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"
)

// ServiceName is the JSON-RPC namespace: methods are called as
// "Bridge.Encode", "Bridge.Decode" and "Bridge.Dispatch".
const ServiceName = "Bridge"

// Service is the JSON-RPC 2.0 face of a Handler.
type Service struct {
	h *Handler
}

func (s *Service) Encode(_ *http.Request, args *EncodeArgs, reply *EncodeReply) error {
	out, err := s.h.Encode(args)
	if err != nil {
		return rpcError(err)
	}
	*reply = *out
	return nil
}

func (s *Service) Decode(_ *http.Request, args *DecodeArgs, reply *ValueReply) error {
	out, err := s.h.Decode(args)
	if err != nil {
		return rpcError(err)
	}
	*reply = *out
	return nil
}

func (s *Service) Dispatch(r *http.Request, args *DispatchArgs, reply *ValueReply) error {
	out, err := s.h.Dispatch(r.Context(), args)
	if err != nil {
		return rpcError(err)
	}
	*reply = *out
	return nil
}

// rpcError carries the HTTP error code in the JSON-RPC error data.
func rpcError(err error) error {
	status, code, details := failure(err)
	rpcCode := json2.E_SERVER
	if status == http.StatusBadRequest {
		rpcCode = json2.E_BAD_PARAMS
	}
	data := map[string]any{"code": code}
	if details != nil {
		data["details"] = details
	}
	return &json2.Error{Code: rpcCode, Message: err.Error(), Data: data}
}

// NewRPCServer returns a JSON-RPC 2.0 server exposing h as ServiceName.
func NewRPCServer(h *Handler) (*gorillarpc.Server, error) {
	s := gorillarpc.NewServer()
	s.RegisterCodec(json2.NewCodec(), "application/json")
	if err := s.RegisterService(&Service{h: h}, ServiceName); err != nil {
		return nil, err
	}
	return s, nil
}
