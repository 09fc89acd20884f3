package bridge

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterMux binds the /v1 routes and the JSON-RPC endpoint.
func (h *Handler) RegisterMux(r *mux.Router) error {
	r.HandleFunc(routeEncode, h.handleEncode).Methods(http.MethodPost).Name(routeNameEncode)
	r.HandleFunc(routeDecode, h.handleDecode).Methods(http.MethodPost).Name(routeNameDecode)
	r.HandleFunc(routeDispatch, h.handleDispatch).Methods(http.MethodPost).Name(routeNameDispatch)

	rpcServer, err := NewRPCServer(h)
	if err != nil {
		return err
	}
	r.Handle(routeRPC, rpcServer).Methods(http.MethodPost).Name(routeNameRPC)
	return nil
}
