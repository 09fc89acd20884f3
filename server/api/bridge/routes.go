package bridge

// Route patterns for the bridge HTTP surface.
const (
	routeEncode   = "/v1/encode"
	routeDecode   = "/v1/decode"
	routeDispatch = "/v1/dispatch"
	routeRPC      = "/rpc"
)

// Route names for mux URL building.
const (
	routeNameEncode   = "bridge_encode"
	routeNameDecode   = "bridge_decode"
	routeNameDispatch = "bridge_dispatch"
	routeNameRPC      = "bridge_rpc"
)
