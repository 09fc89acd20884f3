package tcp

import (
	"context"
	"io"
	"net"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compose-network/aebridge/x/transport"
)

var event = []byte{'d', 'l', 'e', '2', 0, 0, 0, 0, 'n', 'u', 'l', 'l', 0, 0, 0, 0}

func startServer(t *testing.T, backend Backend) *Client {
	t.Helper()
	return startServerWith(t, NewServer(backend, zerolog.New(io.Discard)))
}

func startServerWith(t *testing.T, srv *Server) *Client {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	return NewClient(ln.Addr().String(), zerolog.New(io.Discard))
}

func TestClient_SendRoundTrip(t *testing.T) {
	t.Parallel()

	backend := transport.NewLoopback(func(_ context.Context, ev []byte, _ []byte) ([]byte, error) {
		return ev, nil
	})
	client := startServer(t, backend)
	ctx := context.Background()

	addr, err := client.Resolve(ctx, transport.ByName("Finder"))
	require.NoError(t, err)
	pid, ok := transport.ProcessFromAddress(addr)
	require.True(t, ok)
	assert.NotZero(t, pid)

	h, err := client.Inflate(event)
	require.NoError(t, err)

	reply, err := client.Send(ctx, h, addr, transport.DefaultSendFlags, transport.DefaultTimeout)
	require.NoError(t, err)
	assert.Equal(t, event, reply)
	assert.Equal(t, int64(1), backend.Sends())
}

func TestClient_RemoteStatusSurfaces(t *testing.T) {
	t.Parallel()

	backend := transport.NewLoopback(nil)
	backend.FailNext(transport.ProcNotFound)
	client := startServer(t, backend)

	h, err := client.Inflate(event)
	require.NoError(t, err)

	_, err = client.Send(context.Background(), h, nil, transport.DefaultSendFlags, transport.DefaultTimeout)
	require.Error(t, err)
	assert.True(t, transport.IsProcessGone(err))
}

func TestClient_NoReply(t *testing.T) {
	t.Parallel()

	backend := transport.NewLoopback(func(_ context.Context, ev []byte, _ []byte) ([]byte, error) {
		return ev, nil
	})
	client := startServer(t, backend)

	h, err := client.Inflate(event)
	require.NoError(t, err)

	reply, err := client.Send(context.Background(), h, nil, transport.NoReply, transport.DefaultTimeout)
	require.NoError(t, err)
	assert.Nil(t, reply)
}

func TestClient_DialFailureIsProcessGone(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	client := NewClient(addr, zerolog.New(io.Discard))
	_, err = client.Resolve(context.Background(), transport.ByName("Finder"))
	assert.Equal(t, transport.ProcNotFound, transport.Code(err))
}

func TestFrames_ResolveRoundTrip(t *testing.T) {
	t.Parallel()

	in := transport.ByBundleID("com.example.app")
	out, err := unmarshalResolve(marshalResolve(in)[1:])
	require.NoError(t, err)
	assert.Equal(t, in, out)

	req := sendRequest{flags: transport.WaitReply, ticks: 120, address: []byte{1, 2}, event: event}
	got, err := unmarshalSend(req.marshal()[1:])
	require.NoError(t, err)
	assert.Equal(t, req, got)

	_, err = unmarshalSend([]byte{0, 0})
	assert.ErrorIs(t, err, errShortFrame)
}

func TestServer_RecordsRequestMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	backend := transport.NewLoopback(func(_ context.Context, ev []byte, _ []byte) ([]byte, error) {
		return ev, nil
	})
	client := startServerWith(t, NewServer(backend, zerolog.New(io.Discard)).WithMetrics(reg))
	ctx := context.Background()

	addr, err := client.Resolve(ctx, transport.ByName("Finder"))
	require.NoError(t, err)
	h, err := client.Inflate(event)
	require.NoError(t, err)
	_, err = client.Send(ctx, h, addr, transport.DefaultSendFlags, transport.DefaultTimeout)
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)

	requests := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "aebridge_transport_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "op" {
					requests[l.GetValue()] += m.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, map[string]float64{"resolve": 1, "send": 1}, requests)
}
