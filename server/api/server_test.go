package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compose-network/aebridge/server/api/middleware"
)

func TestServer_StartServesRoutes(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	s := NewServer(cfg, zerolog.New(io.Discard))
	s.Use(middleware.RequestID())
	s.Router.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}).Methods(http.MethodGet)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	require.Eventually(t, func() bool { return s.Addr() != nil }, 5*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + s.Addr().String() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"healthy"}`, string(body))
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
}

func TestWriteError_Envelope(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/decode", nil)
	WriteError(rec, req, http.StatusUnprocessableEntity, "decode_failed", "truncated", map[string]int{"offset": 8})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"code":"decode_failed"`)
	assert.Contains(t, rec.Body.String(), `"offset":8`)
}

func TestEnableCORS_Preflight(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.EnableCORS = true
	s := NewServer(cfg, zerolog.New(io.Discard))
	s.Router.HandleFunc("/v1/encode", func(http.ResponseWriter, *http.Request) {}).
		Methods(http.MethodPost, http.MethodOptions)

	req := httptest.NewRequest(http.MethodOptions, "/v1/encode", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestConfig_CoverDispatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		write   time.Duration
		timeout time.Duration
		want    time.Duration
	}{
		{name: "default covers default", write: DefaultConfig().WriteTimeout, timeout: 120 * time.Second, want: 150 * time.Second},
		{name: "raised for long dispatches", write: 150 * time.Second, timeout: 10 * time.Minute, want: 10*time.Minute + 30*time.Second},
		{name: "unbounded stays unbounded", write: 0, timeout: time.Minute, want: 0},
		{name: "dispatch waits forever", write: 150 * time.Second, timeout: 0, want: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			cfg.WriteTimeout = tc.write
			assert.Equal(t, tc.want, cfg.CoverDispatch(tc.timeout).WriteTimeout)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.ListenAddr = "8088"
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.ReadTimeout = -time.Second
	require.Error(t, cfg.Validate())
}
