package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compose-network/aebridge/x/transport"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8088", cfg.API.ListenAddr)
	assert.Equal(t, "limited", cfg.Dispatch.Relaunch)
	assert.Equal(t, 120*time.Second, cfg.Dispatch.Timeout)
	assert.Equal(t, []string{"case"}, cfg.Dispatch.Ignoring)
	assert.Equal(t, 10*1024*1024, cfg.Transport.MaxMessageSize)
	assert.True(t, cfg.Metrics.Enabled)

	opts, err := cfg.DispatchOptions()
	require.NoError(t, err)
	assert.Len(t, opts, 4)
}

func TestLoad_FileOverrides(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
transport:
  listen_addr: "127.0.0.1:9000"
dispatch:
  target: "bundle:com.example.Demo"
  relaunch: always
  timeout: 5s
  ignoring: [case, punctuation]
log:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Transport.ListenAddr)
	assert.Equal(t, 5*time.Second, cfg.Dispatch.Timeout)
	assert.Equal(t, []string{"case", "punctuation"}, cfg.Dispatch.Ignoring)
	assert.Equal(t, "debug", cfg.Log.Level)

	target, err := ParseTarget(cfg.Dispatch.Target)
	require.NoError(t, err)
	assert.Equal(t, transport.ByBundleID("com.example.Demo"), target)
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"relaunch":     "dispatch:\n  relaunch: sometimes\n",
		"target":       "dispatch:\n  target: \"pid:abc\"\n",
		"message size": "transport:\n  max_message_size: 0\n",
		"metrics path": "metrics:\n  path: metrics\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestParseTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want transport.Target
	}{
		{in: "", want: transport.Current()},
		{in: "current", want: transport.Current()},
		{in: "name:TextEdit", want: transport.ByName("TextEdit")},
		{in: "path:/Applications/Demo.app", want: transport.ByPath("/Applications/Demo.app")},
		{in: "pid:42", want: transport.ByPID(42)},
		{in: "url:eppc://host/Demo", want: transport.ByURL("eppc://host/Demo")},
	}
	for _, tc := range tests {
		got, err := ParseTarget(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, bad := range []string{"TextEdit", "name:", "pid:0", "socket:x"} {
		_, err := ParseTarget(bad)
		assert.Error(t, err, bad)
	}
}
