package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" warn "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
}

func TestModule_TagsEntries(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "debug")

	mod := l.Module("dispatch")
	mod.Debug().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "dispatch", entry["module"])
	assert.Equal(t, "aebridge", entry["app"])
	assert.Equal(t, "hello", entry["message"])

	buf.Reset()
	NewWithWriter(&buf, "error").Info().Msg("dropped")
	assert.Zero(t, buf.Len())
}
