package main

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compose-network/aebridge/x/desc"
	"github.com/compose-network/aebridge/x/dispatch"
	"github.com/compose-network/aebridge/x/specifier"
	"github.com/compose-network/aebridge/x/terminology"
	"github.com/compose-network/aebridge/x/transport"
)

func newDemoDispatcher(t *testing.T) (*dispatch.Dispatcher, *transport.Loopback) {
	t.Helper()

	terms := terminology.Default()
	r := dispatch.NewResponder(terms, zerolog.Nop())
	var loop *transport.Loopback
	demo := newDemoApp("Demo", func() { loop.Quit() })
	require.NoError(t, demo.register(r, terms))
	loop = dispatch.NewLoopback(r)

	d, err := dispatch.New(loop, loop, transport.ByName("Demo"),
		dispatch.WithLogger(zerolog.Nop()), dispatch.WithTerminology(terms))
	require.NoError(t, err)
	return d, loop
}

func call(t *testing.T, d *dispatch.Dispatcher, name string, target *specifier.Node, params map[string]any) (any, error) {
	t.Helper()
	cmd, err := d.Command(name)
	require.NoError(t, err)
	return d.Dispatch(context.Background(), cmd, target, params)
}

// mustNode returns a helper unwrapping chain builder results.
func mustNode(t *testing.T) func(*specifier.Node, error) *specifier.Node {
	return func(n *specifier.Node, err error) *specifier.Node {
		t.Helper()
		require.NoError(t, err)
		return n
	}
}

func TestDemo_DocumentLifecycle(t *testing.T) {
	t.Parallel()

	d, _ := newDemoDispatcher(t)
	must := mustNode(t)
	docs := must(d.Root().Elements("documents"))

	n, err := call(t, d, "count", docs, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	made, err := call(t, d, "make", d.Root(), map[string]any{
		"new":            desc.TypeKeyword("document"),
		"withProperties": map[string]any{"name": "Notes", "contents": "hello"},
	})
	require.NoError(t, err)
	ref, ok := made.(*specifier.Node)
	require.True(t, ok, "make returns a reference, got %T", made)
	assert.Equal(t, specifier.FormUniqueID, ref.Form())

	notes := must(docs.Named("Notes"))
	got, err := call(t, d, "get", must(notes.Property("contents")), nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	_, err = call(t, d, "set", must(notes.Property("name")), map[string]any{"to": "Renamed"})
	require.NoError(t, err)
	got, err = call(t, d, "get", must(must(docs.Last()).Property("name")), nil)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got)

	_, err = call(t, d, "delete", must(docs.Named("Renamed")), nil)
	require.NoError(t, err)
	exists, err := call(t, d, "exists", must(docs.Named("Renamed")), nil)
	require.NoError(t, err)
	assert.Equal(t, false, exists)

	n, err = call(t, d, "count", docs, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDemo_ApplicationProperties(t *testing.T) {
	t.Parallel()

	d, _ := newDemoDispatcher(t)
	must := mustNode(t)

	got, err := call(t, d, "get", must(d.Root().Property("name")), nil)
	require.NoError(t, err)
	assert.Equal(t, "Demo", got)

	got, err = call(t, d, "get", must(d.Root().Property("frontmost")), nil)
	require.NoError(t, err)
	assert.Equal(t, true, got)
}

func TestDemo_Errors(t *testing.T) {
	t.Parallel()

	d, _ := newDemoDispatcher(t)
	must := mustNode(t)
	docs := must(d.Root().Elements("documents"))

	tests := []struct {
		name   string
		cmd    string
		target *specifier.Node
		params map[string]any
		number int
	}{
		{
			name:   "missing document",
			cmd:    "get",
			target: must(must(docs.At(5)).Property("name")),
			number: errNoSuchObject,
		},
		{
			name:   "read-only property",
			cmd:    "set",
			target: must(must(docs.First()).Property("id")),
			params: map[string]any{"to": "x"},
			number: errAccessDenied,
		},
		{
			name:   "wrong class",
			cmd:    "make",
			target: d.Root(),
			params: map[string]any{"new": desc.TypeKeyword("window")},
			number: errWrongClass,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := call(t, d, tc.cmd, tc.target, tc.params)
			require.Error(t, err)
			var appErr *dispatch.ApplicationError
			require.True(t, errors.As(err, &appErr), "got %v", err)
			assert.Equal(t, tc.number, appErr.Number)
		})
	}
}

func TestDemo_QuitStopsLoopback(t *testing.T) {
	t.Parallel()

	d, loop := newDemoDispatcher(t)
	must := mustNode(t)

	_, err := call(t, d, "quit", d.Root(), nil)
	require.NoError(t, err)

	_, err = call(t, d, "get", must(d.Root().Property("name")), nil)
	require.Error(t, err)
	assert.Positive(t, loop.Sends())
}
