package specifier

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compose-network/aebridge/x/desc"
	"github.com/compose-network/aebridge/x/fourcc"
	"github.com/compose-network/aebridge/x/terminology"
)

func words(parts ...any) []byte {
	var b []byte
	for _, p := range parts {
		switch v := p.(type) {
		case string:
			b = binary.BigEndian.AppendUint32(b, fourcc.Make(v))
		case int:
			b = binary.BigEndian.AppendUint32(b, uint32(v))
		}
	}
	return b
}

// must unwraps a builder result, failing t on error.
func must(t *testing.T) func(*Node, error) *Node {
	return func(n *Node, err error) *Node {
		t.Helper()
		require.NoError(t, err)
		return n
	}
}

type recordingInvoker struct {
	cmd    terminology.Command
	target *Node
	params map[string]any
}

func (r *recordingInvoker) Dispatch(_ context.Context, cmd terminology.Command, target *Node, params map[string]any) (any, error) {
	r.cmd, r.target, r.params = cmd, target, params
	return "ok", nil
}

func TestPack_PropertyOfTarget(t *testing.T) {
	t.Parallel()

	name := must(t)(Target(NewEnv(nil, nil)).Property("name"))
	data, err := name.Pack()
	require.NoError(t, err)

	want := words(
		"obj ", 68, 4, 0,
		"want", "type", 4, "prop",
		"form", "enum", 4, "prop",
		"seld", "type", 4, "pnam",
		"from", "null", 0,
	)
	assert.Equal(t, want, data)
}

func TestBuilders_LeaveParentUntouched(t *testing.T) {
	t.Parallel()

	docs := must(t)(Target(NewEnv(nil, nil)).Elements("documents"))
	before, err := docs.Pack()
	require.NoError(t, err)
	snapshot := append([]byte(nil), before...)

	first := must(t)(docs.First())
	must(t)(first.Property("name"))
	must(t)(docs.Thru(1, 3))
	must(t)(docs.Next(""))

	after, err := docs.Pack()
	require.NoError(t, err)
	assert.Equal(t, snapshot, after)
	assert.Equal(t, FormAbsolutePosition, docs.Form())
	assert.True(t, docs.Can(SelFirst))
}

func TestBuilders_ContainerOfSelections(t *testing.T) {
	t.Parallel()

	root := Target(NewEnv(nil, nil))
	docs := must(t)(root.Elements("documents"))

	first := must(t)(docs.First())
	parent, err := first.Parent()
	require.NoError(t, err)
	assert.Same(t, root, parent, "many-to-one selectors replace the all-elements node")

	next := must(t)(docs.Next(""))
	parent, err = next.Parent()
	require.NoError(t, err)
	assert.Same(t, docs, parent, "relative selectors keep the all-elements node")
}

func TestBuilders_CapabilitiesGateSelectors(t *testing.T) {
	t.Parallel()

	root := Target(NewEnv(nil, nil))
	_, err := root.First()
	require.ErrorIs(t, err, ErrNotFound)

	docs := must(t)(root.Elements("documents"))
	_, err = docs.Before()
	require.ErrorIs(t, err, ErrNotFound)

	end := must(t)(must(t)(docs.At(1)).End())
	_, err = end.Property("name")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{SelCommand}, end.Capabilities())
}

func TestWhere_RequiresExaminedOperand(t *testing.T) {
	t.Parallel()

	env := NewEnv(nil, nil)
	docs := must(t)(Target(env).Elements("documents"))
	outside := must(t)(Target(env).Property("name"))

	_, err := docs.Where(outside)
	require.ErrorIs(t, err, ErrNotExamined)

	_, err = outside.Equal("x")
	require.ErrorIs(t, err, ErrNotFound, "comparisons exist only on examined references")

	visible := must(t)(Examined(env).Property("visible"))
	filtered := must(t)(docs.Where(visible))
	test, ok := filtered.Selector().(*Node)
	require.True(t, ok)
	cmp, ok := test.seld.(comparison)
	require.True(t, ok)
	assert.Equal(t, desc.OperatorEqual, cmp.op)
	assert.Equal(t, true, cmp.right)
}

func TestFilters_NotEqualAndIsIn(t *testing.T) {
	t.Parallel()

	env := NewEnv(nil, nil)
	it := must(t)(Examined(env).Property("name"))

	ne := must(t)(it.NotEqual("x"))
	lg, ok := ne.seld.(logical)
	require.True(t, ok)
	assert.Equal(t, desc.LogicalNot, lg.op)
	require.Len(t, lg.terms, 1)
	assert.Equal(t, desc.OperatorEqual, lg.terms[0].seld.(comparison).op)

	in := must(t)(it.IsIn([]any{"a", "b"}))
	cmp := in.seld.(comparison)
	assert.Equal(t, desc.OperatorContains, cmp.op)
	assert.Equal(t, []any{"a", "b"}, cmp.left)
	assert.Same(t, it, cmp.right)

	_, err := ne.And()
	require.ErrorIs(t, err, ErrMalformedChain)
}

func TestPack_UnresolvedNamesFail(t *testing.T) {
	t.Parallel()

	root := Target(NewEnv(nil, nil))

	gizmos := must(t)(root.Elements("gizmos"))
	_, err := gizmos.Pack()
	var encErr *desc.EncodeError
	require.ErrorAs(t, err, &encErr)
	require.ErrorIs(t, err, desc.ErrUnresolvedName)

	_, err = must(t)(root.Property("frobnicity")).Pack()
	require.ErrorIs(t, err, desc.ErrUnresolvedName)

	literal := must(t)(root.Property("'pnam'"))
	_, err = literal.Pack()
	require.NoError(t, err)
}

func sampleChains(t *testing.T, env *Env) []*Node {
	t.Helper()

	root := Target(env)
	docs := must(t)(root.Elements("documents"))
	doc := must(t)(docs.At(2))
	paras := must(t)(doc.Elements("paragraphs"))
	startsA := must(t)(must(t)(Examined(env).Property("name")).BeginsWith("A"))
	long := must(t)(must(t)(Examined(env).Property("index")).GreaterThan(3))
	both := must(t)(startsA.And(long))

	return []*Node{
		must(t)(root.Property("name")),
		must(t)(doc.Property("name")),
		must(t)(must(t)(paras.Where(both)).Property("contents")),
		must(t)(must(t)(docs.Thru(1, "Notes")).Property("name")),
		must(t)(must(t)(docs.Named("Notes")).End()),
		must(t)(docs.Previous("window")),
		must(t)(must(t)(docs.Last()).UserProperty("tag")),
	}
}

func TestDecode_EagerAndDeferredAgree(t *testing.T) {
	t.Parallel()

	env := NewEnv(nil, nil)
	eager := NewDecoder(env)
	deferred := NewDecoder(env, desc.WithDeferredReferences(true))

	for _, chain := range sampleChains(t, env) {
		data, err := chain.Pack()
		require.NoError(t, err, chain.String())

		ev, err := eager.DecodeDesc(data)
		require.NoError(t, err)
		dv, err := deferred.DecodeDesc(data)
		require.NoError(t, err)

		en, ok := ev.(*Node)
		require.True(t, ok)
		dn, ok := dv.(*Node)
		require.True(t, ok)

		assert.True(t, Equal(chain, en), "eager %s", chain)
		assert.True(t, Equal(en, dn), "deferred %s", chain)

		repacked, err := dn.Pack()
		require.NoError(t, err)
		assert.Equal(t, data, repacked)
	}
}

func TestDecode_DeferredResolvesOnAccess(t *testing.T) {
	t.Parallel()

	env := NewEnv(nil, nil)
	chain := must(t)(must(t)(must(t)(Target(env).Elements("documents")).At(1)).Property("name"))
	data, err := chain.Pack()
	require.NoError(t, err)

	v, err := NewDecoder(env, desc.WithDeferredReferences(true)).DecodeDesc(data)
	require.NoError(t, err)
	n := v.(*Node)
	assert.False(t, n.from.resolved())

	parent, err := n.Parent()
	require.NoError(t, err)
	assert.True(t, n.from.resolved())
	again, err := n.Parent()
	require.NoError(t, err)
	assert.Same(t, parent, again)
	assert.Equal(t, FormAbsolutePosition, parent.Form())
}

func TestDecode_MissingFieldIsMalformed(t *testing.T) {
	t.Parallel()

	w := desc.NewWriter(0)
	err := desc.NewEncoder(nil).WriteRecord(w, desc.TypeObjectSpecifier, []desc.Field{
		{Key: desc.KeyDesiredClass, Value: desc.CodeKeyword(desc.TypeType, desc.TypeProperty)},
		{Key: desc.KeyKeyForm, Value: desc.CodeKeyword(desc.TypeEnumerated, desc.FormProperty)},
		{Key: desc.KeyKeyData, Value: desc.CodeKeyword(desc.TypeType, fourcc.Make("pnam"))},
	})
	require.NoError(t, err)

	_, err = NewDecoder(NewEnv(nil, nil)).DecodeDesc(w.Bytes())
	var decErr *desc.DecodeError
	require.ErrorAs(t, err, &decErr)
	require.ErrorIs(t, err, desc.ErrMalformed)
}

func TestPack_ConcurrentCallsShareResult(t *testing.T) {
	t.Parallel()

	chain := must(t)(must(t)(Target(NewEnv(nil, nil)).Elements("windows")).At(-1))

	var wg sync.WaitGroup
	results := make([][]byte, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := chain.Pack()
			assert.NoError(t, err)
			results[i] = data
		}()
	}
	wg.Wait()

	for _, data := range results[1:] {
		assert.Equal(t, results[0], data)
	}
}

func TestResolveMember(t *testing.T) {
	t.Parallel()

	root := Target(NewEnv(nil, nil))

	name, err := root.ResolveMember("name")
	require.NoError(t, err)
	assert.Equal(t, FormProperty, name.Form())

	windows, err := root.ResolveMember("windows")
	require.NoError(t, err)
	assert.True(t, windows.Can(SelFirst))

	first, err := windows.ResolveMember("first")
	require.NoError(t, err)
	assert.Equal(t, FormAbsolutePosition, first.Form())

	get, err := root.ResolveMember("get")
	require.NoError(t, err)
	cmd, ok := get.Call()
	require.True(t, ok)
	assert.Equal(t, terminology.IDGetData, cmd.ID)

	_, err = root.ResolveMember("first")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = root.ResolveMember("bogus")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestInvoke(t *testing.T) {
	t.Parallel()

	inv := &recordingInvoker{}
	env := NewEnv(nil, inv)
	win := must(t)(must(t)(Target(env).Elements("windows")).At(1))
	name := must(t)(win.Property("name"))

	got, err := name.Invoke(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, "get", inv.cmd.Name)
	assert.Same(t, name, inv.target)

	closeCmd := must(t)(win.Command("close"))
	params := map[string]any{"saving": desc.EnumKeyword("no")}
	_, err = closeCmd.Invoke(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, "close", inv.cmd.Name)
	assert.Same(t, win, inv.target)
	assert.Equal(t, params, inv.params)

	_, err = Target(NewEnv(nil, nil)).Invoke(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoInvoker)
}
