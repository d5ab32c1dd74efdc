package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/irjit/internal/ir"
	"github.com/roach88/irjit/internal/store"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	base := []Option{WithSessionIDGenerator(NewFixedGenerator("session-1"))}
	return New(append(base, opts...)...)
}

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEngine_New(t *testing.T) {
	e := newTestEngine(t)

	assert.Equal(t, "session-1", e.SessionID())
	assert.NotNil(t, e.Graph())
	assert.Equal(t, DefaultCollectThreshold, e.Policy().Threshold())
	assert.Empty(t, e.Kernels())
}

func TestEngine_Compile(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	k, err := e.Compile(ctx, ir.KernelSpec{
		Name: "scale",
		Expr: "load(x) * w",
		Bind: map[string]string{"w": "t"},
	})
	require.NoError(t, err)

	assert.Equal(t, "scale", k.Name)
	assert.Equal(t, int64(1), k.Seq)
	assert.Equal(t, []string{"w"}, k.Params)
	assert.Equal(t, []string{"x", "t"}, k.Inputs())
	assert.Equal(t, ir.MustSourceHash(k.Spec), k.SourceHash)
	assert.Equal(t, ir.MustKernelHash(k.Root), k.GraphHash)
	assert.False(t, k.Cached)
	assert.True(t, e.Graph().Live(k.Root))

	got, err := e.Kernel("scale")
	require.NoError(t, err)
	assert.Same(t, k, got)
}

func TestEngine_CompileAllOrder(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	kernels, err := e.CompileAll(ctx, []ir.KernelSpec{
		{Name: "z", Expr: "x"},
		{Name: "a", Expr: "y + 1"},
		{Name: "m", Expr: "load(c)"},
	})
	require.NoError(t, err)
	require.Len(t, kernels, 3)

	var names []string
	for i, k := range e.Kernels() {
		names = append(names, k.Name)
		assert.Equal(t, int64(i+1), k.Seq)
	}
	assert.Equal(t, []string{"z", "a", "m"}, names)
}

func TestEngine_CompileAllStopsAtError(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	kernels, err := e.CompileAll(ctx, []ir.KernelSpec{
		{Name: "ok", Expr: "x"},
		{Name: "bad", Expr: "foo(x)"},
		{Name: "never", Expr: "y"},
	})
	require.Error(t, err)
	assert.Len(t, kernels, 1)
	assert.Len(t, e.Kernels(), 1)
}

func TestEngine_CompileErrors(t *testing.T) {
	tests := []struct {
		name string
		spec ir.KernelSpec
		code RuntimeErrorCode
	}{
		{"unbound parameter", ir.KernelSpec{Name: "k", Expr: "w + x"}, ErrCodeUnboundParameter},
		{"unknown function", ir.KernelSpec{Name: "k", Expr: "foo(x)"}, ErrCodeLoweringFailed},
		{"syntax", ir.KernelSpec{Name: "k", Expr: "x +"}, ErrCodeLoweringFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestEngine(t).Compile(context.Background(), tt.spec)
			require.Error(t, err)
			assert.Equal(t, tt.code, CodeOf(err))
		})
	}

	t.Run("duplicate", func(t *testing.T) {
		e := newTestEngine(t)
		_, err := e.Compile(context.Background(), ir.KernelSpec{Name: "k", Expr: "x"})
		require.NoError(t, err)
		_, err = e.Compile(context.Background(), ir.KernelSpec{Name: "k", Expr: "y"})
		assert.True(t, IsDuplicateKernel(err))
	})

	t.Run("unknown kernel", func(t *testing.T) {
		_, err := newTestEngine(t).Kernel("missing")
		assert.True(t, IsUnknownKernel(err))
	})
}

// Kernels of one session share subexpressions through the graph.
func TestEngine_SharesSubexpressions(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, WithCollectThreshold(0))

	a, err := e.Compile(ctx, ir.KernelSpec{Name: "a", Expr: "load(x) + 1.0"})
	require.NoError(t, err)
	b, err := e.Compile(ctx, ir.KernelSpec{Name: "b", Expr: "load(x) * 2.0"})
	require.NoError(t, err)

	g := e.Graph()
	ld := g.MustBuild(ir.Load, g.MustBuild(ir.VarX))
	assert.True(t, ir.Reachable(a.Root).Contains(ld))
	assert.True(t, ir.Reachable(b.Root).Contains(ld))
}

func TestEngine_Specialize(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	base, err := e.Compile(ctx, ir.KernelSpec{Name: "k", Expr: "load(x + y)"})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, base.Inputs())

	spec, err := e.Specialize(ctx, "k", "y", 2)
	require.NoError(t, err)

	assert.Equal(t, "k[y=2]", spec.Name)
	assert.Equal(t, "k", spec.Base)
	assert.Equal(t, int64(2), spec.Seq)
	assert.Equal(t, "[x+2]", ir.Render(spec.Root))
	assert.Equal(t, []string{"x"}, spec.Inputs())
	assert.Equal(t, map[string]int32{"y": 2}, spec.Spec.Specialize)
	assert.Nil(t, base.Spec.Specialize, "base definition must not change")

	again, err := e.Specialize(ctx, "k", "y", 2)
	require.NoError(t, err)
	assert.Same(t, spec, again)

	t.Run("unknown base", func(t *testing.T) {
		_, err := e.Specialize(ctx, "missing", "y", 2)
		assert.True(t, IsUnknownKernel(err))
	})

	t.Run("bad axis", func(t *testing.T) {
		_, err := e.Specialize(ctx, "k", "q", 2)
		assert.Equal(t, ErrCodeLoweringFailed, CodeOf(err))
	})
}

func TestEngine_WithClock(t *testing.T) {
	e := newTestEngine(t, WithClock(NewClockAt(10)))

	k, err := e.Compile(context.Background(), ir.KernelSpec{Name: "k", Expr: "x"})
	require.NoError(t, err)
	assert.Equal(t, int64(11), k.Seq)
}

func TestEngine_PersistsAndReusesCache(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	spec := ir.KernelSpec{Name: "blur", Expr: "(load(x - 1) + load(x + 1)) * 0.5"}

	first := New(WithStore(s), WithSessionIDGenerator(NewFixedGenerator("session-1")))
	k1, err := first.Compile(ctx, spec)
	require.NoError(t, err)
	assert.False(t, k1.Cached)

	rec, err := s.ReadKernel(ctx, k1.SourceHash)
	require.NoError(t, err)
	assert.Equal(t, "blur", rec.Name)
	assert.Equal(t, "session-1", rec.SessionID)
	assert.Equal(t, k1.GraphHash, rec.GraphHash)
	assert.Equal(t, ir.Render(k1.Root), rec.Rendered)

	second := New(WithStore(s), WithSessionIDGenerator(NewFixedGenerator("session-2")))
	k2, err := second.Compile(ctx, spec)
	require.NoError(t, err)
	assert.True(t, k2.Cached)
	assert.Equal(t, k1.GraphHash, k2.GraphHash)
	assert.Equal(t, ir.Render(k1.Root), ir.Render(k2.Root))

	all, err := s.ListKernels(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = s.ReadSession(ctx, "session-2")
	assert.NoError(t, err)
}

func TestEngine_CacheHitsAfterRewrites(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"offset times channel", "(x + 3) * c"},
		{"difference", "x - y"},
		{"scaled offset load", "load(x * 4 + 2) * float(y - 1)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := setupTestStore(t)
			spec := ir.KernelSpec{Name: "k", Expr: tt.expr}

			first := New(WithStore(s), WithSessionIDGenerator(NewFixedGenerator("session-1")))
			k1, err := first.Compile(ctx, spec)
			require.NoError(t, err)

			second := New(WithStore(s), WithSessionIDGenerator(NewFixedGenerator("session-2")))
			k2, err := second.Compile(ctx, spec)
			require.NoError(t, err)
			assert.True(t, k2.Cached)
			assert.Equal(t, k1.GraphHash, k2.GraphHash)
		})
	}
}

func TestEngine_PersistsSpecializations(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	e := New(WithStore(s), WithSessionIDGenerator(NewFixedGenerator("session-1")))

	_, err := e.Compile(ctx, ir.KernelSpec{Name: "k", Expr: "load(x + y)"})
	require.NoError(t, err)
	_, err = e.Specialize(ctx, "k", "y", 5)
	require.NoError(t, err)

	rec, err := s.LatestKernel(ctx, "k[y=5]")
	require.NoError(t, err)
	assert.Equal(t, "[x+5]", rec.Rendered)
	assert.Equal(t, map[string]int32{"y": 5}, rec.Specialize)

	state, err := s.GetSessionState(ctx, "session-1")
	require.NoError(t, err)
	assert.Len(t, state.Kernels, 2)
	assert.Equal(t, int64(2), state.LastSeq)
}
