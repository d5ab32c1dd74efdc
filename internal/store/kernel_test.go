package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/irjit/internal/ir"
)

func TestWriteKernel_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	mustWriteSession(t, s, "session-1")

	rec := compileTestKernel(t, "session-1", 1, ir.KernelSpec{
		Name:       "shift",
		Expr:       "x + 1",
		Bind:       map[string]string{"w": "y"},
		Specialize: map[string]int32{"t": 3},
	})

	inserted, err := s.WriteKernel(ctx, rec)
	require.NoError(t, err)
	assert.True(t, inserted)

	got, err := s.ReadKernel(ctx, rec.SourceHash)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
	assert.Equal(t, "(x+1)", got.Rendered)
}

func TestWriteKernel_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	mustWriteSession(t, s, "session-1")

	rec := compileTestKernel(t, "session-1", 1, ir.KernelSpec{Name: "id", Expr: "load(x)"})

	inserted, err := s.WriteKernel(ctx, rec)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Same source hash, different payload: first write wins.
	again := rec
	again.Seq = 7
	inserted, err = s.WriteKernel(ctx, again)
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := s.ReadKernel(ctx, rec.SourceHash)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Seq)

	has, err := s.HasKernel(ctx, rec.SourceHash)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestReadKernel_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadKernel(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	has, err := s.HasKernel(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestLatestKernel(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	mustWriteSession(t, s, "session-1")
	mustWriteSession(t, s, "session-2")

	first := compileTestKernel(t, "session-1", 5, ir.KernelSpec{Name: "k", Expr: "load(x)"})
	second := compileTestKernel(t, "session-2", 1, ir.KernelSpec{Name: "k", Expr: "x + 1"})
	for _, rec := range []ir.KernelRecord{first, second} {
		_, err := s.WriteKernel(ctx, rec)
		require.NoError(t, err)
	}

	got, err := s.LatestKernel(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, second.SourceHash, got.SourceHash)

	_, err = s.LatestKernel(ctx, "other")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestListKernels_Ordering(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	mustWriteSession(t, s, "session-1")

	empty, err := s.ListKernels(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	recs := []ir.KernelRecord{
		compileTestKernel(t, "session-1", 3, ir.KernelSpec{Name: "c", Expr: "load(x)"}),
		compileTestKernel(t, "session-1", 1, ir.KernelSpec{Name: "a", Expr: "x + 1"}),
		compileTestKernel(t, "session-1", 2, ir.KernelSpec{Name: "b", Expr: "sin(float(x))"}),
	}
	for _, rec := range recs {
		_, err := s.WriteKernel(ctx, rec)
		require.NoError(t, err)
	}

	got, err := s.ListKernels(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Name)
	assert.Equal(t, "b", got[1].Name)
	assert.Equal(t, "c", got[2].Name)

	last, err := s.GetLastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), last)
}

func TestGetSessionState(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	mustWriteSession(t, s, "session-1")
	mustWriteSession(t, s, "session-2")

	_, err := s.WriteKernel(ctx, compileTestKernel(t, "session-1", 1, ir.KernelSpec{Name: "a", Expr: "load(x)"}))
	require.NoError(t, err)
	_, err = s.WriteKernel(ctx, compileTestKernel(t, "session-1", 4, ir.KernelSpec{Name: "b", Expr: "x + 1"}))
	require.NoError(t, err)
	_, err = s.WriteKernel(ctx, compileTestKernel(t, "session-2", 9, ir.KernelSpec{Name: "c", Expr: "sin(float(x))"}))
	require.NoError(t, err)

	state, err := s.GetSessionState(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, "session-1", state.Session.ID)
	assert.Equal(t, ir.EngineVersion, state.Session.EngineVersion)
	assert.Len(t, state.Kernels, 2)
	assert.Equal(t, int64(4), state.LastSeq)

	_, err = s.GetSessionState(ctx, "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestLoadKernel(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	mustWriteSession(t, s, "session-1")

	rec := compileTestKernel(t, "session-1", 1, ir.KernelSpec{Name: "wave", Expr: "sin(float(x))"})
	_, err := s.WriteKernel(ctx, rec)
	require.NoError(t, err)

	g := ir.NewGraph()
	root, got, err := s.LoadKernel(ctx, g, rec.SourceHash)
	require.NoError(t, err)
	assert.Equal(t, "wave", got.Name)
	assert.Equal(t, rec.Rendered, ir.Render(root))
	assert.True(t, g.Live(root))

	t.Run("hash mismatch", func(t *testing.T) {
		bad := compileTestKernel(t, "session-1", 2, ir.KernelSpec{Name: "bad", Expr: "load(x)"})
		bad.GraphHash = "0000"
		_, err := s.WriteKernel(ctx, bad)
		require.NoError(t, err)

		_, _, err = s.LoadKernel(ctx, ir.NewGraph(), bad.SourceHash)
		assert.ErrorContains(t, err, "graph hash mismatch")
	})
}

func TestReplaySession(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	mustWriteSession(t, s, "session-1")

	for i, spec := range []ir.KernelSpec{
		{Name: "a", Expr: "load(x)"},
		{Name: "b", Expr: "x + 1"},
	} {
		_, err := s.WriteKernel(ctx, compileTestKernel(t, "session-1", int64(i+1), spec))
		require.NoError(t, err)
	}

	g := ir.NewGraph()
	roots, err := s.ReplaySession(ctx, g, "session-1")
	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.Equal(t, "[x]", ir.Render(roots["a"]))
	assert.Equal(t, "(x+1)", ir.Render(roots["b"]))

	// Both kernels share the x variable in the replay graph.
	assert.Same(t, roots["a"].Input(0), roots["b"].Input(0))
}

func TestListSessionIDs(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	ids, err := s.ListSessionIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	mustWriteSession(t, s, "session-b")
	mustWriteSession(t, s, "session-a")

	ids, err = s.ListSessionIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"session-a", "session-b"}, ids)
}
