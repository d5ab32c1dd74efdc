package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/irjit/internal/ir"
)

// createTestStore opens a file-backed cache in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func mustWriteSession(t *testing.T, s *Store, id string) {
	t.Helper()
	require.NoError(t, s.WriteSession(context.Background(), ir.Session{
		ID:            id,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}))
}

// verifyPragma checks that a pragma reads back as expected.
func verifyPragma(s *Store, name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

// compileTestKernel builds spec's expression by hand and returns a record
// for it. Only a few fixed expressions are supported.
func compileTestKernel(t *testing.T, sessionID string, seq int64, spec ir.KernelSpec) ir.KernelRecord {
	t.Helper()

	g := ir.NewGraph()
	x := g.MustBuild(ir.VarX)
	var root *ir.Node
	switch spec.Expr {
	case "load(x)":
		root = g.MustBuild(ir.Load, x)
	case "x + 1":
		root = g.MustBuildImm(ir.PlusImm, 1, x)
	case "sin(float(x))":
		root = g.MustBuild(ir.Sin, g.MustAs(x, ir.Float))
	default:
		t.Fatalf("compileTestKernel: unsupported expr %q", spec.Expr)
	}

	data, err := ir.Encode(root)
	require.NoError(t, err)
	return ir.KernelRecord{
		SourceHash:    ir.MustSourceHash(spec),
		GraphHash:     ir.MustKernelHash(root),
		Name:          spec.Name,
		SessionID:     sessionID,
		Seq:           seq,
		Expr:          spec.Expr,
		Bind:          spec.Bind,
		Specialize:    spec.Specialize,
		Rendered:      ir.Render(root),
		Graph:         data,
		NodeCount:     ir.Reachable(root).Size(),
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
}
