package compiler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/irjit/internal/ir"
)

func TestParameters(t *testing.T) {
	tests := []struct {
		expr string
		want []string
	}{
		{"x + y", nil},
		{"w * x + load(h) + w", []string{"w", "h"}},
		{"sin(float(k)) < 0.5 && !flag", []string{"k", "flag"}},
		{"select(x < c, true, false)", nil},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			e, err := ParseExpr("test", tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Parameters(e))
		})
	}
}

// Lowering must produce the node the builder API would, so the lowered root
// and the hand-built expression hash-cons to the same node.
func TestLowerMatchesBuilder(t *testing.T) {
	tests := []struct {
		name  string
		spec  ir.KernelSpec
		build func(g *ir.Graph, x, y *ir.Node) *ir.Node
	}{
		{
			name: "stencil",
			spec: ir.KernelSpec{Expr: "load(x - 1) + load(x + 1)"},
			build: func(g *ir.Graph, x, _ *ir.Node) *ir.Node {
				return g.MustBuild(ir.Plus,
					g.MustBuild(ir.Load, g.MustBuild(ir.Minus, x, g.Int(1))),
					g.MustBuild(ir.Load, g.MustBuild(ir.Plus, x, g.Int(1))))
			},
		},
		{
			name: "comparison",
			spec: ir.KernelSpec{Expr: "x <= y"},
			build: func(g *ir.Graph, x, y *ir.Node) *ir.Node {
				return g.MustBuild(ir.LTE, x, y)
			},
		},
		{
			name: "bound parameter",
			spec: ir.KernelSpec{Expr: "w * x", Bind: map[string]string{"w": "y"}},
			build: func(g *ir.Graph, x, y *ir.Node) *ir.Node {
				return g.MustBuild(ir.Times, y, x)
			},
		},
		{
			name: "math call",
			spec: ir.KernelSpec{Expr: "atan2(load(y), float(x))"},
			build: func(g *ir.Graph, x, y *ir.Node) *ir.Node {
				return g.MustBuild(ir.ATan2, g.MustBuild(ir.Load, y), g.MustAs(x, ir.Float))
			},
		},
		{
			name: "select",
			spec: ir.KernelSpec{Expr: "select(x < 4, load(x), -1.0)"},
			build: func(g *ir.Graph, x, _ *ir.Node) *ir.Node {
				cond := g.MustBuild(ir.LT, x, g.Int(4))
				return g.MustBuild(ir.Or,
					g.MustBuild(ir.And, cond, g.MustBuild(ir.Load, x)),
					g.MustBuild(ir.Nand, cond, g.Float(-1)))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := ir.NewGraph()
			tt.spec.Name = "k"
			got, err := Lower(g, tt.spec)
			require.NoError(t, err)

			x := g.MustBuild(ir.VarX)
			y := g.MustBuild(ir.VarY)
			want, err := g.Optimize(tt.build(g, x, y))
			require.NoError(t, err)
			assert.Same(t, want, got.Root, "got %s, want %s", got.Root, want)
		})
	}
}

func TestLowerRendering(t *testing.T) {
	tests := []struct {
		name string
		spec ir.KernelSpec
		want string
	}{
		{"folded constants", ir.KernelSpec{Expr: "2 * 3 + x"}, "(x+6)"},
		{"specialized load", ir.KernelSpec{Expr: "load(x + y)", Specialize: map[string]int32{"y": 2}}, "[x+2]"},
		{"immediate product", ir.KernelSpec{Expr: "w * 3", Bind: map[string]string{"w": "t"}}, "(t*3)"},
		{"coercion", ir.KernelSpec{Expr: "sin(float(x))"}, "Sin(IntToFloat(x))"},
		{"explicit offset", ir.KernelSpec{Expr: "load(y, 8)"}, "[y+8]"},
		{"fully specialized", ir.KernelSpec{Expr: "x * y + 1", Specialize: map[string]int32{"x": 3, "y": 4}}, "13"},
		{"underscore literal", ir.KernelSpec{Expr: "x + 1_000"}, "(x+1000)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := ir.NewGraph()
			tt.spec.Name = "k"
			got, err := Lower(g, tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ir.Render(got.Root))
		})
	}
}

func TestLowerParams(t *testing.T) {
	g := ir.NewGraph()
	got, err := Lower(g, ir.KernelSpec{
		Name: "k",
		Expr: "load(a) + load(b) * a",
		Bind: map[string]string{"a": "x", "b": "c"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, got.Params)
	assert.True(t, got.Root.Deps().Has(ir.DepX))
	assert.True(t, got.Root.Deps().Has(ir.DepC))
	assert.False(t, got.Root.Deps().Has(ir.DepUnbound))
}

func TestLowerErrors(t *testing.T) {
	tests := []struct {
		name string
		spec ir.KernelSpec
		want string
	}{
		{"unbound parameter", ir.KernelSpec{Expr: "w + x"}, `parameter "w" is not bound`},
		{"unknown function", ir.KernelSpec{Expr: "foo(x)"}, `unknown function "foo"`},
		{"arity", ir.KernelSpec{Expr: "sin(x, y)"}, "sin takes 1 arguments, got 2"},
		{"load arity", ir.KernelSpec{Expr: "load()"}, "load takes 1 or 2 arguments"},
		{"load offset", ir.KernelSpec{Expr: "load(x, y)"}, "int literal"},
		{"syntax", ir.KernelSpec{Expr: "x +"}, ""},
		{"unsupported operator", ir.KernelSpec{Expr: "x =~ y"}, "unsupported operator"},
		{"int overflow", ir.KernelSpec{Expr: "x + 4294967296"}, "int literal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.spec.Name = "k"
			_, err := Lower(ir.NewGraph(), tt.spec)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("position", func(t *testing.T) {
		_, err := Lower(ir.NewGraph(), ir.KernelSpec{Name: "k", Expr: "x + foo(y)"})
		var compileErr *CompileError
		require.True(t, errors.As(err, &compileErr))
		assert.Equal(t, "expr", compileErr.Field)
		assert.Equal(t, 5, compileErr.Pos.Column())
	})
}
