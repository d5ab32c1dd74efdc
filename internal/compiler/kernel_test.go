package compiler

import (
	"errors"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileKernelBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		kernel: blur: {
			expr: "(load(x - 1) + load(x) + load(x + 1)) * w"
			bind: w: "y"
			specialize: t: 4
		}
	`)

	require.NoError(t, v.Err())
	spec, err := CompileKernel(v.LookupPath(cue.ParsePath("kernel.blur")))
	require.NoError(t, err)

	assert.Equal(t, "blur", spec.Name)
	assert.Equal(t, "(load(x - 1) + load(x) + load(x + 1)) * w", spec.Expr)
	assert.Equal(t, map[string]string{"w": "y"}, spec.Bind)
	assert.Equal(t, map[string]int32{"t": 4}, spec.Specialize)
}

func TestCompileKernelOptionalFields(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`kernel: id: expr: "x"`)

	require.NoError(t, v.Err())
	spec, err := CompileKernel(v.LookupPath(cue.ParsePath("kernel.id")))
	require.NoError(t, err)

	assert.Equal(t, "id", spec.Name)
	assert.Nil(t, spec.Bind)
	assert.Nil(t, spec.Specialize)
}

func TestCompileKernelErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
		want  string
	}{
		{
			name:  "missing expr",
			src:   `kernel: k: { bind: w: "x" }`,
			field: "expr",
			want:  "required",
		},
		{
			name:  "bind to non-axis",
			src:   `kernel: k: { expr: "w", bind: w: "z" }`,
			field: "bind",
			want:  `binds to "z"`,
		},
		{
			name:  "specialize non-axis",
			src:   `kernel: k: { expr: "x", specialize: q: 1 }`,
			field: "specialize",
			want:  `"q" is not an axis`,
		},
		{
			name:  "specialize out of range",
			src:   `kernel: k: { expr: "x", specialize: x: 5000000000 }`,
			field: "specialize",
			want:  "32 bits",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := cuecontext.New()
			v := ctx.CompileString(tt.src)
			require.NoError(t, v.Err())

			_, err := CompileKernel(v.LookupPath(cue.ParsePath("kernel.k")))
			require.Error(t, err)

			var compileErr *CompileError
			require.True(t, errors.As(err, &compileErr))
			assert.Equal(t, tt.field, compileErr.Field)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("expr not a string", func(t *testing.T) {
		ctx := cuecontext.New()
		v := ctx.CompileString(`kernel: k: expr: 3`)
		require.NoError(t, v.Err())

		_, err := CompileKernel(v.LookupPath(cue.ParsePath("kernel.k")))
		assert.Error(t, err)
	})
}

func TestCompileKernelsOrder(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		kernel: {
			zeta:  expr: "x"
			alpha: expr: "y"
			mid:   expr: "load(x)"
		}
	`)

	require.NoError(t, v.Err())
	specs, err := CompileKernels(v.LookupPath(cue.ParsePath("kernel")))
	require.NoError(t, err)

	require.Len(t, specs, 3)
	assert.Equal(t, "zeta", specs[0].Name)
	assert.Equal(t, "alpha", specs[1].Name)
	assert.Equal(t, "mid", specs[2].Name)
	assert.Equal(t, "load(x)", specs[2].Expr)
}

func TestCompileKernelsNamesFailingKernel(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		kernel: {
			good: expr: "x"
			bad:  bind: w: "x"
		}
	`)

	require.NoError(t, v.Err())
	_, err := CompileKernels(v.LookupPath(cue.ParsePath("kernel")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kernel bad")

	var compileErr *CompileError
	assert.True(t, errors.As(err, &compileErr))
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "expr", Message: "expr is required"}
	assert.Equal(t, "expr: expr is required", err.Error())
}
