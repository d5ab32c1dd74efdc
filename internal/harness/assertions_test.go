package harness

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/irjit/internal/engine"
	"github.com/roach88/irjit/internal/eval"
	"github.com/roach88/irjit/internal/ir"
	"github.com/roach88/irjit/internal/testutil"
)

// newAssertionEngine compiles a fixed set of kernels for assertion tests.
func newAssertionEngine(t *testing.T) *engine.Engine {
	t.Helper()
	eng := engine.New(
		engine.WithClock(engine.NewClock()),
		engine.WithSessionIDGenerator(testutil.NewFixedSessionGenerator("")),
	)
	_, err := eng.CompileAll(context.Background(), []ir.KernelSpec{
		{Name: "offset", Expr: "2 * 3 + x"},
		{Name: "offset_literal", Expr: "x + 6"},
		{Name: "row", Expr: "load(y, 8)"},
		{Name: "wave", Expr: "sin(float(x))"},
		{Name: "flag", Expr: "x > 2"},
	})
	require.NoError(t, err)
	return eng
}

func TestAssertRendersAs(t *testing.T) {
	eng := newAssertionEngine(t)

	assert.NoError(t, assertRendersAs(eng, nil, Assertion{Kernel: "offset", Expect: "(x+6)"}))
	assert.NoError(t, assertRendersAs(eng, nil, Assertion{Kernel: "row", Expect: "[y+8]"}))

	err := assertRendersAs(eng, nil, Assertion{Kernel: "offset", Expect: "(6+x)"})
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertRendersAs, ae.Type)
	assert.Equal(t, "(x+6)", ae.Actual)
}

func TestAssertSameNode(t *testing.T) {
	eng := newAssertionEngine(t)

	assert.NoError(t, assertSameNode(eng, nil, Assertion{Kernels: []string{"offset", "offset_literal"}}))

	err := assertSameNode(eng, nil, Assertion{Kernels: []string{"offset", "row"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offset and row share a root")
}

func TestAssertEvaluatesTo(t *testing.T) {
	eng := newAssertionEngine(t)

	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{"int result", Assertion{Kernel: "offset", Args: map[string]int32{"x": 4}, Expect: 10}, ""},
		{"int mismatch", Assertion{Kernel: "offset", Args: map[string]int32{"x": 4}, Expect: 11}, "Actual: 10 (Int)"},
		{
			"load",
			Assertion{Kernel: "row", Args: map[string]int32{"y": 1}, Mem: make([]float32, 10), Expect: 0.0},
			"",
		},
		{"float tolerance", Assertion{Kernel: "wave", Args: map[string]int32{"x": 1}, Expect: 0.841471}, ""},
		{"bool", Assertion{Kernel: "flag", Args: map[string]int32{"x": 3}, Expect: true}, ""},
		{"bool vs int", Assertion{Kernel: "flag", Args: map[string]int32{"x": 3}, Expect: 1}, "Actual: true (Bool)"},
		{"missing arg", Assertion{Kernel: "offset", Expect: 10}, `argument "x": missing`},
		{"extra arg", Assertion{Kernel: "offset", Args: map[string]int32{"x": 1, "y": 2}, Expect: 7}, `argument "y": no such parameter`},
		{"out of memory", Assertion{Kernel: "row", Args: map[string]int32{"y": 1}, Expect: 0.0}, "evaluation error"},
		{"unknown kernel", Assertion{Kernel: "nope", Expect: 1}, "kernel nope to be registered"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertEvaluatesTo(eng, nil, tt.assertion)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAssertDependsOn(t *testing.T) {
	eng := newAssertionEngine(t)

	assert.NoError(t, assertDependsOn(eng, nil, Assertion{Kernel: "row", Inputs: []string{"y"}}))

	err := assertDependsOn(eng, nil, Assertion{Kernel: "row", Inputs: []string{"x", "y"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row depends on [x y]")
}

func TestValueMatches(t *testing.T) {
	tests := []struct {
		name   string
		got    eval.Value
		expect any
		want   bool
	}{
		{"int", eval.Int(3), 3, true},
		{"int mismatch", eval.Int(3), 4, false},
		{"float from int literal", eval.Float(3), 3, true},
		{"float", eval.Float(0.1), 0.1, true},
		{"float off", eval.Float(0.1), 0.2, false},
		{"int against float", eval.Int(2), 2.0, true},
		{"nan", eval.Float(float32(math.NaN())), math.NaN(), true},
		{"bool", eval.Bool(false), false, true},
		{"bool against int", eval.Bool(true), 1, false},
		{"float against bool", eval.Float(1), true, false},
		{"string", eval.Int(1), "1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, valueMatches(tt.got, tt.expect))
		})
	}
}

func TestEvaluateAssertions(t *testing.T) {
	eng := newAssertionEngine(t)
	result := NewResult()

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertRendersAs, Kernel: "offset", Expect: "(x+6)"},
		{Type: AssertDependsOn, Kernel: "wave", Inputs: []string{"y"}},
		{Type: "bogus"},
	}, &AssertionContext{Engine: eng})

	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "Assertion failed: depends_on")
	assert.Contains(t, errs[1], `unknown assertion type "bogus"`)

	t.Run("no engine", func(t *testing.T) {
		errs := EvaluateAssertions(result, []Assertion{{Type: AssertRendersAs}}, nil)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "requires an engine")
	})
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertRendersAs,
		Expected: "k renders as (x+1)",
		Actual:   "(x+2)",
		Trace: []TraceEvent{
			{Seq: 1, Kernel: "k", Rendered: "(x+2)"},
		},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: renders_as")
	assert.Contains(t, msg, "Expected: k renders as (x+1)")
	assert.Contains(t, msg, "Actual: (x+2)")
	assert.Contains(t, msg, "[1] k = (x+2)")
}
