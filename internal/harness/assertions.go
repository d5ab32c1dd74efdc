package harness

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/roach88/irjit/internal/engine"
	"github.com/roach88/irjit/internal/eval"
	"github.com/roach88/irjit/internal/ir"
)

// floatTolerance is the relative error accepted when a kernel's float
// result is compared against a YAML float.
const floatTolerance = 1e-6

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Kernels registered in the session
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nKernels:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s = %s\n", event.Seq, event.Kernel, event.Rendered)
		}
	}

	return buf.String()
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Engine *engine.Engine
}

// EvaluateAssertions evaluates all assertions against the session.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		if actx == nil || actx.Engine == nil {
			err = fmt.Errorf("assertion[%d]: %s requires an engine", i, assertion.Type)
		} else {
			switch assertion.Type {
			case AssertRendersAs:
				err = assertRendersAs(actx.Engine, result.Trace, assertion)
			case AssertSameNode:
				err = assertSameNode(actx.Engine, result.Trace, assertion)
			case AssertEvaluatesTo:
				err = assertEvaluatesTo(actx.Engine, result.Trace, assertion)
			case AssertDependsOn:
				err = assertDependsOn(actx.Engine, result.Trace, assertion)
			default:
				err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
			}
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// lookupKernel resolves a kernel name, reporting a missing kernel as a
// failure of the assertion that needed it.
func lookupKernel(eng *engine.Engine, trace []TraceEvent, typ, name string) (*engine.Kernel, error) {
	k, err := eng.Kernel(name)
	if err != nil {
		return nil, &AssertionError{
			Type:     typ,
			Expected: fmt.Sprintf("kernel %s to be registered", name),
			Actual:   "not found",
			Trace:    trace,
		}
	}
	return k, nil
}

// assertRendersAs checks the infix rendering of a kernel's root.
func assertRendersAs(eng *engine.Engine, trace []TraceEvent, assertion Assertion) error {
	k, err := lookupKernel(eng, trace, AssertRendersAs, assertion.Kernel)
	if err != nil {
		return err
	}

	want := fmt.Sprint(assertion.Expect)
	if got := ir.Render(k.Root); got != want {
		return &AssertionError{
			Type:     AssertRendersAs,
			Expected: fmt.Sprintf("%s renders as %s", assertion.Kernel, want),
			Actual:   got,
			Trace:    trace,
		}
	}
	return nil
}

// assertSameNode checks that kernels were hash-consed onto one root.
func assertSameNode(eng *engine.Engine, trace []TraceEvent, assertion Assertion) error {
	var first *engine.Kernel
	for _, name := range assertion.Kernels {
		k, err := lookupKernel(eng, trace, AssertSameNode, name)
		if err != nil {
			return err
		}
		if first == nil {
			first = k
			continue
		}
		if k.Root != first.Root {
			return &AssertionError{
				Type:     AssertSameNode,
				Expected: fmt.Sprintf("%s and %s share a root", first.Name, name),
				Actual:   fmt.Sprintf("%s vs %s", ir.Render(first.Root), ir.Render(k.Root)),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertEvaluatesTo runs a kernel through the reference evaluator.
// Args must supply every input of the kernel exactly once.
func assertEvaluatesTo(eng *engine.Engine, trace []TraceEvent, assertion Assertion) error {
	k, err := lookupKernel(eng, trace, AssertEvaluatesTo, assertion.Kernel)
	if err != nil {
		return err
	}

	inputs := k.Inputs()
	values, err := eval.ResolveArgs(inputs, nil, assertion.Args)
	if err != nil {
		return &AssertionError{
			Type:     AssertEvaluatesTo,
			Expected: fmt.Sprintf("args for inputs %v", inputs),
			Actual:   err.Error(),
			Trace:    trace,
		}
	}

	env := eval.Env{Mem: assertion.Mem}
	for i, axis := range inputs {
		setAxis(&env, axis, values[i])
	}

	got, err := eval.Eval(k.Root, env)
	if err != nil {
		return &AssertionError{
			Type:     AssertEvaluatesTo,
			Expected: fmt.Sprintf("%s evaluates to %v", assertion.Kernel, assertion.Expect),
			Actual:   fmt.Sprintf("evaluation error: %v", err),
			Trace:    trace,
		}
	}

	if !valueMatches(got, assertion.Expect) {
		return &AssertionError{
			Type:     AssertEvaluatesTo,
			Expected: fmt.Sprintf("%s evaluates to %v", assertion.Kernel, assertion.Expect),
			Actual:   fmt.Sprintf("%s (%s)", got, got.Type),
			Trace:    trace,
		}
	}
	return nil
}

// assertDependsOn checks the exact set of axes a kernel still reads.
func assertDependsOn(eng *engine.Engine, trace []TraceEvent, assertion Assertion) error {
	k, err := lookupKernel(eng, trace, AssertDependsOn, assertion.Kernel)
	if err != nil {
		return err
	}

	got := k.Inputs()
	if !slices.Equal(got, assertion.Inputs) {
		return &AssertionError{
			Type:     AssertDependsOn,
			Expected: fmt.Sprintf("%s depends on %v", assertion.Kernel, assertion.Inputs),
			Actual:   fmt.Sprintf("%v", got),
			Trace:    trace,
		}
	}
	return nil
}

func setAxis(env *eval.Env, axis string, v int32) {
	switch axis {
	case "x":
		env.X = v
	case "y":
		env.Y = v
	case "t":
		env.T = v
	case "c":
		env.C = v
	}
}

// valueMatches compares an evaluated value against a YAML scalar.
// Ints match Int results exactly and Float results by value; floats
// match within floatTolerance; bools match Bool results only.
func valueMatches(got eval.Value, expect any) bool {
	switch want := expect.(type) {
	case bool:
		return got.Type == ir.Bool && got.Truthy() == want
	case int:
		switch got.Type {
		case ir.Int:
			return int(got.I) == want
		case ir.Float:
			return float64(got.F) == float64(want)
		}
	case float64:
		var g float64
		switch got.Type {
		case ir.Int:
			g = float64(got.I)
		case ir.Float:
			g = float64(got.F)
		default:
			return false
		}
		if math.IsNaN(want) {
			return math.IsNaN(g)
		}
		return math.Abs(g-want) <= floatTolerance*math.Max(1, math.Abs(want))
	}
	return false
}
