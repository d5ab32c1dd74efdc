package compiler

import (
	"fmt"
	"math"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/irjit/internal/ir"
)

// CompileKernel parses a CUE value into a KernelSpec.
//
// The CUE value should be the kernel struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`kernel: blur: { expr: "load(x - 1) + load(x + 1)" }`)
//	spec, err := CompileKernel(v.LookupPath(cue.ParsePath("kernel.blur")))
func CompileKernel(v cue.Value) (*ir.KernelSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.KernelSpec{}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}

	exprVal := v.LookupPath(cue.ParsePath("expr"))
	if !exprVal.Exists() {
		return nil, &CompileError{
			Field:   "expr",
			Message: "expr is required",
			Pos:     v.Pos(),
		}
	}
	expr, err := exprVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	spec.Expr = expr

	spec.Bind, err = parseBind(v)
	if err != nil {
		return nil, err
	}

	spec.Specialize, err = parseSpecialize(v)
	if err != nil {
		return nil, err
	}

	return spec, nil
}

// CompileKernels compiles every field of a `kernel` struct, in declaration
// order.
func CompileKernels(v cue.Value) ([]ir.KernelSpec, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var specs []ir.KernelSpec
	for iter.Next() {
		spec, err := CompileKernel(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("kernel %s: %w", iter.Label(), err)
		}
		spec.Name = iter.Label()
		specs = append(specs, *spec)
	}
	return specs, nil
}

// parseBind extracts the parameter to axis mapping.
func parseBind(v cue.Value) (map[string]string, error) {
	bindVal := v.LookupPath(cue.ParsePath("bind"))
	if !bindVal.Exists() {
		return nil, nil // bind is optional
	}

	iter, err := bindVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	bind := make(map[string]string)
	for iter.Next() {
		axis, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if _, ok := ir.AxisVar(axis); !ok {
			return nil, &CompileError{
				Field:   "bind",
				Message: fmt.Sprintf("parameter %q binds to %q, must be one of x, y, t, c", iter.Label(), axis),
				Pos:     iter.Value().Pos(),
			}
		}
		bind[iter.Label()] = axis
	}
	return bind, nil
}

// parseSpecialize extracts the axis values fixed at compile time.
func parseSpecialize(v cue.Value) (map[string]int32, error) {
	specVal := v.LookupPath(cue.ParsePath("specialize"))
	if !specVal.Exists() {
		return nil, nil // specialize is optional
	}

	iter, err := specVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	spec := make(map[string]int32)
	for iter.Next() {
		axis := iter.Label()
		if _, ok := ir.AxisVar(axis); !ok {
			return nil, &CompileError{
				Field:   "specialize",
				Message: fmt.Sprintf("%q is not an axis, must be one of x, y, t, c", axis),
				Pos:     iter.Value().Pos(),
			}
		}
		n, err := iter.Value().Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, &CompileError{
				Field:   "specialize",
				Message: fmt.Sprintf("value %d for %s does not fit in 32 bits", n, axis),
				Pos:     iter.Value().Pos(),
			}
		}
		spec[axis] = int32(n)
	}
	return spec, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
