package compiler

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/token"

	"github.com/roach88/irjit/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrKernelNameInvalid = "E100" // name is not an identifier
	ErrExprEmpty         = "E101" // expr is required
	ErrExprSyntax        = "E102" // expr does not parse
	ErrParamUnbound      = "E103" // parameter has no bind entry
	ErrBindUnused        = "E104" // bind names a parameter expr never uses
	ErrBindAxis          = "E105" // bind target is not an axis
	ErrSpecializeAxis    = "E106" // specialize key is not an axis
	ErrUnknownFunction   = "E107" // call of an undefined function
	ErrCallArity         = "E108" // wrong number of call arguments
	ErrLoadOffset        = "E109" // load offset is not an int literal
)

// ValidationError represents a kernel definition error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

var kernelNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// callArity is the argument count of every callable function. load accepts
// one or two arguments and is checked separately.
var callArity = map[string]int{
	"atan2":  2,
	"pow":    2,
	"mod":    2,
	"select": 3,
}

func init() {
	for name := range unaryCalls {
		callArity[name] = 1
	}
	for name := range casts {
		callArity[name] = 1
	}
}

// Validate checks a kernel definition without building it.
// Returns all errors found (does not fail-fast), in a stable order.
func Validate(spec ir.KernelSpec) []ValidationError {
	var errs []ValidationError

	// E100: name must be an identifier
	if !kernelNamePattern.MatchString(spec.Name) {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("kernel name %q must be an identifier", spec.Name),
			Code:    ErrKernelNameInvalid,
		})
	}

	for _, p := range sortedKeys(spec.Bind) {
		// E105: bind targets an axis
		if _, ok := ir.AxisVar(spec.Bind[p]); !ok {
			errs = append(errs, ValidationError{
				Field:   "bind." + p,
				Message: fmt.Sprintf("%q is not an axis, must be one of x, y, t, c", spec.Bind[p]),
				Code:    ErrBindAxis,
			})
		}
	}

	for _, axis := range sortedKeys(spec.Specialize) {
		// E106: specialize keys are axes
		if _, ok := ir.AxisVar(axis); !ok {
			errs = append(errs, ValidationError{
				Field:   "specialize." + axis,
				Message: fmt.Sprintf("%q is not an axis, must be one of x, y, t, c", axis),
				Code:    ErrSpecializeAxis,
			})
		}
	}

	// E101: expr is required
	if strings.TrimSpace(spec.Expr) == "" {
		return append(errs, ValidationError{
			Field:   "expr",
			Message: "expr is required and must be non-empty",
			Code:    ErrExprEmpty,
		})
	}

	// E102: expr must parse
	expr, err := ParseExpr(spec.Name, spec.Expr)
	if err != nil {
		return append(errs, ValidationError{
			Field:   "expr",
			Message: err.Error(),
			Code:    ErrExprSyntax,
		})
	}

	errs = append(errs, validateCalls(expr)...)

	// E103: every parameter is bound
	params := Parameters(expr)
	for _, p := range params {
		if _, ok := spec.Bind[p]; !ok {
			errs = append(errs, ValidationError{
				Field:   "bind",
				Message: fmt.Sprintf("parameter %q is not bound to an axis", p),
				Code:    ErrParamUnbound,
			})
		}
	}

	// E104: every bind entry is a parameter
	for _, p := range sortedKeys(spec.Bind) {
		if !slices.Contains(params, p) {
			errs = append(errs, ValidationError{
				Field:   "bind." + p,
				Message: fmt.Sprintf("expr does not use parameter %q", p),
				Code:    ErrBindUnused,
			})
		}
	}

	return errs
}

// validateCalls reports E107-E109 for every call in expr.
func validateCalls(expr ast.Expr) []ValidationError {
	var errs []ValidationError
	ast.Walk(expr, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		line := call.Pos().Line()
		fn, ok := call.Fun.(*ast.Ident)
		if !ok {
			errs = append(errs, ValidationError{
				Field:   "expr",
				Message: "call target must be a function name",
				Code:    ErrUnknownFunction,
				Line:    line,
			})
			return true
		}

		if fn.Name == "load" {
			if len(call.Args) < 1 || len(call.Args) > 2 {
				errs = append(errs, ValidationError{
					Field:   "expr",
					Message: fmt.Sprintf("load takes 1 or 2 arguments, got %d", len(call.Args)),
					Code:    ErrCallArity,
					Line:    line,
				})
			} else if len(call.Args) == 2 && !isIntLiteral(call.Args[1]) {
				errs = append(errs, ValidationError{
					Field:   "expr",
					Message: "load offset must be an int literal",
					Code:    ErrLoadOffset,
					Line:    line,
				})
			}
			return true
		}

		want, ok := callArity[fn.Name]
		if !ok {
			errs = append(errs, ValidationError{
				Field:   "expr",
				Message: fmt.Sprintf("unknown function %q", fn.Name),
				Code:    ErrUnknownFunction,
				Line:    line,
			})
			return true
		}
		if len(call.Args) != want {
			errs = append(errs, ValidationError{
				Field:   "expr",
				Message: fmt.Sprintf("%s takes %d arguments, got %d", fn.Name, want, len(call.Args)),
				Code:    ErrCallArity,
				Line:    line,
			})
		}
		return true
	}, nil)
	return errs
}

func isIntLiteral(e ast.Expr) bool {
	switch n := e.(type) {
	case *ast.BasicLit:
		return n.Kind == token.INT
	case *ast.UnaryExpr:
		return (n.Op == token.SUB || n.Op == token.ADD) && isIntLiteral(n.X)
	case *ast.ParenExpr:
		return isIntLiteral(n.X)
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
