package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/parser"
	"cuelang.org/go/cue/token"
	"github.com/hashicorp/go-set/v3"

	"github.com/roach88/irjit/internal/ir"
)

// Lowered is a kernel expression turned into a graph.
type Lowered struct {
	// Root is the optimized expression.
	Root *ir.Node

	// Params lists the kernel parameters in order of first use.
	Params []string
}

// unaryCalls maps one-argument function names to operators.
var unaryCalls = map[string]ir.OpCode{
	"sin":   ir.Sin,
	"cos":   ir.Cos,
	"tan":   ir.Tan,
	"asin":  ir.ASin,
	"acos":  ir.ACos,
	"atan":  ir.ATan,
	"exp":   ir.Exp,
	"log":   ir.Log,
	"abs":   ir.Abs,
	"floor": ir.Floor,
	"ceil":  ir.Ceil,
	"round": ir.Round,
}

var binaryCalls = map[string]ir.OpCode{
	"atan2": ir.ATan2,
	"pow":   ir.Power,
	"mod":   ir.Mod,
}

var casts = map[string]ir.Type{
	"int":   ir.Int,
	"float": ir.Float,
	"bool":  ir.Bool,
}

var binaryOps = map[token.Token]ir.OpCode{
	token.ADD: ir.Plus,
	token.SUB: ir.Minus,
	token.MUL: ir.Times,
	token.QUO: ir.Divide,
	token.LSS: ir.LT,
	token.GTR: ir.GT,
	token.LEQ: ir.LTE,
	token.GEQ: ir.GTE,
	token.EQL: ir.EQ,
	token.NEQ: ir.NEQ,
}

// ParseExpr parses kernel body text with the CUE expression grammar.
func ParseExpr(name, expr string) (ast.Expr, error) {
	e, err := parser.ParseExpr(name, expr)
	if err != nil {
		return nil, formatCUEError(err)
	}
	return e, nil
}

// Parameters returns the parameter names used in expr, in order of first
// use. Axis names and function names are not parameters.
func Parameters(expr ast.Expr) []string {
	seen := set.New[string](0)
	var params []string
	var walk func(ast.Expr)
	walk = func(e ast.Expr) {
		switch n := e.(type) {
		case *ast.Ident:
			if _, axis := ir.AxisVar(n.Name); axis || n.Name == "true" || n.Name == "false" {
				return
			}
			if seen.Insert(n.Name) {
				params = append(params, n.Name)
			}
		case *ast.ParenExpr:
			walk(n.X)
		case *ast.UnaryExpr:
			walk(n.X)
		case *ast.BinaryExpr:
			walk(n.X)
			walk(n.Y)
		case *ast.CallExpr:
			for _, arg := range n.Args {
				walk(arg)
			}
		}
	}
	walk(expr)
	return params
}

// Lower builds spec's expression into g, then binds parameters, applies the
// specializations, and optimizes the root.
//
// Every parameter must be bound; an unbound parameter is an error because
// code generation cannot handle a placeholder.
func Lower(g *ir.Graph, spec ir.KernelSpec) (*Lowered, error) {
	expr, err := ParseExpr(spec.Name, spec.Expr)
	if err != nil {
		return nil, err
	}

	l := &lowerer{g: g, params: make(map[string]*ir.Node)}
	root, err := l.lower(expr)
	if err != nil {
		return nil, err
	}

	params := Parameters(expr)
	for _, p := range params {
		axis, ok := spec.Bind[p]
		if !ok {
			return nil, &CompileError{Field: "bind", Message: fmt.Sprintf("parameter %q is not bound to an axis", p), Pos: expr.Pos()}
		}
		slots := [4]*ir.Node{}
		op, _ := ir.AxisVar(axis)
		slots[axisSlot(op)] = l.params[p]
		if root, err = g.Bind(root, slots[0], slots[1], slots[2], slots[3]); err != nil {
			return nil, err
		}
	}

	for _, axis := range sortedKeys(spec.Specialize) {
		op, ok := ir.AxisVar(axis)
		if !ok {
			return nil, &CompileError{Field: "specialize", Message: fmt.Sprintf("%q is not an axis", axis)}
		}
		if root, err = g.Substitute(root, op, spec.Specialize[axis]); err != nil {
			return nil, err
		}
	}

	if root, err = g.Optimize(root); err != nil {
		return nil, err
	}
	return &Lowered{Root: root, Params: params}, nil
}

// axisSlot is the position of op in Bind's x, y, t, c argument list.
func axisSlot(op ir.OpCode) int {
	switch op {
	case ir.VarY:
		return 1
	case ir.VarT:
		return 2
	case ir.VarC:
		return 3
	}
	return 0
}

type lowerer struct {
	g      *ir.Graph
	params map[string]*ir.Node // one placeholder per parameter name
}

func (l *lowerer) errorf(n ast.Node, format string, args ...any) error {
	return &CompileError{Field: "expr", Message: fmt.Sprintf(format, args...), Pos: n.Pos()}
}

func (l *lowerer) lower(e ast.Expr) (*ir.Node, error) {
	switch n := e.(type) {
	case *ast.BasicLit:
		return l.literal(n, false)

	case *ast.Ident:
		if op, ok := ir.AxisVar(n.Name); ok {
			return l.g.Var(op)
		}
		switch n.Name {
		case "true":
			return l.g.Bool(true), nil
		case "false":
			return l.g.Bool(false), nil
		}
		p, ok := l.params[n.Name]
		if !ok {
			p = l.g.Unbound()
			l.params[n.Name] = p
		}
		return p, nil

	case *ast.ParenExpr:
		return l.lower(n.X)

	case *ast.UnaryExpr:
		return l.unary(n)

	case *ast.BinaryExpr:
		return l.binary(n)

	case *ast.CallExpr:
		return l.call(n)
	}
	return nil, l.errorf(e, "unsupported expression %T", e)
}

func (l *lowerer) literal(n *ast.BasicLit, negate bool) (*ir.Node, error) {
	text := strings.ReplaceAll(n.Value, "_", "")
	if negate {
		text = "-" + text
	}
	switch n.Kind {
	case token.INT:
		v, err := strconv.ParseInt(text, 0, 32)
		if err != nil {
			return nil, l.errorf(n, "int literal %s: %v", n.Value, err)
		}
		return l.g.Int(int32(v)), nil
	case token.FLOAT:
		v, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return nil, l.errorf(n, "float literal %s: %v", n.Value, err)
		}
		return l.g.Float(float32(v)), nil
	case token.TRUE:
		return l.g.Bool(true), nil
	case token.FALSE:
		return l.g.Bool(false), nil
	}
	return nil, l.errorf(n, "unsupported literal %s", n.Value)
}

func (l *lowerer) unary(n *ast.UnaryExpr) (*ir.Node, error) {
	if lit, ok := n.X.(*ast.BasicLit); ok && n.Op == token.SUB {
		return l.literal(lit, true)
	}
	x, err := l.lower(n.X)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case token.ADD:
		return x, nil
	case token.SUB:
		return l.g.Build(ir.Minus, l.g.Int(0), x)
	case token.NOT:
		return l.g.Build(ir.EQ, x, l.g.Int(0))
	}
	return nil, l.errorf(n, "unsupported unary operator %s", n.Op)
}

func (l *lowerer) binary(n *ast.BinaryExpr) (*ir.Node, error) {
	x, err := l.lower(n.X)
	if err != nil {
		return nil, err
	}
	y, err := l.lower(n.Y)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case token.LAND:
		if y, err = l.g.As(y, ir.Bool); err != nil {
			return nil, err
		}
		return l.g.Build(ir.And, x, y)
	case token.LOR:
		if x, err = l.g.As(x, ir.Bool); err != nil {
			return nil, err
		}
		if y, err = l.g.As(y, ir.Bool); err != nil {
			return nil, err
		}
		return l.g.Build(ir.Or, x, y)
	}

	op, ok := binaryOps[n.Op]
	if !ok {
		return nil, l.errorf(n, "unsupported operator %s", n.Op)
	}
	return l.g.Build(op, x, y)
}

func (l *lowerer) call(n *ast.CallExpr) (*ir.Node, error) {
	fn, ok := n.Fun.(*ast.Ident)
	if !ok {
		return nil, l.errorf(n, "call target must be a function name")
	}
	name := fn.Name

	if name == "load" {
		return l.load(n)
	}

	args := make([]*ir.Node, len(n.Args))
	for i, a := range n.Args {
		v, err := l.lower(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	arity := func(want int) error {
		if len(args) != want {
			return l.errorf(n, "%s takes %d arguments, got %d", name, want, len(args))
		}
		return nil
	}

	if op, ok := unaryCalls[name]; ok {
		if err := arity(1); err != nil {
			return nil, err
		}
		return l.g.Build(op, args[0])
	}
	if op, ok := binaryCalls[name]; ok {
		if err := arity(2); err != nil {
			return nil, err
		}
		return l.g.Build(op, args[0], args[1])
	}
	if t, ok := casts[name]; ok {
		if err := arity(1); err != nil {
			return nil, err
		}
		return l.g.As(args[0], t)
	}
	if name != "select" {
		return nil, l.errorf(n, "unknown function %q", name)
	}
	if err := arity(3); err != nil {
		return nil, err
	}

	// select(c, a, b) = (c && a) | (!c && b), which the masking operators
	// express without a branch.
	a, err := l.g.Build(ir.And, args[0], args[1])
	if err != nil {
		return nil, err
	}
	b, err := l.g.Build(ir.Nand, args[0], args[2])
	if err != nil {
		return nil, err
	}
	return l.g.Build(ir.Or, a, b)
}

func (l *lowerer) load(n *ast.CallExpr) (*ir.Node, error) {
	if len(n.Args) < 1 || len(n.Args) > 2 {
		return nil, l.errorf(n, "load takes 1 or 2 arguments, got %d", len(n.Args))
	}
	addr, err := l.lower(n.Args[0])
	if err != nil {
		return nil, err
	}
	if len(n.Args) == 1 {
		return l.g.Build(ir.Load, addr)
	}

	imm, err := l.lower(n.Args[1])
	if err != nil {
		return nil, err
	}
	if !imm.IsConst() || imm.Type() != ir.Int {
		return nil, l.errorf(n.Args[1], "load offset must be an int literal")
	}
	return l.g.BuildImm(ir.LoadImm, imm.IVal(), addr)
}
