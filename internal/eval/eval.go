// Package eval is a reference interpreter for expression graphs.
//
// It computes what generated code would compute for one point of the
// iteration space, with native int32 and float32 arithmetic. Tests use it to
// check that the builder's folding and rewriting preserve meaning; the CLI
// uses it to run a kernel without a code generator.
package eval

import (
	"fmt"
	"math"

	"github.com/roach88/irjit/internal/ir"
)

// Env is one point of the iteration space plus the memory it reads.
type Env struct {
	X, Y, T, C int32
	Mem        []float32
}

// Value is a typed scalar. Bools are stored in I as 0 or 1.
type Value struct {
	Type ir.Type
	I    int32
	F    float32
}

// Int returns an Int value.
func Int(v int32) Value { return Value{Type: ir.Int, I: v} }

// Float returns a Float value.
func Float(v float32) Value { return Value{Type: ir.Float, F: v} }

// Bool returns a Bool value.
func Bool(v bool) Value {
	if v {
		return Value{Type: ir.Bool, I: 1}
	}
	return Value{Type: ir.Bool}
}

// Truthy is the "nonzero" reading used by And, Nand and coercion to Bool.
func (v Value) Truthy() bool {
	if v.Type == ir.Float {
		return v.F != 0
	}
	return v.I != 0
}

func (v Value) String() string {
	switch v.Type {
	case ir.Float:
		return fmt.Sprintf("%g", v.F)
	case ir.Bool:
		return fmt.Sprintf("%t", v.I != 0)
	}
	return fmt.Sprintf("%d", v.I)
}

// Eval computes the value of root at env. Shared subexpressions are
// evaluated once.
func Eval(root *ir.Node, env Env) (Value, error) {
	e := &evaluator{env: env, memo: make(map[*ir.Node]Value)}
	return e.eval(root)
}

type evaluator struct {
	env  Env
	memo map[*ir.Node]Value
}

func (e *evaluator) eval(n *ir.Node) (Value, error) {
	if n == nil || n.Graph() == nil {
		return Value{}, fmt.Errorf("eval: node is not live")
	}
	if v, ok := e.memo[n]; ok {
		return v, nil
	}

	args := make([]Value, n.NumInputs())
	for i := range args {
		v, err := e.eval(n.Input(i))
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}

	v, err := e.apply(n, args)
	if err != nil {
		return Value{}, fmt.Errorf("eval %s: %w", n.Op(), err)
	}
	e.memo[n] = v
	return v, nil
}

func (e *evaluator) apply(n *ir.Node, a []Value) (Value, error) {
	t := n.Type()
	switch op := n.Op(); op {
	case ir.Const:
		return Value{Type: t, I: n.IVal(), F: n.FVal()}, nil
	case ir.VarX:
		return Int(e.env.X), nil
	case ir.VarY:
		return Int(e.env.Y), nil
	case ir.VarT:
		return Int(e.env.T), nil
	case ir.VarC:
		return Int(e.env.C), nil
	case ir.UnboundVar:
		return Value{}, fmt.Errorf("placeholder <%d> was never bound", n.ID())

	case ir.Plus:
		return arith(t, a, func(x, y int32) int32 { return x + y }, func(x, y float32) float32 { return x + y }), nil
	case ir.Minus:
		return arith(t, a, func(x, y int32) int32 { return x - y }, func(x, y float32) float32 { return x - y }), nil
	case ir.Times:
		return arith(t, a, func(x, y int32) int32 { return x * y }, func(x, y float32) float32 { return x * y }), nil
	case ir.Divide:
		return Float(a[0].F / a[1].F), nil
	case ir.Power:
		if t == ir.Float {
			return Float(float32(math.Pow(float64(a[0].F), float64(a[1].F)))), nil
		}
		return Int(ipow(a[0].I, a[1].I)), nil
	case ir.Mod:
		if t == ir.Float {
			return Float(float32(math.Mod(float64(a[0].F), float64(a[1].F)))), nil
		}
		if a[1].I == 0 {
			return Value{}, fmt.Errorf("integer modulo by zero")
		}
		return Int(a[0].I % a[1].I), nil
	case ir.PlusImm:
		return Int(a[0].I + n.IVal()), nil
	case ir.TimesImm:
		return Int(a[0].I * n.IVal()), nil

	case ir.Sin, ir.Cos, ir.Tan, ir.ASin, ir.ACos, ir.ATan, ir.Exp, ir.Log:
		return Float(float32(unary[op](float64(a[0].F)))), nil
	case ir.ATan2:
		return Float(float32(math.Atan2(float64(a[0].F), float64(a[1].F)))), nil
	case ir.Abs:
		if t == ir.Float {
			return Float(float32(math.Abs(float64(a[0].F)))), nil
		}
		if a[0].I < 0 {
			return Int(-a[0].I), nil
		}
		return a[0], nil
	case ir.Floor:
		return Float(float32(math.Floor(float64(a[0].F)))), nil
	case ir.Ceil:
		return Float(float32(math.Ceil(float64(a[0].F)))), nil
	case ir.Round:
		return Float(float32(math.RoundToEven(float64(a[0].F)))), nil

	case ir.LT, ir.GT, ir.LTE, ir.GTE, ir.EQ, ir.NEQ:
		return Bool(compare(op, a[0], a[1])), nil

	case ir.And:
		if a[0].Truthy() {
			return a[1], nil
		}
		return Value{Type: t}, nil
	case ir.Nand:
		if !a[0].Truthy() {
			return a[1], nil
		}
		return Value{Type: t}, nil
	case ir.Or:
		if t == ir.Float {
			return Float(math.Float32frombits(math.Float32bits(a[0].F) | math.Float32bits(a[1].F))), nil
		}
		return Value{Type: t, I: a[0].I | a[1].I}, nil

	case ir.IntToFloat:
		return Float(float32(a[0].I)), nil
	case ir.FloatToInt:
		return Int(int32(a[0].F)), nil

	case ir.Load:
		return e.load(a[0].I)
	case ir.LoadImm:
		return e.load(a[0].I + n.IVal())
	}
	return Value{}, fmt.Errorf("no evaluation rule")
}

func (e *evaluator) load(addr int32) (Value, error) {
	if addr < 0 || int(addr) >= len(e.env.Mem) {
		return Value{}, fmt.Errorf("address %d outside memory of %d floats", addr, len(e.env.Mem))
	}
	return Float(e.env.Mem[addr]), nil
}

var unary = map[ir.OpCode]func(float64) float64{
	ir.Sin:  math.Sin,
	ir.Cos:  math.Cos,
	ir.Tan:  math.Tan,
	ir.ASin: math.Asin,
	ir.ACos: math.Acos,
	ir.ATan: math.Atan,
	ir.Exp:  math.Exp,
	ir.Log:  math.Log,
}

func arith(t ir.Type, a []Value, fi func(x, y int32) int32, ff func(x, y float32) float32) Value {
	if t == ir.Float {
		return Float(ff(a[0].F, a[1].F))
	}
	return Int(fi(a[0].I, a[1].I))
}

// ipow is integer exponentiation; negative exponents truncate to zero
// except for bases 1 and -1.
func ipow(base, exp int32) int32 {
	if exp < 0 {
		switch base {
		case 1:
			return 1
		case -1:
			if exp%2 == 0 {
				return 1
			}
			return -1
		}
		return 0
	}
	result := int32(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}

func compare(op ir.OpCode, x, y Value) bool {
	if x.Type == ir.Float {
		switch op {
		case ir.LT:
			return x.F < y.F
		case ir.GT:
			return x.F > y.F
		case ir.LTE:
			return x.F <= y.F
		case ir.GTE:
			return x.F >= y.F
		case ir.EQ:
			return x.F == y.F
		}
		return x.F != y.F
	}
	switch op {
	case ir.LT:
		return x.I < y.I
	case ir.GT:
		return x.I > y.I
	case ir.LTE:
		return x.I <= y.I
	case ir.GTE:
		return x.I >= y.I
	case ir.EQ:
		return x.I == y.I
	}
	return x.I != y.I
}
