package ir

import "math"

// fold evaluates op at build time when every operand is a literal.
//
// Transcendentals, Power, Mod, rounding and comparisons are left alone;
// their results are computed by the generated code.
func (g *Graph) fold(op OpCode, t Type, in []*Node, ival int32) (*Node, bool) {
	if len(in) == 0 {
		return nil, false
	}
	for _, n := range in {
		if !n.IsConst() {
			return nil, false
		}
	}

	a := in[0]
	var b *Node
	if len(in) > 1 {
		b = in[1]
	}

	switch op {
	case Plus:
		return g.literal(t, a.ival+b.ival, a.fval+b.fval), true
	case Minus:
		return g.literal(t, a.ival-b.ival, a.fval-b.fval), true
	case Times:
		return g.literal(t, a.ival*b.ival, a.fval*b.fval), true
	case PlusImm:
		return g.Int(a.ival + ival), true
	case TimesImm:
		return g.Int(a.ival * ival), true
	case Divide:
		return g.Float(a.fval / b.fval), true
	case And:
		if truthy(a) {
			return b, true
		}
		return g.literal(t, 0, 0), true
	case Nand:
		if !truthy(a) {
			return b, true
		}
		return g.literal(t, 0, 0), true
	case Or:
		switch t {
		case Float:
			// Bitwise, as the generated code computes it. For the masked
			// operands select produces this is a merge.
			return g.Float(math.Float32frombits(floatKey(a.fval) | floatKey(b.fval))), true
		case Int:
			return g.Int(a.ival | b.ival), true
		case Bool:
			return g.Bool(a.ival|b.ival != 0), true
		}
	case IntToFloat:
		return g.Float(float32(a.ival)), true
	case FloatToInt:
		return g.Int(int32(a.fval)), true
	}
	return nil, false
}

// truthy is the "nonzero" reading of a literal.
func truthy(n *Node) bool {
	if n.typ == Float {
		return n.fval != 0
	}
	return n.ival != 0
}
