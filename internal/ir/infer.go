package ir

// infer computes the result type of op and coerces the operands in place.
// A non-nil early node means the operation is the identity on that node.
func (g *Graph) infer(op OpCode, in []*Node) (Type, *Node, error) {
	var err error
	switch {
	case op.IsComparison():
		if err = g.coerceAll(in, promote(in[0].typ, in[1].typ)); err != nil {
			return 0, nil, err
		}
		return Bool, nil, nil

	case op.IsTranscendental():
		return Float, nil, g.coerceAll(in, Float)

	case op.IsRounding():
		if in[0].typ != Float {
			return in[0].typ, in[0], nil
		}
		return Float, nil, nil
	}

	switch op {
	case NoOp:
		return in[0].typ, nil, nil

	case VarX, VarY, VarT, VarC, UnboundVar:
		return Int, nil, nil

	case Plus, Minus, Times, Power, Mod:
		t := Int
		if in[0].typ == Float || in[1].typ == Float {
			t = Float
		}
		return t, nil, g.coerceAll(in, t)

	case Divide, ATan2:
		return Float, nil, g.coerceAll(in, Float)

	case Abs:
		if in[0].typ == Bool {
			return Bool, in[0], nil
		}
		return in[0].typ, nil, nil

	case And, Nand:
		if in[0], err = g.As(in[0], Bool); err != nil {
			return 0, nil, err
		}
		return in[1].typ, nil, nil

	case Or:
		t := promote(in[0].typ, in[1].typ)
		return t, nil, g.coerceAll(in, t)

	case IntToFloat:
		if in[0].typ != Int {
			return 0, nil, newBuildError(ErrCodeBadCast, op, "input must be Int, got %s", in[0].typ)
		}
		return Float, nil, nil

	case FloatToInt:
		if in[0].typ != Float {
			return 0, nil, newBuildError(ErrCodeBadCast, op, "input must be Float, got %s", in[0].typ)
		}
		return Int, nil, nil

	case PlusImm, TimesImm:
		return Int, nil, g.coerceAll(in, Int)

	case Load, LoadImm:
		// Memory is an untyped float array indexed by integer offset.
		return Float, nil, g.coerceAll(in, Int)
	}
	return 0, nil, newBuildError(ErrCodeBadOpCode, op, "no type rule")
}

// promote picks Float over Int over Bool.
func promote(a, b Type) Type {
	switch {
	case a == Float || b == Float:
		return Float
	case a == Int || b == Int:
		return Int
	default:
		return Bool
	}
}

func (g *Graph) coerceAll(in []*Node, t Type) error {
	for i := range in {
		n, err := g.As(in[i], t)
		if err != nil {
			return err
		}
		in[i] = n
	}
	return nil
}
