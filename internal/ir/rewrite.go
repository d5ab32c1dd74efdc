package ir

// reduce applies the strength-reduction rules. It returns nil when no rule
// fires.
//
// Rewrites are guided by level: a subexpression with a lower level changes
// less often across the iteration space, so the rules push low-level
// operands together where they can be hoisted or folded.
func (g *Graph) reduce(op OpCode, in []*Node) (*Node, error) {
	switch op {
	case NoOp:
		return in[0], nil

	case Divide:
		// x/y = x*(1/y) when y is cheaper than x
		if in[1].level < in[0].level {
			recip, err := g.Build(Divide, g.Float(1), in[1])
			if err != nil {
				return nil, err
			}
			return g.Build(Times, in[0], recip)
		}

	case Times:
		if n, err := g.distribute(in); n != nil || err != nil {
			return n, err
		}
		return g.reassociate(in)
	}
	return nil, nil
}

// distribute rewrites (x+a)*b to x*b + a*b when x outranks both a and b,
// and (x+imm)*b to x*b + b*imm.
func (g *Graph) distribute(in []*Node) (*Node, error) {
	var x, a, b *Node
	switch {
	case in[0].op == Plus:
		x, a, b = in[0].inputs[1], in[0].inputs[0], in[1]
	case in[1].op == Plus:
		x, a, b = in[1].inputs[1], in[1].inputs[0], in[0]
	}
	if x != nil {
		if x.level < a.level {
			x, a = a, x
		}
		if x.level > a.level && x.level > b.level {
			xb, err := g.Build(Times, x, b)
			if err != nil {
				return nil, err
			}
			ab, err := g.Build(Times, a, b)
			if err != nil {
				return nil, err
			}
			return g.Build(Plus, xb, ab)
		}
	}

	for i, side := range in {
		if side.op != PlusImm {
			continue
		}
		other := in[1-i]
		inner, err := g.Build(Times, side.inputs[0], other)
		if err != nil {
			return nil, err
		}
		offset, err := g.Build(Times, other, g.Int(side.ival))
		if err != nil {
			return nil, err
		}
		return g.Build(Plus, inner, offset)
	}
	return nil, nil
}

// reassociate rewrites (x*a)*b to x*(a*b) when x outranks both a and b, so
// constant-like factors accumulate innermost.
func (g *Graph) reassociate(in []*Node) (*Node, error) {
	var x, a, b *Node
	switch {
	case in[0].op == Times:
		x, a, b = in[0].inputs[0], in[0].inputs[1], in[1]
	case in[1].op == Times:
		x, a, b = in[1].inputs[0], in[1].inputs[1], in[0]
	default:
		return nil, nil
	}
	if x.level < a.level {
		x, a = a, x
	}
	if x.level > a.level && x.level > b.level {
		ab, err := g.Build(Times, a, b)
		if err != nil {
			return nil, err
		}
		return g.Build(Times, x, ab)
	}
	return nil, nil
}

// fuse collapses an operator with a literal operand into an
// immediate-carrying operator. It returns nil when nothing fuses.
func (g *Graph) fuse(op OpCode, t Type, in []*Node, ival int32) (*Node, error) {
	switch {
	case op.IsLoad():
		addr := in[0]
		switch addr.op {
		case Plus:
			l, r := addr.inputs[0], addr.inputs[1]
			if l.IsConst() {
				return g.BuildImm(LoadImm, l.ival+ival, r)
			}
			if r.IsConst() {
				return g.BuildImm(LoadImm, r.ival+ival, l)
			}
		case Minus:
			if r := addr.inputs[1]; r.IsConst() {
				return g.BuildImm(LoadImm, ival-r.ival, addr.inputs[0])
			}
		case PlusImm:
			return g.BuildImm(LoadImm, addr.ival+ival, addr.inputs[0])
		}

	case op == Times && t == Int:
		if l := in[0]; l.IsConst() {
			return g.BuildImm(TimesImm, l.ival, in[1])
		}
		if r := in[1]; r.IsConst() {
			return g.BuildImm(TimesImm, r.ival, in[0])
		}
	}
	return nil, nil
}
