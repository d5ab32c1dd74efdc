package ir

// Build returns a node equivalent to applying op to inputs.
//
// The builder runs, in order: arity check, type inference and coercion,
// constant folding, strength reduction, sum rebalancing of the inputs of
// non-additive operators, axis variable hash-consing, instruction fusion,
// and common-subexpression elimination. Only when every stage declines is a
// new node allocated. Semantically identical expressions therefore collapse
// to the same *Node whenever that is cheap to detect; this is best-effort,
// not a full equivalence oracle.
//
// Only literals hold a float value; no operator takes a float immediate.
func (g *Graph) Build(op OpCode, inputs ...*Node) (*Node, error) {
	return g.build(op, inputs, 0)
}

// BuildImm is Build for operators carrying an int immediate
// (PlusImm, TimesImm, LoadImm).
func (g *Graph) BuildImm(op OpCode, imm int32, inputs ...*Node) (*Node, error) {
	if !op.IsImmediate() {
		return nil, newBuildError(ErrCodeBadOpCode, op, "%s takes no immediate", op)
	}
	return g.build(op, inputs, imm)
}

// MustBuild is like Build but panics on error.
// Use only in tests or when inputs are known to be well-formed.
func (g *Graph) MustBuild(op OpCode, inputs ...*Node) *Node {
	n, err := g.Build(op, inputs...)
	if err != nil {
		panic(err)
	}
	return n
}

// MustBuildImm is like BuildImm but panics on error.
func (g *Graph) MustBuildImm(op OpCode, imm int32, inputs ...*Node) *Node {
	n, err := g.BuildImm(op, imm, inputs...)
	if err != nil {
		panic(err)
	}
	return n
}

func (g *Graph) build(op OpCode, inputs []*Node, ival int32) (*Node, error) {
	if !op.Valid() {
		return nil, newBuildError(ErrCodeBadOpCode, op, "unknown operator")
	}
	if op == Const {
		return nil, newBuildError(ErrCodeBadOpCode, op, "constants must be built from a literal")
	}
	if len(inputs) != op.Arity() {
		return nil, newBuildError(ErrCodeBadArity, op, "wrong number of inputs: got %d, want %d", len(inputs), op.Arity())
	}
	for i, in := range inputs {
		if !g.Live(in) {
			return nil, newBuildError(ErrCodeStaleNode, op, "input %d is not a live node of this graph", i)
		}
	}

	// The stages below rewrite the operand list; never touch the caller's.
	in := make([]*Node, len(inputs))
	copy(in, inputs)

	t, early, err := g.infer(op, in)
	if err != nil {
		return nil, err
	}
	if early != nil {
		return early, nil
	}

	if n, ok := g.fold(op, t, in, ival); ok {
		return n, nil
	}

	if n, err := g.reduce(op, in); n != nil || err != nil {
		return n, err
	}

	if !op.IsAdditive() {
		for i := range in {
			if in[i], err = g.RebalanceSum(in[i]); err != nil {
				return nil, err
			}
		}
	}

	if op.IsAxisVar() {
		if n, ok := g.vars[op]; ok {
			return n, nil
		}
		n := g.newNode(t, op, nil, 0, 0)
		g.vars[op] = n
		return n, nil
	}

	// Each placeholder denotes its own specialization site.
	if op == UnboundVar {
		return g.Unbound(), nil
	}

	if n, err := g.fuse(op, t, in, ival); n != nil || err != nil {
		return n, err
	}

	if n := findDuplicate(op, t, in, ival); n != nil {
		return n, nil
	}

	return g.newNode(t, op, in, ival, 0), nil
}
