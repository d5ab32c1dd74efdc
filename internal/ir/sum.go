package ir

import "sort"

// term is one signed operand of a flattened sum.
type term struct {
	node *Node
	pos  bool
}

// sumParts is a flattened additive chain: the non-constant terms and the
// folded constant.
type sumParts struct {
	terms []term
	ival  int32
	fval  float32
}

func (s *sumParts) collect(n *Node, pos bool) {
	switch n.op {
	case Plus:
		s.collect(n.inputs[0], pos)
		s.collect(n.inputs[1], pos)
	case Minus:
		s.collect(n.inputs[0], pos)
		s.collect(n.inputs[1], !pos)
	case PlusImm:
		s.collect(n.inputs[0], pos)
		s.addConst(n.ival, 0, pos)
	case Const:
		s.addConst(n.ival, n.fval, pos)
	default:
		s.terms = append(s.terms, term{node: n, pos: pos})
	}
}

func (s *sumParts) addConst(i int32, f float32, pos bool) {
	if pos {
		s.ival += i
		s.fval += f
	} else {
		s.ival -= i
		s.fval -= f
	}
}

// RebalanceSum canonicalizes an additive chain (Plus, Minus, PlusImm).
//
// The chain is flattened into signed terms, constants are folded into one
// literal, and the remaining terms are rebuilt as a left-leaning chain in
// ascending level order, ties broken by construction order. A negative
// term is subtracted from the chain built so far; a chain that is still
// negative at the end is subtracted from the constant, or from zero. A Float
// constant goes innermost; an Int constant goes outermost as PlusImm so
// load fusion can take it as an offset.
//
// Any other node is returned unchanged, and the result of RebalanceSum is
// a fixed point: applying it again returns the same node.
func (g *Graph) RebalanceSum(n *Node) (*Node, error) {
	if !g.Live(n) {
		return nil, newBuildError(ErrCodeStaleNode, NoOp, "rebalance of a node that is not live in this graph")
	}
	if !n.op.IsAdditive() {
		return n, nil
	}

	var s sumParts
	s.collect(n, true)
	sort.SliceStable(s.terms, func(i, j int) bool {
		a, b := s.terms[i].node, s.terms[j].node
		if a.level != b.level {
			return a.level < b.level
		}
		return a.id < b.id
	})

	t := n.typ
	if len(s.terms) == 0 {
		return g.literal(t, s.ival, s.fval), nil
	}

	// acc holds the chain so far; accPos is false while it stands for the
	// negation of its value.
	var acc *Node
	accPos := true
	var err error
	if t == Float && s.fval != 0 {
		acc = g.Float(s.fval)
	}
	for _, tm := range s.terms {
		switch {
		case acc == nil:
			acc, accPos = tm.node, tm.pos
		case accPos == tm.pos:
			acc, err = g.Build(Plus, acc, tm.node)
		case accPos:
			acc, err = g.Build(Minus, acc, tm.node)
		default:
			acc, err = g.Build(Minus, tm.node, acc)
			accPos = true
		}
		if err != nil {
			return nil, err
		}
	}

	if !accPos {
		// c - t reads better than (0 - t) + c
		if t == Int && s.ival != 0 {
			acc, err = g.Build(Minus, g.Int(s.ival), acc)
			s.ival = 0
		} else {
			acc, err = g.Build(Minus, g.literal(t, 0, 0), acc)
		}
		if err != nil {
			return nil, err
		}
	}

	if t == Int && s.ival != 0 {
		return g.BuildImm(PlusImm, s.ival, acc)
	}
	return acc, nil
}

// Optimize is the final normalization applied to a finished expression
// before it is handed to code generation.
func (g *Graph) Optimize(n *Node) (*Node, error) {
	return g.RebalanceSum(n)
}
