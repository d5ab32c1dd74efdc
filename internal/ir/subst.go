package ir

// Substitute returns n with every occurrence of the axis variable v
// replaced by the Int literal val.
//
// Subtrees that do not depend on v are returned as-is, so the cost is
// proportional to the dependent subgraph. Rebuilt nodes go through the
// builder and pick up folding and CSE.
func (g *Graph) Substitute(n *Node, v OpCode, val int32) (*Node, error) {
	if !v.IsAxisVar() {
		return nil, newBuildError(ErrCodeBadVariable, v, "%s is not an axis variable", v)
	}
	if !g.Live(n) {
		return nil, newBuildError(ErrCodeStaleNode, v, "substitution into a node that is not live in this graph")
	}
	s := &rewriter{
		g:    g,
		memo: make(map[*Node]*Node),
		dep:  v.Dep(),
		leaf: func(n *Node) *Node {
			if n.op == v {
				return g.Int(val)
			}
			return nil
		},
	}
	return s.rewrite(n)
}

// Bind replaces the placeholders x, y, t and c with the matching axis
// variables. Placeholders are matched by identity; nil arguments and
// placeholders not named are left in place.
func (g *Graph) Bind(n, x, y, t, c *Node) (*Node, error) {
	if !g.Live(n) {
		return nil, newBuildError(ErrCodeStaleNode, UnboundVar, "binding into a node that is not live in this graph")
	}
	targets := make(map[*Node]*Node, 4)
	axes := [...]OpCode{VarX, VarY, VarT, VarC}
	for i, p := range [...]*Node{x, y, t, c} {
		if p == nil {
			continue
		}
		if !g.Live(p) {
			return nil, newBuildError(ErrCodeStaleNode, UnboundVar, "bind target for %s is not live in this graph", AxisName(axes[i]))
		}
		if p.op != UnboundVar {
			return nil, newBuildError(ErrCodeBadVariable, p.op, "bind target for %s is not a placeholder", AxisName(axes[i]))
		}
		v, err := g.Var(axes[i])
		if err != nil {
			return nil, err
		}
		targets[p] = v
	}

	b := &rewriter{
		g:    g,
		memo: make(map[*Node]*Node),
		dep:  DepUnbound,
		leaf: func(n *Node) *Node {
			if v, ok := targets[n]; ok {
				return v
			}
			if n.op == UnboundVar {
				return n
			}
			return nil
		},
	}
	return b.rewrite(n)
}

// rewriter is a memoized bottom-up rebuild restricted to nodes carrying dep.
type rewriter struct {
	g    *Graph
	memo map[*Node]*Node
	dep  Deps
	leaf func(*Node) *Node
}

func (r *rewriter) rewrite(n *Node) (*Node, error) {
	if n.deps&r.dep == 0 {
		return n, nil
	}
	if out := r.leaf(n); out != nil {
		return out, nil
	}
	if out, ok := r.memo[n]; ok {
		return out, nil
	}

	in := make([]*Node, len(n.inputs))
	changed := false
	for i, child := range n.inputs {
		c, err := r.rewrite(child)
		if err != nil {
			return nil, err
		}
		in[i] = c
		changed = changed || c != child
	}

	out := n
	if changed {
		var err error
		if out, err = r.g.build(n.op, in, n.ival); err != nil {
			return nil, err
		}
	}
	r.memo[n] = out
	return out, nil
}
