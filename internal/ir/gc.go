package ir

import (
	"github.com/hashicorp/go-set/v3"
)

// CollectStats reports the outcome of a collection.
type CollectStats struct {
	Kept  int `json:"kept"`
	Freed int `json:"freed"`
}

// Collect frees every node not reachable from roots through input edges.
//
// The caller must pass every node it intends to use again: a node that is
// freed is detached from the graph, and any later builder call that receives
// it fails with STALE_NODE. The hash-consing tables are rebuilt from the
// surviving nodes, so building a literal whose node was freed allocates a
// fresh one.
func (g *Graph) Collect(roots ...*Node) (CollectStats, error) {
	for i, r := range roots {
		if !g.Live(r) {
			return CollectStats{}, newBuildError(ErrCodeStaleNode, NoOp, "root %d is not a live node of this graph", i)
		}
	}

	for _, n := range g.nodes {
		n.marked = true
	}
	for _, r := range roots {
		r.unmark()
	}

	kept := make([]*Node, 0, len(g.nodes))
	var freed []*Node
	ints := make(map[int32]*Node)
	floats := make(map[uint32]*Node)
	bools := make(map[bool]*Node)
	vars := make(map[OpCode]*Node)

	for _, n := range g.nodes {
		if n.marked {
			freed = append(freed, n)
			continue
		}
		kept = append(kept, n)
		switch {
		case n.op == Const && n.typ == Float:
			floats[floatKey(n.fval)] = n
		case n.op == Const && n.typ == Bool:
			bools[n.ival != 0] = n
		case n.op == Const:
			ints[n.ival] = n
		case n.op.IsAxisVar():
			vars[n.op] = n
		}
	}

	// Survivors may still list freed nodes as outputs.
	for _, n := range kept {
		live := n.outputs[:0]
		for _, out := range n.outputs {
			if !out.marked {
				live = append(live, out)
			}
		}
		clear(n.outputs[len(live):])
		n.outputs = live
	}
	for _, n := range freed {
		n.marked = false
		n.release()
	}

	g.nodes = kept
	g.ints = ints
	g.floats = floats
	g.bools = bools
	g.vars = vars

	return CollectStats{Kept: len(kept), Freed: len(freed)}, nil
}

// unmark clears the mark on n and everything it reaches. Descent stops at
// nodes already cleared, so shared subgraphs are visited once.
func (n *Node) unmark() {
	if !n.marked {
		return
	}
	n.marked = false
	for _, in := range n.inputs {
		in.unmark()
	}
}

// Reachable returns the set of nodes reachable from roots, roots included.
func Reachable(roots ...*Node) *set.Set[*Node] {
	seen := set.New[*Node](0)
	var visit func(*Node)
	visit = func(n *Node) {
		if !seen.Insert(n) {
			return
		}
		for _, in := range n.inputs {
			visit(in)
		}
	}
	for _, r := range roots {
		if r != nil {
			visit(r)
		}
	}
	return seen
}

// Schedule returns the nodes reachable from root in post-order: every node
// appears after all of its inputs, and the root comes last. Inputs are
// visited left to right, so the order is deterministic.
func Schedule(root *Node) []*Node {
	if root == nil {
		return nil
	}
	seen := set.New[*Node](0)
	var order []*Node
	var visit func(*Node)
	visit = func(n *Node) {
		if !seen.Insert(n) {
			return
		}
		for _, in := range n.inputs {
			visit(in)
		}
		order = append(order, n)
	}
	visit(root)
	return order
}
