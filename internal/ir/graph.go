package ir

import "math"

// Graph is a compilation context: it owns every node it builds, the
// hash-consing tables for constants and axis variables, and the registry
// the collector sweeps.
//
// A Graph is not safe for concurrent use. Use one Graph per compilation
// unit, or serialize every builder and collector call externally.
type Graph struct {
	nodes  []*Node // registry, construction order
	ints   map[int32]*Node
	floats map[uint32]*Node // keyed by IEEE-754 bits
	bools  map[bool]*Node
	vars   map[OpCode]*Node
	nextID uint64
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		ints:   make(map[int32]*Node),
		floats: make(map[uint32]*Node),
		bools:  make(map[bool]*Node),
		vars:   make(map[OpCode]*Node),
	}
}

// Len returns the number of live nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Live reports whether n is owned by g and has not been collected.
func (g *Graph) Live(n *Node) bool {
	return n != nil && n.graph == g
}

// Int returns the hash-consed Int literal v.
func (g *Graph) Int(v int32) *Node {
	if n, ok := g.ints[v]; ok {
		return n
	}
	n := g.newNode(Int, Const, nil, v, 0)
	g.ints[v] = n
	return n
}

// Float returns the hash-consed Float literal v.
func (g *Graph) Float(v float32) *Node {
	bits := floatKey(v)
	if n, ok := g.floats[bits]; ok {
		return n
	}
	n := g.newNode(Float, Const, nil, 0, v)
	g.floats[bits] = n
	return n
}

// Bool returns the hash-consed Bool literal v, stored as 0 or 1.
func (g *Graph) Bool(v bool) *Node {
	if n, ok := g.bools[v]; ok {
		return n
	}
	var i int32
	if v {
		i = 1
	}
	n := g.newNode(Bool, Const, nil, i, 0)
	g.bools[v] = n
	return n
}

// Var returns the singleton node for an axis variable.
func (g *Graph) Var(op OpCode) (*Node, error) {
	if !op.IsAxisVar() {
		return nil, newBuildError(ErrCodeBadVariable, op, "%s is not an axis variable", op)
	}
	return g.Build(op)
}

// Unbound returns a fresh placeholder. Placeholders are never shared.
func (g *Graph) Unbound() *Node {
	return g.newNode(Int, UnboundVar, nil, 0, 0)
}

// Reset discards every node and clears the hash-consing tables.
func (g *Graph) Reset() {
	for _, n := range g.nodes {
		n.release()
	}
	g.nodes = nil
	g.ints = make(map[int32]*Node)
	g.floats = make(map[uint32]*Node)
	g.bools = make(map[bool]*Node)
	g.vars = make(map[OpCode]*Node)
}

// literal returns the constant of type t holding v, converting as needed.
func (g *Graph) literal(t Type, i int32, f float32) *Node {
	switch t {
	case Float:
		return g.Float(f)
	case Bool:
		return g.Bool(i != 0)
	}
	return g.Int(i)
}

// newNode allocates and registers a node. Dependencies and level are fixed
// here and never change afterwards.
func (g *Graph) newNode(t Type, op OpCode, inputs []*Node, ival int32, fval float32) *Node {
	n := &Node{
		graph: g,
		id:    g.nextID,
		op:    op,
		typ:   t,
		ival:  ival,
		fval:  fval,
		width: 1,
		reg:   -1,
		deps:  op.ownDeps(),
	}
	g.nextID++
	if len(inputs) > 0 {
		n.inputs = make([]*Node, len(inputs))
		copy(n.inputs, inputs)
	}
	for _, in := range n.inputs {
		n.deps |= in.deps
		in.outputs = append(in.outputs, n)
	}
	n.level = levelOf(n.deps)
	g.nodes = append(g.nodes, n)
	return n
}

// release detaches a node from its graph so later use is detectable.
func (n *Node) release() {
	n.graph = nil
	n.inputs = nil
	n.outputs = nil
}

// floatKey is the table key for a float literal. Keying by bits keeps
// -0.0 and 0.0 apart and lets NaN be hash-consed.
func floatKey(f float32) uint32 { return math.Float32bits(f) }
