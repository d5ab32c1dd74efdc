package ir

// Node is a single vertex of the expression DAG.
//
// Nodes are created only by a Graph's builder and are immutable except for
// the register hint. Identity is meaningful: the builder hash-conses
// constants and axis variables and eliminates common subexpressions, so two
// equal *Node pointers denote the same value.
type Node struct {
	graph   *Graph
	id      uint64
	op      OpCode
	typ     Type
	inputs  []*Node
	outputs []*Node // back-references, used only for CSE lookups
	ival    int32
	fval    float32
	deps    Deps
	level   int
	width   int
	reg     int
	marked  bool
}

// ID is the construction sequence number, unique within the graph.
func (n *Node) ID() uint64 { return n.id }

func (n *Node) Op() OpCode { return n.op }

func (n *Node) Type() Type { return n.typ }

// NumInputs returns the number of operands.
func (n *Node) NumInputs() int { return len(n.inputs) }

// Input returns the i-th operand.
func (n *Node) Input(i int) *Node { return n.inputs[i] }

// Inputs returns a copy of the operand list.
func (n *Node) Inputs() []*Node {
	out := make([]*Node, len(n.inputs))
	copy(out, n.inputs)
	return out
}

// Outputs returns a copy of the nodes currently using n as an input.
func (n *Node) Outputs() []*Node {
	out := make([]*Node, len(n.outputs))
	copy(out, n.outputs)
	return out
}

// IVal is the int immediate: the value of an Int constant, or the
// immediate of PlusImm, TimesImm and LoadImm.
func (n *Node) IVal() int32 { return n.ival }

// FVal is the value of a Float constant.
func (n *Node) FVal() float32 { return n.fval }

func (n *Node) Deps() Deps { return n.deps }

func (n *Node) Level() int { return n.level }

// Width is the vector width hint. Always 1.
func (n *Node) Width() int { return n.width }

// Reg is the register hint assigned by a downstream pass, or -1.
func (n *Node) Reg() int { return n.reg }

// SetReg records a register hint. It has no effect on the graph.
func (n *Node) SetReg(r int) { n.reg = r }

// IsConst reports whether n is a literal.
func (n *Node) IsConst() bool { return n.op == Const }

// Graph returns the owning graph, or nil once the node has been collected.
func (n *Node) Graph() *Graph { return n.graph }
