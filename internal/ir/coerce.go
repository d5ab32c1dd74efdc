package ir

// As returns n converted to type t. Conversions are themselves built
// through the builder:
//
//	Int   -> Float  IntToFloat(n)
//	Float -> Int    FloatToInt(n)
//	Int   -> Bool   NEQ(n, 0)
//	Float -> Bool   NEQ(n, 0.0)
//	Bool  -> Int    And(n, 1)
//	Bool  -> Float  And(n, 1.0)
//
// Converting to the node's own type returns n unchanged.
func (g *Graph) As(n *Node, t Type) (*Node, error) {
	if !g.Live(n) {
		return nil, newBuildError(ErrCodeStaleNode, NoOp, "coercion of a node that is not live in this graph")
	}
	if n.typ == t {
		return n, nil
	}

	switch n.typ {
	case Int:
		switch t {
		case Float:
			return g.Build(IntToFloat, n)
		case Bool:
			return g.Build(NEQ, n, g.Int(0))
		}
	case Float:
		switch t {
		case Int:
			return g.Build(FloatToInt, n)
		case Bool:
			return g.Build(NEQ, n, g.Float(0))
		}
	case Bool:
		switch t {
		case Int:
			return g.Build(And, n, g.Int(1))
		case Float:
			return g.Build(And, n, g.Float(1))
		}
	}
	return nil, newBuildError(ErrCodeBadCoercion, NoOp, "cannot convert %s to %s", n.typ, t)
}

// MustAs is like As but panics on error.
func (g *Graph) MustAs(n *Node, t Type) *Node {
	out, err := g.As(n, t)
	if err != nil {
		panic(err)
	}
	return out
}
