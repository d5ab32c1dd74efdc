package ir

import (
	"encoding/json"
	"fmt"
	"math"
)

// snapshotNode is one record of an encoded graph. Inputs refer to earlier
// records by index.
type snapshotNode struct {
	Op    string `json:"op"`
	Type  string `json:"type"`
	In    []int  `json:"in,omitempty"`
	IVal  int32  `json:"ival,omitempty"`
	FBits uint32 `json:"fbits,omitempty"`
}

type snapshot struct {
	Nodes []snapshotNode `json:"nodes"`
	Root  int            `json:"root"`
}

// Encode serializes the subgraph reachable from root as canonical JSON, in
// deterministic post-order. Float literals are stored by bit pattern.
//
// Placeholders keep their identity within one encoding: two uses of the
// same placeholder refer to the same record.
func Encode(root *Node) ([]byte, error) {
	if root == nil || root.graph == nil {
		return nil, newBuildError(ErrCodeStaleNode, NoOp, "encode of a node that is not live")
	}

	index := make(map[*Node]int)
	var records []any
	var visit func(n *Node) int
	visit = func(n *Node) int {
		if i, ok := index[n]; ok {
			return i
		}
		in := make([]any, len(n.inputs))
		for i, child := range n.inputs {
			in[i] = visit(child)
		}
		rec := map[string]any{
			"op":   n.op.String(),
			"type": n.typ.String(),
		}
		if len(in) > 0 {
			rec["in"] = in
		}
		if n.ival != 0 {
			rec["ival"] = n.ival
		}
		if bits := math.Float32bits(n.fval); bits != 0 {
			rec["fbits"] = bits
		}
		index[n] = len(records)
		records = append(records, rec)
		return index[n]
	}
	rootIdx := visit(root)

	return MarshalCanonical(map[string]any{
		"nodes": records,
		"root":  rootIdx,
	})
}

// Decode rebuilds an encoded graph into g and returns the root.
//
// Records are taken as already canonical: operator nodes are type checked
// and deduplicated against g, but never folded or rewritten again, so a
// decoded graph has the same shape and hash as the one encoded. Literals
// and axis variables are hash-consed as usual.
func Decode(g *Graph, data []byte) (*Node, error) {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if len(s.Nodes) == 0 {
		return nil, fmt.Errorf("decode snapshot: no nodes")
	}
	if s.Root < 0 || s.Root >= len(s.Nodes) {
		return nil, fmt.Errorf("decode snapshot: root %d out of range", s.Root)
	}

	built := make([]*Node, len(s.Nodes))
	for i, rec := range s.Nodes {
		n, err := decodeNode(g, rec, built[:i])
		if err != nil {
			return nil, fmt.Errorf("decode snapshot: node %d: %w", i, err)
		}
		built[i] = n
	}
	return built[s.Root], nil
}

func decodeNode(g *Graph, rec snapshotNode, prev []*Node) (*Node, error) {
	op, ok := ParseOpCode(rec.Op)
	if !ok {
		return nil, fmt.Errorf("unknown operator %q", rec.Op)
	}
	typ, ok := ParseType(rec.Type)
	if !ok {
		return nil, fmt.Errorf("unknown type %q", rec.Type)
	}

	in := make([]*Node, len(rec.In))
	for j, idx := range rec.In {
		if idx < 0 || idx >= len(prev) {
			return nil, fmt.Errorf("input %d refers to record %d, not yet defined", j, idx)
		}
		in[j] = prev[idx]
	}

	switch {
	case op == Const:
		return g.literal(typ, rec.IVal, math.Float32frombits(rec.FBits)), nil
	case op == UnboundVar:
		return g.Unbound(), nil
	case op.IsAxisVar():
		return g.Var(op)
	}

	if len(in) != op.Arity() {
		return nil, newBuildError(ErrCodeBadArity, op, "wrong number of inputs: got %d, want %d", len(in), op.Arity())
	}
	if rec.FBits != 0 {
		return nil, fmt.Errorf("%s carries a float value", op)
	}
	if rec.IVal != 0 && !op.IsImmediate() {
		return nil, fmt.Errorf("%s carries an immediate", op)
	}

	checked := make([]*Node, len(in))
	copy(checked, in)
	t, early, err := g.infer(op, checked)
	if err != nil {
		return nil, err
	}
	if early != nil || t != typ || !nodesEqual(checked, in) {
		return nil, fmt.Errorf("%s record is not well typed", op)
	}

	if n := findDuplicate(op, typ, in, rec.IVal); n != nil {
		return n, nil
	}
	return g.newNode(typ, op, in, rec.IVal, 0), nil
}
