package ir

// findDuplicate looks for an existing node computing op over exactly these
// inputs with the same immediate.
//
// Candidates are the recorded outputs of the first input, scanned linearly.
// This is best-effort CSE bounded by that input's fan-out, not global value
// numbering.
func findDuplicate(op OpCode, t Type, in []*Node, ival int32) *Node {
	if len(in) == 0 {
		return nil
	}
	for _, cand := range in[0].outputs {
		if cand.op != op || cand.typ != t || cand.ival != ival {
			continue
		}
		if nodesEqual(cand.inputs, in) {
			return cand
		}
	}
	return nil
}

// nodesEqual checks if two operand lists are identical, in order.
func nodesEqual(a, b []*Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
