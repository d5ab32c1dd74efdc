// Package ir is the expression DAG at the core of the kernel compiler.
//
// A Graph owns every node it builds. Nodes are created only through the
// builder (Build, BuildImm, Int, Float, Bool, Var, Unbound), which applies
// type inference, constant folding, strength reduction, sum rebalancing,
// fusion and common-subexpression elimination, so structurally equal
// expressions usually share one *Node. Substitute and Bind specialize a
// finished expression; Collect reclaims everything unreachable from an
// explicit root set.
//
// This package imports nothing internal and never logs. Contract violations
// are reported as *BuildError values.
package ir
