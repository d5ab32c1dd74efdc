// Package engine runs kernel compilation sessions.
//
// An Engine owns one graph context for its whole session. Kernel
// definitions are lowered into it in declaration order, so common
// subexpressions are shared across kernels by hash-consing.
//
// Session lifecycle:
// 1. New() creates the graph context and a UUIDv7 session id
// 2. Compile()/CompileAll() lower definitions: build, bind, specialize, optimize
// 3. Specialize() derives kernels with one more axis fixed
// 4. Each registered kernel gets a logical seq and, with a store, a cache row
// 5. Collect() sweeps nodes unreachable from registered roots; the
//    CollectPolicy triggers it automatically above a live node threshold
//
// The graph core never logs and never collects by itself. Both happen here.
//
// Logical clock: kernels are stamped with Clock.Next(), never wall-clock
// time, so cache listings order identically across runs.
package engine
