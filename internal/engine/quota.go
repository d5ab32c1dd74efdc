package engine

// DefaultCollectThreshold is the live node count above which the engine
// collects after registering a kernel.
const DefaultCollectThreshold = 4096

// CollectPolicy decides when the engine runs the collector.
//
// The graph core never collects on its own: intermediate nodes from
// lowering, binding and specialization stay live until a policy outside
// the core decides to sweep. This policy sweeps whenever the live node
// count exceeds a threshold, saving every registered kernel root.
//
// A threshold of zero or less disables automatic collection; Engine.Collect
// still works.
type CollectPolicy struct {
	threshold   int
	collections int
	freed       int
}

// NewCollectPolicy creates a policy with the given threshold.
func NewCollectPolicy(threshold int) *CollectPolicy {
	return &CollectPolicy{threshold: threshold}
}

// Due reports whether a graph with live nodes should be collected.
func (p *CollectPolicy) Due(live int) bool {
	return p.threshold > 0 && live > p.threshold
}

// Record notes a finished collection.
func (p *CollectPolicy) Record(freed int) {
	p.collections++
	p.freed += freed
}

// Threshold returns the configured threshold.
func (p *CollectPolicy) Threshold() int {
	return p.threshold
}

// Collections returns how many collections have run.
func (p *CollectPolicy) Collections() int {
	return p.collections
}

// Freed returns the total number of nodes freed across collections.
func (p *CollectPolicy) Freed() int {
	return p.freed
}
