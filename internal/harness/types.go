package harness

import "github.com/roach88/irjit/internal/ir"

// TraceEvent is one registered kernel as the cache recorded it.
// The trace is read back from the store, so a golden trace also pins the
// persisted form of every kernel.
type TraceEvent struct {
	Seq        int64             `json:"seq"`
	Kernel     string            `json:"kernel"`
	Rendered   string            `json:"rendered"`
	GraphHash  string            `json:"graph_hash"`
	Nodes      int               `json:"nodes"`
	Bind       map[string]string `json:"bind,omitempty"`
	Specialize map[string]int32  `json:"specialize,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every assertion holds.
	Pass bool `json:"pass"`

	// Trace lists the registered kernels in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Live is the live node count of the session graph after the run.
	Live int `json:"live"`

	// Collected holds the stats of the collection requested by the
	// scenario, if any.
	Collected *ir.CollectStats `json:"collected,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddKernelTrace appends a cached kernel record to the trace.
func (r *Result) AddKernelTrace(rec ir.KernelRecord) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:        rec.Seq,
		Kernel:     rec.Name,
		Rendered:   rec.Rendered,
		GraphHash:  rec.GraphHash,
		Nodes:      rec.NodeCount,
		Bind:       rec.Bind,
		Specialize: rec.Specialize,
	})
}
