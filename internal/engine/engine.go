package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/roach88/irjit/internal/compiler"
	"github.com/roach88/irjit/internal/ir"
	"github.com/roach88/irjit/internal/store"
)

// Kernel is a compiled kernel registered in a session.
type Kernel struct {
	Name       string
	Spec       ir.KernelSpec
	Root       *ir.Node
	Params     []string // parameters in order of first use
	Seq        int64
	SourceHash string
	GraphHash  string
	Cached     bool   // loaded from the store instead of lowered
	Base       string // for a specialization, the kernel it derives from
}

// Inputs returns the axes the compiled kernel still depends on, in the
// order x, y, t, c. These are the values a host must supply to run it.
func (k *Kernel) Inputs() []string {
	var axes []string
	for _, a := range []struct {
		name string
		dep  ir.Deps
	}{{"x", ir.DepX}, {"y", ir.DepY}, {"t", ir.DepT}, {"c", ir.DepC}} {
		if k.Root.Deps().Has(a.dep) {
			axes = append(axes, a.name)
		}
	}
	return axes
}

// Engine is one compilation session.
//
// The engine owns a single graph context. Kernels are lowered into it in
// declaration order, so hash-consing shares common subexpressions across
// every kernel of the session. Each registered kernel is stamped with a
// logical seq and, when a store is configured, written to the kernel cache.
//
// Thread-safety model:
//   - All exported methods are safe for concurrent use; they serialize on
//     one mutex because the graph context is single-threaded
//   - Kernel roots returned to callers stay live until the engine is
//     discarded: every collection saves all registered roots
type Engine struct {
	mu sync.Mutex

	graph     *ir.Graph
	store     *store.Store
	clock     SeqClock
	idGen     SessionIDGenerator
	sessionID string
	persisted bool // session row written to the store
	policy    *CollectPolicy

	kernels map[string]*Kernel
	order   []string // registration order
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithCollectThreshold sets the live node count above which the engine
// collects automatically.
//
// Default: 4096 (DefaultCollectThreshold)
// Use WithCollectThreshold(0) to collect only on explicit Collect calls.
func WithCollectThreshold(n int) Option {
	return func(e *Engine) {
		e.policy = NewCollectPolicy(n)
	}
}

// WithStore persists every registered kernel and consults the store before
// lowering a definition.
func WithStore(s *store.Store) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithClock replaces the logical clock, e.g. to continue numbering after
// the last kernel in an existing cache.
func WithClock(c SeqClock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithSessionIDGenerator replaces the UUIDv7 session id generator.
func WithSessionIDGenerator(gen SessionIDGenerator) Option {
	return func(e *Engine) {
		e.idGen = gen
	}
}

// New creates an Engine with a fresh graph context and session id.
func New(opts ...Option) *Engine {
	e := &Engine{
		graph:   ir.NewGraph(),
		clock:   NewClock(),
		idGen:   UUIDv7Generator{},
		policy:  NewCollectPolicy(DefaultCollectThreshold),
		kernels: make(map[string]*Kernel),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.sessionID = e.idGen.Generate()
	return e
}

// SessionID returns the id stamped on every kernel of this session.
func (e *Engine) SessionID() string {
	return e.sessionID
}

// Graph returns the session's graph context. Callers must not collect it
// directly; use Engine.Collect so registered roots are saved.
func (e *Engine) Graph() *ir.Graph {
	return e.graph
}

// Policy returns the collection policy.
func (e *Engine) Policy() *CollectPolicy {
	return e.policy
}

// Compile lowers one kernel definition and registers it.
//
// With a store configured, a definition whose source hash is already cached
// is decoded from the cache instead of lowered.
func (e *Engine) Compile(ctx context.Context, spec ir.KernelSpec) (*Kernel, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.compile(ctx, spec)
}

// CompileAll compiles definitions in order, stopping at the first error.
func (e *Engine) CompileAll(ctx context.Context, specs []ir.KernelSpec) ([]*Kernel, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*Kernel, 0, len(specs))
	for _, spec := range specs {
		k, err := e.compile(ctx, spec)
		if err != nil {
			return out, err
		}
		out = append(out, k)
	}
	return out, nil
}

func (e *Engine) compile(ctx context.Context, spec ir.KernelSpec) (*Kernel, error) {
	if _, dup := e.kernels[spec.Name]; dup {
		return nil, newRuntimeError(ErrCodeDuplicateKernel, spec.Name, nil, "kernel already registered")
	}

	sourceHash, err := ir.SourceHash(spec)
	if err != nil {
		return nil, newRuntimeError(ErrCodeLoweringFailed, spec.Name, err, "hash definition")
	}

	expr, err := compiler.ParseExpr(spec.Name, spec.Expr)
	if err != nil {
		return nil, newRuntimeError(ErrCodeLoweringFailed, spec.Name, err, "parse expression")
	}

	k := &Kernel{
		Name:       spec.Name,
		Spec:       spec,
		Params:     compiler.Parameters(expr),
		SourceHash: sourceHash,
	}

	if root := e.loadCached(ctx, spec.Name, sourceHash); root != nil {
		k.Root = root
		k.Cached = true
	} else {
		lowered, err := compiler.Lower(e.graph, spec)
		if err != nil {
			var ce *compiler.CompileError
			if errors.As(err, &ce) && ce.Field == "bind" {
				return nil, newRuntimeError(ErrCodeUnboundParameter, spec.Name, err, "lower")
			}
			return nil, newRuntimeError(ErrCodeLoweringFailed, spec.Name, err, "lower")
		}
		k.Root = lowered.Root
	}

	if err := e.register(ctx, k); err != nil {
		return nil, err
	}

	slog.Info("kernel compiled",
		"kernel", k.Name,
		"seq", k.Seq,
		"cached", k.Cached,
		"rendered", ir.Render(k.Root),
	)
	return k, nil
}

// loadCached returns the cached root for sourceHash, or nil on a miss.
// A cache entry that fails to load is logged and treated as a miss.
func (e *Engine) loadCached(ctx context.Context, name, sourceHash string) *ir.Node {
	if e.store == nil {
		return nil
	}
	has, err := e.store.HasKernel(ctx, sourceHash)
	if err != nil || !has {
		return nil
	}
	root, _, err := e.store.LoadKernel(ctx, e.graph, sourceHash)
	if err != nil {
		slog.Warn("ignoring unusable cache entry",
			"kernel", name,
			"source_hash", sourceHash,
			"error", err,
		)
		return nil
	}
	return root
}

// Specialize derives a kernel from a registered one with axis fixed to
// value. The derived kernel is named "name[axis=value]"; specializing the
// same kernel the same way twice returns the existing derivation.
func (e *Engine) Specialize(ctx context.Context, name, axis string, value int32) (*Kernel, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	base, ok := e.kernels[name]
	if !ok {
		return nil, newRuntimeError(ErrCodeUnknownKernel, name, nil, "cannot specialize an unregistered kernel")
	}

	derived := fmt.Sprintf("%s[%s=%d]", name, axis, value)
	if k, ok := e.kernels[derived]; ok {
		return k, nil
	}

	op, ok := ir.AxisVar(axis)
	if !ok {
		return nil, newRuntimeError(ErrCodeLoweringFailed, derived, nil, "%q is not an axis", axis)
	}

	root, err := e.graph.Substitute(base.Root, op, value)
	if err == nil {
		root, err = e.graph.Optimize(root)
	}
	if err != nil {
		return nil, newRuntimeError(ErrCodeLoweringFailed, derived, err, "specialize")
	}

	spec := base.Spec
	spec.Name = derived
	spec.Specialize = maps.Clone(base.Spec.Specialize)
	if spec.Specialize == nil {
		spec.Specialize = make(map[string]int32, 1)
	}
	spec.Specialize[axis] = value

	sourceHash, err := ir.SourceHash(spec)
	if err != nil {
		return nil, newRuntimeError(ErrCodeLoweringFailed, derived, err, "hash definition")
	}

	k := &Kernel{
		Name:       derived,
		Spec:       spec,
		Root:       root,
		Params:     base.Params,
		SourceHash: sourceHash,
		Base:       name,
	}
	if err := e.register(ctx, k); err != nil {
		return nil, err
	}

	slog.Info("kernel specialized",
		"kernel", derived,
		"base", name,
		"seq", k.Seq,
		"rendered", ir.Render(root),
	)
	return k, nil
}

// register stamps k, persists it, and applies the collection policy.
func (e *Engine) register(ctx context.Context, k *Kernel) error {
	graphHash, err := ir.KernelHash(k.Root)
	if err != nil {
		return newRuntimeError(ErrCodeLoweringFailed, k.Name, err, "hash graph")
	}
	k.GraphHash = graphHash
	k.Seq = e.clock.Next()

	if e.store != nil {
		if err := e.persist(ctx, k); err != nil {
			return newRuntimeError(ErrCodeCacheFailed, k.Name, err, "persist kernel")
		}
	}

	e.kernels[k.Name] = k
	e.order = append(e.order, k.Name)

	if e.policy.Due(e.graph.Len()) {
		if _, err := e.collect(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) persist(ctx context.Context, k *Kernel) error {
	if !e.persisted {
		err := e.store.WriteSession(ctx, ir.Session{
			ID:            e.sessionID,
			EngineVersion: ir.EngineVersion,
			IRVersion:     ir.IRVersion,
		})
		if err != nil {
			return err
		}
		e.persisted = true
	}

	data, err := ir.Encode(k.Root)
	if err != nil {
		return err
	}
	inserted, err := e.store.WriteKernel(ctx, ir.KernelRecord{
		SourceHash:    k.SourceHash,
		GraphHash:     k.GraphHash,
		Name:          k.Name,
		SessionID:     e.sessionID,
		Seq:           k.Seq,
		Expr:          k.Spec.Expr,
		Bind:          k.Spec.Bind,
		Specialize:    k.Spec.Specialize,
		Rendered:      ir.Render(k.Root),
		Graph:         data,
		NodeCount:     ir.Reachable(k.Root).Size(),
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	})
	if err != nil {
		return err
	}
	slog.Debug("kernel persisted",
		"kernel", k.Name,
		"source_hash", k.SourceHash,
		"inserted", inserted,
	)
	return nil
}

// Collect frees every node not reachable from a registered kernel root.
func (e *Engine) Collect() (ir.CollectStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.collect()
}

func (e *Engine) collect() (ir.CollectStats, error) {
	roots := make([]*ir.Node, len(e.order))
	for i, name := range e.order {
		roots[i] = e.kernels[name].Root
	}

	stats, err := e.graph.Collect(roots...)
	if err != nil {
		return ir.CollectStats{}, fmt.Errorf("collect: %w", err)
	}
	e.policy.Record(stats.Freed)

	slog.Info("graph collected",
		"kept", stats.Kept,
		"freed", stats.Freed,
		"roots", len(roots),
	)
	return stats, nil
}

// Kernel returns the registered kernel with the given name.
func (e *Engine) Kernel(name string) (*Kernel, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	k, ok := e.kernels[name]
	if !ok {
		return nil, newRuntimeError(ErrCodeUnknownKernel, name, nil, "no such kernel")
	}
	return k, nil
}

// Kernels returns every registered kernel in registration order.
func (e *Engine) Kernels() []*Kernel {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*Kernel, len(e.order))
	for i, name := range e.order {
		out[i] = e.kernels[name]
	}
	return out
}
