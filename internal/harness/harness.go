package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/irjit/internal/compiler"
	"github.com/roach88/irjit/internal/engine"
	"github.com/roach88/irjit/internal/store"
	"github.com/roach88/irjit/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios with a deterministic clock and session id.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	clock  *engine.Clock
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Create fresh in-memory database and engine
// 2. Load and compile each spec directory in order
// 3. Apply specialize steps
// 4. Collect, if requested
// 5. Read the cached kernels back as the trace
// 6. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	clock := engine.NewClock()
	eng := engine.New(
		engine.WithStore(st),
		engine.WithClock(clock),
		engine.WithSessionIDGenerator(testutil.NewFixedSessionGenerator(scenario.Session)),
		engine.WithCollectThreshold(0),
	)

	h := &Harness{
		store:  st,
		engine: eng,
		clock:  clock,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	ctx := context.Background()

	if err := h.compileSpecs(ctx, scenario.Specs); err != nil {
		return nil, fmt.Errorf("failed to compile specs: %w", err)
	}

	if err := h.specialize(ctx, scenario.Specialize); err != nil {
		return nil, fmt.Errorf("failed to specialize: %w", err)
	}

	result := NewResult()

	if scenario.Collect {
		stats, err := eng.Collect()
		if err != nil {
			return nil, fmt.Errorf("failed to collect: %w", err)
		}
		result.Collected = &stats
	}

	records, err := h.store.ReadSessionKernels(ctx, eng.SessionID())
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	for _, rec := range records {
		result.AddKernelTrace(rec)
	}
	result.Live = eng.Graph().Len()

	actx := &AssertionContext{Engine: eng}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	h.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"kernels", len(result.Trace),
		"seq", h.clock.Current(),
		"pass", result.Pass,
	)
	return result, nil
}

// compileSpecs compiles every kernel of every spec directory into the
// session, directory by directory.
func (h *Harness) compileSpecs(ctx context.Context, dirs []string) error {
	for _, dir := range dirs {
		specs, err := compiler.LoadKernels(dir)
		if err != nil {
			return fmt.Errorf("%s: %w", dir, err)
		}
		kernels, err := h.engine.CompileAll(ctx, specs)
		if err != nil {
			return fmt.Errorf("%s: %w", dir, err)
		}
		h.logger.Info("specs compiled",
			"dir", dir,
			"kernels", len(kernels),
		)
	}
	return nil
}

func (h *Harness) specialize(ctx context.Context, steps []SpecializeStep) error {
	for i, step := range steps {
		k, err := h.engine.Specialize(ctx, step.Kernel, step.Axis, step.Value)
		if err != nil {
			return fmt.Errorf("specialize[%d]: %w", i, err)
		}
		h.logger.Info("kernel specialized",
			"step", i,
			"kernel", k.Name,
			"seq", k.Seq,
		)
	}
	return nil
}
