package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/irjit/internal/ir"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string           `json:"scenario_name"`
	Session      string           `json:"session,omitempty"`
	Trace        []TraceEvent     `json:"trace"`
	Live         int              `json:"live"`
	Collected    *ir.CollectStats `json:"collected,omitempty"`
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles primitives, slices and maps.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"seq":        event.Seq,
			"kernel":     event.Kernel,
			"rendered":   event.Rendered,
			"graph_hash": event.GraphHash,
			"nodes":      event.Nodes,
		}
		if len(event.Bind) > 0 {
			bind := make(map[string]any, len(event.Bind))
			for k, v := range event.Bind {
				bind[k] = v
			}
			eventMap["bind"] = bind
		}
		if len(event.Specialize) > 0 {
			spec := make(map[string]any, len(event.Specialize))
			for k, v := range event.Specialize {
				spec[k] = v
			}
			eventMap["specialize"] = spec
		}
		traceList[i] = eventMap
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
		"live":          s.Live,
	}
	if s.Session != "" {
		result["session"] = s.Session
	}
	if s.Collected != nil {
		result["collected"] = map[string]any{
			"kept":  s.Collected.Kept,
			"freed": s.Collected.Freed,
		}
	}
	return result
}

// Snapshot serializes a scenario result as canonical JSON, the form stored
// in golden files.
func Snapshot(scenario *Scenario, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenario.Name,
		Session:      scenario.Session,
		Trace:        result.Trace,
		Live:         result.Live,
		Collected:    result.Collected,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Options are applied after the defaults, so goldie.WithFixtureDir
// relocates the fixtures.
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...goldie.Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	traceJSON, err := Snapshot(scenario, result)
	if err != nil {
		return nil, err
	}

	newGoldie(t, opts).Assert(t, scenario.Name, traceJSON)

	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result, opts ...goldie.Option) error {
	t.Helper()

	traceJSON, err := Snapshot(scenario, result)
	if err != nil {
		return err
	}

	newGoldie(t, opts).Assert(t, scenario.Name, traceJSON)

	return nil
}

func newGoldie(t *testing.T, opts []goldie.Option) *goldie.Goldie {
	base := []goldie.Option{
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	}
	return goldie.New(t, append(base, opts...)...)
}
