package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/irjit/internal/ir"
)

// Scenario defines a conformance test scenario.
// A scenario compiles kernel definitions into one session and asserts on
// the resulting graphs: their rendering, their sharing, their value at
// concrete inputs and the axes they depend on.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Specs lists directories of CUE kernel definitions, compiled in order
	// into one session. Relative paths resolve against the base path given
	// to LoadScenarioWithBasePath.
	Specs []string `yaml:"specs"`

	// Specialize derives kernels after the specs are compiled.
	Specialize []SpecializeStep `yaml:"specialize,omitempty"`

	// Collect runs the collector once all kernels are registered.
	Collect bool `yaml:"collect,omitempty"`

	// Assertions validate the compiled kernels.
	// Supported types: renders_as, same_node, evaluates_to, depends_on
	Assertions []Assertion `yaml:"assertions"`

	// Session is an optional fixed session id.
	// If empty, defaults to "test-session-default" for deterministic golden file comparison.
	Session string `yaml:"session,omitempty"`
}

// SpecializeStep fixes one axis of a compiled kernel.
// The derived kernel is named "kernel[axis=value]".
type SpecializeStep struct {
	Kernel string `yaml:"kernel"`
	Axis   string `yaml:"axis"`
	Value  int32  `yaml:"value"`
}

// Assertion validates a compiled kernel.
type Assertion struct {
	// Type specifies the assertion type:
	// - "renders_as": the kernel renders to Expect
	// - "same_node": every kernel in Kernels has the same root node
	// - "evaluates_to": the kernel evaluated at Args over Mem yields Expect
	// - "depends_on": the kernel's inputs are exactly Inputs
	Type string `yaml:"type"`

	// Kernel is the kernel name (all types except same_node).
	Kernel string `yaml:"kernel,omitempty"`

	// Kernels are the kernel names that must share a root (same_node).
	Kernels []string `yaml:"kernels,omitempty"`

	// Args binds each input axis of the kernel (evaluates_to).
	// Every input must be supplied, and nothing else.
	Args map[string]int32 `yaml:"args,omitempty"`

	// Mem is the memory the kernel loads from (evaluates_to).
	Mem []float32 `yaml:"mem,omitempty"`

	// Expect is the expected rendering (renders_as) or value
	// (evaluates_to; an int, float or bool).
	Expect any `yaml:"expect,omitempty"`

	// Inputs are the expected input axes, in x, y, t, c order (depends_on).
	Inputs []string `yaml:"inputs,omitempty"`
}

// Assertion type constants.
const (
	AssertRendersAs   = "renders_as"
	AssertSameNode    = "same_node"
	AssertEvaluatesTo = "evaluates_to"
	AssertDependsOn   = "depends_on"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, "")
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving spec paths relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	// Resolve spec paths relative to base path BEFORE validation
	for i, specPath := range scenario.Specs {
		if !filepath.IsAbs(specPath) && basePath != "" {
			scenario.Specs[i] = filepath.Join(basePath, specPath)
		}
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario decodes scenario YAML without validating it.
// Unknown fields are rejected (catches typos like "assertion:" vs "assertions:").
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Specs) == 0 {
		return fmt.Errorf("specs list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for _, specPath := range s.Specs {
		if _, err := os.Stat(specPath); os.IsNotExist(err) {
			return fmt.Errorf("spec directory not found: %s", specPath)
		}
	}

	for i, step := range s.Specialize {
		if step.Kernel == "" {
			return fmt.Errorf("specialize[%d]: kernel is required", i)
		}
		if _, ok := ir.AxisVar(step.Axis); !ok {
			return fmt.Errorf("specialize[%d]: axis %q must be one of x, y, t, c", i, step.Axis)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRendersAs:
		if a.Kernel == "" {
			return fmt.Errorf("assertions[%d]: kernel is required for renders_as", index)
		}
		if _, ok := a.Expect.(string); !ok {
			return fmt.Errorf("assertions[%d]: expect must be a string for renders_as", index)
		}
	case AssertSameNode:
		if len(a.Kernels) < 2 {
			return fmt.Errorf("assertions[%d]: at least two kernels are required for same_node", index)
		}
	case AssertEvaluatesTo:
		if a.Kernel == "" {
			return fmt.Errorf("assertions[%d]: kernel is required for evaluates_to", index)
		}
		switch a.Expect.(type) {
		case int, float64, bool:
		default:
			return fmt.Errorf("assertions[%d]: expect must be a number or bool for evaluates_to", index)
		}
	case AssertDependsOn:
		if a.Kernel == "" {
			return fmt.Errorf("assertions[%d]: kernel is required for depends_on", index)
		}
		for _, in := range a.Inputs {
			if _, ok := ir.AxisVar(in); !ok {
				return fmt.Errorf("assertions[%d]: input %q must be one of x, y, t, c", index, in)
			}
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
