// Package harness provides conformance testing for kernel definitions.
//
// The harness compiles CUE kernel definitions into one engine session,
// then checks the resulting expression graphs against assertions written
// in YAML scenarios.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	session: fixed-session-id    # optional
//	specs:
//	  - stencil                  # directories of CUE kernel definitions
//	specialize:                  # optional
//	  - kernel: blur
//	    axis: x
//	    value: 2
//	collect: true                # optional
//	assertions:
//	  - type: renders_as
//	    kernel: offset
//	    expect: "(x+6)"
//	  - type: same_node
//	    kernels: [offset, offset_literal]
//	  - type: evaluates_to
//	    kernel: blur
//	    args: { x: 2 }
//	    mem: [0, 2, 4, 6, 8]
//	    expect: 4.0
//	  - type: depends_on
//	    kernel: row
//	    inputs: [y]
//
// # Assertion Types
//
//   - renders_as: the kernel's root renders to the expected infix text
//   - same_node: the kernels were hash-consed onto one root node
//   - evaluates_to: the reference evaluator yields the expected scalar
//   - depends_on: the kernel reads exactly the listed axes
//
// # Deterministic Testing
//
// Every scenario runs with a fresh logical clock starting at seq 1, a
// fixed session id (testutil.FixedSessionGenerator) and a fresh in-memory
// SQLite cache.
// The trace is read back from that cache, so identical definitions produce
// byte-identical golden files.
//
// # Usage
//
//	scenario, err := harness.LoadScenarioWithBasePath("testdata/scenarios/stencil_basics.yaml", "testdata/specs")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, msg := range result.Errors {
//	    log.Println(msg)
//	}
package harness
