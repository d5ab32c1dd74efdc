package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// copyScenarios copies the repository scenarios into a fresh directory so
// golden files can be written next to them.
func copyScenarios(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	entries, err := os.ReadDir(scenariosDir)
	require.NoError(t, err)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(scenariosDir, e.Name()))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, e.Name()), data, 0644))
	}
	return dir
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(NewTestCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 2 arg")
}

func TestTestCommandNonExistentSpecsDir(t *testing.T) {
	_, err := execute(NewTestCommand(&RootOptions{Format: "text"}), "/nonexistent/specs", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "specs directory not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := execute(NewTestCommand(&RootOptions{Format: "text"}), t.TempDir(), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), specsRoot, t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	out, err := execute(NewTestCommand(&RootOptions{Format: "json"}), specsRoot, t.TempDir())
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.Data.Total)
}

func TestTestCommandRunsScenarios(t *testing.T) {
	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), specsRoot, scenariosDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ stencil_basics")
	assert.Contains(t, out, "✓ specialize_and_collect")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandFilter(t *testing.T) {
	out, err := execute(NewTestCommand(&RootOptions{Format: "json"}), specsRoot, scenariosDir, "--filter", "stencil_*")
	require.NoError(t, err)

	var resp struct {
		Data TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, "stencil_basics", resp.Data.Scenarios[0].Name)
	assert.True(t, resp.Data.Scenarios[0].Pass)

	_, err = execute(NewTestCommand(&RootOptions{Format: "text"}), specsRoot, scenariosDir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := t.TempDir()
	scenario := `name: wrong_render
description: expects the wrong rendering
specs: [stencil]
assertions:
  - type: renders_as
    kernel: offset
    expect: "(x+7)"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong_render.yaml"), []byte(scenario), 0644))

	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), specsRoot, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_render")
	assert.Contains(t, out, "(x+7)")
	assert.Contains(t, out, "1 failed")
}

func TestTestCommandLoadError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: broken\n"), 0644))

	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), specsRoot, dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "Load error")
}

func TestTestCommandGolden(t *testing.T) {
	dir := copyScenarios(t)

	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), specsRoot, dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ stencil_basics (golden updated)")

	golden := filepath.Join(dir, "golden", "stencil_basics.golden")
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_name":"stencil_basics"`)

	// A second run compares against the files just written.
	out, err = execute(NewTestCommand(&RootOptions{Format: "text"}), specsRoot, dir)
	require.NoError(t, err)
	assert.Contains(t, out, "2 passed")

	require.NoError(t, os.WriteFile(golden, []byte(`{"scenario_name":"stale"}`), 0644))
	out, err = execute(NewTestCommand(&RootOptions{Format: "text"}), specsRoot, dir)
	require.Error(t, err)
	assert.Contains(t, out, "Golden file mismatch at line 1")
}

func TestTestCommandVerboseCounts(t *testing.T) {
	out, err := execute(NewTestCommand(&RootOptions{Format: "text", Verbose: true}), specsRoot, scenariosDir, "--filter", "stencil_*")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ stencil_basics\n  5 kernel(s), ")
}

func TestFirstDiffLine(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"first line", "a\nb", "x\nb", 1},
		{"later line", "a\nb\nc", "a\nb\nd", 3},
		{"prefix", "a\nb", "a\nb\nc", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, firstDiffLine([]byte(tt.a), []byte(tt.b)))
		})
	}
}

func TestTestHelpText(t *testing.T) {
	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "--update")
	assert.Contains(t, out, "--filter")
	assert.Contains(t, out, "golden")
}

func TestGoldenFilePath(t *testing.T) {
	tests := []struct {
		scenario string
		want     string
	}{
		{"scenarios/basic.yaml", filepath.Join("scenarios", "golden", "basic.golden")},
		{"a/b/collect.yml", filepath.Join("a", "b", "golden", "collect.golden")},
	}
	for _, tt := range tests {
		t.Run(tt.scenario, func(t *testing.T) {
			assert.Equal(t, tt.want, goldenFilePath(tt.scenario))
		})
	}
}
