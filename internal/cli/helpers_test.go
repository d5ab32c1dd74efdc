package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

var (
	stencilDir   = filepath.Join("..", "..", "testdata", "specs", "stencil")
	shadingDir   = filepath.Join("..", "..", "testdata", "specs", "shading")
	specsRoot    = filepath.Join("..", "..", "testdata", "specs")
	scenariosDir = filepath.Join("..", "..", "testdata", "scenarios")
)

// writeKernelDir writes src as the only CUE file of a fresh directory.
func writeKernelDir(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kernels.cue"), []byte(src), 0644))
	return dir
}

// execute runs cmd with args and returns what it wrote to stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
