package cli

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/irjit/internal/engine"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "irjit", cmd.Use)
	assert.Contains(t, cmd.Long, "expression DAG")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"compile", "validate", "eval", "cache", "replay", "test", "trace"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	thresholdFlag := cmd.PersistentFlags().Lookup("collect-threshold")
	require.NotNil(t, thresholdFlag)
	assert.Equal(t, strconv.Itoa(engine.DefaultCollectThreshold), thresholdFlag.DefValue)
}

func TestSubcommandFlags(t *testing.T) {
	tests := []struct {
		command string
		flags   []string
	}{
		{"compile", []string{"db", "output"}},
		{"eval", []string{"kernel", "arg", "set", "mem"}},
		{"cache", []string{"db", "kernel"}},
		{"replay", []string{"db", "session"}},
		{"test", []string{"update", "filter"}},
		{"trace", []string{"kernel"}},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			sub, _, err := NewRootCommand().Find([]string{tt.command})
			require.NoError(t, err)
			for _, name := range tt.flags {
				assert.NotNil(t, sub.Flags().Lookup(name), "--%s", name)
			}
		})
	}

	compileCmd, _, err := NewRootCommand().Find([]string{"compile"})
	require.NoError(t, err)
	assert.Equal(t, "o", compileCmd.Flags().Lookup("output").Shorthand)
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "invalid", "compile", "."})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

// The root command routes engine logs to stderr, at debug level when
// --verbose is set.
func TestRootInstallsLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	for _, verbose := range []bool{false, true} {
		cmd := NewRootCommand()
		out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetErr(errOut)
		args := []string{"compile", stencilDir, "--db", filepath.Join(t.TempDir(), "cache.db")}
		if verbose {
			args = append([]string{"--verbose"}, args...)
		}
		cmd.SetArgs(args)

		require.NoError(t, cmd.Execute())
		assert.Contains(t, out.String(), "✓ Compiled 5 kernel(s)")
		assert.Contains(t, errOut.String(), "kernel compiled")
		assert.Equal(t, verbose, bytes.Contains(errOut.Bytes(), []byte("level=DEBUG")), "verbose=%v", verbose)
	}
}
