package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/irjit/internal/compiler"
	"github.com/roach88/irjit/internal/engine"
	"github.com/roach88/irjit/internal/ir"
	"github.com/roach88/irjit/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Database string // kernel cache path (optional)
	Output   string // output file path
}

// CompiledKernel is the summary of one compiled kernel.
type CompiledKernel struct {
	Name       string   `json:"name"`
	Seq        int64    `json:"seq"`
	Rendered   string   `json:"rendered"`
	Inputs     []string `json:"inputs"`
	Nodes      int      `json:"nodes"`
	SourceHash string   `json:"source_hash"`
	GraphHash  string   `json:"graph_hash"`
	Cached     bool     `json:"cached"`
}

// CompilationResult holds the kernels compiled in one session.
type CompilationResult struct {
	Session string           `json:"session"`
	Kernels []CompiledKernel `json:"kernels"`
	Live    int              `json:"live"` // live nodes in the session graph
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <specs-dir>",
		Short: "Compile CUE kernel definitions",
		Long: `Compile every kernel defined in the CUE files of a directory.

Kernels are lowered in declaration order into one shared graph, so
common subexpressions are built once. With --db, compiled kernels are
written to the kernel cache and later compiles of an unchanged
definition are loaded from it.

Examples:
  irjit compile ./kernels
  irjit compile ./kernels --db ./irjit.db
  irjit compile ./kernels --output kernels.json --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite kernel cache")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, specsDir string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputCompileError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputCompileError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, specsDir)

	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	engineOpts := []engine.Option{engine.WithCollectThreshold(opts.CollectThreshold)}
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
		engineOpts = append(engineOpts, engine.WithStore(st))
	}
	eng := engine.New(engineOpts...)

	for _, spec := range loadResult.Kernels {
		formatter.VerboseLog("Compiling kernel: %s", spec.Name)
	}

	kernels, err := eng.CompileAll(ctx, loadResult.Kernels)
	if err != nil {
		return outputCompileError(formatter, ErrCodeLowering, err.Error(), nil)
	}

	result := &CompilationResult{
		Session: eng.SessionID(),
		Kernels: make([]CompiledKernel, 0, len(kernels)),
		Live:    eng.Graph().Len(),
	}
	for _, k := range kernels {
		result.Kernels = append(result.Kernels, summarizeKernel(k))
	}

	if opts.Output != "" {
		if err := writeResultToFile(result, opts.Output); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

func summarizeKernel(k *engine.Kernel) CompiledKernel {
	inputs := k.Inputs()
	if inputs == nil {
		inputs = []string{}
	}
	return CompiledKernel{
		Name:       k.Name,
		Seq:        k.Seq,
		Rendered:   ir.Render(k.Root),
		Inputs:     inputs,
		Nodes:      ir.Reachable(k.Root).Size(),
		SourceHash: k.SourceHash,
		GraphHash:  k.GraphHash,
		Cached:     k.Cached,
	}
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d kernel(s), %d live node(s)\n\n", len(result.Kernels), result.Live)

	for _, k := range result.Kernels {
		suffix := ""
		if k.Cached {
			suffix = " (cached)"
		}
		fmt.Fprintf(w, "  [%d] %s = %s%s\n", k.Seq, k.Name, k.Rendered, suffix)
	}
	fmt.Fprintln(w)

	if outputFile != "" {
		fmt.Fprintf(w, "Wrote kernels to %s\n", outputFile)
	}

	return nil
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Compilation errors are command-level errors (exit code 2)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.JSON() {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseCompileError(err)
			cliErrors[i] = CLIError{Code: code, Message: message}
		}
		if err := formatter.Report(cliErrors, &cliErrors[0]); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseCompileError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// parseCompileError extracts error code and message from an error.
func parseCompileError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return MapFieldToErrorCode(compileErr.Field), compileErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// writeResultToFile writes the compilation result to a file as indented JSON.
func writeResultToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling kernels: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
