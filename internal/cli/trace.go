package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/irjit/internal/engine"
	"github.com/roach88/irjit/internal/ir"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Kernel string
}

// TraceInstruction is one node of a kernel in schedule order.
type TraceInstruction struct {
	Index       int    `json:"index"`
	Op          string `json:"op"`
	Type        string `json:"type"`
	Level       int    `json:"level"`
	Instruction string `json:"instruction"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Kernel       string             `json:"kernel"`
	Rendered     string             `json:"rendered"`
	Inputs       []string           `json:"inputs"`
	Instructions []TraceInstruction `json:"instructions"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <specs-dir>",
		Short: "Show the instruction schedule of a kernel",
		Long: `Compile the kernels of a directory and list the nodes of one kernel
as register-style instructions.

Nodes are listed in post-order: every instruction comes after the
instructions it reads, and the kernel result comes last. Nodes shared
with other kernels of the session appear once.

Examples:
  irjit trace ./kernels --kernel blur
  irjit trace ./kernels --kernel blur --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kernel, "kernel", "", "kernel to trace (required)")
	_ = cmd.MarkFlagRequired("kernel")

	return cmd
}

func runTrace(opts *TraceOptions, specsDir string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeFailFast)
	if len(loadErrors) > 0 {
		code, message := parseCompileError(loadErrors[0])
		_ = formatter.Error(code, message, nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
	}

	eng := engine.New(engine.WithCollectThreshold(opts.CollectThreshold))
	if _, err := eng.CompileAll(ctx, loadResult.Kernels); err != nil {
		_ = formatter.Error(ErrCodeLowering, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to compile kernels", err)
	}

	k, err := eng.Kernel(opts.Kernel)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to find kernel", err)
	}

	result := buildTrace(k)
	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd, result, opts.Verbose)
}

func buildTrace(k *engine.Kernel) TraceResult {
	inputs := k.Inputs()
	if inputs == nil {
		inputs = []string{}
	}
	result := TraceResult{
		Kernel:   k.Name,
		Rendered: ir.Render(k.Root),
		Inputs:   inputs,
	}
	for i, n := range ir.Schedule(k.Root) {
		result.Instructions = append(result.Instructions, TraceInstruction{
			Index:       i,
			Op:          n.Op().String(),
			Type:        n.Type().String(),
			Level:       n.Level(),
			Instruction: ir.RenderInstruction(n),
		})
	}
	return result
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	return writeReport(cmd.OutOrStdout(), result, nil)
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Kernel: %s = %s\n", result.Kernel, result.Rendered)
	fmt.Fprintf(w, "Inputs: %v\n", result.Inputs)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Schedule ===")
	for _, in := range result.Instructions {
		if verbose {
			fmt.Fprintf(w, "  %3d  %-28s ; %s level=%d\n", in.Index, in.Instruction, in.Type, in.Level)
			continue
		}
		fmt.Fprintf(w, "  %3d  %s\n", in.Index, in.Instruction)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d instruction(s)\n", len(result.Instructions))

	return nil
}
