package cli

import (
	"context"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/roach88/irjit/internal/engine"
	"github.com/roach88/irjit/internal/eval"
	"github.com/roach88/irjit/internal/ir"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	Kernel string
	Args   []int32        // positional inputs
	Named  map[string]int // inputs by name
	Mem    []float32
}

// EvalResult is the value of one kernel at one point.
type EvalResult struct {
	Kernel   string           `json:"kernel"`
	Rendered string           `json:"rendered"`
	Inputs   map[string]int32 `json:"inputs"`
	Type     string           `json:"type"`
	Value    string           `json:"value"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval <specs-dir>",
		Short: "Evaluate a compiled kernel at one point",
		Long: `Compile the kernels of a directory and evaluate one of them.

The kernel's inputs are the axes its compiled graph still depends on,
in the order x, y, t, c. Supply each exactly once, by position with
--arg or by name with --set. Memory reads come from --mem.

Examples:
  irjit eval ./kernels --kernel blur --arg 2 --mem 0,2,4,6,8
  irjit eval ./kernels --kernel corner
  irjit eval ./kernels --kernel shifted --set x=1 --mem 1,2,3,4`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kernel, "kernel", "", "kernel to evaluate (required)")
	_ = cmd.MarkFlagRequired("kernel")
	cmd.Flags().Int32SliceVar(&opts.Args, "arg", nil, "input value by position (repeatable)")
	cmd.Flags().StringToIntVar(&opts.Named, "set", nil, "input value by name, name=value (repeatable)")
	cmd.Flags().Float32SliceVar(&opts.Mem, "mem", nil, "memory contents, comma separated")

	return cmd
}

func runEval(opts *EvalOptions, specsDir string, cmd *cobra.Command) error {
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

	named, err := toInt32Map(opts.Named)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid --set", err)
	}

	inputs := k.Inputs()
	formatter.VerboseLog("kernel %s takes inputs %v", k.Name, inputs)
	values, err := eval.ResolveArgs(inputs, opts.Args, named)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), map[string]any{"inputs": inputs})
		return WrapExitError(ExitCommandError, "invalid arguments", err)
	}

	env := eval.Env{Mem: opts.Mem}
	bound := make(map[string]int32, len(inputs))
	for i, axis := range inputs {
		bound[axis] = values[i]
		switch axis {
		case "x":
			env.X = values[i]
		case "y":
			env.Y = values[i]
		case "t":
			env.T = values[i]
		case "c":
			env.C = values[i]
		}
	}

	v, err := eval.Eval(k.Root, env)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "evaluation failed", err)
	}

	result := EvalResult{
		Kernel:   k.Name,
		Rendered: ir.Render(k.Root),
		Inputs:   bound,
		Type:     v.Type.String(),
		Value:    v.String(),
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "%s = %s\n", result.Kernel, result.Rendered)
	fmt.Fprintf(formatter.Writer, "  %s%s = %s (%s)\n", result.Kernel, formatInputs(inputs, bound), result.Value, result.Type)
	return nil
}

func toInt32Map(m map[string]int) (map[string]int32, error) {
	if len(m) == 0 {
		return nil, nil
	}
	out := make(map[string]int32, len(m))
	for k, v := range m {
		if v < math.MinInt32 || v > math.MaxInt32 {
			return nil, fmt.Errorf("value %d for %s does not fit in 32 bits", v, k)
		}
		out[k] = int32(v)
	}
	return out, nil
}

// formatInputs renders bound inputs in declaration order, as "(x=1, y=2)".
func formatInputs(order []string, bound map[string]int32) string {
	if len(order) == 0 {
		return "()"
	}
	s := "("
	for i, name := range order {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s=%d", name, bound[name])
	}
	return s + ")"
}
