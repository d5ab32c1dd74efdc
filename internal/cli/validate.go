package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/irjit/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool                       `json:"valid"`
	Kernels int                        `json:"kernels"`
	Errors  []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <specs-dir>",
		Short: "Validate kernel definitions without compiling them",
		Long: `Validate CUE kernel definitions without building any graph.

Checks kernel names, expression syntax, call arity, load offsets and
bind/specialize axes, and reports every problem found rather than
stopping at the first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, specsDir)

	var validationErrors []compiler.ValidationError
	for _, err := range loadErrors {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			ve := compiler.ValidationError{
				Field:   "load",
				Message: loadErr.Message,
				Code:    loadErr.Code,
			}
			if loadErr.Pos.IsValid() {
				ve.Line = loadErr.Pos.Line()
			}
			validationErrors = append(validationErrors, ve)
		}
	}

	for _, spec := range loadResult.Kernels {
		formatter.VerboseLog("Validating kernel: %s", spec.Name)
		for _, ve := range compiler.Validate(spec) {
			ve.Field = fmt.Sprintf("kernel.%s.%s", spec.Name, ve.Field)
			validationErrors = append(validationErrors, ve)
		}
	}

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, len(loadResult.Kernels), validationErrors)
	}

	return outputValidateSuccess(formatter, len(loadResult.Kernels))
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, kernels int) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Kernels: kernels})
	}

	fmt.Fprintf(formatter.Writer, "✓ All %d kernel(s) valid\n", kernels)
	return nil
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Validation errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, kernels int, errs []compiler.ValidationError) error {
	if formatter.JSON() {
		result := ValidationResult{Valid: false, Kernels: kernels, Errors: errs}
		if err := formatter.Report(result, &CLIError{Code: errs[0].Code, Message: errs[0].Message}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
