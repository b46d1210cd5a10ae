package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/resplan/internal/compiler"
	"github.com/roach88/resplan/internal/schema"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// ValidationResult is the validate command's payload.
type ValidationResult struct {
	Valid      bool                       `json:"valid"`
	Types      int                        `json:"types,omitempty"`
	Rules      int                        `json:"rules,omitempty"`
	Statistics int                        `json:"statistics,omitempty"`
	Errors     []compiler.ValidationError `json:"errors,omitempty"`
	Warnings   []schema.RecursionWarning  `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <schema.cue|dir>",
		Short: "Validate a schema file",
		Long: `Validate the types, rules and statistics of a CUE schema.

Every problem found is reported, not just the first. Recursive rules are
valid but reported as warnings, since queries over their conclusions
need recursive resolution.

Exit codes:
  0 - Schema valid (warnings allowed)
  1 - Validation errors
  2 - Command error (file not found, CUE syntax error, etc.)

Examples:
  resplan validate ./schema.cue
  resplan validate ./schema --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	v, err := compiler.Load(path)
	if err != nil {
		code := compiler.ErrCodeGeneric
		var loadErr *compiler.LoadError
		if errors.As(err, &loadErr) {
			code = loadErr.Code
		}
		_ = formatter.Error(code, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load schema", err)
	}

	if errs := compiler.Validate(v); len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}

	s, err := compiler.CompileSchema(v)
	if err != nil {
		return outputValidationErrors(formatter, []compiler.ValidationError{compileFailure(err)})
	}
	stats, err := compiler.CompileStatistics(v)
	if err != nil {
		return outputValidationErrors(formatter, []compiler.ValidationError{compileFailure(err)})
	}

	result := ValidationResult{
		Valid:      true,
		Types:      len(s.Labels()),
		Rules:      len(s.Rules()),
		Statistics: len(stats),
		Warnings:   s.RecursionWarnings(),
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Schema valid (%d types, %d rules, %d counts)\n",
		result.Types, result.Rules, result.Statistics)
	for _, w := range result.Warnings {
		fmt.Fprintf(formatter.Writer, "⚠ %s\n", w.Message)
	}
	return nil
}

// compileFailure turns a compile error into a validation error for output.
func compileFailure(err error) compiler.ValidationError {
	ve := compiler.ValidationError{Code: compiler.ErrCodeGeneric, Message: err.Error()}
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		ve.Field = ce.Field
		ve.Message = ce.Message
		if ce.Pos.IsValid() {
			ve.Line = ce.Pos.Line()
		}
	}
	return ve
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.Format == "json" {
		result := ValidationResult{Valid: false, Errors: errs}
		if err := formatter.Failure(result, errs[0].Code, errs[0].Message); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}
	return failure
}
