package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/resplan/internal/harness"
	"github.com/roach88/resplan/internal/schema"
	"github.com/roach88/resplan/internal/store"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Parallel int    // scenarios run at once; 0 means unbounded
	Golden   string // golden directory; empty disables golden comparison
	Update   bool   // regenerate golden files
	Filter   string // scenario filter (glob pattern on names)
	Stats    string // exported statistics file; replaces every schema's counts
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Runs   int      `json:"runs"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run planning scenarios",
		Long: `Run every scenario file in a directory.

Each scenario plans its query as many times as it asks for, checks that
every run produced the same plans, and evaluates its assertions. With
--golden the plan explanation of each scenario is also compared with
<golden>/<name>.golden; --update rewrites those files instead.

--stats runs every scenario against the counts of a file written by
"stats export" instead of the counts in its schema.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  resplan test ./scenarios
  resplan test ./scenarios --parallel 4
  resplan test ./scenarios --filter "chain*"
  resplan test ./scenarios --golden ./golden --update
  resplan test ./scenarios --stats ./stats.bin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Parallel, "parallel", 0, "maximum scenarios run at once (0 = unbounded)")
	cmd.Flags().StringVar(&opts.Golden, "golden", "", "directory of golden plan explanations")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.Stats, "stats", "", "statistics file written by stats export")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}
	if opts.Update && opts.Golden == "" {
		return NewExitError(ExitCommandError, "--update requires --golden")
	}

	scenarios, err := harness.LoadDir(dir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenarios", err)
	}
	scenarios, err = filterScenarios(scenarios, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}

	hopts := []harness.Option{harness.WithLogger(opts.logger(cmd))}
	if opts.Stats != "" {
		stats, err := readStatisticsFile(opts.Stats)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read statistics file", err)
		}
		formatter.VerboseLog("Using %d label counts from %s", len(stats), opts.Stats)
		hopts = append(hopts, harness.WithStatistics(stats))
	}

	h := harness.New(hopts...)
	results, err := h.RunAll(cmd.Context(), scenarios, opts.Parallel)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenarios", err)
	}

	summary := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(results)),
		Total:     len(results),
	}
	for _, r := range results {
		if opts.Golden != "" {
			if err := checkGolden(opts, r); err != nil {
				return WrapExitError(ExitCommandError, "failed to compare golden file", err)
			}
		}
		summary.Scenarios = append(summary.Scenarios, ScenarioResult{
			Name:   r.Scenario,
			Pass:   r.Pass,
			Runs:   r.Runs,
			Errors: r.Errors,
		})
		if r.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}

	if opts.Format == "json" {
		if summary.Failed > 0 {
			_ = formatter.Failure(summary, "E200", fmt.Sprintf("%d of %d scenarios failed", summary.Failed, summary.Total))
		} else if err := formatter.Success(summary); err != nil {
			return err
		}
	} else {
		outputTestText(formatter, summary)
	}

	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", summary.Failed))
	}
	return nil
}

func filterScenarios(scenarios []*harness.Scenario, pattern string) ([]*harness.Scenario, error) {
	if pattern == "" {
		return scenarios, nil
	}
	var out []*harness.Scenario
	for _, sc := range scenarios {
		matched, err := filepath.Match(pattern, sc.Name)
		if err != nil {
			return nil, err
		}
		if matched {
			out = append(out, sc)
		}
	}
	return out, nil
}

// checkGolden compares or rewrites the golden explanation of a result.
// A mismatch fails the result.
func checkGolden(opts *TestOptions, r *harness.Result) error {
	path := filepath.Join(opts.Golden, r.Scenario+".golden")
	got := []byte(harness.Explain(r))

	if opts.Update {
		if err := os.MkdirAll(opts.Golden, 0o755); err != nil {
			return err
		}
		return os.WriteFile(path, got, 0o644)
	}

	want, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		r.AddError(fmt.Sprintf("golden file %s not found (run with --update)", path))
		return nil
	}
	if err != nil {
		return err
	}
	if !bytes.Equal(want, got) {
		r.AddError(fmt.Sprintf("plan differs from %s:\n%s", path, got))
	}
	return nil
}

func outputTestText(f *OutputFormatter, summary TestResult) {
	w := f.Writer
	for _, s := range summary.Scenarios {
		if s.Pass {
			fmt.Fprintf(w, "✓ %s", s.Name)
			if f.Verbose {
				fmt.Fprintf(w, " (%d runs)", s.Runs)
			}
			fmt.Fprintln(w)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", s.Name)
		for _, e := range s.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d passed, %d failed, %d total\n", summary.Passed, summary.Failed, summary.Total)
}

func readStatisticsFile(path string) (schema.Statistics, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return store.ReadStatistics(f)
}
