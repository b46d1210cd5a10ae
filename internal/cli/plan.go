package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/resplan/internal/harness"
	"github.com/roach88/resplan/internal/schema"
	"github.com/roach88/resplan/internal/store"
)

// PlanOptions holds flags for the plan command.
type PlanOptions struct {
	*RootOptions
	Database string   // statistics store; overrides the schema's counts
	Pending  []string // uncommitted label=delta changes applied on top of the store
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plan <scenario.yaml>",
		Short: "Plan a scenario's query and print the plans",
		Long: `Plan the query of a scenario file and print its atom plan and query plan.

The scenario's assertions are evaluated as well. With --db the instance
counts come from the statistics store instead of the schema file; the
scenario's own statistics still override them per label.

--pending plans against changes that are not committed: each label=delta
is applied on top of the stored counts for this plan only, clamped at zero.

Exit codes:
  0 - Plans produced and all assertions hold
  1 - Planning failed or an assertion failed
  2 - Command error (unreadable scenario, database, etc.)

Examples:
  resplan plan ./scenarios/chain.yaml
  resplan plan ./scenarios/chain.yaml --db ./stats.db
  resplan plan ./scenarios/chain.yaml --db ./stats.db --pending person=-40
  resplan plan ./scenarios/chain.yaml --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the statistics database")
	cmd.Flags().StringArrayVar(&opts.Pending, "pending", nil, "uncommitted change label=delta (repeatable, requires --db)")

	return cmd
}

func runPlan(opts *PlanOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	sc, err := harness.LoadScenario(path)
	if err != nil {
		_ = formatter.Error("E001", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	if len(opts.Pending) > 0 && opts.Database == "" {
		return NewExitError(ExitCommandError, "--pending requires --db")
	}

	hopts := []harness.Option{harness.WithLogger(opts.logger(cmd))}
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			_ = formatter.Error("E002", err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()

		var pending *store.Delta
		if len(opts.Pending) > 0 {
			if pending, err = parsePending(st, opts.Pending); err != nil {
				return err
			}
		}
		hopts = append(hopts, harness.WithSnapshotSource(func(ctx context.Context, s *schema.Schema) (*schema.Snapshot, error) {
			snap, err := st.PlanningSnapshot(ctx, s, pending)
			if err != nil {
				return nil, fmt.Errorf("read statistics: %w", err)
			}
			formatter.VerboseLog("Using %d label counts from %s", len(snap.Statistics), opts.Database)
			return snap, nil
		}))
	}

	result, err := harness.New(hopts...).Run(cmd.Context(), sc)
	if err != nil {
		_ = formatter.Error("E003", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to plan scenario", err)
	}

	if opts.Format == "json" {
		if result.Pass {
			return formatter.Success(result)
		}
		_ = formatter.Failure(result, "E200", fmt.Sprintf("scenario %s failed", result.Scenario))
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", result.Scenario))
	}

	fmt.Fprint(formatter.Writer, harness.Explain(result))
	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", result.Scenario))
	}
	return nil
}

// parsePending builds an uncommitted delta from label=delta pairs.
func parsePending(st *store.Store, pairs []string) (*store.Delta, error) {
	d := st.Begin()
	for _, pair := range pairs {
		label, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(label) == "" {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid --pending %q: want label=delta", pair))
		}
		n, err := parseCount(value)
		if err != nil {
			return nil, err
		}
		d.Increment(label, n)
	}
	return d, nil
}
