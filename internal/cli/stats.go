package cli

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/resplan/internal/compiler"
	"github.com/roach88/resplan/internal/store"
)

// StatsOptions holds flags shared by the stats subcommands.
type StatsOptions struct {
	*RootOptions
	Database string
}

// LabelCount is one label's committed count.
type LabelCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// CommitOutput reports the commit a stats change produced.
type CommitOutput struct {
	Commit string       `json:"commit,omitempty"` // empty when nothing changed
	Counts []LabelCount `json:"counts"`
}

// NewStatsCommand creates the stats command and its subcommands.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Manage stored instance counts",
		Long: `Read and change the per-type instance counts kept in a statistics database.

Every change is committed atomically and recorded in the commit log.
Counts never drop below zero; a decrement past zero is clamped and the
log keeps both the requested and the applied change.

Examples:
  resplan stats set person 100 --db ./stats.db
  resplan stats add person 5 --db ./stats.db
  resplan stats remove person 5 --db ./stats.db
  resplan stats add --db ./stats.db -- person -5
  resplan stats seed ./schema.cue --db ./stats.db
  resplan stats show --db ./stats.db
  resplan stats export ./stats.bin --db ./stats.db`,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to the statistics database (required)")
	_ = cmd.MarkPersistentFlagRequired("db")

	cmd.AddCommand(newStatsSetCommand(opts))
	cmd.AddCommand(newStatsAddCommand(opts))
	cmd.AddCommand(newStatsRemoveCommand(opts))
	cmd.AddCommand(newStatsSeedCommand(opts))
	cmd.AddCommand(newStatsShowCommand(opts))
	cmd.AddCommand(newStatsLogCommand(opts))
	cmd.AddCommand(newStatsVerifyCommand(opts))
	cmd.AddCommand(newStatsExportCommand(opts))
	cmd.AddCommand(newStatsImportCommand(opts))

	return cmd
}

// withStore opens the database for the duration of fn.
func (o *StatsOptions) withStore(fn func(*store.Store) error) error {
	st, err := store.Open(o.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()
	return fn(st)
}

func parseCount(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid count %q: must be an integer", s))
	}
	return n, nil
}

func newStatsSetCommand(opts *StatsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <label> <count>",
		Short: "Set the count of a label",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseCount(args[1])
			if err != nil {
				return err
			}
			if n < 0 {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid count %d: must not be negative", n))
			}
			return opts.withStore(func(st *store.Store) error {
				current, err := st.Count(cmd.Context(), args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read count", err)
				}
				d := st.Begin()
				d.Increment(args[0], n-current)
				return commitDelta(opts, cmd, st, d)
			})
		},
	}
}

func newStatsAddCommand(opts *StatsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <label> <delta>",
		Short: "Add to the count of a label",
		Long: `Add delta instances of label to the stored count.

A negative delta removes instances. Put it after a "--" so that it is not
read as a flag, or use "stats remove".`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseCount(args[1])
			if err != nil {
				return err
			}
			return opts.withStore(func(st *store.Store) error {
				d := st.Begin()
				if n < 0 {
					d.Decrement(args[0], -n)
				} else {
					d.Increment(args[0], n)
				}
				return commitDelta(opts, cmd, st, d)
			})
		},
	}
}

func newStatsRemoveCommand(opts *StatsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <label> <count>",
		Short: "Remove instances from the count of a label",
		Long: `Remove count instances of label from the stored count.

The stored count never drops below zero; the commit log records both the
requested and the applied change.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseCount(args[1])
			if err != nil {
				return err
			}
			if n < 0 {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid count %d: must not be negative", n))
			}
			return opts.withStore(func(st *store.Store) error {
				d := st.Begin()
				d.Decrement(args[0], n)
				return commitDelta(opts, cmd, st, d)
			})
		},
	}
}

func newStatsSeedCommand(opts *StatsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <schema.cue|dir>",
		Short: "Add the statistics section of a schema to the stored counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := compiler.Load(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load schema", err)
			}
			stats, err := compiler.CompileStatistics(v)
			if err != nil {
				return WrapExitError(ExitFailure, "invalid statistics", err)
			}
			return opts.withStore(func(st *store.Store) error {
				d := st.Begin()
				for _, label := range stats.Labels() {
					d.Increment(label, stats.Count(label))
				}
				return commitDelta(opts, cmd, st, d)
			})
		},
	}
}

// commitDelta commits d and reports the resulting counts of its labels.
func commitDelta(opts *StatsOptions, cmd *cobra.Command, st *store.Store, d *store.Delta) error {
	ctx := cmd.Context()
	labels := d.Labels()

	id, err := st.Commit(ctx, d)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to commit", err)
	}

	out := CommitOutput{Commit: id, Counts: make([]LabelCount, 0, len(labels))}
	for _, label := range labels {
		n, err := st.Count(ctx, label)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read count", err)
		}
		out.Counts = append(out.Counts, LabelCount{Label: label, Count: n})
	}

	formatter := opts.formatter(cmd)
	if opts.Format == "json" {
		return formatter.Success(out)
	}
	if id == "" {
		fmt.Fprintln(formatter.Writer, "No changes.")
		return nil
	}
	fmt.Fprintf(formatter.Writer, "Committed %s\n", id)
	for _, c := range out.Counts {
		fmt.Fprintf(formatter.Writer, "  %s = %d\n", c.Label, c.Count)
	}
	return nil
}

func newStatsShowCommand(opts *StatsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show [label...]",
		Short: "Show committed counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(func(st *store.Store) error {
				stats, err := st.Snapshot(cmd.Context())
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read counts", err)
				}

				labels := stats.Labels()
				if len(args) > 0 {
					labels = slices.Clone(args)
				}
				counts := make([]LabelCount, 0, len(labels))
				for _, label := range labels {
					counts = append(counts, LabelCount{Label: label, Count: stats.Count(label)})
				}

				formatter := opts.formatter(cmd)
				if opts.Format == "json" {
					return formatter.Success(counts)
				}
				if len(counts) == 0 {
					fmt.Fprintln(formatter.Writer, "No counts recorded.")
					return nil
				}
				for _, c := range counts {
					fmt.Fprintf(formatter.Writer, "%s\t%d\n", c.Label, c.Count)
				}
				return nil
			})
		},
	}
}

func newStatsLogCommand(opts *StatsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "log",
		Short: "Show the commit log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(func(st *store.Store) error {
				commits, err := st.Commits(cmd.Context())
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read commit log", err)
				}

				formatter := opts.formatter(cmd)
				if opts.Format == "json" {
					return formatter.Success(commits)
				}
				for _, c := range commits {
					changes := make([]string, len(c.Changes))
					for i, ch := range c.Changes {
						changes[i] = fmt.Sprintf("%s %+d", ch.Label, ch.Applied)
						if ch.Applied != ch.Requested {
							changes[i] += fmt.Sprintf(" (requested %+d)", ch.Requested)
						}
					}
					fmt.Fprintf(formatter.Writer, "%d %s: %s\n", c.Seq, c.ID, strings.Join(changes, ", "))
				}
				return nil
			})
		},
	}
}

func newStatsVerifyCommand(opts *StatsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check that the commit log replays to the stored counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(func(st *store.Store) error {
				formatter := opts.formatter(cmd)
				if err := st.Verify(cmd.Context()); err != nil {
					_ = formatter.Error("E300", err.Error(), nil)
					return WrapExitError(ExitFailure, "verification failed", err)
				}
				if opts.Format == "json" {
					return formatter.Success(map[string]bool{"consistent": true})
				}
				fmt.Fprintln(formatter.Writer, "✓ Commit log matches stored counts")
				return nil
			})
		},
	}
}

func newStatsExportCommand(opts *StatsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write the committed counts to a statistics file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(func(st *store.Store) error {
				f, err := os.Create(args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to create file", err)
				}
				if err := st.Export(cmd.Context(), f); err != nil {
					f.Close()
					return WrapExitError(ExitCommandError, "failed to export", err)
				}
				if err := f.Close(); err != nil {
					return WrapExitError(ExitCommandError, "failed to write file", err)
				}
				opts.formatter(cmd).VerboseLog("Exported counts to %s", args[0])
				return nil
			})
		},
	}
}

func newStatsImportCommand(opts *StatsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the committed counts with a statistics file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open file", err)
			}
			defer f.Close()

			return opts.withStore(func(st *store.Store) error {
				id, err := st.Import(cmd.Context(), f)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to import", err)
				}

				formatter := opts.formatter(cmd)
				if opts.Format == "json" {
					return formatter.Success(CommitOutput{Commit: id, Counts: []LabelCount{}})
				}
				if id == "" {
					fmt.Fprintln(formatter.Writer, "No changes.")
					return nil
				}
				fmt.Fprintf(formatter.Writer, "Committed %s\n", id)
				return nil
			})
		},
	}
}
