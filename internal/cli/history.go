package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/roach88/fixrun/internal/config"
	"github.com/roach88/fixrun/internal/ir"
	"github.com/roach88/fixrun/internal/report"
	"github.com/roach88/fixrun/internal/store"
)

// HistoryOptions holds flags for the history commands.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
}

// RunDetail is the JSON payload of history show.
type RunDetail struct {
	Run     *store.RunRecord `json:"run"`
	Summary *ir.RunSummary   `json:"summary"`
}

// NewHistoryCommand creates the history command and its show subcommand.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List runs recorded by the store reporter",
		Long: `List runs recorded in the history database, newest first.
Runs are recorded when the "store" reporter is enabled.

Examples:
  fixrun history
  fixrun history --limit 5
  fixrun history show 0192d5c4-7b1e-7f3a-9c1d-2e4f6a8b0c1d
  fixrun history rm 0192d5c4-7b1e-7f3a-9c1d-2e4f6a8b0c1d`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listHistory(opts, cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "history database (default: store.path from config)")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum runs to list (0 for all)")

	cmd.AddCommand(newHistoryShowCommand(opts))
	cmd.AddCommand(newHistoryRemoveCommand(opts))

	return cmd
}

func newHistoryShowCommand(opts *HistoryOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <run-id>",
		Short:         "Show the report of a recorded run",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showRun(opts, args[0], cmd)
		},
	}
}

func newHistoryRemoveCommand(opts *HistoryOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "rm <run-id>...",
		Aliases:       []string{"delete"},
		Short:         "Delete recorded runs",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return removeRuns(opts, args, cmd)
		},
	}
}

func listHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, path, err := openHistory(opts)
	if err != nil {
		out.jsonError(ErrCodeConfig, err)
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(cmd.Context(), opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read history", err)
	}
	out.VerboseLog("read %d run(s) from %s", len(runs), path)

	if len(runs) == 0 {
		return out.Success("No runs recorded.\n", runs)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("RUN", "STARTED", "DURATION", "PASSED", "FAILED", "TOTAL", "COMPLETE")
	for _, r := range runs {
		t.Row(
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
			strconv.Itoa(r.Passed),
			strconv.Itoa(r.Failed),
			strconv.Itoa(r.Total),
			strconv.FormatBool(r.Complete),
		)
	}

	return out.Success(t.String()+"\n", runs)
}

func showRun(opts *HistoryOptions, runID string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, _, err := openHistory(opts)
	if err != nil {
		out.jsonError(ErrCodeConfig, err)
		return err
	}
	defer st.Close()

	rec, summary, err := st.ReadRun(cmd.Context(), runID)
	if errors.Is(err, store.ErrNotFound) {
		out.jsonError(ErrCodeNotFound, err)
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", runID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	if opts.Format == "json" {
		return out.Success("", RunDetail{Run: rec, Summary: summary})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run %s\n", rec.ID)
	fmt.Fprintf(w, "Started: %s  Root: %s\n", rec.StartedAt.Local().Format(time.DateTime), rec.RootDir)
	fmt.Fprintf(w, "Digest: %s\n\n", rec.Digest)
	return report.Replay(report.NewText(w), summary)
}

// RemovedRuns is the JSON payload of history rm.
type RemovedRuns struct {
	Removed []string `json:"removed"`
}

func removeRuns(opts *HistoryOptions, ids []string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, path, err := openHistory(opts)
	if err != nil {
		out.jsonError(ErrCodeConfig, err)
		return err
	}
	defer st.Close()

	removed := []string{}
	var text strings.Builder
	for _, id := range ids {
		err := st.DeleteRun(cmd.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			out.jsonError(ErrCodeNotFound, fmt.Errorf("run not found: %s", id))
			return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", id))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to delete run", err)
		}
		out.VerboseLog("deleted run %s from %s", id, path)
		removed = append(removed, id)
		fmt.Fprintf(&text, "Removed %s\n", id)
	}

	return out.Success(text.String(), RemovedRuns{Removed: removed})
}

// openHistory opens an existing history database. It never creates one.
func openHistory(opts *HistoryOptions) (*store.Store, string, error) {
	path := opts.Database
	if path == "" {
		cfg, err := config.Load(opts.ConfigPath, nil)
		if err != nil {
			return nil, "", WrapExitError(ExitCommandError, "invalid configuration", err)
		}
		path = cfg.Store.Path
	}

	if _, err := os.Stat(path); err != nil {
		return nil, "", WrapExitError(ExitCommandError, fmt.Sprintf("no history at %s", path), err)
	}

	st, err := store.Open(path)
	if err != nil {
		return nil, "", WrapExitError(ExitCommandError, "failed to open history", err)
	}
	return st, path, nil
}
