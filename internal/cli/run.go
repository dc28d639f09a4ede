package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/roach88/fixrun/internal/config"
	"github.com/roach88/fixrun/internal/harness"
	"github.com/roach88/fixrun/internal/locator"
	"github.com/roach88/fixrun/internal/report"
	"github.com/roach88/fixrun/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Patterns  []string
	Jobs      int
	Bail      bool
	Reporters []string
	LoadPaths []string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [root-dir]",
		Short: "Run fixtures and report their assertions",
		Long: `Locate fixtures under the root directory, evaluate each one with the
checker registered for its kind and report every assertion.

Exit codes:
  0 - All assertions passed
  1 - One or more assertions failed
  2 - Command error (invalid config, unreadable root, report failure)

Examples:
  fixrun run
  fixrun run ./styles --pattern "**/*.test.scss"
  fixrun run --jobs 4 --bail
  fixrun run --reporter text --reporter junit --reporter store
  fixrun run --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFixtures(opts, args, cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Patterns, "pattern", "p", nil, "fixture glob relative to the root (repeatable)")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 1, "fixtures evaluated concurrently")
	cmd.Flags().BoolVar(&opts.Bail, "bail", false, "stop after the first fixture with a failure")
	cmd.Flags().StringSliceVarP(&opts.Reporters, "reporter", "r", nil, "reporters to use (text|json|junit|store|metrics)")
	cmd.Flags().StringArrayVar(&opts.LoadPaths, "load-path", nil, "sass load path (repeatable)")

	return cmd
}

func runFixtures(opts *RunOptions, args []string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := loadConfig(opts.RootOptions, cmd, map[string]string{
		"jobs":      "jobs",
		"bail":      "bail",
		"reporters": "reporter",
	})
	if err != nil {
		out.jsonError(ErrCodeConfig, err)
		return err
	}
	// Patterns contain commas inside brace groups, so they are not bound
	// through viper's comma splitting.
	if cmd.Flags().Changed("pattern") {
		cfg.Patterns = opts.Patterns
	}
	if cmd.Flags().Changed("load-path") {
		cfg.Sass.LoadPaths = opts.LoadPaths
	}
	rootDir := rootDirArg(cfg, args)

	log := newLogger(cmd.ErrOrStderr(), opts.Verbose, cfg.LogLevel)
	log.WithFields(logrus.Fields{
		"root":      rootDir,
		"config":    cfg.ConfigFile,
		"jobs":      cfg.Jobs,
		"reporters": cfg.Reporters,
	}).Debug("configuration loaded")

	registry, err := DefaultRegistry(cfg, opts.compiler)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to register checkers", err)
	}

	reporter, closeReporters, err := buildReporter(opts, cfg, rootDir, cmd.OutOrStdout())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up reporters", err)
	}
	defer closeReporters()

	driver := harness.New(afero.NewOsFs(), registry, reporter, log)
	driver.Jobs = cfg.Jobs
	driver.Bail = cfg.Bail
	if opts.runIDs != nil {
		driver.RunIDs = opts.runIDs
	}

	summary, err := driver.Run(cmd.Context(), rootDir, cfg.Patterns)
	if err != nil {
		var locErr *locator.LocatorError
		var repErr *harness.ReportError
		switch {
		case errors.As(err, &locErr):
			out.jsonError(ErrCodeLocate, locErr)
			return WrapExitError(ExitCommandError, "failed to locate fixtures", err)
		case errors.As(err, &repErr):
			return WrapExitError(ExitCommandError, "failed to write report", err)
		default:
			return WrapExitError(ExitCommandError, "run aborted", err)
		}
	}

	if !summary.OK() {
		return NewExitError(ExitFailure, fmt.Sprintf("%d assertion(s) failed", summary.Failed))
	}
	return nil
}

// buildReporter assembles the configured reporters. The returned func
// releases resources they hold and must be called after the run.
func buildReporter(opts *RunOptions, cfg *config.Config, rootDir string, w io.Writer) (report.Reporter, func(), error) {
	var reporters []report.Reporter
	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	// Only one reporter owns stdout. JSON wins so the output stays parseable.
	switch {
	case opts.Format == "json" || cfg.HasReporter(config.ReporterJSON):
		reporters = append(reporters, report.NewJSON(w))
	case cfg.HasReporter(config.ReporterText):
		reporters = append(reporters, report.NewText(w))
	}

	if cfg.HasReporter(config.ReporterJUnit) {
		reporters = append(reporters, &report.JUnit{Path: cfg.JUnit.Output})
	}

	if cfg.HasReporter(config.ReporterStore) {
		st, err := openStore(cfg.Store.Path)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = st.Close() })
		reporters = append(reporters, report.NewStore(st, rootDir, cfg.Patterns, opts.clock()))
	}

	if cfg.HasReporter(config.ReporterMetrics) {
		if err := os.MkdirAll(filepath.Dir(cfg.Metrics.Textfile), 0o755); err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("failed to create metrics directory: %w", err)
		}
		reporters = append(reporters, report.NewMetrics(cfg.Metrics.Textfile, opts.clock()))
	}

	if len(reporters) == 0 {
		return report.Nop{}, closeAll, nil
	}
	return report.Multi(reporters...), closeAll, nil
}

// openStore opens the history database, creating its directory.
func openStore(path string) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store %s: %w", path, err)
	}
	return st, nil
}
