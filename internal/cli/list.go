package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/roach88/fixrun/internal/adapter"
	"github.com/roach88/fixrun/internal/locator"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Patterns []string
}

// ListEntry is one located fixture. Kind is empty when no checker claims it.
type ListEntry struct {
	ID   string `json:"id"`
	Path string `json:"path"`
	Kind string `json:"kind"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list [root-dir]",
		Short: "List the fixtures a run would execute",
		Long: `Locate fixtures without running them and print each one with the
checker kind it resolves to. Fixtures no checker claims are shown with "-".

Examples:
  fixrun list
  fixrun list ./styles --pattern "**/*.test.scss"
  fixrun list --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listFixtures(opts, args, cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Patterns, "pattern", "p", nil, "fixture glob relative to the root (repeatable)")

	return cmd
}

func listFixtures(opts *ListOptions, args []string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := loadConfig(opts.RootOptions, cmd, nil)
	if err != nil {
		out.jsonError(ErrCodeConfig, err)
		return err
	}
	if cmd.Flags().Changed("pattern") {
		cfg.Patterns = opts.Patterns
	}
	rootDir := rootDirArg(cfg, args)

	registry, err := DefaultRegistry(cfg, opts.compiler)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to register checkers", err)
	}

	fs := afero.NewOsFs()
	fixtures, err := locator.LocateAll(fs, rootDir, cfg.Patterns)
	if err != nil {
		out.jsonError(ErrCodeLocate, err)
		return WrapExitError(ExitCommandError, "failed to locate fixtures", err)
	}

	out.VerboseLog("located %d fixture(s) under %s", len(fixtures), rootDir)

	log := newLogger(cmd.ErrOrStderr(), opts.Verbose, cfg.LogLevel)
	ad := adapter.New(fs, log)

	entries := make([]ListEntry, 0, len(fixtures))
	var text strings.Builder
	for _, fx := range fixtures {
		head, err := ad.Head(fx)
		if err != nil {
			log.WithError(err).WithField("fixture", fx.ID).Warn("cannot read fixture")
		}
		kind := registry.KindOf(fx.Path, head)
		entries = append(entries, ListEntry{ID: fx.ID, Path: fx.Path, Kind: kind})

		if kind == "" {
			kind = "-"
		}
		fmt.Fprintf(&text, "%s\t%s\n", fx.ID, kind)
	}
	fmt.Fprintf(&text, "\n%d fixture(s)\n", len(fixtures))

	return out.Success(text.String(), entries)
}
