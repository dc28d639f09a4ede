package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/roach88/fixrun/internal/config"
)

// loadConfig reads the configuration with the named command flags bound
// to config keys.
func loadConfig(opts *RootOptions, cmd *cobra.Command, bindings map[string]string) (*config.Config, error) {
	flags := make(map[string]*pflag.Flag, len(bindings))
	for key, name := range bindings {
		flags[key] = cmd.Flags().Lookup(name)
	}

	cfg, err := config.Load(opts.ConfigPath, flags)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return cfg, nil
}

// rootDirArg returns the positional root directory, or the configured one.
func rootDirArg(cfg *config.Config, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return cfg.RootDir
}
