package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/roach88/fixrun/internal/checker/yamlcheck"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of YAML fixtures",
		Long: `Print the JSON schema YAML fixtures are validated against. Point an
editor's YAML language server at it for completion in *.test.yaml files.

Examples:
  fixrun schema > fixrun-fixture.schema.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := yamlcheck.GenerateJSONSchema()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to generate schema", err)
			}

			out := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return out.Success(string(schema)+"\n", json.RawMessage(schema))
		},
	}
}
