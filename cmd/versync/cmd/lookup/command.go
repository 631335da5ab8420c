// Package lookup provides the lookup command.
package lookup

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/versync/internal/appcontext"
	"github.com/agentstation/versync/internal/cmd/output"
	"github.com/agentstation/versync/pkg/registry"
)

// Result is the structured output of a lookup.
type Result struct {
	Versions registry.VersionMap `json:"versions" yaml:"versions"`
	Missing  []string            `json:"missing" yaml:"missing"`
}

// NewCommand creates the lookup command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var each bool

	cmd := &cobra.Command{
		Use:     "lookup <resource>...",
		GroupID: "registry",
		Short:   "Ask the Door43 catalog for the latest version of resources",
		Long: `Lookup sends one catalog search for all named resources and prints the
versions it reports. Unlike reconcile, a failed search is an error here.

With --each, one search is sent per resource, paced by the configured
pacing_interval and max_concurrent; failures for single resources are
logged and the resource is reported missing.`,
		Example: `  versync lookup en_ult en_tn en_tq
  versync lookup --each -o yaml en_ult en_ust`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}

			var versions registry.VersionMap
			if each {
				versions = client.LookupEach(cmd.Context(), args)
			} else if versions, err = client.Lookup(cmd.Context(), args); err != nil {
				return err
			}

			result := Result{Versions: versions, Missing: []string{}}
			for _, name := range args {
				if !versions.Has(name) {
					result.Missing = append(result.Missing, name)
				}
			}
			app.Logger().Debug().
				Int("found", len(versions)).
				Strs("missing", result.Missing).
				Bool("each", each).
				Msg("Lookup complete")

			format := output.Format(app.OutputFormat())
			if output.IsTable(format) {
				return output.NewFormatter(format).Format(cmd.OutOrStdout(), output.LookupToTableData(args, versions))
			}
			return output.NewFormatter(format).Format(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().BoolVar(&each, "each", false, "send one paced request per resource")

	return cmd
}
