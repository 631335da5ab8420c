// Package extract provides the extract command.
package extract

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/versync/internal/appcontext"
	"github.com/agentstation/versync/internal/cmd/output"
	"github.com/agentstation/versync/pkg/reference"
)

// Entry is one parsed URL in structured output.
type Entry struct {
	URL       string               `json:"url" yaml:"url"`
	Reference *reference.Reference `json:"reference,omitempty" yaml:"reference,omitempty"`
}

// NewCommand creates the extract command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:     "extract <url>...",
		GroupID: "core",
		Short:   "Parse Door43 URLs into owner, resource and version",
		Long: `Extract parses download, release tag and preview URLs the same way
reconcile does and prints what it found. URLs that are not resource links
are listed without a reference.

With --check each parsed reference is rebuilt into a URL of the same shape
and parsed again; any difference is an error.`,
		Example: `  versync extract https://git.door43.org/unfoldingWord/en_tn/releases/tag/v86
  versync extract --check -o json https://preview.door43.org/u/unfoldingWord/en_ult/v48/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if check {
				if err := roundTrip(args); err != nil {
					return err
				}
				app.Logger().Debug().Int("urls", len(args)).Msg("Round-trip check passed")
			}

			format := output.Format(app.OutputFormat())
			if output.IsTable(format) {
				return output.NewFormatter(format).Format(cmd.OutOrStdout(), output.ReferencesToTableData(args))
			}
			return output.NewFormatter(format).Format(cmd.OutOrStdout(), entries(args))
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "verify each reference survives a rebuild and re-parse")

	return cmd
}

func entries(urls []string) []Entry {
	out := make([]Entry, 0, len(urls))
	for _, u := range urls {
		e := Entry{URL: u}
		if ref, ok := reference.Extract(u); ok {
			e.Reference = &ref
		}
		out = append(out, e)
	}
	return out
}

// roundTrip rebuilds every parsed reference in its own shape and parses it again.
func roundTrip(urls []string) error {
	for _, ref := range reference.ExtractAll(urls) {
		rebuilt := ref.URL(ref.Shape)
		again, ok := reference.Extract(rebuilt)
		if !ok || again != ref {
			return fmt.Errorf("round trip failed for %s: rebuilt %s", ref, rebuilt)
		}
	}
	return nil
}
