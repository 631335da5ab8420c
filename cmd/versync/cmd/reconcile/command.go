// Package reconcile provides the reconcile command.
package reconcile

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/versync"
	"github.com/agentstation/versync/internal/appcontext"
	"github.com/agentstation/versync/internal/cmd/output"
	"github.com/agentstation/versync/pkg/constants"
	"github.com/agentstation/versync/pkg/errors"
	"github.com/agentstation/versync/pkg/manifest"
	reconcilepkg "github.com/agentstation/versync/pkg/reconcile"
)

// Flags holds the reconcile command flags.
type Flags struct {
	Manifest   string
	Resources  []string
	Out        string
	Dry        bool
	NoRelative bool
}

// NewCommand creates the reconcile command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "reconcile [file]",
		Aliases: []string{"sync"},
		GroupID: "core",
		Short:   "Rewrite resource links in an HTML page",
		Long: `Reconcile reads an HTML page (a file, or stdin when no file is given),
rewrites each resource block to its baseline version, then overlays the
newer versions reported by the Door43 catalog.

Baseline versions come from a YAML or JSON manifest (--manifest) and/or
repeated --resource name=version pairs; pairs override manifest entries.`,
		Example: `  # Reconcile a saved page against a manifest
  versync reconcile page.html --manifest resources.yaml --out page.new.html

  # Pipe a page through, naming baselines inline
  curl -s https://www.unfoldingword.org/bible/ | versync reconcile -r en_ult=v47 -r en_tn=v85

  # Show what would change without writing HTML
  versync reconcile page.html -m resources.yaml --dry -o wide`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, flags, app)
		},
	}

	cmd.Flags().StringVarP(&flags.Manifest, "manifest", "m", "", "YAML or JSON file mapping resources to baseline versions")
	cmd.Flags().StringArrayVarP(&flags.Resources, "resource", "r", nil, "baseline as name=version (repeatable)")
	cmd.Flags().StringVar(&flags.Out, "out", "", "write the reconciled page here instead of stdout")
	cmd.Flags().BoolVar(&flags.Dry, "dry", false, "print the report only, do not write HTML")
	cmd.Flags().BoolVar(&flags.NoRelative, "no-relative", false, "leave site-relative links untouched")

	return cmd
}

func run(cmd *cobra.Command, args []string, flags *Flags, app appcontext.Interface) error {
	logger := app.Logger()

	req, err := buildRequest(flags)
	if err != nil {
		return err
	}

	in, closeIn, err := openInput(cmd, args)
	if err != nil {
		return err
	}
	defer closeIn()

	var client versync.Client
	if flags.NoRelative {
		client, err = app.ClientWithOptions(versync.WithRelativeLinks(false))
	} else {
		client, err = app.Client()
	}
	if err != nil {
		return err
	}

	var page bytes.Buffer
	var w io.Writer = &page
	if flags.Dry {
		w = nil
	}

	report, err := client.ReconcileHTML(cmd.Context(), in, w, req)
	if err != nil {
		return err
	}

	logger.Info().
		Int("resources", req.Len()).
		Int("changes", len(report.Changes)).
		Int("relative", len(report.Relative)).
		Msg(output.SummaryLine(report))

	switch {
	case flags.Dry:
		return printReport(cmd.OutOrStdout(), report, app.OutputFormat())
	case flags.Out != "":
		if err := os.WriteFile(flags.Out, page.Bytes(), constants.FilePermissions); err != nil {
			return errors.WrapIO("write", flags.Out, err)
		}
		logger.Info().Str("path", flags.Out).Msg("Wrote reconciled page")
		return printReport(cmd.OutOrStdout(), report, app.OutputFormat())
	default:
		_, err := cmd.OutOrStdout().Write(page.Bytes())
		return err
	}
}

// buildRequest loads the manifest, if any, then applies --resource pairs.
func buildRequest(flags *Flags) (reconcilepkg.Request, error) {
	var req reconcilepkg.Request
	if flags.Manifest != "" {
		loaded, err := manifest.Load(flags.Manifest)
		if err != nil {
			return req, err
		}
		req = loaded
	}
	if err := manifest.Merge(&req, flags.Resources); err != nil {
		return req, err
	}
	if req.Len() == 0 {
		return req, errors.NewValidationError("resources", nil,
			"name at least one resource with --manifest or --resource")
	}
	return req, req.Validate()
}

func openInput(cmd *cobra.Command, args []string) (io.Reader, func(), error) {
	if len(args) == 0 || args[0] == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, nil, errors.WrapIO("open", args[0], err)
	}
	return f, func() { _ = f.Close() }, nil
}

func printReport(w io.Writer, report *versync.Report, format string) error {
	f := output.Format(format)
	if !output.IsTable(f) {
		return output.NewFormatter(f).Format(w, report)
	}

	table := output.NewFormatter(f)
	if err := table.Format(w, output.OutcomesToTableData(report.Result, f == output.FormatWide)); err != nil {
		return err
	}
	if changes := output.ChangesToTableData(report); len(changes.Rows) > 0 {
		fmt.Fprintln(w)
		if err := table.Format(w, changes); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\n%s\n", output.SummaryLine(report))
	return err
}
