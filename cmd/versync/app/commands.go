package app

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/versync/cmd/versync/cmd/extract"
	"github.com/agentstation/versync/cmd/versync/cmd/lookup"
	"github.com/agentstation/versync/cmd/versync/cmd/reconcile"
	"github.com/agentstation/versync/cmd/versync/cmd/serve"
)

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(reconcile.NewCommand(a))
	rootCmd.AddCommand(extract.NewCommand(a))
	rootCmd.AddCommand(serve.NewCommand(a))

	// Registry commands
	rootCmd.AddCommand(lookup.NewCommand(a))

	// Utility commands
	rootCmd.AddCommand(a.NewVersionCommand())
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("versync %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}
