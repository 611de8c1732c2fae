package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for pluginlinks.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pluginlinks",
		Short: "Link plugin versions to their GitHub repositories",
		Long: `pluginlinks rewrites the plugin table on a plugin settings page so that each
version label links to the plugin's GitHub repository.

Tables with a URL/repository column are linked directly. Tables that carry
package-id and version markers are linked through the application's GraphQL
package listing.

Pages can be enhanced once (enhance), kept enhanced while a file changes
(watch), or rewritten on the fly behind a reverse proxy (serve).`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-format", "text", "Log format: text or json")

	cmd.AddCommand(NewEnhanceCmd())
	cmd.AddCommand(NewWatchCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
