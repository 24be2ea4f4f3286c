// Package cli implements the stashy command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stashyhq/stashy/internal/buildinfo"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "stashy",
	Short: "Personal X bookmark library",
	Long: `Stashy is a self-hosted viewer for your saved X bookmarks.

Running stashy with no subcommand starts the server.`,
	Version: buildinfo.Version,
	Run: func(c *cobra.Command, args []string) {
		// Default action is serve.
		serveCmd.Run(c, args)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default ./config.yaml)")
}
