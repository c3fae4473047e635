package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:8080"

func newRootCommand() *cobra.Command {
	serve := newServeCommand()

	rootCmd := &cobra.Command{
		Use:           "vidgen",
		Short:         "Video generation gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
		// no subcommand runs the server
		RunE: serve.RunE,
	}

	rootCmd.AddCommand(serve)
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newExploreCommand())
	return rootCmd
}

// serverFlag registers --server for commands that talk to a running gateway.
func serverFlag(cmd *cobra.Command, dst *string) {
	def := strings.TrimSpace(os.Getenv("VIDGEN_SERVER"))
	if def == "" {
		def = defaultServer
	}
	cmd.Flags().StringVar(dst, "server", def, "Gateway base URL (env VIDGEN_SERVER)")
}
