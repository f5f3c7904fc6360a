// Package main provides the entry point for the contractkit CLI tool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/contractkit/cmd/contractkit/commands"
	"github.com/Sumatoshi-tech/contractkit/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	app := &commands.App{}

	rootCmd := commands.NewRootCommand(app)
	rootCmd.AddCommand(versionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	shutdownErr := app.Shutdown(context.Background())
	if shutdownErr != nil {
		app.Logger().Warn("observability shutdown failed", "error", shutdownErr)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		// Skip config and telemetry setup.
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "contractkit %s (commit: %s, built: %s)\n",
				version.Version, version.Commit, version.Date)
		},
	}
}
