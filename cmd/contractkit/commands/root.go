// Package commands implements the contractkit CLI commands.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/contractkit/internal/config"
	"github.com/Sumatoshi-tech/contractkit/internal/observability"
	"github.com/Sumatoshi-tech/contractkit/pkg/version"
)

// opPrefix prefixes the span and metric operation names of CLI commands.
const opPrefix = "cli."

// App carries the state shared by every command: global flags, the loaded
// configuration and the observability providers.
type App struct {
	configPath string
	verbose    bool
	quiet      bool
	logJSON    bool

	Config    *config.Config
	Providers observability.Providers
	Metrics   *observability.REDMetrics
}

// NewRootCommand builds the contractkit root command with all subcommands.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "contractkit",
		Short: "Smart-contract build utilities",
		Long: `contractkit bundles the build utilities of a Solidity workflow.

Commands:
  flatten   Resolve an entry contract's imports into one source file
  size      Report deployed bytecode sizes against the EIP-170 limit
  abi       Export the ABI of a compiled artifact
  graph     Print an entry contract's import graph as Graphviz DOT
  mcp       Serve the utilities as MCP tools over stdio`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			mode := observability.ModeCLI
			if cmd.Name() == mcpCommandName {
				mode = observability.ModeMCP
			}

			return app.init(mode, cmd.ErrOrStderr())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&app.configPath, "config", "", "config file (default: .contractkit.yaml in . or $HOME)")
	flags.BoolVarP(&app.verbose, "verbose", "v", false, "verbose output")
	flags.BoolVarP(&app.quiet, "quiet", "q", false, "suppress output")
	flags.BoolVar(&app.logJSON, "log-json", false, "emit logs as JSON")

	rootCmd.AddCommand(
		NewFlattenCommand(app),
		NewSizeCommand(app),
		NewABICommand(app),
		NewGraphCommand(app),
		NewMCPCommand(app),
	)

	return rootCmd
}

func (a *App) init(mode observability.AppMode, logOutput io.Writer) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}

	level, err := cfg.Logging.SlogLevel()
	if err != nil {
		return err
	}

	switch {
	case a.verbose:
		level = slog.LevelDebug
	case a.quiet:
		level = slog.LevelError
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = mode
	obsCfg.LogLevel = level
	obsCfg.LogJSON = a.logJSON || cfg.Logging.JSON || mode == observability.ModeMCP
	obsCfg.LogOutput = logOutput
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	red, err := observability.NewREDMetrics(providers.Meter)
	if err != nil {
		return errorsJoinShutdown(providers, err)
	}

	a.Config = cfg
	a.Providers = providers
	a.Metrics = red

	return nil
}

// Shutdown flushes telemetry. It is a no-op when no command ran.
func (a *App) Shutdown(ctx context.Context) error {
	if a.Providers.Shutdown == nil {
		return nil
	}

	return a.Providers.Shutdown(ctx)
}

// Logger returns the configured logger, or the slog default before init.
func (a *App) Logger() *slog.Logger {
	if a.Providers.Logger == nil {
		return slog.Default()
	}

	return a.Providers.Logger
}

// run executes fn as one traced, measured CLI operation.
func (a *App) run(cmd *cobra.Command, name string, fn func(ctx context.Context) error) error {
	return observability.Run(cmd.Context(), a.Providers.Tracer, a.Metrics, opPrefix+name, fn)
}

// progress returns the writer for human-oriented output, discarded under --quiet.
func (a *App) progress(cmd *cobra.Command) io.Writer {
	if a.quiet {
		return io.Discard
	}

	return cmd.OutOrStdout()
}

func errorsJoinShutdown(providers observability.Providers, err error) error {
	shutdownErr := providers.Shutdown(context.Background())
	if shutdownErr != nil {
		return fmt.Errorf("%w (shutdown: %w)", err, shutdownErr)
	}

	return err
}
