package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/contractkit/pkg/mcp"
)

// mcpCommandName switches observability to MCP mode (JSON logs on stderr).
const mcpCommandName = "mcp"

// NewMCPCommand creates the MCP server command.
func NewMCPCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   mcpCommandName,
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes the build utilities as tools that AI agents can
discover and invoke:
  - flatten_contract: resolve and flatten a Solidity entry file
  - contract_sizes:   bytecode size report against the EIP-170 limit
  - export_abi:       extract the ABI of a compiled artifact`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv := mcp.NewServer(mcp.ServerDeps{
				Logger:      app.Logger(),
				Metrics:     app.Metrics,
				Tracer:      app.Providers.Tracer,
				ValidateABI: app.Config.ABI.Validate,
			})

			return srv.Run(cmd.Context())
		},
	}
}
