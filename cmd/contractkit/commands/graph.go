package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/contractkit/pkg/flatten"
)

// NewGraphCommand creates the graph command.
func NewGraphCommand(app *App) *cobra.Command {
	var workDir string

	cmd := &cobra.Command{
		Use:   "graph <entry.sol>",
		Short: "Print an entry contract's import graph as Graphviz DOT",
		Long: `Resolve the import tree of an entry Solidity file and print it as a
Graphviz DOT digraph, one edge per import statement. Render it with e.g.

  contractkit graph contracts/Comptroller.sol | dot -Tsvg > imports.svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, "graph", func(ctx context.Context) error {
				dir, err := resolveWorkDir(workDir)
				if err != nil {
					return err
				}

				res, err := flatten.NewResolver(flatten.Options{
					WorkDir: dir,
					Logger:  app.Logger(),
					Tracer:  app.Providers.Tracer,
				}).Resolve(ctx, args[0])
				if err != nil {
					return err
				}

				return res.Graph.WriteDOT(cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().StringVarP(&workDir, "work-dir", "C", "", "project directory (default: current directory)")

	return cmd
}
