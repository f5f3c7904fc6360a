package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/contractkit/pkg/abiexport"
)

// ABICommand holds the flags of the abi command.
type ABICommand struct {
	app        *App
	output     string
	pretty     bool
	noValidate bool
}

// NewABICommand creates the abi command.
func NewABICommand(app *App) *cobra.Command {
	ac := &ABICommand{app: app}

	cmd := &cobra.Command{
		Use:   "abi <artifact.json>",
		Short: "Export the ABI of a compiled contract artifact",
		Long: `Extract the "abi" field of a compiled contract artifact and write it as
JSON to abi.output (build/abi.json). The ABI is checked with the go-ethereum
ABI parser unless --no-validate is given or abi.validate is false.`,
		Args: cobra.ExactArgs(1),
		RunE: ac.run,
	}

	cmd.Flags().StringVarP(&ac.output, "output", "o", "", "output file (default: abi.output, build/abi.json)")
	cmd.Flags().BoolVar(&ac.pretty, "pretty", false, "indent the exported JSON")
	cmd.Flags().BoolVar(&ac.noValidate, "no-validate", false, "skip ABI validation")

	return cmd
}

func (ac *ABICommand) run(cmd *cobra.Command, args []string) error {
	return ac.app.run(cmd, "abi", func(ctx context.Context) error {
		output := ac.output
		if output == "" {
			output = ac.app.Config.ABI.Output
		}

		exporter := abiexport.NewExporter(abiexport.Options{
			Validate: ac.app.Config.ABI.Validate && !ac.noValidate,
			Pretty:   ac.pretty,
			Logger:   ac.app.Logger(),
			Tracer:   ac.app.Providers.Tracer,
		})

		res, err := exporter.Export(ctx, args[0], output)
		if err != nil {
			return err
		}

		progress := ac.app.progress(cmd)

		if res.Summary != nil {
			fmt.Fprintf(progress, "%d functions, %d events, %d errors\n",
				res.Summary.Methods, res.Summary.Events, res.Summary.Errors)
		}

		fmt.Fprintf(progress, "ABI exported to %s\n", output)

		return nil
	})
}
