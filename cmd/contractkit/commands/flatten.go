package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/contractkit/pkg/flatten"
	"github.com/Sumatoshi-tech/contractkit/pkg/textutil"
)

// orderLineFormat right-aligns the 1-based position in the import order.
const orderLineFormat = "%3d. %s\n"

// FlattenCommand holds the flags of the flatten command.
type FlattenCommand struct {
	app     *App
	output  string
	workDir string
	check   bool
	noColor bool
}

// NewFlattenCommand creates the flatten command.
func NewFlattenCommand(app *App) *cobra.Command {
	fc := &FlattenCommand{app: app}

	cmd := &cobra.Command{
		Use:   "flatten <entry.sol>",
		Short: "Combine an entry contract and its imports into one source file",
		Long: `Resolve the import tree of an entry Solidity file depth first and write
every file, dependencies first, into one flattened source with the import
statements removed.

With --check nothing is written: the freshly flattened source is compared with
the existing output and the command fails when they differ.`,
		Args: cobra.ExactArgs(1),
		RunE: fc.run,
	}

	cmd.Flags().StringVarP(&fc.output, "output", "o", "", "output file (default: flatten.output, build/source.sol)")
	cmd.Flags().StringVarP(&fc.workDir, "work-dir", "C", "", "project directory (default: current directory)")
	cmd.Flags().BoolVar(&fc.check, "check", false, "fail if the output file is out of date instead of writing it")
	cmd.Flags().BoolVar(&fc.noColor, "no-color", false, "disable colored diff output")

	return cmd
}

func (fc *FlattenCommand) run(cmd *cobra.Command, args []string) error {
	return fc.app.run(cmd, "flatten", func(ctx context.Context) error {
		return fc.flatten(ctx, cmd.OutOrStdout(), fc.app.progress(cmd), args[0])
	})
}

func (fc *FlattenCommand) flatten(ctx context.Context, stdout, progress io.Writer, entry string) error {
	workDir, err := resolveWorkDir(fc.workDir)
	if err != nil {
		return err
	}

	output := fc.output
	if output == "" {
		output = fc.app.Config.Flatten.Output
	}

	outputPath := output
	if !filepath.IsAbs(outputPath) {
		outputPath = filepath.Join(workDir, outputPath)
	}

	opts := flatten.Options{
		WorkDir:  workDir,
		Progress: progress,
		Logger:   fc.app.Logger(),
		Tracer:   fc.app.Providers.Tracer,
	}

	fmt.Fprintf(progress, "Using contract %s\n\n", entry)
	fmt.Fprintf(progress, "Resolving %s contract import tree...\n\n", entry)

	res, err := flatten.NewResolver(opts).Resolve(ctx, entry)
	if err != nil {
		return err
	}

	fmt.Fprint(progress, "\nImport order:\n\n")

	for i, path := range res.Order {
		fmt.Fprintf(progress, orderLineFormat, i+1, flatten.DisplayPath(workDir, path))
	}

	source, err := flatten.NewEmitter(opts).Flatten(ctx, res.Order)
	if err != nil {
		return err
	}

	if fc.check {
		return fc.checkOutput(stdout, output, outputPath, source)
	}

	fmt.Fprintf(progress, "\nExporting combined source code for %s to %s\n", entry, output)

	err = textutil.WriteFileAtomic(outputPath, source)
	if err != nil {
		return fmt.Errorf("write flattened source: %w", err)
	}

	fc.app.Logger().InfoContext(ctx, "flattened contract",
		"entry", entry, "files", len(res.Order), "output", output, "bytes", len(source))

	fmt.Fprint(progress, "\n\nDONE!\n")

	return nil
}

func (fc *FlattenCommand) checkOutput(stdout io.Writer, output, outputPath string, source []byte) error {
	previous, err := os.ReadFile(outputPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read %s: %w", output, err)
	}

	if err == nil && bytes.Equal(previous, source) {
		fmt.Fprintf(stdout, "\n%s is up to date\n", output)

		return nil
	}

	removed := color.New(color.FgRed)
	added := color.New(color.FgGreen)

	if fc.noColor {
		removed.DisableColor()
		added.DisableColor()
	}

	fmt.Fprintf(stdout, "\n--- %s\n+++ flattened\n", output)

	for _, change := range flatten.LineDiff(previous, source) {
		painter := added
		if change.Kind == flatten.ChangeRemoved {
			painter = removed
		}

		painter.Fprintln(stdout, change.String())
	}

	return fmt.Errorf("%w: %s", flatten.ErrStaleOutput, output)
}

func resolveWorkDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("working directory: %w", err)
	}

	return wd, nil
}
