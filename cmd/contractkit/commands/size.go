package commands

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/contractkit/pkg/sizereport"
	"github.com/Sumatoshi-tech/contractkit/pkg/textutil"
)

// SizeCommand holds the flags of the size command.
type SizeCommand struct {
	app            *App
	limit          string
	format         string
	filter         string
	htmlPath       string
	failOnOversize bool
	noColor        bool
}

// NewSizeCommand creates the size command.
func NewSizeCommand(app *App) *cobra.Command {
	sc := &SizeCommand{app: app}

	cmd := &cobra.Command{
		Use:   "size [manifest]",
		Short: "Report deployed bytecode sizes against the EIP-170 limit",
		Long: `Read a solc combined-json manifest and print every contract's deployed
bytecode size, largest first, with contracts above the limit listed separately.

The manifest defaults to size.manifest (.build/contracts.json). The limit
accepts plain byte counts or humanized sizes such as "24 KiB".`,
		Args: cobra.MaximumNArgs(1),
		RunE: sc.run,
	}

	cmd.Flags().StringVar(&sc.limit, "limit", "", "size limit (default: size.limit, 24576)")
	cmd.Flags().StringVar(&sc.format, "format", "", "output format: text, table, json, yaml (default: size.format)")
	cmd.Flags().StringVar(&sc.filter, "filter", "", "only report contracts whose source path or name matches this glob")
	cmd.Flags().StringVar(&sc.htmlPath, "html", "", "also write an HTML bar chart to this file")
	cmd.Flags().BoolVar(&sc.failOnOversize, "fail-on-oversize", false, "exit with an error when any contract is too big")
	cmd.Flags().BoolVar(&sc.noColor, "no-color", false, "disable colored output")

	return cmd
}

func (sc *SizeCommand) run(cmd *cobra.Command, args []string) error {
	return sc.app.run(cmd, "size", func(ctx context.Context) error {
		manifest := sc.app.Config.Size.Manifest
		if len(args) > 0 {
			manifest = args[0]
		}

		return sc.report(ctx, cmd.OutOrStdout(), manifest)
	})
}

func (sc *SizeCommand) report(ctx context.Context, w io.Writer, manifest string) error {
	sizeCfg := sc.app.Config.Size
	if sc.limit != "" {
		sizeCfg.Limit = sc.limit
	}

	if sc.format != "" {
		sizeCfg.Format = sc.format
	}

	limit, err := sizeCfg.LimitBytes()
	if err != nil {
		return err
	}

	format, err := sizereport.ParseFormat(sizeCfg.Format)
	if err != nil {
		return err
	}

	report, err := sizereport.Load(ctx, sc.app.Providers.Tracer, manifest,
		sizereport.Options{Limit: limit, Filter: sc.filter})
	if err != nil {
		return err
	}

	err = sizereport.Renderer{NoColor: sc.noColor}.Render(w, report, format)
	if err != nil {
		return err
	}

	if sc.htmlPath != "" {
		err = writeChart(sc.htmlPath, report)
		if err != nil {
			return err
		}
	}

	sc.app.Logger().DebugContext(ctx, "size report",
		"manifest", manifest, "limit", report.Limit,
		"oversized", len(report.Oversized), "within_limit", len(report.WithinLimit))

	if sc.failOnOversize && report.HasOversized() {
		return fmt.Errorf("%w: %d over %d bytes", sizereport.ErrOversized, len(report.Oversized), report.Limit)
	}

	return nil
}

func writeChart(path string, report *sizereport.Report) error {
	var buf bytes.Buffer

	err := sizereport.WriteChart(&buf, report)
	if err != nil {
		return err
	}

	err = textutil.WriteFileAtomic(path, buf.Bytes())
	if err != nil {
		return fmt.Errorf("write chart: %w", err)
	}

	return nil
}
