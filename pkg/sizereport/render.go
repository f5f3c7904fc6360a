package sizereport

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/contractkit/pkg/safeconv"
)

// Format selects the report rendering.
type Format string

// Supported formats.
const (
	FormatText  Format = "text"
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// Formats lists every supported format.
var Formats = []Format{FormatText, FormatTable, FormatJSON, FormatYAML}

const (
	headingOversized = "TOO BIG CONTRACTS"
	headingDivider   = "==================="
	headingWithin    = "Contracts smaller than EIP-170 says "
	textLineFormat   = "%05d %02d K   %s \n"
	statusOversized  = "TOO BIG"
	statusOK         = "ok"
	jsonIndent       = "  "
)

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	for _, format := range Formats {
		if string(format) == name {
			return format, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// Renderer writes reports in one of the supported formats.
type Renderer struct {
	// NoColor disables ANSI colors in text and table output.
	NoColor bool
}

// Render writes report to w in the given format.
func (r Renderer) Render(w io.Writer, report *Report, format Format) error {
	switch format {
	case FormatText:
		return r.renderText(w, report)
	case FormatTable:
		return r.renderTable(w, report)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", jsonIndent)

		err := enc.Encode(report)
		if err != nil {
			return fmt.Errorf("encode json report: %w", err)
		}

		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()

		err := enc.Encode(report)
		if err != nil {
			return fmt.Errorf("encode yaml report: %w", err)
		}

		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func (r Renderer) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if r.NoColor {
		c.DisableColor()
	}

	return c
}

// renderText writes oversized contracts, a divider, then the rest.
func (r Renderer) renderText(w io.Writer, report *Report) error {
	if report.HasOversized() {
		red := r.paint(color.FgRed, color.Bold)

		_, err := red.Fprintln(w, headingOversized)
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}

		for _, entry := range report.Oversized {
			_, err = red.Fprintf(w, textLineFormat, entry.Bytes, entry.KiB(), entry.Name)
			if err != nil {
				return fmt.Errorf("write report: %w", err)
			}
		}

		_, err = fmt.Fprintln(w, headingDivider)
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	_, err := fmt.Fprintln(w, headingWithin, report.Limit)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	for _, entry := range report.WithinLimit {
		_, err = fmt.Fprintf(w, textLineFormat, entry.Bytes, entry.KiB(), entry.Name)
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	return nil
}

func (r Renderer) renderTable(w io.Writer, report *Report) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.SetTitle("Contract sizes (limit %s)", humanize.IBytes(safeconv.MustIntToUint64(report.Limit)))
	tw.AppendHeader(table.Row{"Contract", "Source", "Bytes", "Size", "Usage", "Status"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})

	red := r.paint(color.FgRed, color.Bold)
	green := r.paint(color.FgGreen)

	for _, entry := range report.Oversized {
		tw.AppendRow(r.row(report, entry, red.Sprint(statusOversized)))
	}

	if report.HasOversized() && len(report.WithinLimit) > 0 {
		tw.AppendSeparator()
	}

	for _, entry := range report.WithinLimit {
		tw.AppendRow(r.row(report, entry, green.Sprint(statusOK)))
	}

	tw.AppendFooter(table.Row{"", "Total", len(report.Oversized) + len(report.WithinLimit), "", "", ""})
	tw.Render()

	return nil
}

func (r Renderer) row(report *Report, entry Entry, status string) table.Row {
	return table.Row{
		entry.Name,
		entry.Source,
		humanize.Comma(int64(entry.Bytes)),
		humanize.IBytes(safeconv.MustIntToUint64(entry.Bytes)),
		fmt.Sprintf("%.1f%%", report.Usage(entry)),
		status,
	}
}
