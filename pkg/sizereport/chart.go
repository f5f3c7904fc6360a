package sizereport

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	chartPageTitle  = "Contract sizes"
	chartWidth      = "100%"
	chartHeight     = "600px"
	chartAxisRotate = 45
	colorOversized  = "#d9534f"
	colorWithin     = "#5cb85c"
	colorLimit      = "#f0ad4e"
)

// WriteChart renders report as a standalone HTML bar chart, largest first,
// with oversized contracts highlighted.
func WriteChart(w io.Writer, report *Report) error {
	bar := charts.NewBar()

	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: chartPageTitle,
			Width:     chartWidth,
			Height:    chartHeight,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    chartPageTitle,
			Subtitle: fmt.Sprintf("EIP-170 limit: %d bytes, %d oversized", report.Limit, len(report.Oversized)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{
			AxisLabel: &opts.AxisLabel{Rotate: chartAxisRotate, Interval: "0"},
		}),
		charts.WithYAxisOpts(opts.YAxis{Name: "bytes"}),
	)

	entries := make([]Entry, 0, len(report.Oversized)+len(report.WithinLimit))
	entries = append(entries, report.Oversized...)
	entries = append(entries, report.WithinLimit...)

	names := make([]string, len(entries))
	sizes := make([]opts.BarData, len(entries))
	limits := make([]opts.BarData, len(entries))

	for i, entry := range entries {
		names[i] = entry.Name

		barColor := colorWithin
		if entry.Bytes > report.Limit {
			barColor = colorOversized
		}

		sizes[i] = opts.BarData{
			Name:      entry.Key,
			Value:     entry.Bytes,
			ItemStyle: &opts.ItemStyle{Color: barColor},
		}
		limits[i] = opts.BarData{Value: report.Limit}
	}

	bar.SetXAxis(names)
	bar.AddSeries("Bytecode", sizes)
	bar.AddSeries("Limit", limits, charts.WithItemStyleOpts(opts.ItemStyle{Color: colorLimit}))

	err := bar.Render(w)
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}

	return nil
}
