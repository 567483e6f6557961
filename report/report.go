// Package report renders an HTML ink profile of a decoded trace: how much
// ink each hostio burned, in execution order across the whole call tree.
package report

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/colorfulnotion/stylus-replay/hostio"
	"github.com/colorfulnotion/stylus-replay/log"
)

// InkProfile renders a bar chart of ink consumed per hostio, depth-first
// over the frame tree, into a standalone HTML page.
func InkProfile(frame *hostio.TraceFrame, title string, w io.Writer) error {
	var labels []string
	var values []opts.BarData
	collect(frame, "", &labels, &values)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("%d hostios", len(labels)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).AddSeries("ink", values)

	page := components.NewPage()
	page.AddCharts(bar)
	return page.Render(w)
}

// WriteInkProfile renders the profile into a file.
func WriteInkProfile(frame *hostio.TraceFrame, title string, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", path, err)
	}
	defer f.Close()
	if err := InkProfile(frame, title, f); err != nil {
		return err
	}
	log.Info(log.ReportModule, "ink profile written", "path", path)
	return nil
}

// collect labels each hostio by its position path, so nested call steps
// read as 3.0, 3.1 under root step 3.
func collect(frame *hostio.TraceFrame, prefix string, labels *[]string, values *[]opts.BarData) {
	for i, h := range frame.Steps {
		position := fmt.Sprintf("%s%d", prefix, i)
		*labels = append(*labels, fmt.Sprintf("%s %s", position, h.Name()))
		*values = append(*values, opts.BarData{Name: h.String(), Value: h.Ink()})
		if call, ok := h.Kind.(hostio.CallContract); ok {
			collect(call.Frame, position+".", labels, values)
		}
	}
}
