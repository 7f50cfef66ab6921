package simulad

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/simulad/simulad/timetable"
)

// LineTSeries generates an echart multi-line chart plotting every column of
// the table against its timestamps. Rows holding any missing value are
// filtered out so all series share one x-axis.
func LineTSeries(title string, tbl *timetable.Table) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
	)

	lineData := make([][]opts.LineData, len(tbl.Columns))
	for j := range lineData {
		lineData[j] = make([]opts.LineData, 0, tbl.Len())
	}

	filteredT := make([]time.Time, 0, tbl.Len())
	for i := 0; i < tbl.Len(); i++ {
		complete := true
		for _, v := range tbl.Data[i] {
			if math.IsNaN(v) {
				complete = false
				break
			}
		}
		if !complete {
			continue
		}
		filteredT = append(filteredT, tbl.T[i])
		for j, v := range tbl.Data[i] {
			lineData[j] = append(lineData[j], opts.LineData{Value: v})
		}
	}

	line = line.SetXAxis(filteredT)
	for j, name := range tbl.Columns {
		line = line.AddSeries(name, lineData[j])
	}

	return line
}

// LineScenario generates an echart line chart for a single variable plotting
// the observed history alongside the unperturbed and adjusted forecast
// trajectories.
func LineScenario(name string, history, baseline, adjusted *timetable.Table) (*charts.Line, error) {
	hist, err := history.Column(name)
	if err != nil {
		return nil, err
	}
	base, err := baseline.Column(name)
	if err != nil {
		return nil, err
	}
	adj, err := adjusted.Column(name)
	if err != nil {
		return nil, err
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: name,
			},
		),
	)

	t := make([]time.Time, 0, len(history.T)+len(baseline.T))
	t = append(t, history.T...)
	t = append(t, baseline.T...)

	pad := make([]opts.LineData, len(history.T))

	histData := make([]opts.LineData, 0, len(hist))
	for _, v := range hist {
		histData = append(histData, opts.LineData{Value: v})
	}
	baseData := append([]opts.LineData(nil), pad...)
	for _, v := range base {
		baseData = append(baseData, opts.LineData{Value: v})
	}
	adjData := append([]opts.LineData(nil), pad...)
	for _, v := range adj {
		adjData = append(adjData, opts.LineData{Value: v})
	}

	line.SetXAxis(t).
		AddSeries("History", histData).
		AddSeries("Forecast", baseData).
		AddSeries("Adjusted", adjData)
	return line, nil
}

// PlotScenario renders an html file opening with an overview chart of the
// observed history followed by one chart per fitted variable showing history
// plus the baseline and adjusted forecast trajectories.
func PlotScenario(path string, history, baseline, adjusted *timetable.Table) error {
	page := components.NewPage()
	page.AddCharts(LineTSeries("Observed history", history))
	for _, name := range baseline.Columns {
		line, err := LineScenario(name, history, baseline, adjusted)
		if err != nil {
			return fmt.Errorf("unable to chart %q, %w", name, err)
		}
		page.AddCharts(line)
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return page.Render(io.MultiWriter(file))
}
