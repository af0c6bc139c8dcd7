package charts

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"AirQuality/src/config"
	"AirQuality/src/processor"
	"AirQuality/src/utils"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/stat"
)

const (
	chartWidth  = "900px"
	chartHeight = "420px"
)

func initOpts(pageTitle string) charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{
		PageTitle: pageTitle,
		Theme:     types.ThemeWesteros,
		Width:     chartWidth,
		Height:    chartHeight,
	})
}

// axisName renders "param (unit)", or just param without a unit.
func axisName(reg *config.Registry, param string) string {
	if unit := reg.Unit(param); unit != "" {
		return fmt.Sprintf("%s (%s)", param, unit)
	}
	return param
}

// value turns NaN into nil so the point is a gap instead of a JSON error.
func value(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

// TimeSeries plots param of one station resampled to freq.
func TimeSeries(table *processor.StationTable, reg *config.Registry, param, freq string) (*charts.Line, error) {
	label := table.Column(param)
	if !utils.HasColumn(table.Frame, label) {
		return nil, fmt.Errorf("%w: %s has no %s series", processor.ErrMissingColumn, table.Station, param)
	}
	resampled, err := processor.Resample(table.Frame.Select([]string{processor.ColDate, label}), freq)
	if err != nil {
		return nil, err
	}

	dates := resampled.Col(processor.ColDate).Records()
	values := resampled.Col(label).Float()
	xAxis := make([]string, len(dates))
	points := make([]opts.LineData, len(values))
	for i := range dates {
		xAxis[i] = dates[i][:10]
		points[i] = opts.LineData{Value: value(values[i])}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		initOpts(table.Station+" "+param),
		charts.WithTitleOpts(opts.Title{
			Title:    table.Station,
			Subtitle: fmt.Sprintf("%s, %s mean", param, freq),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "date"}),
		charts.WithYAxisOpts(opts.YAxis{Name: axisName(reg, param)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.SetXAxis(xAxis).AddSeries(param, points)
	return line, nil
}

// MissingValues builds one bar chart per family from a missing-value
// report: station codes on the x axis, one series per parameter.
func MissingValues(report dataframe.DataFrame, reg *config.Registry) (*charts.Bar, *charts.Bar, error) {
	for _, name := range []string{processor.ColStation, processor.ColParameter, processor.ColMissing} {
		if !utils.HasColumn(report, name) {
			return nil, nil, fmt.Errorf("%w: %s", processor.ErrMissingColumn, name)
		}
	}

	stations := reg.Stations()
	index := make(map[string]int, len(stations))
	codes := make([]string, len(stations))
	for i, st := range stations {
		index[st.Name] = i
		codes[i] = st.Code
	}

	names := report.Col(processor.ColStation).Records()
	params := report.Col(processor.ColParameter).Records()
	values := report.Col(processor.ColMissing).Float()
	byParam := make(map[string][]opts.BarData)
	for i := range names {
		pos, ok := index[names[i]]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %q", processor.ErrStationNotFound, names[i])
		}
		if byParam[params[i]] == nil {
			byParam[params[i]] = make([]opts.BarData, len(stations))
		}
		byParam[params[i]][pos] = opts.BarData{Value: value(values[i])}
	}

	build := func(family config.Family, title string) *charts.Bar {
		bar := charts.NewBar()
		bar.SetGlobalOptions(
			initOpts(title),
			charts.WithTitleOpts(opts.Title{Title: title}),
			charts.WithXAxisOpts(opts.XAxis{Name: "station"}),
			charts.WithYAxisOpts(opts.YAxis{Name: "missing (%)", Max: 100}),
			charts.WithTooltipOpts(opts.Tooltip{Show: true}),
		)
		bar.SetXAxis(codes)
		familyParams, _ := reg.Params(family)
		for _, param := range familyParams {
			if data, ok := byParam[param]; ok {
				bar.AddSeries(param, data)
			}
		}
		return bar
	}

	return build(config.Meteo, "Missing meteorological data"), build(config.Cont, "Missing contaminant data"), nil
}

// MonthlyBoxPlot groups the daily means of param by calendar month.
func MonthlyBoxPlot(table *processor.StationTable, reg *config.Registry, param string) (*charts.BoxPlot, error) {
	label := table.Column(param)
	if !utils.HasColumn(table.Frame, label) {
		return nil, fmt.Errorf("%w: %s has no %s series", processor.ErrMissingColumn, table.Station, param)
	}
	daily, err := processor.Resample(table.Frame.Select([]string{processor.ColDate, label}), string(processor.Daily))
	if err != nil {
		return nil, err
	}
	withMonth, err := processor.AddMonthColumn(daily)
	if err != nil {
		return nil, err
	}

	months, err := withMonth.Col("month").Int()
	if err != nil {
		return nil, err
	}
	values := withMonth.Col(label).Float()
	groups := make(map[int][]float64)
	for i, m := range months {
		if !math.IsNaN(values[i]) {
			groups[m] = append(groups[m], values[i])
		}
	}

	var keys []int
	for m := range groups {
		keys = append(keys, m)
	}
	sort.Ints(keys)

	xAxis := make([]string, len(keys))
	boxes := make([]opts.BoxPlotData, len(keys))
	for i, m := range keys {
		xAxis[i] = time.Month(m).String()[:3]
		boxes[i] = opts.BoxPlotData{Value: FiveNumber(groups[m])}
	}

	box := charts.NewBoxPlot()
	box.SetGlobalOptions(
		initOpts(table.Station+" "+param+" by month"),
		charts.WithTitleOpts(opts.Title{
			Title:    table.Station,
			Subtitle: param + " daily means by month",
		}),
		charts.WithYAxisOpts(opts.YAxis{Name: axisName(reg, param)}),
	)
	box.SetXAxis(xAxis).AddSeries(param, boxes)
	return box, nil
}

// FiveNumber returns min, lower quartile, median, upper quartile and max.
// xs is sorted in place.
func FiveNumber(xs []float64) []float64 {
	if len(xs) == 0 {
		return nil
	}
	sort.Float64s(xs)
	return []float64{
		xs[0],
		stat.Quantile(0.25, stat.Empirical, xs, nil),
		stat.Quantile(0.5, stat.Empirical, xs, nil),
		stat.Quantile(0.75, stat.Empirical, xs, nil),
		xs[len(xs)-1],
	}
}

// Renderer is implemented by every go-echarts chart.
type Renderer interface {
	Render(w io.Writer) error
}

// RenderPage writes the charts as one HTML page.
func RenderPage(w io.Writer, title string, list ...components.Charter) error {
	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(list...)
	return page.Render(w)
}
