package charts

import (
	"errors"
	"fmt"
	"io"
	"math"

	"AirQuality/src/processor"
	"AirQuality/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrTooFewPoints is returned when a column has fewer than two plottable
// values.
var ErrTooFewPoints = errors.New("not enough points to plot")

// RenderPNG draws column of a wide table against its date column as a PNG
// line chart. NaN cells are skipped.
func RenderPNG(w io.Writer, table dataframe.DataFrame, column, title string) error {
	if !utils.HasColumn(table, processor.ColDate) || !utils.HasColumn(table, column) {
		return fmt.Errorf("%w: %s", processor.ErrMissingColumn, column)
	}

	dates := table.Col(processor.ColDate)
	values := table.Col(column)
	var xs []float64
	var ys []float64
	for i := 0; i < table.Nrow(); i++ {
		v, ok := utils.ToFloat(values.Elem(i))
		if !ok || math.IsInf(v, 0) {
			continue
		}
		ts, err := utils.ParseTimeElem(dates.Elem(i))
		if err != nil || ts.IsZero() {
			continue
		}
		xs = append(xs, chart.TimeToFloat64(ts))
		ys = append(ys, v)
	}
	if len(xs) < 2 {
		return fmt.Errorf("%w: %s has %d", ErrTooFewPoints, column, len(xs))
	}

	graph := chart.Chart{
		Title: title,
		TitleStyle: chart.Style{
			FontSize:  14,
			FontColor: drawing.ColorBlack,
		},
		Background: chart.Style{
			Padding: chart.Box{
				Top:    40,
				Left:   60,
				Right:  20,
				Bottom: 40,
			},
		},
		Width:  900,
		Height: 360,
		XAxis: chart.XAxis{
			Name:           "date",
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis: chart.YAxis{
			Name: column,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name: column,
				Style: chart.Style{
					StrokeColor: drawing.Color{R: 51, G: 102, B: 204, A: 255},
					StrokeWidth: 1.5,
				},
				XValues: xs,
				YValues: ys,
			},
		},
	}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render %s: %w", column, err)
	}
	return nil
}
