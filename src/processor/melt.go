package processor

import (
	"fmt"
	"strings"

	"AirQuality/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Column names of the long (tidy) format.
const (
	ColDate      = "date"
	ColParameter = "parameter"
	ColStation   = "station"
	ColValue     = "value"
)

// Melt reshapes a wide table (date, parameter, one column per station code)
// into the long format (date, parameter, station, value).
//
// Dates are re-emitted in utils.TimeLayout, parameters are trimmed and
// values keep their raw text. Rows come out column-major: every row of the
// first station column, then the next one.
func Melt(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if df.Err != nil {
		return dataframe.DataFrame{}, df.Err
	}
	for _, name := range []string{ColDate, ColParameter} {
		if !utils.HasColumn(df, name) {
			return dataframe.DataFrame{}, fmt.Errorf("melt: %w %q", ErrMissingColumn, name)
		}
	}

	nrow := df.Nrow()
	dates := make([]string, nrow)
	params := make([]string, nrow)
	dateCol, paramCol := df.Col(ColDate), df.Col(ColParameter)
	for i := 0; i < nrow; i++ {
		e := dateCol.Elem(i)
		if e.IsNA() {
			return dataframe.DataFrame{}, fmt.Errorf("melt: row %d: %w: empty date", i, ErrInvalidDate)
		}
		t, err := utils.ParseTime(e.String())
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("melt: row %d: %w: %v", i, ErrInvalidDate, err)
		}
		dates[i] = utils.FormatTime(t)

		if p := paramCol.Elem(i); p.IsNA() {
			params[i] = "NaN"
		} else {
			params[i] = strings.TrimSpace(p.String())
		}
	}

	var valueCols []string
	for _, name := range df.Names() {
		if name != ColDate && name != ColParameter {
			valueCols = append(valueCols, name)
		}
	}

	total := nrow * len(valueCols)
	outDates := make([]string, 0, total)
	outParams := make([]string, 0, total)
	outStations := make([]string, 0, total)
	outValues := make([]string, 0, total)

	for _, name := range valueCols {
		col := df.Col(name)
		for i := 0; i < nrow; i++ {
			outDates = append(outDates, dates[i])
			outParams = append(outParams, params[i])
			outStations = append(outStations, name)
			if e := col.Elem(i); e.IsNA() {
				outValues = append(outValues, "NaN")
			} else {
				outValues = append(outValues, e.String())
			}
		}
	}

	return dataframe.New(
		series.New(outDates, series.String, ColDate),
		series.New(outParams, series.String, ColParameter),
		series.New(outStations, series.String, ColStation),
		series.New(outValues, series.String, ColValue),
	), nil
}
