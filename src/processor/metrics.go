package processor

import (
	"fmt"
	"math"
	"time"

	"AirQuality/src/config"
	"AirQuality/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/stat"
)

// Column names of the metric summary.
const (
	ColMean = "mean"
	ColDiff = "diff"
)

// Window is the half-open interval (Start, End].
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies in (Start, End].
func (w Window) Contains(t time.Time) bool {
	return t.After(w.Start) && !t.After(w.End)
}

// MetricWindows returns the trailing window A = (end-N days, end] and the
// preceding window B = (end-2N days, end-N days].
func MetricWindows(end time.Time, days int) (Window, Window, error) {
	if days <= 0 {
		return Window{}, Window{}, fmt.Errorf("%w: got %d", ErrInvalidWindow, days)
	}
	span := time.Duration(days) * 24 * time.Hour
	return Window{Start: end.Add(-span), End: end},
		Window{Start: end.Add(-2 * span), End: end.Add(-span)}, nil
}

// Metrics computes, for each parameter of family present in the melted
// table, the mean over the trailing days-long window and its difference to
// the preceding window. The reference point is the latest date of the whole
// table. Means that have no valid numeric observation are NaN, and so is
// any diff built from them.
func (p *DataProcessor) Metrics(long dataframe.DataFrame, days int, family config.Family) (dataframe.DataFrame, error) {
	params, err := p.reg.Params(family)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	if days <= 0 {
		return dataframe.DataFrame{}, fmt.Errorf("%w: got %d", ErrInvalidWindow, days)
	}
	for _, name := range []string{ColDate, ColParameter, ColValue} {
		if !utils.HasColumn(long, name) {
			return dataframe.DataFrame{}, fmt.Errorf("metrics: %w %q", ErrMissingColumn, name)
		}
	}
	if long.Nrow() == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("metrics: %w", ErrEmptyTable)
	}

	dateCol := long.Col(ColDate)
	times := make([]time.Time, long.Nrow())
	parsed := make(map[string]time.Time)
	var latest time.Time
	for i := range times {
		d := dateCol.Elem(i).String()
		t, ok := parsed[d]
		if !ok {
			t, err = utils.ParseTime(d)
			if err != nil {
				return dataframe.DataFrame{}, fmt.Errorf("metrics: row %d: %w: %v", i, ErrInvalidDate, err)
			}
			parsed[d] = t
		}
		times[i] = t
		if t.After(latest) {
			latest = t
		}
	}

	winA, winB, err := MetricWindows(latest, days)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	inFamily := make(map[string]bool, len(params))
	for _, param := range params {
		inFamily[param] = true
	}
	present := make(map[string]bool)
	valuesA := make(map[string][]float64)
	valuesB := make(map[string][]float64)
	coerced := 0

	paramCol, valueCol := long.Col(ColParameter), long.Col(ColValue)
	for i, t := range times {
		param := paramCol.Elem(i).String()
		if !inFamily[param] {
			continue
		}
		present[param] = true

		inA, inB := winA.Contains(t), winB.Contains(t)
		if !inA && !inB {
			continue
		}
		e := valueCol.Elem(i)
		v, ok := utils.ToFloat(e)
		if !ok {
			if !utils.IsBlank(e) {
				coerced++
			}
			continue
		}
		if inA {
			valuesA[param] = append(valuesA[param], v)
		} else {
			valuesB[param] = append(valuesB[param], v)
		}
	}
	if coerced > 0 {
		p.warn("metrics: %d values could not be read as numbers and were excluded", coerced)
	}

	var (
		outParams []string
		outMeans  []float64
		outDiffs  []float64
	)
	for _, param := range params {
		if !present[param] {
			continue
		}
		meanA, meanB := mean(valuesA[param]), mean(valuesB[param])
		outParams = append(outParams, param)
		outMeans = append(outMeans, meanA)
		outDiffs = append(outDiffs, meanA-meanB)
	}

	return dataframe.New(
		series.New(outParams, series.String, ColParameter),
		series.New(outMeans, series.Float, ColMean),
		series.New(outDiffs, series.Float, ColDiff),
	), nil
}

// mean of xs, NaN for an empty slice
func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return stat.Mean(xs, nil)
}
