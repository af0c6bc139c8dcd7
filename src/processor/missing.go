package processor

import (
	"AirQuality/src/config"
	"AirQuality/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ColMissing holds the missing-value percentage in the report.
const ColMissing = "missing_values"

// DiagnoseMissing extracts every registry station from both melted tables
// and reports, per station and parameter, the percentage of missing values
// in the primary series.
//
// A parameter without any column for a station, and every parameter of a
// station whose extraction has no rows, is reported as 100% missing. The
// report is ordered parameter-major: meteorological then contaminant
// parameters, each across all stations in registry order.
func (p *DataProcessor) DiagnoseMissing(meteo, cont dataframe.DataFrame) (dataframe.DataFrame, error) {
	stations := p.reg.Stations()
	meteoParams, _ := p.reg.Params(config.Meteo)
	contParams, _ := p.reg.Params(config.Cont)

	// missing[param][stationIndex]
	missing := make(map[string][]float64, len(meteoParams)+len(contParams))
	for _, param := range append(append([]string{}, meteoParams...), contParams...) {
		missing[param] = make([]float64, len(stations))
	}

	for i, st := range stations {
		for _, fam := range []struct {
			long   dataframe.DataFrame
			params []string
		}{{meteo, meteoParams}, {cont, contParams}} {
			table, err := p.Extract(fam.long, st.Name)
			if err != nil {
				return dataframe.DataFrame{}, err
			}
			for _, param := range fam.params {
				missing[param][i] = missingPercent(table, param)
			}
		}
	}

	var (
		outStations []string
		outParams   []string
		outValues   []float64
	)
	for _, param := range p.reg.AllParams() {
		for i, st := range stations {
			outStations = append(outStations, st.Name)
			outParams = append(outParams, param)
			outValues = append(outValues, missing[param][i])
		}
	}

	return dataframe.New(
		series.New(outStations, series.String, ColStation),
		series.New(outParams, series.String, ColParameter),
		series.New(outValues, series.Float, ColMissing),
	), nil
}

func missingPercent(table *StationTable, param string) float64 {
	rows := table.Frame.Nrow()
	if rows == 0 {
		return 100
	}
	label := table.Column(param)
	if !utils.HasColumn(table.Frame, label) {
		return 100
	}

	n := 0
	for _, isNaN := range table.Frame.Col(label).IsNaN() {
		if isNaN {
			n++
		}
	}
	return float64(n) / float64(rows) * 100
}
