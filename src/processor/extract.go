package processor

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"AirQuality/src/config"
	"AirQuality/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// StationTable is the wide table of one station: a date column followed by
// one "{variant}-{parameter}" column per series of the station and its
// backup sensor.
type StationTable struct {
	Station string
	Code    string
	Frame   dataframe.DataFrame
	Coerced int // cells that failed numeric coercion and became NaN
}

// Column returns the label of param's primary series.
func (t *StationTable) Column(param string) string {
	return t.Code + "-" + param
}

// NumericColumns lists the primary (non-backup) series labels.
func (t *StationTable) NumericColumns() []string {
	var cols []string
	for _, name := range t.Frame.Names() {
		if name != ColDate && !isBackupColumn(name) {
			cols = append(cols, name)
		}
	}
	return cols
}

func isBackupColumn(name string) bool {
	variant, _, _ := strings.Cut(name, "-")
	return strings.HasSuffix(variant, config.BackupSuffix)
}

type pivotKey struct {
	variant string
	param   string
}

// Extract filters the long table to station and its backup series and
// pivots it to wide form, one row per distinct date in ascending order.
// Primary series are coerced to float; unparseable cells become NaN and are
// counted in StationTable.Coerced.
func (p *DataProcessor) Extract(long dataframe.DataFrame, station string) (*StationTable, error) {
	code, err := p.reg.Code(station)
	if err != nil {
		return nil, err
	}
	st := config.Station{Name: station, Code: code}
	for _, name := range []string{ColDate, ColParameter, ColStation, ColValue} {
		if !utils.HasColumn(long, name) {
			return nil, fmt.Errorf("extract %q: %w %q", station, ErrMissingColumn, name)
		}
	}

	backup := st.BackupCode()
	filtered := long
	if long.Nrow() > 0 {
		filtered = long.Filter(dataframe.F{
			Colname:    ColStation,
			Comparator: series.In,
			Comparando: []string{code, backup},
		})
		if filtered.Err != nil {
			return nil, fmt.Errorf("extract %q: %w", station, filtered.Err)
		}
	}

	dates, cells, keys, err := pivot(filtered)
	if err != nil {
		return nil, fmt.Errorf("extract %q: %w", station, err)
	}

	table := &StationTable{Station: station, Code: code}
	cols := make([]series.Series, 0, len(keys)+1)
	cols = append(cols, series.New(dates, series.String, ColDate))

	for _, k := range keys {
		label := k.variant + "-" + k.param
		byDate := cells[k]
		if k.variant == backup {
			values := make([]string, len(dates))
			for i, d := range dates {
				values[i] = "NaN"
				if e, ok := byDate[d]; ok && !e.IsNA() {
					values[i] = e.String()
				}
			}
			cols = append(cols, series.New(values, series.String, label))
			continue
		}

		values := make([]float64, len(dates))
		for i, d := range dates {
			values[i] = math.NaN()
			e, ok := byDate[d]
			if !ok {
				continue
			}
			v, ok := utils.ToFloat(e)
			if ok {
				values[i] = v
			} else if !utils.IsBlank(e) {
				table.Coerced++
			}
		}
		cols = append(cols, series.New(values, series.Float, label))
	}

	table.Frame = dataframe.New(cols...)
	if table.Frame.Err != nil {
		return nil, fmt.Errorf("extract %q: %w", station, table.Frame.Err)
	}
	if table.Coerced > 0 {
		p.warn("station %s: %d values could not be read as numbers and were treated as missing", code, table.Coerced)
	}
	return table, nil
}

// pivot indexes the filtered long rows by (variant, parameter) and date.
// It returns the sorted dates, the cells and the sorted column keys.
func pivot(df dataframe.DataFrame) ([]string, map[pivotKey]map[string]series.Element, []pivotKey, error) {
	cells := make(map[pivotKey]map[string]series.Element)
	seen := make(map[string]time.Time)

	dateCol, paramCol := df.Col(ColDate), df.Col(ColParameter)
	stationCol, valueCol := df.Col(ColStation), df.Col(ColValue)

	for i := 0; i < df.Nrow(); i++ {
		d := dateCol.Elem(i).String()
		if _, ok := seen[d]; !ok {
			t, err := utils.ParseTime(d)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("row %d: %w: %v", i, ErrInvalidDate, err)
			}
			seen[d] = t
		}

		k := pivotKey{variant: stationCol.Elem(i).String(), param: paramCol.Elem(i).String()}
		byDate, ok := cells[k]
		if !ok {
			byDate = make(map[string]series.Element)
			cells[k] = byDate
		}
		if _, dup := byDate[d]; dup {
			return nil, nil, nil, fmt.Errorf("%w: date %s, series %s-%s", ErrDuplicateEntry, d, k.variant, k.param)
		}
		byDate[d] = valueCol.Elem(i)
	}

	dates := make([]string, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return seen[dates[i]].Before(seen[dates[j]]) })

	keys := make([]pivotKey, 0, len(cells))
	for k := range cells {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].variant != keys[j].variant {
			return keys[i].variant < keys[j].variant
		}
		return keys[i].param < keys[j].param
	})

	return dates, cells, keys, nil
}
