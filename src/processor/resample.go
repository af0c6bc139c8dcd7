package processor

import (
	"fmt"
	"math"
	"strings"
	"time"

	"AirQuality/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Frequency is a calendar bucket used for resampling.
type Frequency string

const (
	Daily   Frequency = "D"
	Weekly  Frequency = "W"
	Monthly Frequency = "M"
	Yearly  Frequency = "Y"
)

// ParseFrequency accepts D/W/M/Y and day/week/month/year, any case.
func ParseFrequency(label string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "d", "day", "daily":
		return Daily, nil
	case "w", "week", "weekly":
		return Weekly, nil
	case "m", "month", "monthly":
		return Monthly, nil
	case "y", "a", "year", "yearly":
		return Yearly, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, label)
}

// bucket returns the label of the bucket t falls into: day start for
// daily, the closing Sunday for weekly, the last day of the month or year
// otherwise.
func (f Frequency) bucket(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	switch f {
	case Weekly:
		return day.AddDate(0, 0, (7-int(day.Weekday()))%7)
	case Monthly:
		return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location())
	case Yearly:
		return time.Date(t.Year(), time.December, 31, 0, 0, 0, 0, t.Location())
	}
	return day
}

func (f Frequency) next(label time.Time) time.Time {
	switch f {
	case Weekly:
		return label.AddDate(0, 0, 7)
	case Monthly:
		return time.Date(label.Year(), label.Month()+2, 0, 0, 0, 0, 0, label.Location())
	case Yearly:
		return time.Date(label.Year()+1, time.December, 31, 0, 0, 0, 0, label.Location())
	}
	return label.AddDate(0, 0, 1)
}

// Resample averages every numeric column of a wide table (date plus
// numeric columns) per calendar bucket. Empty buckets between the first and
// the last are kept with NaN values; NaN cells are ignored by the mean.
// Text columns, such as backup series, are dropped.
func Resample(table dataframe.DataFrame, freq string) (dataframe.DataFrame, error) {
	f, err := ParseFrequency(freq)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	if !utils.HasColumn(table, ColDate) {
		return dataframe.DataFrame{}, fmt.Errorf("resample: %w %q", ErrMissingColumn, ColDate)
	}

	var numeric []string
	for _, name := range table.Names() {
		if name == ColDate {
			continue
		}
		if t := table.Col(name).Type(); t == series.Float || t == series.Int {
			numeric = append(numeric, name)
		}
	}

	labels := make([]time.Time, table.Nrow())
	valid := make([]bool, table.Nrow())
	var first, last time.Time
	dateCol := table.Col(ColDate)
	for i := range labels {
		e := dateCol.Elem(i)
		if utils.IsBlank(e) {
			continue
		}
		t, err := utils.ParseTime(e.String())
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("resample: row %d: %w: %v", i, ErrInvalidDate, err)
		}
		labels[i], valid[i] = f.bucket(t), true
		if first.IsZero() || labels[i].Before(first) {
			first = labels[i]
		}
		if labels[i].After(last) {
			last = labels[i]
		}
	}

	var buckets []time.Time
	index := make(map[time.Time]int)
	if !first.IsZero() {
		for b := first; !b.After(last); b = f.next(b) {
			index[b] = len(buckets)
			buckets = append(buckets, b)
		}
	}

	dates := make([]string, len(buckets))
	for i, b := range buckets {
		dates[i] = utils.FormatTime(b)
	}
	cols := []series.Series{series.New(dates, series.String, ColDate)}

	for _, name := range numeric {
		sums := make([]float64, len(buckets))
		counts := make([]int, len(buckets))
		values := table.Col(name).Float()
		for i, v := range values {
			if !valid[i] || math.IsNaN(v) {
				continue
			}
			j := index[labels[i]]
			sums[j] += v
			counts[j]++
		}
		means := make([]float64, len(buckets))
		for j := range means {
			means[j] = math.NaN()
			if counts[j] > 0 {
				means[j] = sums[j] / float64(counts[j])
			}
		}
		cols = append(cols, series.New(means, series.Float, name))
	}

	return dataframe.New(cols...), nil
}

// AddMonthColumn appends a "month" column (1-12) derived from the date
// column.
func AddMonthColumn(table dataframe.DataFrame) (dataframe.DataFrame, error) {
	if !utils.HasColumn(table, ColDate) {
		return dataframe.DataFrame{}, fmt.Errorf("month: %w %q", ErrMissingColumn, ColDate)
	}
	months := make([]int, table.Nrow())
	dateCol := table.Col(ColDate)
	for i := range months {
		t, err := utils.ParseTime(dateCol.Elem(i).String())
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("month: row %d: %w: %v", i, ErrInvalidDate, err)
		}
		months[i] = int(t.Month())
	}
	return table.Mutate(series.New(months, series.Int, "month")), nil
}
