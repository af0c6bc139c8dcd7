package processor

import (
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

func TestMergeCardinality(t *testing.T) {
	a := textFrame([][]string{
		{"date", "parameter", "station", "value"},
		{"2021-01-01 00:00:00", "TOUT", "SE", "20"},
		{"2021-01-02 00:00:00", "TOUT", "SE", "21"},
		{"2021-01-03 00:00:00", "TOUT", "SE", "22"},
	})
	b := textFrame([][]string{
		{"date", "parameter", "station", "value"},
		{"2021-01-02 00:00:00", "PM10", "SE", "10"},
		{"2021-01-03 00:00:00", "PM10", "SE", "11"},
		{"2021-01-04 00:00:00", "PM10", "SE", "12"},
	})

	merged, err := Merge(a, b)
	if err != nil {
		t.Fatal(err)
	}

	dates := merged.Col(ColDate).Records()
	sort.Strings(dates)
	if !reflect.DeepEqual(dates, []string{"2021-01-02 00:00:00", "2021-01-03 00:00:00"}) {
		t.Errorf("dates = %v", dates)
	}

	wantCols := []string{"date", "parameter_x", "station_x", "value_x", "parameter_y", "station_y", "value_y"}
	if got := merged.Names(); !reflect.DeepEqual(got, wantCols) {
		t.Errorf("columns = %v", got)
	}
	// inputs untouched
	if a.Names()[1] != "parameter" || b.Names()[1] != "parameter" {
		t.Error("merge renamed input columns")
	}
}

func TestMergeWideTables(t *testing.T) {
	a := dataframe.New(
		series.New([]string{"2021-01-01 00:00:00", "2021-01-02 00:00:00"}, series.String, "date"),
		series.New([]float64{20, 21}, series.Float, "SE-TOUT"),
	)
	b := dataframe.New(
		series.New([]string{"2021-01-02 00:00:00"}, series.String, "date"),
		series.New([]float64{10}, series.Float, "SE-PM10"),
	)
	merged, err := Merge(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if merged.Nrow() != 1 || merged.Col("SE-TOUT").Elem(0).Float() != 21 || merged.Col("SE-PM10").Elem(0).Float() != 10 {
		t.Errorf("merged:\n%v", merged)
	}
}

func TestMergeMissingDate(t *testing.T) {
	a := textFrame([][]string{{"when", "value"}, {"x", "1"}})
	b := textFrame([][]string{{"date", "value"}, {"x", "1"}})
	if _, err := Merge(a, b); !errors.Is(err, ErrMissingColumn) {
		t.Errorf("err = %v, want ErrMissingColumn", err)
	}
}

func TestMergeRepeatedDates(t *testing.T) {
	a := textFrame([][]string{
		{"date", "value"},
		{"2021-01-01", "a1"},
		{"2021-01-02", "a2"},
		{"2021-01-01", "a3"},
	})
	b := textFrame([][]string{
		{"date", "value"},
		{"2021-01-01", "b1"},
		{"2021-01-01", "b2"},
	})
	merged, err := Merge(a, b)
	if err != nil {
		t.Fatal(err)
	}
	got := make([]string, merged.Nrow())
	for i := range got {
		got[i] = merged.Col("value_x").Elem(i).String() + merged.Col("value_y").Elem(i).String()
	}
	if want := []string{"a1b1", "a1b2", "a3b1", "a3b2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("rows = %v, want %v", got, want)
	}

	none, err := Merge(a, textFrame([][]string{{"date", "pm"}, {"2022-01-01", "1"}}))
	if err != nil {
		t.Fatal(err)
	}
	if none.Nrow() != 0 || !reflect.DeepEqual(none.Names(), []string{"date", "value", "pm"}) {
		t.Errorf("no overlap:\n%v", none)
	}
}
