package processor

import (
	"errors"
	"math"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"AirQuality/src/config"
)

type recordingWarner struct{ msgs []string }

func (w *recordingWarner) Warning(msg string) { w.msgs = append(w.msgs, msg) }

func newTestProcessor() (*DataProcessor, *recordingWarner) {
	w := &recordingWarner{}
	return NewDataProcessor(config.MustRegistry(), w), w
}

func TestExtractScenario(t *testing.T) {
	p, _ := newTestProcessor()
	long, err := Melt(textFrame([][]string{
		{"date", "parameter", "SE"},
		{"2021-01-01", "PM10", "10"},
		{"2021-01-02", "PM10", "20"},
	}))
	if err != nil {
		t.Fatal(err)
	}

	table, err := p.Extract(long, "Guadalupe, La Pastora")
	if err != nil {
		t.Fatal(err)
	}
	if got := table.Frame.Names(); !reflect.DeepEqual(got, []string{"date", "SE-PM10"}) {
		t.Fatalf("columns = %v", got)
	}
	if got := table.Frame.Col("date").Records(); !reflect.DeepEqual(got, []string{"2021-01-01 00:00:00", "2021-01-02 00:00:00"}) {
		t.Errorf("dates = %v", got)
	}
	if got := table.Frame.Col("SE-PM10").Float(); !reflect.DeepEqual(got, []float64{10, 20}) {
		t.Errorf("values = %v", got)
	}
	if table.Code != "SE" || table.Column("PM10") != "SE-PM10" {
		t.Errorf("table metadata %+v", table)
	}
}

func TestExtractRoundTrip(t *testing.T) {
	p, _ := newTestProcessor()
	wide := textFrame([][]string{
		{"date", "parameter", "SE", "SE_b", "NE"},
		{"2021-01-01 00:00:00", "O3", "1.5", "1.4", "9"},
		{"2021-01-01 00:00:00", "PM10", "30", "", "8"},
		{"2021-01-01 01:00:00", "O3", "2.5", "2.4", "7"},
		{"2021-01-01 01:00:00", "PM10", "31", "29", "6"},
	})
	long, err := Melt(wide)
	if err != nil {
		t.Fatal(err)
	}

	table, err := p.Extract(long, "Guadalupe, La Pastora")
	if err != nil {
		t.Fatal(err)
	}
	wantCols := []string{"date", "SE-O3", "SE-PM10", "SE_b-O3", "SE_b-PM10"}
	if got := table.Frame.Names(); !reflect.DeepEqual(got, wantCols) {
		t.Fatalf("columns = %v, want %v", got, wantCols)
	}
	if got := table.NumericColumns(); !reflect.DeepEqual(got, []string{"SE-O3", "SE-PM10"}) {
		t.Errorf("numeric columns = %v", got)
	}

	// every primary cell of the original wide table comes back
	for i := 0; i < wide.Nrow(); i++ {
		param := wide.Col("parameter").Elem(i).String()
		want, _ := strconv.ParseFloat(wide.Col("SE").Elem(i).String(), 64)
		row := i / 2
		got := table.Frame.Col("SE-" + param).Elem(row).Float()
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("row %d %s: got %v want %v", row, param, got, want)
		}
	}
	// backup series stay text, missing cells NA
	if !table.Frame.Col("SE_b-PM10").Elem(0).IsNA() {
		t.Error("missing backup cell must be NA")
	}
	if got := table.Frame.Col("SE_b-O3").Elem(1).String(); got != "2.4" {
		t.Errorf("backup value = %q", got)
	}
	// other stations never leak in
	for _, name := range table.Frame.Names() {
		if strings.HasPrefix(name, "NE") {
			t.Errorf("foreign column %s", name)
		}
	}
}

func TestExtractCoercion(t *testing.T) {
	p, w := newTestProcessor()
	long, err := Melt(textFrame([][]string{
		{"date", "parameter", "SE"},
		{"2021-01-01", "PM10", "<LD"},
		{"2021-01-02", "PM10", ""},
		{"2021-01-03", "PM10", "12"},
	}))
	if err != nil {
		t.Fatal(err)
	}

	table, err := p.Extract(long, "Guadalupe, La Pastora")
	if err != nil {
		t.Fatal(err)
	}
	values := table.Frame.Col("SE-PM10").Float()
	if !math.IsNaN(values[0]) || !math.IsNaN(values[1]) || values[2] != 12 {
		t.Errorf("values = %v", values)
	}
	if table.Coerced != 1 {
		t.Errorf("coerced = %d, want 1 (blank cells are not coercion failures)", table.Coerced)
	}
	if len(w.msgs) != 1 {
		t.Errorf("warnings = %v", w.msgs)
	}
}

func TestExtractErrors(t *testing.T) {
	p, _ := newTestProcessor()
	long, err := Melt(textFrame([][]string{
		{"date", "parameter", "SE"},
		{"2021-01-01", "PM10", "1"},
		{"2021-01-01", "PM10", "2"},
	}))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := p.Extract(long, "Gotham"); !errors.Is(err, ErrStationNotFound) {
		t.Errorf("err = %v, want ErrStationNotFound", err)
	}
	if _, err := p.Extract(long, "Guadalupe, La Pastora"); !errors.Is(err, ErrDuplicateEntry) {
		t.Errorf("err = %v, want ErrDuplicateEntry", err)
	}
}

func TestExtractNoRows(t *testing.T) {
	p, _ := newTestProcessor()
	long, err := Melt(textFrame([][]string{
		{"date", "parameter", "NE"},
		{"2021-01-01", "PM10", "1"},
	}))
	if err != nil {
		t.Fatal(err)
	}
	table, err := p.Extract(long, "Guadalupe, La Pastora")
	if err != nil {
		t.Fatal(err)
	}
	if table.Frame.Nrow() != 0 || len(table.NumericColumns()) != 0 {
		t.Errorf("expected empty table, got\n%v", table.Frame)
	}
}
