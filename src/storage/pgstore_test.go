package storage

import (
	"testing"
	"time"

	"AirQuality/src/config"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

func TestObservations(t *testing.T) {
	long := dataframe.New(
		series.New([]string{"2021-01-01 00:00:00", "2021-01-01 01:00:00", "2021-01-01 02:00:00"}, series.String, "date"),
		series.New([]string{"PM10", "PM10", "PM10"}, series.String, "parameter"),
		series.New([]string{"SE", "SE", "SE_b"}, series.String, "station"),
		series.New([]string{"12.5", "NaN", "<LD"}, series.String, "value"),
	)
	rows, err := Observations(long, config.Cont)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0].Value == nil || *rows[0].Value != 12.5 || rows[0].Raw != "12.5" {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if !rows[0].TS.Equal(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)) || rows[0].Family != config.Cont {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].Value != nil || rows[1].Raw != "" {
		t.Errorf("missing cell = %+v", rows[1])
	}
	if rows[2].Value != nil || rows[2].Raw != "<LD" || rows[2].Station != "SE_b" {
		t.Errorf("text cell = %+v", rows[2])
	}

	if _, err := Observations(long.Drop("station"), config.Cont); err == nil {
		t.Error("expected missing column error")
	}
}
