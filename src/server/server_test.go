package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"AirQuality/src/config"
	"AirQuality/src/processor"
	"AirQuality/src/storage"
)

const (
	meteoCSV = "date,parameter,SE,CE\n" +
		"2021-01-01 00:00:00,TOUT,20,18\n" +
		"2021-01-02 00:00:00,TOUT,22,\n"
	contCSV = "date,parameter,SE,SE_b,CE\n" +
		"2021-01-01 00:00:00,PM10,10,11,30\n" +
		"2021-01-02 00:00:00,PM10,20,21,\n" +
		"2021-01-03 00:00:00,PM10,30,,40\n" +
		"2021-01-04 00:00:00,PM10,40,,50\n"
)

func newTestServer(t *testing.T, load bool) (*Server, *storage.Logger) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = dir
	cfg.MeteoFile = "meteo.csv"
	cfg.ContFile = "cont.csv"
	if err := os.WriteFile(filepath.Join(dir, "meteo.csv"), []byte(meteoCSV), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "cont.csv"), []byte(contCSV), 0644); err != nil {
		t.Fatal(err)
	}

	logger := storage.NewLoggerWriter(&bytes.Buffer{})
	var data processor.Dataset
	if load {
		if err := data.Reload(cfg.MeteoPath(), cfg.ContPath(), cfg.Encoding); err != nil {
			t.Fatal(err)
		}
	}
	proc := processor.NewDataProcessor(config.MustRegistry(), logger)
	return New(cfg, proc, &data, logger), logger
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	s.Engine().ServeHTTP(rec, req)
	return rec
}

func TestHealthAndNotLoaded(t *testing.T) {
	s, _ := newTestServer(t, false)
	if rec := get(t, s, "/healthz"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"loaded":false`) {
		t.Errorf("healthz = %d %s", rec.Code, rec.Body)
	}
	if rec := get(t, s, "/api/missing"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("missing before load = %d", rec.Code)
	}
}

func TestStationTable(t *testing.T) {
	s, _ := newTestServer(t, true)
	rec := get(t, s, "/api/stations/"+url.PathEscape("Guadalupe, La Pastora")+"/table?family=cont")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rec.Code, rec.Body)
	}
	var body struct {
		Code    string                   `json:"code"`
		Columns []string                 `json:"columns"`
		Rows    []map[string]interface{} `json:"rows"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Code != "SE" || len(body.Rows) != 4 {
		t.Errorf("body = %+v", body)
	}
	if strings.Join(body.Columns, ",") != "date,SE-PM10,SE_b-PM10" {
		t.Errorf("columns = %v", body.Columns)
	}
	if body.Rows[0]["SE-PM10"] != 10.0 {
		t.Errorf("first row = %v", body.Rows[0])
	}

	cases := map[string]int{
		"/api/stations/Atlantis/table":                                       http.StatusNotFound,
		"/api/stations/Guadalupe%2C%20La%20Pastora/table?family=dust":        http.StatusBadRequest,
		"/api/stations/Guadalupe%2C%20La%20Pastora/table?freq=hourly":        http.StatusBadRequest,
		"/api/stations/Guadalupe%2C%20La%20Pastora/table?freq=W&family=cont": http.StatusOK,
		"/api/stations/SE/table":                                             http.StatusOK,
		"/api/stations/XX/table":                                             http.StatusNotFound,
	}
	for target, want := range cases {
		if rec := get(t, s, target); rec.Code != want {
			t.Errorf("%s = %d, want %d (%s)", target, rec.Code, want, rec.Body)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, true)
	rec := get(t, s, "/api/metrics?family=cont&days=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rec.Code, rec.Body)
	}
	var body struct {
		Data []struct {
			Parameter string   `json:"parameter"`
			Mean      *float64 `json:"mean"`
			Diff      *float64 `json:"diff"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	// A = Jan 3..4: 30 40 40 50, B = Jan 1..2: 10 11 30 20 21
	if len(body.Data) != 1 || body.Data[0].Parameter != "PM10" || body.Data[0].Mean == nil || *body.Data[0].Mean != 40 {
		t.Fatalf("data = %s", rec.Body)
	}
	if got := *body.Data[0].Diff; math.Abs(got-(40-92.0/5)) > 1e-9 {
		t.Errorf("diff = %v", got)
	}

	for _, target := range []string{"/api/metrics?days=0", "/api/metrics?days=x", "/api/metrics?family=dust"} {
		if rec := get(t, s, target); rec.Code != http.StatusBadRequest {
			t.Errorf("%s = %d", target, rec.Code)
		}
	}
}

func TestMissingEndpoint(t *testing.T) {
	s, _ := newTestServer(t, true)
	rec := get(t, s, "/api/missing")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rec.Code, rec.Body)
	}
	var body struct {
		Rows []struct {
			Station   string  `json:"station"`
			Parameter string  `json:"parameter"`
			Missing   float64 `json:"missing_values"`
		} `json:"rows"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, r := range body.Rows {
		if r.Station == "Monterrey, Obispado" && r.Parameter == "TOUT" {
			found = true
			if r.Missing != 50 {
				t.Errorf("CE TOUT missing = %v", r.Missing)
			}
		}
	}
	if !found {
		t.Error("no CE TOUT row")
	}
}

func TestChartPages(t *testing.T) {
	s, _ := newTestServer(t, true)
	station := url.QueryEscape("Guadalupe, La Pastora")
	for _, target := range []string{
		"/charts/timeseries?station=" + station + "&param=PM10",
		"/charts/timeseries?station=" + station + "&param=TOUT&freq=W",
		"/charts/boxplot?station=" + station + "&param=PM10",
		"/charts/timeseries?station=CE&param=TOUT",
		"/charts/missing",
		"/about",
	} {
		rec := get(t, s, target)
		if rec.Code != http.StatusOK {
			t.Errorf("%s = %d %s", target, rec.Code, rec.Body)
			continue
		}
		if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") {
			t.Errorf("%s content type %q", target, rec.Header().Get("Content-Type"))
		}
	}

	if rec := get(t, s, "/charts/timeseries?station="+station+"&param=NOX"); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown parameter = %d", rec.Code)
	}
	if rec := get(t, s, "/charts/boxplot?station="+station+"&param=O3"); rec.Code != http.StatusNotFound {
		t.Errorf("absent series = %d", rec.Code)
	}
	if rec := get(t, s, "/about"); !strings.Contains(rec.Body.String(), "<h1") {
		t.Error("about page not rendered from markdown")
	}
}

func TestLogStream(t *testing.T) {
	s, logger := newTestServer(t, false)
	ts := httptest.NewServer(s.Engine())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/logs", nil)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				logger.Info("dataset reloaded")
			}
		}
	}()

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(line, "INFO: dataset reloaded") {
		t.Errorf("line = %q", line)
	}
}
