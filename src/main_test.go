package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"AirQuality/src/config"
)

func init() {
	loadConfig = config.Load
}

const (
	testMeteo = "date,parameter,SE,CE\n" +
		"2021-01-01 00:00:00,TOUT,20,18\n" +
		"2021-01-01 12:00:00,TOUT,22,\n" +
		"2021-01-02 00:00:00,TOUT,24,19\n" +
		"2021-01-03 00:00:00,TOUT,26,21\n"
	testCont = "date,parameter,SE,SE_b\n" +
		"2021-01-01 00:00:00,PM10,10,11\n" +
		"2021-01-02 00:00:00,PM10,20,\n" +
		"2021-01-03 00:00:00,PM10,30,\n" +
		"2021-01-03 00:00:00,O3,x,\n"
)

// setup writes a config folder and datasets under a temp dir and returns
// the config path and the output dir.
func setup(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	outDir := filepath.Join(dir, "out")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		t.Fatal(err)
	}
	for name, content := range map[string]string{"meteo.csv": testMeteo, "cont.csv": testCont} {
		if err := os.WriteFile(filepath.Join(dataDir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	cfg, _ := json.Marshal(map[string]interface{}{
		"data_dir":     dataDir,
		"meteo_file":   "meteo.csv",
		"cont_file":    "cont.csv",
		"output_dir":   outDir,
		"log_name":     filepath.Join(dir, "app.log"),
		"default_days": 1,
	})
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, cfg, 0644); err != nil {
		t.Fatal(err)
	}
	return path, outDir
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPrep(t *testing.T) {
	cfgPath, outDir := setup(t)

	out, err := run(t, "", "prep", "--config", cfgPath, "--station", "Guadalupe, La Pastora")
	if err != nil {
		t.Fatalf("prep: %v\n%s", err, out)
	}
	for _, name := range []string{"meteo_long.csv", "cont_long.csv", "SE_daily.csv", "SE-TOUT.png", "SE-PM10.png"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
	long, _ := os.ReadFile(filepath.Join(outDir, "cont_long.csv"))
	if !strings.HasPrefix(string(long), "date,parameter,station,value\n") {
		t.Errorf("cont_long header: %q", long)
	}

	// second run declines the overwrite prompts
	before, _ := os.ReadFile(filepath.Join(outDir, "meteo_long.csv"))
	out, err = run(t, "n\nn\n", "prep", "--config", cfgPath)
	if err != nil {
		t.Fatalf("prep again: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Overwrite?") {
		t.Errorf("no prompt in %q", out)
	}
	after, _ := os.ReadFile(filepath.Join(outDir, "meteo_long.csv"))
	if !bytes.Equal(before, after) {
		t.Error("declined file was rewritten")
	}
}

func TestDiagnose(t *testing.T) {
	cfgPath, outDir := setup(t)
	out, err := run(t, "", "diagnose", "--config", cfgPath, "--save")
	if err != nil {
		t.Fatalf("diagnose: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Monterrey, Obispado") || !strings.Contains(out, "MISSING %") {
		t.Errorf("output:\n%s", out)
	}
	// CE TOUT: one of four dates empty
	found := false
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "Monterrey, Obispado") && strings.Contains(line, "TOUT") {
			found = strings.HasSuffix(strings.TrimSpace(line), "25.0")
		}
	}
	if !found {
		t.Errorf("CE TOUT should be 25.0%% missing:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(outDir, "missing_values.csv")); err != nil {
		t.Error(err)
	}
}

func TestMetricsCommand(t *testing.T) {
	cfgPath, _ := setup(t)
	out, err := run(t, "", "metrics", "--config", cfgPath, "--family", "cont")
	if err != nil {
		t.Fatalf("metrics: %v\n%s", err, out)
	}
	// default_days=1: A = Jan 3 (30), B = Jan 2 (20)
	if !strings.Contains(out, "PM10 (µg/m3)") || !strings.Contains(out, "30.00") || !strings.Contains(out, "+10.00") {
		t.Errorf("output:\n%s", out)
	}
	// O3 only has a non-numeric value
	if !strings.Contains(out, "n/a") {
		t.Errorf("O3 should be n/a:\n%s", out)
	}

	if _, err := run(t, "", "metrics", "--config", cfgPath, "--family", "dust"); err == nil {
		t.Error("expected invalid family error")
	}
	if _, err := run(t, "", "metrics", "--config", cfgPath, "--days", "0"); err == nil {
		t.Error("expected invalid window error")
	}
}
