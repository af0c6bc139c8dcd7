package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"AirQuality/src/config"
)

func TestLoggerWritesAndFansOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Close()

	sub := logger.Subscribe()
	logger.Warning("station SE has 3 coerced values")

	select {
	case entry := <-sub:
		if !strings.Contains(entry, "WARNING: station SE has 3 coerced values") {
			t.Errorf("entry = %q", entry)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber got nothing")
	}

	logger.Unsubscribe(sub)
	if _, ok := <-sub; ok {
		t.Error("channel still open after Unsubscribe")
	}
	logger.Info("after unsubscribe")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(data), "\n"); got != 2 {
		t.Errorf("lines = %d\n%s", got, data)
	}
}

func TestLoggerWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWriter(&buf)
	logger.Error("boom")
	if !strings.HasSuffix(buf.String(), "ERROR: boom\n") {
		t.Errorf("got %q", buf.String())
	}
	// no file, nothing to rotate
	if err := logger.CheckRotate(&config.Config{LogMaxSize: "1"}); err != nil {
		t.Error(err)
	}
}

func TestCheckRotate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	logger, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Close()

	logger.Info(strings.Repeat("x", 64))
	if err := logger.CheckRotate(&config.Config{LogMaxSize: "1 * 1024"}); err != nil {
		t.Fatal(err)
	}
	if matches, _ := filepath.Glob(filepath.Join(dir, "app.*.log")); len(matches) != 0 {
		t.Fatalf("rotated below the limit: %v", matches)
	}

	if err := logger.CheckRotate(&config.Config{LogMaxSize: "8 * 4"}); err != nil {
		t.Fatal(err)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "app.*.log"))
	if len(matches) != 1 {
		t.Fatalf("rotated files = %v", matches)
	}
	logger.Info("fresh")
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "fresh") || strings.Contains(string(data), "xxxx") {
		t.Errorf("new log = %q", data)
	}
}

func TestRotateFailureKeepsWriting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Close()

	logger.Info(strings.Repeat("x", 64))
	// the rename source is gone, so rotation fails
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := logger.CheckRotate(&config.Config{LogMaxSize: "8"}); err == nil {
		t.Fatal("expected rotation error")
	}
	if _, err := logger.file.Write([]byte{}); err != nil {
		t.Errorf("log file unusable after failed rotation: %v", err)
	}

	if err := logger.Reopen(path); err != nil {
		t.Fatal(err)
	}
	logger.Info("after reopen")
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "after reopen") {
		t.Errorf("log = %q", data)
	}
}

func TestEval(t *testing.T) {
	cases := map[string]int64{
		"10 * 1024 * 1024": 10 << 20,
		"512":              512,
		"":                 0,
		"ten * 2":          0,
	}
	for expr, want := range cases {
		if got := eval(expr); got != want {
			t.Errorf("eval(%q) = %d, want %d", expr, got, want)
		}
	}
}
