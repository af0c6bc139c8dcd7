package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"AirQuality/src/utils"

	"github.com/go-gota/gota/dataframe"
)

// Writer saves processed tables under Dir. When the target file already
// exists the user is asked on Out and the answer is read from In; only
// "y"/"yes" overwrites.
type Writer struct {
	Dir string
	Out io.Writer
	Log *Logger

	in *bufio.Reader
}

// NewWriter builds a writer prompting on out and reading answers from in.
func NewWriter(dir string, in io.Reader, out io.Writer, log *Logger) *Writer {
	return &Writer{Dir: dir, Out: out, Log: log, in: bufio.NewReader(in)}
}

// Save writes df as name.<format> (format "csv" or "xlsx"). It returns the
// target path and whether the file was written.
func (w *Writer) Save(df dataframe.DataFrame, name, format string) (string, bool, error) {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	if format != "csv" && format != "xlsx" {
		return "", false, fmt.Errorf("unsupported output format %q", format)
	}
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return "", false, fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(w.Dir, name+"."+format)
	if _, err := os.Stat(path); err == nil {
		ok, err := w.confirm(fmt.Sprintf("%s already exists. Overwrite? (y/n) ", path))
		if err != nil {
			return path, false, err
		}
		if !ok {
			w.info(fmt.Sprintf("kept existing %s", path))
			return path, false, nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return path, false, err
	}

	var err error
	switch format {
	case "csv":
		err = writeCSV(df, path)
	case "xlsx":
		err = utils.SaveToExcel(df, path)
	}
	if err != nil {
		return path, false, err
	}
	w.info(fmt.Sprintf("saved %d rows to %s", df.Nrow(), path))
	return path, true, nil
}

func (w *Writer) confirm(question string) (bool, error) {
	if w.in == nil {
		return false, errors.New("no input to confirm overwrite")
	}
	if w.Out != nil {
		fmt.Fprint(w.Out, question)
	}
	answer, err := w.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && answer != "") {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func (w *Writer) info(msg string) {
	if w.Log != nil {
		w.Log.Info(msg)
	}
}

func writeCSV(df dataframe.DataFrame, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	if err := df.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("write csv: %w", err)
	}
	return f.Close()
}
