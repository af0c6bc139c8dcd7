// reader.go
package file

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// raw cells treated as NA when loading
var nanValues = []string{"", "NA", "NaN", "nan", "<nil>"}

// ReadTable loads a dataset by extension: .csv or .xlsx (first sheet).
// Every column is loaded as text; numeric coercion happens downstream.
func ReadTable(filePath, encoding string) (dataframe.DataFrame, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".csv", ".txt":
		f, err := os.Open(filePath)
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("open csv file: %w", err)
		}
		defer f.Close()
		return ReadCSV(f, encoding)
	case ".xlsx":
		return ReadXLSX(filePath, "")
	}
	return dataframe.DataFrame{}, fmt.Errorf("unsupported dataset format %q", filepath.Ext(filePath))
}

// ReadCSV reads a CSV stream into a text-typed dataframe, decoding legacy
// single-byte encodings first. A file holding only the header row yields a
// zero-row frame with those columns.
func ReadCSV(r io.Reader, encoding string) (dataframe.DataFrame, error) {
	decoded, err := decode(r, encoding)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	records, err := csv.NewReader(decoded).ReadAll()
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 1 {
		return trimHeaders(headerFrame(records[0])), nil
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nanValues),
	)
	if df.Err != nil {
		return df, fmt.Errorf("parse csv: %w", df.Err)
	}
	return trimHeaders(df), nil
}

func decode(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(encoding) {
	case "", "utf-8", "utf8":
		// strip a UTF-8 BOM so the first header stays "date"
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		return bytes.NewReader(bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))), nil
	case "latin1", "iso-8859-1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	case "windows-1252", "cp1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	}
	return nil, fmt.Errorf("unsupported encoding %q", encoding)
}

func headerFrame(headers []string) dataframe.DataFrame {
	cols := make([]series.Series, len(headers))
	for i, name := range headers {
		cols[i] = series.New([]string{}, series.String, name)
	}
	return dataframe.New(cols...)
}

// trimHeaders removes padding around column names ("SE " -> "SE").
func trimHeaders(df dataframe.DataFrame) dataframe.DataFrame {
	for _, name := range df.Names() {
		if trimmed := strings.TrimSpace(name); trimmed != name {
			df = df.Rename(trimmed, name)
		}
	}
	return df
}

// ReadXLSX loads sheetName (or the first sheet when empty) of an xlsx file.
func ReadXLSX(filePath, sheetName string) (dataframe.DataFrame, error) {
	xlFile, err := xlsx.OpenFile(filePath)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("open xlsx file: %w", err)
	}
	return sheetFrame(xlFile, sheetName)
}

// ReadXLSXBytes is ReadXLSX for in-memory content (mail attachments).
func ReadXLSXBytes(data []byte, sheetName string) (dataframe.DataFrame, error) {
	xlFile, err := xlsx.OpenBinary(data)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("open xlsx content: %w", err)
	}
	return sheetFrame(xlFile, sheetName)
}

func sheetFrame(xlFile *xlsx.File, sheetName string) (dataframe.DataFrame, error) {
	if len(xlFile.Sheets) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("workbook has no sheets")
	}
	sheet := xlFile.Sheets[0]
	if sheetName != "" {
		s, ok := xlFile.Sheet[sheetName]
		if !ok {
			return dataframe.DataFrame{}, fmt.Errorf("sheet %q not found", sheetName)
		}
		sheet = s
	}
	return convertSheetToDataFrame(sheet)
}

// convertSheetToDataFrame turns a sheet whose first row is the header into
// a text-typed dataframe.
func convertSheetToDataFrame(sheet *xlsx.Sheet) (dataframe.DataFrame, error) {
	if len(sheet.Rows) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("sheet %q is empty", sheet.Name)
	}

	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, strings.TrimSpace(cell.String()))
	}

	columns := make([][]string, len(headers))
	for i := range columns {
		columns[i] = make([]string, 0, len(sheet.Rows)-1)
	}

	for _, row := range sheet.Rows[1:] {
		for i := range headers {
			value := "NaN"
			if i < len(row.Cells) {
				if v := strings.TrimSpace(row.Cells[i].String()); v != "" {
					value = v
				}
			}
			columns[i] = append(columns[i], value)
		}
	}

	seriesList := make([]series.Series, len(headers))
	for i, colName := range headers {
		seriesList[i] = series.New(columns[i], series.String, colName)
	}

	df := dataframe.New(seriesList...)
	if df.Err != nil {
		return df, fmt.Errorf("build dataframe: %w", df.Err)
	}
	return df, nil
}
