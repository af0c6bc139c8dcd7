package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

// TimeLayout is the canonical text layout of the date column.
const TimeLayout = "2006-01-02 15:04:05"

// accepted input layouts, most common first
var timeLayouts = []string{
	TimeLayout,
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
}

func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// HasColumn reports whether df has a column called name
func HasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// ParseTime parses s with the first matching accepted layout.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// ParseTimeElem is ParseTime for a series element; NA yields the zero time.
func ParseTimeElem(e series.Element) (time.Time, error) {
	if e.IsNA() || e.String() == "" {
		return time.Time{}, nil
	}
	return ParseTime(e.String())
}

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string { return t.Format(TimeLayout) }

// ToFloat coerces a raw cell to a number. ok is false for NA and for text
// that does not parse; those cells are treated as missing.
func ToFloat(e series.Element) (v float64, ok bool) {
	if e.IsNA() {
		return math.NaN(), false
	}
	switch e.Type() {
	case series.Float, series.Int:
		f := e.Float()
		return f, !math.IsNaN(f)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(e.String()), 64)
	if err != nil || math.IsNaN(f) {
		return math.NaN(), false
	}
	return f, true
}

// IsBlank reports whether e carries no value at all (NA or empty text).
// Blank cells are missing, not coercion failures.
func IsBlank(e series.Element) bool {
	return e.IsNA() || strings.TrimSpace(e.String()) == ""
}

// SaveToExcel writes df to a single-sheet workbook.
func SaveToExcel(df dataframe.DataFrame, filePath string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Sheet1"

	colNames := df.Names()
	for i, name := range colNames {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, name)
	}

	for colIdx, colName := range colNames {
		col := df.Col(colName)
		for rowIdx := 0; rowIdx < df.Nrow(); rowIdx++ {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			e := col.Elem(rowIdx)
			if e.IsNA() {
				continue
			}
			if col.Type() == series.Float {
				f.SetCellValue(sheetName, cell, e.Float())
			} else {
				f.SetCellValue(sheetName, cell, e.String())
			}
		}
	}

	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("save excel file: %w", err)
	}
	return nil
}
