package processor

import (
	"fmt"

	"AirQuality/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Merge inner-joins a and b on the date column. Non-key columns present in
// both inputs are suffixed "_x" (from a) and "_y" (from b). Dates repeated
// in either input multiply rows; callers that need one row per date must
// aggregate first.
//
// The output holds date, then a's columns, then b's. Rows follow a's order,
// and for each a row the matching b rows in b's order. The join indexes b by
// date, so its cost grows with the input and output sizes.
func Merge(a, b dataframe.DataFrame) (dataframe.DataFrame, error) {
	for _, df := range []dataframe.DataFrame{a, b} {
		if df.Err != nil {
			return dataframe.DataFrame{}, df.Err
		}
		if !utils.HasColumn(df, ColDate) {
			return dataframe.DataFrame{}, fmt.Errorf("merge: %w %q", ErrMissingColumn, ColDate)
		}
	}

	for _, name := range a.Names() {
		if name == ColDate || !utils.HasColumn(b, name) {
			continue
		}
		a = a.Rename(name+"_x", name)
		b = b.Rename(name+"_y", name)
	}

	index := make(map[string][]int)
	for j, d := range b.Col(ColDate).Records() {
		index[d] = append(index[d], j)
	}
	var left, right []int
	for i, d := range a.Col(ColDate).Records() {
		for _, j := range index[d] {
			left = append(left, i)
			right = append(right, j)
		}
	}

	cols := []series.Series{pick(a.Col(ColDate), left)}
	for _, side := range []struct {
		df   dataframe.DataFrame
		rows []int
	}{{a, left}, {b, right}} {
		for _, name := range side.df.Names() {
			if name != ColDate {
				cols = append(cols, pick(side.df.Col(name), side.rows))
			}
		}
	}

	out := dataframe.New(cols...)
	if out.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("merge: %w", out.Err)
	}
	return out, nil
}

// pick returns the rows of s at idx, keeping name and type.
func pick(s series.Series, idx []int) series.Series {
	if len(idx) == 0 {
		return series.New([]string{}, s.Type(), s.Name)
	}
	return s.Subset(idx)
}
