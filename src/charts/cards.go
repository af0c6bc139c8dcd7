package charts

import (
	"fmt"
	"math"

	"AirQuality/src/config"
	"AirQuality/src/processor"
	"AirQuality/src/utils"

	"github.com/go-gota/gota/dataframe"
)

// Card is one metric tile of the dashboard. Mean and Diff are nil when the
// window had no valid data.
type Card struct {
	Parameter string   `json:"parameter"`
	Unit      string   `json:"unit"`
	Mean      *float64 `json:"mean"`
	Diff      *float64 `json:"diff"`
}

// Label is the tile caption, e.g. "PM10 (µg/m³)".
func (c Card) Label() string {
	if c.Unit == "" {
		return c.Parameter
	}
	return fmt.Sprintf("%s (%s)", c.Parameter, c.Unit)
}

// MetricCards turns a metric summary (parameter, mean, diff) into cards.
func MetricCards(summary dataframe.DataFrame, reg *config.Registry) ([]Card, error) {
	for _, name := range []string{processor.ColParameter, processor.ColMean, processor.ColDiff} {
		if !utils.HasColumn(summary, name) {
			return nil, fmt.Errorf("%w: %s", processor.ErrMissingColumn, name)
		}
	}

	params := summary.Col(processor.ColParameter).Records()
	means := summary.Col(processor.ColMean).Float()
	diffs := summary.Col(processor.ColDiff).Float()
	cards := make([]Card, len(params))
	for i, param := range params {
		cards[i] = Card{
			Parameter: param,
			Unit:      reg.Unit(param),
			Mean:      finite(means[i]),
			Diff:      finite(diffs[i]),
		}
	}
	return cards, nil
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
