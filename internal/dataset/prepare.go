// Package dataset reshapes a clean table into a supervised learning frame.
package dataset

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"weather-pipeline/internal/weather"
)

// lagWindow is the number of forward-shifted temperature features per row.
const lagWindow = 9

// ErrInsufficientData is returned when shifting leaves no trainable rows,
// e.g. fewer than lagWindow+1 snapshots per city.
var ErrInsufficientData = errors.New("insufficient data for training after preprocessing")

// Frame is the prepared feature matrix and target vector.
type Frame struct {
	X       *mat.Dense
	Y       []float64
	Columns []string
}

// Rows returns the number of samples in the frame.
func (f *Frame) Rows() int {
	r, _ := f.X.Dims()
	return r
}

// Prepare reads the named table and builds the training frame.
//
// Per city, rows are sorted by date ascending; the target of row i is the
// temperature of row i-1, and the nine lag features are the temperatures of
// rows i+1..i+9. Rows whose shift window is incomplete (the head row and the
// nine tail rows of each city's series) are dropped, so a city with n
// snapshots contributes exactly n-10 samples. The row's own temperature and
// pressure stay in the frame; city identity is one-hot encoded; the date
// column is dropped.
//
// The target/feature shift directions intentionally mirror the historical
// behaviour of this pipeline; see DESIGN.md before changing them.
func Prepare(tables weather.TableStore, name string) (*Frame, error) {
	rows, err := tables.ReadTable(name)
	if err != nil {
		return nil, fmt.Errorf("preparing data: %w", err)
	}

	byCity := make(map[string][]weather.FlatRecord)
	for _, r := range rows {
		byCity[r.City] = append(byCity[r.City], r)
	}

	cities := make([]string, 0, len(byCity))
	for city := range byCity {
		cities = append(cities, city)
	}
	sort.Strings(cities)

	columns := []string{"temperature", "pressure"}
	for i := 1; i <= lagWindow; i++ {
		columns = append(columns, fmt.Sprintf("temp_m-%d", i))
	}
	for _, city := range cities {
		columns = append(columns, "city_"+city)
	}

	var (
		features [][]float64
		targets  []float64
	)

	for cityIdx, city := range cities {
		series := byCity[city]
		sort.SliceStable(series, func(i, j int) bool {
			return series[i].Date < series[j].Date
		})

		// Row 0 has no target, the last lagWindow rows have no complete
		// feature window.
		for i := 1; i+lagWindow < len(series); i++ {
			row := make([]float64, len(columns))
			row[0] = series[i].Temperature
			row[1] = series[i].Pressure
			for j := 1; j <= lagWindow; j++ {
				row[1+j] = series[i+j].Temperature
			}
			row[2+lagWindow+cityIdx] = 1

			features = append(features, row)
			targets = append(targets, series[i-1].Temperature)
		}
	}

	if len(features) == 0 {
		return nil, ErrInsufficientData
	}

	x := mat.NewDense(len(features), len(columns), nil)
	for i, row := range features {
		x.SetRow(i, row)
	}

	return &Frame{X: x, Y: targets, Columns: columns}, nil
}
