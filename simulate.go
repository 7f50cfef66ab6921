package simulad

import (
	"fmt"
	"time"

	"github.com/simulad/simulad/timetable"
	"gonum.org/v1/gonum/mat"
)

// Adjustments maps a variable name to a signed delta applied to that
// variable's most recent value before simulation. Deltas are expressed in the
// table's post-conversion units. Keys not present in the fitted model's
// variables are ignored without error.
type Adjustments map[string]float64

// Simulate applies the adjustments to the most recent observations and
// forecasts all fitted variables for steps hourly periods. The forecast
// timestamps start one hour after the table's last timestamp. A steps of 0
// yields a zero-row table carrying the model's column set.
func Simulate(tbl *timetable.Table, fitted Fitted, adjustments Adjustments, steps int) (*timetable.Table, error) {
	if steps < 0 {
		return nil, fmt.Errorf("got %d forecast steps, must be non-negative", steps)
	}
	if steps == 0 {
		return timetable.Empty(fitted.Variables()), nil
	}

	conv := ConvertTemperatures(tbl)
	if conv.Len() == 0 {
		return nil, fmt.Errorf("got 0 observations to seed the forecast, %w", ErrInsufficientData)
	}
	last := conv.T[conv.Len()-1]

	switch m := fitted.(type) {
	case *LevelModel:
		return simulateLevel(conv, m, adjustments, steps, last)
	case *DifferencedModel:
		return simulateDifferenced(conv, m, adjustments, steps, last)
	default:
		return nil, fmt.Errorf("unsupported fitted model %T", fitted)
	}
}

// simulateLevel perturbs the last raw observation and forecasts levels
// directly.
func simulateLevel(conv *timetable.Table, m *LevelModel, adjustments Adjustments, steps int, last time.Time) (*timetable.Table, error) {
	lag := m.Lag()
	if conv.Len() < lag {
		return nil, fmt.Errorf("got %d observations for lag order %d, %w", conv.Len(), lag, ErrInsufficientData)
	}

	window := conv.Tail(lag).Matrix()
	for name, delta := range adjustments {
		if j, exists := conv.ColumnIndex(name); exists {
			window.Set(lag-1, j, window.At(lag-1, j)+delta)
		}
	}

	fcst, err := m.model().Forecast(window, steps)
	if err != nil {
		return nil, fmt.Errorf("unable to forecast levels, %w", err)
	}

	return forecastTable(last, m.Variables(), fcst, nil), nil
}

// simulateDifferenced recomputes the differenced series, converts the level
// adjustments to an equivalent one-step difference on the last row, forecasts
// differences, and reconstructs levels by cumulative summation from the
// last-level snapshot.
func simulateDifferenced(conv *timetable.Table, m *DifferencedModel, adjustments Adjustments, steps int, last time.Time) (*timetable.Table, error) {
	diff, err := conv.Diff()
	if err != nil {
		return nil, fmt.Errorf("got %d observations, %w", conv.Len(), ErrInsufficientData)
	}

	lag := m.Lag()
	if diff.Len() < lag {
		return nil, fmt.Errorf("got %d differenced observations for lag order %d, %w", diff.Len(), lag, ErrInsufficientData)
	}

	window := diff.Tail(lag).Matrix()
	// a level delta on the last observation is the same delta in difference
	// space, applied only to variables the snapshot actually stores
	for name, delta := range adjustments {
		if _, stored := m.LastLevel.Value(name); !stored {
			continue
		}
		if j, exists := diff.ColumnIndex(name); exists {
			window.Set(lag-1, j, window.At(lag-1, j)+delta)
		}
	}

	fcst, err := m.model().Forecast(window, steps)
	if err != nil {
		return nil, fmt.Errorf("unable to forecast differences, %w", err)
	}

	return forecastTable(last, m.Variables(), fcst, &m.LastLevel), nil
}

// forecastTable assembles the hourly forecast table. When base is non-nil the
// forecast rows are treated as differences and accumulated onto the base
// levels.
func forecastTable(last time.Time, columns []string, fcst *mat.Dense, base *timetable.Row) *timetable.Table {
	rows, cols := fcst.Dims()

	data := make([][]float64, rows)
	level := make([]float64, cols)
	if base != nil {
		for j, col := range columns {
			if val, exists := base.Value(col); exists {
				level[j] = val
			}
		}
	}

	for i := 0; i < rows; i++ {
		row := make([]float64, cols)
		for j := 0; j < cols; j++ {
			if base != nil {
				level[j] += fcst.At(i, j)
				row[j] = level[j]
			} else {
				row[j] = fcst.At(i, j)
			}
		}
		data[i] = row
	}

	colsCopy := make([]string, len(columns))
	copy(colsCopy, columns)
	return &timetable.Table{
		T:       timetable.HourlyRange(last, rows),
		Columns: colsCopy,
		Data:    data,
	}
}
