// Package univariate provides two independent single-series forecasting
// routines used for single-variable or comparison forecasts: an
// autoregressive-integrated model and an additive trend/seasonality model.
// Neither shares state with the multivariate simulation core.
package univariate

import (
	"errors"
	"fmt"
	"math"

	"github.com/simulad/simulad/models"
	"github.com/simulad/simulad/timetable"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrInsufficientData = errors.New("insufficient observations for forecasting")
	ErrInvalidSteps     = errors.New("forecast steps must be non-negative")
)

// ForecastAR fits an autoregressive model on the first differences of the
// table's first value column and forecasts steps hourly periods ahead,
// reconstructing levels by cumulative summation. Missing values are dropped
// before fitting.
func ForecastAR(tbl *timetable.Table, steps int) (*timetable.Table, error) {
	if steps < 0 {
		return nil, fmt.Errorf("got %d, %w", steps, ErrInvalidSteps)
	}

	name := tbl.Columns[0]
	raw, err := tbl.Column(name)
	if err != nil {
		return nil, err
	}

	y := make([]float64, 0, len(raw))
	for _, v := range raw {
		if math.IsNaN(v) {
			continue
		}
		y = append(y, v)
	}
	if len(y) < 2 {
		return nil, fmt.Errorf("got %d non-missing observations, need at least 2, %w", len(y), ErrInsufficientData)
	}

	if steps == 0 {
		return timetable.Empty([]string{name}), nil
	}

	d := make([]float64, len(y)-1)
	for i := range d {
		d[i] = y[i+1] - y[i]
	}

	phi, c, err := fitAR1(d)
	if err != nil {
		return nil, fmt.Errorf("unable to fit autoregressive model, %w", err)
	}

	data := make([][]float64, steps)
	level := y[len(y)-1]
	dPrev := d[len(d)-1]
	for i := 0; i < steps; i++ {
		dNext := c + phi*dPrev
		level += dNext
		dPrev = dNext
		data[i] = []float64{level}
	}

	last := tbl.T[tbl.Len()-1]
	return &timetable.Table{
		T:       timetable.HourlyRange(last, steps),
		Columns: []string{name},
		Data:    data,
	}, nil
}

// fitAR1 estimates d_t = c + phi*d_{t-1}. Degenerate difference series,
// including the near-constant designs OLS rejects, fall back to a pure drift
// model with phi of 0.
func fitAR1(d []float64) (phi, c float64, err error) {
	if len(d) < 3 {
		return 0.0, stat.Mean(d, nil), nil
	}

	x := mat.NewDense(len(d)-1, 1, d[:len(d)-1])
	target := d[1:]

	reg := models.NewOLSRegression(nil)
	if fitErr := reg.Fit(x, target); fitErr != nil {
		if errors.Is(fitErr, models.ErrNearSingular) {
			return 0.0, stat.Mean(d, nil), nil
		}
		return 0.0, 0.0, fitErr
	}
	return reg.Coef()[0], reg.Intercept(), nil
}
