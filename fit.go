package simulad

import (
	"errors"
	"fmt"

	"github.com/simulad/simulad/timetable"
	"github.com/simulad/simulad/varmodel"
)

const (
	// DefaultMaxLag bounds the lag order search when none is requested.
	DefaultMaxLag = 3
	// DefaultHorizon is the forecast horizon in hourly steps.
	DefaultHorizon = 24
)

var ErrInsufficientData = errors.New("insufficient observations")

// Fitted is the result of fitting a multivariate model, either a LevelModel
// or a DifferencedModel. The two variants make the fitting regime explicit
// instead of carrying an optional last-level sentinel alongside the model.
type Fitted interface {
	// Lag returns the selected lag order.
	Lag() int
	// Variables returns the fitted variable names in column order.
	Variables() []string

	model() *varmodel.VAR
}

// LevelModel is a vector autoregression fitted on raw observation levels.
type LevelModel struct {
	VAR *varmodel.VAR
}

func (m *LevelModel) Lag() int            { return m.VAR.Lag() }
func (m *LevelModel) Variables() []string { return m.VAR.Variables() }
func (m *LevelModel) model() *varmodel.VAR {
	return m.VAR
}

// DifferencedModel is a vector autoregression fitted on first differences
// after the level fit hit a near-singular covariance structure. LastLevel
// holds the last raw observation needed to reconstruct level forecasts.
type DifferencedModel struct {
	VAR       *varmodel.VAR
	LastLevel timetable.Row
}

func (m *DifferencedModel) Lag() int            { return m.VAR.Lag() }
func (m *DifferencedModel) Variables() []string { return m.VAR.Variables() }
func (m *DifferencedModel) model() *varmodel.VAR {
	return m.VAR
}

// Fit converts units, selects a lag order up to maxLag, and fits a vector
// autoregression on the table. When the level fit is numerically
// near-singular the series is differenced and refitted, and the returned
// DifferencedModel retains the last raw observation. A maxLag of 0 or less
// selects DefaultMaxLag. The requested maximum is reduced to n-1 whenever
// the table has fewer rows than maxLag+1.
func Fit(tbl *timetable.Table, maxLag int) (Fitted, error) {
	if maxLag <= 0 {
		maxLag = DefaultMaxLag
	}

	conv := ConvertTemperatures(tbl)
	n := conv.Len()
	if n < 2 {
		return nil, fmt.Errorf("got %d observations, need at least 2 to fit, %w", n, ErrInsufficientData)
	}
	if n <= maxLag {
		maxLag = n - 1
		if maxLag < 1 {
			maxLag = 1
		}
	}

	v, err := varmodel.Select(conv, maxLag, varmodel.SolverQR)
	if err == nil {
		return &LevelModel{VAR: v}, nil
	}
	if !errors.Is(err, varmodel.ErrNearSingular) {
		return nil, fmt.Errorf("unable to fit level model, %w", err)
	}

	diff, err := conv.Diff()
	if err != nil {
		return nil, fmt.Errorf("unable to difference series, %w", err)
	}
	if diff.Len() <= maxLag {
		maxLag = diff.Len() - 1
		if maxLag < 1 {
			maxLag = 1
		}
	}

	v, err = varmodel.Select(diff, maxLag, varmodel.SolverSVD)
	if err != nil {
		return nil, fmt.Errorf("unable to fit differenced model, %w", err)
	}
	return &DifferencedModel{
		VAR:       v,
		LastLevel: conv.LastRow(),
	}, nil
}
