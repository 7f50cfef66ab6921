// Package varmodel fits vector autoregressions on time-indexed observation
// tables and produces multi-step forecasts. Each variable's next value is
// modeled as a linear combination of the last lag observations across all
// variables plus an intercept.
package varmodel

import (
	"errors"
	"fmt"
	"math"

	"github.com/simulad/simulad/models"
	"github.com/simulad/simulad/timetable"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrNearSingular      = errors.New("near-singular covariance structure")
	ErrNotEnoughRows     = errors.New("not enough rows for the requested lag order")
	ErrInvalidLag        = errors.New("lag order must be positive")
	ErrInvalidSteps      = errors.New("forecast steps must be positive")
	ErrWindowTooShort    = errors.New("forecast window has fewer rows than the lag order")
	ErrWindowColMismatch = errors.New("forecast window column count does not match fitted variables")
)

// Solver selects the regression backend used per equation.
type Solver int

const (
	// SolverQR rejects rank deficient designs with ErrNearSingular.
	SolverQR Solver = iota
	// SolverSVD computes a minimum-norm least squares solution and accepts
	// rank deficient designs. Used for the differenced refit where no
	// further fallback exists.
	SolverSVD
)

// VAR is a fitted vector autoregression. Immutable once returned by Fit and
// safe for concurrent forecasting.
type VAR struct {
	lag       int
	vars      []string
	coef      []*mat.Dense // A_1..A_p, each K x K, row = equation
	intercept []float64
	sigma     *mat.SymDense
	aic       float64
}

// Fit estimates a VAR of the given lag order on the table rows.
func Fit(tbl *timetable.Table, lag int, solver Solver) (*VAR, error) {
	if lag < 1 {
		return nil, fmt.Errorf("got %d, %w", lag, ErrInvalidLag)
	}
	k := len(tbl.Columns)
	n := tbl.Len()
	usable := n - lag
	if usable < 1 {
		return nil, fmt.Errorf("%d rows with lag %d, %w", n, lag, ErrNotEnoughRows)
	}

	// design matrix: row t holds [y_{t+lag-1}, y_{t+lag-2}, ..., y_t] over
	// all k variables
	x := mat.NewDense(usable, lag*k, nil)
	for t := 0; t < usable; t++ {
		col := 0
		for l := 1; l <= lag; l++ {
			src := tbl.Data[t+lag-l]
			for j := 0; j < k; j++ {
				x.Set(t, col, src[j])
				col++
			}
		}
	}

	coef := make([]*mat.Dense, lag)
	for l := range coef {
		coef[l] = mat.NewDense(k, k, nil)
	}
	intercept := make([]float64, k)
	resid := mat.NewDense(usable, k, nil)

	for eq := 0; eq < k; eq++ {
		y := make([]float64, usable)
		for t := 0; t < usable; t++ {
			y[t] = tbl.Data[t+lag][eq]
		}

		var model models.Model
		switch solver {
		case SolverSVD:
			model = models.NewSVDRegression(nil)
		default:
			model = models.NewOLSRegression(nil)
		}

		if err := model.Fit(x, y); err != nil {
			if errors.Is(err, models.ErrNearSingular) {
				return nil, fmt.Errorf("equation %q: %v, %w", tbl.Columns[eq], err, ErrNearSingular)
			}
			return nil, fmt.Errorf("equation %q, %w", tbl.Columns[eq], err)
		}

		c := model.Coef()
		for l := 0; l < lag; l++ {
			for j := 0; j < k; j++ {
				coef[l].Set(eq, j, c[l*k+j])
			}
		}
		intercept[eq] = model.Intercept()

		pred, err := model.Predict(x)
		if err != nil {
			return nil, fmt.Errorf("equation %q, %w", tbl.Columns[eq], err)
		}
		for t := 0; t < usable; t++ {
			resid.Set(t, eq, y[t]-pred[t])
		}
	}

	v := &VAR{
		lag:       lag,
		vars:      append([]string(nil), tbl.Columns...),
		coef:      coef,
		intercept: intercept,
		sigma:     residualCovariance(resid, lag*k+1),
	}

	aic, ok := v.informationCriterion(usable)
	if !ok {
		if solver == SolverQR {
			return nil, fmt.Errorf("residual covariance is not positive definite, %w", ErrNearSingular)
		}
		aic = math.Inf(1)
	}
	v.aic = aic
	return v, nil
}

// Select fits candidate lag orders from 1 up to maxLag and returns the one
// minimizing the information criterion. Candidates whose regression is
// degenerate are skipped; if none survive, the near-singularity is reported
// so the caller can difference and retry.
func Select(tbl *timetable.Table, maxLag int, solver Solver) (*VAR, error) {
	if maxLag < 1 {
		return nil, fmt.Errorf("got max lag %d, %w", maxLag, ErrInvalidLag)
	}

	var best *VAR
	var lastErr error
	for p := 1; p <= maxLag; p++ {
		v, err := Fit(tbl, p, solver)
		if err != nil {
			if errors.Is(err, ErrNearSingular) || errors.Is(err, ErrNotEnoughRows) {
				lastErr = err
				continue
			}
			return nil, err
		}
		if best == nil || v.aic < best.aic {
			best = v
		}
	}
	if best == nil {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, ErrNearSingular
	}
	return best, nil
}

func residualCovariance(resid *mat.Dense, nparams int) *mat.SymDense {
	t, k := resid.Dims()
	df := float64(t - nparams)
	if df < 1 {
		df = float64(t)
	}

	var utu mat.Dense
	utu.Mul(resid.T(), resid)

	sigma := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			sigma.SetSym(i, j, utu.At(i, j)/df)
		}
	}
	return sigma
}

// informationCriterion computes an AIC-style criterion from the residual
// covariance log-determinant. Returns false when the covariance is not
// positive definite, in which case no criterion is defined.
func (v *VAR) informationCriterion(nobs int) (float64, bool) {
	var chol mat.Cholesky
	if ok := chol.Factorize(v.sigma); !ok {
		return 0, false
	}
	k := len(v.vars)
	nparams := k * (v.lag*k + 1)
	return chol.LogDet() + 2.0*float64(nparams)/float64(nobs), true
}

// Forecast produces a steps x k matrix of forecasts seeded from the last lag
// rows of the window.
func (v *VAR) Forecast(window *mat.Dense, steps int) (*mat.Dense, error) {
	if steps < 1 {
		return nil, fmt.Errorf("got %d, %w", steps, ErrInvalidSteps)
	}
	rows, k := window.Dims()
	if k != len(v.vars) {
		return nil, fmt.Errorf("got %d columns for %d variables, %w", k, len(v.vars), ErrWindowColMismatch)
	}
	if rows < v.lag {
		return nil, fmt.Errorf("got %d rows with lag %d, %w", rows, v.lag, ErrWindowTooShort)
	}

	// history holds the seed window followed by forecast rows as they are
	// produced
	hist := mat.NewDense(v.lag+steps, k, nil)
	for i := 0; i < v.lag; i++ {
		for j := 0; j < k; j++ {
			hist.Set(i, j, window.At(rows-v.lag+i, j))
		}
	}

	for step := 0; step < steps; step++ {
		row := v.lag + step
		for eq := 0; eq < k; eq++ {
			val := v.intercept[eq]
			for l := 1; l <= v.lag; l++ {
				a := v.coef[l-1]
				for j := 0; j < k; j++ {
					val += a.At(eq, j) * hist.At(row-l, j)
				}
			}
			hist.Set(row, eq, val)
		}
	}

	return mat.DenseCopyOf(hist.Slice(v.lag, v.lag+steps, 0, k)), nil
}

// Lag returns the fitted lag order.
func (v *VAR) Lag() int {
	return v.lag
}

// Variables returns the fitted variable names in column order.
func (v *VAR) Variables() []string {
	vars := make([]string, len(v.vars))
	copy(vars, v.vars)
	return vars
}

// AIC returns the information criterion value of the fit. Infinite when the
// residual covariance was not positive definite.
func (v *VAR) AIC() float64 {
	return v.aic
}

// LagCoefficients returns copies of the fitted coefficient matrices A_1..A_p.
// Entry (eq, j) of matrix l relates variable j at lag l+1 to the next value
// of variable eq.
func (v *VAR) LagCoefficients() []*mat.Dense {
	coef := make([]*mat.Dense, len(v.coef))
	for i, a := range v.coef {
		coef[i] = mat.DenseCopyOf(a)
	}
	return coef
}

// Intercepts returns a copy of the per-equation intercepts.
func (v *VAR) Intercepts() []float64 {
	c := make([]float64, len(v.intercept))
	copy(c, v.intercept)
	return c
}

// ResidualCovariance returns a copy of the residual covariance matrix.
func (v *VAR) ResidualCovariance() *mat.SymDense {
	k := len(v.vars)
	sigma := mat.NewSymDense(k, nil)
	sigma.CopySym(v.sigma)
	return sigma
}
