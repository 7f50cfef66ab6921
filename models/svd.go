package models

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const svdRankTol = 1e-12

// SVDRegression computes minimum-norm least squares through a singular value
// decomposition. Unlike OLSRegression it accepts rank deficient design
// matrices, which makes it the solver of last resort for differenced refits.
type SVDRegression struct {
	opt       *OLSOptions
	coef      []float64
	intercept float64
}

func NewSVDRegression(opt *OLSOptions) *SVDRegression {
	if opt == nil {
		opt = NewDefaultOLSOptions()
	}
	return &SVDRegression{
		opt: opt,
	}
}

func (s *SVDRegression) Fit(x mat.Matrix, y []float64) error {
	if s.opt == nil {
		return ErrNoOptions
	}
	if x == nil {
		return ErrNoTrainingMatrix
	}
	if len(y) == 0 {
		return ErrNoTargetValues
	}
	m, n := x.Dims()
	if m != len(y) {
		return fmt.Errorf("training data has %d rows and target has %d values, %w", m, len(y), ErrTargetLenMismatch)
	}

	design := mat.DenseCopyOf(x)
	if s.opt.FitIntercept {
		design = withIntercept(x)
		n += 1
	}

	var svd mat.SVD
	if ok := svd.Factorize(design, mat.SVDThin); !ok {
		return fmt.Errorf("svd factorization did not converge, %w", ErrNearSingular)
	}
	rank := svd.Rank(svdRankTol)
	if rank == 0 {
		return fmt.Errorf("design matrix has rank 0, %w", ErrNearSingular)
	}

	target := mat.NewDense(m, 1, nil)
	target.SetCol(0, y)

	var sol mat.Dense
	svd.SolveTo(&sol, target, rank)

	c := make([]float64, n)
	for i := 0; i < n; i++ {
		c[i] = sol.At(i, 0)
	}

	if s.opt.FitIntercept {
		s.intercept = c[0]
		s.coef = c[1:]
	} else {
		s.coef = c
	}
	return nil
}

func (s *SVDRegression) Predict(x mat.Matrix) ([]float64, error) {
	if s.opt == nil {
		return nil, ErrNoOptions
	}
	return predict(x, s.intercept, s.coef, s.opt.FitIntercept)
}

func (s *SVDRegression) Score(x mat.Matrix, y []float64) (float64, error) {
	if s.opt == nil {
		return 0.0, ErrNoOptions
	}
	if x == nil {
		return 0.0, ErrNoDesignMatrix
	}
	if len(y) == 0 {
		return 0.0, ErrNoTargetValues
	}

	m, _ := x.Dims()
	if m != len(y) {
		return 0.0, fmt.Errorf("design matrix has %d rows and target has %d values, %w", m, len(y), ErrTargetLenMismatch)
	}

	res, err := s.Predict(x)
	if err != nil {
		return 0.0, err
	}
	return stat.RSquaredFrom(res, y, nil), nil
}

func (s *SVDRegression) Intercept() float64 {
	return s.intercept
}

func (s *SVDRegression) Coef() []float64 {
	c := make([]float64, len(s.coef))
	copy(c, s.coef)
	return c
}
