package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// SingularTol is the relative tolerance on the R diagonal of the QR
// factorization below which the design matrix is treated as rank deficient.
const SingularTol = 1e-10

type OLSOptions struct {
	FitIntercept bool
}

func NewDefaultOLSOptions() *OLSOptions {
	return &OLSOptions{
		FitIntercept: true,
	}
}

// OLSRegression computes ordinary least squares using QR factorization. A
// rank deficient design matrix is rejected with ErrNearSingular so callers
// can fall back to a more tolerant solver.
type OLSRegression struct {
	opt       *OLSOptions
	coef      []float64
	intercept float64
}

func NewOLSRegression(opt *OLSOptions) *OLSRegression {
	if opt == nil {
		opt = NewDefaultOLSOptions()
	}
	return &OLSRegression{
		opt: opt,
	}
}

func (o *OLSRegression) Fit(x mat.Matrix, y []float64) error {
	if o.opt == nil {
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
	if o.opt.FitIntercept {
		design = withIntercept(x)
		n += 1
	}

	// QR factorization needs at least as many rows as columns. Fewer rows
	// means the coefficients are not identifiable, which is the same
	// degenerate condition as a rank deficient design.
	if m < n {
		return fmt.Errorf("%d rows for %d regressors, %w", m, n, ErrNearSingular)
	}

	qr := new(mat.QR)
	qr.Factorize(design)

	q := new(mat.Dense)
	r := new(mat.Dense)
	qr.QTo(q)
	qr.RTo(r)

	var maxDiag float64
	for i := 0; i < n; i++ {
		if d := math.Abs(r.At(i, i)); d > maxDiag {
			maxDiag = d
		}
	}
	for i := 0; i < n; i++ {
		if math.Abs(r.At(i, i)) <= SingularTol*maxDiag {
			return fmt.Errorf("R diagonal %d is degenerate, %w", i, ErrNearSingular)
		}
	}

	// back substitution of R*c = Q'y
	qty := make([]float64, n)
	for i := 0; i < n; i++ {
		var v float64
		for k := 0; k < m; k++ {
			v += q.At(k, i) * y[k]
		}
		qty[i] = v
	}

	c := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		c[i] = qty[i]
		for j := i + 1; j < n; j++ {
			c[i] -= c[j] * r.At(i, j)
		}
		c[i] /= r.At(i, i)
	}

	if o.opt.FitIntercept {
		o.intercept = c[0]
		o.coef = c[1:]
	} else {
		o.coef = c
	}
	return nil
}

func (o *OLSRegression) Predict(x mat.Matrix) ([]float64, error) {
	if o.opt == nil {
		return nil, ErrNoOptions
	}
	return predict(x, o.intercept, o.coef, o.opt.FitIntercept)
}

func (o *OLSRegression) Score(x mat.Matrix, y []float64) (float64, error) {
	if o.opt == nil {
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

	res, err := o.Predict(x)
	if err != nil {
		return 0.0, err
	}
	return stat.RSquaredFrom(res, y, nil), nil
}

func (o *OLSRegression) Intercept() float64 {
	return o.intercept
}

func (o *OLSRegression) Coef() []float64 {
	c := make([]float64, len(o.coef))
	copy(c, o.coef)
	return c
}
