// Package models is a collection of least squares fitting implementations
// used by the multivariate and single-series forecasters.
package models

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrNoOptions          = errors.New("no initialized model options")
	ErrNoTrainingMatrix   = errors.New("no training matrix")
	ErrNoTargetValues     = errors.New("no target values")
	ErrNoDesignMatrix     = errors.New("no design matrix for inference")
	ErrTargetLenMismatch  = errors.New("target length does not match training rows")
	ErrFeatureLenMismatch = errors.New("number of features does not match number of model coefficients")
	ErrNearSingular       = errors.New("design matrix is numerically singular or near-singular")
)

type Model interface {
	Fit(x mat.Matrix, y []float64) error
	Predict(x mat.Matrix) ([]float64, error)
	Score(x mat.Matrix, y []float64) (float64, error)
	Intercept() float64
	Coef() []float64
}

// withIntercept returns a copy of x with a leading column of ones.
func withIntercept(x mat.Matrix) *mat.Dense {
	m, n := x.Dims()
	aug := mat.NewDense(m, n+1, nil)
	for i := 0; i < m; i++ {
		aug.Set(i, 0, 1.0)
		for j := 0; j < n; j++ {
			aug.Set(i, j+1, x.At(i, j))
		}
	}
	return aug
}

// predict computes x*coef (+ intercept) given a fit intercept/coefficient
// pair shared by the OLS and SVD backends.
func predict(x mat.Matrix, intercept float64, coef []float64, fitIntercept bool) ([]float64, error) {
	if x == nil {
		return nil, ErrNoDesignMatrix
	}
	m, n := x.Dims()
	if n != len(coef) {
		return nil, fmt.Errorf("got %d features in design matrix, but expected %d, %w", n, len(coef), ErrFeatureLenMismatch)
	}

	res := make([]float64, m)
	for i := 0; i < m; i++ {
		val := 0.0
		if fitIntercept {
			val = intercept
		}
		for j := 0; j < n; j++ {
			val += coef[j] * x.At(i, j)
		}
		res[i] = val
	}
	return res, nil
}
