package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func testModel(t *testing.T, model Model, x mat.Matrix, y []float64, intercept float64, coef []float64, tol float64) {
	err := model.Fit(x, y)
	require.Nil(t, err)

	assert.InDelta(t, intercept, model.Intercept(), tol)
	assert.InDeltaSlice(t, coef, model.Coef(), tol)

	r2, err := model.Score(x, y)
	require.Nil(t, err)
	assert.InDelta(t, 1.0, r2, tol)
}

func TestOLSRegression(t *testing.T) {
	// y = 2 + 3*x0 - 1*x1
	x := mat.NewDense(5, 2, []float64{
		0, 0,
		1, 0,
		0, 1,
		1, 1,
		2, 3,
	})
	y := []float64{2, 5, 1, 4, 5}

	testModel(t, NewOLSRegression(nil), x, y, 2.0, []float64{3.0, -1.0}, 1e-8)
}

func TestOLSRegressionNoIntercept(t *testing.T) {
	x := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := []float64{2, 4, 6, 8}

	model := NewOLSRegression(&OLSOptions{FitIntercept: false})
	err := model.Fit(x, y)
	require.Nil(t, err)
	assert.InDelta(t, 0.0, model.Intercept(), 1e-12)
	assert.InDeltaSlice(t, []float64{2.0}, model.Coef(), 1e-8)
}

func TestOLSRegressionNearSingular(t *testing.T) {
	testData := map[string]struct {
		x mat.Matrix
		y []float64
	}{
		"constant column collinear with intercept": {
			x: mat.NewDense(4, 1, []float64{5, 5, 5, 5}),
			y: []float64{1, 2, 3, 4},
		},
		"duplicated columns": {
			x: mat.NewDense(4, 2, []float64{
				1, 1,
				2, 2,
				3, 3,
				4, 4,
			}),
			y: []float64{1, 2, 3, 4},
		},
		"underdetermined": {
			x: mat.NewDense(1, 2, []float64{1, 2}),
			y: []float64{1},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			err := NewOLSRegression(nil).Fit(td.x, td.y)
			assert.ErrorIs(t, err, ErrNearSingular)
		})
	}
}

func TestOLSRegressionInputErrors(t *testing.T) {
	x := mat.NewDense(2, 1, []float64{1, 2})

	assert.ErrorIs(t, NewOLSRegression(nil).Fit(nil, []float64{1}), ErrNoTrainingMatrix)
	assert.ErrorIs(t, NewOLSRegression(nil).Fit(x, nil), ErrNoTargetValues)
	assert.ErrorIs(t, NewOLSRegression(nil).Fit(x, []float64{1, 2, 3}), ErrTargetLenMismatch)
}

func TestSVDRegression(t *testing.T) {
	// same well-conditioned system as the OLS test
	x := mat.NewDense(5, 2, []float64{
		0, 0,
		1, 0,
		0, 1,
		1, 1,
		2, 3,
	})
	y := []float64{2, 5, 1, 4, 5}

	testModel(t, NewSVDRegression(nil), x, y, 2.0, []float64{3.0, -1.0}, 1e-8)
}

func TestSVDRegressionRankDeficient(t *testing.T) {
	// constant regressor collinear with the intercept; OLS rejects this but
	// the minimum-norm solution must still reproduce the constant target
	x := mat.NewDense(4, 1, []float64{1, 1, 1, 1})
	y := []float64{3, 3, 3, 3}

	model := NewSVDRegression(nil)
	err := model.Fit(x, y)
	require.Nil(t, err)

	pred, err := model.Predict(x)
	require.Nil(t, err)
	assert.InDeltaSlice(t, y, pred, 1e-8)
}

func TestPredictFeatureMismatch(t *testing.T) {
	x := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := []float64{2, 4, 6, 8}

	model := NewOLSRegression(nil)
	require.Nil(t, model.Fit(x, y))

	_, err := model.Predict(mat.NewDense(1, 2, []float64{1, 2}))
	assert.ErrorIs(t, err, ErrFeatureLenMismatch)
}
