package varmodel

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/simulad/simulad/timetable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// simulateVAR1 generates a stable two-variable VAR(1) process with gaussian
// noise from a fixed seed.
func simulateVAR1(n int, noise float64) *timetable.Table {
	r := rand.New(rand.NewPCG(7, 11))

	a := [2][2]float64{
		{0.5, 0.1},
		{0.2, 0.4},
	}
	c := [2]float64{1.0, 2.0}

	data := make([][]float64, n)
	prev := []float64{c[0], c[1]}
	for i := 0; i < n; i++ {
		row := []float64{
			c[0] + a[0][0]*prev[0] + a[0][1]*prev[1] + r.NormFloat64()*noise,
			c[1] + a[1][0]*prev[0] + a[1][1]*prev[1] + r.NormFloat64()*noise,
		}
		data[i] = row
		prev = row
	}

	ts := timetable.GenerateT(n, time.Hour, time.Now)
	tbl, err := timetable.New(ts, []string{"Temp", "Wind"}, data)
	if err != nil {
		panic(err)
	}
	return tbl
}

func TestFitRecoversCoefficients(t *testing.T) {
	tbl := simulateVAR1(2000, 0.1)

	v, err := Fit(tbl, 1, SolverQR)
	require.Nil(t, err)

	assert.Equal(t, 1, v.Lag())
	assert.Equal(t, []string{"Temp", "Wind"}, v.Variables())

	coef := v.LagCoefficients()
	require.Len(t, coef, 1)
	assert.InDelta(t, 0.5, coef[0].At(0, 0), 0.1)
	assert.InDelta(t, 0.1, coef[0].At(0, 1), 0.1)
	assert.InDelta(t, 0.2, coef[0].At(1, 0), 0.1)
	assert.InDelta(t, 0.4, coef[0].At(1, 1), 0.1)

	intercepts := v.Intercepts()
	assert.InDelta(t, 1.0, intercepts[0], 0.3)
	assert.InDelta(t, 2.0, intercepts[1], 0.3)

	aic := v.AIC()
	assert.False(t, math.IsNaN(aic) || math.IsInf(aic, 0))

	sigma := v.ResidualCovariance()
	require.Equal(t, 2, sigma.SymmetricDim())
	assert.InDelta(t, 0.01, sigma.At(0, 0), 0.005)
	assert.InDelta(t, 0.01, sigma.At(1, 1), 0.005)
	assert.InDelta(t, 0.0, sigma.At(0, 1), 0.005)
}

func TestFitErrors(t *testing.T) {
	tbl := simulateVAR1(5, 0.1)

	testData := map[string]struct {
		lag int
		err error
	}{
		"zero lag":     {lag: 0, err: ErrInvalidLag},
		"negative lag": {lag: -1, err: ErrInvalidLag},
		"lag too big":  {lag: 5, err: ErrNotEnoughRows},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := Fit(tbl, td.lag, SolverQR)
			assert.ErrorIs(t, err, td.err)
		})
	}
}

func TestFitNearSingular(t *testing.T) {
	n := 50
	ts := timetable.GenerateT(n, time.Hour, time.Now)

	r := rand.New(rand.NewPCG(3, 5))
	noisy := make([]float64, n)
	for i := range noisy {
		noisy[i] = 10.0 + r.NormFloat64()
	}

	// constant column is collinear with the regression intercept
	tbl, err := timetable.FromColumns(ts, []string{"Temp", "Wind"},
		noisy,
		timetable.GenerateConst(n, 3.5),
	)
	require.Nil(t, err)

	_, err = Fit(tbl, 1, SolverQR)
	assert.ErrorIs(t, err, ErrNearSingular)

	// the minimum-norm solver accepts the same data
	v, err := Fit(tbl, 1, SolverSVD)
	require.Nil(t, err)
	assert.Equal(t, 1, v.Lag())
}

func TestSelect(t *testing.T) {
	tbl := simulateVAR1(400, 0.1)

	v, err := Select(tbl, 3, SolverQR)
	require.Nil(t, err)
	assert.GreaterOrEqual(t, v.Lag(), 1)
	assert.LessOrEqual(t, v.Lag(), 3)
}

func TestSelectNearSingular(t *testing.T) {
	n := 20
	ts := timetable.GenerateT(n, time.Hour, time.Now)
	tbl, err := timetable.FromColumns(ts, []string{"Temp", "Wind"},
		timetable.GenerateLinear(n, 10.0, 1.0),
		timetable.GenerateConst(n, 3.5),
	)
	require.Nil(t, err)

	_, err = Select(tbl, 3, SolverQR)
	assert.ErrorIs(t, err, ErrNearSingular)

	v, err := Select(tbl, 3, SolverSVD)
	require.Nil(t, err)
	assert.GreaterOrEqual(t, v.Lag(), 1)
}

func TestForecast(t *testing.T) {
	tbl := simulateVAR1(500, 0.1)

	v, err := Fit(tbl, 2, SolverQR)
	require.Nil(t, err)

	window := tbl.Tail(2).Matrix()
	fcst, err := v.Forecast(window, 4)
	require.Nil(t, err)

	rows, cols := fcst.Dims()
	assert.Equal(t, 4, rows)
	assert.Equal(t, 2, cols)

	// the first forecast row must match the recursion computed by hand from
	// the fitted coefficients
	coef := v.LagCoefficients()
	intercepts := v.Intercepts()
	for eq := 0; eq < 2; eq++ {
		want := intercepts[eq]
		for l := 1; l <= 2; l++ {
			for j := 0; j < 2; j++ {
				want += coef[l-1].At(eq, j) * window.At(2-l, j)
			}
		}
		assert.InDelta(t, want, fcst.At(0, eq), 1e-9)
	}
}

func TestForecastErrors(t *testing.T) {
	tbl := simulateVAR1(100, 0.1)

	v, err := Fit(tbl, 2, SolverQR)
	require.Nil(t, err)

	_, err = v.Forecast(tbl.Tail(2).Matrix(), 0)
	assert.ErrorIs(t, err, ErrInvalidSteps)

	_, err = v.Forecast(tbl.Tail(1).Matrix(), 3)
	assert.ErrorIs(t, err, ErrWindowTooShort)

	narrow := tbl.Tail(3)
	narrow.Columns = narrow.Columns[:1]
	for i := range narrow.Data {
		narrow.Data[i] = narrow.Data[i][:1]
	}
	_, err = v.Forecast(narrow.Matrix(), 3)
	assert.ErrorIs(t, err, ErrWindowColMismatch)
}
