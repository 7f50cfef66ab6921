package simulad

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/simulad/simulad/timetable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noisySensorTable simulates two coupled sensor series with gaussian noise
// from a fixed seed so the level fit is well conditioned.
func noisySensorTable(n int) *timetable.Table {
	r := rand.New(rand.NewPCG(13, 17))

	temp := make([]float64, n)
	wind := make([]float64, n)
	tPrev, wPrev := 20.0, 5.0
	for i := 0; i < n; i++ {
		tPrev = 8.0 + 0.6*tPrev + 0.1*wPrev + r.NormFloat64()*0.5
		wPrev = 2.0 + 0.3*wPrev + r.NormFloat64()*0.5
		temp[i] = tPrev
		wind[i] = wPrev
	}

	ts := timetable.GenerateT(n, time.Hour, time.Now)
	tbl, err := timetable.FromColumns(ts, []string{"Temp_degC", "Wind"}, temp, wind)
	if err != nil {
		panic(err)
	}
	return tbl
}

// driftTable builds the degenerate table from the concrete scenario: linearly
// increasing Celsius temperature and a uniform wind speed.
func driftTable(n int) *timetable.Table {
	ts := timetable.GenerateT(n, time.Hour, time.Now)
	tbl, err := timetable.FromColumns(ts, []string{"Temp_degC", "Wind"},
		timetable.GenerateLinear(n, 0.0, 1.0),
		timetable.GenerateConst(n, 5.0),
	)
	if err != nil {
		panic(err)
	}
	return tbl
}

func TestFitLevelModel(t *testing.T) {
	tbl := noisySensorTable(200)

	fitted, err := Fit(tbl, DefaultMaxLag)
	require.Nil(t, err)

	level, ok := fitted.(*LevelModel)
	require.True(t, ok)
	assert.GreaterOrEqual(t, level.Lag(), 1)
	assert.LessOrEqual(t, level.Lag(), DefaultMaxLag)
	assert.Equal(t, []string{"Temp_degF", "Wind"}, level.Variables())
}

func TestFitDifferencedFallback(t *testing.T) {
	tbl := driftTable(10)

	fitted, err := Fit(tbl, DefaultMaxLag)
	require.Nil(t, err)

	diffed, ok := fitted.(*DifferencedModel)
	require.True(t, ok)
	assert.GreaterOrEqual(t, diffed.Lag(), 1)
	assert.LessOrEqual(t, diffed.Lag(), DefaultMaxLag)

	// snapshot stores the converted last raw observation
	temp, exists := diffed.LastLevel.Value("Temp_degF")
	require.True(t, exists)
	assert.InDelta(t, 9.0*1.8+32.0, temp, 1e-9)

	wind, exists := diffed.LastLevel.Value("Wind")
	require.True(t, exists)
	assert.InDelta(t, 5.0, wind, 1e-9)
}

func TestFitInsufficientData(t *testing.T) {
	ts := timetable.GenerateT(1, time.Hour, time.Now)
	tbl, err := timetable.FromColumns(ts, []string{"Temp_degC", "Wind"},
		[]float64{20.0},
		[]float64{5.0},
	)
	require.Nil(t, err)

	_, err = Fit(tbl, DefaultMaxLag)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestFitReducesMaxLag(t *testing.T) {
	tbl := noisySensorTable(4)

	fitted, err := Fit(tbl, 10)
	require.Nil(t, err)
	assert.LessOrEqual(t, fitted.Lag(), 3)
}

func TestFitDefaultsMaxLag(t *testing.T) {
	tbl := noisySensorTable(100)

	fitted, err := Fit(tbl, 0)
	require.Nil(t, err)
	assert.LessOrEqual(t, fitted.Lag(), DefaultMaxLag)
}
