package stats

import (
	"math"
	"testing"
	"time"

	"github.com/simulad/simulad/timetable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	temp := []float64{10.0, math.NaN(), 14.0, 12.0}
	wind := []float64{5.0, 5.0, 5.0, 5.0}
	tbl, err := timetable.FromColumns(
		timetable.GenerateT(4, time.Hour, func() time.Time {
			return time.Date(2025, 1, 1, 4, 0, 0, 0, time.UTC)
		}),
		[]string{"Temp_degC", "Wind"},
		temp, wind,
	)
	require.NoError(t, err)

	summaries := Describe(tbl)
	require.Len(t, summaries, 2)

	ts := summaries["Temp_degC"]
	assert.InDelta(t, 12.0, ts.Mean, 1e-12)
	assert.InDelta(t, 2.0, ts.Std, 1e-12)
	assert.Equal(t, 10.0, ts.Min)
	assert.Equal(t, 14.0, ts.Max)
	assert.Equal(t, 1, ts.Missing)

	ws := summaries["Wind"]
	assert.Equal(t, 5.0, ws.Mean)
	assert.Equal(t, 0.0, ws.Std)
	assert.Equal(t, 0, ws.Missing)
}

func TestDescribeAllMissing(t *testing.T) {
	tbl, err := timetable.FromColumns(
		timetable.GenerateT(2, time.Hour, nil),
		[]string{"Temp"},
		[]float64{math.NaN(), math.NaN()},
	)
	require.NoError(t, err)

	s := Describe(tbl)["Temp"]
	assert.True(t, math.IsNaN(s.Mean))
	assert.Equal(t, 2, s.Missing)
}

func TestDetectOutliers(t *testing.T) {
	testData := map[string]struct {
		y        []float64
		expected []int
	}{
		"single spike": {
			y:        []float64{1.0, 1.1, 0.9, 1.0, 50.0, 1.05, 0.95, 1.0, 1.1, 0.9},
			expected: []int{4},
		},
		"nan never flagged": {
			y:        []float64{1.0, math.NaN(), 0.9, 1.0, 50.0, 1.05, 0.95, 1.0, 1.1, 0.9},
			expected: []int{4},
		},
		"no outliers": {
			y:        []float64{1.0, 1.1, 0.9, 1.0, 1.05, 0.95, 1.0, 1.1, 0.9, 1.0},
			expected: nil,
		},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, DetectOutliers(td.y, 0.1, 0.9, 1.5))
		})
	}
}

func TestDetectOutliersAllMissing(t *testing.T) {
	assert.Nil(t, DetectOutliers([]float64{math.NaN(), math.NaN()}, 0.1, 0.9, 1.5))
}

func TestVarianceInflationFactor(t *testing.T) {
	n := 20
	x0 := make([]float64, n)
	x1 := make([]float64, n)
	x2 := make([]float64, n)
	for i := 0; i < n; i++ {
		x0[i] = float64(i)
		x1[i] = 2.0*float64(i) + 1.0 // exact linear function of x0
		x2[i] = math.Sin(float64(i))
	}
	tbl, err := timetable.FromColumns(
		timetable.GenerateT(n, time.Hour, nil),
		[]string{"a", "b", "c"},
		x0, x1, x2,
	)
	require.NoError(t, err)

	vif, err := VarianceInflationFactor(tbl)
	require.NoError(t, err)
	require.Len(t, vif, 3)

	assert.True(t, vif["a"] > 100.0 || math.IsInf(vif["a"], 1))
	assert.True(t, vif["b"] > 100.0 || math.IsInf(vif["b"], 1))
	assert.Less(t, vif["c"], 10.0)
}

func TestVarianceInflationFactorErrors(t *testing.T) {
	oneCol, err := timetable.FromColumns(
		timetable.GenerateT(3, time.Hour, nil),
		[]string{"a"},
		[]float64{1.0, 2.0, 3.0},
	)
	require.NoError(t, err)
	_, err = VarianceInflationFactor(oneCol)
	require.ErrorIs(t, err, ErrMinimumColumns)

	sparse, err := timetable.FromColumns(
		timetable.GenerateT(3, time.Hour, nil),
		[]string{"a", "b"},
		[]float64{1.0, math.NaN(), math.NaN()},
		[]float64{2.0, 3.0, 4.0},
	)
	require.NoError(t, err)
	_, err = VarianceInflationFactor(sparse)
	require.ErrorIs(t, err, ErrColumnLen)
}
