package timetable

import (
	"math"
	"math/rand/v2"
	"time"
)

// GenerateT produces n hourly timestamps ending just before the time returned
// by nowFunc, truncated to the minute. A nil nowFunc uses time.Now.
func GenerateT(n int, interval time.Duration, nowFunc func() time.Time) []time.Time {
	if nowFunc == nil {
		nowFunc = time.Now
	}
	t := make([]time.Time, 0, n)
	ct := time.Unix(nowFunc().Unix()/60*60, 0).Add(-time.Duration(n) * interval)
	for i := 0; i < n; i++ {
		t = append(t, ct.Add(interval*time.Duration(i)))
	}
	return t
}

// GenerateConst produces n copies of val.
func GenerateConst(n int, val float64) []float64 {
	y := make([]float64, n)
	for i := range y {
		y[i] = val
	}
	return y
}

// GenerateLinear produces n values starting at start and increasing by slope
// per step.
func GenerateLinear(n int, start, slope float64) []float64 {
	y := make([]float64, n)
	for i := range y {
		y[i] = start + slope*float64(i)
	}
	return y
}

// GenerateWave produces a sine wave sampled at the given times.
func GenerateWave(t []time.Time, amp, periodSec, timeOffset float64) []float64 {
	y := make([]float64, len(t))
	for i := range t {
		y[i] = amp * math.Sin(2.0*math.Pi/periodSec*(float64(t[i].Unix())+timeOffset))
	}
	return y
}

// GenerateNoise produces normally distributed noise scaled by scale.
func GenerateNoise(n int, scale float64) []float64 {
	y := make([]float64, n)
	for i := range y {
		y[i] = rand.NormFloat64() * scale
	}
	return y
}

// FromColumns assembles a table from per-variable value slices in column
// order.
func FromColumns(t []time.Time, columns []string, cols ...[]float64) (*Table, error) {
	data := make([][]float64, len(t))
	for i := range t {
		row := make([]float64, len(cols))
		for j, col := range cols {
			row[j] = col[i]
		}
		data[i] = row
	}
	return New(t, columns, data)
}
