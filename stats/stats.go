// Package stats provides descriptive summaries and diagnostics for sensor
// observation tables.
package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/simulad/simulad/models"
	"github.com/simulad/simulad/timetable"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrMinimumColumns = errors.New("need at least 2 columns to compute VIF")
	ErrColumnLen      = errors.New("must have at least 2 observations per column")
)

// Summary holds descriptive statistics for one observation column. Missing
// counts the NaN cells excluded from the other fields.
type Summary struct {
	Mean    float64
	Std     float64
	Min     float64
	Max     float64
	Missing int
}

// Describe computes a per-column summary of the table. Columns with no
// observed values get a NaN summary.
func Describe(tbl *timetable.Table) map[string]Summary {
	out := make(map[string]Summary, len(tbl.Columns))
	for j, name := range tbl.Columns {
		vals := make([]float64, 0, tbl.Len())
		missing := 0
		for i := 0; i < tbl.Len(); i++ {
			v := tbl.Data[i][j]
			if math.IsNaN(v) {
				missing++
				continue
			}
			vals = append(vals, v)
		}
		s := Summary{
			Mean:    math.NaN(),
			Std:     math.NaN(),
			Min:     math.NaN(),
			Max:     math.NaN(),
			Missing: missing,
		}
		if len(vals) > 0 {
			s.Mean = stat.Mean(vals, nil)
			s.Std = math.Sqrt(stat.Variance(vals, nil))
			s.Min = vals[0]
			s.Max = vals[0]
			for _, v := range vals[1:] {
				s.Min = math.Min(s.Min, v)
				s.Max = math.Max(s.Max, v)
			}
		}
		out[name] = s
	}
	return out
}

// DetectOutliers finds indexes of values outside a Tukey fence built from the
// lower and upper percentiles of the series. NaN values are never flagged.
func DetectOutliers(y []float64, lowerPerc, upperPerc, tukeyFactor float64) []int {
	lowerPerc = math.Max(lowerPerc, 0.0)
	upperPerc = math.Min(upperPerc, 1.0)
	tukeyFactor = math.Max(tukeyFactor, 0.0)

	observed := make([]float64, 0, len(y))
	for _, v := range y {
		if !math.IsNaN(v) {
			observed = append(observed, v)
		}
	}
	if len(observed) == 0 {
		return nil
	}
	sort.Float64s(observed)

	// round the percentile indexes inward so the fence anchors exclude the
	// extremes whenever the percentiles do
	lowerIdx := int(math.Ceil(float64(len(observed)-1) * lowerPerc))
	upperIdx := int(math.Floor(float64(len(observed)-1) * upperPerc))
	if lowerIdx > upperIdx {
		lowerIdx, upperIdx = upperIdx, lowerIdx
	}

	lower := observed[lowerIdx]
	upper := observed[upperIdx]
	innerRange := upper - lower
	lower -= innerRange * tukeyFactor
	upper += innerRange * tukeyFactor

	var outlierIdx []int
	for i, v := range y {
		if math.IsNaN(v) {
			continue
		}
		if v >= upper || v <= lower {
			outlierIdx = append(outlierIdx, i)
		}
	}
	return outlierIdx
}

// VarianceInflationFactor regresses each column of the table on the others
// and reports 1/(1-R2) per column. Large values flag the collinearity that
// makes a level fit near singular. Rows holding any NaN are skipped.
func VarianceInflationFactor(tbl *timetable.Table) (map[string]float64, error) {
	if len(tbl.Columns) < 2 {
		return nil, ErrMinimumColumns
	}

	var rows [][]float64
	for i := 0; i < tbl.Len(); i++ {
		complete := true
		for _, v := range tbl.Data[i] {
			if math.IsNaN(v) {
				complete = false
				break
			}
		}
		if complete {
			rows = append(rows, tbl.Data[i])
		}
	}
	if len(rows) < 2 {
		return nil, ErrColumnLen
	}

	m := len(rows)
	n := len(tbl.Columns)
	vif := make(map[string]float64, n)
	for j, name := range tbl.Columns {
		x := mat.NewDense(m, n-1, nil)
		y := make([]float64, m)
		for i, row := range rows {
			c := 0
			for k, v := range row {
				if k == j {
					y[i] = v
					continue
				}
				x.Set(i, c, v)
				c++
			}
		}

		// the minimum-norm solver tolerates collinearity among the other
		// columns, which would otherwise abort the regression for a column
		// that is not itself collinear
		model := models.NewSVDRegression(nil)
		if err := model.Fit(x, y); err != nil {
			if errors.Is(err, models.ErrNearSingular) {
				vif[name] = math.Inf(1)
				continue
			}
			return nil, fmt.Errorf("unable to regress column %q, %w", name, err)
		}
		r2, err := model.Score(x, y)
		if err != nil {
			return nil, fmt.Errorf("unable to score column %q, %w", name, err)
		}
		if r2 >= 1.0 {
			vif[name] = math.Inf(1)
			continue
		}
		vif[name] = 1.0 / (1.0 - r2)
	}
	return vif, nil
}
