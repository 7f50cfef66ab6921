package univariate

import (
	"fmt"
	"math"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/simulad/simulad/models"
	"github.com/simulad/simulad/timetable"
	"gonum.org/v1/gonum/mat"
)

const minWeeklySpan = 7 * 24 * time.Hour

// AdditiveOptions configures the additive-decomposition forecaster.
type AdditiveOptions struct {
	// DailyOrders is the number of fourier orders modeling the daily cycle.
	DailyOrders int
	// WeeklyOrders is the number of fourier orders modeling the weekly
	// cycle. Only used when the training span covers at least one week.
	WeeklyOrders int
	// Holidays adds an indicator feature marking observed holidays.
	Holidays []*cal.Holiday
}

func NewDefaultAdditiveOptions() *AdditiveOptions {
	return &AdditiveOptions{
		DailyOrders:  4,
		WeeklyOrders: 2,
	}
}

// ForecastAdditive fits an additive trend plus seasonality model on the
// table's first value column and forecasts steps hourly periods ahead.
// Missing values are dropped before fitting; at least 2 non-missing values
// are required.
func ForecastAdditive(tbl *timetable.Table, steps int, opt *AdditiveOptions) (*timetable.Table, error) {
	if steps < 0 {
		return nil, fmt.Errorf("got %d, %w", steps, ErrInvalidSteps)
	}
	if opt == nil {
		opt = NewDefaultAdditiveOptions()
	}

	name := tbl.Columns[0]
	raw, err := tbl.Column(name)
	if err != nil {
		return nil, err
	}

	trainT := make([]time.Time, 0, len(raw))
	trainY := make([]float64, 0, len(raw))
	for i, v := range raw {
		if math.IsNaN(v) {
			continue
		}
		trainT = append(trainT, tbl.T[i])
		trainY = append(trainY, v)
	}
	if len(trainY) < 2 {
		return nil, fmt.Errorf("got %d non-missing observations, need at least 2, %w", len(trainY), ErrInsufficientData)
	}

	if steps == 0 {
		return timetable.Empty([]string{name}), nil
	}

	am := &additiveModel{
		opt:    opt,
		origin: trainT[0],
		// weekly fourier features on a span under a week are not
		// identifiable
		weekly: trainT[len(trainT)-1].Sub(trainT[0]) >= minWeeklySpan,
	}

	x := am.features(trainT)
	reg := models.NewSVDRegression(nil)
	if err := reg.Fit(x, trainY); err != nil {
		return nil, fmt.Errorf("unable to fit additive model, %w", err)
	}

	last := tbl.T[tbl.Len()-1]
	horizon := timetable.HourlyRange(last, steps)
	pred, err := reg.Predict(am.features(horizon))
	if err != nil {
		return nil, fmt.Errorf("unable to forecast additive model, %w", err)
	}

	data := make([][]float64, steps)
	for i, v := range pred {
		data[i] = []float64{v}
	}
	return &timetable.Table{
		T:       horizon,
		Columns: []string{name},
		Data:    data,
	}, nil
}

type additiveModel struct {
	opt    *AdditiveOptions
	origin time.Time
	weekly bool
}

// features builds the design matrix: linear trend, daily and optionally
// weekly fourier components, and a holiday indicator when holidays are
// configured.
func (am *additiveModel) features(t []time.Time) *mat.Dense {
	cols := 1 + 2*am.opt.DailyOrders
	if am.weekly {
		cols += 2 * am.opt.WeeklyOrders
	}
	if len(am.opt.Holidays) > 0 {
		cols += 1
	}

	x := mat.NewDense(len(t), cols, nil)
	for i, tPnt := range t {
		col := 0
		x.Set(i, col, tPnt.Sub(am.origin).Hours())
		col++

		hod := math.Mod(float64(tPnt.Unix())/3600.0, 24.0)
		for order := 1; order <= am.opt.DailyOrders; order++ {
			omega := 2.0 * math.Pi * float64(order) / 24.0
			x.Set(i, col, math.Sin(omega*hod))
			x.Set(i, col+1, math.Cos(omega*hod))
			col += 2
		}

		if am.weekly {
			dow := math.Mod(float64(tPnt.Unix())/86400.0, 7.0)
			for order := 1; order <= am.opt.WeeklyOrders; order++ {
				omega := 2.0 * math.Pi * float64(order) / 7.0
				x.Set(i, col, math.Sin(omega*dow))
				x.Set(i, col+1, math.Cos(omega*dow))
				col += 2
			}
		}

		if len(am.opt.Holidays) > 0 {
			if isHoliday(am.opt.Holidays, tPnt) {
				x.Set(i, col, 1.0)
			}
			col++
		}
	}
	return x
}

func isHoliday(holidays []*cal.Holiday, tPnt time.Time) bool {
	for _, hol := range holidays {
		_, observed := hol.Calc(tPnt.Year())
		oy, om, od := observed.Date()
		ty, tm, td := tPnt.Date()
		if oy == ty && om == tm && od == td {
			return true
		}
	}
	return false
}
