package ingest

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/simulad/simulad/timetable"
)

// MergeByLocation groups the sensor files by location and outer-joins each
// group on the timestamp. Gaps from the join are filled with time-aware
// linear interpolation, with forward/backward fill at the series edges.
func MergeByLocation(files []*SensorFile) (map[string]*timetable.Table, error) {
	groups := make(map[string][]*SensorFile)
	for _, sf := range files {
		groups[sf.Location] = append(groups[sf.Location], sf)
	}

	merged := make(map[string]*timetable.Table, len(groups))
	for loc, group := range groups {
		tbl, err := mergeGroup(group)
		if err != nil {
			return nil, fmt.Errorf("unable to merge location %q, %w", loc, err)
		}
		merged[loc] = tbl
	}
	return merged, nil
}

func mergeGroup(group []*SensorFile) (*timetable.Table, error) {
	columns := make([]string, 0, len(group))
	colIdx := make(map[string]int, len(group))
	for _, sf := range group {
		if _, exists := colIdx[sf.Column]; exists {
			continue
		}
		colIdx[sf.Column] = len(columns)
		columns = append(columns, sf.Column)
	}

	// union of timestamps across the group
	stampSet := make(map[int64]time.Time)
	for _, sf := range group {
		for _, ts := range sf.T {
			stampSet[ts.UnixNano()] = ts
		}
	}
	stamps := make([]time.Time, 0, len(stampSet))
	for _, ts := range stampSet {
		stamps = append(stamps, ts)
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })

	rowIdx := make(map[int64]int, len(stamps))
	for i, ts := range stamps {
		rowIdx[ts.UnixNano()] = i
	}

	data := make([][]float64, len(stamps))
	for i := range data {
		row := make([]float64, len(columns))
		for j := range row {
			row[j] = math.NaN()
		}
		data[i] = row
	}
	for _, sf := range group {
		j := colIdx[sf.Column]
		for i, ts := range sf.T {
			data[rowIdx[ts.UnixNano()]][j] = sf.Y[i]
		}
	}

	for j := range columns {
		col := make([]float64, len(stamps))
		for i := range data {
			col[i] = data[i][j]
		}
		Interpolate(stamps, col)
		for i := range data {
			data[i][j] = col[i]
		}
	}

	return timetable.New(stamps, columns, data)
}

// Interpolate fills NaN runs in place with time-weighted linear
// interpolation between the surrounding known values. Leading and trailing
// runs take the nearest known value. A series with no known values is left
// untouched.
func Interpolate(t []time.Time, y []float64) {
	first, last := -1, -1
	for i, v := range y {
		if math.IsNaN(v) {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	if first < 0 {
		return
	}

	for i := 0; i < first; i++ {
		y[i] = y[first]
	}
	for i := last + 1; i < len(y); i++ {
		y[i] = y[last]
	}

	prev := first
	for i := first + 1; i <= last; i++ {
		if math.IsNaN(y[i]) {
			continue
		}
		if i > prev+1 {
			t0 := t[prev]
			span := t[i].Sub(t0).Seconds()
			for k := prev + 1; k < i; k++ {
				frac := t[k].Sub(t0).Seconds() / span
				y[k] = y[prev] + (y[i]-y[prev])*frac
			}
		}
		prev = i
	}
}
