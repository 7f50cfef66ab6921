package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/simulad/simulad/timetable"
)

var ErrNoLocations = errors.New("no locations to write")

const mergedTimeLayout = "2006-01-02 15:04:05"

// WriteMerged persists the per-location tables as one flat csv. The header
// is DateTime, Location, and the union of every table's columns; cells a
// location does not carry are empty.
func WriteMerged(path string, tables map[string]*timetable.Table) error {
	if len(tables) == 0 {
		return ErrNoLocations
	}

	union := make([]string, 0)
	seen := make(map[string]bool)
	locs := make([]string, 0, len(tables))
	for loc, tbl := range tables {
		locs = append(locs, loc)
		for _, c := range tbl.Columns {
			if !seen[c] {
				seen[c] = true
				union = append(union, c)
			}
		}
	}
	sort.Strings(union)
	sort.Strings(locs)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create %q, %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"DateTime", "Location"}, union...)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("unable to write header, %w", err)
	}

	for _, loc := range locs {
		tbl := tables[loc]
		colPos := make([]int, len(union))
		for i, c := range union {
			colPos[i] = -1
			for j, tc := range tbl.Columns {
				if tc == c {
					colPos[i] = j
					break
				}
			}
		}
		for r := 0; r < tbl.Len(); r++ {
			rec := make([]string, 0, len(header))
			rec = append(rec, tbl.T[r].Format(mergedTimeLayout), loc)
			for _, j := range colPos {
				if j < 0 || math.IsNaN(tbl.Data[r][j]) {
					rec = append(rec, "")
					continue
				}
				rec = append(rec, strconv.FormatFloat(tbl.Data[r][j], 'g', -1, 64))
			}
			if err := w.Write(rec); err != nil {
				return fmt.Errorf("unable to write row, %w", err)
			}
		}
	}
	w.Flush()
	return w.Error()
}

// ReadMerged loads a flat csv produced by WriteMerged back into per-location
// tables. Columns that hold no values for a location are dropped from that
// location's table.
func ReadMerged(path string) (map[string]*timetable.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open %q, %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("unable to read %q, %w", path, err)
	}
	if len(records) < 2 {
		return nil, ErrNoDataRows
	}

	header := records[0]
	if len(header) < 3 {
		return nil, ErrShortHeader
	}
	columns := header[2:]

	type locRows struct {
		t    []time.Time
		data [][]float64
	}
	byLoc := make(map[string]*locRows)
	for _, rec := range records[1:] {
		if len(rec) != len(header) {
			continue
		}
		ts, err := time.Parse(mergedTimeLayout, rec[0])
		if err != nil {
			continue
		}
		loc := rec[1]
		row := make([]float64, len(columns))
		for j, cell := range rec[2:] {
			if cell == "" {
				row[j] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				v = math.NaN()
			}
			row[j] = v
		}
		lr, ok := byLoc[loc]
		if !ok {
			lr = &locRows{}
			byLoc[loc] = lr
		}
		lr.t = append(lr.t, ts)
		lr.data = append(lr.data, row)
	}
	if len(byLoc) == 0 {
		return nil, ErrNoDataRows
	}

	tables := make(map[string]*timetable.Table, len(byLoc))
	for loc, lr := range byLoc {
		keep := make([]int, 0, len(columns))
		for j := range columns {
			for i := range lr.data {
				if !math.IsNaN(lr.data[i][j]) {
					keep = append(keep, j)
					break
				}
			}
		}
		cols := make([]string, len(keep))
		for i, j := range keep {
			cols[i] = columns[j]
		}
		data := make([][]float64, len(lr.data))
		for i := range lr.data {
			row := make([]float64, len(keep))
			for k, j := range keep {
				row[k] = lr.data[i][j]
			}
			data[i] = row
		}
		tbl, err := timetable.New(lr.t, cols, data)
		if err != nil {
			return nil, fmt.Errorf("unable to build table for location %q, %w", loc, err)
		}
		tables[loc] = tbl
	}
	return tables, nil
}
