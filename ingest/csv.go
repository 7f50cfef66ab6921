package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// missingSentinel marks missing readings in the raw logger exports.
const missingSentinel = -9999.0

var (
	ErrNoDataRows  = errors.New("no parseable data rows")
	ErrNoCSVFiles  = errors.New("no csv files loaded from directory")
	ErrShortHeader = errors.New("csv header has fewer than 2 columns")
)

// timeLayouts are tried in order when parsing raw timestamp cells.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"1/2/2006 15:04",
}

// SensorFile is one raw sensor series: the parsed timestamps and values of a
// single CSV export, tagged with the location and variable carried by its
// file name.
type SensorFile struct {
	Location string
	Variable string
	// Column is the unique measurement column name, <Location>_<Variable>.
	Column string
	T      []time.Time
	Y      []float64
}

// ReadSensorCSV opens and parses a raw sensor CSV file.
func ReadSensorCSV(path string) (*SensorFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadSensor(file, path)
}

// ReadSensor parses a raw sensor CSV stream. The first column is the
// timestamp and the second is the measurement; any further columns are
// dropped. Rows with unparseable timestamps are skipped and the missing
// value sentinel becomes NaN.
func ReadSensor(r io.Reader, path string) (*SensorFile, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("unable to read csv header, %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("%q, %w", path, ErrShortHeader)
	}

	sf := &SensorFile{
		Location: LocationFromFile(path),
		Variable: VariableFromFile(path),
	}
	sf.Column = sf.Location + "_" + sf.Variable

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unable to read csv row, %w", err)
		}
		if len(record) < 2 {
			continue
		}

		ts, ok := parseTime(record[0])
		if !ok {
			continue
		}
		sf.T = append(sf.T, ts)
		sf.Y = append(sf.Y, parseValue(record[1]))
	}

	if len(sf.T) == 0 {
		return nil, fmt.Errorf("%q, %w", path, ErrNoDataRows)
	}

	sort.Sort(byTime{sf.T, sf.Y})
	return sf, nil
}

func parseTime(cell string) (time.Time, bool) {
	cell = strings.TrimSpace(cell)
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, cell); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func parseValue(cell string) float64 {
	val, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil || val == missingSentinel {
		return math.NaN()
	}
	return val
}

type byTime struct {
	t []time.Time
	y []float64
}

func (b byTime) Len() int           { return len(b.t) }
func (b byTime) Less(i, j int) bool { return b.t[i].Before(b.t[j]) }
func (b byTime) Swap(i, j int) {
	b.t[i], b.t[j] = b.t[j], b.t[i]
	b.y[i], b.y[j] = b.y[j], b.y[i]
}

// LoadDir reads every CSV file in dir. Files that fail to parse are logged
// and skipped rather than aborting the load.
func LoadDir(dir string, logger *slog.Logger) ([]*SensorFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	return loadEntries(dir, entries, logger)
}

func loadEntries(dir string, entries []fs.DirEntry, logger *slog.Logger) ([]*SensorFile, error) {
	var files []*SensorFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		sf, err := ReadSensorCSV(path)
		if err != nil {
			logger.Warn("skipping sensor file", "path", path, "error", err)
			continue
		}
		logger.Info("loaded sensor file", "path", path, "column", sf.Column, "rows", len(sf.T))
		files = append(files, sf)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%q, %w", dir, ErrNoCSVFiles)
	}
	return files, nil
}
