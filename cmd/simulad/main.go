package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/profile"
	"github.com/simulad/simulad"
	"github.com/simulad/simulad/experts"
	"github.com/simulad/simulad/ingest"
	"github.com/simulad/simulad/stats"
	"github.com/simulad/simulad/textgen"
	"github.com/simulad/simulad/timetable"
	"github.com/simulad/simulad/univariate"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	cpuProfile bool

	logger *slog.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "simulad",
		Short: "Merge environmental sensor data, forecast it, and run what-if simulations",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		},
	}
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&cpuProfile, "cpuprofile", false, "write a cpu profile to the working directory")

	rootCmd.AddCommand(mergeCmd())
	rootCmd.AddCommand(forecastCmd())
	rootCmd.AddCommand(simulateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func mergeCmd() *cobra.Command {
	var (
		rawDir       string
		out          string
		dropOutliers bool
	)
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge raw sensor CSV exports into one gap-filled table per location",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cpuProfile {
				defer profile.Start(profile.ProfilePath(".")).Stop()
			}

			files, err := ingest.LoadDir(rawDir, logger)
			if err != nil {
				return err
			}
			if dropOutliers {
				for _, sf := range files {
					idx := stats.DetectOutliers(sf.Y, 0.1, 0.9, 3.0)
					for _, i := range idx {
						sf.Y[i] = math.NaN()
					}
					if len(idx) > 0 {
						logger.Info("dropped outliers", "column", sf.Column, "count", len(idx))
					}
				}
			}
			merged, err := ingest.MergeByLocation(files)
			if err != nil {
				return err
			}
			if err := ingest.WriteMerged(out, merged); err != nil {
				return err
			}
			for loc, tbl := range merged {
				logger.Info("merged location", "location", loc, "rows", tbl.Len(), "columns", len(tbl.Columns))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&rawDir, "raw-dir", "data/raw", "directory holding the raw sensor CSV files")
	cmd.Flags().StringVar(&out, "out", "merged.csv", "merged output CSV path")
	cmd.Flags().BoolVar(&dropOutliers, "drop-outliers", false, "blank out extreme readings before merging")
	return cmd
}

func forecastCmd() *cobra.Command {
	var (
		data     string
		location string
		variable string
		steps    int
		method   string
	)
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast a single variable with a univariate model",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cpuProfile {
				defer profile.Start(profile.ProfilePath(".")).Stop()
			}

			tbl, err := locationTable(data, location)
			if err != nil {
				return err
			}
			series, err := singleColumn(tbl, variable)
			if err != nil {
				return err
			}

			var fcst *timetable.Table
			switch method {
			case "ar":
				fcst, err = univariate.ForecastAR(series, steps)
			case "additive":
				fcst, err = univariate.ForecastAdditive(series, steps, univariate.NewDefaultAdditiveOptions())
			default:
				return fmt.Errorf("unknown forecast method %q", method)
			}
			if err != nil {
				return err
			}
			logger.Info("forecast complete", "location", location, "variable", variable, "method", method, "steps", steps)
			return writeJSON(cmd.OutOrStdout(), tableJSON(fcst))
		},
	}
	cmd.Flags().StringVar(&data, "data", "merged.csv", "merged CSV path")
	cmd.Flags().StringVar(&location, "location", "", "monitoring location")
	cmd.Flags().StringVar(&variable, "variable", "", "variable column to forecast")
	cmd.Flags().IntVar(&steps, "steps", simulad.DefaultHorizon, "forecast horizon in hours")
	cmd.Flags().StringVar(&method, "method", "ar", "forecast method, ar or additive")
	cobra.CheckErr(cmd.MarkFlagRequired("location"))
	cobra.CheckErr(cmd.MarkFlagRequired("variable"))
	return cmd
}

func simulateCmd() *cobra.Command {
	var (
		data      string
		location  string
		steps     int
		maxLag    int
		adjusts   []string
		plotPath  string
		summarize bool
		model     string
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Fit a multivariate model and run a what-if scenario",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cpuProfile {
				defer profile.Start(profile.ProfilePath(".")).Stop()
			}

			tbl, err := locationTable(data, location)
			if err != nil {
				return err
			}

			adjustments, err := parseAdjustments(adjusts)
			if err != nil {
				return err
			}

			if verbose && len(tbl.Columns) > 1 {
				if vif, err := stats.VarianceInflationFactor(tbl); err == nil {
					for name, v := range vif {
						logger.Debug("collinearity", "column", name, "vif", v)
					}
				}
			}

			fitted, err := simulad.Fit(tbl, maxLag)
			if err != nil {
				return err
			}
			logger.Info("model fitted", "location", location, "lag", fitted.Lag(), "variables", len(fitted.Variables()))

			baseline, err := simulad.Simulate(tbl, fitted, nil, steps)
			if err != nil {
				return err
			}
			adjusted, err := simulad.Simulate(tbl, fitted, adjustments, steps)
			if err != nil {
				return err
			}

			if plotPath != "" {
				history := simulad.ConvertTemperatures(tbl)
				if err := simulad.PlotScenario(plotPath, history, baseline, adjusted); err != nil {
					return err
				}
				logger.Info("scenario plot written", "path", plotPath)
			}

			out := scenarioJSON{
				Location:    location,
				Adjustments: adjustments,
				Baseline:    tableJSON(baseline),
				Adjusted:    tableJSON(adjusted),
			}
			if summarize {
				gen := textgen.NewOllama(model)
				summary, err := experts.Summarize(context.Background(), gen, describeScenario(location, tbl, adjustments, adjusted))
				if err != nil {
					logger.Warn("unable to summarize scenario", "error", err)
				} else {
					out.Summary = summary
				}
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&data, "data", "merged.csv", "merged CSV path")
	cmd.Flags().StringVar(&location, "location", "", "monitoring location")
	cmd.Flags().IntVar(&steps, "steps", simulad.DefaultHorizon, "simulation horizon in hours")
	cmd.Flags().IntVar(&maxLag, "max-lag", simulad.DefaultMaxLag, "maximum lag order to consider")
	cmd.Flags().StringArrayVar(&adjusts, "adjust", nil, "variable adjustment as name=delta, repeatable")
	cmd.Flags().StringVar(&plotPath, "plot", "", "write an HTML scenario plot to this path")
	cmd.Flags().BoolVar(&summarize, "summarize", false, "generate a natural language summary with a local model")
	cmd.Flags().StringVar(&model, "model", textgen.DefaultModel, "ollama model used with --summarize")
	cobra.CheckErr(cmd.MarkFlagRequired("location"))
	return cmd
}

func locationTable(path, location string) (*timetable.Table, error) {
	tables, err := ingest.ReadMerged(path)
	if err != nil {
		return nil, err
	}
	tbl, ok := tables[location]
	if !ok {
		known := make([]string, 0, len(tables))
		for loc := range tables {
			known = append(known, loc)
		}
		return nil, fmt.Errorf("unknown location %q, have %s", location, strings.Join(known, ", "))
	}
	return tbl, nil
}

func singleColumn(tbl *timetable.Table, name string) (*timetable.Table, error) {
	col, err := tbl.Column(name)
	if err != nil {
		return nil, err
	}
	return timetable.FromColumns(tbl.T, []string{name}, col)
}

func parseAdjustments(pairs []string) (simulad.Adjustments, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	adjustments := make(simulad.Adjustments, len(pairs))
	for _, pair := range pairs {
		name, raw, found := strings.Cut(pair, "=")
		if !found || name == "" {
			return nil, fmt.Errorf("invalid adjustment %q, expected name=delta", pair)
		}
		delta, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid adjustment delta in %q, %w", pair, err)
		}
		adjustments[name] = delta
	}
	return adjustments, nil
}

type seriesPoint struct {
	Time   time.Time          `json:"time"`
	Values map[string]float64 `json:"values"`
}

type scenarioJSON struct {
	Location    string              `json:"location"`
	Adjustments simulad.Adjustments `json:"adjustments,omitempty"`
	Baseline    []seriesPoint       `json:"baseline"`
	Adjusted    []seriesPoint       `json:"adjusted"`
	Summary     string              `json:"summary,omitempty"`
}

func tableJSON(tbl *timetable.Table) []seriesPoint {
	points := make([]seriesPoint, tbl.Len())
	for i := range points {
		values := make(map[string]float64, len(tbl.Columns))
		for j, c := range tbl.Columns {
			if math.IsNaN(tbl.Data[i][j]) {
				continue
			}
			values[c] = tbl.Data[i][j]
		}
		points[i] = seriesPoint{Time: tbl.T[i], Values: values}
	}
	return points
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func describeScenario(location string, history *timetable.Table, adjustments simulad.Adjustments, adjusted *timetable.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Location %s over %d hours.", location, adjusted.Len())
	for name, delta := range adjustments {
		fmt.Fprintf(&b, " Adjusted %s by %+g.", name, delta)
	}
	for name, s := range stats.Describe(history) {
		if math.IsNaN(s.Mean) {
			continue
		}
		fmt.Fprintf(&b, " Historical %s mean %.2f (min %.2f, max %.2f).", name, s.Mean, s.Min, s.Max)
	}
	for j, c := range adjusted.Columns {
		first := adjusted.Data[0][j]
		last := adjusted.Data[adjusted.Len()-1][j]
		fmt.Fprintf(&b, " %s moves from %.2f to %.2f.", c, first, last)
	}
	return b.String()
}
