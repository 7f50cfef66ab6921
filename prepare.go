// Package simulad fits multivariate autoregressive models on merged
// environmental sensor tables and simulates what-if scenarios: a named set
// of variable adjustments applied to the most recent observations is
// propagated through the fitted model over a future horizon.
package simulad

import (
	"math"
	"strings"

	"github.com/simulad/simulad/timetable"
)

// ConvertTemperatures converts every column whose name marks it as a Celsius
// temperature to Fahrenheit with F = C*1.8 + 32, renaming the degC marker to
// degF. Renaming makes the conversion idempotent: a converted column no
// longer matches the marker. The input table is not mutated.
func ConvertTemperatures(tbl *timetable.Table) *timetable.Table {
	conv := tbl.Copy()
	for j, col := range conv.Columns {
		lower := strings.ToLower(col)
		if !strings.Contains(lower, "temp") || !strings.Contains(lower, "degc") {
			continue
		}
		for i := range conv.Data {
			if math.IsNaN(conv.Data[i][j]) {
				continue
			}
			conv.Data[i][j] = conv.Data[i][j]*1.8 + 32.0
		}
		renamed := strings.ReplaceAll(col, "degC", "degF")
		renamed = strings.ReplaceAll(renamed, "DEGC", "degF")
		conv.Columns[j] = renamed
	}
	return conv
}
