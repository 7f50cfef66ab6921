// Package ingest discovers raw sensor CSV files, parses the naming
// convention carrying location and variable, and merges the per-file series
// into one gap-filled observation table per monitoring location.
package ingest

import (
	"path/filepath"
	"strings"
)

// DefaultVariable names the measurement column when a file name carries no
// variable segment.
const DefaultVariable = "Measurement"

// LocationFromFile extracts the monitoring location from a sensor file name.
// Files prefixed with "RF" belong to the RainForest site; otherwise the first
// underscore-delimited token is the location.
func LocationFromFile(path string) string {
	base := filepath.Base(path)
	parts := strings.Split(base, "_")
	if strings.HasPrefix(strings.ToUpper(parts[0]), "RF") {
		return "RainForest"
	}
	return parts[0]
}

// VariableFromFile derives the variable name from a sensor file name by
// joining the segments between the location prefix and the trailing date
// segment, e.g. "RF_MountainTower_rad_at10m_FEB-2025.csv" yields
// "MountainTower_rad_at10m".
func VariableFromFile(path string) string {
	base := filepath.Base(path)
	parts := strings.Split(base, "_")
	if len(parts) <= 2 {
		return DefaultVariable
	}
	return strings.Join(parts[1:len(parts)-1], "_")
}
