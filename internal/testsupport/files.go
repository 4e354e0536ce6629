package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteColumns writes one raw spectrum in the columns format: a
// "pressure temperature" header line followed by "wavenumber cross_section"
// rows. The file lands at <root>/<species>/<name>.
func WriteColumns(t testing.TB, root, species, name string, pressure, temperature float64, wavenumbers, values []float64) string {
	t.Helper()

	if len(wavenumbers) != len(values) {
		t.Fatalf("WriteColumns: %d wavenumbers for %d values", len(wavenumbers), len(values))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", formatFloat(pressure), formatFloat(temperature))
	for i := range wavenumbers {
		fmt.Fprintf(&b, "%s %s\n", formatFloat(wavenumbers[i]), formatFloat(values[i]))
	}
	return WriteFile(t, filepath.Join(root, species, name), b.String())
}

// Row is one line of a consolidated CSV.
type Row struct {
	Pressure     float64
	Temperature  float64
	Wavenumber   float64
	CrossSection float64
}

// WriteConsolidated writes an alkali individual file at
// <root>/alkalis/<species>.csv.
func WriteConsolidated(t testing.TB, root, species string, rows []Row) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("pressure,temperature,wavenumber,cross_section\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%s,%s,%s,%s\n", formatFloat(r.Pressure), formatFloat(r.Temperature),
			formatFloat(r.Wavenumber), formatFloat(r.CrossSection))
	}
	return WriteFile(t, filepath.Join(root, "alkalis", species+".csv"), b.String())
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
