package sources

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"opacitydb/internal/spectral"
)

// Spectrum is a native (wavenumber, value) series.
type Spectrum struct {
	Wavenumbers []float64
	Values      []float64
}

func (s *Spectrum) add(nu, v float64) {
	s.Wavenumbers = append(s.Wavenumbers, nu)
	s.Values = append(s.Values, v)
}

// ContinuumSource holds collision-induced absorption coefficients keyed by
// pair and temperature, as read from a continuum table. It is read once and
// reused across insertions.
type ContinuumSource struct {
	Path  string
	pairs []string
	data  map[string]map[float64]*Spectrum
}

// Pairs lists the pair columns found in the table, in file order.
func (c *ContinuumSource) Pairs() []string {
	out := make([]string, len(c.pairs))
	copy(out, c.pairs)
	return out
}

// Temperatures returns the temperatures present for pair, ascending.
func (c *ContinuumSource) Temperatures(pair string) []float64 {
	byTemp := c.data[pair]
	out := make([]float64, 0, len(byTemp))
	for t := range byTemp {
		out = append(out, t)
	}
	sort.Float64s(out)
	return out
}

// Spectrum returns the native series for pair at temperature.
func (c *ContinuumSource) Spectrum(pair string, temperature float64) (Spectrum, bool) {
	s, ok := c.data[pair][temperature]
	if !ok {
		return Spectrum{}, false
	}
	return *s, true
}

// ReadContinuumTable reads a CSV with a temperature column, a wavenumber (or
// wavelength in μm) column, and one column per collision pair, e.g.
//
//	temperature,wavenumber,H2-H2,H2-He
func ReadContinuumTable(path string) (*ContinuumSource, error) {
	rc, err := openSource(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer rc.Close()

	table, axis, err := readSpectralTable(path, rc, []string{"temperature"}, true)
	if err != nil {
		return nil, err
	}
	if len(table.header) <= 2 {
		return nil, formatError(path, 1, "no collision pair columns", nil)
	}

	src := &ContinuumSource{Path: path, data: make(map[string]map[float64]*Spectrum)}
	for _, name := range table.header[2:] {
		src.pairs = append(src.pairs, name)
		src.data[name] = make(map[float64]*Spectrum)
	}
	for _, row := range table.rows {
		temp, nu := row[0], axis(row[1])
		for i, pair := range src.pairs {
			s, ok := src.data[pair][temp]
			if !ok {
				s = &Spectrum{}
				src.data[pair][temp] = s
			}
			s.add(nu, row[2+i])
		}
	}
	return src, nil
}

// OpticalPatchSource holds temperature-dependent replacement cross sections.
type OpticalPatchSource struct {
	Path string
	data map[float64]*Spectrum
}

// Temperatures returns the patch temperatures, ascending.
func (o *OpticalPatchSource) Temperatures() []float64 {
	out := make([]float64, 0, len(o.data))
	for t := range o.data {
		out = append(out, t)
	}
	sort.Float64s(out)
	return out
}

// Spectrum returns the native series at temperature.
func (o *OpticalPatchSource) Spectrum(temperature float64) (Spectrum, bool) {
	s, ok := o.data[temperature]
	if !ok {
		return Spectrum{}, false
	}
	return *s, true
}

// ReadOpticalPatch reads temperature,wavenumber,cross_section rows.
func ReadOpticalPatch(path string) (*OpticalPatchSource, error) {
	rc, err := openSource(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer rc.Close()

	table, axis, err := readSpectralTable(path, rc, []string{"temperature"}, false, "cross_section")
	if err != nil {
		return nil, err
	}
	src := &OpticalPatchSource{Path: path, data: make(map[float64]*Spectrum)}
	for _, row := range table.rows {
		s, ok := src.data[row[0]]
		if !ok {
			s = &Spectrum{}
			src.data[row[0]] = s
		}
		s.add(axis(row[1]), row[2])
	}
	if len(src.data) == 0 {
		return nil, formatError(path, 0, "no rows", nil)
	}
	return src, nil
}

// ReadStaticPatch reads wavenumber,cross_section rows with no temperature
// dependence (e.g. the ozone optical bands).
func ReadStaticPatch(path string) (Spectrum, error) {
	rc, err := openSource(path)
	if err != nil {
		return Spectrum{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer rc.Close()

	table, axis, err := readSpectralTable(path, rc, nil, false, "cross_section")
	if err != nil {
		return Spectrum{}, err
	}
	var s Spectrum
	for _, row := range table.rows {
		s.add(axis(row[0]), row[1])
	}
	if len(s.Wavenumbers) == 0 {
		return Spectrum{}, formatError(path, 0, "no rows", nil)
	}
	return s, nil
}

// readSpectralTable reads a CSV whose spectral axis is either a wavenumber
// column (cm⁻¹) or a wavelength column (μm). Row layout is: lead columns,
// the spectral axis, then the trailing required columns, then (when extra)
// every other column. The returned function converts the axis to wavenumber.
func readSpectralTable(path string, r io.Reader, lead []string, extra bool, trailing ...string) (*csvTable, func(float64) float64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, formatError(path, 0, "read", err)
	}
	firstLine := strings.ToLower(strings.SplitN(stripComments(string(data)), "\n", 2)[0])

	axisName := "wavenumber"
	convert := func(v float64) float64 { return v }
	if !strings.Contains(firstLine, "wavenumber") && strings.Contains(firstLine, "wavelength") {
		axisName = "wavelength"
		convert = spectral.WavelengthToWavenumber
	}

	required := append(append(append([]string{}, lead...), axisName), trailing...)
	table, err := readCSVColumns(path, strings.NewReader(string(data)), required, extra)
	if err != nil {
		return nil, nil, err
	}
	return table, convert, nil
}

func stripComments(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		return strings.Join(lines[i:], "\n")
	}
	return ""
}
