package merge

import (
	"fmt"
	"math"
	"sort"

	"opacitydb/internal/faults"
	"opacitydb/internal/opacity"
	"opacitydb/internal/resample"
	"opacitydb/internal/sources"
)

// Window bounds a patch in wavelength (μm). A zero bound is open.
type Window struct {
	MinWavelength float64
	MaxWavelength float64
}

func (w Window) validate() error {
	if w.MinWavelength < 0 || w.MaxWavelength < 0 {
		return faults.Wrap(faults.ErrInvalidRange, "merge", "window",
			fmt.Sprintf("negative wavelength bound %g-%g", w.MinWavelength, w.MaxWavelength), nil)
	}
	if w.MinWavelength > 0 && w.MaxWavelength > 0 && w.MinWavelength >= w.MaxWavelength {
		return faults.Wrap(faults.ErrInvalidRange, "merge", "window",
			fmt.Sprintf("min wavelength %g must be below max %g", w.MinWavelength, w.MaxWavelength), nil)
	}
	return nil
}

// wavenumberBounds converts the window to a closed wavenumber interval.
func (w Window) wavenumberBounds() (lo, hi float64) {
	lo, hi = 0, math.Inf(1)
	if w.MaxWavelength > 0 {
		lo = 1e4 / w.MaxWavelength
	}
	if w.MinWavelength > 0 {
		hi = 1e4 / w.MinWavelength
	}
	return lo, hi
}

// Patch is a named replacement source for one species.
type Patch struct {
	Name     string
	Species  string
	Priority int
	Window   Window

	// Pressures restricts the patch to specific pressures; nil broadcasts it
	// across every pressure of a matching temperature.
	Pressures []float64

	byTemp map[float64]*resample.Series
	static *resample.Series
}

// TemperaturePatch builds a patch whose replacement values depend on
// temperature. Table cells at temperatures absent from spectra are untouched.
func TemperaturePatch(name, species string, priority int, window Window, spectra map[float64]sources.Spectrum) (*Patch, error) {
	if err := window.validate(); err != nil {
		return nil, err
	}
	if len(spectra) == 0 {
		return nil, faults.Wrap(faults.ErrMissingData, "merge", "patch", fmt.Sprintf("%s has no temperatures", name), nil)
	}
	p := &Patch{Name: name, Species: species, Priority: priority, Window: window, byTemp: make(map[float64]*resample.Series, len(spectra))}
	for temp, spec := range spectra {
		series, err := resample.NewSeries(spec.Wavenumbers, spec.Values)
		if err != nil {
			return nil, fmt.Errorf("patch %s T=%gK: %w", name, temp, err)
		}
		p.byTemp[temp] = series
	}
	return p, nil
}

// StaticPatch builds a patch applied at every temperature and pressure.
func StaticPatch(name, species string, priority int, window Window, spectrum sources.Spectrum) (*Patch, error) {
	if err := window.validate(); err != nil {
		return nil, err
	}
	series, err := resample.NewSeries(spectrum.Wavenumbers, spectrum.Values)
	if err != nil {
		return nil, fmt.Errorf("patch %s: %w", name, err)
	}
	return &Patch{Name: name, Species: species, Priority: priority, Window: window, static: series}, nil
}

// Temperatures lists the temperatures the patch covers; nil means all.
func (p *Patch) Temperatures() []float64 {
	if p.static != nil {
		return nil
	}
	out := make([]float64, 0, len(p.byTemp))
	for t := range p.byTemp {
		out = append(out, t)
	}
	sort.Float64s(out)
	return out
}

func (p *Patch) seriesFor(key opacity.PT) *resample.Series {
	if len(p.Pressures) > 0 {
		covered := false
		for _, pressure := range p.Pressures {
			if opacity.SameValue(pressure, key.Pressure) {
				covered = true
				break
			}
		}
		if !covered {
			return nil
		}
	}
	if p.static != nil {
		return p.static
	}
	if s, ok := p.byTemp[key.Temperature]; ok {
		return s
	}
	for t, s := range p.byTemp {
		if opacity.SameValue(t, key.Temperature) {
			return s
		}
	}
	return nil
}

// Applied summarizes what one patch changed.
type Applied struct {
	Patch string
	Cells int
	Bins  int
}

// Apply returns a copy of table with every patch for its species applied in
// ascending priority order (ties keep the given order). Bins whose
// wavelength lies inside the patch window and inside the patch's native
// span take the patch value interpolated at that bin.
func Apply(table *opacity.CrossSectionTable, patches ...*Patch) (*opacity.CrossSectionTable, []Applied) {
	ordered := make([]*Patch, 0, len(patches))
	for _, p := range patches {
		if p != nil && p.Species == table.Species {
			ordered = append(ordered, p)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority < ordered[j].Priority })

	out := table.Clone()
	if len(ordered) == 0 {
		return out, nil
	}

	wavenumbers := table.Grid.Wavenumbers()
	keys := out.Keys()
	report := make([]Applied, 0, len(ordered))
	for _, p := range ordered {
		applied := Applied{Patch: p.Name}
		lo, hi := p.Window.wavenumberBounds()
		for _, key := range keys {
			series := p.seriesFor(key)
			if series == nil {
				continue
			}
			spanLo, spanHi := series.Span()
			from := sort.SearchFloat64s(wavenumbers, math.Max(lo, spanLo))
			values, _ := out.Get(key)
			touched := 0
			for i := from; i < len(wavenumbers) && wavenumbers[i] <= hi && wavenumbers[i] <= spanHi; i++ {
				v, _ := series.At(wavenumbers[i])
				values[i] = v
				touched++
			}
			if touched > 0 {
				applied.Cells++
				applied.Bins += touched
			}
		}
		report = append(report, applied)
	}
	return out, report
}
