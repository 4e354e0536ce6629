package opacity

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"opacitydb/internal/faults"
	"opacitydb/internal/spectral"
)

// Convention describes where a species' raw files live under the source root.
type Convention string

const (
	ConventionMolecule Convention = "molecule"
	ConventionAlkali   Convention = "alkali"
)

var alkalis = map[string]struct{}{"Li": {}, "Na": {}, "K": {}, "Rb": {}, "Cs": {}}

// IsAlkali reports whether name is one of the alkali metals that use the
// alkali file conventions.
func IsAlkali(name string) bool {
	_, ok := alkalis[strings.TrimSpace(name)]
	return ok
}

// Species identifies a molecule or atom and how to locate its raw data.
type Species struct {
	Name       string
	Convention Convention
	Format     string
}

// NewSpecies classifies name by convention.
func NewSpecies(name, format string) Species {
	name = strings.TrimSpace(name)
	conv := ConventionMolecule
	if IsAlkali(name) {
		conv = ConventionAlkali
	}
	return Species{Name: name, Convention: conv, Format: format}
}

// PT is a (pressure [bar], temperature [K]) key.
type PT struct {
	Pressure    float64
	Temperature float64
}

func (p PT) String() string {
	return fmt.Sprintf("P=%gbar T=%gK", p.Pressure, p.Temperature)
}

// keyTolerance is the relative tolerance used when matching caller-supplied
// pressures and temperatures against stored keys.
const keyTolerance = 1e-6

// SameValue compares two key coordinates with a relative tolerance.
func SameValue(a, b float64) bool {
	if a == b {
		return true
	}
	scale := math.Max(math.Abs(a), math.Abs(b))
	return math.Abs(a-b) <= keyTolerance*scale
}

// CrossSectionTable maps PT points to cross sections aligned with Grid.
type CrossSectionTable struct {
	Species string
	Grid    *spectral.Grid
	entries map[PT][]float64
}

// NewCrossSectionTable creates an empty table for species on grid.
func NewCrossSectionTable(species string, grid *spectral.Grid) *CrossSectionTable {
	return &CrossSectionTable{Species: species, Grid: grid, entries: make(map[PT][]float64)}
}

// Set stores values for key; values must have one entry per grid point.
func (t *CrossSectionTable) Set(key PT, values []float64) error {
	if t.Grid == nil {
		return faults.Wrap(faults.ErrIntegrity, "table", "set", "table has no grid", nil)
	}
	if len(values) != t.Grid.Len() {
		return faults.Wrap(faults.ErrIntegrity, "table", "set",
			fmt.Sprintf("%s %s: %d values for %d grid points", t.Species, key, len(values), t.Grid.Len()), nil)
	}
	t.entries[key] = values
	return nil
}

// Get returns the values stored for key, matching coordinates with tolerance.
func (t *CrossSectionTable) Get(key PT) ([]float64, bool) {
	if values, ok := t.entries[key]; ok {
		return values, true
	}
	for k, values := range t.entries {
		if SameValue(k.Pressure, key.Pressure) && SameValue(k.Temperature, key.Temperature) {
			return values, true
		}
	}
	return nil, false
}

// Keys returns all PT keys ordered by pressure, then temperature.
func (t *CrossSectionTable) Keys() []PT {
	keys := make([]PT, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	SortPTs(keys)
	return keys
}

// Len reports the number of PT entries.
func (t *CrossSectionTable) Len() int { return len(t.entries) }

// Pressures returns the distinct pressures in ascending order.
func (t *CrossSectionTable) Pressures() []float64 {
	seen := make(map[float64]struct{})
	for k := range t.entries {
		seen[k.Pressure] = struct{}{}
	}
	return sortedKeys(seen)
}

// Temperatures returns the distinct temperatures in ascending order.
func (t *CrossSectionTable) Temperatures() []float64 {
	seen := make(map[float64]struct{})
	for k := range t.entries {
		seen[k.Temperature] = struct{}{}
	}
	return sortedKeys(seen)
}

// Validate checks every entry is aligned with the grid and finite.
func (t *CrossSectionTable) Validate() error {
	if t.Grid == nil {
		return faults.Wrap(faults.ErrIntegrity, "table", "validate", "table has no grid", nil)
	}
	if strings.TrimSpace(t.Species) == "" {
		return faults.Wrap(faults.ErrIntegrity, "table", "validate", "species name is empty", nil)
	}
	for _, key := range t.Keys() {
		values := t.entries[key]
		if len(values) != t.Grid.Len() {
			return faults.Wrap(faults.ErrIntegrity, "table", "validate",
				fmt.Sprintf("%s %s: %d values for %d grid points", t.Species, key, len(values), t.Grid.Len()), nil)
		}
		for i, v := range values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return faults.Wrap(faults.ErrIntegrity, "table", "validate",
					fmt.Sprintf("%s %s: non-finite value at bin %d", t.Species, key, i), nil)
			}
		}
	}
	return nil
}

// Clone deep-copies the table; the grid is shared since it is immutable.
func (t *CrossSectionTable) Clone() *CrossSectionTable {
	out := NewCrossSectionTable(t.Species, t.Grid)
	for k, v := range t.entries {
		cp := make([]float64, len(v))
		copy(cp, v)
		out.entries[k] = cp
	}
	return out
}

// ContinuumTable maps collision pairs to per-temperature absorption
// coefficients aligned with Grid.
type ContinuumTable struct {
	Grid    *spectral.Grid
	entries map[string]map[float64][]float64
}

// NewContinuumTable creates an empty continuum table on grid.
func NewContinuumTable(grid *spectral.Grid) *ContinuumTable {
	return &ContinuumTable{Grid: grid, entries: make(map[string]map[float64][]float64)}
}

// Set stores coefficients for pair at temperature.
func (c *ContinuumTable) Set(pair string, temperature float64, values []float64) error {
	if c.Grid == nil {
		return faults.Wrap(faults.ErrIntegrity, "continuum", "set", "table has no grid", nil)
	}
	if len(values) != c.Grid.Len() {
		return faults.Wrap(faults.ErrIntegrity, "continuum", "set",
			fmt.Sprintf("%s T=%gK: %d values for %d grid points", pair, temperature, len(values), c.Grid.Len()), nil)
	}
	byTemp, ok := c.entries[pair]
	if !ok {
		byTemp = make(map[float64][]float64)
		c.entries[pair] = byTemp
	}
	byTemp[temperature] = values
	return nil
}

// Get returns the coefficients for pair at temperature.
func (c *ContinuumTable) Get(pair string, temperature float64) ([]float64, bool) {
	byTemp, ok := c.entries[pair]
	if !ok {
		return nil, false
	}
	if values, ok := byTemp[temperature]; ok {
		return values, true
	}
	for t, values := range byTemp {
		if SameValue(t, temperature) {
			return values, true
		}
	}
	return nil, false
}

// Pairs returns the stored pair names in sorted order.
func (c *ContinuumTable) Pairs() []string {
	out := make([]string, 0, len(c.entries))
	for pair := range c.entries {
		out = append(out, pair)
	}
	sort.Strings(out)
	return out
}

// Temperatures returns the temperatures stored for pair in ascending order.
func (c *ContinuumTable) Temperatures(pair string) []float64 {
	seen := make(map[float64]struct{})
	for t := range c.entries[pair] {
		seen[t] = struct{}{}
	}
	return sortedKeys(seen)
}

// SortPTs orders keys by pressure, then temperature.
func SortPTs(keys []PT) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Pressure != keys[j].Pressure {
			return keys[i].Pressure < keys[j].Pressure
		}
		return keys[i].Temperature < keys[j].Temperature
	})
}

func sortedKeys(set map[float64]struct{}) []float64 {
	out := make([]float64, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}
