package spectral

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"opacitydb/internal/faults"
)

// Mode records how a grid was produced.
type Mode string

const (
	ModeConstantR Mode = "constant_r"
	ModeDecimated Mode = "decimated"
	ModeExplicit  Mode = "explicit"
)

// MaxPoints bounds the size of a single grid. A full 0.3-15 μm range at
// R=1e6 needs roughly 4M points.
const MaxPoints = 1 << 26

// Grid is an immutable, strictly increasing wavenumber sampling.
type Grid struct {
	wavenumbers   []float64
	resolution    float64
	minWavelength float64
	maxWavelength float64
	mode          Mode
	stride        int
}

// NewConstantR builds a grid with constant resolving power R between
// minWavelength and maxWavelength (μm). Consecutive wavelengths differ by the
// factor (2R+1)/(2R-1), so Δλ/λ is constant; the ladder starts at
// minWavelength and may overshoot maxWavelength by less than one step.
func NewConstantR(minWavelength, maxWavelength, resolution float64) (*Grid, error) {
	if err := checkRange(minWavelength, maxWavelength); err != nil {
		return nil, err
	}
	if !finite(resolution) || resolution <= 0.5 {
		return nil, faults.Wrap(faults.ErrInvalidRange, "grid", "constant_r",
			fmt.Sprintf("resolution must be greater than 0.5, got %g", resolution), nil)
	}

	spacing := (2*resolution + 1) / (2*resolution - 1)
	steps := math.Ceil(math.Log(maxWavelength/minWavelength) / math.Log(spacing))
	count := int(steps) + 1
	if steps+1 > MaxPoints {
		return nil, faults.Wrap(faults.ErrInvalidRange, "grid", "constant_r",
			fmt.Sprintf("%.0f points exceeds limit of %d", steps+1, MaxPoints), nil)
	}

	// Wavelength ascends with j, so filling from the back yields ascending wavenumber.
	wavenumbers := make([]float64, count)
	for j := 0; j < count; j++ {
		wavelength := minWavelength * math.Pow(spacing, float64(j))
		wavenumbers[count-1-j] = WavelengthToWavenumber(wavelength)
	}

	return &Grid{
		wavenumbers:   wavenumbers,
		resolution:    resolution,
		minWavelength: minWavelength,
		maxWavelength: maxWavelength,
		mode:          ModeConstantR,
		stride:        1,
	}, nil
}

// NewFromWavenumbers wraps an explicit, strictly increasing wavenumber
// sampling. The slice is copied.
func NewFromWavenumbers(wavenumbers []float64, resolution float64) (*Grid, error) {
	if len(wavenumbers) == 0 {
		return nil, faults.Wrap(faults.ErrInvalidRange, "grid", "explicit", "no wavenumbers", nil)
	}
	if !finite(resolution) || resolution <= 0 {
		return nil, faults.Wrap(faults.ErrInvalidRange, "grid", "explicit",
			fmt.Sprintf("resolution must be positive, got %g", resolution), nil)
	}
	for i, nu := range wavenumbers {
		if !finite(nu) || nu <= 0 {
			return nil, faults.Wrap(faults.ErrInvalidRange, "grid", "explicit",
				fmt.Sprintf("wavenumber[%d]=%g is not positive", i, nu), nil)
		}
		if i > 0 && nu <= wavenumbers[i-1] {
			return nil, faults.Wrap(faults.ErrInvalidRange, "grid", "explicit",
				fmt.Sprintf("wavenumbers not strictly increasing at index %d", i), nil)
		}
	}
	out := make([]float64, len(wavenumbers))
	copy(out, wavenumbers)
	return &Grid{
		wavenumbers:   out,
		resolution:    resolution,
		minWavelength: WavenumberToWavelength(out[len(out)-1]),
		maxWavelength: WavenumberToWavelength(out[0]),
		mode:          ModeExplicit,
		stride:        1,
	}, nil
}

// Restore rebuilds a grid from persisted metadata without re-deriving it.
func Restore(wavenumbers []float64, resolution, minWavelength, maxWavelength float64, mode Mode, stride int) (*Grid, error) {
	g, err := NewFromWavenumbers(wavenumbers, resolution)
	if err != nil {
		return nil, err
	}
	if minWavelength > 0 && maxWavelength > minWavelength {
		g.minWavelength = minWavelength
		g.maxWavelength = maxWavelength
	}
	if mode != "" {
		g.mode = mode
	}
	if stride > 0 {
		g.stride = stride
	}
	return g, nil
}

// StrideFor returns round(oldR/newR), the decimation step that takes a grid
// at oldR to newR.
func StrideFor(oldR, newR float64) (int, error) {
	if !finite(oldR) || !finite(newR) || oldR <= 0 || newR <= 0 {
		return 0, faults.Wrap(faults.ErrInvalidRange, "grid", "stride",
			fmt.Sprintf("resolutions must be positive (old=%g new=%g)", oldR, newR), nil)
	}
	if newR > oldR {
		return 0, faults.Wrap(faults.ErrInvalidRange, "grid", "stride",
			fmt.Sprintf("target resolution %g exceeds source resolution %g", newR, oldR), nil)
	}
	stride := int(math.Round(oldR / newR))
	if stride < 1 {
		stride = 1
	}
	return stride, nil
}

// Decimate returns the grid reduced to newR by keeping every
// round(R/newR)-th wavenumber starting at index 0. A target equal to the
// grid's own resolution returns the receiver.
func (g *Grid) Decimate(newR float64) (*Grid, error) {
	if newR == g.resolution {
		return g, nil
	}
	stride, err := StrideFor(g.resolution, newR)
	if err != nil {
		return nil, err
	}
	out := g.decimate(stride)
	out.resolution = newR
	return out, nil
}

// DecimateBy keeps every stride-th wavenumber starting at index 0. The
// resulting resolution is R/stride.
func (g *Grid) DecimateBy(stride int) (*Grid, error) {
	if stride < 1 {
		return nil, faults.Wrap(faults.ErrInvalidRange, "grid", "decimate",
			fmt.Sprintf("stride must be at least 1, got %d", stride), nil)
	}
	if stride == 1 {
		return g, nil
	}
	out := g.decimate(stride)
	out.resolution = g.resolution / float64(stride)
	return out, nil
}

func (g *Grid) decimate(stride int) *Grid {
	n := (len(g.wavenumbers) + stride - 1) / stride
	values := make([]float64, 0, n)
	for i := 0; i < len(g.wavenumbers); i += stride {
		values = append(values, g.wavenumbers[i])
	}
	return &Grid{
		wavenumbers:   values,
		minWavelength: g.minWavelength,
		maxWavelength: g.maxWavelength,
		mode:          ModeDecimated,
		stride:        g.stride * stride,
	}
}

// Len reports the number of grid points.
func (g *Grid) Len() int { return len(g.wavenumbers) }

// Wavenumbers returns a copy of the grid in cm⁻¹, ascending.
func (g *Grid) Wavenumbers() []float64 {
	out := make([]float64, len(g.wavenumbers))
	copy(out, g.wavenumbers)
	return out
}

// Wavenumber returns the i-th grid point.
func (g *Grid) Wavenumber(i int) float64 { return g.wavenumbers[i] }

// Wavelength returns the i-th grid point in μm.
func (g *Grid) Wavelength(i int) float64 { return WavenumberToWavelength(g.wavenumbers[i]) }

// Wavelengths returns the grid in μm, in grid order (descending wavelength).
func (g *Grid) Wavelengths() []float64 {
	out := make([]float64, len(g.wavenumbers))
	for i, nu := range g.wavenumbers {
		out[i] = WavenumberToWavelength(nu)
	}
	return out
}

// Resolution is the spectral resolution R the grid was requested with.
func (g *Grid) Resolution() float64 { return g.resolution }

// MinWavelength is the requested lower bound in μm. On a constant-R grid it
// is exactly the wavelength of the last point.
func (g *Grid) MinWavelength() float64 { return g.minWavelength }

// MaxWavelength is the requested upper bound in μm, not the wavelength of the
// first point. On a constant-R grid the ladder is rounded up to a whole number
// of steps, so Wavelength(0) may exceed this bound by up to one spacing factor.
func (g *Grid) MaxWavelength() float64 { return g.maxWavelength }

// Mode reports how the grid points were generated.
func (g *Grid) Mode() Mode { return g.mode }

// Stride is the cumulative decimation step relative to the grid this one was
// derived from; 1 for grids that were built directly.
func (g *Grid) Stride() int { return g.stride }

// Equal reports whether two grids have identical points and resolution.
func (g *Grid) Equal(other *Grid) bool {
	if g == other {
		return true
	}
	if g == nil || other == nil {
		return false
	}
	if g.resolution != other.resolution || len(g.wavenumbers) != len(other.wavenumbers) {
		return false
	}
	for i, nu := range g.wavenumbers {
		if nu != other.wavenumbers[i] {
			return false
		}
	}
	return true
}

// Digest identifies the grid by its resolution and exact point values.
func (g *Grid) Digest() string {
	h := sha256.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(g.resolution))
	h.Write(buf[:])
	for _, nu := range g.wavenumbers {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(nu))
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (g *Grid) String() string {
	return fmt.Sprintf("grid[%s R=%g %g-%gμm n=%d]", g.mode, g.resolution, g.minWavelength, g.maxWavelength, len(g.wavenumbers))
}

func checkRange(minWavelength, maxWavelength float64) error {
	if !finite(minWavelength) || !finite(maxWavelength) || minWavelength <= 0 {
		return faults.Wrap(faults.ErrInvalidRange, "grid", "bounds",
			fmt.Sprintf("wavelength bounds must be positive and finite (min=%g max=%g)", minWavelength, maxWavelength), nil)
	}
	if minWavelength >= maxWavelength {
		return faults.Wrap(faults.ErrInvalidRange, "grid", "bounds",
			fmt.Sprintf("min wavelength %g must be below max wavelength %g", minWavelength, maxWavelength), nil)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
