package resample

import (
	"fmt"

	"opacitydb/internal/faults"
	"opacitydb/internal/spectral"
)

// SafeStride is the smallest stride considered free of aliasing.
const SafeStride = 100

// Stride returns round(oldR/newR).
func Stride(oldR, newR float64) (int, error) {
	return spectral.StrideFor(oldR, newR)
}

// AliasingRisk reports whether decimating oldR to newR keeps fewer than
// SafeStride canonical points per output point. Equal resolutions never
// decimate and carry no risk.
func AliasingRisk(oldR, newR float64) bool {
	if newR == oldR {
		return false
	}
	return newR*SafeStride > oldR
}

// Decimate keeps values[0], values[stride], values[2*stride], ...
func Decimate(values []float64, stride int) []float64 {
	if stride <= 1 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, 0, (len(values)+stride-1)/stride)
	for i := 0; i < len(values); i += stride {
		out = append(out, values[i])
	}
	return out
}

// Resample reduces values on grid to newR. When newR equals the grid's
// resolution the inputs are returned unchanged (direct-insert mode).
func Resample(values []float64, grid *spectral.Grid, newR float64) ([]float64, *spectral.Grid, error) {
	if len(values) != grid.Len() {
		return nil, nil, faults.Wrap(faults.ErrIntegrity, "resample", "align",
			fmt.Sprintf("%d values for %d grid points", len(values), grid.Len()), nil)
	}
	if newR == grid.Resolution() {
		return values, grid, nil
	}
	target, err := grid.Decimate(newR)
	if err != nil {
		return nil, nil, err
	}
	stride, err := Stride(grid.Resolution(), newR)
	if err != nil {
		return nil, nil, err
	}
	return Decimate(values, stride), target, nil
}
