// Package resample places native spectra onto canonical grids and reduces
// canonical grids to the requested resolution.
//
// Interpolation is piecewise linear in wavenumber and never extrapolates:
// grid points outside a source's measured span are zero. Resolution reduction
// is point decimation with stride round(oldR/newR) starting at index 0, which
// keeps line-center peaks rather than conserving band-integrated energy.
// Strides below 100 alias line structure; AliasingRisk flags them.
package resample
