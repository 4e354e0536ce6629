// Package spectral builds the wavenumber grids every other stage aligns to.
//
// Grids are stored in wavenumber (cm⁻¹, strictly increasing) but are
// described by the wavelength window (μm) and resolving power R the operator
// asks for. A Grid is immutable once built; accessors hand out copies so it
// can be shared read-only across pipeline stages and goroutines.
package spectral
