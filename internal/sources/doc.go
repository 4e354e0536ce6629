// Package sources turns raw cross-section files into (pressure, temperature,
// wavenumber[], cross_section[]) records.
//
// Each supported layout is a Format tag with its own Reader; callers pick the
// tag explicitly and files are never sniffed. A Locator maps a species to the
// files under the source root, honouring the alkali single-file and
// per-alkali-folder conventions. Auxiliary tables (continuum coefficients and
// optical-band patches) are read here as well so every file format concern
// lives in one package.
package sources
