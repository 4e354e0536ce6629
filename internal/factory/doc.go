// Package factory drives the opacity build pipeline.
//
// A Builder reads raw cross sections for a species, interpolates every
// pressure/temperature record onto the canonical constant-R grid, decimates
// the result to the target resolution, applies the configured patches, and
// inserts the finished table into the store. BuildAll runs that pipeline for
// a list of species with bounded concurrency and reports per-species
// outcomes instead of stopping at the first failure.
package factory
