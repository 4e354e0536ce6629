// Package store persists opacity tables in a single SQLite file.
//
// A database starts life as a skeleton (schema only) created by
// CreateSkeleton and is then filled by one InsertSpecies or InsertContinuum
// call per species or continuum batch. Each insertion is one transaction, so
// an interrupted write never leaves a partial record behind, and each holds
// an exclusive file lock beside the database for its duration so concurrent
// builders cannot interleave writes. Cross sections are stored as
// zstd-compressed little-endian float64 blobs whose index is the wavenumber
// bin of the row's grid.
//
// The schema is fixed at creation. Schema changes bump the version in
// schema.go; older databases must be rebuilt.
package store
