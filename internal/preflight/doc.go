// Package preflight provides readiness checks for the filesystem paths a
// build depends on.
//
// The build command runs RunAll before reading any source data so that a
// multi-hour build does not fail late on an unreadable source root, a full
// disk, or a missing patch file. Individual checks are exported for reuse.
package preflight
