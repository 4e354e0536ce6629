// Package merge reconciles resampled molecular tables with auxiliary data.
//
// Patches replace, never add to, the molecular value inside their coverage:
// a patch marks a region where the line-by-line calculation is known to be
// wrong or missing and a trusted measurement is substituted. Patches are
// applied in ascending priority, so the highest priority wins where coverage
// overlaps. Everything outside a patch's coverage is left bitwise unchanged.
package merge
