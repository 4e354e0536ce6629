// Package opacity holds the in-memory tables that flow between the resampling
// pipeline, the merger, and the database store.
package opacity
