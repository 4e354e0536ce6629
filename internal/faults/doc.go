// Package faults defines the error markers shared by every stage of the
// opacity pipeline.
//
// Stages wrap failures with Wrap so the message carries stage and operation
// context while errors.Is still resolves the marker. Batch builds use Kind to
// label per-species failures in their reports.
package faults
