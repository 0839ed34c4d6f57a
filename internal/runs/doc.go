// Package runs persists pipeline runs and their append-only stage event
// trail in SQLite.
//
// A Run is one end-to-end execution of the meeting pipeline for a single
// source recording. StageEvents record started/completed/failed markers per
// stage and are never updated or deleted. Artifacts hold the aggregated
// transcript and summary text produced by a successful run.
package runs
