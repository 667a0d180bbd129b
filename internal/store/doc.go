// Package store records conformance runs in SQLite.
//
// Tables:
//   - runs: one row per run with its tallies and the canonical JSON report
//   - results: one row per metric score (run, test, instance, channel, metric)
//   - property_checks: one row per bounds check outcome
//
// All list queries order by started_at, then id in binary order, so
// results are identical across calls.
package store
