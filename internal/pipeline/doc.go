// Package pipeline orchestrates image discovery, sequential per-image
// counting, overlay export, and the result table.
//
// Layout:
//   - discover.go: worklist construction (filter, hidden-file exclusion,
//     deterministic ordering)
//   - runner.go: the batch loop with per-image failure isolation
//   - report.go: colony_counts.csv
//   - stats.go: aggregate counters
//
// One bad image never aborts the batch: per-image errors are logged and the
// loop continues, leaving a gap in the result table for that stem. Only a
// missing input folder or a segmenter that fails to initialize is fatal.
package pipeline
