// Package model defines the core data structures used throughout datalens.
//
// This package contains the following main types:
//   - ScanResult: The resolved image set plus manifest reconciliation data
//   - CheckResult: Corruption, duplicate, statistics and hygiene results
//   - Report: Everything produced by one run, consumed by the report writers
//   - Issue: One row of the flat issue list used for tabular export
//   - Summary: A compact count-only view stored in the run history
//
// Models live in their own package so that the scanner, the analyzers and
// the writers can share them without import cycles. All types serialize to
// JSON for report output and history storage, and none of them is mutated
// once a run has produced it.
package model
