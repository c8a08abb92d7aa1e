// Package check analyzes a resolved image set: structural verification,
// duplicate fingerprints, dimension statistics, hygiene signals, label
// balance and extension consistency.
//
// Per-file failures never abort an analysis. They are recorded in the
// returned results or skipped, and logged at debug level.
package check
