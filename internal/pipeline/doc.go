// Package pipeline executes the stages of a dataset audit in sequence.
//
// A run goes through three steps over a shared model.Report: ScanStep
// lists files and reconciles the manifest, AnalyzeStep verifies, hashes
// and inspects the resolved images, and SummarizeStep derives histograms,
// warnings and the flat issue list. Each step can be replaced or extended
// without touching the others.
//
// BatchProcessor runs several datasets concurrently with a bounded
// errgroup.
package pipeline
