// Package engine runs audits and memoizes finished reports.
//
// The memo table is keyed by config.ScanConfig.Key() and bounded by an LRU.
// Concurrent runs of the same configuration share one execution. Failed
// runs are never cached. ClearCache empties the table, which is the only
// way to pick up filesystem changes for a configuration already audited.
package engine
