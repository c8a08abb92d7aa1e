// Package worker runs independent per-item jobs on a bounded pool.
//
// Each job returns its own result and results are stored by input index,
// so callers merge them on a single goroutine once the pool drains.
package worker
