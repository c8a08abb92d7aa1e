// Package metrics exports run results in the Prometheus text format.
//
// datalens is a batch tool, so metrics are not served over HTTP. Instead a
// Recorder collects the counts of every finished run and writes them to a
// file for the node_exporter textfile collector.
package metrics
