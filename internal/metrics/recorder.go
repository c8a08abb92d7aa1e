package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nao1215/datalens/internal/config"
	"github.com/nao1215/datalens/internal/model"
)

const namespace = "datalens"

// Recorder holds per-dataset gauges in a private registry.
type Recorder struct {
	registry *prometheus.Registry

	images          *prometheus.GaugeVec
	issues          *prometheus.GaugeVec
	duplicateGroups *prometheus.GaugeVec
	warnings        *prometheus.GaugeVec
	coverage        *prometheus.GaugeVec
	stageSeconds    *prometheus.GaugeVec
	lastRun         *prometheus.GaugeVec
	failed          *prometheus.GaugeVec
}

// NewRecorder creates a Recorder with every collector registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		images: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dataset",
			Name:      "images",
			Help:      "Images by state: scanned, resolved, missing, orphan.",
		}, []string{"dataset", "state"}),
		issues: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dataset",
			Name:      "issues",
			Help:      "Issues by type and severity.",
		}, []string{"dataset", "type", "severity"}),
		duplicateGroups: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dataset",
			Name:      "duplicate_groups",
			Help:      "Duplicate groups found with the configured method.",
		}, []string{"dataset", "method"}),
		warnings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dataset",
			Name:      "warnings",
			Help:      "Warning messages by category.",
		}, []string{"dataset", "category"}),
		coverage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dataset",
			Name:      "manifest_coverage_ratio",
			Help:      "Resolved images divided by manifest rows.",
		}, []string{"dataset"}),
		stageSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "stage_seconds",
			Help:      "Wall time of each stage of the last run.",
		}, []string{"dataset", "stage"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "last_timestamp_seconds",
			Help:      "Unix time the last run started.",
		}, []string{"dataset"}),
		failed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "failed",
			Help:      "1 when the last run ended with a configuration error.",
		}, []string{"dataset"}),
	}
	r.registry.MustRegister(
		r.images,
		r.issues,
		r.duplicateGroups,
		r.warnings,
		r.coverage,
		r.stageSeconds,
		r.lastRun,
		r.failed,
	)
	return r
}

// Registry returns the registry holding the recorded gauges.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Record sets every gauge for the report's dataset. Recording the same
// dataset again overwrites its values.
func (r *Recorder) Record(report *model.Report) {
	ds := report.Config.DatasetRoot

	r.lastRun.WithLabelValues(ds).Set(float64(report.GeneratedAt.Unix()))
	if report.Error != nil || report.ErrorMessage != "" {
		r.failed.WithLabelValues(ds).Set(1)
		return
	}
	r.failed.WithLabelValues(ds).Set(0)

	for stage, d := range report.Timings {
		r.stageSeconds.WithLabelValues(ds, stage).Set(d.Seconds())
	}
	for _, g := range report.Warnings {
		r.warnings.WithLabelValues(ds, g.Category).Set(float64(len(g.Messages)))
	}

	if sr := report.Scan; sr != nil {
		r.images.WithLabelValues(ds, "scanned").Set(float64(sr.TotalImagesScanned))
		r.images.WithLabelValues(ds, "resolved").Set(float64(sr.ResolvedImages))
		r.images.WithLabelValues(ds, "missing").Set(float64(len(sr.MissingImages)))
		r.images.WithLabelValues(ds, "orphan").Set(float64(len(sr.OrphanImages)))
		if report.Config.Mode == config.ModeManifest {
			r.coverage.WithLabelValues(ds).Set(sr.Coverage())
		}
	}
	if cr := report.Check; cr != nil {
		r.duplicateGroups.WithLabelValues(ds, cr.HashMethod).Set(float64(len(cr.Duplicates)))
	}

	counts := make(map[model.IssueType]int)
	for _, is := range report.Issues {
		counts[is.Type]++
	}
	for _, t := range []model.IssueType{model.IssueMissing, model.IssueOrphan, model.IssueCorrupted, model.IssueDuplicate} {
		sev := model.GetSeverity(t).String()
		r.issues.WithLabelValues(ds, string(t), sev).Set(float64(counts[t]))
	}
}

// WriteTextfile atomically writes the registry in the text exposition
// format to path.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
