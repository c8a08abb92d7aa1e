package model

import (
	"time"

	"github.com/nao1215/datalens/internal/config"
)

// Stage names used for Report.Timings.
const (
	StageScan   = "scan"
	StageVerify = "verify"
	StageHash   = "hash"
	StageStats  = "stats"
)

// Report is the complete output of one run over one dataset.
// It is built by the pipeline and never modified once returned.
type Report struct {
	// Config is the normalized configuration that produced the report.
	Config config.ScanConfig `json:"config"`

	// ConfigKey is Config.Key(), the memo key of this run.
	ConfigKey string `json:"config_key"`

	// GeneratedAt is when the run started.
	GeneratedAt time.Time `json:"generated_at"`

	// Scan is the scanner output. Nil only when scanning failed.
	Scan *ScanResult `json:"scan,omitempty"`

	// Check is the analysis output. Nil only when scanning failed.
	Check *CheckResult `json:"check,omitempty"`

	// Warnings are grouped by category.
	Warnings Warnings `json:"warnings"`

	// Issues is the flat issue list.
	Issues []Issue `json:"issues"`

	// Timings maps stage name to its duration.
	Timings map[string]time.Duration `json:"timings"`

	// Error is set when the run failed with a configuration error.
	Error error `json:"-"`

	// ErrorMessage is the string form of Error for serialization.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// NewReport creates an empty report for the given configuration.
func NewReport(cfg config.ScanConfig) *Report {
	return &Report{
		Config:      cfg,
		ConfigKey:   cfg.Key(),
		GeneratedAt: time.Now(),
		Warnings:    NewWarnings(),
		Timings:     make(map[string]time.Duration),
	}
}

// SetError records a fatal run error.
func (r *Report) SetError(err error) {
	r.Error = err
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}

// RecordTiming stores the duration of a stage.
func (r *Report) RecordTiming(stage string, d time.Duration) {
	if r.Timings == nil {
		r.Timings = make(map[string]time.Duration)
	}
	r.Timings[stage] = d
}

// IsLabeled reports whether labels are expected for this run. Filesystem
// scans without class inference are unlabeled by construction.
func (r *Report) IsLabeled() bool {
	return r.Config.Mode == config.ModeManifest || r.Config.InferClasses
}
