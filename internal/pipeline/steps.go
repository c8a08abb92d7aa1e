package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-git/go-billy/v5"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/datalens/internal/check"
	"github.com/nao1215/datalens/internal/model"
	"github.com/nao1215/datalens/internal/scan"
)

// Step names.
const (
	StepScan      = "scan"
	StepAnalyze   = "analyze"
	StepSummarize = "summarize"
)

// ScanStep lists the dataset and reconciles it with the manifest.
type ScanStep struct {
	scanner *scan.Scanner
	logger  *slog.Logger
}

// NewScanStep creates a ScanStep reading from fs.
func NewScanStep(fs billy.Filesystem, logger *slog.Logger) *ScanStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScanStep{
		scanner: scan.New(fs, scan.WithLogger(logger)),
		logger:  logger,
	}
}

// Name returns the step name.
func (s *ScanStep) Name() string {
	return StepScan
}

// Do fills report.Scan.
func (s *ScanStep) Do(ctx context.Context, report *model.Report) error {
	start := time.Now()
	result, err := s.scanner.Scan(ctx, report.Config)
	if err != nil {
		return err
	}
	report.Scan = result
	report.RecordTiming(model.StageScan, time.Since(start))

	s.logger.Info("scan finished",
		"root", report.Config.DatasetRoot,
		"images", result.ResolvedImages,
		"elapsed", report.Timings[model.StageScan],
	)
	return nil
}

// AnalyzeStep verifies, fingerprints and inspects the resolved images.
// The three analyses run concurrently, each on its own worker pool.
type AnalyzeStep struct {
	fs     billy.Filesystem
	logger *slog.Logger
}

// NewAnalyzeStep creates an AnalyzeStep reading from fs.
func NewAnalyzeStep(fs billy.Filesystem, logger *slog.Logger) *AnalyzeStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyzeStep{fs: fs, logger: logger}
}

// Name returns the step name.
func (s *AnalyzeStep) Name() string {
	return StepAnalyze
}

// Do fills report.Check with corruption, duplicate and hygiene results.
func (s *AnalyzeStep) Do(ctx context.Context, report *model.Report) error {
	if report.Scan == nil {
		return fmt.Errorf("%s step requires a scan result", StepAnalyze)
	}
	cfg := report.Config
	paths := report.Scan.Paths()
	checker := check.New(s.fs, check.WithWorkers(cfg.Workers), check.WithLogger(s.logger))

	var (
		corrupted  []model.FileError
		duplicates []model.DuplicateGroup
		failures   []model.FileError
		details    []model.ImageStat
		timings    [3]time.Duration
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		var err error
		corrupted, err = checker.Verify(gctx, paths)
		timings[0] = time.Since(start)
		return err
	})
	g.Go(func() error {
		start := time.Now()
		var err error
		duplicates, failures, err = checker.Duplicates(gctx, paths, cfg.Hash)
		timings[1] = time.Since(start)
		return err
	})
	if cfg.ComputeStats {
		g.Go(func() error {
			start := time.Now()
			var err error
			details, err = checker.Details(gctx, paths)
			timings[2] = time.Since(start)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	report.RecordTiming(model.StageVerify, timings[0])
	report.RecordTiming(model.StageHash, timings[1])
	report.RecordTiming(model.StageStats, timings[2])

	th := model.DefaultThresholds()
	report.Check = &model.CheckResult{
		Corrupted:    corrupted,
		Duplicates:   duplicates,
		HashFailures: failures,
		HashMethod:   cfg.Hash.String(),
		ExtCounts:    check.CountExtensions(paths),
		Thresholds:   th,
	}
	if cfg.ComputeStats {
		report.Check.Stats = check.BuildStats(details)
		report.Check.Hygiene = check.AnalyzeHygiene(details, th)
	}

	s.logger.Info("analysis finished",
		"root", cfg.DatasetRoot,
		"corrupted", len(corrupted),
		"duplicate_groups", len(duplicates),
		"verify", timings[0],
		"hash", timings[1],
		"stats", timings[2],
	)
	return nil
}

// SummarizeStep derives the label histogram, warnings and issues.
type SummarizeStep struct{}

// NewSummarizeStep creates a SummarizeStep.
func NewSummarizeStep() *SummarizeStep {
	return &SummarizeStep{}
}

// Name returns the step name.
func (s *SummarizeStep) Name() string {
	return StepSummarize
}

// Do fills the label fields of report.Check, report.Warnings and report.Issues.
func (s *SummarizeStep) Do(_ context.Context, report *model.Report) error {
	if report.Scan == nil || report.Check == nil {
		return fmt.Errorf("%s step requires scan and check results", StepSummarize)
	}
	report.Check.LabelCounts = check.CountLabels(report.Scan.Images)
	report.Check.ImbalanceWarning = check.Imbalanced(report.Check.LabelCounts, report.Check.Thresholds.Imbalance)
	report.Warnings = check.BuildWarnings(report.Config, report.Scan, report.Check)
	report.Issues = model.BuildIssues(report.Scan, report.Check)
	return nil
}

// NewAudit builds the standard scan, analyze and summarize pipeline.
func NewAudit(fs billy.Filesystem, opts ...Option) *Pipeline {
	p := New(opts...)
	p.AddSteps(
		NewScanStep(fs, p.logger),
		NewAnalyzeStep(fs, p.logger),
		NewSummarizeStep(),
	)
	return p
}
