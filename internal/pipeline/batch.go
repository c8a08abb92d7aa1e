package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/datalens/internal/config"
	"github.com/nao1215/datalens/internal/model"
)

// DefaultBatchConcurrency is how many datasets are audited at once.
// Each audit already runs its own worker pools.
const DefaultBatchConcurrency = 2

// Runner produces the report of one dataset.
type Runner interface {
	Run(ctx context.Context, cfg config.ScanConfig) (*model.Report, error)
}

// BatchProcessor audits several datasets concurrently.
type BatchProcessor struct {
	runner      Runner
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent audits.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a BatchProcessor that delegates each dataset
// to runner.
func NewBatchProcessor(runner Runner, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		runner:      runner,
		concurrency: DefaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch audits every configuration and returns the reports in input
// order. A failed audit still yields a report carrying its error; the
// returned error is only set when ctx is canceled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, configs []config.ScanConfig) ([]*model.Report, error) {
	bp.logger.Info("starting batch processing",
		"datasets", len(configs),
		"concurrency", bp.concurrency,
	)
	start := time.Now()

	reports := make([]*model.Report, len(configs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, cfg := range configs {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			bp.logger.Info("auditing dataset",
				"root", cfg.DatasetRoot,
				"index", i+1,
				"total", len(configs),
			)

			report, err := bp.runner.Run(gctx, cfg)
			if report == nil {
				report = model.NewReport(cfg)
				report.SetError(err)
			}
			reports[i] = report

			if err != nil {
				bp.logger.Warn("audit failed", "root", cfg.DatasetRoot, "error", err)
				return nil
			}
			bp.logger.Info("audit completed", "root", cfg.DatasetRoot)
			return nil
		})
	}

	err := g.Wait()
	bp.logger.Info("batch processing complete",
		"datasets", len(configs),
		"elapsed", time.Since(start),
	)
	if err == nil {
		err = ctx.Err()
	}
	return reports, err
}
