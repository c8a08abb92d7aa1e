package engine

import (
	"context"
	"log/slog"

	"github.com/go-git/go-billy/v5"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/nao1215/datalens/internal/config"
	"github.com/nao1215/datalens/internal/model"
	"github.com/nao1215/datalens/internal/pipeline"
)

// DefaultCacheSize is the number of reports kept in memory.
const DefaultCacheSize = 32

// Engine runs the audit pipeline with memoization.
type Engine struct {
	fs      billy.Filesystem
	logger  *slog.Logger
	cache   *lru.Cache[string, *model.Report]
	group   singleflight.Group
	newPipe func() *pipeline.Pipeline
	size    int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a custom logger for the engine and its pipelines.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithCacheSize sets how many reports are memoized. Non-positive values
// keep the default.
func WithCacheSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.size = n
		}
	}
}

// WithPipelineFactory replaces the standard audit pipeline.
func WithPipelineFactory(factory func() *pipeline.Pipeline) Option {
	return func(e *Engine) {
		e.newPipe = factory
	}
}

// New creates an Engine auditing datasets on fs.
func New(fs billy.Filesystem, opts ...Option) (*Engine, error) {
	e := &Engine{fs: fs, size: DefaultCacheSize}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.newPipe == nil {
		e.newPipe = func() *pipeline.Pipeline {
			return pipeline.NewAudit(e.fs, pipeline.WithLogger(e.logger))
		}
	}

	cache, err := lru.New[string, *model.Report](e.size)
	if err != nil {
		return nil, err
	}
	e.cache = cache
	return e, nil
}

// Run audits cfg, or returns the memoized report of an earlier successful
// run with the same configuration. cfg is normalized and validated first.
//
// On failure the returned report carries the error and is not cached.
func (e *Engine) Run(ctx context.Context, cfg config.ScanConfig) (*model.Report, error) {
	normalized, err := cfg.Normalize()
	if err != nil {
		return nil, err
	}
	if err := normalized.Validate(); err != nil {
		return nil, err
	}

	key := normalized.Key()
	if report, ok := e.cache.Get(key); ok {
		e.logger.Debug("using memoized report", "root", normalized.DatasetRoot)
		return report, nil
	}

	v, err, shared := e.group.Do(key, func() (any, error) {
		if report, ok := e.cache.Get(key); ok {
			return report, nil
		}
		report := model.NewReport(normalized)
		if err := e.newPipe().Execute(ctx, report); err != nil {
			return report, err
		}
		e.cache.Add(key, report)
		return report, nil
	})
	if shared {
		e.logger.Debug("joined in-flight audit", "root", normalized.DatasetRoot)
	}
	report, _ := v.(*model.Report)
	return report, err
}

// ClearCache drops every memoized report.
func (e *Engine) ClearCache() {
	e.cache.Purge()
}

// Cached reports whether a successful report for cfg is memoized.
func (e *Engine) Cached(cfg config.ScanConfig) bool {
	normalized, err := cfg.Normalize()
	if err != nil {
		return false
	}
	return e.cache.Contains(normalized.Key())
}

// Len returns the number of memoized reports.
func (e *Engine) Len() int {
	return e.cache.Len()
}
