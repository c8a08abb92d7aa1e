package engine

import (
	"context"
	"errors"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/datalens/internal/config"
	"github.com/nao1215/datalens/internal/fixture"
	"github.com/nao1215/datalens/internal/model"
	"github.com/nao1215/datalens/internal/pipeline"
)

// countingStep counts executions and optionally waits for release.
type countingStep struct {
	runs    atomic.Int32
	release chan struct{}
	err     error
}

func (s *countingStep) Name() string { return "counting" }

func (s *countingStep) Do(ctx context.Context, _ *model.Report) error {
	s.runs.Add(1)
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.err
}

func newCountingEngine(t *testing.T, step *countingStep) *Engine {
	t.Helper()
	e, err := New(fixture.NewFS(), WithPipelineFactory(func() *pipeline.Pipeline {
		p := pipeline.New()
		p.AddStep(step)
		return p
	}))
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return e
}

func TestEngineRun(t *testing.T) {
	t.Parallel()

	t.Run("memoizes successful runs by configuration", func(t *testing.T) {
		t.Parallel()

		step := &countingStep{}
		e := newCountingEngine(t, step)
		cfg := config.NewScanConfig("/data")

		first, err := e.Run(context.Background(), cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := e.Run(context.Background(), cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if first != second {
			t.Error("expected the memoized report")
		}
		if step.runs.Load() != 1 {
			t.Errorf("expected 1 run, got %d", step.runs.Load())
		}
		if !e.Cached(cfg) || e.Len() != 1 {
			t.Error("expected the report to be cached")
		}
	})

	t.Run("treats different configurations separately", func(t *testing.T) {
		t.Parallel()

		step := &countingStep{}
		e := newCountingEngine(t, step)
		cfg := config.NewScanConfig("/data")
		other := cfg
		other.Hash = config.HashQuick

		if _, err := e.Run(context.Background(), cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := e.Run(context.Background(), other); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if step.runs.Load() != 2 {
			t.Errorf("expected 2 runs, got %d", step.runs.Load())
		}
	})

	t.Run("ignores worker count in the key", func(t *testing.T) {
		t.Parallel()

		step := &countingStep{}
		e := newCountingEngine(t, step)
		cfg := config.NewScanConfig("/data")
		other := cfg
		other.Workers = 7

		if _, err := e.Run(context.Background(), cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := e.Run(context.Background(), other); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if step.runs.Load() != 1 {
			t.Errorf("expected 1 run, got %d", step.runs.Load())
		}
	})

	t.Run("does not cache failures", func(t *testing.T) {
		t.Parallel()

		step := &countingStep{err: errors.New("boom")}
		e := newCountingEngine(t, step)
		cfg := config.NewScanConfig("/data")

		report, err := e.Run(context.Background(), cfg)
		if err == nil {
			t.Fatal("expected an error")
		}
		if report == nil || report.Error == nil {
			t.Error("expected the error in the report")
		}
		if _, err := e.Run(context.Background(), cfg); err == nil {
			t.Fatal("expected an error")
		}
		if step.runs.Load() != 2 {
			t.Errorf("expected 2 runs, got %d", step.runs.Load())
		}
		if e.Cached(cfg) {
			t.Error("failed run must not be cached")
		}
	})

	t.Run("rejects invalid configuration before running", func(t *testing.T) {
		t.Parallel()

		step := &countingStep{}
		e := newCountingEngine(t, step)
		cfg := config.NewScanConfig("/data")
		cfg.Extensions = nil

		if _, err := e.Run(context.Background(), cfg); !errors.Is(err, config.ErrNoExtensions) {
			t.Errorf("expected ErrNoExtensions, got %v", err)
		}
		if step.runs.Load() != 0 {
			t.Error("pipeline must not run")
		}
	})

	t.Run("coalesces concurrent runs", func(t *testing.T) {
		t.Parallel()

		step := &countingStep{release: make(chan struct{})}
		e := newCountingEngine(t, step)
		cfg := config.NewScanConfig("/data")

		var wg sync.WaitGroup
		reports := make([]*model.Report, 4)
		for i := range reports {
			wg.Add(1)
			go func() {
				defer wg.Done()
				r, err := e.Run(context.Background(), cfg)
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				reports[i] = r
			}()
		}
		time.Sleep(20 * time.Millisecond)
		close(step.release)
		wg.Wait()

		if step.runs.Load() != 1 {
			t.Errorf("expected 1 run, got %d", step.runs.Load())
		}
		for i := 1; i < len(reports); i++ {
			if reports[i] != reports[0] {
				t.Error("expected every caller to share the report")
			}
		}
	})
}

func TestEngineClearCache(t *testing.T) {
	t.Parallel()

	fs := fixture.NewFS()
	fixture.Image(t, fs, "a.png", fixture.RGBPNG(t, 4, 4, color.RGBA{R: 1}))

	e, err := New(fs)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	cfg := config.NewScanConfig(fixture.Root)

	first, err := e.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Scan.ResolvedImages != 1 {
		t.Fatalf("expected 1 image, got %d", first.Scan.ResolvedImages)
	}

	fixture.Image(t, fs, "b.png", fixture.RGBPNG(t, 4, 4, color.RGBA{G: 1}))

	stale, err := e.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stale.Scan.ResolvedImages != 1 {
		t.Error("expected the memoized report before clearing")
	}

	e.ClearCache()
	if e.Len() != 0 {
		t.Errorf("expected an empty cache, got %d", e.Len())
	}

	fresh, err := e.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fresh.Scan.ResolvedImages != 2 {
		t.Errorf("expected 2 images after clearing, got %d", fresh.Scan.ResolvedImages)
	}
}

func TestEngineCacheSize(t *testing.T) {
	t.Parallel()

	step := &countingStep{}
	e, err := New(fixture.NewFS(), WithCacheSize(1), WithPipelineFactory(func() *pipeline.Pipeline {
		p := pipeline.New()
		p.AddStep(step)
		return p
	}))
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	a := config.NewScanConfig("/a")
	b := config.NewScanConfig("/b")
	for _, cfg := range []config.ScanConfig{a, b, a} {
		if _, err := e.Run(context.Background(), cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := step.runs.Load(); got != 3 {
		t.Errorf("expected the oldest report to be evicted (3 runs), got %d", got)
	}
	if e.Len() != 1 || !e.Cached(a) || e.Cached(b) {
		t.Errorf("unexpected cache contents: len=%d", e.Len())
	}
}
