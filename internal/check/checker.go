package check

import (
	"log/slog"

	"github.com/go-git/go-billy/v5"
)

// Checker runs the per-file analyses on a bounded worker pool.
type Checker struct {
	fs      billy.Filesystem
	workers int
	logger  *slog.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithWorkers sets the pool size. Zero or less means one worker per CPU.
func WithWorkers(n int) Option {
	return func(c *Checker) {
		c.workers = n
	}
}

// WithLogger sets a custom logger for the checker.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		c.logger = logger
	}
}

// New creates a Checker reading files from fs.
func New(fs billy.Filesystem, opts ...Option) *Checker {
	c := &Checker{fs: fs}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}
