package check

import (
	"context"

	"github.com/nao1215/datalens/internal/imaging"
	"github.com/nao1215/datalens/internal/model"
	"github.com/nao1215/datalens/internal/worker"
)

// Verify decodes every path and returns the failures in input order.
func (c *Checker) Verify(ctx context.Context, paths []string) ([]model.FileError, error) {
	errs, err := worker.Map(ctx, c.workers, paths, func(_ context.Context, p string) error {
		return imaging.Verify(c.fs, p)
	})
	if err != nil {
		return nil, err
	}

	corrupted := []model.FileError{}
	for i, verr := range errs {
		if verr == nil {
			continue
		}
		c.logger.Debug("corrupted image", "path", paths[i], "error", verr)
		corrupted = append(corrupted, model.FileError{Path: paths[i], Error: verr.Error()})
	}
	return corrupted, nil
}
