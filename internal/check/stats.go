package check

import (
	"context"
	"sort"

	"github.com/nao1215/datalens/internal/imaging"
	"github.com/nao1215/datalens/internal/model"
	"github.com/nao1215/datalens/internal/worker"
)

type inspectResult struct {
	stat model.ImageStat
	ok   bool
}

// Details inspects every path and returns the metadata of the readable ones
// in input order. Unreadable files are skipped.
func (c *Checker) Details(ctx context.Context, paths []string) ([]model.ImageStat, error) {
	results, err := worker.Map(ctx, c.workers, paths, func(_ context.Context, p string) inspectResult {
		stat, err := imaging.Inspect(c.fs, p)
		if err != nil {
			c.logger.Debug("skipping image in stats", "path", p, "error", err)
			return inspectResult{}
		}
		return inspectResult{stat: stat, ok: true}
	})
	if err != nil {
		return nil, err
	}

	details := make([]model.ImageStat, 0, len(results))
	for _, r := range results {
		if r.ok {
			details = append(details, r.stat)
		}
	}
	return details, nil
}

// BuildStats summarizes dimensions and modes. It returns nil when details
// is empty.
func BuildStats(details []model.ImageStat) *model.StatsResult {
	if len(details) == 0 {
		return nil
	}

	widths := make([]int, len(details))
	heights := make([]int, len(details))
	modes := make(map[string]int)
	for i, d := range details {
		widths[i] = d.Width
		heights[i] = d.Height
		modes[d.Mode]++
	}
	sort.Ints(widths)
	sort.Ints(heights)

	return &model.StatsResult{
		WidthMin:     widths[0],
		WidthMedian:  median(widths),
		WidthMax:     widths[len(widths)-1],
		HeightMin:    heights[0],
		HeightMedian: median(heights),
		HeightMax:    heights[len(heights)-1],
		ModeCounts:   modes,
	}
}

// median returns the middle of sorted values. For an even count it is the
// mean of the two middle values, truncated toward zero.
func median(sorted []int) int {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return int(float64(sorted[n/2-1]+sorted[n/2]) / 2)
}
