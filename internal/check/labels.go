package check

import (
	"sort"
	"strings"

	"github.com/nao1215/datalens/internal/model"
)

// CountLabels builds the label histogram ordered by count descending, then
// label ascending. Unlabeled entries are ignored. It returns nil when no
// entry carries a label.
func CountLabels(entries []model.ImageEntry) []model.LabelCount {
	counts := make(map[string]int)
	for _, e := range entries {
		if strings.TrimSpace(e.Label) == "" {
			continue
		}
		counts[e.Label]++
	}
	if len(counts) == 0 {
		return nil
	}

	out := make([]model.LabelCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, model.LabelCount{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// Imbalanced reports whether at least two labels exist and the smallest
// class divided by the largest is below threshold.
func Imbalanced(counts []model.LabelCount, threshold float64) bool {
	if len(counts) < 2 {
		return false
	}
	lo, hi := counts[0].Count, counts[0].Count
	for _, c := range counts[1:] {
		lo = min(lo, c.Count)
		hi = max(hi, c.Count)
	}
	if hi == 0 {
		return false
	}
	return float64(lo)/float64(hi) < threshold
}
