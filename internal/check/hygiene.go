package check

import (
	"sort"

	"github.com/nao1215/datalens/internal/imaging"
	"github.com/nao1215/datalens/internal/model"
)

const modeRGBA = "RGBA"

type aspectOutlier struct {
	ratio float64
	path  string
}

// AnalyzeHygiene computes dataset quality signals. It returns nil when
// details is empty.
func AnalyzeHygiene(details []model.ImageStat, th model.Thresholds) *model.HygieneResult {
	if len(details) == 0 {
		return nil
	}

	var (
		small    []string
		outliers []aspectOutlier
		rotated  []string
		rgba     int
	)
	modes := make(map[string]int)

	for _, d := range details {
		if min(d.Width, d.Height) < th.SmallResolution {
			small = append(small, d.Path)
		}
		if d.Width > 0 && d.Height > 0 {
			w, h := float64(d.Width), float64(d.Height)
			if ratio := max(w/h, h/w); ratio > th.AspectRatio {
				outliers = append(outliers, aspectOutlier{ratio: ratio, path: d.Path})
			}
		}
		if imaging.NeedsRotation(d.Orientation) {
			rotated = append(rotated, d.Path)
		}
		modes[d.Mode]++
		if d.Mode == modeRGBA {
			rgba++
		}
	}

	total := len(details)
	top := 0
	for _, n := range modes {
		top = max(top, n)
	}
	rgbaShare := float64(rgba) / float64(total)

	sort.Strings(small)
	sort.Strings(rotated)
	sort.Slice(outliers, func(i, j int) bool {
		if outliers[i].ratio != outliers[j].ratio {
			return outliers[i].ratio > outliers[j].ratio
		}
		return outliers[i].path < outliers[j].path
	})
	outlierPaths := make([]string, len(outliers))
	for i, o := range outliers {
		outlierPaths[i] = o.path
	}

	return &model.HygieneResult{
		SmallResCount:         len(small),
		SmallResExamples:      firstN(small, th.Examples),
		AspectOutlierCount:    len(outliers),
		AspectOutlierExamples: firstN(outlierPaths, th.Examples),
		RGBAShare:             rgbaShare,
		RGBAWarning:           rgbaShare > th.RGBAShare,
		ModeVarianceWarning:   len(modes) >= th.ModeVarianceMinModes && float64(top)/float64(total) < th.ModeDominance,
		RotatedCount:          len(rotated),
		RotatedExamples:       firstN(rotated, th.Examples),
	}
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		items = items[:n]
	}
	return append([]string{}, items...)
}
