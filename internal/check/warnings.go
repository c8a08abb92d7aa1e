package check

import (
	"fmt"
	"strings"

	"github.com/nao1215/datalens/internal/config"
	"github.com/nao1215/datalens/internal/model"
)

// BuildWarnings groups every user-facing warning of a finished run by
// category.
func BuildWarnings(cfg config.ScanConfig, sr *model.ScanResult, cr *model.CheckResult) model.Warnings {
	w := model.NewWarnings()
	th := cr.Thresholds
	manifest := cfg.Mode == config.ModeManifest

	w.Add(model.CategoryManifest, sr.Warnings...)

	if manifest || cfg.InferClasses {
		if sr.MissingLabelCount > 0 {
			w.Add(model.CategoryLabels, fmt.Sprintf("Missing labels: %d", sr.MissingLabelCount))
		}
	}
	if manifest {
		if n := len(sr.MissingImages); n > 0 {
			w.Add(model.CategoryManifest, fmt.Sprintf("Missing images: %d", n))
		}
		if n := len(sr.OrphanImages); n > 0 {
			w.Add(model.CategoryManifest, fmt.Sprintf("Orphan images: %d", n))
		}
		if sr.DuplicateReferenceCount > 0 {
			w.Add(model.CategoryManifest, fmt.Sprintf("Rows resolving to an already referenced image: %d", sr.DuplicateReferenceCount))
		}
	}

	if cr.ImbalanceWarning {
		w.Add(model.CategoryLabels, fmt.Sprintf("Class imbalance detected (min/max < %.2f).", th.Imbalance))
	}

	if h := cr.Hygiene; h != nil {
		if h.SmallResCount > 0 {
			w.Add(model.CategoryHygiene, fmt.Sprintf("Small resolution (<%dpx): %d", th.SmallResolution, h.SmallResCount))
		}
		if h.AspectOutlierCount > 0 {
			w.Add(model.CategoryHygiene, fmt.Sprintf("Aspect ratio outliers (>%.1f): %d. Examples: %s",
				th.AspectRatio, h.AspectOutlierCount, strings.Join(h.AspectOutlierExamples, ", ")))
		}
		if h.RGBAWarning {
			w.Add(model.CategoryHygiene, fmt.Sprintf("RGBA share %.0f%% exceeds %.0f%%.", h.RGBAShare*100, th.RGBAShare*100))
		}
		if h.ModeVarianceWarning {
			w.Add(model.CategoryHygiene, "Mixed image modes show high variance across the dataset.")
		}
		if h.RotatedCount > 0 {
			w.Add(model.CategoryHygiene, fmt.Sprintf("EXIF orientation requires rotation: %d. Examples: %s",
				h.RotatedCount, strings.Join(h.RotatedExamples, ", ")))
		}
	}

	if n := len(cr.Duplicates); n > 0 {
		w.Add(model.CategoryDuplicates, fmt.Sprintf("Duplicate groups (%s): %d covering %d files", cr.HashMethod, n, cr.DuplicateFileCount()))
	}
	if n := len(cr.HashFailures); n > 0 {
		w.Add(model.CategoryDuplicates, fmt.Sprintf("Files that could not be fingerprinted: %d", n))
	}

	if manifest {
		w.Add(model.CategoryExtensions, ExtensionMismatches(cr.ExtCounts, sr.ManifestExtCounts, cfg.Extensions, th.ExtensionMismatch)...)
	}
	return w
}
