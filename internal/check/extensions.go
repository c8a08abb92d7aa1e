package check

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nao1215/datalens/internal/scan"
)

// CountExtensions counts paths per lowercase extension. Paths without an
// extension are counted under "".
func CountExtensions(paths []string) map[string]int {
	counts := make(map[string]int)
	for _, p := range paths {
		counts[strings.ToLower(scan.Suffix(p))]++
	}
	return counts
}

// ExtensionMismatches compares the extensions referenced by a manifest with
// the extensions of the resolved images.
//
// It warns when both sides are dominated (share >= threshold) by different
// extensions, and when at least threshold of the manifest references use an
// extension outside allowed.
func ExtensionMismatches(imageCounts, manifestCounts map[string]int, allowed []string, threshold float64) []string {
	var warnings []string
	totalManifest := sum(manifestCounts)
	if totalManifest == 0 {
		return warnings
	}

	topManifest, topManifestCount := dominant(manifestCounts)
	topImage, topImageCount := dominant(imageCounts)
	manifestShare := float64(topManifestCount) / float64(totalManifest)
	imageShare := 0.0
	if total := sum(imageCounts); total > 0 {
		imageShare = float64(topImageCount) / float64(total)
	}
	if topImage != "" && topManifest != topImage && manifestShare >= threshold && imageShare >= threshold {
		warnings = append(warnings, fmt.Sprintf(
			"CSV references '%s' heavily (%.0f%%) but images are mostly '%s' (%.0f%%).",
			topManifest, manifestShare*100, topImage, imageShare*100,
		))
	}

	allowedSet := make(map[string]bool, len(allowed))
	for _, ext := range allowed {
		allowedSet[strings.ToLower(ext)] = true
	}
	excluded := 0
	for ext, n := range manifestCounts {
		if !allowedSet[ext] {
			excluded += n
		}
	}
	if share := float64(excluded) / float64(totalManifest); share >= threshold {
		warnings = append(warnings, fmt.Sprintf("CSV references extensions not in allowed list (%.0f%% of rows).", share*100))
	}
	return warnings
}

// dominant returns the most frequent key. Ties go to the smallest key.
func dominant(counts map[string]int) (string, int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	best, bestCount := "", 0
	for _, k := range keys {
		if counts[k] > bestCount {
			best, bestCount = k, counts[k]
		}
	}
	return best, bestCount
}

func sum(counts map[string]int) int {
	n := 0
	for _, v := range counts {
		n += v
	}
	return n
}
