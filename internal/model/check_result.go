package model

// Thresholds are the fixed limits used by the hygiene, imbalance and
// extension checks. They are carried in CheckResult so reports can state
// exactly what was applied.
type Thresholds struct {
	// SmallResolution flags images whose shorter side is below this many pixels.
	SmallResolution int `json:"small_resolution"`

	// AspectRatio flags images whose long/short side ratio exceeds this value.
	AspectRatio float64 `json:"aspect_ratio"`

	// RGBAShare flags datasets whose RGBA fraction exceeds this value.
	RGBAShare float64 `json:"rgba_share"`

	// ModeDominance is the minimum share the most common mode must reach
	// before mode variance is reported.
	ModeDominance float64 `json:"mode_dominance"`

	// ModeVarianceMinModes is the number of distinct modes needed before
	// mode variance is considered.
	ModeVarianceMinModes int `json:"mode_variance_min_modes"`

	// Imbalance flags label histograms whose min/max ratio is below this value.
	Imbalance float64 `json:"imbalance"`

	// ExtensionMismatch is the dominance share used by the extension checks.
	ExtensionMismatch float64 `json:"extension_mismatch"`

	// Examples caps every example list.
	Examples int `json:"examples"`
}

// DefaultThresholds returns the thresholds used by every run.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SmallResolution:      64,
		AspectRatio:          3.0,
		RGBAShare:            0.3,
		ModeDominance:        0.6,
		ModeVarianceMinModes: 3,
		Imbalance:            0.1,
		ExtensionMismatch:    0.5,
		Examples:             10,
	}
}

// ImageStat holds the metadata of one decodable image. It is computed once
// per path and shared by statistics and hygiene analysis.
type ImageStat struct {
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`

	// Mode is the color mode name: "1", "L", "LA", "P", "RGB", "RGBA",
	// "CMYK", "I;16" and so on.
	Mode string `json:"mode"`

	// Orientation is the EXIF orientation tag, or 0 when the file has none.
	Orientation int `json:"orientation,omitempty"`
}

// FileError is a per-file failure captured without aborting the run.
type FileError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// DuplicateGroup is a set of at least two paths sharing a fingerprint.
type DuplicateGroup struct {
	// Hash is the fingerprint value.
	Hash string `json:"hash"`

	// Paths are sorted ascending.
	Paths []string `json:"paths"`
}

// LabelCount is one entry of the label histogram.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// StatsResult summarizes image dimensions and color modes.
type StatsResult struct {
	WidthMin     int `json:"width_min"`
	WidthMedian  int `json:"width_median"`
	WidthMax     int `json:"width_max"`
	HeightMin    int `json:"height_min"`
	HeightMedian int `json:"height_median"`
	HeightMax    int `json:"height_max"`

	// ModeCounts maps color mode to the number of images.
	ModeCounts map[string]int `json:"mode_counts"`
}

// HygieneResult holds dataset-level quality signals.
type HygieneResult struct {
	SmallResCount    int      `json:"small_res_count"`
	SmallResExamples []string `json:"small_res_examples"`

	AspectOutlierCount    int      `json:"aspect_outlier_count"`
	AspectOutlierExamples []string `json:"aspect_outlier_examples"`

	// RGBAShare is the fraction of images in RGBA mode.
	RGBAShare float64 `json:"rgba_share"`

	// RGBAWarning is true when RGBAShare exceeds the threshold.
	RGBAWarning bool `json:"rgba_warning"`

	// ModeVarianceWarning signals inconsistent channel handling.
	ModeVarianceWarning bool `json:"mode_variance_warning"`

	// RotatedCount counts images whose EXIF orientation requires a rotation
	// or flip (orientation > 1).
	RotatedCount    int      `json:"rotated_count"`
	RotatedExamples []string `json:"rotated_examples"`
}

// CheckResult aggregates every analysis over the resolved image set.
// Stats, Hygiene and LabelCounts are nil when not computed.
type CheckResult struct {
	// Corrupted lists files that failed structural decoding, in
	// verification order.
	Corrupted []FileError `json:"corrupted"`

	// Duplicates are sorted by (size desc, hash asc).
	Duplicates []DuplicateGroup `json:"duplicates"`

	// HashFailures lists files that could not be read for fingerprinting.
	HashFailures []FileError `json:"hash_failures,omitempty"`

	// HashMethod is the strategy name used for Duplicates.
	HashMethod string `json:"hash_method"`

	// ExtCounts counts resolved images per lowercase extension.
	ExtCounts map[string]int `json:"ext_counts"`

	Stats *StatsResult `json:"stats,omitempty"`

	// LabelCounts is ordered by count desc, then label asc.
	LabelCounts []LabelCount `json:"label_counts,omitempty"`

	// ImbalanceWarning is true for at least two labels with min/max below
	// the imbalance threshold.
	ImbalanceWarning bool `json:"imbalance_warning"`

	Hygiene *HygieneResult `json:"hygiene,omitempty"`

	Thresholds Thresholds `json:"thresholds"`
}

// DuplicateFileCount returns the number of files in all duplicate groups.
func (c *CheckResult) DuplicateFileCount() int {
	n := 0
	for _, g := range c.Duplicates {
		n += len(g.Paths)
	}
	return n
}
