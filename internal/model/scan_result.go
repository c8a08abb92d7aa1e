package model

// EmptyReference is recorded for manifest rows whose filename value is
// blank or "nan".
const EmptyReference = "<empty>"

// ImageEntry is one resolved image. Entries are unique by Path.
type ImageEntry struct {
	// Path is the absolute path of the image file.
	Path string `json:"path"`

	// RelPath is Path relative to the images root. For manifest references
	// outside the images root it equals Path.
	RelPath string `json:"rel_path"`

	// Label is the class label. An empty string means no label.
	Label string `json:"label,omitempty"`
}

// HasLabel reports whether the entry carries a label.
func (e ImageEntry) HasLabel() bool {
	return e.Label != ""
}

// MissingReference is a manifest row whose reference could not be resolved
// to an existing file with an allowed extension.
type MissingReference struct {
	// RowIndex is the zero-based data row index (the header is not counted).
	RowIndex int `json:"row_index"`

	// Reference is the raw value from the filename column.
	Reference string `json:"reference"`
}

// AmbiguityKind identifies what was ambiguous.
type AmbiguityKind string

const (
	// AmbiguousFilenameColumn means several headers matched the filename candidates.
	AmbiguousFilenameColumn AmbiguityKind = "filename_column"

	// AmbiguousLabelColumn means several headers matched the label candidates.
	AmbiguousLabelColumn AmbiguityKind = "label_column"

	// AmbiguousStem means several files share the stem of an extension-less id.
	AmbiguousStem AmbiguityKind = "stem"
)

// Ambiguity records a deterministic first choice among several candidates.
type Ambiguity struct {
	Kind AmbiguityKind `json:"kind"`

	// Reference is the manifest value for stem ambiguities; empty for columns.
	Reference string `json:"reference,omitempty"`

	// Chosen is the selected candidate.
	Chosen string `json:"chosen"`

	// Candidates lists every match in selection order.
	Candidates []string `json:"candidates"`
}

// ScanResult is the output of the scanner.
//
// In filesystem mode MissingImages and OrphanImages are empty and
// ResolvedImages equals TotalImagesScanned. In manifest mode
// OrphanImages and the image paths partition the listed files.
type ScanResult struct {
	// Images are the resolved images sorted by path.
	Images []ImageEntry `json:"images"`

	// MissingImages are sorted by (row index, reference).
	MissingImages []MissingReference `json:"missing_images"`

	// OrphanImages are listed files never referenced by the manifest, sorted.
	OrphanImages []string `json:"orphan_images"`

	// Warnings are manifest warnings in discovery order.
	Warnings []string `json:"warnings"`

	// Ambiguities are the structured form of the ambiguity warnings.
	Ambiguities []Ambiguity `json:"ambiguities,omitempty"`

	// FilenameColumn is the manifest column used for references.
	FilenameColumn string `json:"filename_column,omitempty"`

	// LabelColumn is the manifest column used for labels. Empty when the
	// manifest has none.
	LabelColumn string `json:"label_column,omitempty"`

	// MissingLabelCount counts rows or files without a usable label.
	MissingLabelCount int `json:"missing_label_count"`

	// ManifestRowCount is the number of data rows in the manifest.
	ManifestRowCount int `json:"manifest_row_count"`

	// ResolvedImages is len(Images).
	ResolvedImages int `json:"resolved_images"`

	// TotalImagesScanned is the number of listed files under the images root.
	TotalImagesScanned int `json:"total_images_scanned"`

	// ManifestExtCounts counts manifest references per lowercase extension.
	ManifestExtCounts map[string]int `json:"manifest_ext_counts"`

	// ManifestNoExtCount counts manifest references without an extension.
	ManifestNoExtCount int `json:"manifest_no_ext_count"`

	// DuplicateReferenceCount counts rows resolving to an already referenced file.
	DuplicateReferenceCount int `json:"duplicate_reference_count"`
}

// Paths returns the image paths in order.
func (s *ScanResult) Paths() []string {
	paths := make([]string, len(s.Images))
	for i, img := range s.Images {
		paths[i] = img.Path
	}
	return paths
}

// Coverage returns resolved images divided by manifest rows, or 0 when the
// manifest has no rows.
func (s *ScanResult) Coverage() float64 {
	if s.ManifestRowCount == 0 {
		return 0
	}
	return float64(s.ResolvedImages) / float64(s.ManifestRowCount)
}

// OrphanRate returns orphans divided by scanned files, or 0 when nothing was scanned.
func (s *ScanResult) OrphanRate() float64 {
	if s.TotalImagesScanned == 0 {
		return 0
	}
	return float64(len(s.OrphanImages)) / float64(s.TotalImagesScanned)
}
