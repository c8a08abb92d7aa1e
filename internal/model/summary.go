package model

import "time"

// Summary is a compact, count-only view of a Report.
// It is what the history database compares between runs.
type Summary struct {
	DatasetRoot string    `json:"dataset_root"`
	Mode        string    `json:"mode"`
	HashMethod  string    `json:"hash_method"`
	GeneratedAt time.Time `json:"generated_at"`

	TotalScanned    int `json:"total_scanned"`
	Resolved        int `json:"resolved"`
	Corrupted       int `json:"corrupted"`
	DuplicateGroups int `json:"duplicate_groups"`
	DuplicateFiles  int `json:"duplicate_files"`
	MissingImages   int `json:"missing_images"`
	OrphanImages    int `json:"orphan_images"`
	MissingLabels   int `json:"missing_labels"`
	Warnings        int `json:"warnings"`

	// Severity counts over the issue list.
	HighCount   int `json:"high_count"`
	MediumCount int `json:"medium_count"`
	LowCount    int `json:"low_count"`
	InfoCount   int `json:"info_count"`
}

// NewSummary extracts counts from a report.
func NewSummary(r *Report) Summary {
	s := Summary{
		DatasetRoot: r.Config.DatasetRoot,
		Mode:        string(r.Config.Mode),
		HashMethod:  r.Config.Hash.String(),
		GeneratedAt: r.GeneratedAt,
		Warnings:    r.Warnings.Count(),
	}
	if r.Scan != nil {
		s.TotalScanned = r.Scan.TotalImagesScanned
		s.Resolved = r.Scan.ResolvedImages
		s.MissingImages = len(r.Scan.MissingImages)
		s.OrphanImages = len(r.Scan.OrphanImages)
		s.MissingLabels = r.Scan.MissingLabelCount
	}
	if r.Check != nil {
		s.Corrupted = len(r.Check.Corrupted)
		s.DuplicateGroups = len(r.Check.Duplicates)
		s.DuplicateFiles = r.Check.DuplicateFileCount()
	}
	s.countBySeverity(r.Issues)
	return s
}

func (s *Summary) countBySeverity(issues []Issue) {
	for _, is := range issues {
		switch is.Severity {
		case SeverityHigh:
			s.HighCount++
		case SeverityMedium:
			s.MediumCount++
		case SeverityLow:
			s.LowCount++
		case SeverityInfo:
			s.InfoCount++
		}
	}
}

// TotalIssues returns the number of issues of any severity.
func (s Summary) TotalIssues() int {
	return s.HighCount + s.MediumCount + s.LowCount + s.InfoCount
}

// SummaryDiff is the change of every count between two summaries.
// Positive values mean the newer run has more.
type SummaryDiff struct {
	Old Summary `json:"old"`
	New Summary `json:"new"`

	TotalScanned    int `json:"total_scanned"`
	Resolved        int `json:"resolved"`
	Corrupted       int `json:"corrupted"`
	DuplicateGroups int `json:"duplicate_groups"`
	MissingImages   int `json:"missing_images"`
	OrphanImages    int `json:"orphan_images"`
	MissingLabels   int `json:"missing_labels"`
	Warnings        int `json:"warnings"`
}

// Compare returns the difference from older to newer.
func Compare(older, newer Summary) SummaryDiff {
	return SummaryDiff{
		Old:             older,
		New:             newer,
		TotalScanned:    newer.TotalScanned - older.TotalScanned,
		Resolved:        newer.Resolved - older.Resolved,
		Corrupted:       newer.Corrupted - older.Corrupted,
		DuplicateGroups: newer.DuplicateGroups - older.DuplicateGroups,
		MissingImages:   newer.MissingImages - older.MissingImages,
		OrphanImages:    newer.OrphanImages - older.OrphanImages,
		MissingLabels:   newer.MissingLabels - older.MissingLabels,
		Warnings:        newer.Warnings - older.Warnings,
	}
}

// HasChanges reports whether any count differs.
func (d SummaryDiff) HasChanges() bool {
	return d.TotalScanned != 0 || d.Resolved != 0 || d.Corrupted != 0 ||
		d.DuplicateGroups != 0 || d.MissingImages != 0 || d.OrphanImages != 0 ||
		d.MissingLabels != 0 || d.Warnings != 0
}
