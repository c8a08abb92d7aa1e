package model

// Severity represents how much an issue type threatens a training run.
//
// Severity is an ordered int so issues can be sorted and compared; String()
// gives the display form.
type Severity int

const (
	// SeverityInfo indicates bookkeeping findings that rarely need action.
	SeverityInfo Severity = iota

	// SeverityLow indicates wasted space or skewed sampling, such as
	// duplicate content or orphan files.
	SeverityLow

	// SeverityMedium indicates label data that points at nothing, such as
	// manifest rows without a file.
	SeverityMedium

	// SeverityHigh indicates files that will break or be skipped by loaders.
	SeverityHigh
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// IssueInfo contains metadata about an issue type including severity,
// impact description, and remediation recommendation.
type IssueInfo struct {
	Severity       Severity
	Impact         string
	Recommendation string
}

// issueInfoMapping is the single source of truth for issue risk levels.
var issueInfoMapping = map[IssueType]IssueInfo{
	IssueCorrupted: {
		Severity:       SeverityHigh,
		Impact:         "The file does not decode. Data loaders will crash or silently drop it.",
		Recommendation: "Re-export the image from its source or remove it and its manifest rows.",
	},
	IssueMissing: {
		Severity:       SeverityMedium,
		Impact:         "A manifest row points at no usable file, so its label is never trained on.",
		Recommendation: "Fix the reference, restore the file, or drop the row.",
	},
	IssueDuplicate: {
		Severity:       SeverityLow,
		Impact:         "Repeated content over-weights samples and can leak between splits.",
		Recommendation: "Keep one file per group and update the manifest accordingly.",
	},
	IssueOrphan: {
		Severity:       SeverityLow,
		Impact:         "The file is on disk but unlabeled, so it is ignored by manifest-driven loaders.",
		Recommendation: "Add the file to the manifest or move it out of the images directory.",
	},
}

// GetSeverity returns the severity for an issue type.
// Unknown types are treated as informational.
func GetSeverity(t IssueType) Severity {
	if info, ok := issueInfoMapping[t]; ok {
		return info.Severity
	}
	return SeverityInfo
}

// GetIssueInfo returns the full information for an issue type.
func GetIssueInfo(t IssueType) IssueInfo {
	if info, ok := issueInfoMapping[t]; ok {
		return info
	}
	return IssueInfo{
		Severity:       SeverityInfo,
		Impact:         "Unknown issue type. Review manually.",
		Recommendation: "Inspect the file and the manifest entry.",
	}
}
