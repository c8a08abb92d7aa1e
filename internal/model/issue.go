package model

// IssueType is the category of one row in the flat issue list.
type IssueType string

const (
	IssueMissing   IssueType = "missing"
	IssueOrphan    IssueType = "orphan"
	IssueCorrupted IssueType = "corrupted"
	IssueDuplicate IssueType = "duplicate"
)

// IssueColumns is the column order of the tabular issue export.
var IssueColumns = []string{"type", "path", "row_index", "reference", "error", "group_id", "hash", "method"}

// Issue is one row of the flat issue list.
// Fields that do not apply to the type are left zero.
type Issue struct {
	Type IssueType `json:"type"`

	Severity Severity `json:"severity"`

	Path string `json:"path,omitempty"`

	// RowIndex is set for missing references only.
	RowIndex *int `json:"row_index,omitempty"`

	Reference string `json:"reference,omitempty"`

	Error string `json:"error,omitempty"`

	// GroupID is the 1-based duplicate group number, 0 otherwise.
	GroupID int `json:"group_id,omitempty"`

	Hash string `json:"hash,omitempty"`

	Method string `json:"method,omitempty"`
}

// BuildIssues flattens scan and check results into issue rows: missing
// references, then orphans, then corrupted files, then duplicate members
// group by group.
func BuildIssues(scan *ScanResult, check *CheckResult) []Issue {
	var issues []Issue
	if scan != nil {
		for _, m := range scan.MissingImages {
			row := m.RowIndex
			issues = append(issues, Issue{
				Type:      IssueMissing,
				Severity:  GetSeverity(IssueMissing),
				RowIndex:  &row,
				Reference: m.Reference,
			})
		}
		for _, p := range scan.OrphanImages {
			issues = append(issues, Issue{
				Type:     IssueOrphan,
				Severity: GetSeverity(IssueOrphan),
				Path:     p,
			})
		}
	}
	if check != nil {
		for _, c := range check.Corrupted {
			issues = append(issues, Issue{
				Type:     IssueCorrupted,
				Severity: GetSeverity(IssueCorrupted),
				Path:     c.Path,
				Error:    c.Error,
			})
		}
		for i, g := range check.Duplicates {
			for _, p := range g.Paths {
				issues = append(issues, Issue{
					Type:     IssueDuplicate,
					Severity: GetSeverity(IssueDuplicate),
					Path:     p,
					GroupID:  i + 1,
					Hash:     g.Hash,
					Method:   check.HashMethod,
				})
			}
		}
	}
	return issues
}
