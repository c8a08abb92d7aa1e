package scan

import "strings"

// Candidate column names in priority order.
var (
	FilenameCandidates = []string{"filename", "file", "image", "image_path", "path", "img", "id"}
	LabelCandidates    = []string{"label", "class", "category", "target", "y"}
)

// ColumnChoice is the result of matching manifest headers against a
// candidate list.
type ColumnChoice struct {
	// Column is the selected header, or "" when nothing matched.
	Column string

	// Matches lists every matching header in selection order.
	Matches []string

	// Exact is true when Matches came from exact (case-insensitive) matches.
	Exact bool
}

// Found reports whether a column was selected.
func (c ColumnChoice) Found() bool {
	return c.Column != ""
}

// Ambiguous reports whether more than one header matched.
func (c ColumnChoice) Ambiguous() bool {
	return len(c.Matches) > 1
}

// ChooseColumn selects a header for the candidate list.
//
// Exact case-insensitive matches win and are ordered by candidate priority.
// Without exact matches, headers containing any candidate as a substring
// are used in header order. The first match is selected.
func ChooseColumn(headers, candidates []string) ColumnChoice {
	lowered := make([]string, len(headers))
	for i, h := range headers {
		lowered[i] = strings.ToLower(h)
	}

	var exact []string
	for _, cand := range candidates {
		for i, l := range lowered {
			if l == cand {
				exact = append(exact, headers[i])
				break
			}
		}
	}
	if len(exact) > 0 {
		return ColumnChoice{Column: exact[0], Matches: exact, Exact: true}
	}

	var partial []string
	for i, l := range lowered {
		for _, cand := range candidates {
			if strings.Contains(l, cand) {
				partial = append(partial, headers[i])
				break
			}
		}
	}
	if len(partial) > 0 {
		return ColumnChoice{Column: partial[0], Matches: partial}
	}
	return ColumnChoice{}
}

// findHeader returns the header equal to name, preferring a case-sensitive
// match over a case-insensitive one.
func findHeader(headers []string, name string) (string, bool) {
	for _, h := range headers {
		if h == name {
			return h, true
		}
	}
	for _, h := range headers {
		if strings.EqualFold(h, name) {
			return h, true
		}
	}
	return "", false
}
