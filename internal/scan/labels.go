package scan

import "strings"

// NormalizeLabel converts a raw label cell to a label.
// Blank values and "nan" (any case) are absent and yield ok == false.
// Otherwise the value is trimmed, and lower-cased when lower is set.
// Normalizing an already normalized label returns it unchanged.
func NormalizeLabel(raw string, lower bool) (label string, ok bool) {
	text := strings.TrimSpace(raw)
	if isBlank(text) {
		return "", false
	}
	if lower {
		text = strings.ToLower(text)
	}
	return text, true
}

// isBlank reports whether a trimmed cell counts as missing.
func isBlank(text string) bool {
	return text == "" || strings.EqualFold(text, "nan")
}
