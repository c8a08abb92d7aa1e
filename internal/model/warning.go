package model

// Warning categories. Reports render them in this order.
const (
	CategoryManifest   = "CSV"
	CategoryDuplicates = "Duplicates"
	CategoryExtensions = "Extensions"
	CategoryHygiene    = "Data Hygiene"
	CategoryLabels     = "Labels"
)

// WarningCategories lists every category in display order (alphabetical).
var WarningCategories = []string{
	CategoryManifest,
	CategoryHygiene,
	CategoryDuplicates,
	CategoryExtensions,
	CategoryLabels,
}

// WarningGroup is the list of warning messages of one category.
type WarningGroup struct {
	Category string   `json:"category"`
	Messages []string `json:"messages"`
}

// Warnings holds every category, including empty ones, in display order.
type Warnings []WarningGroup

// NewWarnings returns a Warnings value with every category present and empty.
func NewWarnings() Warnings {
	w := make(Warnings, len(WarningCategories))
	for i, c := range WarningCategories {
		w[i] = WarningGroup{Category: c, Messages: []string{}}
	}
	return w
}

// Add appends messages to a category. Unknown categories are appended at the end.
func (w *Warnings) Add(category string, messages ...string) {
	for i := range *w {
		if (*w)[i].Category == category {
			(*w)[i].Messages = append((*w)[i].Messages, messages...)
			return
		}
	}
	*w = append(*w, WarningGroup{Category: category, Messages: append([]string{}, messages...)})
}

// Get returns the messages of a category.
func (w Warnings) Get(category string) []string {
	for _, g := range w {
		if g.Category == category {
			return g.Messages
		}
	}
	return nil
}

// Count returns the total number of messages.
func (w Warnings) Count() int {
	n := 0
	for _, g := range w {
		n += len(g.Messages)
	}
	return n
}
