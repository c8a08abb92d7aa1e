package scan

import (
	"path/filepath"
	"sort"
	"strings"
)

// Suffix returns the extension of the last path element including the dot.
// Names that start with their only dot (".hidden") or end with a dot ("a.")
// have no extension.
func Suffix(p string) string {
	name := filepath.Base(p)
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return ""
	}
	return name[i:]
}

// stem returns the last path element without its extension.
func stem(p string) string {
	name := filepath.Base(p)
	return strings.TrimSuffix(name, Suffix(name))
}

// resolveCandidate maps a manifest reference to a filesystem path.
// Absolute references are kept, references with a directory part are
// relative to the dataset root, and bare names are relative to the images root.
func resolveCandidate(datasetRoot, imagesRoot, ref string) string {
	if filepath.IsAbs(ref) {
		return filepath.Clean(ref)
	}
	if filepath.Dir(ref) != "." {
		return filepath.Join(datasetRoot, ref)
	}
	return filepath.Join(imagesRoot, ref)
}

// stemIndex maps lowercase file stems to the sorted paths sharing them.
type stemIndex map[string][]string

func newStemIndex(paths []string) stemIndex {
	idx := make(stemIndex)
	for _, p := range paths {
		key := strings.ToLower(stem(p))
		idx[key] = append(idx[key], p)
	}
	for key := range idx {
		sort.Strings(idx[key])
	}
	return idx
}

// lookup returns the candidates for the stem of p.
func (s stemIndex) lookup(p string) []string {
	return s[strings.ToLower(stem(p))]
}

// relativeTo returns p relative to root when p is inside root, else p.
func relativeTo(root, p string) string {
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}
	return rel
}
