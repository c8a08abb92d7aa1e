package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Mode selects how the scanner builds the image set.
type Mode string

const (
	// ModeFilesystem lists every allowed file under the images directory.
	// Labels are optionally inferred from first-level subdirectories.
	ModeFilesystem Mode = "filesystem"

	// ModeManifest joins a CSV label manifest with the files on disk and
	// reports missing references and orphan files.
	ModeManifest Mode = "manifest"
)

// ParseMode converts a user-supplied mode name to a Mode.
// Short aliases such as "images" and "csv" are accepted.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "filesystem", "fs", "images", "a":
		return ModeFilesystem, nil
	case "manifest", "csv", "labels", "b":
		return ModeManifest, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, name)
	}
}

// HashStrategy is the closed set of duplicate fingerprint strategies.
type HashStrategy int

const (
	// HashSHA256 hashes the full byte stream. Identical bytes give identical
	// fingerprints.
	HashSHA256 HashStrategy = iota

	// HashQuick hashes the file size plus its head and (for files larger than
	// 128 KiB) its tail.
	HashQuick

	// HashPerceptual computes a 64-bit difference hash of the decoded image.
	HashPerceptual
)

// String returns the canonical strategy name.
func (h HashStrategy) String() string {
	switch h {
	case HashSHA256:
		return "sha256"
	case HashQuick:
		return "quick"
	case HashPerceptual:
		return "phash"
	default:
		return "unknown(" + strconv.Itoa(int(h)) + ")"
	}
}

// Valid reports whether h is one of the defined strategies.
func (h HashStrategy) Valid() bool {
	return h >= HashSHA256 && h <= HashPerceptual
}

// MarshalText implements encoding.TextMarshaler so reports carry the name.
func (h HashStrategy) MarshalText() ([]byte, error) {
	if !h.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHashStrategy, int(h))
	}
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *HashStrategy) UnmarshalText(text []byte) error {
	parsed, err := ParseHashStrategy(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHashStrategy converts a strategy name to a HashStrategy.
func ParseHashStrategy(name string) (HashStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sha256", "exact":
		return HashSHA256, nil
	case "quick":
		return HashQuick, nil
	case "phash", "perceptual", "dhash":
		return HashPerceptual, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownHashStrategy, name)
	}
}

// Default scan values.
const (
	// DefaultImagesDir is the images subdirectory relative to the dataset root.
	DefaultImagesDir = "images"

	// DefaultHashStrategy is exact content hashing.
	DefaultHashStrategy = HashSHA256
)

// DefaultExtensions is the allowed extension set used when none is given.
var DefaultExtensions = []string{".jpeg", ".jpg", ".png", ".webp"}

// ScanConfig fully determines a scan result for a fixed filesystem and
// manifest snapshot. It is treated as an immutable value: methods never
// modify the receiver, and Key() is the memo key for finished runs.
type ScanConfig struct {
	// Mode selects filesystem-only or manifest-reconciled scanning.
	Mode Mode `json:"mode"`

	// DatasetRoot is the dataset directory. Normalize makes it absolute.
	DatasetRoot string `json:"dataset_root"`

	// ImagesDir is the images directory relative to DatasetRoot.
	ImagesDir string `json:"images_dir"`

	// Extensions is the allowed extension set: lowercase, dot-prefixed,
	// de-duplicated and sorted after Normalize.
	Extensions []string `json:"extensions"`

	// Hash is the duplicate detection strategy.
	Hash HashStrategy `json:"hash"`

	// ComputeStats enables resolution/mode statistics and hygiene analysis.
	ComputeStats bool `json:"compute_stats"`

	// InferClasses labels images by their first-level subdirectory.
	// Only used in filesystem mode.
	InferClasses bool `json:"infer_classes"`

	// ManifestPath is the CSV manifest, absolute or relative to DatasetRoot.
	// Only used in manifest mode.
	ManifestPath string `json:"manifest_path,omitempty"`

	// FilenameColumn overrides filename column detection.
	FilenameColumn string `json:"filename_column,omitempty"`

	// LabelColumn overrides label column detection.
	LabelColumn string `json:"label_column,omitempty"`

	// IDsWithoutExt resolves manifest references without an extension by
	// matching file stems.
	IDsWithoutExt bool `json:"ids_without_ext"`

	// NormalizeLabels lower-cases labels after trimming.
	NormalizeLabels bool `json:"normalize_labels"`

	// Workers bounds the per-stage worker pool. 0 uses the number of CPUs.
	// It never changes results and is therefore not part of Key().
	Workers int `json:"-"`
}

// NewScanConfig returns a ScanConfig populated with defaults for the given root.
func NewScanConfig(datasetRoot string) ScanConfig {
	return ScanConfig{
		Mode:          ModeFilesystem,
		DatasetRoot:   datasetRoot,
		ImagesDir:     DefaultImagesDir,
		Extensions:    append([]string(nil), DefaultExtensions...),
		Hash:          DefaultHashStrategy,
		InferClasses:  true,
		IDsWithoutExt: true,
	}
}

// Normalize returns a copy with an absolute dataset root and a canonical
// extension set. An empty root resolves to the current working directory.
func (c ScanConfig) Normalize() (ScanConfig, error) {
	out := c
	root := c.DatasetRoot
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return out, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return out, fmt.Errorf("failed to resolve dataset root %q: %w", root, err)
	}
	out.DatasetRoot = abs
	out.Extensions = NormalizeExtensions(c.Extensions)
	return out, nil
}

// ImagesRoot returns the absolute images directory.
func (c ScanConfig) ImagesRoot() string {
	return filepath.Join(c.DatasetRoot, c.ImagesDir)
}

// ManifestFullPath returns the manifest path joined to the dataset root when relative.
func (c ScanConfig) ManifestFullPath() string {
	if c.ManifestPath == "" || filepath.IsAbs(c.ManifestPath) {
		return c.ManifestPath
	}
	return filepath.Join(c.DatasetRoot, c.ManifestPath)
}

// Key returns the canonical memo key. Two configs with equal keys produce
// identical results over the same snapshot.
func (c ScanConfig) Key() string {
	fields := []string{
		"mode=" + string(c.Mode),
		"root=" + strconv.Quote(c.DatasetRoot),
		"images=" + strconv.Quote(c.ImagesDir),
		"exts=" + strings.Join(NormalizeExtensions(c.Extensions), ","),
		"hash=" + c.Hash.String(),
		"stats=" + strconv.FormatBool(c.ComputeStats),
		"infer=" + strconv.FormatBool(c.InferClasses),
		"manifest=" + strconv.Quote(c.ManifestPath),
		"fcol=" + strconv.Quote(c.FilenameColumn),
		"lcol=" + strconv.Quote(c.LabelColumn),
		"noext=" + strconv.FormatBool(c.IDsWithoutExt),
		"norm=" + strconv.FormatBool(c.NormalizeLabels),
	}
	return strings.Join(fields, ";")
}

// Validate checks if the scan configuration is valid.
// It returns the first error found.
func (c ScanConfig) Validate() error {
	if c.DatasetRoot == "" {
		return ErrNoDatasetRoot
	}
	if c.Mode != ModeFilesystem && c.Mode != ModeManifest {
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.Mode)
	}
	if !c.Hash.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownHashStrategy, c.Hash)
	}
	if len(NormalizeExtensions(c.Extensions)) == 0 {
		return ErrNoExtensions
	}
	if c.Mode == ModeManifest && strings.TrimSpace(c.ManifestPath) == "" {
		return ErrNoManifest
	}
	if c.Workers < 0 {
		return ErrInvalidWorkers
	}
	return nil
}

// ParseExtensions splits a comma- or whitespace-separated extension list
// such as ".png jpg,.JPEG" and normalizes it.
func ParseExtensions(text string) []string {
	return NormalizeExtensions(strings.Fields(strings.ReplaceAll(text, ",", " ")))
}

// NormalizeExtensions lower-cases, dot-prefixes, de-duplicates and sorts
// extension tokens. Blank tokens are dropped.
func NormalizeExtensions(exts []string) []string {
	seen := make(map[string]bool, len(exts))
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" || ext == "." {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if seen[ext] {
			continue
		}
		seen[ext] = true
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}
