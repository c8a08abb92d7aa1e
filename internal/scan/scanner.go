package scan

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/nao1215/datalens/internal/config"
	"github.com/nao1215/datalens/internal/model"
)

// cancelCheckInterval is how many manifest rows are processed between
// context checks.
const cancelCheckInterval = 1024

// Scanner builds ScanResults from a filesystem.
// It holds no per-scan state and is safe for concurrent use.
type Scanner struct {
	fs     billy.Filesystem
	logger *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets a custom logger for the scanner.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// New creates a Scanner reading from fs. Paths handed to fs are absolute.
func New(fs billy.Filesystem, opts ...Option) *Scanner {
	s := &Scanner{fs: fs}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Scan dispatches on cfg.Mode. cfg must be normalized.
// Only configuration errors are returned.
func (s *Scanner) Scan(ctx context.Context, cfg config.ScanConfig) (*model.ScanResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch cfg.Mode {
	case config.ModeManifest:
		return s.ScanManifest(ctx, cfg)
	default:
		return s.ScanFilesystem(ctx, cfg)
	}
}

// ScanFilesystem lists the images directory. With class inference, the
// first directory below the images root is the label; files directly in the
// images root count as missing labels.
func (s *Scanner) ScanFilesystem(ctx context.Context, cfg config.ScanConfig) (*model.ScanResult, error) {
	imagesRoot := cfg.ImagesRoot()
	paths, err := ListImages(s.fs, imagesRoot, extensionSet(cfg.Extensions))
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrImagesRead, imagesRoot, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := newResult()
	for _, p := range paths {
		rel := relativeTo(imagesRoot, p)
		entry := model.ImageEntry{Path: p, RelPath: rel}
		if cfg.InferClasses {
			parts := strings.Split(rel, string(filepath.Separator))
			if len(parts) > 1 {
				entry.Label = parts[0]
			} else {
				result.MissingLabelCount++
			}
		}
		result.Images = append(result.Images, entry)
	}
	result.ResolvedImages = len(result.Images)
	result.TotalImagesScanned = len(paths)

	s.logger.Debug("filesystem scan finished",
		"images_root", imagesRoot,
		"images", result.ResolvedImages,
		"missing_labels", result.MissingLabelCount,
	)
	return result, nil
}

// ScanManifest joins the manifest with the images directory.
func (s *Scanner) ScanManifest(ctx context.Context, cfg config.ScanConfig) (*model.ScanResult, error) {
	manifestPath := cfg.ManifestFullPath()
	m, err := ReadManifest(s.fs, manifestPath)
	if err != nil {
		return nil, err
	}
	if m.Encoding != EncodingUTF8 {
		s.logger.Debug("manifest decoded with fallback encoding", "path", manifestPath, "encoding", m.Encoding)
	}

	result := newResult()

	filenameCol, err := s.resolveColumn(m, cfg.FilenameColumn, FilenameCandidates, model.AmbiguousFilenameColumn, "filename", result)
	if err != nil {
		return nil, err
	}
	if filenameCol == "" {
		return nil, ErrFilenameColumnNotFound
	}
	labelCol, err := s.resolveColumn(m, cfg.LabelColumn, LabelCandidates, model.AmbiguousLabelColumn, "label", result)
	if err != nil {
		return nil, err
	}
	result.FilenameColumn = filenameCol
	result.LabelColumn = labelCol

	imagesRoot := cfg.ImagesRoot()
	allImages, err := ListImages(s.fs, imagesRoot, extensionSet(cfg.Extensions))
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrImagesRead, imagesRoot, err)
	}
	allowed := extensionSet(cfg.Extensions)

	var stems stemIndex
	if cfg.IDsWithoutExt {
		stems = newStemIndex(allImages)
	}

	fileIdx := m.Index(filenameCol)
	labelIdx := -1
	if labelCol != "" {
		labelIdx = m.Index(labelCol)
	}
	labelOf := func(row []string) (string, bool) {
		if labelIdx < 0 {
			return "", false
		}
		return NormalizeLabel(row[labelIdx], cfg.NormalizeLabels)
	}

	referenced := make(map[string]bool)
	for rowIndex, row := range m.Rows {
		if rowIndex%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		value := strings.TrimSpace(row[fileIdx])
		if isBlank(value) {
			result.MissingImages = append(result.MissingImages, model.MissingReference{RowIndex: rowIndex, Reference: model.EmptyReference})
			if _, ok := labelOf(row); !ok {
				result.MissingLabelCount++
			}
			continue
		}

		if ext := strings.ToLower(Suffix(value)); ext != "" {
			result.ManifestExtCounts[ext]++
		} else {
			result.ManifestNoExtCount++
		}

		resolved := s.resolve(cfg, imagesRoot, value, stems, result)
		if resolved == "" || !allowed[strings.ToLower(Suffix(resolved))] || !s.isFile(resolved) {
			s.logger.Debug("manifest reference not resolved", "row", rowIndex, "reference", value)
			result.MissingImages = append(result.MissingImages, model.MissingReference{RowIndex: rowIndex, Reference: value})
			if _, ok := labelOf(row); !ok {
				result.MissingLabelCount++
			}
			continue
		}

		label, ok := labelOf(row)
		if !ok {
			result.MissingLabelCount++
		}
		if referenced[resolved] {
			result.DuplicateReferenceCount++
			continue
		}
		referenced[resolved] = true
		result.Images = append(result.Images, model.ImageEntry{
			Path:    resolved,
			RelPath: relativeTo(imagesRoot, resolved),
			Label:   label,
		})
	}

	for _, p := range allImages {
		if !referenced[p] {
			result.OrphanImages = append(result.OrphanImages, p)
		}
	}

	sort.Slice(result.Images, func(i, j int) bool {
		return result.Images[i].Path < result.Images[j].Path
	})
	sort.SliceStable(result.MissingImages, func(i, j int) bool {
		a, b := result.MissingImages[i], result.MissingImages[j]
		if a.RowIndex != b.RowIndex {
			return a.RowIndex < b.RowIndex
		}
		return a.Reference < b.Reference
	})

	result.ManifestRowCount = len(m.Rows)
	result.ResolvedImages = len(result.Images)
	result.TotalImagesScanned = len(allImages)

	s.logger.Debug("manifest scan finished",
		"manifest", manifestPath,
		"rows", result.ManifestRowCount,
		"resolved", result.ResolvedImages,
		"missing", len(result.MissingImages),
		"orphans", len(result.OrphanImages),
	)
	return result, nil
}

// resolveColumn applies an override or runs the candidate matcher, recording
// ambiguity. It returns "" when nothing matched.
func (s *Scanner) resolveColumn(m *Manifest, override string, candidates []string, kind model.AmbiguityKind, what string, result *model.ScanResult) (string, error) {
	if override != "" {
		col, ok := findHeader(m.Header, override)
		if !ok {
			return "", fmt.Errorf("%w: %s column %q (available: %s)", ErrColumnNotFound, what, override, strings.Join(m.Header, ", "))
		}
		return col, nil
	}

	choice := ChooseColumn(m.Header, candidates)
	if choice.Ambiguous() {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Multiple possible %s columns found. Using '%s'.", what, choice.Column))
		result.Ambiguities = append(result.Ambiguities, model.Ambiguity{
			Kind:       kind,
			Chosen:     choice.Column,
			Candidates: choice.Matches,
		})
	}
	return choice.Column, nil
}

// resolve maps one reference to a path, or "" when an extension-less id has
// no stem match.
func (s *Scanner) resolve(cfg config.ScanConfig, imagesRoot, value string, stems stemIndex, result *model.ScanResult) string {
	candidate := resolveCandidate(cfg.DatasetRoot, imagesRoot, value)
	if Suffix(candidate) != "" || !cfg.IDsWithoutExt {
		return candidate
	}

	matches := stems.lookup(candidate)
	if len(matches) == 0 {
		return ""
	}
	if len(matches) > 1 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Multiple files match id '%s'. Using '%s'.", value, matches[0]))
		result.Ambiguities = append(result.Ambiguities, model.Ambiguity{
			Kind:       model.AmbiguousStem,
			Reference:  value,
			Chosen:     matches[0],
			Candidates: matches,
		})
	}
	return matches[0]
}

// isFile reports whether p exists and is not a directory.
func (s *Scanner) isFile(p string) bool {
	info, err := s.fs.Stat(p)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Debug("stat failed", "path", p, "error", err)
		}
		return false
	}
	return !info.IsDir()
}

func newResult() *model.ScanResult {
	return &model.ScanResult{
		Images:            []model.ImageEntry{},
		MissingImages:     []model.MissingReference{},
		OrphanImages:      []string{},
		Warnings:          []string{},
		ManifestExtCounts: map[string]int{},
	}
}
