package config

import (
	"fmt"
	"path/filepath"
)

// DatasetConfig holds the settings for one dataset in the configuration file.
// Pointer and empty fields mean "not set" so that named datasets can
// override defaults selectively.
type DatasetConfig struct {
	// Root is the dataset root directory. Relative roots are resolved against
	// the directory containing the configuration file.
	Root string `yaml:"root,omitempty"`

	// Mode is "filesystem" or "manifest".
	Mode string `yaml:"mode,omitempty"`

	// Images is the images directory relative to the root.
	Images string `yaml:"images,omitempty"`

	// Extensions is the allowed extension list.
	Extensions []string `yaml:"extensions,omitempty"`

	// Hash is the duplicate strategy name (sha256, quick, phash).
	Hash string `yaml:"hash,omitempty"`

	// Stats enables resolution/mode statistics and hygiene analysis.
	Stats *bool `yaml:"stats,omitempty"`

	// InferClasses labels images by their first-level subdirectory.
	InferClasses *bool `yaml:"inferClasses,omitempty"`

	// Manifest is the CSV manifest path.
	Manifest string `yaml:"manifest,omitempty"`

	// FilenameColumn overrides filename column detection.
	FilenameColumn string `yaml:"filenameColumn,omitempty"`

	// LabelColumn overrides label column detection.
	LabelColumn string `yaml:"labelColumn,omitempty"`

	// IDsWithoutExt resolves extension-less manifest references by stem.
	IDsWithoutExt *bool `yaml:"idsWithoutExt,omitempty"`

	// NormalizeLabels lower-cases labels.
	NormalizeLabels *bool `yaml:"normalizeLabels,omitempty"`

	// Workers bounds the worker pool.
	Workers int `yaml:"workers,omitempty"`
}

// File represents the structure of the .datalens configuration file.
type File struct {
	// Datasets maps dataset names to their configurations.
	Datasets map[string]DatasetConfig `yaml:"datasets,omitempty"`

	// Defaults is applied to every scan unless overridden by a named dataset
	// or by command-line flags.
	Defaults DatasetConfig `yaml:"defaults,omitempty"`

	// dir is the directory of the loaded file, used to resolve relative roots.
	dir string
}

// GetDatasetConfig returns the configuration for a named dataset merged with
// the defaults. The second result is false when the name is unknown.
func (cf *File) GetDatasetConfig(name string) (DatasetConfig, bool) {
	result := cf.Defaults

	ds, ok := cf.Datasets[name]
	if !ok {
		return result, false
	}
	if ds.Root != "" {
		result.Root = ds.Root
	}
	if ds.Mode != "" {
		result.Mode = ds.Mode
	}
	if ds.Images != "" {
		result.Images = ds.Images
	}
	if len(ds.Extensions) > 0 {
		result.Extensions = ds.Extensions
	}
	if ds.Hash != "" {
		result.Hash = ds.Hash
	}
	if ds.Stats != nil {
		result.Stats = ds.Stats
	}
	if ds.InferClasses != nil {
		result.InferClasses = ds.InferClasses
	}
	if ds.Manifest != "" {
		result.Manifest = ds.Manifest
	}
	if ds.FilenameColumn != "" {
		result.FilenameColumn = ds.FilenameColumn
	}
	if ds.LabelColumn != "" {
		result.LabelColumn = ds.LabelColumn
	}
	if ds.IDsWithoutExt != nil {
		result.IDsWithoutExt = ds.IDsWithoutExt
	}
	if ds.NormalizeLabels != nil {
		result.NormalizeLabels = ds.NormalizeLabels
	}
	if ds.Workers != 0 {
		result.Workers = ds.Workers
	}
	return result, true
}

// ResolveRoot returns root relative to the configuration file directory.
func (cf *File) ResolveRoot(root string) string {
	if root == "" || filepath.IsAbs(root) || cf.dir == "" {
		return root
	}
	return filepath.Join(cf.dir, root)
}

// Apply overlays the set fields of d onto sc and returns the result.
// Setting a manifest without an explicit mode switches to manifest mode.
func (d DatasetConfig) Apply(sc ScanConfig) (ScanConfig, error) {
	if d.Root != "" {
		sc.DatasetRoot = d.Root
	}
	if d.Manifest != "" {
		sc.ManifestPath = d.Manifest
		sc.Mode = ModeManifest
	}
	if d.Mode != "" {
		mode, err := ParseMode(d.Mode)
		if err != nil {
			return sc, err
		}
		sc.Mode = mode
	}
	if d.Images != "" {
		sc.ImagesDir = d.Images
	}
	if len(d.Extensions) > 0 {
		sc.Extensions = NormalizeExtensions(d.Extensions)
	}
	if d.Hash != "" {
		h, err := ParseHashStrategy(d.Hash)
		if err != nil {
			return sc, err
		}
		sc.Hash = h
	}
	if d.Stats != nil {
		sc.ComputeStats = *d.Stats
	}
	if d.InferClasses != nil {
		sc.InferClasses = *d.InferClasses
	}
	if d.FilenameColumn != "" {
		sc.FilenameColumn = d.FilenameColumn
	}
	if d.LabelColumn != "" {
		sc.LabelColumn = d.LabelColumn
	}
	if d.IDsWithoutExt != nil {
		sc.IDsWithoutExt = *d.IDsWithoutExt
	}
	if d.NormalizeLabels != nil {
		sc.NormalizeLabels = *d.NormalizeLabels
	}
	if d.Workers != 0 {
		if d.Workers < 0 {
			return sc, fmt.Errorf("%w: %d", ErrInvalidWorkers, d.Workers)
		}
		sc.Workers = d.Workers
	}
	return sc, nil
}
