package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".datalens"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// ErrUnknownDataset is returned when --dataset names a dataset missing from
// the configuration file.
var ErrUnknownDataset = fmt.Errorf("%w: unknown dataset", ErrConfiguration)

// LoadConfigFile loads dataset configurations from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers decide whether that matters based on whether the path was given
// explicitly.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %w", ErrConfiguration, path, err)
	}
	if cf.Datasets == nil {
		cf.Datasets = make(map[string]DatasetConfig)
	}
	if abs, err := filepath.Abs(path); err == nil {
		cf.dir = filepath.Dir(abs)
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .datalens in the current directory
// 3. Look for .datalens in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}

// ScanConfigs expands the command into one ScanConfig per dataset.
// Command-line roots come first in the given order, followed by named
// datasets. File defaults are applied beneath every entry; the base Scan
// fields set by flags are applied by the caller through override.
func (c *Config) ScanConfigs(override func(ScanConfig) ScanConfig) ([]ScanConfig, error) {
	base := c.Scan
	if c.File != nil {
		var err error
		base, err = c.File.Defaults.Apply(base)
		if err != nil {
			return nil, err
		}
	}

	out := make([]ScanConfig, 0, len(c.Roots)+len(c.Datasets))
	for _, root := range c.Roots {
		sc := base
		sc.DatasetRoot = root
		out = append(out, finish(sc, override))
	}
	for _, name := range c.Datasets {
		if c.File == nil {
			return nil, fmt.Errorf("%w: %q (no configuration file loaded)", ErrUnknownDataset, name)
		}
		ds, ok := c.File.GetDatasetConfig(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
		}
		sc, err := ds.Apply(c.Scan)
		if err != nil {
			return nil, fmt.Errorf("dataset %q: %w", name, err)
		}
		sc.DatasetRoot = c.File.ResolveRoot(sc.DatasetRoot)
		out = append(out, finish(sc, override))
	}
	return out, nil
}

func finish(sc ScanConfig, override func(ScanConfig) ScanConfig) ScanConfig {
	if override != nil {
		sc = override(sc)
	}
	return sc
}
