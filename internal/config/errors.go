package config

import (
	"errors"
	"fmt"
)

// ErrConfiguration is the root of every fatal configuration error.
// Only errors wrapping it abort a scan; everything else is recorded as data
// inside the scan and check results.
var ErrConfiguration = errors.New("configuration error")

// Configuration validation errors.
// These errors are returned by ScanConfig.Validate() and Config.Validate()
// and wrap ErrConfiguration so callers can match either the specific
// condition or the whole class with errors.Is().
var (
	// ErrNoDatasetRoot is returned when no dataset root directory is specified.
	ErrNoDatasetRoot = fmt.Errorf("%w: no dataset root specified", ErrConfiguration)

	// ErrInvalidMode is returned for a scan mode other than filesystem or manifest.
	ErrInvalidMode = fmt.Errorf("%w: invalid scan mode", ErrConfiguration)

	// ErrUnknownHashStrategy is returned for a duplicate detection strategy
	// name that is not one of sha256, quick or phash.
	ErrUnknownHashStrategy = fmt.Errorf("%w: unknown hash strategy", ErrConfiguration)

	// ErrNoExtensions is returned when the allowed extension list is empty.
	// An empty allow-set would make every scan report zero images.
	ErrNoExtensions = fmt.Errorf("%w: no allowed extensions", ErrConfiguration)

	// ErrNoManifest is returned when manifest mode is selected without a manifest path.
	ErrNoManifest = fmt.Errorf("%w: manifest mode requires a manifest path", ErrConfiguration)

	// ErrInvalidWorkers is returned when the worker count is negative.
	// Use 0 to size the pool by the number of CPUs.
	ErrInvalidWorkers = fmt.Errorf("%w: invalid worker count: must be non-negative", ErrConfiguration)

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = fmt.Errorf("%w: --json and --markdown cannot be used together", ErrConfiguration)

	// ErrInvalidTopDuplicates is returned when the number of duplicate groups
	// shown in reports is not positive.
	ErrInvalidTopDuplicates = fmt.Errorf("%w: invalid duplicate group limit: must be positive", ErrConfiguration)

	// ErrNoDatasets is returned when a command has nothing to scan.
	ErrNoDatasets = fmt.Errorf("%w: no dataset specified: provide a dataset root or use --dataset", ErrConfiguration)
)
