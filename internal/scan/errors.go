package scan

import (
	"fmt"

	"github.com/nao1215/datalens/internal/config"
)

// Scan errors. All of them are configuration errors: they abort the scan
// and match config.ErrConfiguration with errors.Is().
var (
	// ErrManifestRead is returned when the manifest is absent, unreadable,
	// empty, or not parseable as delimited text.
	ErrManifestRead = fmt.Errorf("%w: failed to read manifest", config.ErrConfiguration)

	// ErrFilenameColumnNotFound is returned when no header matches the
	// filename candidates.
	ErrFilenameColumnNotFound = fmt.Errorf("%w: could not detect filename column, use --filename-col", config.ErrConfiguration)

	// ErrImagesRead is returned when the images directory exists but cannot
	// be listed. A missing images directory is not an error.
	ErrImagesRead = fmt.Errorf("%w: failed to list images directory", config.ErrConfiguration)

	// ErrColumnNotFound is returned when a column override names a header
	// that does not exist in the manifest.
	ErrColumnNotFound = fmt.Errorf("%w: column not found in manifest", config.ErrConfiguration)
)
