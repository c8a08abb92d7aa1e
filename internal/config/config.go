package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// Default command values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "datalens"

	// DefaultTopDuplicates is the number of duplicate groups rendered in
	// reports. The full list is always available in JSON output and the
	// issues export.
	DefaultTopDuplicates = 20

	// DefaultHistoryFile is the SQLite file name inside the data directory.
	DefaultHistoryFile = "datalens.db"
)

// Config holds the command-level options for one datalens invocation.
// Options that change scan results live in ScanConfig; everything here only
// changes how results are rendered, exported or stored.
type Config struct {
	// Scan is the base scan configuration. Per-dataset settings from the
	// configuration file are merged on top of it.
	Scan ScanConfig

	// Roots are the dataset roots given on the command line.
	Roots []string

	// Datasets are named datasets from the configuration file to scan in
	// addition to Roots.
	Datasets []string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .datalens in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// File holds named dataset configurations loaded from the config file.
	File *File

	// JSONReport enables JSON output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables GitHub Flavored Markdown output.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When empty the report is written to stdout.
	ReportFile string

	// IssuesFile is the output path of the flat issue list in CSV form.
	IssuesFile string

	// TopDuplicates limits the duplicate groups shown in text and Markdown
	// reports.
	TopDuplicates int

	// SaveHistory stores each finished run in the history database.
	SaveHistory bool

	// DBDir is the directory holding the history database.
	// Defaults to the XDG data directory (~/.local/share/datalens on Linux).
	DBDir string

	// MetricsFile is the path of a Prometheus textfile-collector export.
	MetricsFile string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Scan:          NewScanConfig(""),
		TopDuplicates: DefaultTopDuplicates,
		DBDir:         XDGDataDir(),
	}
}

// Validate checks the command-level options and the base scan configuration.
// It returns the first error found.
func (c *Config) Validate() error {
	if len(c.Roots) == 0 && len(c.Datasets) == 0 {
		return ErrNoDatasets
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.TopDuplicates <= 0 {
		return ErrInvalidTopDuplicates
	}
	if c.Scan.Workers < 0 {
		return ErrInvalidWorkers
	}
	if !c.Scan.Hash.Valid() {
		return ErrUnknownHashStrategy
	}
	return nil
}

// HistoryPath returns the history database path.
func (c *Config) HistoryPath() string {
	dir := c.DBDir
	if dir == "" {
		dir = XDGDataDir()
	}
	return filepath.Join(dir, DefaultHistoryFile)
}

// XDGDataDir returns the XDG data directory for datalens.
// On Linux: ~/.local/share/datalens
// On macOS: ~/Library/Application Support/datalens
// On Windows: %LOCALAPPDATA%\datalens
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}
