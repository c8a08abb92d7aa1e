package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/nao1215/datalens/internal/config"
	"github.com/nao1215/datalens/internal/database"
	"github.com/nao1215/datalens/internal/engine"
	dlog "github.com/nao1215/datalens/internal/log"
	"github.com/nao1215/datalens/internal/metrics"
	"github.com/nao1215/datalens/internal/model"
	"github.com/nao1215/datalens/internal/pipeline"
	"github.com/nao1215/datalens/internal/report"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [dataset-root...]",
		Short: "Audit one or more image datasets",
		Long: `Scan audits image datasets and prints a report.

For every dataset it:
- Lists images under the images directory (default "images")
- Reconciles a CSV manifest with the files when --manifest is given
- Detects corrupted images and duplicate groups
- Computes resolution, color mode and hygiene statistics with --stats

Examples:
  # Filesystem mode with labels from subdirectories
  datalens scan ./pets

  # Manifest mode with explicit columns
  datalens scan --manifest labels.csv --filename-col image_id --label-col breed ./pets

  # Perceptual duplicates, statistics and a Markdown report
  datalens scan --hash phash --stats --markdown -o report.md ./pets

  # Scan named datasets from .datalens and keep the run in history
  datalens scan --dataset pets --dataset flowers --save

Exit status is non-zero only for configuration errors. Corrupted,
missing or duplicate images are reported, not treated as failures.`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Dataset flags
	cmd.Flags().String("mode", "", "Scan mode: filesystem or manifest (default: manifest when --manifest is set)")
	cmd.Flags().StringP("images", "i", config.DefaultImagesDir, "Images directory relative to the dataset root")
	cmd.Flags().StringP("ext", "e", strings.Join(config.DefaultExtensions, ","), "Allowed extensions, comma or space separated")
	cmd.Flags().StringP("hash", "H", config.DefaultHashStrategy.String(), "Duplicate detection method: sha256, quick or phash")
	cmd.Flags().BoolP("stats", "s", false, "Compute resolution and color mode statistics and hygiene checks")
	cmd.Flags().Bool("infer-classes", true, "Label images by their first-level subdirectory (filesystem mode)")
	cmd.Flags().StringP("manifest", "m", "", "CSV manifest path, absolute or relative to the dataset root")
	cmd.Flags().String("filename-col", "", "Manifest column holding image references (default: detected)")
	cmd.Flags().String("label-col", "", "Manifest column holding labels (default: detected)")
	cmd.Flags().Bool("ids-without-ext", true, "Resolve manifest references without an extension by file stem")
	cmd.Flags().Bool("normalize-labels", false, "Lower-case labels before counting")
	cmd.Flags().IntP("workers", "w", 0, "Worker pool size per stage (0: number of CPUs)")
	cmd.Flags().IntP("batch", "b", pipeline.DefaultBatchConcurrency, "Number of datasets audited concurrently")

	// Configuration file
	cmd.Flags().StringP("config", "c", "", "Configuration file path (default: .datalens in current or home directory)")
	cmd.Flags().StringArrayP("dataset", "D", nil, "Named dataset from the configuration file (repeatable)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false, "Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().Bool("markdown", false, "Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "", "Write report to specified file path (creates directories if needed)")
	cmd.Flags().String("issues", "", "Write the flat issue list as CSV to this path")
	cmd.Flags().Int("top", config.DefaultTopDuplicates, "Duplicate groups listed in the Markdown report")
	cmd.Flags().Bool("save", false, "Save the run to the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "History database directory")
	cmd.Flags().String("metrics-file", "", "Write Prometheus metrics for the node_exporter textfile collector")
	cmd.Flags().Bool("no-color", false, "Disable colored text output")
	cmd.Flags().String("log-format", "text", "Log format on stderr: text or json")

	return cmd
}

func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, override, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	scanConfigs, err := cfg.ScanConfigs(override)
	if err != nil {
		return err
	}
	opts, err := outputOptionsFromFlags(cmd)
	if err != nil {
		return err
	}

	logger, err := setupLogger(cmd.ErrOrStderr(), cfg.Verbose, logRoot(scanConfigs), opts.logFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runScan(ctx, cmd.OutOrStdout(), cfg, scanConfigs, opts, logger)
}

// outputOptions holds scan flags that only affect presentation.
type outputOptions struct {
	batch     int
	noColor   bool
	logFormat string
}

func outputOptionsFromFlags(cmd *cobra.Command) (outputOptions, error) {
	var (
		opts outputOptions
		err  error
	)
	if opts.batch, err = cmd.Flags().GetInt("batch"); err != nil {
		return opts, err
	}
	if opts.noColor, err = cmd.Flags().GetBool("no-color"); err != nil {
		return opts, err
	}
	if opts.logFormat, err = cmd.Flags().GetString("log-format"); err != nil {
		return opts, err
	}
	return opts, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// scanOverride returns a function applying the scan flags the user set
// explicitly, so they win over configuration file values.
func scanOverride(cmd *cobra.Command) (func(config.ScanConfig) config.ScanConfig, error) {
	flags := cmd.Flags()

	var (
		mode config.Mode
		hash config.HashStrategy
		err  error
	)
	if flags.Changed("mode") {
		name, _ := flags.GetString("mode")
		if mode, err = config.ParseMode(name); err != nil {
			return nil, err
		}
	}
	if flags.Changed("hash") {
		name, _ := flags.GetString("hash")
		if hash, err = config.ParseHashStrategy(name); err != nil {
			return nil, err
		}
	}
	images, _ := flags.GetString("images")
	ext, _ := flags.GetString("ext")
	stats, _ := flags.GetBool("stats")
	infer, _ := flags.GetBool("infer-classes")
	manifest, _ := flags.GetString("manifest")
	filenameCol, _ := flags.GetString("filename-col")
	labelCol, _ := flags.GetString("label-col")
	noExt, _ := flags.GetBool("ids-without-ext")
	normalize, _ := flags.GetBool("normalize-labels")
	workers, _ := flags.GetInt("workers")

	return func(sc config.ScanConfig) config.ScanConfig {
		if flags.Changed("images") {
			sc.ImagesDir = images
		}
		if flags.Changed("ext") {
			sc.Extensions = config.ParseExtensions(ext)
		}
		if flags.Changed("hash") {
			sc.Hash = hash
		}
		if flags.Changed("stats") {
			sc.ComputeStats = stats
		}
		if flags.Changed("infer-classes") {
			sc.InferClasses = infer
		}
		if flags.Changed("manifest") {
			sc.ManifestPath = manifest
			sc.Mode = config.ModeManifest
		}
		if flags.Changed("mode") {
			sc.Mode = mode
		}
		if flags.Changed("filename-col") {
			sc.FilenameColumn = filenameCol
		}
		if flags.Changed("label-col") {
			sc.LabelColumn = labelCol
		}
		if flags.Changed("ids-without-ext") {
			sc.IDsWithoutExt = noExt
		}
		if flags.Changed("normalize-labels") {
			sc.NormalizeLabels = normalize
		}
		if flags.Changed("workers") {
			sc.Workers = workers
		}
		return sc
	}, nil
}

// buildConfig creates a Config from cobra command flags and the
// configuration file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, func(config.ScanConfig) config.ScanConfig, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	override, err := scanOverride(cmd)
	if err != nil {
		return nil, nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)
	cfg.Roots = args
	if cfg.Datasets, err = flags.GetStringArray("dataset"); err != nil {
		return nil, nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, nil, err
	}

	// An explicit path must exist; the implicit search may find nothing.
	if path := config.FindConfigFile(cfg.ConfigFilePath); path != "" {
		if cfg.File, err = config.LoadConfigFile(path); err != nil {
			return nil, nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	} else if cfg.ConfigFilePath != "" {
		return nil, nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, nil, err
	}
	if cfg.IssuesFile, err = flags.GetString("issues"); err != nil {
		return nil, nil, err
	}
	if cfg.TopDuplicates, err = flags.GetInt("top"); err != nil {
		return nil, nil, err
	}
	if cfg.SaveHistory, err = flags.GetBool("save"); err != nil {
		return nil, nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, nil, err
	}
	if cfg.MetricsFile, err = flags.GetString("metrics-file"); err != nil {
		return nil, nil, err
	}
	if cfg.Scan.Workers, err = flags.GetInt("workers"); err != nil {
		return nil, nil, err
	}
	return cfg, override, nil
}

// setupLogger creates a structured logger based on verbosity and format.
// Paths under root are logged relative to it.
func setupLogger(w io.Writer, verbose bool, root, format string) (*slog.Logger, error) {
	switch format {
	case "", "text":
		return dlog.NewLogger(w, verbose, root), nil
	case "json":
		return dlog.NewJSONLogger(w, verbose, root), nil
	default:
		return nil, fmt.Errorf("%w: unknown log format %q (use text or json)", config.ErrConfiguration, format)
	}
}

// logRoot returns the dataset root when exactly one dataset is scanned.
func logRoot(configs []config.ScanConfig) string {
	if len(configs) != 1 {
		return ""
	}
	normalized, err := configs[0].Normalize()
	if err != nil {
		return ""
	}
	return normalized.DatasetRoot
}

// runScan audits every dataset and writes the requested outputs.
// Only configuration errors and cancellation are returned.
func runScan(ctx context.Context, stdout io.Writer, cfg *config.Config, scanConfigs []config.ScanConfig, opts outputOptions, logger *slog.Logger) error {
	logger.Info("starting scan",
		"datasets", len(scanConfigs),
		"batch", opts.batch,
		"save", cfg.SaveHistory,
	)

	var db *database.HistoryDB
	if cfg.SaveHistory {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer db.Close()
	}

	eng, err := engine.New(osfs.New("/"), engine.WithLogger(logger))
	if err != nil {
		return err
	}
	bp := pipeline.NewBatchProcessor(eng,
		pipeline.WithConcurrency(opts.batch),
		pipeline.WithBatchLogger(logger),
	)

	start := time.Now()
	reports, batchErr := bp.ProcessBatch(ctx, scanConfigs)
	logger.Info("scan finished", "elapsed", time.Since(start).Round(time.Millisecond))

	var recorder *metrics.Recorder
	if cfg.MetricsFile != "" {
		recorder = metrics.NewRecorder()
	}

	var configErrs []error
	for i, r := range reports {
		if r == nil {
			continue
		}
		if r.Error != nil && errors.Is(r.Error, config.ErrConfiguration) {
			configErrs = append(configErrs, fmt.Errorf("%s: %w", r.Config.DatasetRoot, r.Error))
		}
		if err := outputReport(stdout, cfg, opts, r, i, len(reports)); err != nil {
			logger.Error("report failed", "root", r.Config.DatasetRoot, "error", err)
		}
		if err := writeIssues(cfg, r, i, len(reports)); err != nil {
			logger.Error("issues export failed", "root", r.Config.DatasetRoot, "error", err)
		}
		if recorder != nil {
			recorder.Record(r)
		}
		if err := saveRun(ctx, db, r, logger); err != nil {
			logger.Error("failed to save run", "root", r.Config.DatasetRoot, "error", err)
		}
	}

	if recorder != nil {
		if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Error("metrics export failed", "error", err)
		}
	}

	if batchErr != nil {
		return batchErr
	}
	return errors.Join(configErrs...)
}

// indexedPath returns path unchanged for a single dataset, otherwise with
// the 1-based dataset index inserted before the extension.
func indexedPath(path string, i, n int) string {
	if n <= 1 || path == "" {
		return path
	}
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s.%d%s", strings.TrimSuffix(path, ext), i+1, ext)
}

// createFile creates path and its parent directories.
func createFile(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

// outputReport writes the report in the requested format.
func outputReport(stdout io.Writer, cfg *config.Config, opts outputOptions, r *model.Report, i, n int) error {
	output := stdout
	if cfg.ReportFile != "" {
		f, err := createFile(indexedPath(cfg.ReportFile, i, n))
		if err != nil {
			return err
		}
		defer f.Close()
		output = f
	}

	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(output, report.WithTopDuplicates(cfg.TopDuplicates))
	default:
		simpleOpts := []report.SimpleWriterOption{report.WithVerbose(cfg.Verbose)}
		if opts.noColor {
			simpleOpts = append(simpleOpts, report.WithColor(false))
		}
		w = report.NewSimpleWriter(output, simpleOpts...)
	}
	_, err := w.Write(r)
	return err
}

// writeIssues exports the flat issue list when requested.
func writeIssues(cfg *config.Config, r *model.Report, i, n int) error {
	if cfg.IssuesFile == "" || r.Error != nil {
		return nil
	}
	f, err := createFile(indexedPath(cfg.IssuesFile, i, n))
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = report.NewIssuesWriter(f).Write(r)
	return err
}

// saveRun stores a successful run in the history database.
// If db is nil, this function is a no-op.
func saveRun(ctx context.Context, db *database.HistoryDB, r *model.Report, logger *slog.Logger) error {
	if db == nil || r.Error != nil {
		return nil
	}
	id, err := db.SaveRun(ctx, r)
	if err != nil {
		return err
	}
	logger.Info("run saved to history", "root", r.Config.DatasetRoot, "id", id)
	return nil
}
