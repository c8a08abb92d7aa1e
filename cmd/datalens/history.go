package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nao1215/datalens/internal/config"
	"github.com/nao1215/datalens/internal/database"
	"github.com/nao1215/datalens/internal/model"
	"github.com/nao1215/datalens/internal/report"
)

// NewHistoryCmd creates the history command.
// This command lists and compares runs stored with 'datalens scan --save'.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [dataset-root]",
		Short: "List and compare saved scan runs",
		Long: `History shows runs saved with 'datalens scan --save'.

Without flags it lists the runs of a dataset, newest first. With --compare
it shows how every summary count changed between two runs:
- By default the latest two runs of the dataset are compared
- With --with-run-id the given run is compared against the latest run

Examples:
  # List saved runs for a dataset
  datalens history ./pets

  # Compare the latest two runs
  datalens history --compare ./pets

  # Compare an older run with the latest run
  datalens history --compare --with-run-id 3f1c... ./pets

  # List all datasets in the history database
  datalens history --list-datasets`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list-datasets", "L", false, "List all datasets in the history database")
	cmd.Flags().Bool("compare", false, "Compare two runs of the dataset")
	cmd.Flags().String("with-run-id", "", "Compare this run with the latest run (use the run list to see IDs)")
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of runs listed (0: all)")
	cmd.Flags().BoolP("json", "j", false, "Output in JSON format")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "History database directory")

	return cmd
}

// historyOptions holds the parsed history flags.
type historyOptions struct {
	root         string
	listDatasets bool
	compare      bool
	withRunID    string
	limit        int
	jsonOutput   bool
	dbDir        string
}

func parseHistoryOptions(cmd *cobra.Command, args []string) (historyOptions, error) {
	var (
		opts historyOptions
		err  error
	)
	flags := cmd.Flags()
	if opts.listDatasets, err = flags.GetBool("list-datasets"); err != nil {
		return opts, err
	}
	if opts.compare, err = flags.GetBool("compare"); err != nil {
		return opts, err
	}
	if opts.withRunID, err = flags.GetString("with-run-id"); err != nil {
		return opts, err
	}
	if opts.limit, err = flags.GetInt("limit"); err != nil {
		return opts, err
	}
	if opts.jsonOutput, err = flags.GetBool("json"); err != nil {
		return opts, err
	}
	if opts.dbDir, err = flags.GetString("db-dir"); err != nil {
		return opts, err
	}

	if len(args) > 0 {
		// Runs are stored under the absolute dataset root.
		if opts.root, err = filepath.Abs(args[0]); err != nil {
			return opts, fmt.Errorf("invalid dataset root: %w", err)
		}
	}
	if opts.withRunID != "" {
		opts.compare = true
	}
	if opts.compare && opts.root == "" {
		return opts, errors.New("dataset root is required for comparison (use --list-datasets to see available datasets)")
	}
	return opts, nil
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	// Validate arguments before opening the database.
	opts, err := parseHistoryOptions(cmd, args)
	if err != nil {
		return err
	}

	db, err := database.Open(opts.dbDir, database.Options{EnableWAL: true})
	if err != nil {
		if errors.Is(err, database.ErrDatabaseNotFound) {
			return fmt.Errorf("%w (run 'datalens scan --save' first)", err)
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	switch {
	case opts.listDatasets:
		return listDatasets(ctx, out, db, opts.jsonOutput)
	case opts.compare:
		return compareRuns(ctx, out, db, opts)
	default:
		return listRuns(ctx, out, db, opts)
	}
}

// listDatasets prints every dataset root with saved runs.
func listDatasets(ctx context.Context, w io.Writer, db *database.HistoryDB, jsonOutput bool) error {
	roots, err := db.ListDatasets(ctx)
	if err != nil {
		return err
	}
	if jsonOutput {
		if roots == nil {
			roots = []string{}
		}
		return writeJSON(w, roots)
	}

	if len(roots) == 0 {
		fmt.Fprintln(w, "No datasets found in the history database.")
		fmt.Fprintln(w, "\nUse 'datalens scan --save <dataset-root>' to record a run.")
		return nil
	}
	fmt.Fprintf(w, "Datasets (%d):\n\n", len(roots))
	for _, root := range roots {
		fmt.Fprintf(w, "  • %s\n", root)
	}
	return nil
}

// runJSON is the JSON form of a run list entry.
type runJSON struct {
	ID          string        `json:"id"`
	DatasetRoot string        `json:"dataset_root"`
	ConfigKey   string        `json:"config_key"`
	Mode        string        `json:"mode"`
	Summary     model.Summary `json:"summary"`
}

// listRuns prints the saved runs of one dataset, or of all datasets when
// no root is given.
func listRuns(ctx context.Context, w io.Writer, db *database.HistoryDB, opts historyOptions) error {
	runs, err := db.ListRuns(ctx, opts.root, opts.limit)
	if err != nil {
		return err
	}
	if opts.jsonOutput {
		out := make([]runJSON, 0, len(runs))
		for _, run := range runs {
			out = append(out, runJSON{
				ID:          run.ID,
				DatasetRoot: run.DatasetRoot,
				ConfigKey:   run.ConfigKey,
				Mode:        run.Mode,
				Summary:     run.Summary,
			})
		}
		return writeJSON(w, out)
	}

	if len(runs) == 0 {
		if opts.root != "" {
			fmt.Fprintf(w, "No runs found for %s\n", opts.root)
		} else {
			fmt.Fprintln(w, "No runs found in the history database.")
		}
		return nil
	}

	headers := []string{"ID", "Date", "Mode", "Scanned", "Corrupted", "Dup Groups", "Missing", "Orphans"}
	if opts.root == "" {
		headers = append(headers, "Dataset")
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		s := run.Summary
		row := []string{
			run.ID,
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			run.Mode,
			strconv.Itoa(s.TotalScanned),
			strconv.Itoa(s.Corrupted),
			strconv.Itoa(s.DuplicateGroups),
			strconv.Itoa(s.MissingImages),
			strconv.Itoa(s.OrphanImages),
		}
		if opts.root == "" {
			row = append(row, run.DatasetRoot)
		}
		rows = append(rows, row)
	}

	if opts.root != "" {
		fmt.Fprintf(w, "Run history for %s (%d runs):\n\n", opts.root, len(runs))
	}
	fmt.Fprintln(w, report.RenderTable(headers, rows, 4, 5, 6, 7, 8))
	fmt.Fprintln(w, "\nUse 'datalens history --compare <dataset-root>' to compare the latest two runs.")
	return nil
}

// compareRuns prints the difference between two runs.
func compareRuns(ctx context.Context, w io.Writer, db *database.HistoryDB, opts historyOptions) error {
	var (
		diff model.SummaryDiff
		err  error
	)
	if opts.withRunID == "" {
		diff, err = db.CompareLatest(ctx, opts.root)
	} else {
		diff, err = compareWithRun(ctx, db, opts.root, opts.withRunID)
	}
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		return writeJSON(w, diff)
	}
	writeDiffText(w, diff)
	return nil
}

// compareWithRun diffs the run id against the latest run of root.
func compareWithRun(ctx context.Context, db *database.HistoryDB, root, id string) (model.SummaryDiff, error) {
	older, err := db.GetRun(ctx, id)
	if err != nil {
		return model.SummaryDiff{}, err
	}
	if older.DatasetRoot != root {
		return model.SummaryDiff{}, fmt.Errorf("run %s belongs to %s, not %s", id, older.DatasetRoot, root)
	}
	latest, err := db.ListRuns(ctx, root, 1)
	if err != nil {
		return model.SummaryDiff{}, err
	}
	if len(latest) == 0 {
		return model.SummaryDiff{}, database.ErrNotEnoughRuns
	}
	return db.CompareRuns(ctx, id, latest[0].ID)
}

// writeDiffText renders a diff as a Metric | Old | New | Change table.
func writeDiffText(w io.Writer, d model.SummaryDiff) {
	fmt.Fprintf(w, "Comparison for %s\n", d.New.DatasetRoot)
	fmt.Fprintf(w, "  Previous: %s\n", d.Old.GeneratedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  Current:  %s\n\n", d.New.GeneratedAt.Local().Format("2006-01-02 15:04:05"))

	lines := []struct {
		name     string
		old, new int
		delta    int
	}{
		{"Total scanned", d.Old.TotalScanned, d.New.TotalScanned, d.TotalScanned},
		{"Resolved", d.Old.Resolved, d.New.Resolved, d.Resolved},
		{"Corrupted", d.Old.Corrupted, d.New.Corrupted, d.Corrupted},
		{"Duplicate groups", d.Old.DuplicateGroups, d.New.DuplicateGroups, d.DuplicateGroups},
		{"Missing images", d.Old.MissingImages, d.New.MissingImages, d.MissingImages},
		{"Orphan images", d.Old.OrphanImages, d.New.OrphanImages, d.OrphanImages},
		{"Missing labels", d.Old.MissingLabels, d.New.MissingLabels, d.MissingLabels},
		{"Warnings", d.Old.Warnings, d.New.Warnings, d.Warnings},
	}
	rows := make([][]string, 0, len(lines))
	for _, m := range lines {
		rows = append(rows, []string{m.name, strconv.Itoa(m.old), strconv.Itoa(m.new), formatDelta(m.delta)})
	}
	fmt.Fprintln(w, report.RenderTable([]string{"Metric", "Old", "New", "Change"}, rows, 2, 3, 4))

	if !d.HasChanges() {
		fmt.Fprintln(w, "\nNo changes between runs.")
	}
}

// formatDelta renders a signed change, or "-" for no change.
func formatDelta(n int) string {
	if n == 0 {
		return "-"
	}
	return fmt.Sprintf("%+d", n)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
