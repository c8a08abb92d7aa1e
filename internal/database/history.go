package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/datalens/internal/config"
	"github.com/nao1215/datalens/internal/model"
)

// lockRetryDelay is the polling interval while waiting for the write lock.
const lockRetryDelay = 50 * time.Millisecond

// HistoryDB stores run summaries and reports.
type HistoryDB struct {
	db          *sql.DB
	dbPath      string
	lock        *flock.Flock
	lockTimeout time.Duration
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so readers do not block the writer.
	EnableWAL bool

	// LockTimeout bounds how long SaveRun waits for the write lock.
	// Zero waits until the context is done.
	LockTimeout time.Duration
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
		LockTimeout:       10 * time.Second,
	}
}

// Open opens or creates the history database in dbDir.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, config.DefaultHistoryFile)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	h := &HistoryDB{
		db:          db,
		dbPath:      dbPath,
		lock:        flock.New(dbPath + ".lock"),
		lockTimeout: opts.LockTimeout,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := h.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return h, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		dataset_root TEXT NOT NULL,
		config_key TEXT NOT NULL,
		mode TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		summary_json TEXT NOT NULL,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_root ON runs(dataset_root);
	CREATE INDEX IF NOT EXISTS idx_runs_key ON runs(config_key);
	`
	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord is one saved run without its full report.
type RunRecord struct {
	// ID is the run's UUID.
	ID string

	DatasetRoot string
	ConfigKey   string
	Mode        string

	// Timestamp is the report's generation time.
	Timestamp time.Time

	Summary model.Summary
}

// SaveRun stores a finished report and returns the new run id.
// The write holds an inter-process lock so parallel invocations against the
// same history file do not interleave.
func (h *HistoryDB) SaveRun(ctx context.Context, report *model.Report) (string, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("failed to serialize report: %w", err)
	}
	summaryJSON, err := json.Marshal(model.NewSummary(report))
	if err != nil {
		return "", fmt.Errorf("failed to serialize summary: %w", err)
	}

	lockCtx := ctx
	if h.lockTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, h.lockTimeout)
		defer cancel()
	}
	locked, err := h.lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", ErrLocked
		}
		return "", fmt.Errorf("failed to acquire history lock: %w", err)
	}
	if !locked {
		return "", ErrLocked
	}
	defer func() { _ = h.lock.Unlock() }()

	id := uuid.NewString()
	query := `
	INSERT INTO runs (id, dataset_root, config_key, mode, timestamp, summary_json, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = h.db.ExecContext(ctx, query,
		id,
		report.Config.DatasetRoot,
		report.ConfigKey,
		string(report.Config.Mode),
		report.GeneratedAt.UTC().Format(time.RFC3339Nano),
		string(summaryJSON),
		string(reportJSON),
	)
	if err != nil {
		return "", fmt.Errorf("failed to save run: %w", err)
	}
	return id, nil
}

// ListRuns returns runs newest first. An empty datasetRoot lists every
// dataset. A non-positive limit returns all runs.
func (h *HistoryDB) ListRuns(ctx context.Context, datasetRoot string, limit int) ([]RunRecord, error) {
	query := `
	SELECT id, dataset_root, config_key, mode, timestamp, summary_json
	FROM runs
	WHERE 1=1
	`
	args := make([]any, 0, 2)
	if datasetRoot != "" {
		query += " AND dataset_root = ?"
		args = append(args, datasetRoot)
	}
	query += " ORDER BY seq DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var (
			rec         RunRecord
			timestamp   string
			summaryJSON string
		)
		if err := rows.Scan(&rec.ID, &rec.DatasetRoot, &rec.ConfigKey, &rec.Mode, &timestamp, &summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		rec.Timestamp = parseTimestamp(timestamp)
		if err := json.Unmarshal([]byte(summaryJSON), &rec.Summary); err != nil {
			continue // Skip malformed rows
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListDatasets returns every dataset root with at least one saved run.
func (h *HistoryDB) ListDatasets(ctx context.Context) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT DISTINCT dataset_root FROM runs ORDER BY dataset_root`)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	var roots []string
	for rows.Next() {
		var root string
		if err := rows.Scan(&root); err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		roots = append(roots, root)
	}
	return roots, rows.Err()
}

// GetRun retrieves one run record by id.
func (h *HistoryDB) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	query := `
	SELECT id, dataset_root, config_key, mode, timestamp, summary_json
	FROM runs
	WHERE id = ?
	`
	var (
		rec         RunRecord
		timestamp   string
		summaryJSON string
	)
	err := h.db.QueryRowContext(ctx, query, id).Scan(&rec.ID, &rec.DatasetRoot, &rec.ConfigKey, &rec.Mode, &timestamp, &summaryJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	rec.Timestamp = parseTimestamp(timestamp)
	if err := json.Unmarshal([]byte(summaryJSON), &rec.Summary); err != nil {
		return nil, fmt.Errorf("failed to parse summary: %w", err)
	}
	return &rec, nil
}

// GetReport retrieves the full report of a run.
func (h *HistoryDB) GetReport(ctx context.Context, id string) (*model.Report, error) {
	var reportJSON string
	err := h.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var report model.Report
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// CompareLatest diffs the two newest runs of a dataset.
func (h *HistoryDB) CompareLatest(ctx context.Context, datasetRoot string) (model.SummaryDiff, error) {
	runs, err := h.ListRuns(ctx, datasetRoot, 2)
	if err != nil {
		return model.SummaryDiff{}, err
	}
	if len(runs) < 2 {
		return model.SummaryDiff{}, ErrNotEnoughRuns
	}
	return model.Compare(runs[1].Summary, runs[0].Summary), nil
}

// CompareRuns diffs two runs by id, older first.
func (h *HistoryDB) CompareRuns(ctx context.Context, olderID, newerID string) (model.SummaryDiff, error) {
	older, err := h.GetRun(ctx, olderID)
	if err != nil {
		return model.SummaryDiff{}, err
	}
	newer, err := h.GetRun(ctx, newerID)
	if err != nil {
		return model.SummaryDiff{}, err
	}
	return model.Compare(older.Summary, newer.Summary), nil
}

// timestampFormats contains the timestamp formats SQLite may return.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp tries each known format and returns the zero time when
// none match.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
