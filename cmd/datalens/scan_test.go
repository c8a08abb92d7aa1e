package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/datalens/internal/config"
	"github.com/nao1215/datalens/internal/fixture"
	"github.com/nao1215/datalens/internal/report"
)

// TestNewScanCmd tests the scan command creation.
func TestNewScanCmd(t *testing.T) {
	t.Parallel()

	cmd := NewScanCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Name() != "scan" {
			t.Errorf("expected name 'scan', got %q", cmd.Name())
		}
	})

	flags := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{name: "images", shorthand: "i", defValue: config.DefaultImagesDir},
		{name: "hash", shorthand: "H", defValue: "sha256"},
		{name: "stats", shorthand: "s", defValue: "false"},
		{name: "manifest", shorthand: "m", defValue: ""},
		{name: "workers", shorthand: "w", defValue: "0"},
		{name: "batch", shorthand: "b", defValue: "2"},
		{name: "config", shorthand: "c", defValue: ""},
		{name: "dataset", shorthand: "D", defValue: "[]"},
		{name: "json", shorthand: "j", defValue: "false"},
		{name: "output", shorthand: "o", defValue: ""},
		{name: "infer-classes", defValue: "true"},
		{name: "ids-without-ext", defValue: "true"},
		{name: "top", defValue: "20"},
		{name: "save", defValue: "false"},
	}
	for _, tt := range flags {
		t.Run("has "+tt.name+" flag", func(t *testing.T) {
			t.Parallel()
			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("expected default %q, got %q", tt.defValue, flag.DefValue)
			}
		})
	}
}

func TestSetupLogger(t *testing.T) {
	t.Parallel()

	t.Run("json format writes JSON lines", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger, err := setupLogger(&buf, true, "/data", "json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		logger.Debug("decoded", "path", "/data/images/a.png")
		if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"path":"images/a.png"`) {
			t.Errorf("unexpected log line: %s", buf.String())
		}
	})

	t.Run("non-verbose text logger drops debug", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger, err := setupLogger(&buf, false, "", "text")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		logger.Debug("hidden")
		if buf.Len() != 0 {
			t.Errorf("expected no output, got %q", buf.String())
		}
	})

	t.Run("unknown format is a configuration error", func(t *testing.T) {
		t.Parallel()

		if _, err := setupLogger(&bytes.Buffer{}, false, "", "xml"); !errors.Is(err, config.ErrConfiguration) {
			t.Errorf("expected configuration error, got %v", err)
		}
	})
}

func TestGetVerboseFlag(t *testing.T) {
	t.Parallel()

	t.Run("returns false when flag not set", func(t *testing.T) {
		t.Parallel()
		if getVerboseFlag(NewScanCmd()) {
			t.Error("expected false")
		}
	})

	t.Run("returns value from parent verbose flag", func(t *testing.T) {
		t.Parallel()
		root := NewRootCmd()
		if err := root.PersistentFlags().Set("verbose", "true"); err != nil {
			t.Fatal(err)
		}
		scan, _, err := root.Find([]string{"scan"})
		if err != nil {
			t.Fatal(err)
		}
		if !getVerboseFlag(scan) {
			t.Error("expected true")
		}
	})
}

// builtConfig is the result of buildConfig.
type builtConfig struct {
	cfg      *config.Config
	override func(config.ScanConfig) config.ScanConfig
	err      error
}

// parseScanFlags runs buildConfig on a scan command with args parsed.
func parseScanFlags(t *testing.T, args ...string) *builtConfig {
	t.Helper()

	cmd := NewScanCmd()
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}
	cfg, override, err := buildConfig(cmd, cmd.Flags().Args())
	return &builtConfig{cfg: cfg, override: override, err: err}
}

func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("builds config with default values", func(t *testing.T) {
		t.Parallel()

		got := parseScanFlags(t, "--config", writeConfig(t, "defaults: {}\n"), "/data")
		if got.err != nil {
			t.Fatalf("unexpected error: %v", got.err)
		}
		if got.cfg.TopDuplicates != config.DefaultTopDuplicates {
			t.Errorf("TopDuplicates = %d", got.cfg.TopDuplicates)
		}
		scans, err := got.cfg.ScanConfigs(got.override)
		if err != nil {
			t.Fatal(err)
		}
		if len(scans) != 1 || scans[0].DatasetRoot != "/data" {
			t.Fatalf("unexpected scan configs: %+v", scans)
		}
		if scans[0].Mode != config.ModeFilesystem || scans[0].Hash != config.HashSHA256 {
			t.Errorf("unexpected defaults: %+v", scans[0])
		}
	})

	t.Run("manifest flag selects manifest mode", func(t *testing.T) {
		t.Parallel()

		got := parseScanFlags(t, "--config", writeConfig(t, "defaults: {}\n"), "-m", "labels.csv", "/data")
		if got.err != nil {
			t.Fatalf("unexpected error: %v", got.err)
		}
		scans, err := got.cfg.ScanConfigs(got.override)
		if err != nil {
			t.Fatal(err)
		}
		if scans[0].Mode != config.ModeManifest || scans[0].ManifestPath != "labels.csv" {
			t.Errorf("unexpected scan config: %+v", scans[0])
		}
	})

	t.Run("explicit flags win over config file", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, "defaults:\n  hash: quick\n  stats: true\n  images: pics\n")
		got := parseScanFlags(t, "--config", path, "--hash", "phash", "/data")
		if got.err != nil {
			t.Fatalf("unexpected error: %v", got.err)
		}
		scans, err := got.cfg.ScanConfigs(got.override)
		if err != nil {
			t.Fatal(err)
		}
		sc := scans[0]
		if sc.Hash != config.HashPerceptual {
			t.Errorf("Hash = %s, want phash", sc.Hash)
		}
		if !sc.ComputeStats || sc.ImagesDir != "pics" {
			t.Errorf("config file defaults lost: %+v", sc)
		}
	})

	t.Run("named datasets resolve against the config file", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, "datasets:\n  pets:\n    root: pets\n    manifest: labels.csv\n")
		got := parseScanFlags(t, "--config", path, "--dataset", "pets")
		if got.err != nil {
			t.Fatalf("unexpected error: %v", got.err)
		}
		scans, err := got.cfg.ScanConfigs(got.override)
		if err != nil {
			t.Fatal(err)
		}
		want := filepath.Join(filepath.Dir(path), "pets")
		if scans[0].DatasetRoot != want || scans[0].Mode != config.ModeManifest {
			t.Errorf("unexpected scan config: %+v", scans[0])
		}
	})

	t.Run("returns error for missing explicit config file", func(t *testing.T) {
		t.Parallel()

		got := parseScanFlags(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "/data")
		if !errors.Is(got.err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", got.err)
		}
	})

	t.Run("returns error for invalid hash name", func(t *testing.T) {
		t.Parallel()

		got := parseScanFlags(t, "--hash", "md5", "/data")
		if !errors.Is(got.err, config.ErrUnknownHashStrategy) {
			t.Errorf("expected ErrUnknownHashStrategy, got %v", got.err)
		}
	})
}

func TestIndexedPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		i, n int
		want string
	}{
		{name: "single dataset keeps the path", path: "out/report.md", i: 0, n: 1, want: "out/report.md"},
		{name: "index goes before the extension", path: "out/report.md", i: 1, n: 3, want: "out/report.2.md"},
		{name: "no extension", path: "report", i: 0, n: 2, want: "report.1"},
		{name: "empty path stays empty", path: "", i: 0, n: 2, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := indexedPath(tt.path, tt.i, tt.n); got != tt.want {
				t.Errorf("indexedPath(%q, %d, %d) = %q, want %q", tt.path, tt.i, tt.n, got, tt.want)
			}
		})
	}
}

// writeConfig writes a configuration file into a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".datalens")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// writeFile writes data under root, creating parent directories.
func writeFile(t *testing.T, root, rel string, data []byte) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
}

// newClassDataset builds a filesystem-mode dataset with one duplicate pair
// and one corrupted image.
func newClassDataset(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	red := fixture.RGBPNG(t, 16, 16, color.RGBA{R: 255})
	writeFile(t, root, "images/cat/a.png", red)
	writeFile(t, root, "images/cat/a_copy.png", red)
	writeFile(t, root, "images/dog/b.png", fixture.RGBPNG(t, 16, 16, color.RGBA{B: 255}))
	writeFile(t, root, "images/dog/broken.png", fixture.Truncate(fixture.RGBPNG(t, 32, 32, color.RGBA{G: 255})))
	return root
}

// runRoot executes the root command and returns stdout.
func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestRunScanCmd(t *testing.T) {
	t.Parallel()

	t.Run("writes JSON report, issues, metrics and history", func(t *testing.T) {
		t.Parallel()

		root := newClassDataset(t)
		out := t.TempDir()
		cfgPath := writeConfig(t, "defaults: {}\n")

		_, err := runRoot(t, "scan", "--config", cfgPath, "--json",
			"-o", filepath.Join(out, "report.json"),
			"--issues", filepath.Join(out, "issues.csv"),
			"--metrics-file", filepath.Join(out, "datalens.prom"),
			"--save", "--db-dir", filepath.Join(out, "db"),
			root)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(filepath.Join(out, "report.json"))
		if err != nil {
			t.Fatalf("report not written: %v", err)
		}
		var parsed report.JSONReport
		if err := json.Unmarshal(data, &parsed); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		s := parsed.Summary
		if s.TotalScanned != 4 || s.Corrupted != 1 || s.DuplicateGroups != 1 {
			t.Errorf("unexpected summary: %+v", s)
		}

		issues, err := os.ReadFile(filepath.Join(out, "issues.csv"))
		if err != nil {
			t.Fatalf("issues not written: %v", err)
		}
		if !strings.Contains(string(issues), "broken.png") {
			t.Errorf("issues export misses the corrupted image:\n%s", issues)
		}

		prom, err := os.ReadFile(filepath.Join(out, "datalens.prom"))
		if err != nil {
			t.Fatalf("metrics not written: %v", err)
		}
		if !strings.Contains(string(prom), "datalens_dataset_duplicate_groups") {
			t.Errorf("metrics missing duplicate groups:\n%s", prom)
		}

		if _, err := os.Stat(filepath.Join(out, "db", config.DefaultHistoryFile)); err != nil {
			t.Errorf("history database not created: %v", err)
		}
	})

	t.Run("reconciles a manifest in Markdown", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		writeFile(t, root, "images/a.png", fixture.RGBPNG(t, 8, 8, color.RGBA{R: 10}))
		writeFile(t, root, "images/orphan.png", fixture.RGBPNG(t, 8, 8, color.RGBA{G: 10}))
		writeFile(t, root, "labels.csv", []byte("filename,label\na.png,cat\nmissing.png,dog\n"))

		stdout, err := runRoot(t, "scan", "--config", writeConfig(t, "defaults: {}\n"),
			"--markdown", "-m", "labels.csv", root)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"# Dataset Report", "missing.png", "orphan.png"} {
			if !strings.Contains(stdout, want) {
				t.Errorf("expected report to contain %q:\n%s", want, stdout)
			}
		}
	})

	t.Run("prints text report by default", func(t *testing.T) {
		t.Parallel()

		stdout, err := runRoot(t, "scan", "--config", writeConfig(t, "defaults: {}\n"), newClassDataset(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "CORRUPTED IMAGES") {
			t.Errorf("expected corrupted section:\n%s", stdout)
		}
	})

	t.Run("configuration errors fail the command", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name string
			args []string
			want error
		}{
			{name: "conflicting formats", args: []string{"--json", "--markdown", "/data"}, want: config.ErrConflictingReportFormats},
			{name: "no dataset", args: nil, want: config.ErrNoDatasets},
			{name: "unknown dataset", args: []string{"--dataset", "nope"}, want: config.ErrUnknownDataset},
		}
		for _, tt := range tests {
			args := append([]string{"scan", "--config", writeConfig(t, "defaults: {}\n")}, tt.args...)
			_, err := runRoot(t, args...)
			if !errors.Is(err, tt.want) {
				t.Errorf("%s: expected %v, got %v", tt.name, tt.want, err)
			}
		}
	})

	t.Run("unresolvable manifest column is a configuration error", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		writeFile(t, root, "labels.csv", []byte("foo,bar\n1,2\n"))
		_, err := runRoot(t, "scan", "--config", writeConfig(t, "defaults: {}\n"), "-m", "labels.csv", root)
		if !errors.Is(err, config.ErrConfiguration) {
			t.Errorf("expected configuration error, got %v", err)
		}
	})
}
