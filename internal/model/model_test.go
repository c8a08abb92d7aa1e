package model

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/nao1215/datalens/internal/config"
)

func TestScanResultRates(t *testing.T) {
	t.Parallel()

	t.Run("coverage is resolved over rows", func(t *testing.T) {
		t.Parallel()
		s := &ScanResult{ResolvedImages: 3, ManifestRowCount: 4}
		if got := s.Coverage(); math.Abs(got-0.75) > 1e-9 {
			t.Errorf("expected 0.75, got %v", got)
		}
	})

	t.Run("coverage without rows is zero", func(t *testing.T) {
		t.Parallel()
		s := &ScanResult{ResolvedImages: 3}
		if got := s.Coverage(); got != 0 {
			t.Errorf("expected 0, got %v", got)
		}
	})

	t.Run("orphan rate is orphans over scanned", func(t *testing.T) {
		t.Parallel()
		s := &ScanResult{OrphanImages: []string{"/a"}, TotalImagesScanned: 4}
		if got := s.OrphanRate(); math.Abs(got-0.25) > 1e-9 {
			t.Errorf("expected 0.25, got %v", got)
		}
		empty := &ScanResult{}
		if got := empty.OrphanRate(); got != 0 {
			t.Errorf("expected 0, got %v", got)
		}
	})

	t.Run("paths follow image order", func(t *testing.T) {
		t.Parallel()
		s := &ScanResult{Images: []ImageEntry{{Path: "/a"}, {Path: "/b"}}}
		got := s.Paths()
		if len(got) != 2 || got[0] != "/a" || got[1] != "/b" {
			t.Errorf("unexpected paths %v", got)
		}
	})
}

func TestBuildIssues(t *testing.T) {
	t.Parallel()

	scan := &ScanResult{
		MissingImages: []MissingReference{{RowIndex: 2, Reference: "x.png"}},
		OrphanImages:  []string{"/d/images/o.png"},
	}
	check := &CheckResult{
		Corrupted:  []FileError{{Path: "/d/images/bad.png", Error: "unexpected EOF"}},
		Duplicates: []DuplicateGroup{{Hash: "abc", Paths: []string{"/d/images/a.png", "/d/images/b.png"}}},
		HashMethod: "sha256",
	}

	issues := BuildIssues(scan, check)
	if len(issues) != 5 {
		t.Fatalf("expected 5 issues, got %d", len(issues))
	}

	t.Run("missing issue carries row and reference", func(t *testing.T) {
		t.Parallel()
		is := issues[0]
		if is.Type != IssueMissing || is.RowIndex == nil || *is.RowIndex != 2 || is.Reference != "x.png" {
			t.Errorf("unexpected missing issue %+v", is)
		}
		if is.Severity != SeverityMedium {
			t.Errorf("expected medium severity, got %s", is.Severity)
		}
	})

	t.Run("orphan and corrupted issues carry paths", func(t *testing.T) {
		t.Parallel()
		if issues[1].Type != IssueOrphan || issues[1].Path != "/d/images/o.png" {
			t.Errorf("unexpected orphan issue %+v", issues[1])
		}
		if issues[2].Type != IssueCorrupted || issues[2].Error != "unexpected EOF" {
			t.Errorf("unexpected corrupted issue %+v", issues[2])
		}
	})

	t.Run("duplicate members share a one-based group id", func(t *testing.T) {
		t.Parallel()
		for _, is := range issues[3:] {
			if is.Type != IssueDuplicate || is.GroupID != 1 || is.Hash != "abc" || is.Method != "sha256" {
				t.Errorf("unexpected duplicate issue %+v", is)
			}
		}
	})

	t.Run("nil inputs yield no issues", func(t *testing.T) {
		t.Parallel()
		if got := BuildIssues(nil, nil); len(got) != 0 {
			t.Errorf("expected no issues, got %d", len(got))
		}
	})
}

func TestWarnings(t *testing.T) {
	t.Parallel()

	t.Run("new warnings hold every category in alphabetical order", func(t *testing.T) {
		t.Parallel()
		w := NewWarnings()
		want := []string{"CSV", "Data Hygiene", "Duplicates", "Extensions", "Labels"}
		if len(w) != len(want) {
			t.Fatalf("expected %d categories, got %d", len(want), len(w))
		}
		for i, c := range want {
			if w[i].Category != c {
				t.Errorf("category %d: expected %q, got %q", i, c, w[i].Category)
			}
		}
		if w.Count() != 0 {
			t.Errorf("expected no messages, got %d", w.Count())
		}
	})

	t.Run("add appends to the matching category", func(t *testing.T) {
		t.Parallel()
		w := NewWarnings()
		w.Add(CategoryLabels, "Missing labels: 3")
		w.Add(CategoryLabels, "Class imbalance detected (min/max < 0.10).")
		if got := w.Get(CategoryLabels); len(got) != 2 {
			t.Errorf("expected 2 label warnings, got %v", got)
		}
		if w.Count() != 2 {
			t.Errorf("expected 2 messages, got %d", w.Count())
		}
	})
}

func TestNewReport(t *testing.T) {
	t.Parallel()

	cfg := config.NewScanConfig("/data")
	r := NewReport(cfg)

	t.Run("stores config key", func(t *testing.T) {
		t.Parallel()
		if r.ConfigKey != cfg.Key() {
			t.Errorf("expected key %q, got %q", cfg.Key(), r.ConfigKey)
		}
	})

	t.Run("sets generation timestamp", func(t *testing.T) {
		t.Parallel()
		if time.Since(r.GeneratedAt) > time.Minute {
			t.Error("GeneratedAt is too old")
		}
	})

	t.Run("initializes warnings and timings", func(t *testing.T) {
		t.Parallel()
		if len(r.Warnings) == 0 || r.Timings == nil {
			t.Error("expected warnings and timings to be initialized")
		}
	})

	t.Run("set error keeps the message", func(t *testing.T) {
		t.Parallel()
		rr := NewReport(cfg)
		rr.SetError(errors.New("boom"))
		if rr.ErrorMessage != "boom" {
			t.Errorf("expected error message boom, got %q", rr.ErrorMessage)
		}
	})

	t.Run("filesystem scan without inference is unlabeled", func(t *testing.T) {
		t.Parallel()
		c := config.NewScanConfig("/data")
		c.InferClasses = false
		if NewReport(c).IsLabeled() {
			t.Error("expected unlabeled report")
		}
	})
}

func TestSummaryAndCompare(t *testing.T) {
	t.Parallel()

	r := NewReport(config.NewScanConfig("/data"))
	r.Scan = &ScanResult{TotalImagesScanned: 10, ResolvedImages: 9, OrphanImages: []string{"/o"}}
	r.Check = &CheckResult{
		Corrupted:  []FileError{{Path: "/c"}},
		Duplicates: []DuplicateGroup{{Hash: "h", Paths: []string{"/a", "/b", "/c"}}},
	}
	r.Issues = BuildIssues(r.Scan, r.Check)

	s := NewSummary(r)
	if s.TotalScanned != 10 || s.Corrupted != 1 || s.DuplicateGroups != 1 || s.DuplicateFiles != 3 {
		t.Errorf("unexpected summary %+v", s)
	}
	if s.HighCount != 1 || s.LowCount != 4 || s.TotalIssues() != 5 {
		t.Errorf("unexpected severity counts %+v", s)
	}

	older := s
	older.Corrupted = 3
	diff := Compare(older, s)
	if diff.Corrupted != -2 || !diff.HasChanges() {
		t.Errorf("unexpected diff %+v", diff)
	}
	if Compare(s, s).HasChanges() {
		t.Error("expected identical summaries to have no changes")
	}
}
