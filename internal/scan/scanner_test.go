package scan

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/nao1215/datalens/internal/config"
	"github.com/nao1215/datalens/internal/fixture"
	"github.com/nao1215/datalens/internal/model"
)

func imagePath(rel string) string {
	return filepath.Join(fixture.Root, "images", filepath.FromSlash(rel))
}

func manifestConfig(manifest string) config.ScanConfig {
	cfg := config.NewScanConfig(fixture.Root)
	cfg.Mode = config.ModeManifest
	cfg.ManifestPath = manifest
	return cfg
}

func seed(t *testing.T, fs billy.Filesystem, rels ...string) {
	t.Helper()
	for _, rel := range rels {
		fixture.Image(t, fs, rel, []byte("x"))
	}
}

func TestScanFilesystem(t *testing.T) {
	t.Parallel()

	t.Run("infers labels from the first directory", func(t *testing.T) {
		t.Parallel()

		fs := fixture.NewFS()
		seed(t, fs, "cat/a.jpg", "dog/b.jpg", "c.jpg", "notes.txt")

		cfg := config.NewScanConfig(fixture.Root)
		cfg.Extensions = []string{".jpg"}

		result, err := New(fs).Scan(context.Background(), cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Images) != 3 {
			t.Fatalf("expected 3 images, got %d", len(result.Images))
		}
		want := map[string]string{
			imagePath("c.jpg"):     "",
			imagePath("cat/a.jpg"): "cat",
			imagePath("dog/b.jpg"): "dog",
		}
		for _, img := range result.Images {
			label, ok := want[img.Path]
			if !ok {
				t.Errorf("unexpected image %s", img.Path)
				continue
			}
			if img.Label != label {
				t.Errorf("label of %s = %q, want %q", img.Path, img.Label, label)
			}
		}
		if result.MissingLabelCount != 1 {
			t.Errorf("expected missing label count 1, got %d", result.MissingLabelCount)
		}
		if result.ResolvedImages != result.TotalImagesScanned {
			t.Errorf("resolved %d != scanned %d", result.ResolvedImages, result.TotalImagesScanned)
		}
		if len(result.MissingImages) != 0 || len(result.OrphanImages) != 0 {
			t.Error("filesystem mode should have no missing or orphan images")
		}
	})

	t.Run("matches extensions case-insensitively", func(t *testing.T) {
		t.Parallel()

		fs := fixture.NewFS()
		seed(t, fs, "A.JPG", "b.Png", "c.gif")

		result, err := New(fs).Scan(context.Background(), config.NewScanConfig(fixture.Root))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Images) != 2 {
			t.Errorf("expected 2 images, got %d", len(result.Images))
		}
	})

	t.Run("does not label without class inference", func(t *testing.T) {
		t.Parallel()

		fs := fixture.NewFS()
		seed(t, fs, "cat/a.jpg", "b.jpg")

		cfg := config.NewScanConfig(fixture.Root)
		cfg.InferClasses = false

		result, err := New(fs).Scan(context.Background(), cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, img := range result.Images {
			if img.HasLabel() {
				t.Errorf("unexpected label on %s", img.Path)
			}
		}
		if result.MissingLabelCount != 0 {
			t.Errorf("expected no missing label count, got %d", result.MissingLabelCount)
		}
	})

	t.Run("returns an empty result when the images directory is absent", func(t *testing.T) {
		t.Parallel()

		result, err := New(fixture.NewFS()).Scan(context.Background(), config.NewScanConfig(fixture.Root))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Images == nil || len(result.Images) != 0 {
			t.Errorf("expected an empty non-nil image list, got %#v", result.Images)
		}
	})

	t.Run("honors a canceled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := New(fixture.NewFS()).Scan(ctx, config.NewScanConfig(fixture.Root))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestScanManifest(t *testing.T) {
	t.Parallel()

	t.Run("reconciles rows with files on disk", func(t *testing.T) {
		t.Parallel()

		fs := fixture.NewFS()
		seed(t, fs, "a.jpg", "b.jpg", "orphan.jpg")
		fixture.Write(t, fs, "/data/labels.csv", []byte("filename,label\na.jpg,Cat\nb.jpg,\nmissing.jpg,dog\n,bird\n"))

		result, err := New(fs).Scan(context.Background(), manifestConfig("labels.csv"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.FilenameColumn != "filename" || result.LabelColumn != "label" {
			t.Errorf("unexpected columns %q/%q", result.FilenameColumn, result.LabelColumn)
		}
		if result.ManifestRowCount != 4 {
			t.Errorf("expected 4 rows, got %d", result.ManifestRowCount)
		}
		if result.ResolvedImages != 2 || len(result.Images) != 2 {
			t.Fatalf("expected 2 resolved images, got %d", result.ResolvedImages)
		}
		if result.Images[0].Label != "Cat" {
			t.Errorf("expected label Cat, got %q", result.Images[0].Label)
		}
		if result.MissingLabelCount != 1 {
			t.Errorf("expected 1 missing label, got %d", result.MissingLabelCount)
		}

		wantMissing := []model.MissingReference{
			{RowIndex: 2, Reference: "missing.jpg"},
			{RowIndex: 3, Reference: model.EmptyReference},
		}
		if len(result.MissingImages) != len(wantMissing) {
			t.Fatalf("expected %d missing, got %#v", len(wantMissing), result.MissingImages)
		}
		for i, want := range wantMissing {
			if result.MissingImages[i] != want {
				t.Errorf("missing[%d] = %#v, want %#v", i, result.MissingImages[i], want)
			}
		}
		if len(result.OrphanImages) != 1 || result.OrphanImages[0] != imagePath("orphan.jpg") {
			t.Errorf("unexpected orphans %v", result.OrphanImages)
		}
		if result.ManifestExtCounts[".jpg"] != 3 {
			t.Errorf("expected 3 .jpg references, got %d", result.ManifestExtCounts[".jpg"])
		}
	})

	t.Run("partitions listed files into images and orphans", func(t *testing.T) {
		t.Parallel()

		fs := fixture.NewFS()
		seed(t, fs, "a.jpg", "b.png", "sub/c.jpg", "d.webp")
		fixture.Write(t, fs, "/data/labels.csv", []byte("image,class\na.jpg,x\nimages/sub/c.jpg,y\n"))

		result, err := New(fs).Scan(context.Background(), manifestConfig("labels.csv"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		seen := make(map[string]int)
		for _, img := range result.Images {
			seen[img.Path]++
		}
		for _, p := range result.OrphanImages {
			seen[p]++
		}
		if len(seen) != result.TotalImagesScanned {
			t.Errorf("union has %d paths, want %d", len(seen), result.TotalImagesScanned)
		}
		for p, n := range seen {
			if n != 1 {
				t.Errorf("%s appears %d times across images and orphans", p, n)
			}
		}
	})

	t.Run("resolves ids without extension through the stem index", func(t *testing.T) {
		t.Parallel()

		fs := fixture.NewFS()
		seed(t, fs, "img001.png")
		fixture.Write(t, fs, "/data/labels.csv", []byte("id,label\nimg001,a\n"))

		result, err := New(fs).Scan(context.Background(), manifestConfig("labels.csv"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Images) != 1 || result.Images[0].Path != imagePath("img001.png") {
			t.Fatalf("unexpected images %#v", result.Images)
		}
		if result.ManifestNoExtCount != 1 {
			t.Errorf("expected 1 reference without extension, got %d", result.ManifestNoExtCount)
		}
		if len(result.Warnings) != 0 {
			t.Errorf("unexpected warnings %v", result.Warnings)
		}
	})

	t.Run("picks the first sorted match for an ambiguous stem", func(t *testing.T) {
		t.Parallel()

		fs := fixture.NewFS()
		seed(t, fs, "img001.png", "img001.jpg")
		fixture.Write(t, fs, "/data/labels.csv", []byte("id,label\nimg001,a\n"))

		result, err := New(fs).Scan(context.Background(), manifestConfig("labels.csv"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Images) != 1 || result.Images[0].Path != imagePath("img001.jpg") {
			t.Fatalf("unexpected images %#v", result.Images)
		}
		if len(result.Warnings) != 1 {
			t.Fatalf("expected 1 warning, got %v", result.Warnings)
		}
		if len(result.Ambiguities) != 1 || result.Ambiguities[0].Kind != model.AmbiguousStem {
			t.Errorf("expected a stem ambiguity, got %#v", result.Ambiguities)
		}
		if len(result.OrphanImages) != 1 || result.OrphanImages[0] != imagePath("img001.png") {
			t.Errorf("unexpected orphans %v", result.OrphanImages)
		}
	})

	t.Run("misses ids without extension when stem lookup is disabled", func(t *testing.T) {
		t.Parallel()

		fs := fixture.NewFS()
		seed(t, fs, "img001.png")
		fixture.Write(t, fs, "/data/labels.csv", []byte("id\nimg001\n"))

		cfg := manifestConfig("labels.csv")
		cfg.IDsWithoutExt = false
		result, err := New(fs).Scan(context.Background(), cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.MissingImages) != 1 {
			t.Errorf("expected 1 missing reference, got %#v", result.MissingImages)
		}
	})

	t.Run("treats disallowed extensions and directories as misses", func(t *testing.T) {
		t.Parallel()

		fs := fixture.NewFS()
		seed(t, fs, "a.gif", "dir.jpg/inner.jpg")
		fixture.Write(t, fs, "/data/labels.csv", []byte("filename\na.gif\ndir.jpg\n"))

		result, err := New(fs).Scan(context.Background(), manifestConfig("labels.csv"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.MissingImages) != 2 {
			t.Errorf("expected 2 missing references, got %#v", result.MissingImages)
		}
	})

	t.Run("deduplicates rows that resolve to the same file", func(t *testing.T) {
		t.Parallel()

		fs := fixture.NewFS()
		seed(t, fs, "a.jpg")
		fixture.Write(t, fs, "/data/labels.csv", []byte("filename,label\na.jpg,first\na.jpg,second\n"))

		result, err := New(fs).Scan(context.Background(), manifestConfig("labels.csv"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Images) != 1 || result.Images[0].Label != "first" {
			t.Fatalf("unexpected images %#v", result.Images)
		}
		if result.DuplicateReferenceCount != 1 {
			t.Errorf("expected 1 duplicate reference, got %d", result.DuplicateReferenceCount)
		}
	})

	t.Run("normalizes labels when requested", func(t *testing.T) {
		t.Parallel()

		fs := fixture.NewFS()
		seed(t, fs, "a.jpg", "b.jpg")
		fixture.Write(t, fs, "/data/labels.csv", []byte("filename,label\na.jpg,  Cat \nb.jpg,NaN\n"))

		cfg := manifestConfig("labels.csv")
		cfg.NormalizeLabels = true
		result, err := New(fs).Scan(context.Background(), cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Images[0].Label != "cat" {
			t.Errorf("expected label cat, got %q", result.Images[0].Label)
		}
		if result.MissingLabelCount != 1 {
			t.Errorf("expected 1 missing label, got %d", result.MissingLabelCount)
		}
	})

	t.Run("warns about ambiguous columns", func(t *testing.T) {
		t.Parallel()

		fs := fixture.NewFS()
		seed(t, fs, "a.jpg")
		fixture.Write(t, fs, "/data/labels.csv", []byte("path,filename,label\nx,a.jpg,c\n"))

		result, err := New(fs).Scan(context.Background(), manifestConfig("labels.csv"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.FilenameColumn != "filename" {
			t.Errorf("expected filename column, got %q", result.FilenameColumn)
		}
		if len(result.Warnings) != 1 || result.Warnings[0] != "Multiple possible filename columns found. Using 'filename'." {
			t.Errorf("unexpected warnings %v", result.Warnings)
		}
	})

	t.Run("reads semicolon separated latin-1 manifests", func(t *testing.T) {
		t.Parallel()

		fs := fixture.NewFS()
		seed(t, fs, "a.jpg")
		fixture.Write(t, fs, "/data/labels.csv", []byte("filename;label\na.jpg;caf\xe9\n"))

		result, err := New(fs).Scan(context.Background(), manifestConfig("labels.csv"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Images) != 1 || result.Images[0].Label != "café" {
			t.Errorf("unexpected images %#v", result.Images)
		}
	})

	t.Run("works without a label column", func(t *testing.T) {
		t.Parallel()

		fs := fixture.NewFS()
		seed(t, fs, "a.jpg")
		fixture.Write(t, fs, "/data/labels.csv", []byte("filename\na.jpg\n"))

		result, err := New(fs).Scan(context.Background(), manifestConfig("labels.csv"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.LabelColumn != "" {
			t.Errorf("expected no label column, got %q", result.LabelColumn)
		}
		if result.MissingLabelCount != 1 {
			t.Errorf("expected 1 missing label, got %d", result.MissingLabelCount)
		}
	})
}

func TestScanManifestErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		manifest string
		content  string
		override func(*config.ScanConfig)
		wantErr  error
	}{
		{
			name:     "absent manifest",
			manifest: "nope.csv",
			wantErr:  ErrManifestRead,
		},
		{
			name:     "empty manifest",
			manifest: "labels.csv",
			content:  "",
			wantErr:  ErrManifestRead,
		},
		{
			name:     "no filename column",
			manifest: "labels.csv",
			content:  "foo,bar\n1,2\n",
			wantErr:  ErrFilenameColumnNotFound,
		},
		{
			name:     "unknown filename override",
			manifest: "labels.csv",
			content:  "filename,label\na.jpg,x\n",
			override: func(c *config.ScanConfig) { c.FilenameColumn = "nope" },
			wantErr:  ErrColumnNotFound,
		},
		{
			name:     "unknown label override",
			manifest: "labels.csv",
			content:  "filename,label\na.jpg,x\n",
			override: func(c *config.ScanConfig) { c.LabelColumn = "nope" },
			wantErr:  ErrColumnNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fs := fixture.NewFS()
			if tt.manifest == "labels.csv" {
				fixture.Write(t, fs, "/data/labels.csv", []byte(tt.content))
			}
			cfg := manifestConfig(tt.manifest)
			if tt.override != nil {
				tt.override(&cfg)
			}

			_, err := New(fs).Scan(context.Background(), cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if !errors.Is(err, config.ErrConfiguration) {
				t.Errorf("expected a configuration error, got %v", err)
			}
		})
	}
}

func TestScanDeterminism(t *testing.T) {
	t.Parallel()

	fs := fixture.NewFS()
	seed(t, fs, "c.jpg", "a.jpg", "b.jpg", "z.jpg")
	fixture.Write(t, fs, "/data/labels.csv", []byte("filename,label\nc.jpg,1\nnope.jpg,2\na.jpg,3\nb,4\n"))

	s := New(fs)
	first, err := s.Scan(context.Background(), manifestConfig("labels.csv"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := s.Scan(context.Background(), manifestConfig("labels.csv"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	firstJSON, err := json.Marshal(first)
	if err != nil {
		t.Fatal(err)
	}
	secondJSON, err := json.Marshal(second)
	if err != nil {
		t.Fatal(err)
	}
	if string(firstJSON) != string(secondJSON) {
		t.Errorf("scan results differ between runs:\n%s\n%s", firstJSON, secondJSON)
	}
	for i := 1; i < len(first.Images); i++ {
		if first.Images[i-1].Path > first.Images[i].Path {
			t.Error("images are not sorted by path")
		}
	}
}

func TestScanSymlinkedImagesRoot(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("symlinks need elevated privileges on windows")
	}

	setup := func(t *testing.T, relative bool) string {
		t.Helper()

		root := t.TempDir()
		store := filepath.Join(root, "store")
		for _, rel := range []string{"a.jpg", filepath.Join("cat", "b.jpg")} {
			p := filepath.Join(store, rel)
			if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
				t.Fatal(err)
			}
		}
		target := store
		if relative {
			target = "store"
		}
		if err := os.Symlink(target, filepath.Join(root, "images")); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(root, "labels.csv"), []byte("filename,label\na.jpg,dog\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		return root
	}

	for _, relative := range []bool{false, true} {
		name := "absolute link"
		if relative {
			name = "relative link"
		}

		t.Run(name+" lists files in filesystem mode", func(t *testing.T) {
			t.Parallel()

			root := setup(t, relative)
			result, err := New(osfs.New("/")).Scan(context.Background(), config.NewScanConfig(root))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.TotalImagesScanned != 2 {
				t.Fatalf("expected 2 listed images, got %d", result.TotalImagesScanned)
			}
			want := []model.ImageEntry{
				{Path: filepath.Join(root, "images", "a.jpg"), RelPath: "a.jpg"},
				{Path: filepath.Join(root, "images", "cat", "b.jpg"), RelPath: filepath.Join("cat", "b.jpg"), Label: "cat"},
			}
			if !slices.Equal(result.Images, want) {
				t.Errorf("expected %#v, got %#v", want, result.Images)
			}
		})

		t.Run(name+" splits images and orphans in manifest mode", func(t *testing.T) {
			t.Parallel()

			root := setup(t, relative)
			cfg := config.NewScanConfig(root)
			cfg.Mode = config.ModeManifest
			cfg.ManifestPath = "labels.csv"

			result, err := New(osfs.New("/")).Scan(context.Background(), cfg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.TotalImagesScanned != 2 {
				t.Fatalf("expected 2 listed images, got %d", result.TotalImagesScanned)
			}
			if len(result.Images) != 1 || result.Images[0].Path != filepath.Join(root, "images", "a.jpg") {
				t.Errorf("expected a.jpg as the only image, got %#v", result.Images)
			}
			wantOrphans := []string{filepath.Join(root, "images", "cat", "b.jpg")}
			if !slices.Equal(result.OrphanImages, wantOrphans) {
				t.Errorf("expected orphans %v, got %v", wantOrphans, result.OrphanImages)
			}
			if len(result.Images)+len(result.OrphanImages) != result.TotalImagesScanned {
				t.Errorf("images and orphans do not cover the listing: %d + %d != %d",
					len(result.Images), len(result.OrphanImages), result.TotalImagesScanned)
			}
		})
	}
}

func TestListImagesFollowsLinkedRoot(t *testing.T) {
	t.Parallel()

	fs := fixture.NewFS()
	fixture.Write(t, fs, "/store/a.png", []byte("x"))
	fixture.Write(t, fs, "/store/sub/b.png", []byte("x"))
	if err := fs.MkdirAll("/data", 0o750); err != nil {
		t.Fatal(err)
	}
	if err := fs.Symlink("/store", "/data/images"); err != nil {
		t.Fatal(err)
	}

	got, err := ListImages(fs, "/data/images", map[string]bool{".png": true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"/data/images/a.png", "/data/images/sub/b.png"}
	if !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

// lstatFailFS fails Lstat for one path with a permission error.
type lstatFailFS struct {
	billy.Filesystem
	path string
}

func (f lstatFailFS) Lstat(p string) (os.FileInfo, error) {
	if p == f.path {
		return nil, &os.PathError{Op: "lstat", Path: p, Err: os.ErrPermission}
	}
	return f.Filesystem.Lstat(p)
}

func TestScanUnreadableImagesRoot(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  config.ScanConfig
	}{
		{name: "filesystem mode", cfg: config.NewScanConfig(fixture.Root)},
		{name: "manifest mode", cfg: manifestConfig("labels.csv")},
	}

	for _, tt := range tests {
		t.Run(tt.name+" reports a configuration error", func(t *testing.T) {
			t.Parallel()

			mem := fixture.NewFS()
			seed(t, mem, "a.jpg")
			fixture.Write(t, mem, "/data/labels.csv", []byte("filename,label\na.jpg,x\n"))
			fs := lstatFailFS{Filesystem: mem, path: imagePath("")}

			_, err := New(fs).Scan(context.Background(), tt.cfg)
			if !errors.Is(err, ErrImagesRead) {
				t.Errorf("expected %v, got %v", ErrImagesRead, err)
			}
			if !errors.Is(err, config.ErrConfiguration) {
				t.Errorf("expected a configuration error, got %v", err)
			}
			if !errors.Is(err, os.ErrPermission) {
				t.Errorf("expected the cause to be kept, got %v", err)
			}
		})
	}
}
