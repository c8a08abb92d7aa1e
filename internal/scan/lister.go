package scan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// maxRootLinks bounds how many symlinks are followed to reach the images root.
const maxRootLinks = 40

// ListImages returns every file under dir whose lowercase extension is in
// allowed, sorted. Symlinks to regular files count as files. When dir itself
// is a symlink to a directory its target is walked and paths are reported
// under dir. A missing dir yields an empty list and unreadable
// subdirectories are skipped.
func ListImages(fs billy.Filesystem, dir string, allowed map[string]bool) ([]string, error) {
	walkRoot, err := resolveRoot(fs, dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	err = util.Walk(fs, walkRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == walkRoot {
				if errors.Is(err, os.ErrNotExist) {
					return filepath.SkipDir
				}
				return err
			}
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if !allowed[strings.ToLower(Suffix(path))] {
			return nil
		}
		if info.Mode()&os.ModeSymlink != 0 {
			target, err := fs.Stat(path)
			if err != nil || !target.Mode().IsRegular() {
				return nil
			}
		} else if !info.Mode().IsRegular() {
			return nil
		}
		if walkRoot != dir {
			rel, err := filepath.Rel(walkRoot, path)
			if err != nil {
				return nil
			}
			path = filepath.Join(dir, rel)
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// resolveRoot follows symlinks at dir until it reaches a non-link, so the
// walk descends into a linked images directory. A dangling or missing root
// is returned unchanged and yields an empty listing.
func resolveRoot(fs billy.Filesystem, dir string) (string, error) {
	current := dir
	for range maxRootLinks {
		info, err := fs.Lstat(current)
		if err != nil || info.Mode()&os.ModeSymlink == 0 {
			return current, nil
		}
		target, err := fs.Readlink(current)
		if err != nil {
			return "", fmt.Errorf("failed to read link %s: %w", current, err)
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(current), target)
		}
		current = filepath.Clean(target)
	}
	return "", fmt.Errorf("too many levels of symbolic links at %s", dir)
}

// extensionSet builds a lookup set from normalized extensions.
func extensionSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, ext := range exts {
		set[strings.ToLower(ext)] = true
	}
	return set
}
