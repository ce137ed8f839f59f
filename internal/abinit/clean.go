package abinit

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// Scratch files abinit may leave in the task directory.
var junkPatterns = []string{"fort.*", "*.dat", "*_GWDIAG"}

// Cleaner is implemented by tasks that know which files they produce.
type Cleaner interface {
	CleanFiles() []string
	DestroyFiles() []string
}

// globFiles returns the regular files and symlinks under dir matching any
// of patterns, as paths from the working directory.
func globFiles(dir string, patterns ...string) []string {
	fsys := os.DirFS(dir)
	var out []string
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			continue
		}
		for _, m := range matches {
			path := filepath.Join(dir, filepath.FromSlash(m))
			if info, err := os.Lstat(path); err == nil && !info.IsDir() {
				out = append(out, path)
			}
		}
	}
	return out
}

// existing filters paths down to those present on disk.
func existing(paths ...string) []string {
	var out []string
	for _, p := range paths {
		if _, err := os.Lstat(p); err == nil {
			out = append(out, p)
		}
	}
	return out
}

func dedupe(paths []string) []string {
	slices.Sort(paths)
	return slices.Compact(paths)
}

// RemoveFiles deletes paths, ignoring those already gone, and returns the
// number removed.
func RemoveFiles(paths []string) (int, error) {
	var (
		n    int
		errs []error
	)
	for _, p := range paths {
		err := os.Remove(p)
		switch {
		case err == nil:
			n++
		case errors.Is(err, fs.ErrNotExist):
		default:
			errs = append(errs, err)
		}
	}
	return n, errors.Join(errs...)
}

// PruneTree removes dir when the tree below it holds no files, only
// (possibly nested) empty directories. It reports whether dir was removed.
func PruneTree(dir string) (bool, error) {
	hasFiles := false
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			hasFiles = true
			return fs.SkipAll
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("scan %s: %w", dir, err)
	}
	if hasFiles {
		return false, nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return false, fmt.Errorf("remove %s: %w", dir, err)
	}
	return true, nil
}
