package task

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	cp "github.com/otiai10/copy"

	"github.com/me/abiflow/internal/logging"
	"github.com/me/abiflow/pkg/model"
)

// Link makes Source available at Dest, a path relative to the task
// directory.
type Link struct {
	Source string
	Dest   string
}

// Linker keeps the table of files linked into a task directory.
type Linker struct {
	dir    string
	mode   model.LinkMode
	links  []Link
	index  map[string]int
	logger *slog.Logger
}

// NewLinker creates a Linker for dir. An empty mode means symlinks.
func NewLinker(dir string, mode model.LinkMode, logger *slog.Logger) *Linker {
	if mode == "" {
		mode = model.LinkModeSymlink
	}
	return &Linker{
		dir:    dir,
		mode:   mode,
		index:  make(map[string]int),
		logger: logging.Component(logger, "linker"),
	}
}

// Link records source under dest and materializes it at once, replacing
// whatever is already there.
func (l *Linker) Link(source, dest string) error {
	return l.materialize(l.Add(source, dest))
}

// Add records source under dest without touching the disk; Apply
// materializes it. A later Add of the same dest replaces the source.
func (l *Linker) Add(source, dest string) Link {
	link := Link{Source: source, Dest: filepath.Clean(dest)}
	if i, ok := l.index[link.Dest]; ok {
		l.links[i].Source = source
	} else {
		l.index[link.Dest] = len(l.links)
		l.links = append(l.links, link)
	}
	return link
}

// Apply materializes every recorded link again.
func (l *Linker) Apply() error {
	for _, link := range l.links {
		if err := l.materialize(link); err != nil {
			return err
		}
	}
	return nil
}

// Links returns the recorded links in insertion order.
func (l *Linker) Links() []Link {
	return slices.Clone(l.links)
}

func (l *Linker) materialize(link Link) error {
	path := filepath.Join(l.dir, link.Dest)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("link %s: %w", link.Dest, err)
	}
	if err := l.clear(path); err != nil {
		return fmt.Errorf("link %s: %w", link.Dest, err)
	}

	switch l.mode {
	case model.LinkModeCopy:
		if _, err := os.Stat(link.Source); errors.Is(err, os.ErrNotExist) {
			// Producer outputs do not exist before the producer ran.
			l.logger.Debug("copy source missing, skipped", "source", link.Source, "dest", link.Dest)
			return nil
		}
		if err := cp.Copy(link.Source, path); err != nil {
			return fmt.Errorf("copy %s to %s: %w", link.Source, link.Dest, err)
		}
	default:
		target, err := symlinkTarget(link.Source, path)
		if err != nil {
			return fmt.Errorf("link %s: %w", link.Dest, err)
		}
		if err := os.Symlink(target, path); err != nil {
			return fmt.Errorf("link %s: %w", link.Dest, err)
		}
	}
	l.logger.Debug("linked", "source", link.Source, "dest", link.Dest, "mode", l.mode)
	return nil
}

// clear removes the entry at path. Real directories are only replaced in
// copy mode, where they are the result of an earlier copy.
func (l *Linker) clear(path string) error {
	info, err := os.Lstat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		if l.mode != model.LinkModeCopy {
			return fmt.Errorf("%s is a directory", path)
		}
		return os.RemoveAll(path)
	}
	return os.Remove(path)
}

// symlinkTarget keeps absolute sources absolute and rewrites relative ones
// relative to the directory holding the link.
func symlinkTarget(source, linkPath string) (string, error) {
	if filepath.IsAbs(source) {
		return source, nil
	}
	absSrc, err := filepath.Abs(source)
	if err != nil {
		return "", err
	}
	absParent, err := filepath.Abs(filepath.Dir(linkPath))
	if err != nil {
		return "", err
	}
	return filepath.Rel(absParent, absSrc)
}
