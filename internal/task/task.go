// Package task runs directory-scoped jobs and derives their status from the
// files they leave behind.
package task

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"

	"github.com/me/abiflow/internal/config"
	"github.com/me/abiflow/internal/deck"
	"github.com/me/abiflow/internal/logging"
	"github.com/me/abiflow/internal/runscript"
	"github.com/me/abiflow/pkg/model"
)

// Runner is the behaviour a Workflow composes.
type Runner interface {
	Name() string
	Dir() string
	Script() *runscript.RunScript
	Write() error
	Run(ctx context.Context) error
	Status() model.Status
	Report(w io.Writer) model.Status
}

// Artifact is a file rendered into the task directory on Write.
type Artifact struct {
	Path     string // relative to the task directory
	Renderer deck.Renderer
}

// Task owns a directory and the run script executed inside it.
type Task struct {
	dir        string
	abs        string
	name       string
	script     *runscript.RunScript
	scriptCfg  config.RunScript
	tag        string
	statusFile string
	locate     func() string
	artifacts  []Artifact
	subdirs    []string
	mpi        *MPI
	linker     *Linker
	linkMode   model.LinkMode
	stdout     io.Writer
	stderr     io.Writer
	logger     *slog.Logger
}

// Option configures a Task.
type Option func(*Task)

// WithName sets the name shown in reports. It defaults to the directory.
func WithName(name string) Option {
	return func(t *Task) { t.name = name }
}

// WithScript uses s as the run script.
func WithScript(s *runscript.RunScript) Option {
	return func(t *Task) { t.script = s }
}

// WithRunScriptConfig sets the defaults of the run script created when
// WithScript is not given.
func WithRunScriptConfig(c config.RunScript) Option {
	return func(t *Task) { t.scriptCfg = c }
}

// WithCompletionTag sets the text whose presence marks completion.
func WithCompletionTag(tag string) Option {
	return func(t *Task) { t.tag = tag }
}

// WithStatusFile sets the artifact inspected by Status, relative to the
// task directory.
func WithStatusFile(path string) Option {
	return func(t *Task) { t.statusFile = path }
}

// WithStatusLocator sets a function returning the artifact to inspect. It
// takes precedence over WithStatusFile.
func WithStatusLocator(fn func() string) Option {
	return func(t *Task) { t.locate = fn }
}

// WithLinkMode selects how LinkFile materializes files.
func WithLinkMode(mode model.LinkMode) Option {
	return func(t *Task) { t.linkMode = mode }
}

// WithOutput sets where the launched shell writes.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(t *Task) {
		t.stdout = stdout
		t.stderr = stderr
	}
}

// WithLogger sets the logger. A nil logger discards.
func WithLogger(l *slog.Logger) Option {
	return func(t *Task) { t.logger = l }
}

// New creates a Task rooted at dir. Nothing touches the disk until Write.
func New(dir string, opts ...Option) *Task {
	dir = filepath.Clean(dir)
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	t := &Task{
		dir:       dir,
		abs:       abs,
		name:      dir,
		scriptCfg: config.Default().RunScript,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.script == nil {
		t.script = runscript.NewFromConfig("", t.scriptCfg)
	}
	t.logger = logging.Component(t.logger, "task").With("dir", t.dir)
	return t
}

// Name returns the report name.
func (t *Task) Name() string { return t.name }

// Dir returns the task directory as given, cleaned.
func (t *Task) Dir() string { return t.dir }

// AbsDir returns the absolute task directory.
func (t *Task) AbsDir() string { return t.abs }

// Path joins elem to the task directory.
func (t *Task) Path(elem ...string) string {
	return filepath.Join(append([]string{t.dir}, elem...)...)
}

// Script returns the run script.
func (t *Task) Script() *runscript.RunScript { return t.script }

// Logger returns the task logger.
func (t *Task) Logger() *slog.Logger { return t.logger }

// CompletionTag returns the completion tag.
func (t *Task) CompletionTag() string { return t.tag }

// AddArtifact declares a file rendered on Write.
func (t *Task) AddArtifact(path string, r deck.Renderer) {
	t.artifacts = append(t.artifacts, Artifact{Path: path, Renderer: r})
}

// Artifacts returns the declared artifacts.
func (t *Task) Artifacts() []Artifact { return slices.Clone(t.artifacts) }

// AddSubdir declares a sub-directory created on Write.
func (t *Task) AddSubdir(dirs ...string) {
	t.subdirs = append(t.subdirs, dirs...)
}

// SetMPI attaches the MPI capability and binds MPIRUN in the script.
func (t *Task) SetMPI(m *MPI) {
	t.mpi = m
	t.script.Set("MPIRUN", `"`+m.LaunchString()+`"`)
}

// MPI returns the MPI capability, possibly nil.
func (t *Task) MPI() *MPI { return t.mpi }

// Linker returns the link table, creating it on first use.
func (t *Task) Linker() *Linker {
	if t.linker == nil {
		t.linker = NewLinker(t.dir, t.linkMode, t.logger)
	}
	return t.linker
}

// LinkFile makes source available at dest inside the task directory.
func (t *Task) LinkFile(source, dest string) error {
	return t.Linker().Link(source, dest)
}

// Write creates the directory tree, links, artifacts and run script.
// It can be called again to refresh them.
func (t *Task) Write() error {
	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return fmt.Errorf("create task dir %s: %w", t.dir, err)
	}
	for _, sub := range t.subdirs {
		if err := os.MkdirAll(t.Path(sub), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", sub, err)
		}
	}
	if t.linker != nil {
		if err := t.linker.Apply(); err != nil {
			return err
		}
	}
	for _, a := range t.artifacts {
		if err := deck.WriteFile(a.Renderer, t.Path(a.Path)); err != nil {
			return err
		}
	}
	if err := t.script.Write(t.dir); err != nil {
		return err
	}
	t.logger.Debug("task written", "script", t.script.Filename, "artifacts", len(t.artifacts))
	return nil
}

// Run executes the run script with bash inside the task directory and
// blocks until it exits. A non-zero exit status is logged, not returned;
// Status tells what happened.
func (t *Task) Run(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "bash", t.script.Filename)
	cmd.Dir = t.dir
	cmd.Stdout = t.stdout
	cmd.Stderr = t.stderr

	t.logger.Info("running", "script", t.script.Filename)
	err := cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		t.logger.Debug("run finished", "exit_code", 0)
	case errors.As(err, &exitErr):
		t.logger.Warn("run script exited with error", "exit_code", exitErr.ExitCode())
	default:
		return fmt.Errorf("run %s: %w", t.dir, err)
	}
	return nil
}

// StatusPath returns the artifact inspected by Status, or "".
func (t *Task) StatusPath() string {
	if t.locate != nil {
		return t.locate()
	}
	if t.statusFile == "" {
		return ""
	}
	return t.Path(t.statusFile)
}

// Status derives the task status from disk on every call.
func (t *Task) Status() model.Status {
	return Inspect(t.StatusPath(), t.tag)
}

// Report prints "<name> : <status>" and returns the status.
func (t *Task) Report(w io.Writer) model.Status {
	s := t.Status()
	fmt.Fprintf(w, "%s : %s\n", t.name, FormatStatus(w, s))
	return s
}
