package task

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"github.com/me/abiflow/pkg/model"
)

type child struct {
	r      Runner
	merged bool
}

// Workflow is a Task whose script runs a sequence of child tasks, either
// spliced into its own script (merge) or invoked in their directories.
type Workflow struct {
	*Task

	// Safe guards each directory change with an existence check that
	// aborts the script when the child directory is missing.
	Safe bool

	children []child
}

// NewWorkflow creates an empty workflow rooted at dir.
func NewWorkflow(dir string, opts ...Option) *Workflow {
	return &Workflow{Task: New(dir, opts...)}
}

// AddTask appends r. With merge, r must live in the workflow directory and
// its script body is copied into the workflow script. Without merge, r must
// not share both directory and script name with the workflow or an earlier
// unmerged child.
func (w *Workflow) AddTask(r Runner, merge bool) error {
	rAbs := absDir(r)
	if merge {
		if rAbs != w.abs {
			return model.NewMergeDirError(w.dir, r.Dir())
		}
		w.script.Merge(r.Script())
	} else {
		name := r.Script().Filename
		if rAbs == w.abs && name == w.script.Filename {
			return &model.CollisionError{Dir: r.Dir(), Script: name}
		}
		for _, c := range w.children {
			if !c.merged && absDir(c.r) == rAbs && c.r.Script().Filename == name {
				return &model.CollisionError{Dir: r.Dir(), Script: name}
			}
		}
		switch {
		case rAbs == w.abs:
			w.script.Append("bash " + name)
		case w.Safe:
			w.script.Extend(w.SafeExecutionLines(r)...)
		default:
			w.script.Extend(w.ExecutionLines(r)...)
		}
	}
	w.children = append(w.children, child{r: r, merged: merge})
	w.logger.Debug("task added", "child", r.Dir(), "merge", merge)
	return nil
}

// AddTasks adds every runner with the same merge mode, stopping at the
// first error.
func (w *Workflow) AddTasks(rs []Runner, merge bool) error {
	for _, r := range rs {
		if err := w.AddTask(r, merge); err != nil {
			return err
		}
	}
	return nil
}

// ExecutionLines enters the child directory, runs its script and comes
// back. A failed cd is not checked.
func (w *Workflow) ExecutionLines(r Runner) []string {
	sub, back := w.relDirs(r)
	return []string{
		"cd " + sub,
		"bash " + r.Script().Filename,
		"cd " + back,
	}
}

// SafeExecutionLines is ExecutionLines guarded by a directory test that
// exits with status 1 when the child directory is missing.
func (w *Workflow) SafeExecutionLines(r Runner) []string {
	sub, back := w.relDirs(r)
	return []string{
		fmt.Sprintf("if [ -d %s ]", absDir(r)),
		"then",
		"cd " + sub,
		"bash " + r.Script().Filename,
		"cd " + back,
		"else",
		"exit 1",
		"fi",
	}
}

func (w *Workflow) relDirs(r Runner) (sub, back string) {
	rAbs := absDir(r)
	sub, err := filepath.Rel(w.abs, rAbs)
	if err != nil {
		sub = rAbs
	}
	back, err = filepath.Rel(rAbs, w.abs)
	if err != nil {
		back = w.abs
	}
	return sub, back
}

// Write writes the workflow directory and script, every child, then the
// workflow script again so it wins over a child script of the same name.
func (w *Workflow) Write() error {
	if err := w.Task.Write(); err != nil {
		return err
	}
	for _, c := range w.children {
		if err := c.r.Write(); err != nil {
			return err
		}
	}
	return w.script.Write(w.dir)
}

// Run executes the workflow script.
func (w *Workflow) Run(ctx context.Context) error {
	return w.Task.Run(ctx)
}

// Status is Completed when every child completed, otherwise the first
// status in child order that is not.
func (w *Workflow) Status() model.Status {
	statuses := make([]model.Status, len(w.children))
	for i, c := range w.children {
		statuses[i] = c.r.Status()
	}
	return model.Aggregate(statuses...)
}

// Report reports every child and returns the workflow status.
func (w *Workflow) Report(out io.Writer) model.Status {
	for _, c := range w.children {
		c.r.Report(out)
	}
	return w.Status()
}

// Tasks returns the children in execution order.
func (w *Workflow) Tasks() []Runner {
	out := make([]Runner, len(w.children))
	for i, c := range w.children {
		out[i] = c.r
	}
	return out
}

// Merged reports whether the i-th child was merged.
func (w *Workflow) Merged(i int) bool {
	return w.children[i].merged
}

// ClearTasks forgets every child. The workflow script keeps the lines
// already added.
func (w *Workflow) ClearTasks() {
	w.children = nil
}

// Leaves flattens nested workflows depth-first.
func (w *Workflow) Leaves() []Runner {
	var out []Runner
	for _, c := range w.children {
		if nested, ok := c.r.(interface{ Leaves() []Runner }); ok {
			out = append(out, nested.Leaves()...)
			continue
		}
		out = append(out, c.r)
	}
	return slices.Clip(out)
}

func absDir(r Runner) string {
	if a, ok := r.(interface{ AbsDir() string }); ok {
		return a.AbsDir()
	}
	abs, err := filepath.Abs(r.Dir())
	if err != nil {
		return filepath.Clean(r.Dir())
	}
	return abs
}
