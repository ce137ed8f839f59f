// Package abinit builds tasks that run abinit and its post-processing
// tools.
package abinit

import (
	"io"
	"log/slog"

	"github.com/me/abiflow/internal/config"
	"github.com/me/abiflow/internal/runscript"
	"github.com/me/abiflow/internal/task"
	"github.com/me/abiflow/pkg/model"
)

// Completion tags written by each binary at the end of a successful run.
// The anaddb spelling is the binary's own.
const (
	TagAbinit = "Calculation completed"
	TagAnaddb = "the run completed succesfully"
	TagMrgddb = "the run completed successfully"
	TagMrgdv  = "Done"
)

// Sub-directories and file roots shared by abinit tasks.
const (
	InputDataDir = "input_data"
	OutDataDir   = "out_data"
	TmpDataDir   = "tmp_data"
	StderrName   = "stderr"
)

// Option configures a task of this package.
type Option func(*options)

type options struct {
	rootname   string
	scriptName string
	name       string
	logger     *slog.Logger
	stdout     io.Writer
	stderr     io.Writer
}

// WithRootname sets the prefix of the input, output and log files.
func WithRootname(name string) Option {
	return func(o *options) { o.rootname = name }
}

// WithScriptName sets the run script file name, for tasks sharing a
// directory.
func WithScriptName(name string) Option {
	return func(o *options) { o.scriptName = name }
}

// WithName sets the report name.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithOutput sets where the launched shell writes.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(o *options) {
		o.stdout = stdout
		o.stderr = stderr
	}
}

func newOptions(rootname string, opts []Option) options {
	o := options{rootname: rootname}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// taskOptions translates o into options of the underlying task.
func (o options) taskOptions(cfg config.Config, tag string, locate func() string) []task.Option {
	out := []task.Option{
		task.WithScript(runscript.NewFromConfig(o.scriptName, cfg.RunScript)),
		task.WithCompletionTag(tag),
		task.WithStatusLocator(locate),
		task.WithLinkMode(model.LinkMode(cfg.LinkMode)),
		task.WithLogger(o.logger),
	}
	if o.name != "" {
		out = append(out, task.WithName(o.name))
	}
	if o.stdout != nil || o.stderr != nil {
		out = append(out, task.WithOutput(o.stdout, o.stderr))
	}
	return out
}

type renderFunc func() string

func (f renderFunc) Render() string { return f() }
