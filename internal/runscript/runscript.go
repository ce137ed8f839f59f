// Package runscript models the shell script that launches a task.
package runscript

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/me/abiflow/internal/config"
)

// Binding is one NAME=value assignment emitted before the body.
type Binding struct {
	Name  string
	Value string
}

// RunScript is an ordered list of shell lines with a fixed prologue,
// header, footer and a table of variable bindings.
type RunScript struct {
	FirstLine string
	Header    []string
	Footer    []string
	Filename  string

	bindings []Binding
	index    map[string]int
	body     []string
}

// New creates a RunScript with the built-in defaults.
func New(filename string) *RunScript {
	return NewFromConfig(filename, config.Default().RunScript)
}

// NewFromConfig creates a RunScript from configured defaults. An empty
// filename falls back to cfg.Filename.
func NewFromConfig(filename string, cfg config.RunScript) *RunScript {
	if filename == "" {
		filename = cfg.Filename
	}
	return &RunScript{
		FirstLine: cfg.FirstLine,
		Header:    slices.Clone(cfg.Header),
		Footer:    slices.Clone(cfg.Footer),
		Filename:  filename,
		index:     make(map[string]int),
	}
}

// Append adds one line to the body.
func (r *RunScript) Append(line string) {
	r.body = append(r.body, line)
}

// Extend adds lines to the body in order.
func (r *RunScript) Extend(lines ...string) {
	r.body = append(r.body, lines...)
}

// Merge appends the body of other. Header, footer and bindings of other are
// not carried over. other should not be used afterwards.
func (r *RunScript) Merge(other *RunScript) {
	if other == nil {
		return
	}
	r.body = append(r.body, slices.Clone(other.body)...)
}

// Set binds name to value. Rebinding keeps the original position.
func (r *RunScript) Set(name, value string) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[name]; ok {
		r.bindings[i].Value = value
		return
	}
	r.index[name] = len(r.bindings)
	r.bindings = append(r.bindings, Binding{Name: name, Value: value})
}

// Get returns the value bound to name.
func (r *RunScript) Get(name string) (string, bool) {
	i, ok := r.index[name]
	if !ok {
		return "", false
	}
	return r.bindings[i].Value, true
}

// Bindings returns a copy of the binding table in insertion order.
func (r *RunScript) Bindings() []Binding {
	return slices.Clone(r.bindings)
}

// Body returns a copy of the body lines.
func (r *RunScript) Body() []string {
	return slices.Clone(r.body)
}

// Lines returns every line of the rendered script, without terminators.
func (r *RunScript) Lines() []string {
	lines := make([]string, 0, 1+len(r.Header)+len(r.bindings)+len(r.body)+len(r.Footer))
	lines = append(lines, r.FirstLine)
	lines = append(lines, r.Header...)
	for _, b := range r.bindings {
		lines = append(lines, b.Name+"="+b.Value)
	}
	lines = append(lines, r.body...)
	lines = append(lines, r.Footer...)
	return lines
}

// Render returns the script text, each line newline-terminated.
func (r *RunScript) Render() string {
	var sb strings.Builder
	for _, line := range r.Lines() {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Path returns the script location inside dir.
func (r *RunScript) Path(dir string) string {
	return filepath.Join(dir, r.Filename)
}

// Write writes the script into dir as an executable file.
func (r *RunScript) Write(dir string) error {
	path := r.Path(dir)
	if err := os.WriteFile(path, []byte(r.Render()), 0o755); err != nil {
		return fmt.Errorf("write run script %s: %w", path, err)
	}
	// WriteFile keeps the mode of an existing file.
	return os.Chmod(path, 0o755)
}
