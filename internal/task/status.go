package task

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/me/abiflow/pkg/model"
)

// Inspect classifies the artifact at path: missing is Unstarted, present
// without tag is Unfinished, present with tag is Completed. Anything that
// prevents reading it is Unknown.
func Inspect(path, tag string) model.Status {
	if path == "" {
		return model.StatusUnknown
	}
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return model.StatusUnstarted
	}
	if err != nil || info.IsDir() {
		return model.StatusUnknown
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return model.StatusUnknown
	}
	if tag != "" && bytes.Contains(data, []byte(tag)) {
		return model.StatusCompleted
	}
	return model.StatusUnfinished
}

var statusColors = map[model.Status]lipgloss.Color{
	model.StatusCompleted:  lipgloss.Color("2"), // green
	model.StatusUnfinished: lipgloss.Color("4"), // blue
	model.StatusUnstarted:  lipgloss.Color("6"), // cyan
	model.StatusUnknown:    lipgloss.Color("1"), // red
}

// FormatStatus returns the status word, coloured when w is a terminal.
func FormatStatus(w io.Writer, s model.Status) string {
	f, ok := w.(*os.File)
	if !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return s.String()
	}
	return lipgloss.NewRenderer(f).NewStyle().
		Foreground(statusColors[s]).
		Bold(s == model.StatusCompleted).
		Render(s.String())
}
