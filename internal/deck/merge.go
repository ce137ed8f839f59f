package deck

import (
	"strconv"
	"strings"
)

// MergeInput is the manifest read on stdin by mrgddb and mrgdv: the merged
// output path, an optional description line, the count of inputs, then
// one input path per line.
type MergeInput struct {
	Output string
	Title  string
	Inputs []string

	withTitle bool
}

// NewDDBMerge creates an mrgddb manifest. An empty title is written as "#".
func NewDDBMerge(output string, inputs []string, title string) *MergeInput {
	if title == "" {
		title = "#"
	}
	return &MergeInput{Output: output, Title: title, Inputs: inputs, withTitle: true}
}

// NewDVMerge creates an mrgdv manifest, which has no description line.
func NewDVMerge(output string, inputs []string) *MergeInput {
	return &MergeInput{Output: output, Inputs: inputs}
}

// Render returns the manifest text.
func (m *MergeInput) Render() string {
	lines := []string{m.Output}
	if m.withTitle {
		lines = append(lines, m.Title)
	}
	lines = append(lines, strconv.Itoa(len(m.Inputs)))
	lines = append(lines, m.Inputs...)
	return strings.Join(lines, "\n") + "\n"
}
