package deck

import (
	"maps"
	"slices"

	"github.com/me/abiflow/internal/variable"
)

// AnaddbInput is the input of the anaddb post-processing tool. It has no
// datasets and renders its variables sorted by name.
type AnaddbInput struct {
	Comment string

	vars     map[string]any
	decimals map[string]int
}

// NewAnaddbInput creates an empty anaddb input.
func NewAnaddbInput() *AnaddbInput {
	return &AnaddbInput{
		vars:     make(map[string]any),
		decimals: make(map[string]int),
	}
}

// SetVariable sets name to value; a nil value removes it.
func (a *AnaddbInput) SetVariable(name string, value any, decimals ...int) {
	if value == nil {
		delete(a.vars, name)
		delete(a.decimals, name)
		return
	}
	a.vars[name] = value
	if len(decimals) > 0 {
		a.decimals[name] = decimals[0]
	}
}

// SetVariables sets every entry of vars.
func (a *AnaddbInput) SetVariables(vars map[string]any) {
	for name, value := range vars {
		a.SetVariable(name, value)
	}
}

// Variable returns the value stored under name.
func (a *AnaddbInput) Variable(name string) (any, bool) {
	v, ok := a.vars[name]
	return v, ok
}

// Clear removes every variable.
func (a *AnaddbInput) Clear() {
	clear(a.vars)
	clear(a.decimals)
}

// Render returns the comment header followed by one entry per variable.
// Dataset suffixes have no meaning for anaddb, so names render verbatim.
func (a *AnaddbInput) Render() string {
	b := &Block{Comment: a.Comment, Width: DefaultWidth}
	for _, name := range slices.Sorted(maps.Keys(a.vars)) {
		b.Append(variable.Variable{
			Name:     name,
			Basename: name,
			Value:    a.vars[name],
			Decimals: a.decimals[name],
		})
	}
	return b.Render()
}
