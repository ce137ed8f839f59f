package deck

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/me/abiflow/internal/structure"
	"github.com/me/abiflow/internal/variable"
)

// Renderer is implemented by everything that is written to disk as text:
// decks, run scripts and merge manifests.
type Renderer interface {
	Render() string
}

// WriteFile writes the rendered text of r to path.
func WriteFile(r Renderer, path string) error {
	if err := os.WriteFile(path, []byte(r.Render()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Input is the abinit input deck: a namespace of variables, possibly
// tagged by dataset, plus the dataset indexing.
type Input struct {
	Width int

	vars     map[string]any
	decimals map[string]int
	indexing Indexing
	comment  string
	dsNotes  map[int]string
}

// NewInput creates an empty deck.
func NewInput() *Input {
	return &Input{
		Width:    DefaultWidth,
		vars:     make(map[string]any),
		decimals: make(map[string]int),
		dsNotes:  make(map[int]string),
	}
}

// SetVariable sets name to value. A nil value removes name. The names
// ndtset, jdtset and udtset select the dataset indexing instead of being
// stored.
func (in *Input) SetVariable(name string, value any, decimals ...int) error {
	switch name {
	case "ndtset", "jdtset", "udtset":
		return in.setIndexingVariable(name, value)
	}
	name = canonicalName(name)
	if value == nil {
		delete(in.vars, name)
		delete(in.decimals, name)
		return nil
	}
	in.vars[name] = value
	if len(decimals) > 0 {
		in.decimals[name] = decimals[0]
	}
	return nil
}

func (in *Input) setIndexingVariable(name string, value any) error {
	if value == nil {
		in.indexing = nil
		return nil
	}
	switch name {
	case "ndtset":
		n, err := toInt(value)
		if err != nil {
			return fmt.Errorf("ndtset: %w", err)
		}
		in.SetNDTSet(n)
	case "jdtset":
		list, err := toInts(value)
		if err != nil {
			return fmt.Errorf("jdtset: %w", err)
		}
		in.SetIndexing(Explicit{List: list})
	case "udtset":
		dims, err := toInts(value)
		if err != nil {
			return fmt.Errorf("udtset: %w", err)
		}
		in.SetIndexing(Product{Dims: dims})
	}
	return nil
}

// SetVariables sets every entry of vars. Without datasets (or with only 0)
// the names are stored as given; otherwise each name is stored once per
// dataset with the index appended.
func (in *Input) SetVariables(vars map[string]any, datasets ...int) error {
	suffixes := []string{""}
	if slices.ContainsFunc(datasets, func(d int) bool { return d != 0 }) {
		suffixes = suffixes[:0]
		for _, d := range datasets {
			suffixes = append(suffixes, strconv.Itoa(d))
		}
	}
	for _, suffix := range suffixes {
		for _, name := range slices.Sorted(maps.Keys(vars)) {
			if err := in.SetVariable(name+suffix, vars[name]); err != nil {
				return err
			}
		}
	}
	return nil
}

// SetDecimals fixes the number of decimals used for the floats of name.
func (in *Input) SetDecimals(name string, decimals int) {
	in.decimals[canonicalName(name)] = decimals
}

// Variable returns the value stored under name.
func (in *Input) Variable(name string) (any, bool) {
	v, ok := in.vars[canonicalName(name)]
	return v, ok
}

// canonicalName drops leading zeros from a dataset tag, so ecut01 and
// ecut1 name the same variable.
func canonicalName(name string) string {
	base, ds := variable.ParseName(name)
	if ds == "" || ds == variable.Special {
		return name
	}
	n, err := strconv.Atoi(ds)
	if err != nil {
		return name
	}
	return base + strconv.Itoa(n)
}

// Names returns the stored names in sorted order.
func (in *Input) Names() []string {
	return slices.Sorted(maps.Keys(in.vars))
}

// Clear removes every variable. Indexing and comments are kept.
func (in *Input) Clear() {
	clear(in.vars)
	clear(in.decimals)
}

// SetIndexing replaces the dataset indexing. nil means a single dataset.
func (in *Input) SetIndexing(ix Indexing) {
	in.indexing = ix
}

// Indexing returns the current dataset indexing, possibly nil.
func (in *Input) Indexing() Indexing {
	return in.indexing
}

// SetNDTSet sets the number of datasets. The current indexing is kept when
// it already has n datasets; otherwise datasets become 1..n.
func (in *Input) SetNDTSet(n int) {
	if in.indexing != nil && in.indexing.Count() == n {
		return
	}
	if n <= 0 {
		in.indexing = nil
		return
	}
	in.indexing = Contiguous{N: n}
}

// NDTSet returns the number of datasets, 0 when none were declared.
func (in *Input) NDTSet() int {
	if in.indexing == nil {
		return 0
	}
	return in.indexing.Count()
}

// JDTSet returns the dataset indices of a contiguous or explicit indexing.
func (in *Input) JDTSet() []int {
	switch ix := in.indexing.(type) {
	case Contiguous, Explicit:
		return ix.Indices()
	}
	return nil
}

// UDTSet returns the grid dimensions of a product indexing.
func (in *Input) UDTSet() []int {
	if p, ok := in.indexing.(Product); ok {
		return slices.Clone(p.Dims)
	}
	return nil
}

// SetComment sets the deck comment, or the comment of one dataset.
func (in *Input) SetComment(comment string, dataset ...int) {
	if len(dataset) == 0 || dataset[0] == 0 {
		in.comment = comment
		return
	}
	in.dsNotes[dataset[0]] = comment
}

// Comment returns the deck comment.
func (in *Input) Comment() string { return in.comment }

// SetStructure sets the unit-cell variables of s.
func (in *Input) SetStructure(s structure.Structure) error {
	return in.SetVariables(structure.Variables(s))
}

func (in *Input) width() int {
	if in.Width <= 0 {
		return DefaultWidth
	}
	return in.Width
}

// Blocks groups the namespace for rendering: the unconditioned block, the
// automatic block, one block per dataset in ascending order, and the
// common block.
func (in *Input) Blocks() (head, automatic *Block, datasets []*Block, common *SortedBlock) {
	w := in.width()
	head = &Block{Comment: in.comment, Width: w}
	automatic = &Block{Title: "Automatic variables", Width: w, Sorted: true}
	common = NewSortedBlock("Common variables")
	common.Width = w

	if in.indexing != nil {
		head.Extend(in.indexing.Declarations()...)
	}

	byIndex := make(map[int]*Block)
	for _, name := range in.Names() {
		v := variable.New(name, in.vars[name], in.decimals[name])
		if v.IsSpecial() {
			automatic.Append(v)
			continue
		}
		j, ok := v.DatasetIndex()
		if !ok {
			common.Append(v)
			continue
		}
		b, ok := byIndex[j]
		if !ok {
			b = &Block{Title: "Dataset " + strconv.Itoa(j), Comment: in.dsNotes[j], Width: w, Sorted: true}
			byIndex[j] = b
		}
		b.Append(v)
	}
	for _, j := range slices.Sorted(maps.Keys(byIndex)) {
		datasets = append(datasets, byIndex[j])
	}

	if automatic.Len() == 0 && len(datasets) == 0 {
		common.Title = ""
	}
	// With nothing to declare the deck comment heads the common block.
	if head.Len() == 0 {
		common.Comment = head.Comment
	}
	return head, automatic, datasets, common
}

// Render returns the deck text. Each non-empty block is followed by a
// blank line.
func (in *Input) Render() string {
	head, automatic, datasets, common := in.Blocks()
	renderers := []Renderer{head, automatic}
	for _, b := range datasets {
		renderers = append(renderers, b)
	}
	renderers = append(renderers, common)

	var sb strings.Builder
	for _, r := range renderers {
		if s := r.Render(); s != "" {
			sb.WriteString(s)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Split returns one single-dataset deck per dataset, holding the common
// variables merged with that dataset's variables. A deck without datasets
// returns a copy of itself.
func (in *Input) Split() []*Input {
	indices := []int{0}
	if in.indexing != nil && in.indexing.Count() > 0 {
		indices = in.indexing.Indices()
	}

	out := make([]*Input, 0, len(indices))
	for _, j := range indices {
		d := NewInput()
		d.Width = in.Width
		d.comment = in.comment
		if note := in.dsNotes[j]; note != "" {
			d.comment = note
		}
		tagged := make(map[string]bool)
		for _, name := range in.Names() {
			v := variable.New(name, in.vars[name], in.decimals[name])
			switch {
			case v.IsSpecial():
				d.copyVar(name, name, in)
			case v.Dataset == "":
				if !tagged[v.Basename] {
					d.copyVar(name, v.Basename, in)
				}
			default:
				if k, _ := v.DatasetIndex(); k == j {
					d.copyVar(name, v.Basename, in)
					tagged[v.Basename] = true
				}
			}
		}
		out = append(out, d)
	}
	return out
}

func (in *Input) copyVar(from, to string, src *Input) {
	in.vars[to] = src.vars[from]
	if d, ok := src.decimals[from]; ok {
		in.decimals[to] = d
	} else {
		delete(in.decimals, to)
	}
}
