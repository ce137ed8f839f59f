// Package deck renders input variables into the sectioned text files read
// by abinit and its post-processing tools.
package deck

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/me/abiflow/internal/variable"
)

// DefaultWidth is the header width of top-level blocks.
const DefaultWidth = 80

// Block is a titled group of variables.
type Block struct {
	Title   string
	Comment string
	Width   int
	Sorted  bool

	vars []variable.Variable
}

// NewBlock creates a sorted block of DefaultWidth.
func NewBlock(title string) *Block {
	return &Block{Title: title, Width: DefaultWidth, Sorted: true}
}

// Append adds a variable.
func (b *Block) Append(v variable.Variable) {
	b.vars = append(b.vars, v)
}

// Extend adds variables in order.
func (b *Block) Extend(vs ...variable.Variable) {
	b.vars = append(b.vars, vs...)
}

// Len returns the number of members.
func (b *Block) Len() int { return len(b.vars) }

// Clear removes every member.
func (b *Block) Clear() { b.vars = nil }

// Variables returns the members in render order.
func (b *Block) Variables() []variable.Variable {
	vs := slices.Clone(b.vars)
	if b.Sorted {
		slices.SortStableFunc(vs, variable.Compare)
	}
	return vs
}

func (b *Block) width() int {
	if b.Width <= 0 {
		return DefaultWidth
	}
	return b.Width
}

// Header returns the banner and the wrapped comment, newline-terminated,
// or "" when the block has neither title nor comment.
func (b *Block) Header() string {
	if b.Title == "" && b.Comment == "" {
		return ""
	}
	var sb strings.Builder
	if b.Title != "" {
		sb.WriteString(Banner(b.Title, b.width()))
		sb.WriteByte('\n')
	}
	for _, line := range Wrap(b.Comment, b.width()-2) {
		if !strings.HasPrefix(line, "# ") {
			line = "# " + line
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Render returns "" for an empty block, otherwise the header followed by
// one entry per member.
func (b *Block) Render() string {
	if b.Len() == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(b.Header())
	for _, v := range b.Variables() {
		if s := v.Render(); s != "" {
			sb.WriteString(s)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Banner centres title in a line of '=' of exactly width characters
// starting with '#'.
func Banner(title string, width int) string {
	inner := " " + title + " "
	fill := width - 1 - utf8.RuneCountInString(inner)
	if fill < 2 {
		return "# " + title
	}
	left := fill / 2
	return "#" + strings.Repeat("=", left) + inner + strings.Repeat("=", fill-left)
}

// Wrap splits text into lines of at most width characters. Whitespace is
// collapsed and words longer than width get a line of their own.
func Wrap(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	line := words[0]
	n := utf8.RuneCountInString(line)
	for _, w := range words[1:] {
		wn := utf8.RuneCountInString(w)
		if n+1+wn > width {
			lines = append(lines, line)
			line, n = w, wn
			continue
		}
		line += " " + w
		n += 1 + wn
	}
	return append(lines, line)
}

// SortedBlock is a block whose members are split into named sections on
// rendering.
type SortedBlock struct {
	Block
}

// NewSortedBlock creates a SortedBlock of DefaultWidth.
func NewSortedBlock(title string) *SortedBlock {
	return &SortedBlock{Block: Block{Title: title, Width: DefaultWidth, Sorted: true}}
}

// Sections moves the members into one sub-block per registry section, in
// registry order, followed by an "Unsorted" sub-block for the rest.
// The receiver is left empty, so a second call returns nothing.
func (b *SortedBlock) Sections() []*Block {
	var blocks []*Block
	rest := b.vars
	for _, sec := range registry {
		sub := &Block{Title: sec.name, Width: b.width() / 2, Sorted: true}
		kept := rest[:0:0]
		for _, v := range rest {
			if sec.has(v.Basename) {
				sub.Append(v)
			} else {
				kept = append(kept, v)
			}
		}
		rest = kept
		if sub.Len() > 0 {
			blocks = append(blocks, sub)
		}
	}
	if len(rest) > 0 {
		sub := &Block{Title: "Unsorted", Width: b.width() / 2, Sorted: true}
		sub.Extend(rest...)
		blocks = append(blocks, sub)
	}
	b.Clear()
	return blocks
}

// Render returns the header, then each section preceded by a blank line.
// It drains the block.
func (b *SortedBlock) Render() string {
	if b.Len() == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(b.Header())
	for _, sec := range b.Sections() {
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(sec.Render())
	}
	return sb.String()
}
