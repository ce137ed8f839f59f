package deck

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func mustSet(t *testing.T, in *Input, name string, value any, decimals ...int) {
	t.Helper()
	if err := in.SetVariable(name, value, decimals...); err != nil {
		t.Fatalf("SetVariable(%q): %v", name, err)
	}
}

func TestSetVariable_NilRemoves(t *testing.T) {
	in := NewInput()
	mustSet(t, in, "ecut", nil)
	if _, ok := in.Variable("ecut"); ok {
		t.Error("ecut present after nil on unset name")
	}

	mustSet(t, in, "ecut", 10.0, 2)
	mustSet(t, in, "ecut", nil)
	mustSet(t, in, "ecut", nil)
	if _, ok := in.Variable("ecut"); ok {
		t.Error("ecut present after removal")
	}
	if len(in.Names()) != 0 {
		t.Errorf("Names() = %v, want empty", in.Names())
	}
}

func TestSetVariables_Datasets(t *testing.T) {
	in := NewInput()
	if err := in.SetVariables(map[string]any{"ngkpt": []int{4, 4, 4}, "nshiftk": 1}, 2, 3); err != nil {
		t.Fatal(err)
	}
	want := []string{"ngkpt2", "ngkpt3", "nshiftk2", "nshiftk3"}
	if got := in.Names(); !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	a, _ := in.Variable("nshiftk2")
	b, _ := in.Variable("nshiftk3")
	if a != b {
		t.Errorf("broadcast values differ: %v vs %v", a, b)
	}

	in.Clear()
	if err := in.SetVariables(map[string]any{"ecut": 10.0}, 0); err != nil {
		t.Fatal(err)
	}
	if got := in.Names(); !slices.Equal(got, []string{"ecut"}) {
		t.Errorf("dataset 0 Names() = %v, want [ecut]", got)
	}
}

func TestIndexing_MutualExclusion(t *testing.T) {
	in := NewInput()
	mustSet(t, in, "jdtset", []int{2, 4})
	if got := in.NDTSet(); got != 2 {
		t.Errorf("NDTSet() = %d, want 2", got)
	}
	if got := in.JDTSet(); !slices.Equal(got, []int{2, 4}) {
		t.Errorf("JDTSet() = %v", got)
	}

	mustSet(t, in, "udtset", []int{2, 3})
	if got := in.JDTSet(); len(got) != 0 {
		t.Errorf("JDTSet() after udtset = %v, want empty", got)
	}
	if got := in.NDTSet(); got != 6 {
		t.Errorf("NDTSet() = %d, want 6", got)
	}

	mustSet(t, in, "jdtset", []any{1, 3})
	if got := in.UDTSet(); got != nil {
		t.Errorf("UDTSet() after jdtset = %v, want nil", got)
	}

	for _, name := range []string{"ndtset", "jdtset", "udtset"} {
		if _, ok := in.Variable(name); ok {
			t.Errorf("%s stored in the namespace", name)
		}
	}
}

func TestSetNDTSet(t *testing.T) {
	in := NewInput()
	mustSet(t, in, "ndtset", 3)
	if got := in.JDTSet(); !slices.Equal(got, []int{1, 2, 3}) {
		t.Errorf("JDTSet() = %v, want [1 2 3]", got)
	}

	mustSet(t, in, "jdtset", []int{5, 7})
	mustSet(t, in, "ndtset", 2)
	if _, ok := in.Indexing().(Explicit); !ok {
		t.Errorf("ndtset with matching count replaced %T", in.Indexing())
	}
	mustSet(t, in, "ndtset", "4")
	if c, ok := in.Indexing().(Contiguous); !ok || c.N != 4 {
		t.Errorf("Indexing() = %#v, want Contiguous{4}", in.Indexing())
	}
	mustSet(t, in, "ndtset", nil)
	if in.Indexing() != nil {
		t.Errorf("Indexing() after nil = %#v", in.Indexing())
	}
	if err := in.SetVariable("ndtset", "two"); err == nil {
		t.Error("expected error for non-numeric ndtset")
	}
}

func TestRender_NoDatasets(t *testing.T) {
	in := NewInput()
	mustSet(t, in, "ecut", 15.0)
	mustSet(t, in, "natom", 2)

	fill := strings.Repeat("=", 14)
	want := "#" + fill + " Basis set " + fill + "\n" +
		"ecut 15\n" +
		"\n" +
		"#" + fill + " Unit cell " + fill + "\n" +
		"natom 2\n" +
		"\n"
	if got := in.Render(); got != want {
		t.Errorf("Render() =\n%s\nwant\n%s", got, want)
	}
	// Rendering does not consume the namespace.
	if got := in.Render(); got != want {
		t.Errorf("second Render() differs:\n%s", got)
	}
}

func TestRender_CommentWithoutDeclarations(t *testing.T) {
	in := NewInput()
	in.SetComment("Silicon ground state")
	mustSet(t, in, "ecut", 15.0)
	if got := in.Render(); !strings.HasPrefix(got, "# Silicon ground state\n\n#") {
		t.Errorf("Render() = %q", got)
	}
}

func TestRender_UntaggedNotDuplicated(t *testing.T) {
	in := NewInput()
	mustSet(t, in, "ndtset", 2)
	mustSet(t, in, "tolvrs1", 1e-10)
	mustSet(t, in, "ecut", 15.0)

	out := in.Render()
	if n := strings.Count(out, "ecut 15"); n != 1 {
		t.Errorf("ecut rendered %d times", n)
	}
	if n := strings.Count(out, " Dataset 1 "); n != 1 {
		t.Errorf("Dataset 1 block rendered %d times", n)
	}
	if strings.Contains(out, " Dataset 2 ") {
		t.Error("empty Dataset 2 block rendered")
	}
}

func TestRender_LeadingZeroDatasetTag(t *testing.T) {
	in := NewInput()
	mustSet(t, in, "ndtset", 1)
	mustSet(t, in, "ecut01", 10.0)
	mustSet(t, in, "ecut1", 20.0)

	if got := in.Names(); !slices.Equal(got, []string{"ecut1"}) {
		t.Errorf("Names() = %v, want [ecut1]", got)
	}
	if v, _ := in.Variable("ecut01"); v != 20.0 {
		t.Errorf("Variable(ecut01) = %v, want 20", v)
	}
	if n := strings.Count(in.Render(), "ecut"); n != 1 {
		t.Errorf("ecut rendered %d times, want once", n)
	}
}

func TestRender_EndToEnd(t *testing.T) {
	in := NewInput()
	mustSet(t, in, "ndtset", 2)
	mustSet(t, in, "ecut", 15)
	mustSet(t, in, "tolvrs1", 1e-14)
	mustSet(t, in, "tolwfr2", 1e-18)

	out := in.Render()
	markers := []string{
		"ndtset 2\n",
		" Dataset 1 ",
		"tolvrs 1e-14\n",
		" Dataset 2 ",
		"tolwfr 1e-18\n",
		" Common variables ",
		"ecut 15\n",
	}
	last := -1
	for _, m := range markers {
		i := strings.Index(out, m)
		if i < 0 {
			t.Fatalf("rendered deck lacks %q:\n%s", m, out)
		}
		if i < last {
			t.Errorf("%q out of order:\n%s", m, out)
		}
		last = i
	}
	if strings.Contains(out, "tolvrs1") || strings.Contains(out, "jdtset") {
		t.Errorf("unexpected suffixed name or jdtset:\n%s", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("deck does not end with a newline")
	}
}

func TestRender_AutomaticAndDatasetOrder(t *testing.T) {
	in := NewInput()
	mustSet(t, in, "jdtset", []int{10, 2})
	mustSet(t, in, "ecut10", 20.0)
	mustSet(t, in, "ecut2", 10.0)
	mustSet(t, in, "tolvrs1?", 1e-10)
	in.SetComment("Second dataset", 2)

	out := in.Render()
	iDecl := strings.Index(out, "jdtset 10 2")
	iAuto := strings.Index(out, " Automatic variables ")
	i2 := strings.Index(out, " Dataset 2 ")
	iNote := strings.Index(out, "# Second dataset")
	i10 := strings.Index(out, " Dataset 10 ")
	if iDecl < 0 || iAuto < iDecl || i2 < iAuto || iNote < i2 || i10 < iNote {
		t.Errorf("block order wrong:\n%s", out)
	}
	if !strings.Contains(out, "tolvrs1? 1e-10") {
		t.Errorf("special variable not rendered verbatim:\n%s", out)
	}
	if strings.Contains(out, "Common variables") {
		t.Errorf("empty common block rendered:\n%s", out)
	}
}

func TestRender_Decimals(t *testing.T) {
	in := NewInput()
	mustSet(t, in, "ecut", 15.0, 3)
	if !strings.Contains(in.Render(), "ecut 15.000\n") {
		t.Errorf("decimals ignored:\n%s", in.Render())
	}
}

func TestSplit(t *testing.T) {
	in := NewInput()
	mustSet(t, in, "ndtset", 2)
	mustSet(t, in, "ecut", 10.0)
	mustSet(t, in, "ecut2", 20.0)
	mustSet(t, in, "tolvrs1", 1e-10)
	in.SetComment("first", 1)

	parts := in.Split()
	if len(parts) != 2 {
		t.Fatalf("len(Split()) = %d, want 2", len(parts))
	}
	if v, _ := parts[0].Variable("ecut"); v != 10.0 {
		t.Errorf("dataset 1 ecut = %v, want 10", v)
	}
	if _, ok := parts[0].Variable("tolvrs"); !ok {
		t.Error("dataset 1 lacks tolvrs")
	}
	if parts[0].Comment() != "first" {
		t.Errorf("dataset 1 comment = %q", parts[0].Comment())
	}
	if v, _ := parts[1].Variable("ecut"); v != 20.0 {
		t.Errorf("dataset 2 ecut = %v, want 20", v)
	}
	if _, ok := parts[1].Variable("tolvrs"); ok {
		t.Error("dataset 2 has tolvrs from dataset 1")
	}
	if parts[1].NDTSet() != 0 {
		t.Error("split deck kept dataset indexing")
	}
}

func TestWriteFile(t *testing.T) {
	in := NewInput()
	mustSet(t, in, "ecut", 10)
	path := filepath.Join(t.TempDir(), "calc.in")
	if err := WriteFile(in, path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != in.Render() {
		t.Errorf("file content = %q", data)
	}
}
