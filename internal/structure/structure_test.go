package structure

import (
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func silicon() *Cell {
	return &Cell{
		Vectors: [3][3]float64{{0, 2.7, 2.7}, {2.7, 0, 2.7}, {2.7, 2.7, 0}},
		Sites: []Site{
			{Z: 14, Frac: [3]float64{0, 0, 0}},
			{Z: 14, Frac: [3]float64{0.25, 0.25, 0.25}},
		},
	}
}

func TestVariables_Silicon(t *testing.T) {
	vars := Variables(silicon())

	if got := vars["natom"]; got != 2 {
		t.Errorf("natom = %v, want 2", got)
	}
	if got := vars["ntypat"]; got != 1 {
		t.Errorf("ntypat = %v, want 1", got)
	}
	if got := vars["znucl"].([]int); !slices.Equal(got, []int{14}) {
		t.Errorf("znucl = %v, want [14]", got)
	}
	if got := vars["typat"].([]int); !slices.Equal(got, []int{1, 1}) {
		t.Errorf("typat = %v, want [1 1]", got)
	}
	if got := vars["acell"].([]float64); !slices.Equal(got, []float64{1, 1, 1}) {
		t.Errorf("acell = %v", got)
	}

	rprim := vars["rprim"].([][]float64)
	want := 2.7 / 0.52917720859
	if math.Abs(rprim[0][1]-want) > 1e-12 {
		t.Errorf("rprim[0][1] = %v, want %v", rprim[0][1], want)
	}
	if rprim[0][0] != 0 {
		t.Errorf("rprim[0][0] = %v, want 0", rprim[0][0])
	}

	xred := vars["xred"].([][]float64)
	if !slices.Equal(xred[1], []float64{0.25, 0.25, 0.25}) {
		t.Errorf("xred[1] = %v", xred[1])
	}
}

func TestVariables_TypesInFirstSeenOrder(t *testing.T) {
	c := &Cell{Sites: []Site{
		{Z: 8}, {Z: 22}, {Z: 8}, {Z: 56},
	}}
	vars := Variables(c)
	if got := vars["znucl"].([]int); !slices.Equal(got, []int{8, 22, 56}) {
		t.Errorf("znucl = %v, want [8 22 56]", got)
	}
	if got := vars["typat"].([]int); !slices.Equal(got, []int{1, 2, 1, 3}) {
		t.Errorf("typat = %v, want [1 2 1 3]", got)
	}
	if got := vars["ntypat"]; got != 3 {
		t.Errorf("ntypat = %v, want 3", got)
	}
}

func TestVariables_RoundsXred(t *testing.T) {
	c := &Cell{Sites: []Site{{Z: 1, Frac: [3]float64{1.0 / 3, 0.1 + 0.2, 0}}}}
	xred := Variables(c)["xred"].([][]float64)
	if xred[0][1] != 0.3 {
		t.Errorf("xred[0][1] = %v, want 0.3", xred[0][1])
	}
	if xred[0][0] != 0.33333333333333 {
		t.Errorf("xred[0][0] = %v, want 0.33333333333333", xred[0][0])
	}
}

func TestLoadCell(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "si.yaml")
	content := `
lattice:
  - [0.0, 2.7, 2.7]
  - [2.7, 0.0, 2.7]
  - [2.7, 2.7, 0.0]
sites:
  - {z: 14, frac: [0, 0, 0]}
  - {z: 14, frac: [0.25, 0.25, 0.25]}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadCell(path)
	if err != nil {
		t.Fatalf("LoadCell: %v", err)
	}
	if c.NumSites() != 2 {
		t.Errorf("NumSites() = %d, want 2", c.NumSites())
	}
	if c.Lattice()[1][0] != 2.7 {
		t.Errorf("Lattice()[1][0] = %v", c.Lattice()[1][0])
	}
}

func TestLoadCell_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.json")
	content := `{"lattice": [[5,0,0],[0,5,0],[0,0,5]], "sites": [{"z": 1, "frac": [0.5, 0.5, 0.5]}]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadCell(path)
	if err != nil {
		t.Fatalf("LoadCell: %v", err)
	}
	if c.AtomicNumbers()[0] != 1 {
		t.Errorf("AtomicNumbers() = %v", c.AtomicNumbers())
	}
}

func TestLoadCell_Errors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(empty, []byte("lattice: [[1,0,0],[0,1,0],[0,0,1]]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	badZ := filepath.Join(dir, "badz.yaml")
	if err := os.WriteFile(badZ, []byte("sites: [{z: 0, frac: [0,0,0]}]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{empty, badZ, filepath.Join(dir, "missing.yaml")} {
		if _, err := LoadCell(p); err == nil {
			t.Errorf("LoadCell(%s) = nil error", filepath.Base(p))
		}
	}
}
