// Package structure converts crystal structures into abinit unit-cell
// variables.
package structure

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// BohrAngstrom is the length of one bohr in angstrom.
const BohrAngstrom = 0.52917720859

// AngstromToBohr converts angstrom to bohr.
const AngstromToBohr = 1 / BohrAngstrom

// Structure is a periodic crystal structure.
type Structure interface {
	// Lattice returns the lattice vectors as rows, in angstrom.
	Lattice() [3][3]float64
	// FracCoords returns the reduced coordinates of each site.
	FracCoords() [][3]float64
	// AtomicNumbers returns the atomic number of each site.
	AtomicNumbers() []int
	// NumSites returns the number of sites.
	NumSites() int
}

// Site is one atom of a Cell.
type Site struct {
	Z    int        `yaml:"z" json:"z"`
	Frac [3]float64 `yaml:"frac" json:"frac"`
}

// Cell is a plain Structure, loadable from YAML or JSON.
type Cell struct {
	Vectors [3][3]float64 `yaml:"lattice" json:"lattice"`
	Sites   []Site        `yaml:"sites" json:"sites"`
}

func (c *Cell) Lattice() [3][3]float64 { return c.Vectors }

func (c *Cell) FracCoords() [][3]float64 {
	out := make([][3]float64, len(c.Sites))
	for i, s := range c.Sites {
		out[i] = s.Frac
	}
	return out
}

func (c *Cell) AtomicNumbers() []int {
	out := make([]int, len(c.Sites))
	for i, s := range c.Sites {
		out[i] = s.Z
	}
	return out
}

func (c *Cell) NumSites() int { return len(c.Sites) }

// LoadCell reads a Cell file. JSON is accepted since it is valid YAML.
func LoadCell(path string) (*Cell, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read structure: %w", err)
	}
	var c Cell
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse structure %s: %w", path, err)
	}
	if len(c.Sites) == 0 {
		return nil, fmt.Errorf("structure %s: no sites", path)
	}
	for i, s := range c.Sites {
		if s.Z <= 0 {
			return nil, fmt.Errorf("structure %s: site %d: atomic number must be positive", path, i)
		}
	}
	return &c, nil
}

// Variables returns the unit-cell variables describing s: acell, rprim
// (bohr), natom, ntypat, znucl, typat and xred.
func Variables(s Structure) map[string]any {
	lat := s.Lattice()
	rprim := make([][]float64, 3)
	for i := range lat {
		rprim[i] = make([]float64, 3)
		for j := range lat[i] {
			rprim[i][j] = lat[i][j] * AngstromToBohr
		}
	}

	var znucl, typat []int
	for _, z := range s.AtomicNumbers() {
		idx := -1
		for k, seen := range znucl {
			if seen == z {
				idx = k
				break
			}
		}
		if idx < 0 {
			znucl = append(znucl, z)
			idx = len(znucl) - 1
		}
		typat = append(typat, idx+1)
	}

	frac := s.FracCoords()
	xred := make([][]float64, len(frac))
	for i, f := range frac {
		xred[i] = []float64{round(f[0], 14), round(f[1], 14), round(f[2], 14)}
	}

	return map[string]any{
		"acell":  []float64{1, 1, 1},
		"rprim":  rprim,
		"natom":  s.NumSites(),
		"ntypat": len(znucl),
		"znucl":  znucl,
		"typat":  typat,
		"xred":   xred,
	}
}

func round(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(x*p) / p
}
