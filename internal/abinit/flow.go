package abinit

import (
	"path/filepath"
	"strings"

	"github.com/me/abiflow/internal/task"
)

// SetBinDir points every abinit tool task below w at the binaries in dir,
// and the bindings merged into w's own script.
func SetBinDir(w *task.Workflow, dir string) {
	for _, name := range []string{"ABINIT", "ANADDB", "MRGDDB", "MRGDV"} {
		if _, ok := w.Script().Get(name); ok {
			w.Script().Set(name, filepath.Join(dir, strings.ToLower(name)))
		}
	}
	for _, r := range w.Leaves() {
		if b, ok := r.(interface{ SetBinDir(string) }); ok {
			b.SetBinDir(dir)
		}
	}
}

// SetPseudos sets the pseudopotential directory and files of every solver
// task below w.
func SetPseudos(w *task.Workflow, dir string, names ...string) {
	for _, r := range w.Leaves() {
		if s, ok := r.(*SolverTask); ok {
			s.SetPseudoDir(dir)
			s.SetPseudos(names...)
		}
	}
}

// SetNProc sets the number of MPI processes of every task below w that
// supports it. An MPIRUN binding merged into w's own script follows the
// first solver task.
func SetNProc(w *task.Workflow, n int) {
	var launch *task.MPI
	for _, r := range w.Leaves() {
		if t, ok := r.(interface{ SetNProc(int) }); ok {
			t.SetNProc(n)
		}
		if s, ok := r.(*SolverTask); ok && launch == nil {
			launch = s.MPI()
		}
	}
	if _, ok := w.Script().Get("MPIRUN"); ok && launch != nil {
		w.Script().Set("MPIRUN", `"`+launch.LaunchString()+`"`)
	}
}

// Cleaners returns the tasks below w that can list their files.
func Cleaners(w *task.Workflow) []Cleaner {
	var out []Cleaner
	for _, r := range w.Leaves() {
		if c, ok := r.(Cleaner); ok {
			out = append(out, c)
		}
	}
	return out
}
