package abinit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/me/abiflow/internal/config"
	"github.com/me/abiflow/internal/task"
)

func TestFlowHelpers(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	w := task.NewWorkflow(root, task.WithLogger(newTestLogger()))
	gs := NewSolverTask(filepath.Join(root, "gs"), cfg, WithLogger(newTestLogger()))
	bands := NewSolverTask(filepath.Join(root, "bands"), cfg, WithLogger(newTestLogger()))
	merge := NewMrgddbTask(filepath.Join(root, "merge"), nil, "", cfg, WithLogger(newTestLogger()))
	if err := w.AddTasks([]task.Runner{gs, bands, merge}, false); err != nil {
		t.Fatal(err)
	}

	w.Script().Set("ABINIT", "abinit")
	SetBinDir(w, "/opt/abinit")
	if v, _ := w.Script().Get("ABINIT"); v != "/opt/abinit/abinit" {
		t.Errorf("workflow ABINIT = %q", v)
	}
	if _, ok := w.Script().Get("MRGDV"); ok {
		t.Error("SetBinDir added a binding the workflow did not have")
	}
	SetPseudos(w, "/psp", "14si.pspnc")
	SetNProc(w, 4)

	for _, s := range []*SolverTask{gs, bands} {
		if v, _ := s.Script().Get("ABINIT"); v != "/opt/abinit/abinit" {
			t.Errorf("%s: ABINIT = %q", s.Name(), v)
		}
		if p := s.Pseudos(); len(p) != 1 || p[0] != "/psp/14si.pspnc" {
			t.Errorf("%s: Pseudos() = %v", s.Name(), p)
		}
		if s.MPI().NProc != 4 {
			t.Errorf("%s: NProc = %d", s.Name(), s.MPI().NProc)
		}
	}
	if v, _ := merge.Script().Get("MRGDDB"); v != "/opt/abinit/mrgddb" {
		t.Errorf("MRGDDB = %q", v)
	}
	if merge.MPI().NProc != 1 {
		t.Errorf("merge NProc = %d, want 1", merge.MPI().NProc)
	}
	if got := len(Cleaners(w)); got != 3 {
		t.Errorf("Cleaners() = %d, want 3", got)
	}
}

func TestSetNProc_MergedWorkflowScript(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	w := task.NewWorkflow(root, task.WithLogger(newTestLogger()))
	s := NewSolverTask(root, cfg, WithLogger(newTestLogger()))
	if err := w.AddTask(s, true); err != nil {
		t.Fatal(err)
	}
	for _, b := range s.Script().Bindings() {
		w.Script().Set(b.Name, b.Value)
	}

	SetNProc(w, 4)

	if v, _ := s.Script().Get("MPIRUN"); v != `"mpirun -n 4"` {
		t.Errorf("solver MPIRUN = %s", v)
	}
	if v, _ := w.Script().Get("MPIRUN"); v != `"mpirun -n 4"` {
		t.Errorf("workflow MPIRUN = %s, want the solver launch string", v)
	}
}

func TestSetNProc_LeavesUnboundWorkflowAlone(t *testing.T) {
	root := t.TempDir()
	w := task.NewWorkflow(root, task.WithLogger(newTestLogger()))
	s := NewSolverTask(filepath.Join(root, "gs"), config.Default(), WithLogger(newTestLogger()))
	if err := w.AddTask(s, false); err != nil {
		t.Fatal(err)
	}
	SetNProc(w, 2)
	if _, ok := w.Script().Get("MPIRUN"); ok {
		t.Error("SetNProc bound MPIRUN in a workflow that had none")
	}
}

func TestPruneTree_KeepsFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "job")
	if err := os.MkdirAll(filepath.Join(dir, "a", "b"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a", "keep"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	removed, err := PruneTree(dir)
	if err != nil || removed {
		t.Fatalf("PruneTree() = %v, %v; want kept", removed, err)
	}
	if removed, err := PruneTree(filepath.Join(dir, "missing")); err != nil || removed {
		t.Errorf("missing dir: PruneTree() = %v, %v", removed, err)
	}
}

func TestRemoveFiles_IgnoresMissing(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "calc.log")
	if err := os.WriteFile(f, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	n, err := RemoveFiles([]string{f, filepath.Join(dir, "gone")})
	if err != nil || n != 1 {
		t.Errorf("RemoveFiles() = %d, %v; want 1, nil", n, err)
	}
}
