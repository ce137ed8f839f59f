package abinit

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/me/abiflow/internal/config"
	"github.com/me/abiflow/pkg/model"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func requireBash(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not available")
	}
}

// fakeBinary writes an executable shell script named name into dir.
func fakeBinary(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/bash\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestSolverTask_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gs")
	cfg := config.Default()
	cfg.BinDir = "/opt/abinit/bin"
	cfg.PseudoDir = "/data/pseudos"

	s := NewSolverTask(dir, cfg, WithLogger(newTestLogger()))
	s.SetPseudos("14si.pspnc")
	if err := s.Input.SetVariable("ecut", 10.0); err != nil {
		t.Fatal(err)
	}
	if err := s.Write(); err != nil {
		t.Fatalf("Write: %v", err)
	}

	for _, sub := range []string{InputDataDir, OutDataDir, TmpDataDir} {
		if info, err := os.Stat(filepath.Join(dir, sub)); err != nil || !info.IsDir() {
			t.Errorf("%s not created", sub)
		}
	}
	if in := readFile(t, filepath.Join(dir, "calc.in")); !strings.Contains(in, "ecut 10") {
		t.Errorf("calc.in = %q, want ecut", in)
	}

	abs := s.AbsDir()
	wantFiles := strings.Join([]string{
		"calc.in",
		"calc.out",
		filepath.Join(abs, "input_data", "idat"),
		filepath.Join(abs, "out_data", "odat"),
		filepath.Join(abs, "tmp_data", "tmp"),
		"/data/pseudos/14si.pspnc",
	}, "\n") + "\n"
	if got := readFile(t, filepath.Join(dir, "calc.files")); got != wantFiles {
		t.Errorf("calc.files = %q, want %q", got, wantFiles)
	}

	script := readFile(t, filepath.Join(dir, "run.sh"))
	for _, want := range []string{
		"ABINIT=/opt/abinit/bin/abinit",
		`MPIRUN=""`,
		"$MPIRUN $ABINIT < calc.files > calc.log 2> stderr",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("run.sh missing %q:\n%s", want, script)
		}
	}
}

func TestSolverTask_BindingsOrder(t *testing.T) {
	s := NewSolverTask(t.TempDir(), config.Default())
	var names []string
	for _, b := range s.Script().Bindings() {
		names = append(names, b.Name)
	}
	if !slices.Equal(names, []string{"MPIRUN", "ABINIT"}) {
		t.Errorf("bindings = %v", names)
	}
	if v, _ := s.Script().Get("ABINIT"); v != "abinit" {
		t.Errorf("ABINIT = %q, want bare name without bindir", v)
	}
}

func TestSolverTask_SetNProc(t *testing.T) {
	s := NewSolverTask(t.TempDir(), config.Default())
	s.SetNProc(8)
	if v, _ := s.Script().Get("MPIRUN"); v != `"mpirun -n 8"` {
		t.Errorf("MPIRUN = %s", v)
	}
	s.SetNProc(1)
	if v, _ := s.Script().Get("MPIRUN"); v != `""` {
		t.Errorf("MPIRUN = %s after going serial", v)
	}
}

func TestSolverTask_DataNames(t *testing.T) {
	s := NewSolverTask("Si", config.Default(), WithRootname("si"))
	tests := []struct {
		got, want string
	}{
		{s.IData("DEN", 0), filepath.Join("Si", "input_data", "idat_DEN")},
		{s.IData("_WFK", 3), filepath.Join("Si", "input_data", "idat_DS3_WFK")},
		{s.OData("DEN", 1), filepath.Join("Si", "out_data", "odat_DS1_DEN")},
		{s.InputName(), "si.in"},
		{s.FilesName(), "si.files"},
		{s.LogName(), "si.log"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestSolverTask_LinkIO(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bands")
	s := NewSolverTask(dir, config.Default(), WithLogger(newTestLogger()))
	if err := s.LinkIO(2, 1, "DEN"); err != nil {
		t.Fatalf("LinkIO: %v", err)
	}
	link := s.IData("DEN", 2)
	info, err := os.Lstat(link)
	if err != nil {
		t.Fatalf("link not created: %v", err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		t.Fatal("idat_DS2_DEN is not a symlink")
	}
	target, err := os.Readlink(link)
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(link), target)
	}
	if filepath.Clean(target) != s.OData("DEN", 1) {
		t.Errorf("link target = %q, want %q", target, s.OData("DEN", 1))
	}
}

func TestSolverTask_LinkFromOtherTask(t *testing.T) {
	root := t.TempDir()
	t.Chdir(root)
	cfg := config.Default()
	gs := NewSolverTask(filepath.Join("Si", "gs"), cfg)
	bands := NewSolverTask(filepath.Join("Si", "bands"), cfg)

	if err := os.MkdirAll(filepath.Join("Si", "gs", OutDataDir), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(gs.OData("DEN", 0), []byte("density"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := bands.LinkIData(gs.OData("DEN", 0), "DEN", 0); err != nil {
		t.Fatalf("LinkIData: %v", err)
	}
	if got := readFile(t, bands.IData("DEN", 0)); got != "density" {
		t.Errorf("linked content = %q", got)
	}
}

func TestSolverTask_PseudoDir(t *testing.T) {
	root := t.TempDir()
	t.Chdir(root)
	cfg := config.Default()
	cfg.PseudoDir = "pseudos"
	s := NewSolverTask(filepath.Join("Si", "gs"), cfg, WithLogger(newTestLogger()))

	if got, want := s.PseudoDir(), filepath.Join("..", "..", "pseudos"); got != want {
		t.Errorf("PseudoDir() = %q, want %q", got, want)
	}

	s.SetPseudos("14si.pspnc", "8o.pspnc")
	if err := os.MkdirAll("pseudos", 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join("pseudos", "14si.pspnc"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	missing := s.CheckPseudos()
	if len(missing) != 1 || !strings.HasSuffix(missing[0], "8o.pspnc") {
		t.Errorf("CheckPseudos() = %v, want only 8o.pspnc", missing)
	}

	s.SetPseudoDir("/abs/pseudos")
	if got := s.Pseudos()[0]; got != "/abs/pseudos/14si.pspnc" {
		t.Errorf("Pseudos()[0] = %q", got)
	}
}

func TestSolverTask_Status(t *testing.T) {
	dir := t.TempDir()
	s := NewSolverTask(dir, config.Default())

	if got := s.Status(); got != model.StatusUnstarted {
		t.Errorf("no output: Status() = %v, want unstarted", got)
	}
	if err := os.WriteFile(filepath.Join(dir, "calc.out"), []byte("iter 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := s.Status(); got != model.StatusUnfinished {
		t.Errorf("partial output: Status() = %v, want unfinished", got)
	}
	if err := os.WriteFile(filepath.Join(dir, "calc.outA"), []byte("== "+TagAbinit+" ==\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := s.LastOutput(); got != filepath.Join(dir, "calc.outA") {
		t.Errorf("LastOutput() = %q, want calc.outA", got)
	}
	if got := s.Status(); got != model.StatusCompleted {
		t.Errorf("restarted output: Status() = %v, want completed", got)
	}
	if got := len(s.OutputFiles()); got != 2 {
		t.Errorf("OutputFiles() has %d entries, want 2", got)
	}
}

func TestSolverTask_Run(t *testing.T) {
	requireBash(t)
	root := t.TempDir()
	bin := filepath.Join(root, "bin")
	fakeBinary(t, bin, "abinit", `read in; read out; echo "`+TagAbinit+`" > "$out"`)

	cfg := config.Default()
	cfg.BinDir = bin
	s := NewSolverTask(filepath.Join(root, "gs"), cfg, WithLogger(newTestLogger()), WithOutput(io.Discard, io.Discard))
	if err := s.Write(); err != nil {
		t.Fatal(err)
	}
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := s.Status(); got != model.StatusCompleted {
		t.Errorf("Status() = %v after run, want completed", got)
	}
}

func TestSolverTask_CleanAndDestroy(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gs")
	s := NewSolverTask(dir, config.Default(), WithLogger(newTestLogger()))
	if err := s.Write(); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{
		"calc.out", "calc.log", "stderr", "fort.7", "out.dat",
		"out_data/odat_DEN", "tmp_data/tmp_WFK", "input_data/idat_DEN",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	clean := s.CleanFiles()
	for _, want := range []string{"calc.log", "stderr", "fort.7", "out.dat", "out_data/odat_DEN", "tmp_data/tmp_WFK"} {
		if !slices.Contains(clean, filepath.Join(dir, want)) {
			t.Errorf("CleanFiles() missing %s: %v", want, clean)
		}
	}
	for _, keep := range []string{"calc.out", "calc.in", "input_data/idat_DEN"} {
		if slices.Contains(clean, filepath.Join(dir, keep)) {
			t.Errorf("CleanFiles() lists %s", keep)
		}
	}

	destroy := s.DestroyFiles()
	n, err := RemoveFiles(destroy)
	if err != nil {
		t.Fatalf("RemoveFiles: %v", err)
	}
	if n != len(destroy) {
		t.Errorf("removed %d of %d", n, len(destroy))
	}
	removed, err := PruneTree(dir)
	if err != nil {
		t.Fatalf("PruneTree: %v", err)
	}
	if !removed {
		t.Error("task tree not pruned after destroy")
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("task directory still exists")
	}
}

func TestSolverTask_DeckSetters(t *testing.T) {
	s := NewSolverTask(t.TempDir(), config.Default())
	if err := s.SetVariables(map[string]any{"tolvrs": 1e-10}, 1, 2); err != nil {
		t.Fatal(err)
	}
	if err := s.SetVariable("ecut", 12.0, 1); err != nil {
		t.Fatal(err)
	}
	s.SetNDTSet(2)
	s.SetComment("Band structure", 2)

	out := s.Input.Render()
	for _, want := range []string{"ndtset 2", "tolvrs 1e-10", "ecut 12.0", "Band structure"} {
		if !strings.Contains(out, want) {
			t.Errorf("deck missing %q:\n%s", want, out)
		}
	}
}
