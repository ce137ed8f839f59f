package abinit

import (
	"fmt"
	"path/filepath"

	"github.com/me/abiflow/internal/config"
	"github.com/me/abiflow/internal/deck"
	"github.com/me/abiflow/internal/task"
)

// MergeTask runs mrgddb or mrgdv to merge several databases into one.
// Both tools are serial.
type MergeTask struct {
	*task.Task

	Manifest *deck.MergeInput
	Rootname string

	binding string
	binary  string
	kind    string
}

// NewMrgddbTask creates a task merging the derivative databases inputs,
// given from the working directory, into out_data/odat_DDB.
func NewMrgddbTask(dir string, inputs []string, title string, cfg config.Config, opts ...Option) *MergeTask {
	m := newMergeTask(dir, "mrgddb", "MRGDDB", "DDB", TagMrgddb, cfg, opts)
	m.Manifest = deck.NewDDBMerge(m.MergedName(), m.relInputs(inputs), title)
	m.finish(cfg)
	return m
}

// NewMrgdvTask creates a task merging the potential derivative files
// inputs into out_data/odat_DVDB.
func NewMrgdvTask(dir string, inputs []string, cfg config.Config, opts ...Option) *MergeTask {
	m := newMergeTask(dir, "mrgdv", "MRGDV", "DVDB", TagMrgdv, cfg, opts)
	m.Manifest = deck.NewDVMerge(m.MergedName(), m.relInputs(inputs))
	m.finish(cfg)
	return m
}

func newMergeTask(dir, binary, binding, kind, tag string, cfg config.Config, opts []Option) *MergeTask {
	o := newOptions(binary, opts)
	m := &MergeTask{Rootname: o.rootname, binding: binding, binary: binary, kind: kind}
	m.Task = task.New(dir, o.taskOptions(cfg, tag, m.outputPath)...)
	return m
}

func (m *MergeTask) finish(cfg config.Config) {
	m.AddSubdir(OutDataDir)
	m.AddArtifact(m.InputName(), m.Manifest)
	m.SetMPI(task.FromConfig(cfg.MPI))
	m.SetNProc(cfg.MPI.NProc)
	m.SetBinDir(cfg.BinDir)
	m.Script().Append(fmt.Sprintf("$MPIRUN $%s < %s > %s 2> %s",
		m.binding, m.InputName(), m.OutputName(), StderrName))
}

// SetNProc keeps the task serial, warning when asked for more processes.
func (m *MergeTask) SetNProc(n int) {
	if n != 1 {
		m.Logger().Warn("merge tools run serially, ignoring nproc", "tool", m.binary, "nproc", n)
	}
	if mpi := m.MPI(); mpi != nil && mpi.NProc != 1 {
		serial := *mpi
		serial.NProc = 1
		m.SetMPI(&serial)
	}
}

// SetBinDir binds the tool to its binary under dir.
func (m *MergeTask) SetBinDir(dir string) {
	m.Script().Set(m.binding, filepath.Join(dir, m.binary))
}

// InputName returns the manifest file name.
func (m *MergeTask) InputName() string { return m.Rootname + ".in" }

// OutputName returns the output file name.
func (m *MergeTask) OutputName() string { return m.Rootname + ".out" }

// MergedName returns the merged file, relative to the task directory.
func (m *MergeTask) MergedName() string {
	return filepath.Join(OutDataDir, "odat_"+m.kind)
}

// MergedPath returns the merged file from the working directory.
func (m *MergeTask) MergedPath() string { return m.Path(m.MergedName()) }

func (m *MergeTask) outputPath() string { return m.Path(m.OutputName()) }

// relInputs rewrites inputs relative to the task directory, where the
// tool runs.
func (m *MergeTask) relInputs(inputs []string) []string {
	out := make([]string, len(inputs))
	for i, in := range inputs {
		out[i] = in
		if filepath.IsAbs(in) {
			continue
		}
		abs, err := filepath.Abs(in)
		if err != nil {
			continue
		}
		if rel, err := filepath.Rel(m.AbsDir(), abs); err == nil {
			out[i] = rel
		}
	}
	return out
}

// Inputs returns the merged inputs as written in the manifest.
func (m *MergeTask) Inputs() []string {
	return append([]string(nil), m.Manifest.Inputs...)
}

// CleanFiles lists the merged file and stderr.
func (m *MergeTask) CleanFiles() []string {
	return dedupe(existing(m.MergedPath(), m.Path(StderrName)))
}

// DestroyFiles lists every file the task wrote or produced.
func (m *MergeTask) DestroyFiles() []string {
	files := existing(
		m.Path(m.InputName()),
		m.Path(m.OutputName()),
		m.Path(m.Script().Filename),
	)
	files = append(files, m.CleanFiles()...)
	return dedupe(files)
}

// Tool returns the binary name, mrgddb or mrgdv.
func (m *MergeTask) Tool() string { return m.binary }
