package abinit

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/me/abiflow/internal/config"
	"github.com/me/abiflow/internal/deck"
	"github.com/me/abiflow/internal/task"
)

// Names under which input databases are linked into an anaddb task.
const (
	DDBName = "ddb"
	GKKName = "gkk"
	DDKName = "ddk"
)

// AnaddbTask runs anaddb on a derivative database.
type AnaddbTask struct {
	*task.Task

	Input    *deck.AnaddbInput
	Rootname string
}

// NewAnaddbTask creates an anaddb task in dir.
func NewAnaddbTask(dir string, cfg config.Config, opts ...Option) *AnaddbTask {
	o := newOptions("anaddb", opts)
	a := &AnaddbTask{Input: deck.NewAnaddbInput(), Rootname: o.rootname}
	a.Task = task.New(dir, o.taskOptions(cfg, TagAnaddb, a.outputPath)...)
	a.AddSubdir(OutDataDir)
	a.AddArtifact(a.InputName(), a.Input)
	a.AddArtifact(a.FilesName(), renderFunc(a.filesManifest))

	a.SetMPI(task.FromConfig(cfg.MPI))
	a.SetBinDir(cfg.BinDir)
	a.Script().Append(fmt.Sprintf("$MPIRUN $ANADDB < %s > %s 2> %s",
		a.FilesName(), a.LogName(), StderrName))
	return a
}

// InputName returns the input file name.
func (a *AnaddbTask) InputName() string { return a.Rootname + ".in" }

// FilesName returns the files manifest name.
func (a *AnaddbTask) FilesName() string { return a.Rootname + ".files" }

// OutputName returns the output file name.
func (a *AnaddbTask) OutputName() string { return a.Rootname + ".out" }

// LogName returns the log file name.
func (a *AnaddbTask) LogName() string { return a.Rootname + ".log" }

func (a *AnaddbTask) outputPath() string { return a.Path(a.OutputName()) }

// SetBinDir binds ANADDB to the anaddb binary under dir.
func (a *AnaddbTask) SetBinDir(dir string) {
	a.Script().Set("ANADDB", filepath.Join(dir, "anaddb"))
}

// SetDDB links the derivative database read by anaddb.
func (a *AnaddbTask) SetDDB(path string) error { return a.LinkFile(path, DDBName) }

// SetGKK links the electron-phonon matrix elements file.
func (a *AnaddbTask) SetGKK(path string) error { return a.LinkFile(path, GKKName) }

// SetDDK links the ddk file list.
func (a *AnaddbTask) SetDDK(path string) error { return a.LinkFile(path, DDKName) }

// OData returns the path of an output data file of the given kind.
func (a *AnaddbTask) OData(kind string) string {
	return a.Path(OutDataDir, "odat_"+strings.TrimLeft(kind, "_"))
}

func (a *AnaddbTask) filesManifest() string {
	lines := []string{
		a.InputName(),
		a.OutputName(),
		DDBName,
		filepath.Join(OutDataDir, "odat_band_eps"),
		GKKName,
		filepath.Join(OutDataDir, "odat_anaddb.ep"),
		DDKName,
	}
	return strings.Join(lines, "\n") + "\n"
}

// CleanFiles lists the log and output data files.
func (a *AnaddbTask) CleanFiles() []string {
	files := existing(a.Path(a.LogName()), a.Path(StderrName))
	files = append(files, globFiles(a.Dir(), OutDataDir+"/odat*")...)
	return dedupe(files)
}

// DestroyFiles lists every file the task wrote or produced.
func (a *AnaddbTask) DestroyFiles() []string {
	files := existing(
		a.Path(a.InputName()),
		a.Path(a.FilesName()),
		a.Path(a.OutputName()),
		a.Path(a.Script().Filename),
		a.Path(DDBName),
		a.Path(GKKName),
		a.Path(DDKName),
	)
	files = append(files, a.CleanFiles()...)
	return dedupe(files)
}
