package abinit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/me/abiflow/internal/config"
	"github.com/me/abiflow/internal/deck"
	"github.com/me/abiflow/internal/structure"
	"github.com/me/abiflow/internal/task"
)

// SolverTask runs abinit on one input deck.
type SolverTask struct {
	*task.Task

	Input    *deck.Input
	Rootname string

	pseudoDir string
	pseudos   []string
	bindir    string
}

// NewSolverTask creates an abinit task in dir using cfg for the MPI
// launcher, the run script template, the binary and pseudopotential
// directories.
func NewSolverTask(dir string, cfg config.Config, opts ...Option) *SolverTask {
	o := newOptions("calc", opts)
	s := &SolverTask{Input: deck.NewInput(), Rootname: o.rootname}
	s.Task = task.New(dir, o.taskOptions(cfg, TagAbinit, s.LastOutput)...)
	s.AddSubdir(InputDataDir, OutDataDir, TmpDataDir)
	s.AddArtifact(s.InputName(), s.Input)
	s.AddArtifact(s.FilesName(), renderFunc(s.filesManifest))

	s.SetMPI(task.FromConfig(cfg.MPI))
	s.SetBinDir(cfg.BinDir)
	s.pseudoDir = "."
	if cfg.PseudoDir != "" {
		s.SetPseudoDir(cfg.PseudoDir)
	}
	s.Script().Append(fmt.Sprintf("$MPIRUN $ABINIT < %s > %s 2> %s",
		s.FilesName(), s.LogName(), StderrName))
	return s
}

// InputName returns the input deck file name.
func (s *SolverTask) InputName() string { return s.Rootname + ".in" }

// FilesName returns the files manifest name.
func (s *SolverTask) FilesName() string { return s.Rootname + ".files" }

// OutputName returns the main output file name.
func (s *SolverTask) OutputName() string { return s.Rootname + ".out" }

// LogName returns the log file name.
func (s *SolverTask) LogName() string { return s.Rootname + ".log" }

// SetVariable sets a deck variable.
func (s *SolverTask) SetVariable(name string, value any, decimals ...int) error {
	return s.Input.SetVariable(name, value, decimals...)
}

// SetVariables sets deck variables, for the given datasets if any.
func (s *SolverTask) SetVariables(vars map[string]any, datasets ...int) error {
	return s.Input.SetVariables(vars, datasets...)
}

// SetStructure sets the unit-cell variables of st.
func (s *SolverTask) SetStructure(st structure.Structure) error {
	return s.Input.SetStructure(st)
}

// SetComment sets the deck comment, or the comment of one dataset.
func (s *SolverTask) SetComment(comment string, dataset ...int) {
	s.Input.SetComment(comment, dataset...)
}

// SetNDTSet sets the number of datasets.
func (s *SolverTask) SetNDTSet(n int) { s.Input.SetNDTSet(n) }

// SetBinDir binds ABINIT to the abinit binary under dir, or to the bare
// name when dir is empty.
func (s *SolverTask) SetBinDir(dir string) {
	s.bindir = dir
	s.Script().Set("ABINIT", filepath.Join(dir, "abinit"))
}

// SetNProc changes the number of MPI processes.
func (s *SolverTask) SetNProc(n int) {
	m := *s.MPI()
	m.NProc = n
	s.SetMPI(&m)
}

// SetPseudoDir sets where pseudopotentials are looked up. A relative dir
// is taken from the working directory and stored relative to the task.
func (s *SolverTask) SetPseudoDir(dir string) {
	if filepath.IsAbs(dir) {
		s.pseudoDir = filepath.Clean(dir)
		return
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		s.pseudoDir = dir
		return
	}
	rel, err := filepath.Rel(s.AbsDir(), abs)
	if err != nil {
		s.pseudoDir = abs
		return
	}
	s.pseudoDir = rel
}

// PseudoDir returns the pseudopotential directory, relative to the task
// directory unless absolute.
func (s *SolverTask) PseudoDir() string { return s.pseudoDir }

// SetPseudos sets the pseudopotential file names, in typat order.
func (s *SolverTask) SetPseudos(names ...string) {
	s.pseudos = append(s.pseudos[:0], names...)
}

// Pseudos returns the pseudopotential paths as written in the manifest.
func (s *SolverTask) Pseudos() []string {
	out := make([]string, len(s.pseudos))
	for i, p := range s.pseudos {
		out[i] = filepath.Join(s.pseudoDir, p)
	}
	return out
}

// CheckPseudos logs a warning for every pseudopotential not found on disk
// and returns the missing paths.
func (s *SolverTask) CheckPseudos() []string {
	var missing []string
	for _, p := range s.Pseudos() {
		path := p
		if !filepath.IsAbs(path) {
			path = s.Path(p)
		}
		if _, err := os.Stat(path); err != nil {
			s.Logger().Warn("pseudopotential not found", "path", path)
			missing = append(missing, path)
		}
	}
	return missing
}

// Write writes the task and checks that the pseudopotentials exist.
func (s *SolverTask) Write() error {
	if err := s.Task.Write(); err != nil {
		return err
	}
	s.CheckPseudos()
	return nil
}

func (s *SolverTask) dataRoot(sub, prefix string) string {
	return filepath.Join(s.AbsDir(), sub, prefix)
}

// filesManifest renders the list of names abinit reads on stdin.
func (s *SolverTask) filesManifest() string {
	lines := []string{
		s.InputName(),
		s.OutputName(),
		s.dataRoot(InputDataDir, "idat"),
		s.dataRoot(OutDataDir, "odat"),
		s.dataRoot(TmpDataDir, "tmp"),
	}
	lines = append(lines, s.Pseudos()...)
	return strings.Join(lines, "\n") + "\n"
}

func dataName(prefix, kind string, dataset int) string {
	name := prefix
	if dataset > 0 {
		name += fmt.Sprintf("_DS%d", dataset)
	}
	return name + "_" + strings.TrimLeft(kind, "_")
}

// IDataName returns the input data file of the given kind (DEN, WFK, ...)
// read by dataset, relative to the task directory. A dataset of 0 means no
// dataset suffix.
func IDataName(kind string, dataset int) string {
	return filepath.Join(InputDataDir, dataName("idat", kind, dataset))
}

// ODataName is the output counterpart of IDataName.
func ODataName(kind string, dataset int) string {
	return filepath.Join(OutDataDir, dataName("odat", kind, dataset))
}

// IData returns the path of an input data file from the working directory.
func (s *SolverTask) IData(kind string, dataset int) string {
	return s.Path(IDataName(kind, dataset))
}

// OData returns the path of an output data file from the working directory.
func (s *SolverTask) OData(kind string, dataset int) string {
	return s.Path(ODataName(kind, dataset))
}

// LinkIData makes source available as the input data file of the given
// kind for dataset.
func (s *SolverTask) LinkIData(source, kind string, dataset int) error {
	return s.LinkFile(source, IDataName(kind, dataset))
}

// LinkOData makes source available as an output data file.
func (s *SolverTask) LinkOData(source, kind string, dataset int) error {
	return s.LinkFile(source, ODataName(kind, dataset))
}

// LinkIO feeds the output of dataset producer to dataset consumer in the
// same task.
func (s *SolverTask) LinkIO(consumer, producer int, kind string) error {
	return s.LinkIData(s.OData(kind, producer), kind, consumer)
}

// OutputFiles returns the existing main output files in the order abinit
// creates them: root.out, root.outA, ..., root.outZ.
func (s *SolverTask) OutputFiles() []string {
	var out []string
	for _, suffix := range outputSuffixes() {
		path := s.Path(s.OutputName() + suffix)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			out = append(out, path)
		}
	}
	return out
}

// LastOutput returns the latest output file, or root.out when none exists.
func (s *SolverTask) LastOutput() string {
	files := s.OutputFiles()
	if len(files) == 0 {
		return s.Path(s.OutputName())
	}
	return files[len(files)-1]
}

func outputSuffixes() []string {
	out := []string{""}
	for c := 'A'; c <= 'Z'; c++ {
		out = append(out, string(c))
	}
	return out
}

// CleanFiles lists the files removed by a clean: the log, output and
// temporary data, and scratch files abinit leaves behind.
func (s *SolverTask) CleanFiles() []string {
	files := existing(s.Path(s.LogName()), s.Path(StderrName))
	files = append(files, globFiles(s.Dir(), OutDataDir+"/odat*", TmpDataDir+"/tmp*")...)
	files = append(files, globFiles(s.Dir(), junkPatterns...)...)
	return dedupe(files)
}

// DestroyFiles lists every file the task wrote or produced.
func (s *SolverTask) DestroyFiles() []string {
	files := existing(
		s.Path(s.InputName()),
		s.Path(s.FilesName()),
		s.Path(s.Script().Filename),
	)
	files = append(files, s.OutputFiles()...)
	files = append(files, globFiles(s.Dir(), InputDataDir+"/idat*")...)
	files = append(files, s.CleanFiles()...)
	return dedupe(files)
}
