package jobfile

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/me/abiflow/internal/abinit"
	"github.com/me/abiflow/internal/config"
	"github.com/me/abiflow/internal/deck"
	"github.com/me/abiflow/internal/logging"
	"github.com/me/abiflow/internal/structure"
	"github.com/me/abiflow/internal/task"
)

// Build returns one workflow per job of f. Nothing is written to disk.
func Build(f *File, cfg config.Config, logger *slog.Logger) ([]*task.Workflow, error) {
	logger = logging.Component(logger, "jobfile")
	out := make([]*task.Workflow, 0, len(f.Jobs))
	for _, j := range f.Jobs {
		w, err := buildJob(f, j, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("job %s: %w", j.Name, err)
		}
		out = append(out, w)
	}
	return out, nil
}

func buildJob(f *File, j Job, cfg config.Config, logger *slog.Logger) (*task.Workflow, error) {
	dir := f.Resolve(j.Directory)
	scriptCfg := cfg.RunScript
	if j.Script != "" {
		scriptCfg.Filename = j.Script
	}
	w := task.NewWorkflow(dir,
		task.WithName(j.Name),
		task.WithRunScriptConfig(scriptCfg),
		task.WithLogger(logger),
	)
	w.Safe = j.Safe

	for i, def := range j.Tasks {
		r, err := buildTask(f, dir, def, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", i, err)
		}
		if err := w.AddTask(r, def.Merge); err != nil {
			return nil, fmt.Errorf("task %d: %w", i, err)
		}
		if def.Merge {
			// The merged body refers to the child's variables.
			for _, bnd := range r.Script().Bindings() {
				if _, ok := w.Script().Get(bnd.Name); !ok {
					w.Script().Set(bnd.Name, bnd.Value)
				}
			}
		}
	}
	logger.Debug("job built", "job", j.Name, "dir", dir, "tasks", len(j.Tasks))
	return w, nil
}

func buildTask(f *File, jobDir string, def Task, cfg config.Config, logger *slog.Logger) (task.Runner, error) {
	dir := jobDir
	if def.Directory != "" {
		dir = f.Resolve(def.Directory)
	}
	opts := []abinit.Option{abinit.WithLogger(logger)}
	if def.Rootname != "" {
		opts = append(opts, abinit.WithRootname(def.Rootname))
	}
	if def.Script != "" {
		opts = append(opts, abinit.WithScriptName(def.Script))
	}
	if def.Name != "" {
		opts = append(opts, abinit.WithName(def.Name))
	}

	var (
		r     task.Runner
		links *task.Linker
	)
	switch def.Kind {
	case KindAbinit:
		s, err := buildSolver(f, dir, def, cfg, opts)
		if err != nil {
			return nil, err
		}
		r, links = s, s.Linker()
	case KindAnaddb:
		a := abinit.NewAnaddbTask(dir, cfg, opts...)
		a.Input.Comment = def.Comment
		a.Input.SetVariables(def.Variables)
		for name, n := range def.Decimals {
			if v, ok := a.Input.Variable(name); ok {
				a.Input.SetVariable(name, v, n)
			}
		}
		for _, l := range []struct{ path, dest string }{
			{def.DDB, abinit.DDBName},
			{def.GKK, abinit.GKKName},
			{def.DDK, abinit.DDKName},
		} {
			if l.path != "" {
				a.Linker().Add(f.Resolve(l.path), l.dest)
			}
		}
		if def.NProc > 0 {
			a.SetMPI(withNProc(a.MPI(), def.NProc))
		}
		r, links = a, a.Linker()
	case KindMrgddb, KindMrgdv:
		inputs := make([]string, len(def.Inputs))
		for i, in := range def.Inputs {
			inputs[i] = f.Resolve(in)
		}
		var m *abinit.MergeTask
		if def.Kind == KindMrgddb {
			m = abinit.NewMrgddbTask(dir, inputs, def.Comment, cfg, opts...)
		} else {
			m = abinit.NewMrgdvTask(dir, inputs, cfg, opts...)
		}
		if def.NProc > 0 {
			m.SetNProc(def.NProc)
		}
		r, links = m, m.Linker()
	default:
		return nil, fmt.Errorf("unknown task kind %q", def.Kind)
	}

	for _, l := range def.Links {
		links.Add(f.Resolve(l.Source), l.Dest)
	}
	return r, nil
}

func buildSolver(f *File, dir string, def Task, cfg config.Config, opts []abinit.Option) (*abinit.SolverTask, error) {
	s := abinit.NewSolverTask(dir, cfg, opts...)
	in := s.Input

	if def.NProc > 0 {
		s.SetNProc(def.NProc)
	}
	if def.Comment != "" {
		in.SetComment(def.Comment)
	}
	if def.Structure != "" {
		cell, err := structure.LoadCell(f.Resolve(def.Structure))
		if err != nil {
			return nil, err
		}
		if err := in.SetStructure(cell); err != nil {
			return nil, err
		}
	}
	if err := in.SetVariables(def.Variables); err != nil {
		return nil, err
	}

	indices, err := def.DatasetIndices()
	if err != nil {
		return nil, err
	}
	for _, idx := range indices {
		key := strconv.Itoa(idx)
		if vars, ok := def.Datasets[key]; ok {
			if err := in.SetVariables(vars, idx); err != nil {
				return nil, fmt.Errorf("dataset %d: %w", idx, err)
			}
		}
		if c, ok := def.DatasetComments[key]; ok {
			in.SetComment(c, idx)
		}
	}

	switch {
	case len(def.UDTSet) > 0:
		if err := in.SetVariable("udtset", def.UDTSet); err != nil {
			return nil, err
		}
	case len(def.JDTSet) > 0:
		if err := in.SetVariable("jdtset", def.JDTSet); err != nil {
			return nil, err
		}
	case def.NDTSet > 0:
		in.SetNDTSet(def.NDTSet)
	case len(indices) > 0 && slices.Equal(indices, contiguous(len(indices))):
		in.SetNDTSet(len(indices))
	case len(indices) > 0:
		in.SetIndexing(deck.Explicit{List: indices})
	}

	for name, n := range def.Decimals {
		in.SetDecimals(name, n)
	}

	if def.PseudoDir != "" {
		s.SetPseudoDir(f.Resolve(def.PseudoDir))
	}
	if len(def.Pseudos) > 0 {
		s.SetPseudos(def.Pseudos...)
	}
	for _, l := range def.LinksIO {
		s.Linker().Add(s.OData(l.Kind, l.Producer), abinit.IDataName(l.Kind, l.Consumer))
	}
	return s, nil
}

func contiguous(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func withNProc(m *task.MPI, n int) *task.MPI {
	c := *m
	c.NProc = n
	return &c
}
