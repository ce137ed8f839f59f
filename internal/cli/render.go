package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/me/abiflow/internal/abinit"
	"github.com/me/abiflow/internal/deck"
	"github.com/me/abiflow/internal/task"
)

func newRenderCmd() *cobra.Command {
	var split bool

	cmd := &cobra.Command{
		Use:   "render <job-file> <job> [task-index]",
		Short: "Print the input decks of a job",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := findJob(args[0], args[1])
			if err != nil {
				return err
			}
			tasks := w.Tasks()
			if len(args) == 3 {
				i, err := strconv.Atoi(args[2])
				if err != nil || i < 0 || i >= len(tasks) {
					return fmt.Errorf("task index %q out of range [0, %d)", args[2], len(tasks))
				}
				tasks = tasks[i : i+1]
			}
			out := cmd.OutOrStdout()
			for _, r := range tasks {
				if err := renderTask(out, r, split); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&split, "split", false, "Print one deck per dataset")
	return cmd
}

func renderTask(out io.Writer, r task.Runner, split bool) error {
	name, d := deckOf(r)
	if d == nil {
		return fmt.Errorf("%s has no input deck", r.Dir())
	}
	if in, ok := d.(*deck.Input); ok && split && in.NDTSet() > 0 {
		for i, part := range in.Split() {
			fmt.Fprintf(out, "==> %s [dataset %d] <==\n%s\n", filepath.Join(r.Dir(), name), in.Indexing().Indices()[i], part.Render())
		}
		return nil
	}
	fmt.Fprintf(out, "==> %s <==\n%s\n", filepath.Join(r.Dir(), name), d.Render())
	return nil
}

func deckOf(r task.Runner) (string, deck.Renderer) {
	switch t := r.(type) {
	case *abinit.SolverTask:
		return t.InputName(), t.Input
	case *abinit.AnaddbTask:
		return t.InputName(), t.Input
	case *abinit.MergeTask:
		return t.InputName(), t.Manifest
	}
	return "", nil
}
