package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/abiflow/internal/abinit"
	"github.com/me/abiflow/internal/task"
)

func newShowCmd() *cobra.Command {
	var only []string

	cmd := &cobra.Command{
		Use:   "show <job-file>",
		Short: "List jobs and their tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, flows, err := loadJobs(args[0], only)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, w := range flows {
				mode := "plain"
				if w.Safe {
					mode = "safe"
				}
				fmt.Fprintf(out, "%s  %s  (%s, %s)\n", w.Name(), w.Dir(), w.Script().Filename, mode)
				for i, r := range w.Tasks() {
					merged := ""
					if w.Merged(i) {
						merged = "  merged"
					}
					fmt.Fprintf(out, "  %-3d %-8s %-30s %s%s\n", i, kindOf(r), r.Dir(), r.Script().Filename, merged)
				}
			}
			return nil
		},
	}

	addOnlyFlag(cmd, &only)
	return cmd
}

func kindOf(r task.Runner) string {
	switch t := r.(type) {
	case *abinit.SolverTask:
		return "abinit"
	case *abinit.AnaddbTask:
		return "anaddb"
	case *abinit.MergeTask:
		return t.Tool()
	case *task.Workflow:
		return "workflow"
	default:
		return "task"
	}
}
