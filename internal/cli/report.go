package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/abiflow/internal/task"
	"github.com/me/abiflow/pkg/model"
)

func newReportCmd() *cobra.Command {
	var only []string
	var record bool

	cmd := &cobra.Command{
		Use:   "report <job-file>",
		Short: "Print the status of every task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, flows, err := loadJobs(args[0], only)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, w := range flows {
				fmt.Fprintf(out, "== %s (%s)\n", w.Name(), w.Dir())
				s := w.Report(out)
				fmt.Fprintf(out, "%s : %s\n\n", w.Name(), task.FormatStatus(out, s))
			}
			if !record {
				return nil
			}

			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()
			n := 0
			for _, w := range flows {
				for _, leaf := range w.Leaves() {
					rec := &model.Record{
						RunID:     runID,
						Job:       w.Name(),
						Task:      leaf.Name(),
						Directory: leaf.Dir(),
						Status:    leaf.Status(),
					}
					if err := st.Record(cmd.Context(), rec); err != nil {
						return err
					}
					n++
				}
			}
			logger.Info("statuses recorded", "job_file", f.Path, "records", n)
			return nil
		},
	}

	addOnlyFlag(cmd, &only)
	cmd.Flags().BoolVar(&record, "record", false, "Append the statuses to the history database")
	return cmd
}
