package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/abiflow/pkg/model"
)

func newMakeCmd() *cobra.Command {
	var only []string
	var force bool

	cmd := &cobra.Command{
		Use:   "make <job-file>",
		Short: "Write input decks, manifests and run scripts",
		Long: `Writes every file of the selected jobs. Completed jobs are skipped
unless --force is given, so finished results are never overwritten by
accident.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, flows, err := loadJobs(args[0], only)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, w := range flows {
				if !force && w.Status() == model.StatusCompleted {
					logger.Warn("job completed, not rewriting", "job", w.Name())
					continue
				}
				if err := w.Write(); err != nil {
					return fmt.Errorf("write %s: %w", w.Name(), err)
				}
				fmt.Fprintf(out, "Wrote %s in %s\n", w.Name(), w.Dir())
			}
			return nil
		},
	}

	addOnlyFlag(cmd, &only)
	cmd.Flags().BoolVar(&force, "force", false, "Rewrite completed jobs too")
	return cmd
}
