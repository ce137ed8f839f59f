package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newRunCmd() *cobra.Command {
	var only []string
	var parallel int

	cmd := &cobra.Command{
		Use:   "run <job-file>",
		Short: "Run the scripts of written jobs",
		Long: `Runs the top-level script of each selected job. Files are not written
first; use make. With -n, up to N jobs run at the same time; the tasks of
one job always run in order.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, flows, err := loadJobs(args[0], only)
			if err != nil {
				return err
			}
			if parallel < 1 {
				return fmt.Errorf("-n must be at least 1, got %d", parallel)
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(parallel)
			for _, w := range flows {
				g.Go(func() error {
					logger.Info("job started", "job", w.Name(), "dir", w.Dir())
					if err := w.Run(ctx); err != nil {
						return fmt.Errorf("run %s: %w", w.Name(), err)
					}
					logger.Info("job finished", "job", w.Name(), "status", w.Status())
					return nil
				})
			}
			return g.Wait()
		},
	}

	addOnlyFlag(cmd, &only)
	cmd.Flags().IntVarP(&parallel, "jobs", "n", 1, "Number of jobs run at the same time")
	return cmd
}
