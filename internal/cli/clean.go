package cli

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/me/abiflow/internal/abinit"
	"github.com/me/abiflow/internal/task"
)

func newCleanCmd() *cobra.Command {
	var only []string
	var force bool

	cmd := &cobra.Command{
		Use:   "clean <job-file>",
		Short: "Remove logs, output data, temporary and scratch files",
		Long: `Lists the files a clean would remove, with their sizes. Nothing is
deleted unless --force is given. Inputs and main output files are kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, flows, err := loadJobs(args[0], only)
			if err != nil {
				return err
			}
			var files []string
			for _, w := range flows {
				for _, c := range abinit.Cleaners(w) {
					files = append(files, c.CleanFiles()...)
				}
			}
			return removeListed(cmd.OutOrStdout(), files, force)
		},
	}

	addOnlyFlag(cmd, &only)
	cmd.Flags().BoolVar(&force, "force", false, "Delete the files instead of listing them")
	return cmd
}

func newDestroyCmd() *cobra.Command {
	var only []string
	var force bool

	cmd := &cobra.Command{
		Use:   "destroy <job-file>",
		Short: "Remove every file written or produced by the jobs",
		Long: `Lists every file of the jobs, with sizes. With --force they are
deleted, and task and job directories left without files are removed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, flows, err := loadJobs(args[0], only)
			if err != nil {
				return err
			}
			var files []string
			for _, w := range flows {
				for _, c := range abinit.Cleaners(w) {
					files = append(files, c.DestroyFiles()...)
				}
				if p := w.Script().Path(w.Dir()); exists(p) {
					files = append(files, p)
				}
			}
			if err := removeListed(cmd.OutOrStdout(), files, force); err != nil || !force {
				return err
			}
			for _, w := range flows {
				if err := pruneJob(w); err != nil {
					return err
				}
			}
			return nil
		},
	}

	addOnlyFlag(cmd, &only)
	cmd.Flags().BoolVar(&force, "force", false, "Delete the files instead of listing them")
	return cmd
}

// removeListed prints files with their sizes, then deletes them when force
// is set.
func removeListed(out io.Writer, files []string, force bool) error {
	slices.Sort(files)
	files = slices.Compact(files)
	if len(files) == 0 {
		fmt.Fprintln(out, "Nothing to remove.")
		return nil
	}

	var total uint64
	for _, f := range files {
		var size uint64
		if info, err := os.Lstat(f); err == nil {
			size = uint64(info.Size())
		}
		total += size
		fmt.Fprintf(out, "%10s  %s\n", humanize.Bytes(size), f)
	}

	if !force {
		fmt.Fprintf(out, "\n%d files, %s. Run again with --force to delete them.\n", len(files), humanize.Bytes(total))
		return nil
	}
	n, err := abinit.RemoveFiles(files)
	logger.Info("files removed", "count", n, "bytes", total)
	fmt.Fprintf(out, "\nRemoved %d files, %s.\n", n, humanize.Bytes(total))
	return err
}

// pruneJob removes the task directories, then the job directory, that
// hold no files any more.
func pruneJob(w *task.Workflow) error {
	for _, r := range w.Leaves() {
		if _, err := abinit.PruneTree(r.Dir()); err != nil {
			return err
		}
	}
	removed, err := abinit.PruneTree(w.Dir())
	if removed {
		logger.Debug("job directory removed", "job", w.Name(), "dir", w.Dir())
	}
	return err
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
