package cli

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/me/abiflow/pkg/model"
)

func newHistoryCmd() *cobra.Command {
	opts := model.DefaultListOptions()

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded task statuses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Status != "" {
				s, err := statusFlag(opts.Status)
				if err != nil {
					return err
				}
				opts.Status = string(s)
			}
			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			records, total, err := st.List(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("list history: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No history recorded.")
				return nil
			}

			fmt.Fprintf(out, "%-16s  %-12s  %-20s  %-40s  %s\n", "CHECKED", "STATUS", "JOB", "DIRECTORY", "RUN")
			fmt.Fprintf(out, "%-16s  %-12s  %-20s  %-40s  %s\n", "-------", "------", "---", "---------", "---")
			for _, r := range records {
				fmt.Fprintf(out, "%-16s  %-12s  %-20s  %-40s  %s\n",
					humanize.Time(r.CheckedAt), r.Status, r.Job, r.Directory, shortID(r.RunID))
			}
			if opts.Offset+len(records) < total {
				fmt.Fprintf(out, "\n(%d of %d shown)\n", len(records), total)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Directory, "dir", "", "Only this task directory")
	cmd.Flags().StringVar(&opts.Status, "status", "", "Only this status (Unstarted, Unfinished, Completed, Unknown; any case)")
	cmd.Flags().IntVar(&opts.Limit, "limit", opts.Limit, "Maximum number of records")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Records to skip")
	return cmd
}

// statusFlag matches s against the known statuses ignoring case.
func statusFlag(s string) (model.Status, error) {
	for _, st := range []model.Status{
		model.StatusUnstarted, model.StatusUnfinished, model.StatusCompleted, model.StatusUnknown,
	} {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
