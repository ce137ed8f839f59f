package cli

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/google/shlex"
	"github.com/spf13/cobra"

	"github.com/me/abiflow/internal/abinit"
	"github.com/me/abiflow/internal/task"
)

func newInspectCmd() *cobra.Command {
	var what string

	cmd := &cobra.Command{
		Use:   "inspect <job-file> <job> [task-index]",
		Short: "Open the files of a job in $EDITOR",
		Long: `Opens files of the job's tasks in $EDITOR (default vi). --what picks
them by letter: i input deck, o last output, l log, f files manifest,
j run script. Missing files are skipped.`,
		Args: cobra.RangeArgs(2, 3),
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

			var files []string
			for _, r := range tasks {
				files = append(files, inspectFiles(r, what)...)
			}
			if len(files) == 0 {
				return fmt.Errorf("nothing to inspect for %q", what)
			}
			editor, err := editorCommand()
			if err != nil {
				return err
			}
			logger.Debug("opening editor", "editor", editor[0], "files", len(files))
			c := exec.CommandContext(cmd.Context(), editor[0], append(editor[1:], files...)...)
			c.Stdin = os.Stdin
			c.Stdout = cmd.OutOrStdout()
			c.Stderr = cmd.ErrOrStderr()
			return c.Run()
		},
	}

	cmd.Flags().StringVar(&what, "what", "o", "Files to open: any of i, o, l, f, j")
	return cmd
}

// editorCommand splits $EDITOR the way a shell would.
func editorCommand() ([]string, error) {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}
	parts, err := shlex.Split(editor)
	if err != nil {
		return nil, fmt.Errorf("parse $EDITOR: %w", err)
	}
	if len(parts) == 0 {
		return []string{"vi"}, nil
	}
	return parts, nil
}

// inspectFiles returns the existing files of r selected by the letters
// of what, in the order of the letters.
func inspectFiles(r task.Runner, what string) []string {
	var candidates []string
	for _, c := range what {
		switch c {
		case 'j':
			candidates = append(candidates, r.Script().Path(r.Dir()))
		case 'i', 'o', 'l', 'f':
			if p := taskFile(r, c); p != "" {
				candidates = append(candidates, p)
			}
		}
	}
	var out []string
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			out = append(out, p)
		}
	}
	return out
}

func taskFile(r task.Runner, c rune) string {
	switch t := r.(type) {
	case *abinit.SolverTask:
		switch c {
		case 'i':
			return t.Path(t.InputName())
		case 'o':
			return t.LastOutput()
		case 'l':
			return t.Path(t.LogName())
		case 'f':
			return t.Path(t.FilesName())
		}
	case *abinit.AnaddbTask:
		switch c {
		case 'i':
			return t.Path(t.InputName())
		case 'o':
			return t.Path(t.OutputName())
		case 'l':
			return t.Path(t.LogName())
		case 'f':
			return t.Path(t.FilesName())
		}
	case *abinit.MergeTask:
		switch c {
		case 'i':
			return t.Path(t.InputName())
		case 'o':
			return t.Path(t.OutputName())
		case 'l':
			return t.Path(abinit.StderrName)
		}
	}
	return ""
}
