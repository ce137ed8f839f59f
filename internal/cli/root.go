package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/me/abiflow/internal/config"
	"github.com/me/abiflow/internal/jobfile"
	"github.com/me/abiflow/internal/logging"
	"github.com/me/abiflow/internal/store"
	"github.com/me/abiflow/internal/task"
)

var (
	flagConfig    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	cfg    config.Config
	logger *slog.Logger
	runID  string
)

// NewRootCmd creates the root cobra command for the abiflow CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "abiflow",
		Short: "abiflow - scaffold and run abinit calculations",
		Long: "abiflow writes abinit input decks, file manifests and run scripts\n" +
			"for the jobs of a YAML job file, runs them and reports their status.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(flagConfig)
			if err != nil {
				return err
			}
			level := cfg.LogLevel
			if cmd.Flags().Changed("log-level") {
				level = flagLogLevel
			}
			if flagDebug {
				level = "debug"
			}
			format := cfg.LogFormat
			if cmd.Flags().Changed("log-format") {
				format = flagLogFormat
			}
			runID = uuid.New().String()
			logger = logging.NewLoggerWithWriter(logging.ParseLevel(level), format, cmd.ErrOrStderr()).
				With("run_id", runID)
			logger.Debug("config loaded", "path", flagConfig, "bindir", cfg.BinDir, "history_db", cfg.HistoryDB)
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default ~/.abiflow/config.yaml)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newMakeCmd(),
		newRunCmd(),
		newReportCmd(),
		newShowCmd(),
		newRenderCmd(),
		newInspectCmd(),
		newCleanCmd(),
		newDestroyCmd(),
		newHistoryCmd(),
	)

	return root
}

// loadJobs reads the job file at path, keeps the jobs named in only (all
// when empty) and builds their workflows.
func loadJobs(path string, only []string) (*jobfile.File, []*task.Workflow, error) {
	f, err := jobfile.Load(path)
	if err != nil {
		return nil, nil, err
	}
	f, err = f.Select(only...)
	if err != nil {
		return nil, nil, err
	}
	flows, err := jobfile.Build(f, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return f, flows, nil
}

// findJob builds the single job called name.
func findJob(path, name string) (*task.Workflow, error) {
	_, flows, err := loadJobs(path, []string{name})
	if err != nil {
		return nil, err
	}
	return flows[0], nil
}

func addOnlyFlag(cmd *cobra.Command, only *[]string) {
	cmd.Flags().StringSliceVar(only, "only", nil, "Restrict to these job names (comma separated or repeated)")
}

func openStore(ctx context.Context) (*store.SQLiteStore, error) {
	st, err := store.NewSQLiteStore(cfg.HistoryDB, logger)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return st, nil
}
