package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// MPI holds the defaults used to build the MPI launch prefix of a task.
// An empty flag name disables the corresponding option.
type MPI struct {
	Runner           string `yaml:"mpirun" validate:"required"`
	NProc            int    `yaml:"nproc" validate:"gte=1"`
	NProcFlag        string `yaml:"nproc_flag"`
	NProcPerNode     int    `yaml:"nproc_per_node" validate:"gte=1"`
	NProcPerNodeFlag string `yaml:"nproc_per_node_flag"`
	Nodes            int    `yaml:"nodes" validate:"gte=1"`
	NodesFlag        string `yaml:"nodes_flag"`
}

// RunScript holds the fixed parts of every generated run script.
type RunScript struct {
	FirstLine string   `yaml:"first_line" validate:"startswith=#!"`
	Header    []string `yaml:"header"`
	Footer    []string `yaml:"footer"`
	Filename  string   `yaml:"filename" validate:"required,excludes=/"`
}

// Config is the user configuration of abiflow.
type Config struct {
	MPI       MPI       `yaml:"mpi"`
	RunScript RunScript `yaml:"runscript"`
	BinDir    string    `yaml:"bindir"`     // Directory holding abinit, anaddb, mrgddb, mrgdv
	PseudoDir string    `yaml:"pseudo_dir"` // Default pseudopotential directory
	LogLevel  string    `yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error DEBUG INFO WARN ERROR"`
	LogFormat string    `yaml:"log_format" validate:"omitempty,oneof=text json"`
	HistoryDB string    `yaml:"history_db"` // SQLite path (default ~/.abiflow/history.db, ":memory:" for testing)
	LinkMode  string    `yaml:"link_mode" validate:"oneof=symlink copy"`
}

// Environment variables that override file values.
const (
	EnvBinDir    = "ABIFLOW_BINDIR"
	EnvPseudoDir = "ABIFLOW_PSEUDO_DIR"
	EnvMPIRun    = "ABIFLOW_MPIRUN"
	EnvNProc     = "ABIFLOW_NPROC"
	EnvHistoryDB = "ABIFLOW_HISTORY_DB"
	EnvLogLevel  = "ABIFLOW_LOG_LEVEL"
)

// Default returns the built-in defaults. Every call allocates fresh slices.
func Default() Config {
	return Config{
		MPI: MPI{
			Runner:       "mpirun",
			NProc:        1,
			NProcFlag:    "-n",
			NProcPerNode: 1,
			Nodes:        1,
		},
		RunScript: RunScript{
			FirstLine: "#!/bin/bash",
			Header:    []string{},
			Footer:    []string{},
			Filename:  "run.sh",
		},
		LogLevel:  "info",
		LogFormat: "text",
		HistoryDB: DefaultHistoryDB(),
		LinkMode:  "symlink",
	}
}

// Dir returns the per-user configuration directory (~/.abiflow).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".abiflow"
	}
	return filepath.Join(home, ".abiflow")
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// DefaultHistoryDB returns the default status history database path.
func DefaultHistoryDB() string {
	return filepath.Join(Dir(), "history.db")
}

// Load builds a Config from the defaults, the YAML file at path, and the
// ABIFLOW_* environment. An empty path tries DefaultPath and ignores it when
// it does not exist; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvBinDir); ok {
		c.BinDir = v
	}
	if v, ok := lookup(EnvPseudoDir); ok {
		c.PseudoDir = v
	}
	if v, ok := lookup(EnvMPIRun); ok {
		c.MPI.Runner = v
	}
	if v, ok := lookup(EnvNProc); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvNProc, err)
		}
		c.MPI.NProc = n
	}
	if v, ok := lookup(EnvHistoryDB); ok {
		c.HistoryDB = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.LogLevel = v
	}
	return nil
}

// Validate checks the struct constraints of the configuration.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
