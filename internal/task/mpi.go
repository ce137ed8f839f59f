package task

import (
	"strconv"
	"strings"

	"github.com/me/abiflow/internal/config"
)

// MPI builds the launch prefix of parallel runs. A flag left empty is
// omitted from the command line.
type MPI struct {
	Runner           string
	NProc            int
	NProcFlag        string
	NProcPerNode     int
	NProcPerNodeFlag string
	Nodes            int
	NodesFlag        string
}

// FromConfig creates an MPI capability from configured defaults.
func FromConfig(c config.MPI) *MPI {
	return &MPI{
		Runner:           c.Runner,
		NProc:            c.NProc,
		NProcFlag:        c.NProcFlag,
		NProcPerNode:     c.NProcPerNode,
		NProcPerNodeFlag: c.NProcPerNodeFlag,
		Nodes:            c.Nodes,
		NodesFlag:        c.NodesFlag,
	}
}

// Serial reports whether the run needs no launcher at all.
func (m *MPI) Serial() bool {
	return m == nil || (m.NProc <= 1 && m.NProcPerNodeFlag == "" && m.NodesFlag == "")
}

// LaunchString returns e.g. "mpirun -n 4", or "" for a serial run.
func (m *MPI) LaunchString() string {
	if m.Serial() {
		return ""
	}
	parts := []string{m.Runner}
	add := func(flag string, n int) {
		if flag != "" {
			parts = append(parts, flag, strconv.Itoa(n))
		}
	}
	add(m.NProcFlag, m.NProc)
	add(m.NProcPerNodeFlag, m.NProcPerNode)
	add(m.NodesFlag, m.Nodes)
	return strings.Join(parts, " ")
}
