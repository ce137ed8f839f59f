package model

// Status is the completion state of a task, derived from the artifacts it
// left on disk. It is never stored on the task itself.
type Status string

const (
	StatusUnstarted  Status = "Unstarted"
	StatusUnfinished Status = "Unfinished"
	StatusCompleted  Status = "Completed"
	StatusUnknown    Status = "Unknown"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsCompleted returns true if the status is StatusCompleted.
func (s Status) IsCompleted() bool {
	return s == StatusCompleted
}

// Valid returns true if s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusUnstarted, StatusUnfinished, StatusCompleted, StatusUnknown:
		return true
	}
	return false
}

// ParseStatus converts a string to a Status.
// Unrecognized values map to StatusUnknown.
func ParseStatus(s string) Status {
	st := Status(s)
	if st.Valid() {
		return st
	}
	return StatusUnknown
}

// Aggregate combines child statuses in order: StatusCompleted when every
// child completed, otherwise the first status that is not completed.
func Aggregate(statuses ...Status) Status {
	for _, s := range statuses {
		if s != StatusCompleted {
			return s
		}
	}
	return StatusCompleted
}

// LinkMode selects how external files are made available inside a task directory.
type LinkMode string

const (
	LinkModeSymlink LinkMode = "symlink"
	LinkModeCopy    LinkMode = "copy"
)
