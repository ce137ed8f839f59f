package model

import "fmt"

// ConfigError reports a workflow composition that can never be valid,
// such as merging a task that lives in another directory.
type ConfigError struct {
	Op      string
	Dir     string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Dir, e.Message)
}

// NewMergeDirError creates the ConfigError returned when a merged task does
// not share the workflow directory.
func NewMergeDirError(workflowDir, taskDir string) *ConfigError {
	return &ConfigError{
		Op:      "merge",
		Dir:     taskDir,
		Message: fmt.Sprintf("only tasks in the workflow directory %q can be merged", workflowDir),
	}
}

// CollisionError is returned when two tasks of a workflow would write the
// same run script in the same directory.
type CollisionError struct {
	Dir    string
	Script string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("two tasks share directory %q and run script %q; give one of them another script file name", e.Dir, e.Script)
}
