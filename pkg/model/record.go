package model

import "time"

// Record is one observation of a task status, kept in the history store.
type Record struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id,omitempty"`
	Job       string    `json:"job"`
	Task      string    `json:"task"`
	Directory string    `json:"directory"`
	Status    Status    `json:"status"`
	CheckedAt time.Time `json:"checked_at"`
}

// ListOptions configures history queries with pagination and filtering.
type ListOptions struct {
	Limit     int
	Offset    int
	Directory string // Optional directory filter
	Status    string // Optional status filter
}

// DefaultListOptions returns sensible defaults.
func DefaultListOptions() ListOptions {
	return ListOptions{Limit: 20, Offset: 0}
}

// Clamp enforces limits (max 500, min 1).
func (o *ListOptions) Clamp() {
	if o.Limit <= 0 {
		o.Limit = 20
	}
	if o.Limit > 500 {
		o.Limit = 500
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
}
