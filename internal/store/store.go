package store

import (
	"context"

	"github.com/me/abiflow/pkg/model"
)

// Store persists the status history of tasks.
type Store interface {
	// Record appends an observation. Empty ID and zero CheckedAt are filled in.
	Record(ctx context.Context, rec *model.Record) error
	// List returns observations, newest first, and the total matching count.
	List(ctx context.Context, opts model.ListOptions) ([]*model.Record, int, error)
	// Latest returns the newest observation of a task directory, or nil.
	Latest(ctx context.Context, directory string) (*model.Record, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
