package records

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no record exists for the given id
var ErrNotFound = errors.New("client record not found")

// StoreInterface defines the operations the access lifecycle needs from the
// external record store. Updates are merge-patches of individual fields, not
// full replaces, and every operation must be safe to issue concurrently from
// the update loop and the sweep.
type StoreInterface interface {
	// Get fetches a record by id, returning ErrNotFound when it does not exist
	Get(ctx context.Context, id int64) (*Record, error)

	// ListExpiredConnected returns every record that is still connected and
	// whose subscription has ended on or before asOf
	ListExpiredConnected(ctx context.Context, asOf Date) ([]*Record, error)

	// Update applies a partial field patch to the record with the given id
	Update(ctx context.Context, id int64, patch Patch) error
}
