package coordinator

import (
	"context"
	"errors"
)

// ErrNodeNotFound is returned by GetNode for a missing path
var ErrNodeNotFound = errors.New("coordination node not found")

// Coordinator is the shared-state surface used for the cluster-wide scheduler switch
type Coordinator interface {
	// EnsureNode creates path (and parents) with data unless it already exists
	EnsureNode(path string, data []byte) error
	GetNode(path string) ([]byte, error)
	// SetNode overwrites the data at path, creating it if needed
	SetNode(path string, data []byte) error
	// WatchNode calls handler with the current data and again on each change
	// until ctx is cancelled
	WatchNode(ctx context.Context, path string, handler func([]byte)) error
	Close() error
}
