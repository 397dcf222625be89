// Package coordination is the thin wire layer over a strongly-consistent
// hierarchical KV store (conceptually ZooKeeper-like): create/get/update/
// delete/list/watch on string paths carrying opaque byte payloads and
// per-node versioning. Everything above this layer (internal/metadata)
// talks only to the Client interface, never to a concrete backend.
package coordination

import (
	"context"
	"errors"
)

// Node is one stored path and its current value.
type Node struct {
	Path    string
	Value   []byte
	Version int64
}

// EventType distinguishes watch notifications.
type EventType int

const (
	EventPut EventType = iota
	EventDelete
)

// Event is one change notification for a watched prefix.
type Event struct {
	Type EventType
	Node Node
}

// ErrSessionLost is sent on a watch's error channel when the underlying
// session to the coordination service is lost. Callers must treat any cache built from this watch as
// stale until a new Watch call succeeds.
var ErrSessionLost = errors.New("coordination: session lost")

// Client is the coordination-service wire client. Paths are plain UTF-8
// strings; payloads are opaque bytes — the metadata layer owns serialization.
type Client interface {
	// Create creates path with value, failing if it already exists.
	Create(ctx context.Context, path string, value []byte) error

	// Get fetches the current value and version at path.
	Get(ctx context.Context, path string) (Node, error)

	// Update replaces the value at an existing path.
	Update(ctx context.Context, path string, value []byte) error

	// Delete removes path. Implementations return ErrNodeNotFound if it
	// does not exist; callers decide whether that's an error.
	Delete(ctx context.Context, path string) error

	// List returns the immediate children's full paths under prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Watch streams Events for everything under prefix, starting with a
	// synthetic EventPut for each currently-existing node so a fresh
	// watcher can build its initial cache from the same channel. The
	// event channel closes when ctx is canceled. Session loss is signaled
	// by sending ErrSessionLost on the returned error channel, which is
	// not closed; EtcdClient also closes the event channel at that point,
	// MemoryClient leaves it open.
	Watch(ctx context.Context, prefix string) (<-chan Event, <-chan error)

	// Close releases the underlying connection.
	Close() error
}

// ErrNodeNotFound is returned by Get/Delete/Update for a missing path.
var ErrNodeNotFound = errors.New("coordination: node not found")

// ErrNodeExists is returned by Create for a path that already exists.
var ErrNodeExists = errors.New("coordination: node already exists")

// ErrUnavailable wraps transport-level failures after retries are exhausted.
var ErrUnavailable = errors.New("coordination: store unavailable")
