// Package clustererr defines the sentinel errors shared across the
// metadata, chunk manager, and rate limiter packages, so callers can
// branch with errors.Is instead of string matching.
package clustererr

import "errors"

var (
	// ErrNotFound is returned when a metadata node does not exist.
	ErrNotFound = errors.New("metadata: node not found")

	// ErrAlreadyExists is returned by create operations racing a prior create.
	ErrAlreadyExists = errors.New("metadata: node already exists")

	// ErrCorrupt is returned when a stored node's bytes fail to deserialize
	// into the expected type.
	ErrCorrupt = errors.New("metadata: node data is corrupt")

	// ErrStoreUnavailable is returned when the coordination service cannot be
	// reached or the client's session has been lost.
	ErrStoreUnavailable = errors.New("metadata: coordination store unavailable")

	// ErrIngestionStopped is returned by the write path once a ChunkManager
	// has entered its fail-fast state after a rollover failure.
	ErrIngestionStopped = errors.New("chunkmanager: ingestion stopped")

	// ErrRolloverFailed is wrapped into every error RollOverChunkTask.Run
	// returns (spec.md's ROLLOVER_FAILED error kind). It latches
	// Manager.rollOverFailed; subsequent writers see ErrIngestionStopped,
	// not this error directly.
	ErrRolloverFailed = errors.New("chunkmanager: rollover failed")

	// ErrAutoAssignUnsupported is returned by UpdatePartitionAssignment when
	// called with an empty partition list, which would require inferring an
	// assignment rather than applying one.
	ErrAutoAssignUnsupported = errors.New("serviceadmin: automatic partition assignment is not supported")
)
