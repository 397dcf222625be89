// Package objectstore defines the blob-storage client interface the
// ChunkManager and Reconciler depend on, plus a disk-backed implementation.
//
// No object-storage SDK (aws-sdk-go, minio-go) appears anywhere in the
// retrieval pack, and spec.md §1 explicitly scopes the blob filesystem
// client out of the core as an external collaborator specified only by
// interface. The disk-backed Client below is a test/dev stand-in for that
// collaborator, carrying the same Upload/Download shape the teacher's own
// domain.Client interface uses.
package objectstore

import "context"

// Client is the object-storage collaborator: Upload/Download/List/Delete
// over opaque string keys. Keys under a chunk live at
// "<CHUNK_DATA_PREFIX>/<chunkId>/<file>"; a snapshot's path is the
// directory-level key "<CHUNK_DATA_PREFIX>/<chunkId>".
type Client interface {
	// Upload writes data at key, overwriting any existing object.
	Upload(ctx context.Context, key string, data []byte) error

	// Download reads the object at key, returning ErrNotFound if absent.
	Download(ctx context.Context, key string) ([]byte, error)

	// List returns every key with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the object at key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error
}
